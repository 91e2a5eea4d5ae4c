package pricebook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/metrics"
)

// MockComponentRepository is a mock implementation of ComponentRepository for testing
type MockComponentRepository struct {
	mock.Mock
}

func (m *MockComponentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Component, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Component), args.Error(1)
}

func (m *MockComponentRepository) Create(ctx context.Context, component *domain.Component) error {
	args := m.Called(ctx, component)
	return args.Error(0)
}

func (m *MockComponentRepository) AppendPriceRecord(ctx context.Context, componentID uuid.UUID, record *domain.PriceRecord, closeOpen bool) error {
	args := m.Called(ctx, componentID, record, closeOpen)
	return args.Error(0)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sensor has $100 from Jan 1 2024, open-ended
func sensor(id uuid.UUID) *domain.Component {
	return &domain.Component{
		ID:            id,
		Name:          "Temperature Sensor",
		Category:      "Sensors",
		ComponentType: domain.ComponentTypeHardware,
		BaseCurrency:  domain.CurrencyUSD,
		PriceHistory: []domain.PriceRecord{{
			ID:        uuid.New(),
			Cost:      domain.NewMoney(decimal.NewFromInt(100), domain.CurrencyUSD),
			ValidFrom: day(2024, time.January, 1),
		}},
	}
}

func newService(repo domain.ComponentRepository, reg *metrics.Registry, now time.Time) *PriceBookService {
	service := NewPriceBookService(repo, reg, nil)
	service.Now = func() time.Time { return now }
	return service
}

func TestRecordPrice_ClosesOpenRecord(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockComponentRepository)
	reg := metrics.NewRegistry()
	service := newService(mockRepo, reg, day(2024, time.July, 1))

	id := uuid.New()
	sourceRef := uuid.New()
	mockRepo.On("GetByID", ctx, id).Return(sensor(id), nil)
	mockRepo.On("AppendPriceRecord", ctx, id, mock.MatchedBy(func(r *domain.PriceRecord) bool {
		return r.Cost.Amount().Equal(decimal.NewFromInt(120)) &&
			r.Cost.Currency() == domain.CurrencyUSD &&
			r.ValidFrom.Equal(day(2024, time.July, 1)) &&
			r.ValidTo == nil &&
			r.SourceRef == sourceRef
	}), true).Return(nil)

	record, err := service.RecordPrice(ctx, RecordPriceInput{
		ComponentID: id,
		Amount:      decimal.NewFromInt(120),
		SourceRef:   sourceRef,
		CloseOpen:   true,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.PricesRecorded))
	mockRepo.AssertExpectations(t)
}

func TestRecordPrice_Rejections(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name    string
		input   RecordPriceInput
		wantErr error
		errMsg  string
	}{
		{
			name:   "negative amount",
			input:  RecordPriceInput{ComponentID: id, Amount: decimal.NewFromInt(-1)},
			errMsg: "price amount cannot be negative",
		},
		{
			name:    "overlap without closing the open record",
			input:   RecordPriceInput{ComponentID: id, Amount: decimal.NewFromInt(120), ValidFrom: day(2024, time.July, 1)},
			wantErr: domain.ErrOverlappingPriceWindows,
		},
		{
			name:   "unsupported currency",
			input:  RecordPriceInput{ComponentID: id, Amount: decimal.NewFromInt(1), Currency: "GBP"},
			errMsg: "invalid price currency",
		},
		{
			name: "empty window",
			input: RecordPriceInput{
				ComponentID: id,
				Amount:      decimal.NewFromInt(90),
				ValidFrom:   day(2023, time.June, 1),
				ValidTo:     func() *time.Time { t := day(2023, time.June, 1); return &t }(),
			},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockComponentRepository)
			mockRepo.On("GetByID", ctx, id).Return(sensor(id), nil).Maybe()
			service := newService(mockRepo, nil, day(2024, time.July, 1))

			record, err := service.RecordPrice(ctx, tt.input)

			assert.Nil(t, record)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
			mockRepo.AssertNotCalled(t, "AppendPriceRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordPrice_BackfillInOtherCurrency(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockComponentRepository)
	service := newService(mockRepo, nil, day(2024, time.July, 1))

	id := uuid.New()
	end := day(2024, time.January, 1)
	mockRepo.On("GetByID", ctx, id).Return(sensor(id), nil)
	mockRepo.On("AppendPriceRecord", ctx, id, mock.AnythingOfType("*domain.PriceRecord"), false).Return(nil)

	record, err := service.RecordPrice(ctx, RecordPriceInput{
		ComponentID: id,
		Amount:      decimal.NewFromInt(350),
		Currency:    domain.CurrencyNIS,
		ValidFrom:   day(2023, time.January, 1),
		ValidTo:     &end,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyNIS, record.Cost.Currency())
	mockRepo.AssertExpectations(t)
}

func TestRecordPrice_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("component not found", func(t *testing.T) {
		mockRepo := new(MockComponentRepository)
		mockRepo.On("GetByID", ctx, id).Return(nil, fmt.Errorf("component %s: %w", id, domain.ErrNotFound))

		_, err := newService(mockRepo, nil, day(2024, time.July, 1)).RecordPrice(ctx, RecordPriceInput{ComponentID: id, Amount: decimal.NewFromInt(1)})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("append fails", func(t *testing.T) {
		mockRepo := new(MockComponentRepository)
		reg := metrics.NewRegistry()
		dbErr := errors.New("failed to commit transaction")
		mockRepo.On("GetByID", ctx, id).Return(sensor(id), nil)
		mockRepo.On("AppendPriceRecord", ctx, id, mock.Anything, true).Return(dbErr)

		_, err := newService(mockRepo, reg, day(2024, time.July, 1)).RecordPrice(ctx, RecordPriceInput{ComponentID: id, Amount: decimal.NewFromInt(1), CloseOpen: true})
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, float64(0), testutil.ToFloat64(reg.PricesRecorded))
	})
}

func TestCurrentPrice(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	component := sensor(id)
	switchover := day(2024, time.July, 1)
	component.PriceHistory[0].ValidTo = &switchover
	component.PriceHistory = append(component.PriceHistory, domain.PriceRecord{
		ID:        uuid.New(),
		Cost:      domain.NewMoney(decimal.NewFromInt(120), domain.CurrencyUSD),
		ValidFrom: switchover,
	})

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"after the change", day(2024, time.August, 1), 120},
		{"last day before the change", day(2024, time.June, 30), 100},
		{"on the change", switchover, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockComponentRepository)
			mockRepo.On("GetByID", ctx, id).Return(component, nil)

			record, err := newService(mockRepo, nil, tt.now).CurrentPrice(ctx, id)
			require.NoError(t, err)
			assert.True(t, record.Cost.Amount().Equal(decimal.NewFromInt(tt.want)))
		})
	}

	t.Run("before the first record", func(t *testing.T) {
		mockRepo := new(MockComponentRepository)
		mockRepo.On("GetByID", ctx, id).Return(component, nil)

		_, err := newService(mockRepo, nil, day(2023, time.June, 1)).CurrentPrice(ctx, id)

		var re *domain.ResolutionError
		require.True(t, errors.As(err, &re))
		assert.True(t, errors.Is(err, domain.ErrNoActivePrice))
		assert.Equal(t, id, re.ComponentID)
	})
}
