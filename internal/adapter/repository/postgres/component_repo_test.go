package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return Wrap(sqlDB), mock
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComponentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewComponentRepository(db)

	id := uuid.New()
	first, second := uuid.New(), uuid.New()
	source := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM components")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "component_type", "base_currency"}).
			AddRow(id.String(), "Temperature Sensor", "Sensors", "HARDWARE", "USD"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM price_records")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cost", "currency", "valid_from", "valid_to", "source_ref"}).
			AddRow(first.String(), "100.00", "USD", day(2024, time.January, 1), day(2024, time.July, 1), source.String()).
			AddRow(second.String(), "120.50", "USD", day(2024, time.July, 1), nil, source.String()))

	component, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, component.ID)
	assert.Equal(t, "Sensors", component.Category)
	assert.Equal(t, domain.ComponentTypeHardware, component.ComponentType)
	assert.Equal(t, domain.CurrencyUSD, component.BaseCurrency)

	require.Len(t, component.PriceHistory, 2)
	assert.Equal(t, first, component.PriceHistory[0].ID)
	require.NotNil(t, component.PriceHistory[0].ValidTo)
	assert.Equal(t, day(2024, time.July, 1), *component.PriceHistory[0].ValidTo)
	assert.True(t, component.PriceHistory[1].Cost.Amount().Equal(decimal.RequireFromString("120.50")))
	assert.Nil(t, component.PriceHistory[1].ValidTo)
	assert.Equal(t, source, component.PriceHistory[1].SourceRef)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComponentRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM components")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "component_type", "base_currency"}))

	_, err := repo.GetByID(context.Background(), id)

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepository_GetByID_BadCost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComponentRepository(db)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM components")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "component_type", "base_currency"}).
			AddRow(id.String(), "Sensor", "Sensors", "HARDWARE", "USD"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM price_records")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cost", "currency", "valid_from", "valid_to", "source_ref"}).
			AddRow(uuid.New().String(), "abc", "USD", day(2024, time.January, 1), nil, uuid.New().String()))

	_, err := repo.GetByID(context.Background(), id)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse price record cost")
}

func TestComponentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComponentRepository(db)

	component := &domain.Component{
		ID:            uuid.New(),
		Name:          "Installation",
		Category:      "Labor",
		ComponentType: domain.ComponentTypeLabor,
		BaseCurrency:  domain.CurrencyNIS,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO components")).
		WithArgs(component.ID, "Installation", "Labor", "LABOR", "NIS").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), component))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepository_AppendPriceRecord(t *testing.T) {
	componentID := uuid.New()
	validFrom := day(2024, time.July, 1)
	record := &domain.PriceRecord{
		ID:        uuid.New(),
		Cost:      domain.NewMoney(decimal.RequireFromString("120.00"), domain.CurrencyUSD),
		ValidFrom: validFrom,
		SourceRef: uuid.New(),
	}

	t.Run("closes the open record in the same transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewComponentRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE price_records")).
			WithArgs(validFrom, componentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_records")).
			WithArgs(record.ID, componentID, "120", "USD", validFrom, nil, record.SourceRef).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AppendPriceRecord(context.Background(), componentID, record, true))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("plain append", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewComponentRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_records")).
			WithArgs(record.ID, componentID, "120", "USD", validFrom, nil, record.SourceRef).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AppendPriceRecord(context.Background(), componentID, record, false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewComponentRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE price_records")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_records")).
			WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		err := repo.AppendPriceRecord(context.Background(), componentID, record, true)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert price record")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
