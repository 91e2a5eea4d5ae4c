package pricebook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/metrics"
	"github.com/simaogato/quoteflow-backend/internal/usecase/pricehistory"
)

// RecordPriceInput represents a price-bearing event for one component
type RecordPriceInput struct {
	ComponentID uuid.UUID
	Amount      decimal.Decimal
	Currency    domain.Currency // empty: the component's base currency
	ValidFrom   time.Time
	ValidTo     *time.Time
	SourceRef   uuid.UUID
	CloseOpen   bool // close the currently open-ended record at ValidFrom
}

// PriceBookService handles price history operations
type PriceBookService struct {
	ComponentRepo domain.ComponentRepository
	Metrics       *metrics.Registry
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewPriceBookService creates a new PriceBookService instance
func NewPriceBookService(componentRepo domain.ComponentRepository, reg *metrics.Registry, logger *zap.Logger) *PriceBookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceBookService{
		ComponentRepo: componentRepo,
		Metrics:       reg,
		Logger:        logger,
		Now:           time.Now,
	}
}

// RecordPrice appends a new price record to a component's history.
// Logic:
//  1. Fetch the component with its current history
//  2. Build the immutable record and check it against the history (no overlaps allowed)
//  3. Persist it, closing the open-ended record if requested
//
// Existing records are never deleted or rewritten; a price change is always a new record.
func (s *PriceBookService) RecordPrice(ctx context.Context, input RecordPriceInput) (*domain.PriceRecord, error) {
	if input.Amount.LessThan(decimal.Zero) {
		return nil, errors.New("price amount cannot be negative")
	}

	component, err := s.ComponentRepo.GetByID(ctx, input.ComponentID)
	if err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = component.BaseCurrency
	}
	if !currency.Valid() {
		return nil, errors.New("invalid price currency")
	}

	validFrom := input.ValidFrom
	if validFrom.IsZero() {
		validFrom = s.Now()
	}

	record := domain.PriceRecord{
		ID:        uuid.New(),
		Cost:      domain.NewMoney(input.Amount, currency),
		ValidFrom: validFrom,
		ValidTo:   input.ValidTo,
		SourceRef: input.SourceRef,
	}

	// Dry run against the stored history so overlaps are rejected before anything is written
	if _, err := pricehistory.Append(component.PriceHistory, record, input.CloseOpen); err != nil {
		return nil, err
	}

	if err := s.ComponentRepo.AppendPriceRecord(ctx, component.ID, &record, input.CloseOpen); err != nil {
		return nil, err
	}

	s.Metrics.IncPricesRecorded()
	s.Logger.Info("price recorded",
		zap.String("component_id", component.ID.String()),
		zap.String("price_record_id", record.ID.String()),
		zap.String("cost", record.Cost.String()),
		zap.Time("valid_from", record.ValidFrom),
	)

	return &record, nil
}

// CurrentPrice returns the price record active right now.
// It goes through the same temporal resolution as any other date: no "latest row" shortcut.
func (s *PriceBookService) CurrentPrice(ctx context.Context, componentID uuid.UUID) (*domain.PriceRecord, error) {
	return s.PriceAt(ctx, componentID, s.Now())
}

// PriceAt returns the price record active at the given instant
func (s *PriceBookService) PriceAt(ctx context.Context, componentID uuid.UUID, instant time.Time) (*domain.PriceRecord, error) {
	component, err := s.ComponentRepo.GetByID(ctx, componentID)
	if err != nil {
		return nil, err
	}

	record, err := pricehistory.ActivePriceAt(component.PriceHistory, instant)
	if err != nil {
		var re *domain.ResolutionError
		if errors.As(err, &re) {
			out := *re
			out.ComponentID = componentID
			return nil, &out
		}
		return nil, err
	}
	return &record, nil
}
