package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// componentRepository implements domain.ComponentRepository
type componentRepository struct {
	db *DB
}

// NewComponentRepository creates a new component repository
func NewComponentRepository(db *DB) domain.ComponentRepository {
	return &componentRepository{db: db}
}

// GetByID retrieves a component and its price history ordered by valid_from
func (r *componentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Component, error) {
	query := `
		SELECT id, name, category, component_type, base_currency
		FROM components
		WHERE id = $1
	`

	var component domain.Component
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&component.ID,
		&component.Name,
		&component.Category,
		&component.ComponentType,
		&component.BaseCurrency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("component %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get component by ID: %w", err)
	}

	history, err := r.priceHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	component.PriceHistory = history

	return &component, nil
}

// priceHistory loads every price record of a component, oldest window first
func (r *componentRepository) priceHistory(ctx context.Context, componentID uuid.UUID) ([]domain.PriceRecord, error) {
	query := `
		SELECT id, cost, currency, valid_from, valid_to, source_ref
		FROM price_records
		WHERE component_id = $1
		ORDER BY valid_from ASC
	`

	rows, err := r.db.QueryContext(ctx, query, componentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	history := make([]domain.PriceRecord, 0)
	for rows.Next() {
		var record domain.PriceRecord
		var costStr string
		var currency domain.Currency
		var validTo sql.NullTime

		err := rows.Scan(
			&record.ID,
			&costStr,
			&currency,
			&record.ValidFrom,
			&validTo,
			&record.SourceRef,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}

		// Parse cost (NUMERIC)
		cost, err := decimal.NewFromString(costStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price record cost: %w", err)
		}
		record.Cost = domain.NewMoney(cost, currency)

		// Parse valid_to (nullable = open-ended)
		if validTo.Valid {
			t := validTo.Time
			record.ValidTo = &t
		}

		history = append(history, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price records: %w", err)
	}

	return history, nil
}

// Create creates a new component
func (r *componentRepository) Create(ctx context.Context, component *domain.Component) error {
	query := `
		INSERT INTO components (id, name, category, component_type, base_currency)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		component.ID,
		component.Name,
		component.Category,
		string(component.ComponentType),
		string(component.BaseCurrency),
	)
	if err != nil {
		return fmt.Errorf("failed to create component: %w", err)
	}

	return nil
}

// AppendPriceRecord inserts a price record, optionally closing the open-ended one first.
// Both statements run in one database transaction.
func (r *componentRepository) AppendPriceRecord(ctx context.Context, componentID uuid.UUID, record *domain.PriceRecord, closeOpen bool) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if closeOpen {
		closeQuery := `
			UPDATE price_records
			SET valid_to = $1
			WHERE component_id = $2 AND valid_to IS NULL AND valid_from < $1
		`
		if _, err := dbTx.ExecContext(ctx, closeQuery, record.ValidFrom, componentID); err != nil {
			return fmt.Errorf("failed to close open price record: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO price_records (id, component_id, cost, currency, valid_from, valid_to, source_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var validTo interface{}
	if record.ValidTo != nil {
		validTo = *record.ValidTo
	}

	_, err = dbTx.ExecContext(ctx, insertQuery,
		record.ID,
		componentID,
		record.Cost.Amount().String(),
		string(record.Cost.Currency()),
		record.ValidFrom,
		validTo,
		record.SourceRef,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price record: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
