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

const markupRuleColumns = `id, scope, category, target_id, kind, percent, amount, currency`

// markupRuleRepository implements domain.MarkupRuleRepository
type markupRuleRepository struct {
	db *DB
}

// NewMarkupRuleRepository creates a new markup rule repository
func NewMarkupRuleRepository(db *DB) domain.MarkupRuleRepository {
	return &markupRuleRepository{db: db}
}

// ListActive retrieves every active markup rule
func (r *markupRuleRepository) ListActive(ctx context.Context) ([]domain.MarkupRule, error) {
	query := `
		SELECT ` + markupRuleColumns + `
		FROM markup_rules
		WHERE active = TRUE
		ORDER BY scope ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query markup rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.MarkupRule, 0)
	for rows.Next() {
		rule, err := scanMarkupRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markup rules: %w", err)
	}

	return rules, nil
}

// GetDefault retrieves the active DEFAULT scope rule
func (r *markupRuleRepository) GetDefault(ctx context.Context) (*domain.MarkupRule, error) {
	query := `
		SELECT ` + markupRuleColumns + `
		FROM markup_rules
		WHERE scope = $1 AND active = TRUE
		LIMIT 1
	`

	rule, err := scanMarkupRule(r.db.QueryRowContext(ctx, query, string(domain.MarkupScopeDefault)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("default markup rule: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return rule, nil
}

// Create creates a new active markup rule
func (r *markupRuleRepository) Create(ctx context.Context, rule *domain.MarkupRule) error {
	query := `
		INSERT INTO markup_rules (id, scope, category, target_id, kind, percent, amount, currency, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
	`

	var targetID, percent, amount, currency interface{}
	if rule.TargetID != uuid.Nil {
		targetID = rule.TargetID
	}
	switch rule.Kind {
	case domain.MarkupKindPercentage:
		percent = rule.Percent.String()
	case domain.MarkupKindFixed:
		amount = rule.Amount.Amount().String()
		currency = string(rule.Amount.Currency())
	}

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		string(rule.Scope),
		rule.Category,
		targetID,
		string(rule.Kind),
		percent,
		amount,
		currency,
	)
	if err != nil {
		return fmt.Errorf("failed to create markup rule: %w", err)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMarkupRule reads one markup_rules row
func scanMarkupRule(row rowScanner) (*domain.MarkupRule, error) {
	var rule domain.MarkupRule
	var targetID, percentStr, amountStr, currency sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.Scope,
		&rule.Category,
		&targetID,
		&rule.Kind,
		&percentStr,
		&amountStr,
		&currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan markup rule: %w", err)
	}

	if targetID.Valid {
		id, err := uuid.Parse(targetID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup rule target_id: %w", err)
		}
		rule.TargetID = id
	}

	if percentStr.Valid {
		percent, err := decimal.NewFromString(percentStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup rule percent: %w", err)
		}
		rule.Percent = percent
	}

	if amountStr.Valid {
		amount, err := decimal.NewFromString(amountStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup rule amount: %w", err)
		}
		rule.Amount = domain.NewMoney(amount, domain.Currency(currency.String))
	}

	return &rule, nil
}
