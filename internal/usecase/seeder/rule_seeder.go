package seeder

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// SYS_DEFAULT_MARKUP is the fixed ID of the seeded default markup rule
var SYS_DEFAULT_MARKUP = uuid.MustParse("00000000-0000-0000-0000-00000000d001")

// RuleSeeder makes sure the configured default markup rule exists in the rule store.
// The pricing engine never invents a default; this seeds one as ordinary data.
type RuleSeeder struct {
	repo           domain.MarkupRuleRepository
	defaultPercent *decimal.Decimal
}

// NewRuleSeeder creates a new RuleSeeder instance.
// defaultPercent nil disables seeding.
func NewRuleSeeder(repo domain.MarkupRuleRepository, defaultPercent *decimal.Decimal) *RuleSeeder {
	return &RuleSeeder{
		repo:           repo,
		defaultPercent: defaultPercent,
	}
}

// Seed creates the default markup rule if none is active.
// Returns true when a rule was created.
func (s *RuleSeeder) Seed(ctx context.Context) (bool, error) {
	if s.defaultPercent == nil {
		return false, nil
	}

	_, err := s.repo.GetDefault(ctx)
	if err == nil {
		// An active default already exists; an operator-edited value wins
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	rule := domain.MarkupRule{
		ID:      SYS_DEFAULT_MARKUP,
		Scope:   domain.MarkupScopeDefault,
		Kind:    domain.MarkupKindPercentage,
		Percent: *s.defaultPercent,
	}

	// Validate before creating
	if err := rule.Validate(); err != nil {
		return false, err
	}

	if err := s.repo.Create(ctx, &rule); err != nil {
		return false, err
	}
	return true, nil
}
