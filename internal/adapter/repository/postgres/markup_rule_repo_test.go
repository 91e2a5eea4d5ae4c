package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

var markupRuleRowColumns = []string{"id", "scope", "category", "target_id", "kind", "percent", "amount", "currency"}

func TestMarkupRuleRepository_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMarkupRuleRepository(db)

	defaultID, categoryID, fixedID := uuid.New(), uuid.New(), uuid.New()
	target := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE")).
		WillReturnRows(sqlmock.NewRows(markupRuleRowColumns).
			AddRow(categoryID.String(), "CATEGORY", "Sensors", nil, "PERCENTAGE", "20", nil, nil).
			AddRow(fixedID.String(), "COMPONENT", "", target.String(), "FIXED", nil, "99.90", "EUR").
			AddRow(defaultID.String(), "DEFAULT", "", nil, "PERCENTAGE", "25", nil, nil))

	rules, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, domain.MarkupScopeCategory, rules[0].Scope)
	assert.Equal(t, "Sensors", rules[0].Category)
	assert.True(t, rules[0].Percent.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, domain.MarkupKindFixed, rules[1].Kind)
	assert.Equal(t, target, rules[1].TargetID)
	assert.Equal(t, "99.90 EUR", rules[1].Amount.String())

	assert.Equal(t, defaultID, rules[2].ID)
	assert.NoError(t, domain.ValidateMarkupRules(rules))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkupRuleRepository_GetDefault(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMarkupRuleRepository(db)

		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("WHERE scope = $1 AND active = TRUE")).
			WithArgs("DEFAULT").
			WillReturnRows(sqlmock.NewRows(markupRuleRowColumns).
				AddRow(id.String(), "DEFAULT", "", nil, "PERCENTAGE", "25", nil, nil))

		rule, err := repo.GetDefault(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, rule.ID)
		assert.True(t, rule.Percent.Equal(decimal.NewFromInt(25)))
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMarkupRuleRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE scope = $1 AND active = TRUE")).
			WithArgs("DEFAULT").
			WillReturnRows(sqlmock.NewRows(markupRuleRowColumns))

		_, err := repo.GetDefault(context.Background())
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestMarkupRuleRepository_Create(t *testing.T) {
	tests := []struct {
		name string
		rule domain.MarkupRule
		args func(r domain.MarkupRule) []driver.Value
	}{
		{
			name: "percentage",
			rule: domain.CategoryMarkup("Sensors", decimal.NewFromInt(20)),
			args: func(r domain.MarkupRule) []driver.Value {
				return []driver.Value{r.ID, "CATEGORY", "Sensors", nil, "PERCENTAGE", "20", nil, nil}
			},
		},
		{
			name: "fixed",
			rule: domain.ComponentFixedPrice(uuid.New(), domain.NewMoney(decimal.RequireFromString("99.9"), domain.CurrencyEUR)),
			args: func(r domain.MarkupRule) []driver.Value {
				return []driver.Value{r.ID, "COMPONENT", "", r.TargetID, "FIXED", nil, "99.9", "EUR"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewMarkupRuleRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO markup_rules")).
				WithArgs(tt.args(tt.rule)...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, repo.Create(context.Background(), &tt.rule))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
