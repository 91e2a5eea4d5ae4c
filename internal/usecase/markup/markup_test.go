package markup

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

func usd(s string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyUSD)
}

func TestPriceFor_Precedence(t *testing.T) {
	customer := uuid.New()
	otherCustomer := uuid.New()
	component := uuid.New()

	defaultRule := domain.DefaultMarkup(decimal.NewFromInt(25))
	categoryRule := domain.CategoryMarkup("Sensors", decimal.NewFromInt(20))
	customerRule := domain.CustomerMarkup(customer, decimal.NewFromInt(15))
	fixedRule := domain.ComponentFixedPrice(component, usd("99.00"))

	tests := []struct {
		name         string
		line         Line
		rules        []domain.MarkupRule
		expectedRule uuid.UUID
		expected     string
	}{
		{
			name:         "customer beats category",
			line:         Line{Category: "Sensors", ComponentID: uuid.New(), CustomerID: &customer},
			rules:        []domain.MarkupRule{defaultRule, categoryRule, customerRule},
			expectedRule: customerRule.ID,
			expected:     "115",
		},
		{
			name:         "category applies once the customer rule is removed",
			line:         Line{Category: "Sensors", ComponentID: uuid.New(), CustomerID: &customer},
			rules:        []domain.MarkupRule{defaultRule, categoryRule},
			expectedRule: categoryRule.ID,
			expected:     "120",
		},
		{
			name:         "other customer's rule is ignored",
			line:         Line{Category: "Sensors", ComponentID: uuid.New(), CustomerID: &otherCustomer},
			rules:        []domain.MarkupRule{customerRule, categoryRule, defaultRule},
			expectedRule: categoryRule.ID,
			expected:     "120",
		},
		{
			name:         "customer rules need a customer on the request",
			line:         Line{Category: "Sensors", ComponentID: uuid.New()},
			rules:        []domain.MarkupRule{customerRule, defaultRule},
			expectedRule: defaultRule.ID,
			expected:     "125",
		},
		{
			name:         "component fixed price beats category",
			line:         Line{Category: "Sensors", ComponentID: component},
			rules:        []domain.MarkupRule{categoryRule, fixedRule, defaultRule},
			expectedRule: fixedRule.ID,
			expected:     "99",
		},
		{
			name:         "customer beats component fixed price",
			line:         Line{Category: "Sensors", ComponentID: component, CustomerID: &customer},
			rules:        []domain.MarkupRule{fixedRule, customerRule},
			expectedRule: customerRule.ID,
			expected:     "115",
		},
		{
			name:         "default for an unmatched category",
			line:         Line{Category: "Cables", ComponentID: uuid.New()},
			rules:        []domain.MarkupRule{categoryRule, defaultRule},
			expectedRule: defaultRule.ID,
			expected:     "125",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceFor(usd("100"), tt.line, tt.rules, domain.NewRateTable())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRule, got.Rule.ID)
			assert.True(t, got.Price.Amount().Equal(decimal.RequireFromString(tt.expected)), "got %s", got.Price.Amount())
			assert.Equal(t, domain.CurrencyUSD, got.Price.Currency())
		})
	}
}

func TestPriceFor_NoRuleApplicable(t *testing.T) {
	component := uuid.New()
	rules := []domain.MarkupRule{domain.CategoryMarkup("Cables", decimal.NewFromInt(10))}

	_, err := PriceFor(usd("100"), Line{Category: "Sensors", ComponentID: component}, rules, domain.NewRateTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMarkupRuleApplicable))

	var re *domain.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, component, re.ComponentID)

	_, err = PriceFor(usd("100"), Line{Category: "Sensors", ComponentID: component}, nil, domain.NewRateTable())
	assert.True(t, errors.Is(err, domain.ErrNoMarkupRuleApplicable), "an empty rule set never falls back to a hard-coded markup")
}

func TestPriceFor_FixedPriceIsConverted(t *testing.T) {
	component := uuid.New()
	rule := domain.ComponentFixedPrice(component, domain.NewMoney(decimal.NewFromInt(100), domain.CurrencyEUR))
	line := Line{Category: "Sensors", ComponentID: component}
	cost := domain.NewMoney(decimal.NewFromInt(300), domain.CurrencyNIS)

	rates := domain.NewRateTable().With(domain.CurrencyEUR, domain.CurrencyNIS, decimal.RequireFromString("4.05"))
	got, err := PriceFor(cost, line, []domain.MarkupRule{rule}, rates)
	require.NoError(t, err)
	assert.Equal(t, "405.00 NIS", got.Price.String())

	_, err = PriceFor(cost, line, []domain.MarkupRule{rule}, domain.NewRateTable())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingExchangeRate))

	var re *domain.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, component, re.ComponentID)
	assert.Equal(t, domain.CurrencyEUR, re.From)
	assert.Equal(t, domain.CurrencyNIS, re.To)
}

func TestPriceFor_Discount(t *testing.T) {
	rule := domain.DefaultMarkup(decimal.RequireFromString("-12.5"))

	got, err := PriceFor(usd("80"), Line{ComponentID: uuid.New()}, []domain.MarkupRule{rule}, domain.NewRateTable())
	require.NoError(t, err)
	assert.True(t, got.Price.Amount().Equal(decimal.NewFromInt(70)))
}
