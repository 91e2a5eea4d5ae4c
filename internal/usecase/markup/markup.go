package markup

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Line identifies the priced line to the resolver
type Line struct {
	Category    string
	ComponentID uuid.UUID
	CustomerID  *uuid.UUID
}

// Result is the customer unit price and the rule that produced it
type Result struct {
	Price domain.Money
	Rule  domain.MarkupRule
}

// PriceFor turns a unit cost into a customer unit price.
// Logic (first match wins, all other rules are ignored):
//  1. CUSTOMER rule for line.CustomerID (only when a customer is given)
//  2. COMPONENT fixed price for line.ComponentID
//  3. CATEGORY rule for line.Category
//  4. DEFAULT rule
//
// No match -> NoMarkupRuleApplicable; the resolver never falls back to 0% or 100%.
// PERCENTAGE: price = cost * (1 + p/100). FIXED: price = amount, converted into the
// currency of unitCost.
func PriceFor(unitCost domain.Money, line Line, rules []domain.MarkupRule, rates domain.RateTable) (Result, error) {
	rule := selectRule(line, rules)
	if rule == nil {
		return Result{}, &domain.ResolutionError{
			Kind:        domain.ErrNoMarkupRuleApplicable,
			ComponentID: line.ComponentID,
			Detail:      "category " + line.Category,
		}
	}

	switch rule.Kind {
	case domain.MarkupKindPercentage:
		factor := decimal.NewFromInt(1).Add(rule.Percent.Div(hundred))
		return Result{Price: unitCost.MultiplyByScalar(factor), Rule: *rule}, nil
	case domain.MarkupKindFixed:
		price, err := rule.Amount.ConvertTo(unitCost.Currency(), rates)
		if err != nil {
			return Result{}, withComponent(err, line.ComponentID)
		}
		return Result{Price: price, Rule: *rule}, nil
	default:
		return Result{}, &domain.ResolutionError{
			Kind:   domain.ErrInvalidMarkupRules,
			Detail: "unknown markup kind " + string(rule.Kind),
		}
	}
}

// selectRule walks the precedence tiers in order and returns the first matching rule
func selectRule(line Line, rules []domain.MarkupRule) *domain.MarkupRule {
	tiers := []func(r *domain.MarkupRule) bool{
		func(r *domain.MarkupRule) bool {
			return line.CustomerID != nil && r.Scope == domain.MarkupScopeCustomer && r.TargetID == *line.CustomerID
		},
		func(r *domain.MarkupRule) bool {
			return r.Scope == domain.MarkupScopeComponent && r.Kind == domain.MarkupKindFixed && r.TargetID == line.ComponentID
		},
		func(r *domain.MarkupRule) bool {
			return r.Scope == domain.MarkupScopeCategory && r.Category == line.Category
		},
		func(r *domain.MarkupRule) bool {
			return r.Scope == domain.MarkupScopeDefault
		},
	}

	for _, matches := range tiers {
		for i := range rules {
			if matches(&rules[i]) {
				return &rules[i]
			}
		}
	}
	return nil
}

// withComponent attaches the component id to a resolution error that lacks one
func withComponent(err error, componentID uuid.UUID) error {
	var re *domain.ResolutionError
	if errors.As(err, &re) && re.ComponentID == uuid.Nil {
		out := *re
		out.ComponentID = componentID
		return &out
	}
	return err
}
