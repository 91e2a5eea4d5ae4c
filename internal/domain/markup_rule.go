package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarkupScope represents what a markup rule applies to
type MarkupScope string

const (
	MarkupScopeDefault   MarkupScope = "DEFAULT"
	MarkupScopeCategory  MarkupScope = "CATEGORY"
	MarkupScopeComponent MarkupScope = "COMPONENT"
	MarkupScopeCustomer  MarkupScope = "CUSTOMER"
)

// MarkupKind represents how a markup rule turns cost into price
type MarkupKind string

const (
	MarkupKindPercentage MarkupKind = "PERCENTAGE"
	MarkupKindFixed      MarkupKind = "FIXED"
)

// MarkupRule converts an internal unit cost into a customer-facing unit price.
// Rules are supplied per evaluation; the engine never stores them.
type MarkupRule struct {
	ID       uuid.UUID
	Scope    MarkupScope
	Category string    // CATEGORY scope only
	TargetID uuid.UUID // COMPONENT or CUSTOMER scope only
	Kind     MarkupKind
	Percent  decimal.Decimal // PERCENTAGE: 25 means cost * 1.25
	Amount   Money           // FIXED: replaces the cost-based price
}

// DefaultMarkup builds a default-scope percentage rule
func DefaultMarkup(percent decimal.Decimal) MarkupRule {
	return MarkupRule{ID: uuid.New(), Scope: MarkupScopeDefault, Kind: MarkupKindPercentage, Percent: percent}
}

// CategoryMarkup builds a category-scope percentage rule
func CategoryMarkup(category string, percent decimal.Decimal) MarkupRule {
	return MarkupRule{ID: uuid.New(), Scope: MarkupScopeCategory, Category: category, Kind: MarkupKindPercentage, Percent: percent}
}

// CustomerMarkup builds a customer-scope percentage rule
func CustomerMarkup(customerID uuid.UUID, percent decimal.Decimal) MarkupRule {
	return MarkupRule{ID: uuid.New(), Scope: MarkupScopeCustomer, TargetID: customerID, Kind: MarkupKindPercentage, Percent: percent}
}

// ComponentFixedPrice builds a component-scope fixed price rule
func ComponentFixedPrice(componentID uuid.UUID, amount Money) MarkupRule {
	return MarkupRule{ID: uuid.New(), Scope: MarkupScopeComponent, TargetID: componentID, Kind: MarkupKindFixed, Amount: amount}
}

// Validate ensures the rule adheres to domain rules
func (r *MarkupRule) Validate() error {
	switch r.Scope {
	case MarkupScopeDefault:
	case MarkupScopeCategory:
		if r.Category == "" {
			return errors.New("category markup rule must name a category")
		}
	case MarkupScopeComponent:
		if r.TargetID == uuid.Nil {
			return errors.New("component markup rule must reference a component")
		}
		// Component overrides are fixed unit prices
		if r.Kind != MarkupKindFixed {
			return errors.New("component markup rule must be FIXED")
		}
	case MarkupScopeCustomer:
		if r.TargetID == uuid.Nil {
			return errors.New("customer markup rule must reference a customer")
		}
	default:
		return errors.New("markup rule scope must be DEFAULT, CATEGORY, COMPONENT, or CUSTOMER")
	}

	switch r.Kind {
	case MarkupKindPercentage:
		if r.Percent.LessThanOrEqual(decimal.NewFromInt(-100)) {
			return errors.New("PERCENTAGE markup must be greater than -100")
		}
	case MarkupKindFixed:
		if !r.Amount.Currency().Valid() {
			return errors.New("FIXED markup amount currency is invalid")
		}
		if r.Amount.Amount().LessThan(decimal.Zero) {
			return errors.New("FIXED markup amount cannot be negative")
		}
	default:
		return errors.New("markup rule kind must be PERCENTAGE or FIXED")
	}
	return nil
}

// key identifies the slot a rule occupies in the precedence order
func (r *MarkupRule) key() string {
	switch r.Scope {
	case MarkupScopeCategory:
		return string(r.Scope) + ":" + r.Category
	case MarkupScopeComponent, MarkupScopeCustomer:
		return string(r.Scope) + ":" + r.TargetID.String()
	default:
		return string(r.Scope)
	}
}

// ValidateMarkupRules validates every rule and rejects two rules competing for the same slot
func ValidateMarkupRules(rules []MarkupRule) error {
	seen := make(map[string]uuid.UUID, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return &ResolutionError{Kind: ErrInvalidMarkupRules, Detail: err.Error()}
		}
		key := rules[i].key()
		if prev, ok := seen[key]; ok {
			return &ResolutionError{
				Kind:   ErrInvalidMarkupRules,
				Detail: fmt.Sprintf("rules %s and %s both apply to %s", prev, rules[i].ID, key),
			}
		}
		seen[key] = rules[i].ID
	}
	return nil
}
