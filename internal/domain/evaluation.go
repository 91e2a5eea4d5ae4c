package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EvaluationContext carries every input of a roll-up besides the catalog.
// It is built by the caller per request and never mutated by the engine.
type EvaluationContext struct {
	AsOf            time.Time
	DisplayCurrency Currency
	Rates           RateTable
	MarkupRules     []MarkupRule
	CustomerID      *uuid.UUID // nil when the request is not customer specific
}

// Validate ensures the context is usable for a roll-up
func (c *EvaluationContext) Validate() error {
	if c.AsOf.IsZero() {
		return invalidInput("as-of date is required")
	}
	if !c.DisplayCurrency.Valid() {
		return invalidInput("display currency %q is invalid", c.DisplayCurrency)
	}
	if err := c.Rates.Validate(); err != nil {
		return invalidInput("%v", err)
	}
	return ValidateMarkupRules(c.MarkupRules)
}

// CostBreakdown is one node of a roll-up result. It mirrors the assembly tree and
// references catalog entries by id only, so nothing computed here can flow back into
// catalog data. Nodes are built once per call and never modified afterwards.
type CostBreakdown struct {
	RefKind       RefKind
	RefID         uuid.UUID
	Quantity      decimal.Decimal
	UnitCost      Money
	ExtendedCost  Money
	UnitPrice     Money
	ExtendedPrice Money
	PriceRecordID uuid.UUID  // leaves: the price record that was active
	AppliedRuleID uuid.UUID  // leaves: the markup rule that won
	Children      []*CostBreakdown
}

// IsLeaf reports whether the node is a component line
func (b *CostBreakdown) IsLeaf() bool { return b.RefKind == RefKindComponent }

// ForDisplay returns a copy of the tree with every amount rounded to display precision
func (b *CostBreakdown) ForDisplay() *CostBreakdown {
	out := &CostBreakdown{
		RefKind:       b.RefKind,
		RefID:         b.RefID,
		Quantity:      b.Quantity,
		UnitCost:      b.UnitCost.RoundForDisplay(),
		ExtendedCost:  b.ExtendedCost.RoundForDisplay(),
		UnitPrice:     b.UnitPrice.RoundForDisplay(),
		ExtendedPrice: b.ExtendedPrice.RoundForDisplay(),
		PriceRecordID: b.PriceRecordID,
		AppliedRuleID: b.AppliedRuleID,
	}
	if len(b.Children) > 0 {
		out.Children = make([]*CostBreakdown, len(b.Children))
		for i, child := range b.Children {
			out.Children[i] = child.ForDisplay()
		}
	}
	return out
}

// Walk visits the tree depth-first, parents before children
func (b *CostBreakdown) Walk(fn func(depth int, node *CostBreakdown)) {
	b.walk(0, fn)
}

func (b *CostBreakdown) walk(depth int, fn func(int, *CostBreakdown)) {
	fn(depth, b)
	for _, child := range b.Children {
		child.walk(depth+1, fn)
	}
}
