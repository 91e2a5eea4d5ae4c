package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComponentType represents the kind of priced component
type ComponentType string

const (
	ComponentTypeHardware ComponentType = "HARDWARE"
	ComponentTypeSoftware ComponentType = "SOFTWARE"
	ComponentTypeLabor    ComponentType = "LABOR"
)

// PriceRecord is one time-bounded price of a component.
// Records are append-only: once stored, only an open ValidTo may be closed.
type PriceRecord struct {
	ID        uuid.UUID
	Cost      Money
	ValidFrom time.Time
	ValidTo   *time.Time // nil = open-ended
	SourceRef uuid.UUID  // price-bearing event (e.g. a quote import)
}

// Contains reports whether instant falls inside [ValidFrom, ValidTo)
func (r PriceRecord) Contains(instant time.Time) bool {
	if instant.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || instant.Before(*r.ValidTo)
}

// Overlaps reports whether the windows of r and other share any instant
func (r PriceRecord) Overlaps(other PriceRecord) bool {
	// [a1, a2) and [b1, b2) overlap iff a1 < b2 && b1 < a2
	if other.ValidTo != nil && !r.ValidFrom.Before(*other.ValidTo) {
		return false
	}
	if r.ValidTo != nil && !other.ValidFrom.Before(*r.ValidTo) {
		return false
	}
	return true
}

// Validate ensures the record adheres to domain rules
func (r *PriceRecord) Validate() error {
	if r.ValidFrom.IsZero() {
		return errors.New("price record valid_from is required")
	}
	if r.ValidTo != nil && !r.ValidTo.After(r.ValidFrom) {
		return errors.New("price record valid_to must be after valid_from")
	}
	if !r.Cost.Currency().Valid() {
		return errors.New("price record currency is invalid")
	}
	if r.Cost.Amount().LessThan(decimal.Zero) {
		return errors.New("price record cost cannot be negative")
	}
	return nil
}

// Component is a leaf of the cost graph
type Component struct {
	ID            uuid.UUID
	Name          string
	Category      string
	ComponentType ComponentType
	BaseCurrency  Currency
	PriceHistory  []PriceRecord // ordered by ValidFrom
}

// Validate ensures the component adheres to domain rules
func (c *Component) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("component ID is required")
	}
	switch c.ComponentType {
	case ComponentTypeHardware, ComponentTypeSoftware, ComponentTypeLabor:
	default:
		return errors.New("component type must be HARDWARE, SOFTWARE, or LABOR")
	}
	if !c.BaseCurrency.Valid() {
		return errors.New("component base currency is invalid")
	}
	for i := range c.PriceHistory {
		if err := c.PriceHistory[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
