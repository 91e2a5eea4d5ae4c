package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefKind tells whether an assembly line points at a component or another assembly
type RefKind string

const (
	RefKindComponent RefKind = "COMPONENT"
	RefKindAssembly  RefKind = "ASSEMBLY"
)

// AssemblyLine is one quantity-bearing reference inside an assembly.
// Lines are owned by exactly one assembly.
type AssemblyLine struct {
	RefKind  RefKind
	RefID    uuid.UUID
	Quantity decimal.Decimal // positive, may be fractional
}

// ComponentLine builds a line referencing a component
func ComponentLine(id uuid.UUID, quantity decimal.Decimal) AssemblyLine {
	return AssemblyLine{RefKind: RefKindComponent, RefID: id, Quantity: quantity}
}

// AssemblyRef builds a line referencing an assembly
func AssemblyRef(id uuid.UUID, quantity decimal.Decimal) AssemblyLine {
	return AssemblyLine{RefKind: RefKindAssembly, RefID: id, Quantity: quantity}
}

// Validate ensures the line adheres to domain rules
func (l *AssemblyLine) Validate() error {
	if l.RefKind != RefKindComponent && l.RefKind != RefKindAssembly {
		return fmt.Errorf("assembly line ref kind must be COMPONENT or ASSEMBLY, got %q", l.RefKind)
	}
	if l.RefID == uuid.Nil {
		return errors.New("assembly line ref ID is required")
	}
	if l.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("assembly line quantity must be positive")
	}
	return nil
}

// Assembly groups ordered lines. Assemblies may be shared by many parents,
// but the reference graph they form must be acyclic.
type Assembly struct {
	ID    uuid.UUID
	Name  string
	Lines []AssemblyLine
}

// Validate ensures the assembly adheres to domain rules.
// Direct self references are rejected here; transitive cycles are caught during roll-up.
func (a *Assembly) Validate() error {
	if a.ID == uuid.Nil {
		return errors.New("assembly ID is required")
	}
	for i := range a.Lines {
		line := a.Lines[i]
		if err := line.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if line.RefKind == RefKindAssembly && line.RefID == a.ID {
			return errors.New("assembly cannot reference itself")
		}
	}
	return nil
}

// Catalog is a read-only snapshot of the components and assemblies a roll-up may visit
type Catalog struct {
	Components map[uuid.UUID]*Component
	Assemblies map[uuid.UUID]*Assembly
}

// NewCatalog builds a snapshot from slices
func NewCatalog(components []*Component, assemblies []*Assembly) *Catalog {
	c := &Catalog{
		Components: make(map[uuid.UUID]*Component, len(components)),
		Assemblies: make(map[uuid.UUID]*Assembly, len(assemblies)),
	}
	for _, comp := range components {
		c.Components[comp.ID] = comp
	}
	for _, asm := range assemblies {
		c.Assemblies[asm.ID] = asm
	}
	return c
}

// Component looks up a component or returns an UnknownReference error
func (c *Catalog) Component(id uuid.UUID) (*Component, error) {
	comp, ok := c.Components[id]
	if !ok {
		return nil, &ResolutionError{Kind: ErrUnknownReference, ComponentID: id}
	}
	return comp, nil
}

// Assembly looks up an assembly or returns an UnknownReference error
func (c *Catalog) Assembly(id uuid.UUID) (*Assembly, error) {
	asm, ok := c.Assemblies[id]
	if !ok {
		return nil, &ResolutionError{Kind: ErrUnknownReference, AssemblyID: id}
	}
	return asm, nil
}
