package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is wrapped by repositories when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ComponentRepository defines the interface for component catalog persistence operations
type ComponentRepository interface {
	// GetByID retrieves a component with its full price history ordered by valid_from
	GetByID(ctx context.Context, id uuid.UUID) (*Component, error)

	// Create creates a new component (price history is ignored; use AppendPriceRecord)
	Create(ctx context.Context, component *Component) error

	// AppendPriceRecord stores a new price record for a component.
	// If closeOpen is true, the currently open-ended record is closed at record.ValidFrom
	// in the same database transaction.
	AppendPriceRecord(ctx context.Context, componentID uuid.UUID, record *PriceRecord, closeOpen bool) error
}

// AssemblyRepository defines the interface for assembly persistence operations
type AssemblyRepository interface {
	// GetByID retrieves an assembly with its lines in their stored order
	GetByID(ctx context.Context, id uuid.UUID) (*Assembly, error)

	// Create creates a new assembly together with its lines
	Create(ctx context.Context, assembly *Assembly) error
}

// MarkupRuleRepository defines the interface for markup rule persistence operations.
// It plays the rules collaborator: it supplies rule sets, it never evaluates them.
type MarkupRuleRepository interface {
	// ListActive retrieves every active markup rule
	ListActive(ctx context.Context) ([]MarkupRule, error)

	// GetDefault retrieves the active DEFAULT scope rule
	GetDefault(ctx context.Context) (*MarkupRule, error)

	// Create creates a new markup rule
	Create(ctx context.Context, rule *MarkupRule) error
}
