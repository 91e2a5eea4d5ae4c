package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// Loader builds immutable catalog snapshots from the repositories
type Loader struct {
	ComponentRepo domain.ComponentRepository
	AssemblyRepo  domain.AssemblyRepository
}

// NewLoader creates a new Loader instance
func NewLoader(componentRepo domain.ComponentRepository, assemblyRepo domain.AssemblyRepository) *Loader {
	return &Loader{
		ComponentRepo: componentRepo,
		AssemblyRepo:  assemblyRepo,
	}
}

// LoadSubgraph fetches every component and assembly reachable from the given roots.
// Logic:
//   - Breadth-first over assembly lines, each id fetched at most once
//   - A missing record maps to an UnknownReference resolution error
//   - Cyclic data terminates thanks to the visited set; the roll-up reports the cycle
func (l *Loader) LoadSubgraph(ctx context.Context, roots ...domain.AssemblyLine) (*domain.Catalog, error) {
	snapshot := &domain.Catalog{
		Components: make(map[uuid.UUID]*domain.Component),
		Assemblies: make(map[uuid.UUID]*domain.Assembly),
	}

	queue := append([]domain.AssemblyLine(nil), roots...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := queue[0]
		queue = queue[1:]

		switch line.RefKind {
		case domain.RefKindComponent:
			if _, done := snapshot.Components[line.RefID]; done {
				continue
			}
			comp, err := l.ComponentRepo.GetByID(ctx, line.RefID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, &domain.ResolutionError{Kind: domain.ErrUnknownReference, ComponentID: line.RefID}
				}
				return nil, fmt.Errorf("failed to load component %s: %w", line.RefID, err)
			}
			snapshot.Components[comp.ID] = comp

		case domain.RefKindAssembly:
			if _, done := snapshot.Assemblies[line.RefID]; done {
				continue
			}
			asm, err := l.AssemblyRepo.GetByID(ctx, line.RefID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, &domain.ResolutionError{Kind: domain.ErrUnknownReference, AssemblyID: line.RefID}
				}
				return nil, fmt.Errorf("failed to load assembly %s: %w", line.RefID, err)
			}
			snapshot.Assemblies[asm.ID] = asm
			queue = append(queue, asm.Lines...)

		default:
			return nil, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: "unknown ref kind " + string(line.RefKind)}
		}
	}

	return snapshot, nil
}
