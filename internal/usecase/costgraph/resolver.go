package costgraph

import (
	"errors"

	"github.com/google/uuid"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/usecase/markup"
	"github.com/simaogato/quoteflow-backend/internal/usecase/pricehistory"
)

// subtotal is the quantity-independent roll-up of one assembly
type subtotal struct {
	unitCost  domain.Money
	unitPrice domain.Money
	children  []*domain.CostBreakdown
}

// Resolver walks the component/assembly graph of one catalog snapshot under one
// evaluation context. A Resolver belongs to a single roll-up call and is not safe for
// concurrent use; create one per call.
type Resolver struct {
	catalog *domain.Catalog
	evalCtx domain.EvaluationContext

	// visiting/path hold the assemblies on the current DFS path only
	visiting map[uuid.UUID]bool
	path     []uuid.UUID

	// memo caches finished assemblies for this call; safe because inputs are immutable
	memo     map[uuid.UUID]*subtotal
	memoHits int
}

// NewResolver creates a Resolver for one roll-up call
func NewResolver(catalog *domain.Catalog, evalCtx domain.EvaluationContext) *Resolver {
	return &Resolver{
		catalog:  catalog,
		evalCtx:  evalCtx,
		visiting: make(map[uuid.UUID]bool),
		memo:     make(map[uuid.UUID]*subtotal),
	}
}

// MemoHits returns how many assembly subtotals were reused instead of recomputed
func (r *Resolver) MemoHits() int { return r.memoHits }

// Resolve rolls up line into a breakdown tree.
// Any error aborts the whole roll-up; no partial tree is returned.
func (r *Resolver) Resolve(line domain.AssemblyLine) (*domain.CostBreakdown, error) {
	if err := line.Validate(); err != nil {
		return nil, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: err.Error()}
	}

	switch line.RefKind {
	case domain.RefKindComponent:
		return r.resolveComponent(line)
	case domain.RefKindAssembly:
		return r.resolveAssembly(line)
	default:
		return nil, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: "unknown ref kind " + string(line.RefKind)}
	}
}

// resolveComponent prices a leaf line.
// Logic:
//  1. Active price record as of the context date
//  2. Convert to the display currency and round (leaf unit cost)
//  3. Markup -> unit price, rounded
//  4. Extended values = unit values * line quantity
func (r *Resolver) resolveComponent(line domain.AssemblyLine) (*domain.CostBreakdown, error) {
	comp, err := r.catalog.Component(line.RefID)
	if err != nil {
		return nil, err
	}

	record, err := pricehistory.ActivePriceAt(comp.PriceHistory, r.evalCtx.AsOf)
	if err != nil {
		return nil, attachComponent(err, comp.ID)
	}

	converted, err := record.Cost.ConvertTo(r.evalCtx.DisplayCurrency, r.evalCtx.Rates)
	if err != nil {
		return nil, attachComponent(err, comp.ID)
	}
	unitCost := converted.RoundForDisplay()

	priced, err := markup.PriceFor(unitCost, markup.Line{
		Category:    comp.Category,
		ComponentID: comp.ID,
		CustomerID:  r.evalCtx.CustomerID,
	}, r.evalCtx.MarkupRules, r.evalCtx.Rates)
	if err != nil {
		return nil, err
	}
	unitPrice := priced.Price.RoundForDisplay()

	return &domain.CostBreakdown{
		RefKind:       domain.RefKindComponent,
		RefID:         comp.ID,
		Quantity:      line.Quantity,
		UnitCost:      unitCost,
		ExtendedCost:  unitCost.MultiplyByScalar(line.Quantity),
		UnitPrice:     unitPrice,
		ExtendedPrice: unitPrice.MultiplyByScalar(line.Quantity),
		PriceRecordID: record.ID,
		AppliedRuleID: priced.Rule.ID,
	}, nil
}

// resolveAssembly rolls up an assembly line.
// Logic:
//  1. Reject the id if it is already on the current path (cycle)
//  2. Reuse the memoized subtotal if this call already finished the assembly
//  3. Otherwise resolve every child, summing extended cost and price separately
//  4. Multiply the subtotal (not each leaf) by the line's own quantity
func (r *Resolver) resolveAssembly(line domain.AssemblyLine) (*domain.CostBreakdown, error) {
	id := line.RefID
	if r.visiting[id] {
		path := make([]uuid.UUID, 0, len(r.path)+1)
		path = append(path, r.path...)
		path = append(path, id)
		return nil, &domain.ResolutionError{Kind: domain.ErrCircularAssemblyReference, Path: path}
	}

	sub, ok := r.memo[id]
	if ok {
		r.memoHits++
	} else {
		var err error
		sub, err = r.rollUpAssembly(id)
		if err != nil {
			return nil, err
		}
		r.memo[id] = sub
	}

	return &domain.CostBreakdown{
		RefKind:       domain.RefKindAssembly,
		RefID:         id,
		Quantity:      line.Quantity,
		UnitCost:      sub.unitCost,
		ExtendedCost:  sub.unitCost.MultiplyByScalar(line.Quantity),
		UnitPrice:     sub.unitPrice,
		ExtendedPrice: sub.unitPrice.MultiplyByScalar(line.Quantity),
		Children:      sub.children,
	}, nil
}

// rollUpAssembly resolves the children of one assembly while it sits on the DFS path
func (r *Resolver) rollUpAssembly(id uuid.UUID) (*subtotal, error) {
	asm, err := r.catalog.Assembly(id)
	if err != nil {
		return nil, err
	}

	r.visiting[id] = true
	r.path = append(r.path, id)
	defer func() {
		delete(r.visiting, id)
		r.path = r.path[:len(r.path)-1]
	}()

	sub := &subtotal{
		unitCost:  domain.ZeroMoney(r.evalCtx.DisplayCurrency),
		unitPrice: domain.ZeroMoney(r.evalCtx.DisplayCurrency),
		children:  make([]*domain.CostBreakdown, 0, len(asm.Lines)),
	}

	for _, child := range asm.Lines {
		node, err := r.Resolve(child)
		if err != nil {
			return nil, attachAssembly(err, id)
		}

		if sub.unitCost, err = sub.unitCost.Add(node.ExtendedCost); err != nil {
			return nil, err
		}
		if sub.unitPrice, err = sub.unitPrice.Add(node.ExtendedPrice); err != nil {
			return nil, err
		}
		sub.children = append(sub.children, node)
	}

	return sub, nil
}

// attachComponent fills in the component id on resolution errors raised below a leaf
func attachComponent(err error, componentID uuid.UUID) error {
	var re *domain.ResolutionError
	if errors.As(err, &re) && re.ComponentID == uuid.Nil {
		out := *re
		out.ComponentID = componentID
		return &out
	}
	return err
}

// attachAssembly records the innermost assembly an error surfaced from
func attachAssembly(err error, assemblyID uuid.UUID) error {
	var re *domain.ResolutionError
	if errors.As(err, &re) && re.AssemblyID == uuid.Nil && !errors.Is(re.Kind, domain.ErrCircularAssemblyReference) {
		out := *re
		out.AssemblyID = assemblyID
		return &out
	}
	return err
}
