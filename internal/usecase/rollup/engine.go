package rollup

import (
	"sort"

	"github.com/google/uuid"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/usecase/costgraph"
)

// ComputeCost is the single entry point of the pricing engine.
// Logic:
//  1. Validate the evaluation context and the root line
//  2. Scan the referenced subgraph for the currency of every active price record and
//     fail with MissingExchangeRate before any traversal if one cannot be converted
//  3. Roll up the tree with a fresh cost graph resolver (empty visiting set, empty memo)
//
// The call is pure: catalog and context are only read, and the returned tree is new.
func ComputeCost(catalog *domain.Catalog, root domain.AssemblyLine, evalCtx domain.EvaluationContext) (*domain.CostBreakdown, error) {
	breakdown, _, err := computeCost(catalog, root, evalCtx)
	return breakdown, err
}

// computeCost is ComputeCost plus the number of memoized subtotals that were reused
func computeCost(catalog *domain.Catalog, root domain.AssemblyLine, evalCtx domain.EvaluationContext) (*domain.CostBreakdown, int, error) {
	if err := evalCtx.Validate(); err != nil {
		return nil, 0, err
	}
	if err := root.Validate(); err != nil {
		return nil, 0, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: err.Error()}
	}

	for _, currency := range referencedCurrencies(catalog, root, evalCtx) {
		if _, ok := evalCtx.Rates.Rate(currency, evalCtx.DisplayCurrency); !ok {
			return nil, 0, &domain.ResolutionError{
				Kind: domain.ErrMissingExchangeRate,
				From: currency,
				To:   evalCtx.DisplayCurrency,
			}
		}
	}

	resolver := costgraph.NewResolver(catalog, evalCtx)
	breakdown, err := resolver.Resolve(root)
	if err != nil {
		return nil, 0, err
	}
	return breakdown, resolver.MemoHits(), nil
}

// referencedCurrencies collects, in a stable order, the currency of every price record
// active at evalCtx.AsOf for components reachable from root.
// It uses a global visited set so cyclic data still terminates; reporting the cycle is
// left to the resolver. Unknown ids are skipped here for the same reason.
func referencedCurrencies(catalog *domain.Catalog, root domain.AssemblyLine, evalCtx domain.EvaluationContext) []domain.Currency {
	seen := make(map[domain.Currency]bool)
	visitedAssemblies := make(map[uuid.UUID]bool)
	visitedComponents := make(map[uuid.UUID]bool)

	stack := []domain.AssemblyLine{root}
	for len(stack) > 0 {
		line := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch line.RefKind {
		case domain.RefKindComponent:
			if visitedComponents[line.RefID] {
				continue
			}
			visitedComponents[line.RefID] = true
			comp, ok := catalog.Components[line.RefID]
			if !ok {
				continue
			}
			for _, record := range comp.PriceHistory {
				if record.Contains(evalCtx.AsOf) {
					seen[record.Cost.Currency()] = true
				}
			}
		case domain.RefKindAssembly:
			if visitedAssemblies[line.RefID] {
				continue
			}
			visitedAssemblies[line.RefID] = true
			asm, ok := catalog.Assemblies[line.RefID]
			if !ok {
				continue
			}
			stack = append(stack, asm.Lines...)
		}
	}

	out := make([]domain.Currency, 0, len(seen))
	for currency := range seen {
		out = append(out, currency)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
