package rollup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/metrics"
	"github.com/simaogato/quoteflow-backend/internal/usecase/catalog"
)

// defaultMaxParallel bounds how many quote lines are priced at once
const defaultMaxParallel = 8

// EvaluationInput holds the per-request pricing inputs supplied by the caller
type EvaluationInput struct {
	AsOf            time.Time
	DisplayCurrency domain.Currency
	Rates           domain.RateTable
	MarkupRules     []domain.MarkupRule // nil: use the active rules from RuleRepo
	CustomerID      *uuid.UUID
}

// ComputeInput represents the input for rolling up a single line
type ComputeInput struct {
	Root       domain.AssemblyLine
	Evaluation EvaluationInput
}

// QuoteInput represents the input for pricing every line of a quotation
type QuoteInput struct {
	Lines      []domain.AssemblyLine
	Evaluation EvaluationInput
}

// QuoteResult holds per-line breakdowns (full precision) and display-rounded totals
type QuoteResult struct {
	Lines      []*domain.CostBreakdown
	TotalCost  domain.Money
	TotalPrice domain.Money
}

// RollupService loads catalog snapshots and runs the pricing engine on them
type RollupService struct {
	Loader      *catalog.Loader
	RuleRepo    domain.MarkupRuleRepository
	Metrics     *metrics.Registry
	Logger      *zap.Logger
	MaxParallel int
}

// NewRollupService creates a new RollupService instance
func NewRollupService(
	componentRepo domain.ComponentRepository,
	assemblyRepo domain.AssemblyRepository,
	ruleRepo domain.MarkupRuleRepository,
	reg *metrics.Registry,
	logger *zap.Logger,
) *RollupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupService{
		Loader:      catalog.NewLoader(componentRepo, assemblyRepo),
		RuleRepo:    ruleRepo,
		Metrics:     reg,
		Logger:      logger,
		MaxParallel: defaultMaxParallel,
	}
}

// Compute rolls up one line.
// Logic:
//  1. Build the evaluation context (rules come from RuleRepo when the input has none)
//  2. Load a snapshot of everything reachable from the root
//  3. Run ComputeCost on the snapshot
func (s *RollupService) Compute(ctx context.Context, input ComputeInput) (*domain.CostBreakdown, error) {
	evalCtx, err := s.evaluationContext(ctx, input.Evaluation)
	if err != nil {
		return nil, err
	}
	return s.computeLine(ctx, input.Root, evalCtx)
}

// PriceQuote prices every quotation line concurrently.
// Each line gets its own snapshot and its own roll-up call; the first error cancels the
// rest and the quote is rejected as a whole.
func (s *RollupService) PriceQuote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	if len(input.Lines) == 0 {
		return nil, &domain.ResolutionError{Kind: domain.ErrInvalidInput, Detail: "quote must have at least one line"}
	}

	evalCtx, err := s.evaluationContext(ctx, input.Evaluation)
	if err != nil {
		return nil, err
	}

	results := make([]*domain.CostBreakdown, len(input.Lines))
	g, gctx := errgroup.WithContext(ctx)
	if s.MaxParallel > 0 {
		g.SetLimit(s.MaxParallel)
	}
	for i, line := range input.Lines {
		i, line := i, line
		g.Go(func() error {
			breakdown, err := s.computeLine(gctx, line, evalCtx)
			if err != nil {
				return fmt.Errorf("quote line %d: %w", i+1, err)
			}
			results[i] = breakdown
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalCost := domain.ZeroMoney(evalCtx.DisplayCurrency)
	totalPrice := domain.ZeroMoney(evalCtx.DisplayCurrency)
	for _, breakdown := range results {
		if totalCost, err = totalCost.Add(breakdown.ExtendedCost); err != nil {
			return nil, err
		}
		if totalPrice, err = totalPrice.Add(breakdown.ExtendedPrice); err != nil {
			return nil, err
		}
	}

	s.Metrics.IncQuotesPriced()
	s.Logger.Info("quote priced",
		zap.Int("lines", len(results)),
		zap.String("total_cost", totalCost.RoundForDisplay().String()),
		zap.String("total_price", totalPrice.RoundForDisplay().String()),
	)

	return &QuoteResult{
		Lines:      results,
		TotalCost:  totalCost.RoundForDisplay(),
		TotalPrice: totalPrice.RoundForDisplay(),
	}, nil
}

// computeLine loads the snapshot for one root and rolls it up
func (s *RollupService) computeLine(ctx context.Context, root domain.AssemblyLine, evalCtx domain.EvaluationContext) (*domain.CostBreakdown, error) {
	started := time.Now()

	snapshot, err := s.Loader.LoadSubgraph(ctx, root)
	if err != nil {
		s.Metrics.ObserveRollup(started, err)
		s.logFailure(root, err)
		return nil, err
	}

	breakdown, memoHits, err := computeCost(snapshot, root, evalCtx)
	s.Metrics.ObserveRollup(started, err)
	if err != nil {
		s.logFailure(root, err)
		return nil, err
	}
	s.Metrics.AddMemoHits(memoHits)

	s.Logger.Debug("roll-up computed",
		zap.String("ref_kind", string(root.RefKind)),
		zap.String("ref_id", root.RefID.String()),
		zap.Int("components", len(snapshot.Components)),
		zap.Int("assemblies", len(snapshot.Assemblies)),
		zap.Int("memo_hits", memoHits),
		zap.Duration("elapsed", time.Since(started)),
	)
	return breakdown, nil
}

// evaluationContext turns the request input into an EvaluationContext
func (s *RollupService) evaluationContext(ctx context.Context, input EvaluationInput) (domain.EvaluationContext, error) {
	rules := input.MarkupRules
	if rules == nil {
		if s.RuleRepo == nil {
			return domain.EvaluationContext{}, errors.New("no markup rules supplied and no rule repository configured")
		}
		active, err := s.RuleRepo.ListActive(ctx)
		if err != nil {
			return domain.EvaluationContext{}, fmt.Errorf("failed to load markup rules: %w", err)
		}
		rules = active
	}

	return domain.EvaluationContext{
		AsOf:            input.AsOf,
		DisplayCurrency: input.DisplayCurrency,
		Rates:           input.Rates,
		MarkupRules:     rules,
		CustomerID:      input.CustomerID,
	}, nil
}

// logFailure logs resolution errors as warnings (bad data) and anything else as errors
func (s *RollupService) logFailure(root domain.AssemblyLine, err error) {
	fields := []zap.Field{
		zap.String("ref_kind", string(root.RefKind)),
		zap.String("ref_id", root.RefID.String()),
		zap.String("reason", metrics.FailureReason(err)),
		zap.Error(err),
	}

	var re *domain.ResolutionError
	if errors.As(err, &re) {
		s.Logger.Warn("roll-up rejected", fields...)
		return
	}
	s.Logger.Error("roll-up failed", fields...)
}
