package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/usecase/pricebook"
	"github.com/simaogato/quoteflow-backend/internal/usecase/rollup"
)

// Server implements the PricingService gRPC server
type Server struct {
	RollupService    *rollup.RollupService
	PriceBookService *pricebook.PriceBookService
}

var _ PricingServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(rollupService *rollup.RollupService, priceBookService *pricebook.PriceBookService) *Server {
	return &Server{
		RollupService:    rollupService,
		PriceBookService: priceBookService,
	}
}

// ComputeCost handles the ComputeCost RPC.
// Request: {"root": {kind, id, quantity}, "as_of", "display_currency", "rates", "rules"?, "customer_id"?}
func (s *Server) ComputeCost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	root, err := parseLine(f.object("root"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "root: %v", err)
	}

	evaluation, err := parseEvaluation(f)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	breakdown, err := s.RollupService.Compute(ctx, rollup.ComputeInput{
		Root:       root,
		Evaluation: evaluation,
	})
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"breakdown": breakdownValue(breakdown),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode breakdown: %v", err)
	}
	return resp, nil
}

// PriceQuote handles the PriceQuote RPC.
// Request: {"lines": [{kind, id, quantity}, ...], plus the ComputeCost evaluation fields}
func (s *Server) PriceQuote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	rawLines := f.list("lines")
	lines := make([]domain.AssemblyLine, 0, len(rawLines))
	for i, v := range rawLines {
		line, err := parseLine(fieldsOf(v.GetStructValue()))
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "lines[%d]: %v", i, err)
		}
		lines = append(lines, line)
	}

	evaluation, err := parseEvaluation(f)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.RollupService.PriceQuote(ctx, rollup.QuoteInput{
		Lines:      lines,
		Evaluation: evaluation,
	})
	if err != nil {
		return nil, mapError(err)
	}

	outLines := make([]interface{}, 0, len(result.Lines))
	for _, breakdown := range result.Lines {
		outLines = append(outLines, breakdownValue(breakdown))
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"lines":       outLines,
		"currency":    string(result.TotalCost.Currency()),
		"total_cost":  result.TotalCost.Amount().StringFixed(domain.DisplayPlaces),
		"total_price": result.TotalPrice.Amount().StringFixed(domain.DisplayPlaces),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode quote: %v", err)
	}
	return resp, nil
}

// RecordPrice handles the RecordPrice RPC
func (s *Server) RecordPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(req)

	componentID, err := f.uuid("component_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	amount, err := f.decimal("amount")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	input := pricebook.RecordPriceInput{
		ComponentID: componentID,
		Amount:      amount,
		CloseOpen:   f.boolean("close_open"),
	}

	// Optional: defaults to the component's base currency
	if f.str("currency") != "" {
		if input.Currency, err = f.currency("currency"); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}

	// Optional: defaults to now
	if f.str("valid_from") != "" {
		if input.ValidFrom, err = f.time("valid_from"); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
	}

	if input.ValidTo, err = f.optionalTime("valid_to"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	sourceRef, err := f.optionalUUID("source_ref")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if sourceRef != nil {
		input.SourceRef = *sourceRef
	}

	record, err := s.PriceBookService.RecordPrice(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"price_record": priceRecordValue(record),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode price record: %v", err)
	}
	return resp, nil
}

// CurrentPrice handles the CurrentPrice RPC
func (s *Server) CurrentPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	componentID, err := fieldsOf(req).uuid("component_id")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	record, err := s.PriceBookService.CurrentPrice(ctx, componentID)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"price_record": priceRecordValue(record),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode price record: %v", err)
	}
	return resp, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidMarkupRules):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrUnknownReference), errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	}

	// The catalog or the request cannot be resolved as it stands
	var re *domain.ResolutionError
	if errors.As(err, &re) {
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	}

	// Map plain validation errors to InvalidArgument
	if strings.Contains(errorMsg, "invalid") ||
		strings.Contains(errorMsg, "cannot be negative") ||
		strings.Contains(errorMsg, "must be positive") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
