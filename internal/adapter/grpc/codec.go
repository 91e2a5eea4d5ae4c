package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/quoteflow-backend/internal/domain"
	"github.com/simaogato/quoteflow-backend/internal/usecase/rollup"
)

const dateLayout = "2006-01-02"

// fields wraps a Struct for typed field access
type fields map[string]*structpb.Value

func fieldsOf(s *structpb.Struct) fields {
	if s == nil {
		return fields{}
	}
	return s.GetFields()
}

func (f fields) has(key string) bool {
	v, ok := f[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (f fields) str(key string) string {
	return strings.TrimSpace(f[key].GetStringValue())
}

func (f fields) boolean(key string) bool {
	return f[key].GetBoolValue()
}

func (f fields) object(key string) fields {
	return fieldsOf(f[key].GetStructValue())
}

func (f fields) list(key string) []*structpb.Value {
	return f[key].GetListValue().GetValues()
}

// decimal accepts either a string ("12.50") or a JSON number
func (f fields) decimal(key string) (decimal.Decimal, error) {
	v, ok := f[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %v", key, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, fmt.Errorf("invalid %s format", key)
	}
}

func (f fields) uuid(key string) (uuid.UUID, error) {
	id, err := uuid.Parse(f.str(key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format: %v", key, err)
	}
	return id, nil
}

func (f fields) optionalUUID(key string) (*uuid.UUID, error) {
	if f.str(key) == "" {
		return nil, nil
	}
	id, err := f.uuid(key)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// time accepts a date ("2024-06-01") or an RFC3339 timestamp
func (f fields) time(key string) (time.Time, error) {
	raw := f.str(key)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: expected YYYY-MM-DD or RFC3339", key)
	}
	return t, nil
}

func (f fields) optionalTime(key string) (*time.Time, error) {
	if f.str(key) == "" {
		return nil, nil
	}
	t, err := f.time(key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (f fields) currency(key string) (domain.Currency, error) {
	return domain.ParseCurrency(strings.ToUpper(f.str(key)))
}

// parseLine decodes {"kind": "ASSEMBLY", "id": "...", "quantity": "3"}
func parseLine(f fields) (domain.AssemblyLine, error) {
	kind := domain.RefKind(strings.ToUpper(f.str("kind")))
	if kind != domain.RefKindComponent && kind != domain.RefKindAssembly {
		return domain.AssemblyLine{}, fmt.Errorf("invalid kind %q: must be COMPONENT or ASSEMBLY", f.str("kind"))
	}
	id, err := f.uuid("id")
	if err != nil {
		return domain.AssemblyLine{}, err
	}
	quantity := decimal.NewFromInt(1)
	if f.has("quantity") {
		if quantity, err = f.decimal("quantity"); err != nil {
			return domain.AssemblyLine{}, err
		}
	}
	return domain.AssemblyLine{RefKind: kind, RefID: id, Quantity: quantity}, nil
}

// parseEvaluation decodes the shared evaluation inputs of ComputeCost and PriceQuote.
// A missing "rules" key means "use the stored active rules".
func parseEvaluation(f fields) (rollup.EvaluationInput, error) {
	var input rollup.EvaluationInput
	var err error

	if input.AsOf, err = f.time("as_of"); err != nil {
		return input, err
	}
	if input.DisplayCurrency, err = f.currency("display_currency"); err != nil {
		return input, err
	}
	if input.CustomerID, err = f.optionalUUID("customer_id"); err != nil {
		return input, err
	}

	input.Rates = domain.NewRateTable()
	for i, v := range f.list("rates") {
		rf := fieldsOf(v.GetStructValue())
		from, err := rf.currency("from")
		if err != nil {
			return input, fmt.Errorf("rates[%d]: %w", i, err)
		}
		to, err := rf.currency("to")
		if err != nil {
			return input, fmt.Errorf("rates[%d]: %w", i, err)
		}
		rate, err := rf.decimal("rate")
		if err != nil {
			return input, fmt.Errorf("rates[%d]: %w", i, err)
		}
		input.Rates = input.Rates.With(from, to, rate)
	}

	if f.has("rules") {
		input.MarkupRules = make([]domain.MarkupRule, 0)
		for i, v := range f.list("rules") {
			rule, err := parseRule(fieldsOf(v.GetStructValue()))
			if err != nil {
				return input, fmt.Errorf("rules[%d]: %w", i, err)
			}
			input.MarkupRules = append(input.MarkupRules, rule)
		}
	}

	return input, nil
}

// parseRule decodes one markup rule
func parseRule(f fields) (domain.MarkupRule, error) {
	rule := domain.MarkupRule{
		ID:       uuid.New(),
		Scope:    domain.MarkupScope(strings.ToUpper(f.str("scope"))),
		Category: f.str("category"),
		Kind:     domain.MarkupKind(strings.ToUpper(f.str("kind"))),
	}
	if f.str("id") != "" {
		id, err := f.uuid("id")
		if err != nil {
			return rule, err
		}
		rule.ID = id
	}
	if f.str("target_id") != "" {
		target, err := f.uuid("target_id")
		if err != nil {
			return rule, err
		}
		rule.TargetID = target
	}

	switch rule.Kind {
	case domain.MarkupKindPercentage:
		percent, err := f.decimal("percent")
		if err != nil {
			return rule, err
		}
		rule.Percent = percent
	case domain.MarkupKindFixed:
		amount, err := f.decimal("amount")
		if err != nil {
			return rule, err
		}
		currency, err := f.currency("currency")
		if err != nil {
			return rule, err
		}
		rule.Amount = domain.NewMoney(amount, currency)
	default:
		return rule, fmt.Errorf("invalid kind %q: must be PERCENTAGE or FIXED", f.str("kind"))
	}
	return rule, nil
}

// breakdownValue renders a breakdown tree at display precision
func breakdownValue(b *domain.CostBreakdown) map[string]interface{} {
	display := b.ForDisplay()
	return breakdownNode(display)
}

func breakdownNode(b *domain.CostBreakdown) map[string]interface{} {
	node := map[string]interface{}{
		"kind":           string(b.RefKind),
		"id":             b.RefID.String(),
		"quantity":       b.Quantity.String(),
		"currency":       string(b.UnitCost.Currency()),
		"unit_cost":      b.UnitCost.Amount().StringFixed(domain.DisplayPlaces),
		"extended_cost":  b.ExtendedCost.Amount().StringFixed(domain.DisplayPlaces),
		"unit_price":     b.UnitPrice.Amount().StringFixed(domain.DisplayPlaces),
		"extended_price": b.ExtendedPrice.Amount().StringFixed(domain.DisplayPlaces),
	}
	if b.IsLeaf() {
		node["price_record_id"] = b.PriceRecordID.String()
		node["applied_rule_id"] = b.AppliedRuleID.String()
	}

	children := make([]interface{}, 0, len(b.Children))
	for _, child := range b.Children {
		children = append(children, breakdownNode(child))
	}
	node["children"] = children
	return node
}

// priceRecordValue renders a price record
func priceRecordValue(r *domain.PriceRecord) map[string]interface{} {
	out := map[string]interface{}{
		"id":         r.ID.String(),
		"cost":       r.Cost.Amount().String(),
		"currency":   string(r.Cost.Currency()),
		"valid_from": r.ValidFrom.UTC().Format(time.RFC3339),
		"valid_to":   nil,
	}
	if r.ValidTo != nil {
		out["valid_to"] = r.ValidTo.UTC().Format(time.RFC3339)
	}
	if r.SourceRef != uuid.Nil {
		out["source_ref"] = r.SourceRef.String()
	}
	return out
}
