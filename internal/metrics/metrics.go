package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simaogato/quoteflow-backend/internal/domain"
)

// Registry holds the roll-up metrics. A nil *Registry is valid and records nothing.
type Registry struct {
	reg            *prometheus.Registry
	Rollups        prometheus.Counter
	RollupFailures *prometheus.CounterVec
	RollupLatency  prometheus.Histogram
	MemoHits       prometheus.Counter
	QuotesPriced   prometheus.Counter
	PricesRecorded prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rollups := prometheus.NewCounter(prometheus.CounterOpts{Name: "quoteflow_rollups_total"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "quoteflow_rollup_failures_total"}, []string{"reason"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "quoteflow_rollup_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	memoHits := prometheus.NewCounter(prometheus.CounterOpts{Name: "quoteflow_rollup_memo_hits_total"})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{Name: "quoteflow_quotes_priced_total"})
	prices := prometheus.NewCounter(prometheus.CounterOpts{Name: "quoteflow_price_records_appended_total"})

	r.MustRegister(rollups, failures, latency, memoHits, quotes, prices)
	return &Registry{
		reg:            r,
		Rollups:        rollups,
		RollupFailures: failures,
		RollupLatency:  latency,
		MemoHits:       memoHits,
		QuotesPriced:   quotes,
		PricesRecorded: prices,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveRollup records one finished roll-up
func (r *Registry) ObserveRollup(started time.Time, err error) {
	if r == nil {
		return
	}
	r.Rollups.Inc()
	r.RollupLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		r.RollupFailures.WithLabelValues(FailureReason(err)).Inc()
	}
}

// AddMemoHits records reused assembly subtotals
func (r *Registry) AddMemoHits(n int) {
	if r == nil || n == 0 {
		return
	}
	r.MemoHits.Add(float64(n))
}

// IncQuotesPriced records one fully priced quotation
func (r *Registry) IncQuotesPriced() {
	if r == nil {
		return
	}
	r.QuotesPriced.Inc()
}

// IncPricesRecorded records one appended price record
func (r *Registry) IncPricesRecorded() {
	if r == nil {
		return
	}
	r.PricesRecorded.Inc()
}

// FailureReason maps an error to a low-cardinality label value
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoActivePrice):
		return "no_active_price"
	case errors.Is(err, domain.ErrOverlappingPriceWindows):
		return "overlapping_price_windows"
	case errors.Is(err, domain.ErrCircularAssemblyReference):
		return "circular_assembly_reference"
	case errors.Is(err, domain.ErrMissingExchangeRate):
		return "missing_exchange_rate"
	case errors.Is(err, domain.ErrNoMarkupRuleApplicable):
		return "no_markup_rule_applicable"
	case errors.Is(err, domain.ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(err, domain.ErrInvalidMarkupRules), errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
