package coinbase

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK              = "ok"
	outcomeError           = "error"
	outcomeUnsupportedBase = "unsupported_base"
	outcomeUnsupportedTerm = "unsupported_term"
	outcomeRateUnavailable = "rate_unavailable"
)

// Metrics are the provider's Prometheus collectors.
// A nil *Metrics is valid and records nothing
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	QuotesTotal       *prometheus.CounterVec
	DroppedRatesTotal prometheus.Counter
	SnapshotTimestamp prometheus.Gauge
	SnapshotSize      prometheus.Gauge
}

// NewMetrics creates the provider collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinbase_requests_total",
				Help: "Total number of Coinbase API requests",
			},
			[]string{"endpoint", "outcome"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinbase_request_duration_seconds",
				Help:    "Coinbase API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinbase_quotes_total",
				Help: "Total number of exchange rate quotes, by outcome",
			},
			[]string{"outcome"},
		),

		DroppedRatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coinbase_dropped_rates_total",
				Help: "Total number of upstream rates dropped as invalid",
			},
		),

		SnapshotTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinbase_snapshot_timestamp_seconds",
				Help: "Unix time of the last successful rate refresh",
			},
		),

		SnapshotSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinbase_snapshot_rates",
				Help: "Number of rates in the current snapshot",
			},
		),
	}
}

func (m *Metrics) observeRequest(endpoint string, err error, took time.Duration) {
	if m == nil {
		return
	}

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}

	m.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

func (m *Metrics) observeQuote(err error) {
	if m == nil {
		return
	}

	m.QuotesTotal.WithLabelValues(quoteOutcome(err)).Inc()
}

func (m *Metrics) dropRates(n int) {
	if m == nil {
		return
	}

	m.DroppedRatesTotal.Add(float64(n))
}

func (m *Metrics) publishSnapshot(s *Snapshot) {
	if m == nil {
		return
	}

	m.SnapshotTimestamp.Set(float64(s.FetchedAt.Unix()))
	m.SnapshotSize.Set(float64(s.Len()))
}

// quoteOutcome maps a quote error to its metric label
func quoteOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrUnsupportedBase):
		return outcomeUnsupportedBase
	case errors.Is(err, ErrUnsupportedTerm):
		return outcomeUnsupportedTerm
	case errors.Is(err, ErrRateUnavailable):
		return outcomeRateUnavailable
	default:
		return outcomeError
	}
}
