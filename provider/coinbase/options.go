package coinbase

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = time.Minute
)

type Option func(p *Provider)

// WithLogger specifies the logger for the provider
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithBaseURL specifies the Coinbase API root.
// Defaults to https://api.coinbase.com/v2
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = u
	}
}

// WithTimeout specifies the per-request timeout of the default HTTP client.
// Defaults to 10s. Ignored when a custom client is given with WithHTTPClient
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// WithHTTPClient specifies the HTTP client used for upstream calls
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithMaxAge specifies how long a rate snapshot is served before a query
// triggers a new refresh. Defaults to 0, which refreshes on every query
func WithMaxAge(d time.Duration) Option {
	return func(p *Provider) {
		p.maxAge = d
	}
}

// WithInterval specifies the ingest interval reported by Interval.
// Defaults to 1m
func WithInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.interval = d
	}
}

// WithMetrics specifies the collectors the provider reports to
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// withClock overrides the time source
func withClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}
