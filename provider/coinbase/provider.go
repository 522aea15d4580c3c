package coinbase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sig-0/btcrates/provider"
	"github.com/sig-0/btcrates/provider/currencies"
	"github.com/sig-0/btcrates/storage/types"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ provider.RateProvider = (*Provider)(nil)

// Provider quotes BTC exchange rates sourced from the Coinbase public API
type Provider struct {
	logger     *slog.Logger
	metrics    *Metrics
	httpClient *http.Client
	now        func() time.Time

	catalog *Catalog
	cache   *rateCache

	baseURL  string
	timeout  time.Duration
	maxAge   time.Duration
	interval time.Duration
}

// New creates a new Coinbase provider.
// The currency catalog is loaded once, before New returns. A failed load
// is logged and leaves the catalog empty, so every term is rejected
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	p := &Provider{
		logger:   noopLogger,
		now:      time.Now,
		baseURL:  DefaultBaseURL,
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
	}

	// Apply the options
	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid provider configuration, %w", err)
	}

	if p.httpClient == nil {
		p.httpClient = &http.Client{
			Timeout: p.timeout,
		}
	}

	c := &client{
		http:    p.httpClient,
		metrics: p.metrics,
		baseURL: strings.TrimRight(p.baseURL, "/"),
	}

	p.catalog = loadCatalog(ctx, c)
	if err := p.catalog.Err(); err != nil {
		p.logger.Error(
			"unable to load currency catalog",
			"err", err,
		)
	} else {
		p.logger.Info(
			"currency catalog loaded",
			"currencies", p.catalog.Len(),
		)
	}

	p.cache = &rateCache{
		logger:  p.logger,
		metrics: p.metrics,
		client:  c,
		now:     p.now,
		base:    currencies.BTC,
		maxAge:  p.maxAge,
	}

	return p, nil
}

func (p *Provider) validate() error {
	u, err := url.Parse(p.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errInvalidBaseURL, p.baseURL)
	}

	if p.timeout <= 0 {
		return fmt.Errorf("%w: %s", errInvalidTimeout, p.timeout)
	}

	if p.interval <= 0 {
		return fmt.Errorf("%w: %s", errInvalidInterval, p.interval)
	}

	if p.maxAge < 0 {
		return fmt.Errorf("%w: %s", errInvalidMaxAge, p.maxAge)
	}

	return nil
}

func (p *Provider) Name() string {
	return "Coinbase"
}

func (p *Provider) Description() string {
	return "Coinbase - Bitcoin exchange rate provider"
}

func (p *Provider) Source() types.Source {
	return types.SourceCoinbase
}

// Base returns the fixed base currency of every quote
func (p *Provider) Base() types.Currency {
	return currencies.BTC
}

func (p *Provider) Interval() time.Duration {
	return p.interval
}

// Catalog returns the currency catalog loaded at construction
func (p *Provider) Catalog() *Catalog {
	return p.catalog
}

// Currencies returns the term currencies the provider can quote
func (p *Provider) Currencies() []types.Currency {
	return p.catalog.Currencies()
}

// ExchangeRate quotes 1 BTC in the pair's target currency.
// The base is checked before the target, and the rates are refreshed only
// once both are valid. A failed refresh is logged, and the previous rates
// (if any) are used
func (p *Provider) ExchangeRate(ctx context.Context, pair types.Pair) (rate *types.ExchangeRate, err error) {
	defer func() {
		p.metrics.observeQuote(err)
	}()

	if pair.Base != currencies.BTC {
		return nil, &ConversionError{
			Err:    ErrUnsupportedBase,
			Base:   pair.Base,
			Target: pair.Target,
		}
	}

	if !p.catalog.IsSupported(pair.Target) {
		return nil, &ConversionError{
			Err:    ErrUnsupportedTerm,
			Cause:  p.catalogCause(),
			Base:   pair.Base,
			Target: pair.Target,
		}
	}

	refreshErr := p.cache.refresh(ctx)
	if refreshErr != nil {
		p.logger.Error(
			"unable to refresh exchange rates",
			"base", pair.Base,
			"err", refreshErr,
		)
	}

	snapshot := p.cache.snapshot()

	value, ok := snapshot.Rate(pair.Target)
	if !ok {
		return nil, &ConversionError{
			Err:    ErrRateUnavailable,
			Cause:  refreshErr,
			Base:   pair.Base,
			Target: pair.Target,
		}
	}

	return p.exchangeRate(snapshot, pair.Target, value.InexactFloat64()), nil
}

// Fetch refreshes the rates and returns one exchange rate for every catalog
// currency present in the snapshot. Unlike ExchangeRate, refresh failures are returned
func (p *Provider) Fetch(ctx context.Context) ([]*types.ExchangeRate, error) {
	if err := p.catalogCause(); err != nil {
		return nil, err
	}

	if err := p.cache.refresh(ctx); err != nil {
		return nil, fmt.Errorf("unable to refresh exchange rates: %w", err)
	}

	var (
		snapshot = p.cache.snapshot()
		codes    = p.catalog.Currencies()
		out      = make([]*types.ExchangeRate, 0, len(codes))
	)

	for _, code := range codes {
		value, ok := snapshot.Rate(code)
		if !ok {
			continue
		}

		out = append(out, p.exchangeRate(snapshot, code, value.InexactFloat64()))
	}

	return out, nil
}

func (p *Provider) exchangeRate(snapshot *Snapshot, target types.Currency, value float64) *types.ExchangeRate {
	return &types.ExchangeRate{
		AsOf:      snapshot.FetchedAt,
		FetchedAt: snapshot.FetchedAt,
		Base:      currencies.BTC,
		Target:    target,
		RateType:  types.RateTypeDEFERRED,
		Source:    types.SourceCoinbase,
		Rate:      value,
	}
}

// catalogCause returns the catalog load failure wrapped as ErrCatalogUnavailable, if any
func (p *Provider) catalogCause() error {
	err := p.catalog.Err()
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
}
