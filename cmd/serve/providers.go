package serve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sig-0/btcrates/ingest"
	"github.com/sig-0/btcrates/provider/coinbase"
	"github.com/sig-0/btcrates/server/config"
)

var _ ingest.Provider = (*coinbase.Provider)(nil)

// newCoinbaseProvider creates the Coinbase provider from the given config.
// The currency catalog is loaded before this returns
func newCoinbaseProvider(
	ctx context.Context,
	cfg *config.Coinbase,
	logger *slog.Logger,
	metrics *coinbase.Metrics,
) (*coinbase.Provider, error) {
	if cfg == nil {
		cfg = config.DefaultCoinbaseConfig()
	}

	p, err := coinbase.New(
		ctx,
		coinbase.WithLogger(logger.With("provider", "coinbase")),
		coinbase.WithMetrics(metrics),
		coinbase.WithBaseURL(cfg.BaseURL),
		coinbase.WithTimeout(cfg.Timeout),
		coinbase.WithMaxAge(cfg.MaxAge),
		coinbase.WithInterval(cfg.Interval),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create coinbase provider: %w", err)
	}

	return p, nil
}
