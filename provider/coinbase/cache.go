package coinbase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sig-0/btcrates/storage/types"
)

// Snapshot is an immutable point-in-time copy of the rate table.
// A nil Snapshot is a valid, empty table
type Snapshot struct {
	FetchedAt time.Time

	rates map[types.Currency]decimal.Decimal
}

// Rate looks up the rate of the given currency (units per 1 base)
func (s *Snapshot) Rate(code types.Currency) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Decimal{}, false
	}

	rate, ok := s.rates[code]

	return rate, ok
}

// Len returns the number of rates in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}

	return len(s.rates)
}

// rateCache holds the freshest available rate table for the base currency.
// Refreshes replace the whole table with a single pointer swap
type rateCache struct {
	logger  *slog.Logger
	metrics *Metrics
	client  *client
	now     func() time.Time

	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	base   types.Currency
	maxAge time.Duration
}

// refresh fetches the current rates and publishes them as the new snapshot.
// On failure the previous snapshot is left in place.
// Concurrent calls share a single upstream request, which is detached from
// the cancellation of the caller that started it. Each caller stops waiting
// when its own context is done
func (c *rateCache) refresh(ctx context.Context) error {
	if c.fresh() {
		return nil
	}

	fetchCtx := context.WithoutCancel(ctx)

	resCh := c.group.DoChan(c.base.String(), func() (any, error) {
		rates, dropped, err := c.client.exchangeRates(fetchCtx, c.base)
		if err != nil {
			return nil, err
		}

		if dropped > 0 {
			c.logger.Warn(
				"dropped invalid rates",
				"base", c.base,
				"count", dropped,
			)

			c.metrics.dropRates(dropped)
		}

		snapshot := &Snapshot{
			FetchedAt: c.now().UTC(),
			rates:     rates,
		}

		c.current.Store(snapshot)
		c.metrics.publishSnapshot(snapshot)

		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resCh:
		return res.Err
	}
}

// fresh returns true if the current snapshot is younger than the max age
func (c *rateCache) fresh() bool {
	if c.maxAge <= 0 {
		return false // refresh on every call
	}

	snapshot := c.current.Load()
	if snapshot == nil {
		return false
	}

	return c.now().Sub(snapshot.FetchedAt) < c.maxAge
}

// snapshot returns the current snapshot, which may be nil
func (c *rateCache) snapshot() *Snapshot {
	return c.current.Load()
}
