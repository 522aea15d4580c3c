package storage

import (
	"context"

	"github.com/sig-0/btcrates/storage/types"
)

// Storage is an abstraction over the latest known exchange rates.
// Only the most recent rate per (base, target, source, rate type) is kept
type Storage interface {
	// SaveExchangeRate saves the given exchange rate, replacing
	// any older rate for the same pair, source and rate type
	SaveExchangeRate(context.Context, *types.ExchangeRate) error

	// LatestRates fetches the latest rates matching the query.
	// The query is required
	LatestRates(context.Context, *types.RateQuery) (*types.Page[*types.ExchangeRate], error)

	// ListSources lists all present sources for fx rates
	ListSources(context.Context) ([]types.Source, error)

	// ListCurrencies lists all currencies present
	ListCurrencies(context.Context) ([]types.Currency, error)
}
