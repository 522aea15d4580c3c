package provider

import (
	"context"
	"errors"

	"github.com/sig-0/btcrates/storage/types"
)

// Errors returned by ExchangeRate, matched with errors.Is
var (
	ErrUnsupportedBase = errors.New("base currency not supported")
	ErrUnsupportedTerm = errors.New("term currency not supported")
	ErrRateUnavailable = errors.New("rate not available")

	// ErrCatalogUnavailable accompanies ErrUnsupportedTerm when the
	// provider could not learn which currencies it supports
	ErrCatalogUnavailable = errors.New("currency catalog unavailable")
)

// RateProvider is a pluggable, on-demand exchange rate source
type RateProvider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Currencies lists the target currencies the provider can quote
	Currencies() []types.Currency

	// ExchangeRate quotes the given pair, fetching upstream data as needed
	ExchangeRate(context.Context, types.Pair) (*types.ExchangeRate, error)
}
