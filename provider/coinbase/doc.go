// Package coinbase provides the Coinbase exchange rate provider for Bitcoin (BTC).
//
// # Provider
//
// Source: "Coinbase"
// API: https://api.coinbase.com/v2
// Base: BTC (fixed)
// Rate type: DEFERRED
//
// # Currency catalog
//
// The supported term currencies are fetched once, when the provider is created:
//
//	GET /currencies -> {"data": [{"id": "USD", ...}, ...]}
//
// Only the id of each entry is used. If the catalog cannot be loaded, the
// provider is still created, but every term currency is rejected with
// ErrUnsupportedTerm, with ErrCatalogUnavailable attached as the cause.
//
// # Rate cache
//
// Rates relative to BTC are fetched on demand:
//
//	GET /exchange-rates?currency=BTC -> {"data": {"currency": "BTC", "rates": {"USD": "65000.12", ...}}}
//
// Rates may be JSON strings or numbers, and are parsed as exact decimals.
// Entries that are not finite numbers are dropped. Each successful refresh
// replaces the whole rate table, a failed one keeps the previous table.
// Concurrent refreshes share a single upstream request.
//
// By default every quote triggers a refresh. WithMaxAge lets quotes reuse
// a table younger than the given age.
//
// # Quotes
//
// ExchangeRate validates, in order:
//   - the base is BTC (ErrUnsupportedBase)
//   - the term is in the catalog (ErrUnsupportedTerm)
//   - a rate for the term is in the table, after a refresh attempt (ErrRateUnavailable)
//
// Rejections are returned as *ConversionError, which matches both its kind
// and its cause through errors.Is.
package coinbase
