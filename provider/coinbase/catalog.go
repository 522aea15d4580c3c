package coinbase

import (
	"context"
	"sort"

	"github.com/sig-0/btcrates/storage/types"
)

// Catalog is the set of currencies Coinbase can quote against the base currency.
// It is populated once, at provider construction, and never changes afterwards
type Catalog struct {
	codes map[types.Currency]struct{}
	err   error // the load failure, if any
}

// newCatalog creates a populated catalog from the given codes
func newCatalog(codes []types.Currency) *Catalog {
	c := &Catalog{
		codes: make(map[types.Currency]struct{}, len(codes)),
	}

	for _, code := range codes {
		c.codes[code] = struct{}{}
	}

	return c
}

// loadCatalog fetches the currency list once. A failed load yields an empty
// catalog that remembers the failure, so every term currency is reported as unsupported
func loadCatalog(ctx context.Context, c *client) *Catalog {
	codes, err := c.currencies(ctx)
	if err != nil {
		return &Catalog{
			codes: make(map[types.Currency]struct{}),
			err:   err,
		}
	}

	return newCatalog(codes)
}

// IsSupported returns true if the currency can be quoted
func (c *Catalog) IsSupported(code types.Currency) bool {
	_, ok := c.codes[code]

	return ok
}

// Currencies returns the supported currencies, sorted
func (c *Catalog) Currencies() []types.Currency {
	out := make([]types.Currency, 0, len(c.codes))

	for code := range c.codes {
		out = append(out, code)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})

	return out
}

// Len returns the number of supported currencies
func (c *Catalog) Len() int {
	return len(c.codes)
}

// Err returns the error encountered while loading the catalog, if any
func (c *Catalog) Err() error {
	return c.err
}
