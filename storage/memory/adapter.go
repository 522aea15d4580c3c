package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sig-0/btcrates/storage/types"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

var (
	errInvalidRate  = errors.New("invalid exchange rate")
	errInvalidQuery = errors.New("invalid rate query")
)

// key identifies a rate bucket. Only the latest rate per bucket is kept
type key struct {
	base, target, source, rateType string
}

// Storage is an in-memory, latest-only rate store
type Storage struct {
	data map[key]types.ExchangeRate

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[key]types.ExchangeRate),
	}
}

// SaveExchangeRate stores the rate, unless a newer one
// is already present for the same bucket
func (s *Storage) SaveExchangeRate(_ context.Context, r *types.ExchangeRate) error {
	if r == nil || r.Base == "" || r.Target == "" {
		return errInvalidRate
	}

	k := key{
		base:     r.Base.String(),
		target:   r.Target.String(),
		source:   r.Source.String(),
		rateType: r.RateType.String(),
	}

	elem := *r
	elem.AsOf = elem.AsOf.UTC()
	elem.FetchedAt = elem.FetchedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[k]
	if ok && isNewer(cur, elem) {
		return nil // out-of-order save, keep the newer rate
	}

	s.data[k] = elem

	return nil
}

// isNewer returns true if a is strictly more recent than b
func isNewer(a, b types.ExchangeRate) bool {
	if !a.AsOf.Equal(b.AsOf) {
		return a.AsOf.After(b.AsOf)
	}

	return a.FetchedAt.After(b.FetchedAt)
}

func (s *Storage) LatestRates(
	_ context.Context,
	query *types.RateQuery,
) (*types.Page[*types.ExchangeRate], error) {
	if query == nil {
		return nil, errInvalidQuery
	}

	s.mu.RLock()

	out := make([]*types.ExchangeRate, 0)

	for _, v := range s.data {
		if !matches(query, v) {
			continue
		}

		cp := v
		out = append(out, &cp)
	}

	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target.String() < out[j].Target.String()
		}

		if out[i].Source != out[j].Source {
			return out[i].Source.String() < out[j].Source.String()
		}

		return out[i].RateType.String() < out[j].RateType.String()
	})

	total := int64(len(out))
	if total == 0 {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   0,
		}, nil
	}

	lim := query.Limit
	if lim <= 0 {
		lim = defaultLimit
	}

	if lim > maxLimit {
		lim = maxLimit
	}

	off := query.Offset
	if off < 0 {
		off = 0
	}

	if off >= total {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   total,
		}, nil
	}

	start := int(off)
	end := min(start+int(lim), len(out))

	return &types.Page[*types.ExchangeRate]{
		Results: out[start:end],
		Total:   total,
	}, nil
}

// matches returns true if the rate satisfies the query filters
func matches(query *types.RateQuery, v types.ExchangeRate) bool {
	if v.Base != query.Base {
		return false
	}

	if query.Target != nil && v.Target != *query.Target {
		return false
	}

	if query.Source != nil && v.Source != *query.Source {
		return false
	}

	if query.RateType != nil && v.RateType != *query.RateType {
		return false
	}

	return true
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.source] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Source, 0, len(seen))

	for v := range seen {
		out = append(out, types.Source(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.base] = struct{}{}
		seen[k.target] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Currency, 0, len(seen))

	for v := range seen {
		out = append(out, types.Currency(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
