package server

import (
	"context"

	"github.com/sig-0/btcrates/storage/types"
)

type (
	currenciesDelegate   func() []types.Currency
	exchangeRateDelegate func(context.Context, types.Pair) (*types.ExchangeRate, error)
)

type mockProvider struct {
	currenciesFn   currenciesDelegate
	exchangeRateFn exchangeRateDelegate
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Currencies() []types.Currency {
	if m.currenciesFn != nil {
		return m.currenciesFn()
	}

	return nil
}

func (m *mockProvider) ExchangeRate(ctx context.Context, pair types.Pair) (*types.ExchangeRate, error) {
	if m.exchangeRateFn != nil {
		return m.exchangeRateFn(ctx, pair)
	}

	return nil, nil
}
