package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sig-0/btcrates/storage/types"
)

const (
	DefaultBaseURL = "https://api.coinbase.com/v2"

	endpointCurrencies    = "currencies"
	endpointExchangeRates = "exchange-rates"

	maxResponseSize = 4 << 20 // 4 MiB
)

// currenciesResponse is the /currencies response shape.
// Only the id of each element is consumed
type currenciesResponse struct {
	Data json.RawMessage `json:"data"`
}

type currencyEntry struct {
	ID string `json:"id"`
}

// exchangeRatesResponse is the /exchange-rates response shape
type exchangeRatesResponse struct {
	Data *struct {
		Currency string                     `json:"currency"`
		Rates    map[string]json.RawMessage `json:"rates"`
	} `json:"data"`
}

// client is a thin Coinbase v2 REST client
type client struct {
	http    *http.Client
	metrics *Metrics
	baseURL string
}

// currencies fetches the currency codes Coinbase can quote
func (c *client) currencies(ctx context.Context) ([]types.Currency, error) {
	var resp currenciesResponse
	if err := c.get(ctx, endpointCurrencies, nil, &resp); err != nil {
		return nil, err
	}

	if isJSONNull(resp.Data) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	var entries []currencyEntry
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		return nil, fmt.Errorf("%w: data is not a currency list: %w", ErrMalformedResponse, err)
	}

	codes := make([]types.Currency, 0, len(entries))

	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}

		codes = append(codes, types.Currency(entry.ID))
	}

	return codes, nil
}

// exchangeRates fetches the current rates for the given base currency.
// Entries that are not finite decimals are dropped, and their count is returned
func (c *client) exchangeRates(
	ctx context.Context,
	base types.Currency,
) (map[types.Currency]decimal.Decimal, int, error) {
	var resp exchangeRatesResponse

	query := url.Values{"currency": []string{base.String()}}
	if err := c.get(ctx, endpointExchangeRates, query, &resp); err != nil {
		return nil, 0, err
	}

	if resp.Data == nil {
		return nil, 0, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	if resp.Data.Rates == nil {
		return nil, 0, fmt.Errorf("%w: missing data.rates", ErrMalformedResponse)
	}

	if resp.Data.Currency != "" && resp.Data.Currency != base.String() {
		return nil, 0, fmt.Errorf(
			"%w: rates quoted against %q, expected %q",
			ErrMalformedResponse,
			resp.Data.Currency,
			base,
		)
	}

	var (
		rates   = make(map[types.Currency]decimal.Decimal, len(resp.Data.Rates))
		dropped int
	)

	for code, raw := range resp.Data.Rates {
		rate, ok := parseRate(raw)
		if !ok || code == "" {
			dropped++

			continue
		}

		rates[types.Currency(code)] = rate
	}

	return rates, dropped, nil
}

// get executes a GET request against the given endpoint and decodes the JSON body into out
func (c *client) get(ctx context.Context, endpoint string, query url.Values, out any) (err error) {
	defer func(begin time.Time) {
		c.metrics.observeRequest(endpoint, err, time.Since(begin))
	}(time.Now())

	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("unable to create GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: unable to decode %s: %w", ErrMalformedResponse, endpoint, err)
	}

	return nil
}

// parseRate parses a rate given either as a JSON string or a JSON number
func parseRate(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decimal.Decimal{}, false
	}

	value := string(raw)

	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &value); err != nil {
			return decimal.Decimal{}, false
		}
	}

	// NaN and infinities are rejected by the decimal parser,
	// values overflowing a float64 are rejected here
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, false
	}

	if f := rate.InexactFloat64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, false
	}

	return rate, true
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
