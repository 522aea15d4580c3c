package types

import "time"

type Currency string

const (
	CurrencyBTC Currency = "BTC"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) String() string {
	return string(c)
}

type RateType string

const (
	// RateTypeDEFERRED marks a rate fetched on demand rather than streamed
	RateTypeDEFERRED RateType = "DEFERRED"
)

func (r RateType) String() string {
	return string(r)
}

type Source string

const (
	SourceCoinbase Source = "Coinbase" // https://api.coinbase.com/v2
)

func (s Source) String() string {
	return string(s)
}

// ExchangeRate is a single quoted rate: 1 Base buys Rate units of Target
type ExchangeRate struct {
	AsOf      time.Time `json:"as_of"`
	FetchedAt time.Time `json:"fetched_at"`
	Base      Currency  `json:"base"`
	Target    Currency  `json:"target"`
	RateType  RateType  `json:"rate_type"`
	Source    Source    `json:"source"`
	Rate      float64   `json:"rate"`
}

// Pair is a conversion request from Base into Target
type Pair struct {
	Base   Currency `json:"base"`
	Target Currency `json:"target"`
}

type RateQuery struct {
	Target   *Currency `json:"target"`
	RateType *RateType `json:"rate_type"`
	Source   *Source   `json:"source"`
	Base     Currency  `json:"base"`
	Offset   int64     `json:"offset"`
	Limit    int32     `json:"limit"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}
