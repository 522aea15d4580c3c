package currencies

import "github.com/sig-0/btcrates/storage/types"

var (
	BTC types.Currency = "BTC"
	USD types.Currency = "USD"
	EUR types.Currency = "EUR"
	GBP types.Currency = "GBP"
	JPY types.Currency = "JPY"
	ETH types.Currency = "ETH"
)
