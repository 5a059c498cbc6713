package domain

import "time"

// Dir is the direction of the last price move for a pair.
type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

// PriceRecord is the latest known state for one trading pair. Each ticker
// message from the venue is a complete point-in-time snapshot for its symbol,
// so a new record replaces the previous one outright.
type PriceRecord struct {
	Symbol             string  `json:"symbol"` // pair, e.g. "BTCUSDT"
	LastPrice          float64 `json:"lastPrice"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	Volume             float64 `json:"volume"`
	QuoteVolume        float64 `json:"quoteVolume"`

	// Book top. HasDepth is false when the venue omitted bid/ask fields;
	// the four values below are zero and meaningless in that case.
	BidPrice float64 `json:"bidPrice"`
	BidQty   float64 `json:"bidQty"`
	AskPrice float64 `json:"askPrice"`
	AskQty   float64 `json:"askQty"`
	HasDepth bool    `json:"hasDepth"`

	LastUpdate time.Time `json:"lastUpdate"`
}
