package port

import "context"

// Tick is one normalized ticker update. Numeric fields are parsed from the
// venue's string payload; LastPrice keeps the raw string for display and
// change detection.
type Tick struct {
	Symbol    string  // pair, e.g. "BTCUSDT"
	LastPrice string  // raw string as delivered by the venue
	PriceNum  float64 // parsed last price (finite, validated)
	PctChange float64 // 24h change percent
	Volume    float64 // 24h base volume
	QuoteVol  float64 // 24h quote volume

	Bid      float64
	BidQty   float64
	Ask      float64
	AskQty   float64
	HasDepth bool // bid/ask fields were present in the payload

	Ts int64 // unix ms
}

// ConnState is the lifecycle state of one stream connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StreamConn is one live subscription covering a single batch of pairs.
// Ticks is closed when the connection ends, for any reason.
type StreamConn interface {
	Ticks() <-chan Tick
	State() ConnState
	Close() error
}

// TickerStream opens stream connections against the venue. One Open call
// covers one batch of pairs; the caller owns the returned connection and
// must Close it. There is no reconnect inside the stream layer: a dropped
// connection stays closed until the caller opens a fresh one.
type TickerStream interface {
	Name() string
	Open(ctx context.Context, pairs []string) (StreamConn, error)
}
