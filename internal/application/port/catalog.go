package port

import "context"

// Instrument is one entry of the venue's instrument catalog.
type Instrument struct {
	Symbol     string // pair, e.g. "BTCUSDT"
	QuoteAsset string // e.g. "USDT"
	Status     string // "TRADING" when open for trading
}

// CatalogSource fetches the full instrument catalog from the venue.
type CatalogSource interface {
	FetchInstruments(ctx context.Context) ([]Instrument, error)
}

// SnapshotSource fetches one-shot 24h statistics for a set of pairs,
// used to seed state before streaming data arrives.
type SnapshotSource interface {
	Fetch24h(ctx context.Context, pairs []string) ([]Tick, error)
}
