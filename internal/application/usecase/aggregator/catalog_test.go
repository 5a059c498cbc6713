package aggregator

import (
	"context"
	"errors"
	"testing"

	"pricewatch/internal/application/port"
)

type fakeCatalogSource struct {
	instruments []port.Instrument
	fetches     int
	err         error
}

func (f *fakeCatalogSource) FetchInstruments(ctx context.Context) ([]port.Instrument, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.instruments, nil
}

func usdtCatalog() *fakeCatalogSource {
	return &fakeCatalogSource{instruments: []port.Instrument{
		{Symbol: "BTCUSDT", QuoteAsset: "USDT", Status: "TRADING"},
		{Symbol: "ETHUSDT", QuoteAsset: "USDT", Status: "TRADING"},
		{Symbol: "XYZUSDT", QuoteAsset: "USDT", Status: "BREAK"},
		{Symbol: "BTCBUSD", QuoteAsset: "BUSD", Status: "TRADING"},
	}}
}

func TestValidPairsDropsUnknownSymbols(t *testing.T) {
	cat := NewCatalog(usdtCatalog(), "USDT")

	pairs, err := cat.ValidPairs(context.Background(), []string{"BTC", "ETH", "FAKE123"})
	if err != nil {
		t.Fatalf("ValidPairs failed: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != "BTCUSDT" || pairs[1] != "ETHUSDT" {
		t.Fatalf("expected [BTCUSDT ETHUSDT], got %v", pairs)
	}
}

func TestValidPairsExcludesNonTradingAndWrongQuote(t *testing.T) {
	cat := NewCatalog(usdtCatalog(), "USDT")

	pairs, err := cat.ValidPairs(context.Background(), []string{"XYZ"})
	if err != nil {
		t.Fatalf("ValidPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("BREAK-status pair must be excluded, got %v", pairs)
	}
}

func TestValidPairsDedupesCaseInsensitive(t *testing.T) {
	cat := NewCatalog(usdtCatalog(), "USDT")

	pairs, err := cat.ValidPairs(context.Background(), []string{"btc", "BTC", " Btc ", "eth"})
	if err != nil {
		t.Fatalf("ValidPairs failed: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != "BTCUSDT" || pairs[1] != "ETHUSDT" {
		t.Fatalf("expected deduped [BTCUSDT ETHUSDT], got %v", pairs)
	}
}

func TestCatalogFetchesOnce(t *testing.T) {
	src := usdtCatalog()
	cat := NewCatalog(src, "USDT")

	for i := 0; i < 3; i++ {
		if _, err := cat.ValidPairs(context.Background(), []string{"BTC"}); err != nil {
			t.Fatalf("ValidPairs failed: %v", err)
		}
	}
	if src.fetches != 1 {
		t.Fatalf("expected a single catalog fetch, got %d", src.fetches)
	}
}

func TestCatalogResetRefetches(t *testing.T) {
	src := usdtCatalog()
	cat := NewCatalog(src, "USDT")

	if _, err := cat.ValidPairs(context.Background(), []string{"BTC"}); err != nil {
		t.Fatalf("ValidPairs failed: %v", err)
	}
	cat.Reset()
	if _, err := cat.ValidPairs(context.Background(), []string{"BTC"}); err != nil {
		t.Fatalf("ValidPairs failed: %v", err)
	}
	if src.fetches != 2 {
		t.Fatalf("expected refetch after Reset, got %d fetches", src.fetches)
	}
}

func TestCatalogFailedFetchIsNotCached(t *testing.T) {
	src := usdtCatalog()
	src.err = errors.New("boom")
	cat := NewCatalog(src, "USDT")

	if _, err := cat.ValidPairs(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	src.err = nil
	pairs, err := cat.ValidPairs(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != "BTCUSDT" {
		t.Fatalf("unexpected pairs after retry: %v", pairs)
	}
	if src.fetches != 2 {
		t.Fatalf("expected 2 fetches, got %d", src.fetches)
	}
}
