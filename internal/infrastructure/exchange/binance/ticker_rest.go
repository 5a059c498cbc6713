package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pricewatch/internal/application/port"
)

// TickerClient fetches one-shot 24h statistics over REST, used to seed state
// before streaming data arrives.
type TickerClient struct {
	baseURL string
	client  *http.Client
	quote   string
}

func NewTickerClient(baseURL, quote string) *TickerClient {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &TickerClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		quote: quote,
	}
}

// stats24h mirrors /api/v3/ticker/24hr. All numeric fields arrive as strings.
type stats24h struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	BidPrice           string `json:"bidPrice"`
	BidQty             string `json:"bidQty"`
	AskPrice           string `json:"askPrice"`
	AskQty             string `json:"askQty"`
	CloseTime          int64  `json:"closeTime"`
}

func (c *TickerClient) Fetch24h(ctx context.Context, pairs []string) ([]port.Tick, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	// symbols parameter is a JSON array: ["BTCUSDT","ETHUSDT"]
	symArr, err := json.Marshal(pairs)
	if err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/api/v3/ticker/24hr?symbols=%s", c.baseURL, url.QueryEscape(string(symArr)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance api error: %d %s", resp.StatusCode, string(body))
	}

	var stats []stats24h
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	out := make([]port.Tick, 0, len(stats))
	for _, s := range stats {
		t, ok := normalizeTicker(tickerMsg{
			Symbol:    s.Symbol,
			LastPrice: s.LastPrice,
			PctChange: s.PriceChangePercent,
			Volume:    s.Volume,
			QuoteVol:  s.QuoteVolume,
			Bid:       s.BidPrice,
			BidQty:    s.BidQty,
			Ask:       s.AskPrice,
			AskQty:    s.AskQty,
			EventTs:   s.CloseTime,
		}, c.quote)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

var _ port.SnapshotSource = (*TickerClient)(nil)
