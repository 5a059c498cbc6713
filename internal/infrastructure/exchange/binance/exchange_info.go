package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pricewatch/internal/application/port"
)

// ExchangeInfoClient fetches the spot instrument catalog.
type ExchangeInfoClient struct {
	baseURL string
	client  *http.Client
}

func NewExchangeInfoClient(baseURL string) *ExchangeInfoClient {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &ExchangeInfoClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type exchangeInfoResp struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

func (c *ExchangeInfoClient) FetchInstruments(ctx context.Context) ([]port.Instrument, error) {
	url := c.baseURL + "/api/v3/exchangeInfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

	var result exchangeInfoResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	out := make([]port.Instrument, 0, len(result.Symbols))
	for _, s := range result.Symbols {
		out = append(out, port.Instrument{
			Symbol:     s.Symbol,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
		})
	}
	return out, nil
}

var _ port.CatalogSource = (*ExchangeInfoClient)(nil)
