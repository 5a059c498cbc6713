package aggregator

import (
	"context"
	"strings"
	"sync"

	"pricewatch/internal/application/port"

	"github.com/rs/zerolog/log"
)

// Catalog caches the venue's instrument list for the lifetime of the process.
// The first call that needs it fetches; later calls reuse the cached set.
// A failed fetch is not cached, so the next call retries.
type Catalog struct {
	src   port.CatalogSource
	quote string

	mu        sync.Mutex
	loaded    bool
	tradeable map[string]struct{} // pair -> tradeable
}

func NewCatalog(src port.CatalogSource, quote string) *Catalog {
	return &Catalog{
		src:   src,
		quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ValidPairs maps requested symbols to trading pairs and keeps only those the
// venue currently lists as tradeable against the configured quote. Requests
// are deduplicated case-insensitively; order is preserved. Unknown symbols are
// silently dropped — partial coverage is expected.
func (c *Catalog) ValidPairs(ctx context.Context, symbols []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		pair := u + c.quote
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		if _, ok := c.tradeable[pair]; ok {
			out = append(out, pair)
		}
	}
	return out, nil
}

// Reset drops the cached catalog; the next ValidPairs call refetches.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.loaded = false
	c.tradeable = nil
	c.mu.Unlock()
}

func (c *Catalog) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	instruments, err := c.src.FetchInstruments(ctx)
	if err != nil {
		return err
	}

	tradeable := make(map[string]struct{}, len(instruments))
	for _, in := range instruments {
		if !strings.EqualFold(in.QuoteAsset, c.quote) {
			continue
		}
		if !strings.EqualFold(in.Status, "TRADING") {
			continue
		}
		tradeable[strings.ToUpper(in.Symbol)] = struct{}{}
	}

	c.tradeable = tradeable
	c.loaded = true
	log.Info().Int("instruments", len(instruments)).Int("tradeable", len(tradeable)).
		Str("quote", c.quote).Msg("instrument catalog loaded")
	return nil
}
