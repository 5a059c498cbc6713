package store

import (
	"strings"
	"sync"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/domain"
)

// Entry is the stored state for one pair.
type Entry struct {
	Record domain.PriceRecord
	Raw    string     // raw last-price string, for display and change detection
	Live   bool       // true once a streaming update has been applied
	Dir    domain.Dir // move direction vs the previous stored price
}

// Update is one change notification delivered to subscribers.
type Update struct {
	Symbol string
	Entry  Entry
}

// Store holds the latest PriceRecord per validated pair. The allowed pair set
// is fixed at construction: ticks for anything else are rejected, so a record
// can only ever exist for a pair that passed the tradeability check.
//
// Only the snapshot fetcher and stream clients write. Consumers read point
// values or subscribe to change notifications.
type Store struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*Entry

	subs    map[int]chan Update
	nextSub int
}

func New(pairs []string) *Store {
	order := make([]string, 0, len(pairs))
	entries := make(map[string]*Entry, len(pairs))
	for _, p := range pairs {
		u := strings.ToUpper(strings.TrimSpace(p))
		if u == "" {
			continue
		}
		if _, ok := entries[u]; ok {
			continue
		}
		order = append(order, u)
		entries[u] = nil // absent until seeded or first tick
	}
	return &Store{
		order:   order,
		entries: entries,
		subs:    make(map[int]chan Update),
	}
}

// Pairs returns the validated pair set in request order.
func (s *Store) Pairs() []string {
	return s.order
}

func (s *Store) Get(pair string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[strings.ToUpper(pair)]
	if !ok || e == nil {
		return Entry{}, false
	}
	return *e, true
}

// IsLive reports whether a streaming update has been received for the pair,
// as opposed to snapshot-only data.
func (s *Store) IsLive(pair string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[strings.ToUpper(pair)]
	return ok && e != nil && e.Live
}

// Snapshot copies every populated entry, keyed by pair.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for k, e := range s.entries {
		if e != nil {
			out[k] = *e
		}
	}
	return out
}

// Seed applies one-shot snapshot data. Pairs outside the validated set are
// dropped, and pairs that already received a streaming update are left alone:
// the snapshot is older than any tick by construction.
func (s *Store) Seed(ticks []port.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ticks {
		sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
		cur, ok := s.entries[sym]
		if !ok || (cur != nil && cur.Live) {
			continue
		}
		e := &Entry{Record: toRecord(sym, t), Raw: t.LastPrice}
		s.entries[sym] = e
		s.notifyLocked(Update{Symbol: sym, Entry: *e})
	}
}

// Apply applies one streaming tick, fully replacing the pair's record: each
// message is a complete snapshot for its symbol, so volume, depth and the
// update time are taken even when the price itself is flat. Returns false
// when the tick was rejected (unknown pair) or the price did not move — the
// record is still replaced in that case, only the change notification is
// suppressed.
func (s *Store) Apply(t port.Tick) bool {
	sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
	raw := strings.TrimSpace(t.LastPrice)
	if sym == "" || raw == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[sym]
	if !ok {
		return false
	}

	dir := domain.DirSame
	samePrice := false
	if cur != nil {
		samePrice = cur.Live && cur.Raw == raw
		switch {
		case t.PriceNum > cur.Record.LastPrice:
			dir = domain.DirUp
		case t.PriceNum < cur.Record.LastPrice:
			dir = domain.DirDown
		default:
			dir = cur.Dir // hold the last direction while the price is flat
		}
	}

	e := &Entry{Record: toRecord(sym, t), Raw: raw, Live: true, Dir: dir}
	s.entries[sym] = e
	if samePrice {
		return false
	}
	s.notifyLocked(Update{Symbol: sym, Entry: *e})
	return true
}

// Subscribe registers a change listener. Slow subscribers drop updates
// rather than blocking the write path. The returned cancel func must be
// called to release the channel.
func (s *Store) Subscribe(buf int) (<-chan Update, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan Update, buf)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) notifyLocked(u Update) {
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func toRecord(sym string, t port.Tick) domain.PriceRecord {
	ts := t.Ts
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return domain.PriceRecord{
		Symbol:             sym,
		LastPrice:          t.PriceNum,
		PriceChangePercent: t.PctChange,
		Volume:             t.Volume,
		QuoteVolume:        t.QuoteVol,
		BidPrice:           t.Bid,
		BidQty:             t.BidQty,
		AskPrice:           t.Ask,
		AskQty:             t.AskQty,
		HasDepth:           t.HasDepth,
		LastUpdate:         time.UnixMilli(ts),
	}
}
