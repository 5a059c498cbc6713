package aggregator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/application/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ServiceDeps struct {
	Catalog   *Catalog
	Snapshots port.SnapshotSource
	Stream    port.TickerStream
	Repo      port.Repository
	Sink      port.Sink

	MaxStreams    int           // per-connection stream cap; DefaultMaxStreams when <= 0
	SnapshotEvery time.Duration // persisted/printed snapshot cadence
}

// Session is one subscription generation: the validated pairs, their store,
// and the stream connections feeding it. A symbol-list change replaces the
// whole session; the old one is fully closed before the new one opens.
type Session struct {
	ID    string
	Pairs []string

	store  *store.Store
	conns  []port.StreamConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Session) Store() *store.Store { return s.store }

// Connected is true while at least one of the session's connections is open.
func (s *Session) Connected() bool {
	for _, c := range s.conns {
		if c.State() == port.StateConnected {
			return true
		}
	}
	return false
}

// Service owns the live-price aggregation lifecycle: validate requested
// symbols, seed a snapshot, split into batches, open one stream per batch and
// fan the ticks into the session store.
type Service struct {
	deps ServiceDeps
	fmtr *Formatter

	mu  sync.Mutex
	cur *Session
}

func NewService(deps ServiceDeps) *Service {
	if deps.MaxStreams <= 0 {
		deps.MaxStreams = DefaultMaxStreams
	}
	if deps.SnapshotEvery <= 0 {
		deps.SnapshotEvery = 5 * time.Minute
	}
	return &Service{deps: deps, fmtr: NewFormatter()}
}

// Start replaces the active session with a new one for the given symbols.
// Every connection of the previous session is closed before any new one is
// opened. Unknown symbols are dropped by validation; an empty validated set
// yields a session with zero connections.
func (s *Service) Start(ctx context.Context, symbols []string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	pairs, err := s.deps.Catalog.ValidPairs(ctx, symbols)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:     uuid.NewString(),
		Pairs:  pairs,
		store:  store.New(pairs),
		cancel: cancel,
	}

	batches := Partition(pairs, s.deps.MaxStreams)
	for i, batch := range batches {
		conn, err := s.deps.Stream.Open(sctx, batch)
		if err != nil {
			// Connect failure is not fatal: remaining batches still run and
			// the snapshot path still populates data. No retry here; a
			// symbol-list change forces fresh connections.
			log.Error().Err(err).Int("batch", i).Int("pairs", len(batch)).Msg("stream open failed")
			continue
		}
		sess.conns = append(sess.conns, conn)
		sess.wg.Add(1)
		go s.pump(sess, conn)
	}

	if len(pairs) > 0 {
		go s.seedSnapshot(sctx, sess)
	}

	log.Info().Str("session", sess.ID).Int("requested", len(symbols)).
		Int("pairs", len(pairs)).Int("conns", len(sess.conns)).Msg("session started")

	s.cur = sess
	return sess, nil
}

// Stop closes the active session, if any.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Session returns the active session, or nil.
func (s *Service) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Connected reports aggregate connectivity of the active session.
func (s *Service) Connected() bool {
	s.mu.Lock()
	sess := s.cur
	s.mu.Unlock()
	return sess != nil && sess.Connected()
}

func (s *Service) stopLocked() {
	if s.cur == nil {
		return
	}
	old := s.cur
	s.cur = nil
	old.cancel()
	for _, c := range old.conns {
		_ = c.Close()
	}
	old.wg.Wait()
	log.Info().Str("session", old.ID).Msg("session closed")
}

func (s *Service) pump(sess *Session, conn port.StreamConn) {
	defer sess.wg.Done()
	for t := range conn.Ticks() {
		sess.store.Apply(t)
	}
}

// seedSnapshot fetches the one-shot REST snapshot for the session's pairs.
// Failure leaves the store empty until streaming data arrives. A result for
// a session that has since been replaced is dropped (stale-result guard).
func (s *Service) seedSnapshot(ctx context.Context, sess *Session) {
	ticks, err := s.deps.Snapshots.Fetch24h(ctx, sess.Pairs)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("snapshot fetch failed, starting empty")
		return
	}
	if !s.isCurrent(sess) {
		log.Debug().Str("session", sess.ID).Msg("stale snapshot dropped")
		return
	}
	sess.store.Seed(ticks)
	log.Info().Str("session", sess.ID).Int("records", len(ticks)).Msg("snapshot seeded")
}

func (s *Service) isCurrent(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == sess && s.cur != nil && s.cur.ID == sess.ID
}

// Run starts a session for the given symbols and drives the sink and the
// repository until ctx is done: every store change refreshes the live line,
// and on each snapshot tick the rendered table plus a JSON payload of the
// store are written out.
func (s *Service) Run(ctx context.Context, symbols []string) error {
	sess, err := s.Start(ctx, symbols)
	if err != nil {
		return err
	}
	defer s.Stop()

	updates, unsubscribe := sess.store.Subscribe(1024)
	defer unsubscribe()

	snapTicker := time.NewTicker(s.deps.SnapshotEvery)
	defer snapTicker.Stop()

	_ = s.deps.Sink.WriteLive(s.fmtr.Render(sess.store, RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			line := s.fmtr.Render(sess.store, RenderSnapshot)
			_ = s.deps.Sink.WriteSnapshot(now, line)
			if err := s.deps.Repo.InsertSnapshot(ctx, now.UnixMilli(), storePayload(sess.store)); err != nil {
				log.Warn().Err(err).Msg("snapshot persist failed")
			}

		case u, ok := <-updates:
			if !ok {
				return nil
			}
			_ = s.deps.Sink.WriteLive(s.fmtr.Render(sess.store, RenderLive))
			rec := u.Entry.Record
			if rec.LastPrice > 0 {
				if err := s.deps.Repo.UpsertLatestPrice(ctx, u.Symbol, rec.LastPrice, rec.LastUpdate.UnixMilli()); err != nil {
					log.Warn().Err(err).Str("symbol", u.Symbol).Msg("price persist failed")
				}
			}
		}
	}
}

func storePayload(st *store.Store) string {
	snap := st.Snapshot()
	records := make(map[string]any, len(snap))
	for sym, e := range snap {
		records[sym] = e.Record
	}
	b, _ := json.Marshal(records)
	return string(b)
}
