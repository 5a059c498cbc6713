package aggregator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pricewatch/internal/application/port"
)

type fakeConn struct {
	mu     sync.Mutex
	ch     chan port.Tick
	state  port.ConnState
	stream *fakeStream
	pairs  []string
	closed bool
}

func (c *fakeConn) Ticks() <-chan port.Tick { return c.ch }

func (c *fakeConn) State() port.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.state = port.StateClosed
	close(c.ch)
	c.stream.record("close:" + strings.Join(c.pairs, ","))
	return nil
}

func (c *fakeConn) push(t port.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.ch <- t
	}
}

type fakeStream struct {
	mu     sync.Mutex
	events []string
	conns  []*fakeConn
}

func (f *fakeStream) Name() string { return "FAKE" }

func (f *fakeStream) Open(ctx context.Context, pairs []string) (port.StreamConn, error) {
	c := &fakeConn{
		ch:     make(chan port.Tick, 64),
		state:  port.StateConnected,
		stream: f,
		pairs:  pairs,
	}
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()
	f.record("open:" + strings.Join(pairs, ","))
	return c, nil
}

func (f *fakeStream) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeStream) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeSnapshots struct {
	gate   chan struct{} // pairs containing gateOn wait here before returning
	gateOn string
}

func (f *fakeSnapshots) Fetch24h(ctx context.Context, pairs []string) ([]port.Tick, error) {
	if f.gate != nil && f.gateOn != "" {
		for _, p := range pairs {
			if p == f.gateOn {
				<-f.gate
				break
			}
		}
	}
	out := make([]port.Tick, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, port.Tick{Symbol: p, LastPrice: "100", PriceNum: 100})
	}
	return out, nil
}

func newTestService(stream *fakeStream, snaps port.SnapshotSource, maxStreams int) *Service {
	return NewService(ServiceDeps{
		Catalog:    NewCatalog(usdtCatalog(), "USDT"),
		Snapshots:  snaps,
		Stream:     stream,
		Repo:       NewNoopRepo(),
		Sink:       nopSink{},
		MaxStreams: maxStreams,
	})
}

type nopSink struct{}

func (nopSink) WriteLive(string) error                { return nil }
func (nopSink) WriteSnapshot(time.Time, string) error { return nil }
func (nopSink) NewLine() error                        { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartFlowsTicksIntoStore(t *testing.T) {
	stream := &fakeStream{}
	svc := newTestService(stream, &fakeSnapshots{}, 0)
	defer svc.Stop()

	sess, err := svc.Start(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(sess.Pairs) != 2 {
		t.Fatalf("expected 2 validated pairs, got %v", sess.Pairs)
	}

	stream.mu.Lock()
	conn := stream.conns[0]
	stream.mu.Unlock()

	conn.push(port.Tick{Symbol: "BTCUSDT", LastPrice: "65000.5", PriceNum: 65000.5, PctChange: 2.3})

	waitFor(t, "tick in store", func() bool {
		e, ok := sess.Store().Get("BTCUSDT")
		return ok && e.Live && e.Record.LastPrice == 65000.5
	})
}

func TestRestartClosesOldConnectionsFirst(t *testing.T) {
	stream := &fakeStream{}
	svc := newTestService(stream, &fakeSnapshots{}, 0)
	defer svc.Stop()

	if _, err := svc.Start(context.Background(), []string{"BTC"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess2, err := svc.Start(context.Background(), []string{"ETH"})
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	want := []string{"open:BTCUSDT", "close:BTCUSDT", "open:ETHUSDT"}
	got := stream.Events()
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events %v, want %v", got, want)
		}
	}

	// no BTC state survives the switch
	if _, ok := sess2.Store().Get("BTCUSDT"); ok {
		t.Fatal("BTCUSDT must not exist in the new session")
	}
}

func TestConnectedIsAggregateAcrossConnections(t *testing.T) {
	stream := &fakeStream{}
	svc := newTestService(stream, &fakeSnapshots{}, 1) // one pair per connection
	defer svc.Stop()

	if _, err := svc.Start(context.Background(), []string{"BTC", "ETH"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stream.mu.Lock()
	if len(stream.conns) != 2 {
		stream.mu.Unlock()
		t.Fatalf("expected 2 connections, got %d", len(stream.conns))
	}
	c0, c1 := stream.conns[0], stream.conns[1]
	stream.mu.Unlock()

	if !svc.Connected() {
		t.Fatal("expected connected with both connections open")
	}
	_ = c0.Close()
	if !svc.Connected() {
		t.Fatal("one open connection must still count as connected")
	}
	_ = c1.Close()
	if svc.Connected() {
		t.Fatal("all connections closed, must report disconnected")
	}
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	stream := &fakeStream{}
	gate := make(chan struct{})
	snaps := &fakeSnapshots{gate: gate, gateOn: "BTCUSDT"}
	svc := newTestService(stream, snaps, 0)
	defer svc.Stop()

	sess1, err := svc.Start(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess2, err := svc.Start(context.Background(), []string{"ETH"})
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	// new session seeds normally
	waitFor(t, "new session snapshot", func() bool {
		_, ok := sess2.Store().Get("ETHUSDT")
		return ok
	})

	// release the old session's in-flight snapshot; its result must be ignored
	close(gate)
	time.Sleep(50 * time.Millisecond)
	if _, ok := sess1.Store().Get("BTCUSDT"); ok {
		t.Fatal("stale snapshot applied to a replaced session")
	}
}

func TestStartWithNoValidSymbols(t *testing.T) {
	stream := &fakeStream{}
	svc := newTestService(stream, &fakeSnapshots{}, 0)
	defer svc.Stop()

	sess, err := svc.Start(context.Background(), []string{"FAKE123"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(sess.Pairs) != 0 {
		t.Fatalf("expected no validated pairs, got %v", sess.Pairs)
	}
	if len(stream.Events()) != 0 {
		t.Fatalf("no connections may be opened for an empty set, got %v", stream.Events())
	}
	if svc.Connected() {
		t.Fatal("empty session must report disconnected")
	}
}
