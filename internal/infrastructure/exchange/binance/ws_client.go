package binance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pricewatch/internal/application/port"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TickerStream opens combined-stream ticker connections. One Open call maps
// to one websocket connection subscribing <pair>@ticker for every pair in the
// batch. Dropped connections are not redialed here: the lifecycle owner opens
// a fresh session instead.
type TickerStream struct {
	wsURL string // e.g. wss://stream.binance.com:9443
	quote string // e.g. USDT, used for defensive symbol filtering on receipt
}

func NewTickerStream(wsURL, quote string) *TickerStream {
	return &TickerStream{
		wsURL: strings.TrimSpace(wsURL),
		quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

func (s *TickerStream) Name() string { return "BINANCE" }

func (s *TickerStream) Open(ctx context.Context, pairs []string) (port.StreamConn, error) {
	wsURL, err := buildCombinedURL(s.wsURL, pairs)
	if err != nil {
		return nil, err
	}

	c := &streamConn{
		quote: s.quote,
		ticks: make(chan port.Tick, 1024),
	}
	c.setState(port.StateConnecting)

	log.Info().Str("feed", s.Name()).Int("pairs", len(pairs)).Msg("ws connecting")
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	ws, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
	cancel()
	if err != nil {
		c.setState(port.StateClosed)
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	c.ws = ws
	c.setState(port.StateConnected)
	log.Info().Str("feed", s.Name()).Int("pairs", len(pairs)).Msg("ws connected")

	go c.run(ctx)
	return c, nil
}

func buildCombinedURL(base string, pairs []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}
	if len(pairs) == 0 {
		return "", errors.New("pairs empty")
	}

	streams := make([]string, 0, len(pairs))
	for _, p := range pairs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		streams = append(streams, p+"@ticker")
	}
	if len(streams) == 0 {
		return "", errors.New("no valid pairs")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

type streamConn struct {
	ws    *websocket.Conn
	quote string
	ticks chan port.Tick

	state     atomic.Int32
	closeOnce sync.Once
}

func (c *streamConn) Ticks() <-chan port.Tick { return c.ticks }

func (c *streamConn) State() port.ConnState {
	return port.ConnState(c.state.Load())
}

func (c *streamConn) setState(s port.ConnState) {
	c.state.Store(int32(s))
}

func (c *streamConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(port.StateClosed)
		if c.ws != nil {
			err = c.ws.Close()
		}
	})
	return err
}

func (c *streamConn) run(ctx context.Context) {
	// Closing the websocket unblocks the reader, which owns c.ticks and
	// closes it on its way out. Nothing else may close the channel.
	defer c.Close()

	err := c.readLoop(ctx)
	if err != nil && ctx.Err() == nil && c.State() != port.StateClosed {
		log.Warn().Err(err).Msg("ws disconnected")
	}
}

func (c *streamConn) readLoop(ctx context.Context) error {
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		// sole closer of c.ticks: the reader may be mid-send when the
		// context is cancelled, so no other goroutine can close it safely
		defer close(c.ticks)
		defer close(errCh)
		for {
			_, b, err := c.ws.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
			if t, ok := parseCombined(b, c.quote); ok {
				select {
				case c.ticks <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}
