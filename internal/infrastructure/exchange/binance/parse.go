package binance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"pricewatch/internal/application/port"

	"github.com/rs/zerolog/log"
)

type combinedMsg struct {
	Stream string    `json:"stream"`
	Data   tickerMsg `json:"data"`
}

type tickerMsg struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	PctChange string `json:"P"`
	Volume    string `json:"v"`
	QuoteVol  string `json:"q"`
	Bid       string `json:"b"`
	BidQty    string `json:"B"`
	Ask       string `json:"a"`
	AskQty    string `json:"A"`
	EventTs   int64  `json:"E"`
}

// parseCombined turns one combined-stream envelope into a normalized tick.
// Messages missing symbol or price are dropped, as are symbols not ending in
// the expected quote (defensive double-check against the upstream). The last
// price must parse to a finite number; the remaining fields are best-effort.
func parseCombined(b []byte, quote string) (port.Tick, bool) {
	var msg combinedMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Err(err).Msg("ticker unmarshal failed")
		return port.Tick{}, false
	}
	return normalizeTicker(msg.Data, quote)
}

func normalizeTicker(m tickerMsg, quote string) (port.Tick, bool) {
	sym := strings.ToUpper(strings.TrimSpace(m.Symbol))
	raw := strings.TrimSpace(m.LastPrice)
	if sym == "" || raw == "" {
		return port.Tick{}, false
	}
	if quote != "" && !strings.HasSuffix(sym, quote) {
		return port.Tick{}, false
	}

	px, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(px) || math.IsInf(px, 0) {
		return port.Tick{}, false
	}

	t := port.Tick{
		Symbol:    sym,
		LastPrice: raw,
		PriceNum:  px,
		PctChange: floatOrZero(m.PctChange),
		Volume:    floatOrZero(m.Volume),
		QuoteVol:  floatOrZero(m.QuoteVol),
		Ts:        m.EventTs,
	}
	if t.Ts == 0 {
		t.Ts = time.Now().UnixMilli()
	}

	if m.Bid != "" || m.Ask != "" {
		t.Bid = floatOrZero(m.Bid)
		t.BidQty = floatOrZero(m.BidQty)
		t.Ask = floatOrZero(m.Ask)
		t.AskQty = floatOrZero(m.AskQty)
		t.HasDepth = true
	}
	return t, true
}

func floatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
