package aggregator

import (
	"fmt"
	"strings"

	"pricewatch/internal/application/store"
	"pricewatch/internal/domain"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Render draws one line: pair, last price colored by move direction, 24h
// change percent colored by sign. Pairs with no data yet show "--".
func (f *Formatter) Render(st *store.Store, mode RenderMode) string {
	snap := st.Snapshot()
	pairs := st.Pairs()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[PRICEWATCH] ", ansiDim))

	for i, pair := range pairs {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}

		e, ok := snap[pair]
		if !ok {
			sb.WriteString(pair)
			sb.WriteString(" ")
			sb.WriteString(colorize("--", ansiYellow))
			continue
		}

		px := e.Raw
		if px == "" {
			px = fmt.Sprintf("%g", e.Record.LastPrice)
		}
		pxCol := ansiYellow
		switch e.Dir {
		case domain.DirUp:
			pxCol = ansiGreen
		case domain.DirDown:
			pxCol = ansiRed
		}

		pct := fmt.Sprintf("%+.2f%%", e.Record.PriceChangePercent)
		pctCol := ansiYellow
		switch {
		case e.Record.PriceChangePercent > 0:
			pctCol = ansiGreen
		case e.Record.PriceChangePercent < 0:
			pctCol = ansiRed
		}

		sb.WriteString(pair)
		sb.WriteString(" ")
		sb.WriteString(colorize(px, pxCol))
		sb.WriteString(" ")
		sb.WriteString(colorize(pct, pctCol))
		if !e.Live {
			sb.WriteString(colorize(" (snap)", ansiDim))
		}
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}
