package radar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"arbradar/internal/domain/model"
)

const (
	ansiReset        = "\033[0m"
	ansiRed          = "\033[31m"
	ansiGreen        = "\033[32m"
	ansiYellow       = "\033[33m"
	ansiBrightYellow = "\033[93m"
	ansiDim          = "\033[2m"
	ansiClearEOL     = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

// venueTags are the single-letter prefixes on the live line. Bybit takes Y
// because binance owns B.
var venueTags = map[string]string{
	"binance":     "B",
	"bybit":       "Y",
	"okx":         "O",
	"gate":        "G",
	"mexc":        "M",
	"hyperliquid": "H",
}

func venueTag(exchange string) string {
	if t, ok := venueTags[exchange]; ok {
		return t
	}
	if exchange == "" {
		return "?"
	}
	return strings.ToUpper(exchange[:1])
}

// Formatter renders the live mark-price line and the per-cycle tables.
type Formatter struct {
	SpreadAlertBps float64 // cross-venue mark gap that lights the live delta up
	TopRows        int     // rows shown per table
}

func NewFormatter(spreadAlertBps float64, topRows int) *Formatter {
	if spreadAlertBps <= 0 {
		spreadAlertBps = 5
	}
	if topRows <= 0 {
		topRows = 50
	}
	return &Formatter{SpreadAlertBps: spreadAlertBps, TopRows: topRows}
}

// LiveLine renders the board as a single overwritable line: per symbol the
// venue marks colored by direction, then the widest cross-venue gap in bps.
func (f *Formatter) LiveLine(b *Board) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(colorize("[RADAR] ", ansiDim))

	for i, row := range b.Rows() {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		sb.WriteString(row.Symbol)

		var lo, hi float64
		seen := 0
		for _, c := range row.Cells {
			px := "--"
			col := ansiYellow
			if c.Has {
				px = strconv.FormatFloat(c.Price, 'f', -1, 64)
				switch c.Dir {
				case DirUp:
					col = ansiGreen
				case DirDown:
					col = ansiRed
				}
				if seen == 0 || c.Price < lo {
					lo = c.Price
				}
				if c.Price > hi {
					hi = c.Price
				}
				seen++
			}
			sb.WriteString(" ")
			sb.WriteString(colorize(venueTag(c.Exchange)+":"+px, col))
		}

		delta := "Δ=--"
		dCol := ansiYellow
		if seen >= 2 && lo > 0 {
			bps := (hi - lo) / ((hi + lo) / 2) * 10000
			delta = fmt.Sprintf("Δ=%.1fbp", bps)
			if bps >= f.SpreadAlertBps {
				dCol = ansiGreen
			}
		}
		sb.WriteString(" ")
		sb.WriteString(colorize(delta, dCol))
	}

	sb.WriteString(ansiClearEOL)
	return sb.String()
}

// CycleBlock renders one refresh cycle: a dim summary header, the funding
// arbitrage table, the squeeze table and any per-venue collect errors.
func (f *Formatter) CycleBlock(snap *model.RadarSnapshot) string {
	var sb strings.Builder

	sb.WriteString(colorize(fmt.Sprintf("=== %s UTC | tickers %d | opportunities %d | signals %d ===",
		snap.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		len(snap.Tickers), len(snap.Opportunities), len(snap.Signals)), ansiDim))
	sb.WriteString("\n")

	sb.WriteString(f.arbSection(snap.Opportunities))
	sb.WriteString("\n")
	sb.WriteString(f.squeezeSection(snap.Signals))

	if len(snap.Errors) > 0 {
		sb.WriteString("\n")
		venues := make([]string, 0, len(snap.Errors))
		for v := range snap.Errors {
			venues = append(venues, v)
		}
		sort.Strings(venues)
		for _, v := range venues {
			sb.WriteString(colorize("! "+v+": "+snap.Errors[v], ansiRed))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (f *Formatter) arbSection(opps []*model.ArbOpportunity) string {
	var sb strings.Builder
	shown := opps
	if len(shown) > f.TopRows {
		shown = shown[:f.TopRows]
	}
	sb.WriteString(fmt.Sprintf("Funding arbitrage (%d of %d)\n", len(shown), len(opps)))
	if len(shown) == 0 {
		sb.WriteString(colorize("no opportunities above threshold\n", ansiDim))
		return sb.String()
	}

	headers := []string{"SYMBOL", "SHORT", "PX A", "FUND A", "LONG", "PX B", "FUND B", "GAP", "EDGE", "BEST LEG", "WARNING"}
	rows := make([][]cell, 0, len(shown))
	for _, o := range shown {
		edge := cell{text: fmtPct(o.NetEdge)}
		switch {
		case o.NetEdge > 0:
			edge.color = ansiGreen
		case o.NetEdge < 0:
			edge.color = ansiRed
		}
		warn := cell{text: "✓", color: ansiGreen}
		if o.Warning != "" {
			warn = cell{text: o.Warning, color: ansiYellow}
		}
		rows = append(rows, []cell{
			plain(o.Symbol),
			plain(o.ShortExchange),
			plain(fmtPrice(o.ShortPrice)),
			plain(fmtPct(o.ShortFunding)),
			plain(o.LongExchange),
			plain(fmtPrice(o.LongPrice)),
			plain(fmtPct(o.LongFunding)),
			plain(fmtPct(o.GapPct)),
			edge,
			plain(o.BestLeg),
			warn,
		})
	}
	sb.WriteString(renderTable(headers, rows))
	return sb.String()
}

func (f *Formatter) squeezeSection(signals []*model.SqueezeSignal) string {
	var sb strings.Builder
	shown := signals
	if len(shown) > f.TopRows {
		shown = shown[:f.TopRows]
	}
	sb.WriteString(fmt.Sprintf("Squeeze radar (%d of %d)\n", len(shown), len(signals)))
	if len(shown) == 0 {
		sb.WriteString(colorize("no squeeze signals\n", ansiDim))
		return sb.String()
	}

	headers := []string{"SYMBOL", "EXCHANGE", "SCORE", "DIRECTION", "OI Δ%", "PX Δ%", "FUNDING", "FUND Δ", "SPREAD", "NOTES"}
	rows := make([][]cell, 0, len(shown))
	for _, s := range shown {
		spread := "-"
		if s.SpreadStress != nil {
			spread = fmt.Sprintf("%.1fbps", *s.SpreadStress)
		}
		rows = append(rows, []cell{
			plain(s.Symbol),
			plain(s.Exchange),
			cell{text: fmt.Sprintf("%.0f", s.Score), color: scoreColor(s.Score)},
			plain(s.DirectionBias),
			plain(fmtOpt(s.OIDeltaPct, "%.2f")),
			plain(fmtOpt(s.PriceDeltaPct, "%.2f")),
			plain(fmtOpt(s.FundingLevel, "%.4f")),
			plain(fmtOpt(s.FundingDelta, "%+.4f")),
			plain(spread),
			plain(s.Notes),
		})
	}
	sb.WriteString(renderTable(headers, rows))
	return sb.String()
}

func scoreColor(score float64) string {
	switch {
	case score >= 70:
		return ansiRed
	case score >= 50:
		return ansiBrightYellow
	case score >= 30:
		return ansiYellow
	}
	return ""
}

type cell struct {
	text  string
	color string
}

func plain(s string) cell { return cell{text: s} }

// renderTable pads cells before coloring them; escape bytes would otherwise
// count into the column widths.
func renderTable(headers []string, rows [][]cell) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if n := utf8.RuneCountInString(c.text); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	cols := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = pad(h, widths[i])
	}
	sb.WriteString(colorize(strings.Join(cols, "  "), ansiDim))
	sb.WriteString("\n")

	for _, row := range rows {
		for i, c := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			p := pad(c.text, widths[i])
			if c.color != "" {
				p = colorize(p, c.color)
			}
			sb.WriteString(p)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func pad(s string, w int) string {
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

func fmtPrice(v float64) string { return fmt.Sprintf("%.4f", v) }

func fmtPct(v float64) string { return fmt.Sprintf("%.4f%%", v) }

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
