package radar

import (
	"sort"
	"strings"
	"sync"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type cellState struct {
	price   float64
	has     bool
	dir     Dir
	funding *float64
}

// Board holds the live mark-price state per tracked symbol and venue. Feeds
// write into it concurrently; the formatter reads row snapshots.
type Board struct {
	mu sync.Mutex

	order []string // normalized symbols, render order
	rows  map[string]map[string]*cellState
}

// NewBoard tracks the given normalized symbols across the given venues.
// Venue slots exist from the start so the line shows "--" until the first
// tick arrives; ticks from venues outside the list still land.
func NewBoard(symbols, venues []string) *Board {
	order := make([]string, 0, len(symbols))
	rows := make(map[string]map[string]*cellState, len(symbols))
	for _, s := range symbols {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, dup := rows[u]; dup {
			continue
		}
		order = append(order, u)
		row := make(map[string]*cellState, len(venues))
		for _, v := range venues {
			ex := strings.ToLower(strings.TrimSpace(v))
			if ex == "" {
				continue
			}
			row[ex] = &cellState{}
		}
		rows[u] = row
	}
	return &Board{order: order, rows: rows}
}

func (b *Board) Symbols() []string { return b.order }

// Apply records one tick for a tracked symbol. Returns whether anything
// visible changed; untracked symbols are dropped.
func (b *Board) Apply(exchange, symbol string, mark float64, funding *float64) bool {
	ex := strings.ToLower(strings.TrimSpace(exchange))
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if ex == "" || sym == "" || mark <= 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row := b.rows[sym]
	if row == nil {
		return false
	}
	cell := row[ex]
	if cell == nil {
		cell = &cellState{}
		row[ex] = cell
	}

	if funding != nil {
		cell.funding = funding
	}
	if cell.has && cell.price == mark {
		return false
	}

	switch {
	case !cell.has:
		cell.dir = DirSame
	case mark > cell.price:
		cell.dir = DirUp
	case mark < cell.price:
		cell.dir = DirDown
	default:
		cell.dir = DirSame
	}
	cell.price = mark
	cell.has = true
	return true
}

// BoardCell is one venue's view of a symbol, copied out for rendering.
type BoardCell struct {
	Exchange string
	Price    float64
	Has      bool
	Dir      Dir
	Funding  *float64
}

// BoardRow is a render snapshot of one symbol across venues, cells ordered
// by venue name.
type BoardRow struct {
	Symbol string
	Cells  []BoardCell
}

func (b *Board) Rows() []BoardRow {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BoardRow, 0, len(b.order))
	for _, sym := range b.order {
		row := b.rows[sym]
		venues := make([]string, 0, len(row))
		for ex := range row {
			venues = append(venues, ex)
		}
		sort.Strings(venues)

		cells := make([]BoardCell, 0, len(venues))
		for _, ex := range venues {
			c := row[ex]
			cells = append(cells, BoardCell{
				Exchange: ex,
				Price:    c.price,
				Has:      c.has,
				Dir:      c.dir,
				Funding:  c.funding,
			})
		}
		out = append(out, BoardRow{Symbol: sym, Cells: cells})
	}
	return out
}
