package engine

import (
	"math"
	"strings"
	"sync"
	"time"
)

// MetricField names one component of a MetricSnapshot for delta queries.
type MetricField int

const (
	FieldOpenInterest MetricField = iota
	FieldPrice
	FieldFunding
)

// MetricSnapshot carries the raw per-cycle readings the squeeze engine
// tracks. Nil means the venue did not report the value this cycle.
type MetricSnapshot struct {
	OpenInterest *float64
	Price        *float64
	FundingRate  *float64
}

func (s MetricSnapshot) field(f MetricField) *float64 {
	switch f {
	case FieldOpenInterest:
		return s.OpenInterest
	case FieldPrice:
		return s.Price
	case FieldFunding:
		return s.FundingRate
	}
	return nil
}

type historyKey struct {
	exchange string // lowercased
	symbol   string
}

type historyPoint struct {
	at   time.Time
	snap MetricSnapshot
}

type historySeries struct {
	buf  []historyPoint
	head int
}

func (s *historySeries) push(p historyPoint, capacity int) {
	if len(s.buf) < capacity {
		s.buf = append(s.buf, p)
		return
	}
	s.buf[s.head] = p
	s.head = (s.head + 1) % capacity
}

// at returns the i-th entry oldest-first.
func (s *historySeries) at(i int) historyPoint {
	return s.buf[(s.head+i)%len(s.buf)]
}

// HistoryTracker keeps bounded per-(exchange, symbol) series of metric
// snapshots so the squeeze engine can measure percent changes over a
// lookback window. Exchange names are case-normalized on both write and read.
type HistoryTracker struct {
	mu        sync.Mutex
	windowMin int
	maxPoints int
	series    map[historyKey]*historySeries
	now       func() time.Time
}

// NewHistoryTracker builds a tracker with the given default lookback window
// in minutes and per-series point capacity. Non-positive arguments fall back
// to 60 minutes / 360 points.
func NewHistoryTracker(windowMinutes, maxPoints int) *HistoryTracker {
	if windowMinutes <= 0 {
		windowMinutes = defaultWindowMinutes
	}
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	return &HistoryTracker{
		windowMin: windowMinutes,
		maxPoints: maxPoints,
		series:    make(map[historyKey]*historySeries),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (t *HistoryTracker) key(exchange, symbol string) historyKey {
	return historyKey{exchange: strings.ToLower(exchange), symbol: symbol}
}

// Record appends a snapshot for the pair, evicting the oldest entry once the
// series is at capacity.
func (t *HistoryTracker) Record(exchange, symbol string, snap MetricSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := t.key(exchange, symbol)
	s := t.series[k]
	if s == nil {
		s = &historySeries{}
		t.series[k] = s
	}
	s.push(historyPoint{at: t.now(), snap: snap}, t.maxPoints)
}

// Delta returns the percent change of one snapshot field over the lookback
// window: (current - reference) / |reference| * 100. Current is the newest
// snapshot. The reference is the oldest snapshot recorded at or before
// (now - lookback); when no snapshot reaches that far back, the first usable
// value among the five oldest serves as a best-effort baseline. Nil when the
// series holds fewer than two snapshots, the field is missing at either end,
// or the reference value is zero.
func (t *HistoryTracker) Delta(exchange, symbol string, f MetricField, lookbackMinutes int) *float64 {
	if lookbackMinutes <= 0 {
		lookbackMinutes = t.windowMin
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.series[t.key(exchange, symbol)]
	if s == nil || len(s.buf) < 2 {
		return nil
	}

	cur := s.at(len(s.buf) - 1).snap.field(f)
	if cur == nil {
		return nil
	}

	cutoff := t.now().Add(-time.Duration(lookbackMinutes) * time.Minute)
	var ref *float64
	for i := 0; i < len(s.buf); i++ {
		if p := s.at(i); !p.at.After(cutoff) {
			ref = p.snap.field(f)
			break
		}
	}
	if ref == nil {
		limit := len(s.buf)
		if limit > 5 {
			limit = 5
		}
		for i := 0; i < limit; i++ {
			if v := s.at(i).snap.field(f); v != nil {
				ref = v
				break
			}
		}
	}
	if ref == nil || *ref == 0 {
		return nil
	}

	d := (*cur - *ref) / math.Abs(*ref) * 100
	return &d
}
