package engine

import (
	"math"
	"sync"
	"time"
)

// StabilitySentinel is returned by Stability when a gap series is unknown or
// has too little recent history to measure. It compares strictly worse than
// any real std-dev reading and must never be fed into a penalty term.
const StabilitySentinel = 999.0

// stabilityMinPoints is the fewest in-window readings that make a std-dev
// meaningful.
const stabilityMinPoints = 3

const (
	defaultWindowMinutes = 60
	defaultMaxPoints     = 360
)

type gapKey struct {
	symbol string
	exA    string // sorted: exA <= exB, so (a,b) and (b,a) share a series
	exB    string
}

type gapPoint struct {
	at  time.Time
	gap float64
}

// gapSeries is a fixed-capacity ring; head indexes the oldest entry once the
// buffer has wrapped.
type gapSeries struct {
	buf  []gapPoint
	head int
}

func (s *gapSeries) push(p gapPoint, capacity int) {
	if len(s.buf) < capacity {
		s.buf = append(s.buf, p)
		return
	}
	s.buf[s.head] = p
	s.head = (s.head + 1) % capacity
}

func (s *gapSeries) at(i int) gapPoint {
	return s.buf[(s.head+i)%len(s.buf)]
}

// GapTracker keeps a bounded window of cross-exchange price-gap readings per
// (symbol, exchange-pair) and quantifies how noisy the gap has been recently.
// It is process-lifetime state: the arbitrage engine appends on every
// evaluation and reads back across refresh cycles.
type GapTracker struct {
	mu        sync.Mutex
	windowMin int
	maxPoints int
	series    map[gapKey]*gapSeries
	now       func() time.Time
}

// NewGapTracker builds a tracker with the given default lookback window in
// minutes and per-series point capacity. Non-positive arguments fall back to
// 60 minutes / 360 points.
func NewGapTracker(windowMinutes, maxPoints int) *GapTracker {
	if windowMinutes <= 0 {
		windowMinutes = defaultWindowMinutes
	}
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}
	return &GapTracker{
		windowMin: windowMinutes,
		maxPoints: maxPoints,
		series:    make(map[gapKey]*gapSeries),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (t *GapTracker) key(symbol, exA, exB string) gapKey {
	if exA > exB {
		exA, exB = exB, exA
	}
	return gapKey{symbol: symbol, exA: exA, exB: exB}
}

// Record appends a gap reading for the pair, evicting the oldest entry once
// the series is at capacity.
func (t *GapTracker) Record(symbol, exA, exB string, gapPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := t.key(symbol, exA, exB)
	s := t.series[k]
	if s == nil {
		s = &gapSeries{}
		t.series[k] = s
	}
	s.push(gapPoint{at: t.now(), gap: gapPct}, t.maxPoints)
}

// Stability returns the population standard deviation of the gap readings
// recorded within the lookback window (minutes; non-positive uses the tracker
// default). StabilitySentinel when the pair was never recorded or fewer than
// three readings fall inside the window.
func (t *GapTracker) Stability(symbol, exA, exB string, lookbackMinutes int) float64 {
	if lookbackMinutes <= 0 {
		lookbackMinutes = t.windowMin
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.series[t.key(symbol, exA, exB)]
	if s == nil {
		return StabilitySentinel
	}

	cutoff := t.now().Add(-time.Duration(lookbackMinutes) * time.Minute)
	recent := make([]float64, 0, len(s.buf))
	for i := 0; i < len(s.buf); i++ {
		if p := s.at(i); !p.at.Before(cutoff) {
			recent = append(recent, p.gap)
		}
	}
	if len(recent) < stabilityMinPoints {
		return StabilitySentinel
	}
	return popStdDev(recent)
}

func popStdDev(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}
