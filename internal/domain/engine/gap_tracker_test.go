package engine

import (
	"math"
	"testing"
	"time"
)

func TestGapTrackerSentinelWhenUnseen(t *testing.T) {
	tr := NewGapTracker(60, 360)
	if got := tr.Stability("BTC/USDT", "binance", "bybit", 60); got != StabilitySentinel {
		t.Fatalf("expected sentinel %v for unseen pair, got %v", StabilitySentinel, got)
	}
}

func TestGapTrackerSentinelBelowThreePoints(t *testing.T) {
	tr := NewGapTracker(60, 360)
	tr.Record("BTC/USDT", "binance", "bybit", 0.01)
	tr.Record("BTC/USDT", "binance", "bybit", 0.02)
	if got := tr.Stability("BTC/USDT", "binance", "bybit", 60); got != StabilitySentinel {
		t.Fatalf("expected sentinel with 2 points, got %v", got)
	}

	tr.Record("BTC/USDT", "binance", "bybit", 0.03)
	if got := tr.Stability("BTC/USDT", "binance", "bybit", 60); got == StabilitySentinel {
		t.Fatal("expected a real std-dev with 3 points, got sentinel")
	}
}

func TestGapTrackerPopulationStdDev(t *testing.T) {
	tr := NewGapTracker(60, 360)
	for _, g := range []float64{1, 2, 3} {
		tr.Record("ETH/USDT", "okx", "gate", g)
	}

	want := math.Sqrt(2.0 / 3.0) // population variance of {1,2,3}
	got := tr.Stability("ETH/USDT", "okx", "gate", 60)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("stability = %v, want %v", got, want)
	}
}

func TestGapTrackerPairOrderInsensitive(t *testing.T) {
	tr := NewGapTracker(60, 360)
	tr.Record("BTC/USDT", "bybit", "binance", 0.5)
	tr.Record("BTC/USDT", "binance", "bybit", 0.5)
	tr.Record("BTC/USDT", "bybit", "binance", 0.5)

	if got := tr.Stability("BTC/USDT", "binance", "bybit", 60); got != 0 {
		t.Fatalf("expected zero std-dev from one shared series, got %v", got)
	}
}

func TestGapTrackerWindowExcludesOldPoints(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	tr := NewGapTracker(60, 360)
	tr.now = func() time.Time { return clock }

	for _, g := range []float64{1, 2, 3} {
		tr.Record("BTC/USDT", "binance", "okx", g)
	}

	clock = base.Add(2 * time.Hour)
	tr.Record("BTC/USDT", "binance", "okx", 4)
	if got := tr.Stability("BTC/USDT", "binance", "okx", 60); got != StabilitySentinel {
		t.Fatalf("expected sentinel when only 1 point is inside the window, got %v", got)
	}

	// Widen the lookback and the old points count again.
	if got := tr.Stability("BTC/USDT", "binance", "okx", 180); got == StabilitySentinel {
		t.Fatal("expected a real std-dev over the wider lookback")
	}
}

func TestGapTrackerEvictsAtCapacity(t *testing.T) {
	tr := NewGapTracker(60, 4)
	for _, g := range []float64{100, 200, 7, 7, 7, 7} {
		tr.Record("BTC/USDT", "binance", "bybit", g)
	}

	// Only the last four survive, and they are identical.
	if got := tr.Stability("BTC/USDT", "binance", "bybit", 60); got != 0 {
		t.Fatalf("expected zero std-dev after eviction, got %v", got)
	}
}
