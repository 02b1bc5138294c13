package engine

import (
	"math"
	"testing"
	"time"

	"arbradar/internal/domain/model"
)

func oiTick(ex, sym string, funding, mark, oi float64) *model.Ticker {
	return &model.Ticker{
		Exchange:         ex,
		Symbol:           sym,
		NormalizedSymbol: sym,
		FundingRate:      f64(funding),
		MarkPrice:        f64(mark),
		OpenInterest:     f64(oi),
		DataOK:           true,
		Timestamp:        time.Now().UTC(),
	}
}

// squeezeClock wires a mutable test clock into the engine and its history.
func squeezeClock(e *SqueezeEngine, clock *time.Time) {
	now := func() time.Time { return *clock }
	e.now = now
	e.history.now = now
}

func TestScoreLongSqueezeSetup(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	squeezeClock(e, &clock)

	e.Score(oiTick("okx", "BTC-USDT-SWAP", 0.08, 100, 100), nil)
	clock = clock.Add(61 * time.Minute)
	sig := e.Score(oiTick("okx", "BTC-USDT-SWAP", 0.08, 100, 115), nil)

	if sig.OIDeltaPct == nil || math.Abs(*sig.OIDeltaPct-15) > 1e-9 {
		t.Fatalf("oi delta = %v, want 15", sig.OIDeltaPct)
	}
	if sig.OIScore != 100 {
		t.Fatalf("oi score = %v, want 100 (15%% saturates a 10%% max)", sig.OIScore)
	}
	if sig.CrowdingScore != 80 {
		t.Fatalf("crowding score = %v, want 80", sig.CrowdingScore)
	}
	if math.Abs(sig.Score-46.0) > 1e-9 {
		t.Fatalf("score = %v, want 46.0", sig.Score)
	}
	if sig.DirectionBias != model.BiasLongSqueeze {
		t.Fatalf("direction = %q, want %q", sig.DirectionBias, model.BiasLongSqueeze)
	}
	if sig.Notes != "OI shock 15.0%, Crowded long" {
		t.Fatalf("notes = %q", sig.Notes)
	}
}

func TestScoreShortSqueezeDirection(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	squeezeClock(e, &clock)

	e.Score(oiTick("bybit", "ETHUSDT", -0.08, 100, 100), nil)
	clock = clock.Add(61 * time.Minute)
	sig := e.Score(oiTick("bybit", "ETHUSDT", -0.08, 100, 115), nil)

	if sig.DirectionBias != model.BiasShortSqueeze {
		t.Fatalf("direction = %q, want %q", sig.DirectionBias, model.BiasShortSqueeze)
	}
	if sig.Notes != "OI shock 15.0%, Crowded short" {
		t.Fatalf("notes = %q", sig.Notes)
	}
}

func TestScoreNeutralWhenOIFalling(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	squeezeClock(e, &clock)

	e.Score(oiTick("binance", "BTCUSDT", 0.08, 100, 100), nil)
	clock = clock.Add(61 * time.Minute)
	sig := e.Score(oiTick("binance", "BTCUSDT", 0.08, 100, 90), nil)

	// Extreme funding alone is not enough; OI has to be building.
	if sig.DirectionBias != model.BiasNeutral {
		t.Fatalf("direction = %q, want %q", sig.DirectionBias, model.BiasNeutral)
	}
	if sig.Notes != "OI shock -10.0%, Crowded long" {
		t.Fatalf("notes = %q", sig.Notes)
	}
}

func TestScoreNeutralWhenFundingMild(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	squeezeClock(e, &clock)

	e.Score(oiTick("binance", "BTCUSDT", 0.03, 100, 100), nil)
	clock = clock.Add(61 * time.Minute)
	sig := e.Score(oiTick("binance", "BTCUSDT", 0.03, 100, 104), nil)

	if sig.DirectionBias != model.BiasNeutral {
		t.Fatalf("direction = %q, want %q", sig.DirectionBias, model.BiasNeutral)
	}
	if sig.Notes != "Normal" {
		t.Fatalf("notes = %q", sig.Notes)
	}
}

func TestFirstCycleHasNoDeltas(t *testing.T) {
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	sig := e.Score(oiTick("binance", "BTCUSDT", 0.01, 100, 100), nil)

	if sig.OIDeltaPct != nil || sig.PriceDeltaPct != nil {
		t.Fatal("expected nil deltas on the first snapshot")
	}
	if sig.OIScore != 0 || sig.PriceScore != 0 {
		t.Fatalf("expected zero delta scores, got oi=%v price=%v", sig.OIScore, sig.PriceScore)
	}
}

func TestPriceFallsBackToLast(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	squeezeClock(e, &clock)

	mk := func(last float64) *model.Ticker {
		return &model.Ticker{
			Exchange:         "gate",
			Symbol:           "BTC_USDT",
			NormalizedSymbol: "BTC/USDT",
			LastPrice:        f64(last),
			DataOK:           true,
		}
	}
	e.Score(mk(200), nil)
	clock = clock.Add(61 * time.Minute)
	sig := e.Score(mk(220), nil)

	if sig.PriceDeltaPct == nil || math.Abs(*sig.PriceDeltaPct-10) > 1e-9 {
		t.Fatalf("price delta = %v, want 10", sig.PriceDeltaPct)
	}
	if sig.PriceScore != 100 {
		t.Fatalf("price score = %v, want 100 (10%% saturates a 5%% max)", sig.PriceScore)
	}
}

func TestSpreadStressScored(t *testing.T) {
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	tk := &model.Ticker{
		Exchange:         "binance",
		Symbol:           "BTCUSDT",
		NormalizedSymbol: "BTC/USDT",
		MarkPrice:        f64(100),
		BidPrice:         f64(100),
		AskPrice:         f64(100.1),
		DataOK:           true,
	}
	sig := e.Score(tk, nil)

	if sig.SpreadStress == nil || *sig.SpreadStress != 10.0 {
		t.Fatalf("spread stress = %v, want 10.0 bps", sig.SpreadStress)
	}
	if sig.LiquidityScore != 20.0 {
		t.Fatalf("liquidity score = %v, want 20.0", sig.LiquidityScore)
	}
}

func TestAnalyzeAllFundingAcceleration(t *testing.T) {
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	prev := map[string]float64{
		PrevFundingKey("binance", "BTCUSDT"): 0.0,
	}

	sigs := e.AnalyzeAll([]*model.Ticker{oiTick("binance", "BTCUSDT", 0.08, 100, 100)}, prev)
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(sigs))
	}
	sig := sigs[0]

	if sig.FundingDelta == nil || math.Abs(*sig.FundingDelta-0.08) > 1e-9 {
		t.Fatalf("funding delta = %v, want 0.08", sig.FundingDelta)
	}
	if sig.FundingAccelScore != 100 {
		t.Fatalf("accel score = %v, want 100", sig.FundingAccelScore)
	}
	if sig.Notes != "Crowded long, Funding accelerating" {
		t.Fatalf("notes = %q", sig.Notes)
	}
}

func TestAnalyzeAllSkipsUnhealthy(t *testing.T) {
	e := NewSqueezeEngine(DefaultSqueezeConfig())

	bad := oiTick("bybit", "ETHUSDT", 0.01, 100, 100)
	bad.DataOK = false
	good := oiTick("binance", "BTCUSDT", 0.01, 100, 100)

	sigs := e.AnalyzeAll([]*model.Ticker{bad, good}, nil)
	if len(sigs) != 1 || sigs[0].Exchange != "binance" {
		t.Fatalf("expected only the healthy ticker, got %d signals", len(sigs))
	}
	// The outage must not leave a trace in history either.
	if len(e.history.series) != 1 {
		t.Fatalf("expected 1 history series, got %d", len(e.history.series))
	}
}

func TestAnalyzeAllRanksByScore(t *testing.T) {
	e := NewSqueezeEngine(DefaultSqueezeConfig())
	sigs := e.AnalyzeAll([]*model.Ticker{
		oiTick("binance", "DOGEUSDT", 0.001, 100, 100),
		oiTick("binance", "BTCUSDT", 0.09, 100, 100),
	}, nil)

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(sigs))
	}
	if sigs[0].Symbol != "BTCUSDT" {
		t.Fatalf("expected the crowded contract first, got %s", sigs[0].Symbol)
	}
	if sigs[0].Score < sigs[1].Score {
		t.Fatal("signals not ranked by score")
	}
}
