package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"arbradar/internal/domain/model"
)

// noteworthyScore is the sub-score level above which a note is attached to
// the signal.
const noteworthyScore = 50.0

// SqueezeConfig holds the tunables of the squeeze radar. Funding values are
// funding-period percents, e.g. 0.05 means 0.05%.
type SqueezeConfig struct {
	LookbackWindowMin int // delta lookback, minutes
	HistoryMaxPoints  int // per-series snapshot capacity

	// Saturation points: the reading that maps a sub-score to 100.
	OIShockMax         float64 // percent OI change
	PriceMoveMax       float64 // percent price change
	CrowdingMax        float64 // absolute funding level
	FundingAccelMax    float64 // funding change between cycles
	LiquidityStressMax float64 // bid/ask spread, bps

	// Composite weights; should sum to 1.
	WeightOIShock      float64
	WeightPriceMove    float64
	WeightCrowding     float64
	WeightFundingAccel float64
	WeightLiquidity    float64

	FundingExtremePct float64 // |funding| above this flags directional risk
}

// DefaultSqueezeConfig mirrors the shipped configuration.
func DefaultSqueezeConfig() SqueezeConfig {
	return SqueezeConfig{
		LookbackWindowMin:  60,
		HistoryMaxPoints:   360,
		OIShockMax:         10.0,
		PriceMoveMax:       5.0,
		CrowdingMax:        0.1,
		FundingAccelMax:    0.05,
		LiquidityStressMax: 50.0,
		WeightOIShock:      0.30,
		WeightPriceMove:    0.20,
		WeightCrowding:     0.20,
		WeightFundingAccel: 0.15,
		WeightLiquidity:    0.15,
		FundingExtremePct:  0.05,
	}
}

// SqueezeEngine rates how primed each contract is for a squeeze: fast open
// interest builds, sharp price moves, crowded funding, accelerating funding
// and stressed books all push the composite score toward 100.
type SqueezeEngine struct {
	cfg     SqueezeConfig
	history *HistoryTracker
	now     func() time.Time
}

func NewSqueezeEngine(cfg SqueezeConfig) *SqueezeEngine {
	return &SqueezeEngine{
		cfg:     cfg,
		history: NewHistoryTracker(cfg.LookbackWindowMin, cfg.HistoryMaxPoints),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Score records the ticker's current readings, then rates its squeeze setup.
// prevFunding is the funding level captured on the previous refresh cycle,
// nil when this contract has not been seen before.
func (e *SqueezeEngine) Score(t *model.Ticker, prevFunding *float64) *model.SqueezeSignal {
	price := t.MarkPrice
	if price == nil {
		price = t.LastPrice
	}
	e.history.Record(t.Exchange, t.Symbol, MetricSnapshot{
		OpenInterest: t.OpenInterest,
		Price:        price,
		FundingRate:  t.FundingRate,
	})

	oiDelta := e.history.Delta(t.Exchange, t.Symbol, FieldOpenInterest, e.cfg.LookbackWindowMin)
	priceDelta := e.history.Delta(t.Exchange, t.Symbol, FieldPrice, e.cfg.LookbackWindowMin)

	var fundingDelta *float64
	if t.FundingRate != nil && prevFunding != nil {
		d := *t.FundingRate - *prevFunding
		fundingDelta = &d
	}
	spread := t.SpreadBps()

	oiScore := e.subScore(oiDelta, e.cfg.OIShockMax)
	priceScore := e.subScore(priceDelta, e.cfg.PriceMoveMax)
	crowdingScore := e.subScore(t.FundingRate, e.cfg.CrowdingMax)
	accelScore := e.subScore(fundingDelta, e.cfg.FundingAccelMax)
	liquidityScore := e.subScore(spread, e.cfg.LiquidityStressMax)

	score := e.cfg.WeightOIShock*oiScore +
		e.cfg.WeightPriceMove*priceScore +
		e.cfg.WeightCrowding*crowdingScore +
		e.cfg.WeightFundingAccel*accelScore +
		e.cfg.WeightLiquidity*liquidityScore

	var notes []string
	if oiScore > noteworthyScore {
		notes = append(notes, fmt.Sprintf("OI shock %.1f%%", *oiDelta))
	}
	if crowdingScore > noteworthyScore {
		side := "short"
		if *t.FundingRate > 0 {
			side = "long"
		}
		notes = append(notes, "Crowded "+side)
	}
	if accelScore > noteworthyScore {
		notes = append(notes, "Funding accelerating")
	}
	noteText := "Normal"
	if len(notes) > 0 {
		noteText = strings.Join(notes, ", ")
	}

	return &model.SqueezeSignal{
		Symbol:            t.NormalizedSymbol,
		Exchange:          t.Exchange,
		Score:             roundTo(score, 1),
		DirectionBias:     e.direction(t.FundingRate, oiDelta),
		OIDeltaPct:        roundPtr(oiDelta, 2),
		PriceDeltaPct:     roundPtr(priceDelta, 2),
		FundingLevel:      t.FundingRate,
		FundingDelta:      roundPtr(fundingDelta, 4),
		SpreadStress:      roundPtr(spread, 1),
		OIScore:           roundTo(oiScore, 1),
		PriceScore:        roundTo(priceScore, 1),
		CrowdingScore:     roundTo(crowdingScore, 1),
		FundingAccelScore: roundTo(accelScore, 1),
		LiquidityScore:    roundTo(liquidityScore, 1),
		Notes:             noteText,
		DataOK:            t.DataOK,
		Timestamp:         e.now(),
	}
}

// AnalyzeAll scores every healthy ticker and returns the signals ranked by
// score, highest first. Tickers with data_ok unset are skipped entirely, so
// a venue outage neither pollutes history nor emits stale signals.
// prevFundings maps PrevFundingKey to the funding level of the previous
// cycle; the caller owns the map and refreshes it after consuming signals.
func (e *SqueezeEngine) AnalyzeAll(tickers []*model.Ticker, prevFundings map[string]float64) []*model.SqueezeSignal {
	signals := make([]*model.SqueezeSignal, 0, len(tickers))
	for _, t := range tickers {
		if t == nil || !t.DataOK {
			continue
		}
		var prev *float64
		if v, ok := prevFundings[PrevFundingKey(t.Exchange, t.Symbol)]; ok {
			prev = &v
		}
		signals = append(signals, e.Score(t, prev))
	}
	sort.SliceStable(signals, func(i, j int) bool { return signals[i].Score > signals[j].Score })
	return signals
}

// PrevFundingKey identifies a contract across refresh cycles by venue and
// venue-native symbol.
func PrevFundingKey(exchange, symbol string) string {
	return exchange + ":" + symbol
}

func (e *SqueezeEngine) subScore(v *float64, max float64) float64 {
	if v == nil || max <= 0 {
		return 0
	}
	return math.Min(100, math.Abs(*v)/max*100)
}

func (e *SqueezeEngine) direction(funding, oiDelta *float64) string {
	if funding == nil {
		return model.BiasNeutral
	}
	extreme := math.Abs(*funding) > e.cfg.FundingExtremePct
	rising := oiDelta != nil && *oiDelta > 0
	if extreme && rising {
		if *funding > 0 {
			return model.BiasLongSqueeze
		}
		return model.BiasShortSqueeze
	}
	return model.BiasNeutral
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v, decimals)
	return &r
}
