package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"arbradar/internal/domain/model"
)

// maxMeasuredStability marks the point where a gap std-dev stops being a
// usable signal. Readings at or above it (including StabilitySentinel) are
// treated as "history too shallow": no penalty, no stability shown.
const maxMeasuredStability = 100.0

// ArbConfig holds the tunables of the funding-arbitrage scan. Percent values
// are funding-period percents, e.g. 0.05 means 0.05%.
type ArbConfig struct {
	MinNetEdge         float64        // floor on net edge per funding period
	GapWarningPct      float64        // |gap| above this gets a warning attached
	GapCutoffPct       float64        // |gap| strictly above this is dropped
	GapPenaltyWeight   float64        // stability std-dev multiplier in the edge formula
	DefaultSpreadBps   float64        // per-leg spread estimate when quotes are missing
	StabilityWindowMin int            // gap history lookback, minutes
	HistoryMaxPoints   int            // per-series gap history capacity
	Fees               model.FeeTable // taker schedule per exchange
}

// DefaultArbConfig mirrors the shipped configuration.
func DefaultArbConfig() ArbConfig {
	return ArbConfig{
		MinNetEdge:         0,
		GapWarningPct:      0.05,
		GapCutoffPct:       0.10,
		GapPenaltyWeight:   0.5,
		DefaultSpreadBps:   5.0,
		StabilityWindowMin: 60,
		HistoryMaxPoints:   360,
		Fees:               model.DefaultFees(),
	}
}

// FundingArbEngine scans cross-exchange ticker snapshots for delta-neutral
// funding captures: short the leg paying the higher funding, long the other,
// and keep the rate differential minus fees, spreads and gap risk.
type FundingArbEngine struct {
	cfg  ArbConfig
	gaps *GapTracker
	now  func() time.Time
}

func NewFundingArbEngine(cfg ArbConfig) *FundingArbEngine {
	if cfg.Fees == nil {
		cfg.Fees = model.DefaultFees()
	}
	if cfg.DefaultSpreadBps <= 0 {
		cfg.DefaultSpreadBps = 5.0
	}
	return &FundingArbEngine{
		cfg:  cfg,
		gaps: NewGapTracker(cfg.StabilityWindowMin, cfg.HistoryMaxPoints),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// FindOpportunities evaluates every unordered exchange pair over the symbols
// both sides list and returns the candidates that survive the gap and edge
// filters, best edge first. Gap history is recorded for every evaluated pair,
// rejected ones included, so stability estimates keep building across cycles.
// minVolume is a floor on the 24h quote volume of the thinner leg.
func (e *FundingArbEngine) FindOpportunities(tickers model.TickerMap, minVolume float64) []*model.ArbOpportunity {
	exchanges := make([]string, 0, len(tickers))
	for ex := range tickers {
		exchanges = append(exchanges, ex)
	}
	sort.Strings(exchanges)

	now := e.now()
	var opps []*model.ArbOpportunity
	for i := 0; i < len(exchanges); i++ {
		for j := i + 1; j < len(exchanges); j++ {
			exA, exB := exchanges[i], exchanges[j]
			byA, byB := tickers[exA], tickers[exB]

			symbols := make([]string, 0, len(byA))
			for sym := range byA {
				if _, ok := byB[sym]; ok {
					symbols = append(symbols, sym)
				}
			}
			sort.Strings(symbols)

			for _, sym := range symbols {
				if opp := e.evaluate(sym, exA, exB, byA[sym], byB[sym], minVolume, now); opp != nil {
					opps = append(opps, opp)
				}
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool { return opps[i].NetEdge > opps[j].NetEdge })
	return opps
}

// evaluate prices one symbol on one exchange pair. exA sorts before exB, so
// on a funding tie the short leg lands on the alphabetically first venue.
func (e *FundingArbEngine) evaluate(sym, exA, exB string, ta, tb *model.Ticker, minVolume float64, now time.Time) *model.ArbOpportunity {
	if ta == nil || tb == nil || !ta.DataOK || !tb.DataOK {
		return nil
	}
	if ta.FundingRate == nil || tb.FundingRate == nil || ta.MarkPrice == nil || tb.MarkPrice == nil {
		return nil
	}
	if math.Min(volumeOrZero(ta), volumeOrZero(tb)) < minVolume {
		return nil
	}

	short, long := ta, tb
	shortEx, longEx := exA, exB
	if *ta.FundingRate < *tb.FundingRate {
		short, long = tb, ta
		shortEx, longEx = exB, exA
	}

	shortMark, longMark := *short.MarkPrice, *long.MarkPrice
	if shortMark <= 0 || longMark <= 0 {
		return nil
	}
	gapPct := (longMark - shortMark) / ((longMark + shortMark) / 2) * 100

	// Record before any filter: the history must keep growing even while a
	// pair is being rejected, or stability would never converge.
	e.gaps.Record(sym, exA, exB, gapPct)
	stability := e.gaps.Stability(sym, exA, exB, e.cfg.StabilityWindowMin)

	spreadBps := e.legSpreadBps(short) + e.legSpreadBps(long)
	feePct := (e.cfg.Fees.Taker(shortEx) + e.cfg.Fees.Taker(longEx)) * 2

	// Deliberately asymmetric: the short leg's funding counts in full
	// magnitude, the long leg's only when negative. See DESIGN.md.
	shortFunding, longFunding := *short.FundingRate, *long.FundingRate
	receive := math.Abs(shortFunding)
	var pay float64
	if longFunding < 0 {
		pay = math.Abs(longFunding)
	}
	var penalty float64
	if stability < maxMeasuredStability {
		penalty = stability * e.cfg.GapPenaltyWeight
	}
	netEdge := receive - pay - feePct - spreadBps/100 - penalty

	if math.Abs(gapPct) > e.cfg.GapCutoffPct {
		return nil
	}
	var warning string
	if math.Abs(gapPct) > e.cfg.GapWarningPct {
		warning = fmt.Sprintf("Gap warning: %.3f%%", gapPct)
	}
	if netEdge < e.cfg.MinNetEdge {
		return nil
	}

	opp := &model.ArbOpportunity{
		Symbol:          sym,
		ShortExchange:   shortEx,
		ShortPrice:      shortMark,
		ShortFunding:    shortFunding,
		ShortFundingMin: short.MinutesToFunding(now),
		LongExchange:    longEx,
		LongPrice:       longMark,
		LongFunding:     longFunding,
		LongFundingMin:  long.MinutesToFunding(now),
		GapPct:          gapPct,
		SpreadCostBps:   spreadBps,
		NetEdge:         netEdge,
		BestLeg:         fmt.Sprintf("%s SHORT / %s LONG", displayName(shortEx), displayName(longEx)),
		Warning:         warning,
		Timestamp:       now,
	}
	if stability < maxMeasuredStability {
		opp.GapStability = &stability
	}
	return opp
}

func (e *FundingArbEngine) legSpreadBps(t *model.Ticker) float64 {
	if s := t.SpreadBps(); s != nil {
		return *s
	}
	return e.cfg.DefaultSpreadBps
}

func volumeOrZero(t *model.Ticker) float64 {
	if t.Volume24h == nil {
		return 0
	}
	return *t.Volume24h
}

// displayName renders an exchange id for humans: "binance" -> "Binance".
func displayName(ex string) string {
	if ex == "" {
		return ex
	}
	return strings.ToUpper(ex[:1]) + strings.ToLower(ex[1:])
}
