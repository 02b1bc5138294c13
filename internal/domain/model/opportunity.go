package model

import "time"

// ========== Funding Arbitrage Output ==========

// ArbOpportunity is one ranked cross-exchange funding opportunity. The short
// leg is the venue with the higher funding rate (it receives funding), the
// long leg the other. Values are fixed at evaluation time; every refresh
// cycle replaces the previous list wholesale.
type ArbOpportunity struct {
	Symbol string `json:"symbol"` // normalized BASE/QUOTE

	ShortExchange   string   `json:"short_exchange"`
	ShortPrice      float64  `json:"short_price"`
	ShortFunding    float64  `json:"short_funding"`               // percent
	ShortFundingMin *float64 `json:"short_funding_min,omitempty"` // minutes to settlement

	LongExchange   string   `json:"long_exchange"`
	LongPrice      float64  `json:"long_price"`
	LongFunding    float64  `json:"long_funding"`
	LongFundingMin *float64 `json:"long_funding_min,omitempty"`

	GapPct        float64  `json:"gap_pct"`                 // signed, (long-short)/mid*100
	SpreadCostBps float64  `json:"spread_cost_bps"`         // both legs summed
	GapStability  *float64 `json:"gap_stability,omitempty"` // recent gap std-dev; nil until history is deep enough
	NetEdge       float64  `json:"net_edge"`                // percent, costs deducted

	BestLeg   string    `json:"best_leg"` // e.g. "Binance SHORT / Bybit LONG"
	Warning   string    `json:"warning,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// FundingDiff is the raw funding differential between the two legs.
func (o *ArbOpportunity) FundingDiff() float64 {
	return o.ShortFunding - o.LongFunding
}

// ========== Squeeze Radar Output ==========

// Direction bias labels for squeeze signals.
const (
	BiasNeutral      = "Neutral"
	BiasLongSqueeze  = "Long squeeze risk ↑"
	BiasShortSqueeze = "Short squeeze risk ↑"
)

// SqueezeSignal is the composite positioning-risk read on one instrument of
// one venue. Raw inputs stay nil when their source was unavailable; the
// matching sub-score contributes zero. Same per-cycle lifecycle as
// ArbOpportunity.
type SqueezeSignal struct {
	Symbol   string `json:"symbol"` // normalized BASE/QUOTE
	Exchange string `json:"exchange"`

	Score         float64 `json:"score"` // 0-100 composite
	DirectionBias string  `json:"direction_bias"`

	OIDeltaPct    *float64 `json:"oi_delta_pct,omitempty"`
	PriceDeltaPct *float64 `json:"price_delta_pct,omitempty"`
	FundingLevel  *float64 `json:"funding_level,omitempty"`
	FundingDelta  *float64 `json:"funding_delta,omitempty"`
	SpreadStress  *float64 `json:"spread_stress,omitempty"` // bid/ask spread, bps

	OIScore           float64 `json:"oi_score"`
	PriceScore        float64 `json:"price_score"`
	CrowdingScore     float64 `json:"crowding_score"`
	FundingAccelScore float64 `json:"funding_accel_score"`
	LiquidityScore    float64 `json:"liquidity_score"`

	Notes     string    `json:"notes"`
	DataOK    bool      `json:"data_ok"`
	Timestamp time.Time `json:"ts"`
}
