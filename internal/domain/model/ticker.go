package model

import (
	"strings"
	"time"
)

// Ticker is one normalized point-in-time snapshot of a perpetual instrument on
// a single venue. Collectors produce it once per refresh cycle; engines only
// read it and never retain it past the call.
//
// Optional fields are pointers: nil means "unavailable this cycle", which is
// distinct from a real zero.
type Ticker struct {
	Exchange         string `json:"exchange"`          // lowercase venue id, e.g. "binance"
	Symbol           string `json:"symbol"`            // venue-native, e.g. "BTC-USDT-SWAP"
	NormalizedSymbol string `json:"normalized_symbol"` // canonical BASE/QUOTE

	MarkPrice  *float64 `json:"mark_price,omitempty"`
	IndexPrice *float64 `json:"index_price,omitempty"`
	LastPrice  *float64 `json:"last_price,omitempty"`
	BidPrice   *float64 `json:"bid_price,omitempty"`
	AskPrice   *float64 `json:"ask_price,omitempty"`

	FundingRate          *float64   `json:"funding_rate,omitempty"` // percent, signed (0.01 == 0.01%)
	PredictedFundingRate *float64   `json:"predicted_funding_rate,omitempty"`
	NextFundingTime      *time.Time `json:"next_funding_time,omitempty"`
	FundingIntervalHours int        `json:"funding_interval_hours"`

	OpenInterest         *float64 `json:"open_interest,omitempty"` // quote-denominated
	OpenInterestChange1h *float64 `json:"open_interest_change_1h,omitempty"`

	Volume24h *float64 `json:"volume_24h,omitempty"` // 24h quote-denominated turnover

	DataOK    bool      `json:"data_ok"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// SpreadBps returns the bid/ask spread in basis points. Defined only when both
// sides of the book were reported and the bid is positive; nil otherwise.
func (t *Ticker) SpreadBps() *float64 {
	if t.BidPrice == nil || t.AskPrice == nil || *t.BidPrice <= 0 {
		return nil
	}
	mid := (*t.BidPrice + *t.AskPrice) / 2
	bps := (*t.AskPrice - *t.BidPrice) / mid * 10000
	return &bps
}

// MinutesToFunding returns minutes until the next funding settlement, floored
// at zero. Nil when the venue did not report a settlement time.
func (t *Ticker) MinutesToFunding(now time.Time) *float64 {
	if t.NextFundingTime == nil {
		return nil
	}
	m := t.NextFundingTime.Sub(now).Minutes()
	if m < 0 {
		m = 0
	}
	return &m
}

// TickerMap is the per-cycle engine input: exchange -> normalized symbol -> ticker.
type TickerMap map[string]map[string]*Ticker

// BuildTickerMap indexes collector output by exchange and normalized symbol.
// Later duplicates of the same normalized symbol on one venue win, matching
// collector ordering.
func BuildTickerMap(byExchange map[string][]*Ticker) TickerMap {
	out := make(TickerMap, len(byExchange))
	for exchange, tickers := range byExchange {
		ex := strings.ToLower(exchange)
		m := make(map[string]*Ticker, len(tickers))
		for _, t := range tickers {
			if t == nil || t.NormalizedSymbol == "" {
				continue
			}
			m[t.NormalizedSymbol] = t
		}
		out[ex] = m
	}
	return out
}
