package model

import "time"

// RadarSnapshot is the full output of one refresh cycle: everything the
// collectors returned plus both engines' readings, along with per-venue
// collection errors for venues that failed the cycle.
type RadarSnapshot struct {
	Tickers       []*Ticker         `json:"tickers"`
	Opportunities []*ArbOpportunity `json:"opportunities"`
	Signals       []*SqueezeSignal  `json:"signals"`
	Errors        map[string]string `json:"errors,omitempty"` // venue -> error
	Timestamp     time.Time         `json:"ts"`
}

// HealthyTickers filters the snapshot down to tickers safe to trade on.
func (s *RadarSnapshot) HealthyTickers() []*Ticker {
	out := make([]*Ticker, 0, len(s.Tickers))
	for _, t := range s.Tickers {
		if t != nil && t.DataOK {
			out = append(out, t)
		}
	}
	return out
}
