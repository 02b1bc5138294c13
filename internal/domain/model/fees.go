package model

import "strings"

// DefaultTakerFee (percent per side) applies when a venue is missing from the
// fee table.
const DefaultTakerFee = 0.05

// FeeSchedule holds a venue's maker/taker rates in percent per side.
type FeeSchedule struct {
	Maker float64 `json:"maker" toml:"maker"`
	Taker float64 `json:"taker" toml:"taker"`
}

// FeeTable maps lowercase exchange name to its fee schedule.
type FeeTable map[string]FeeSchedule

// Taker returns the venue's taker rate, or DefaultTakerFee for unknown venues.
func (t FeeTable) Taker(exchange string) float64 {
	if s, ok := t[strings.ToLower(exchange)]; ok {
		return s.Taker
	}
	return DefaultTakerFee
}

// DefaultFees returns the stock per-venue fee table.
func DefaultFees() FeeTable {
	return FeeTable{
		"binance":     {Maker: 0.02, Taker: 0.05},
		"bybit":       {Maker: 0.02, Taker: 0.055},
		"okx":         {Maker: 0.02, Taker: 0.05},
		"gate":        {Maker: 0.02, Taker: 0.05},
		"bitget":      {Maker: 0.02, Taker: 0.06},
		"mexc":        {Maker: 0.02, Taker: 0.06},
		"hyperliquid": {Maker: 0.02, Taker: 0.05},
	}
}

// DefaultFundingIntervals returns per-venue funding settlement cadence in
// hours. Most venues settle every 8h; Hyperliquid settles hourly.
func DefaultFundingIntervals() map[string]int {
	return map[string]int{
		"binance":     8,
		"bybit":       8,
		"okx":         8,
		"gate":        8,
		"bitget":      8,
		"mexc":        8,
		"hyperliquid": 1,
	}
}
