package exchange

import (
	"reflect"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC/USDT"},
		{"btcusdt", "BTC/USDT"},
		{"BTC-USDT-SWAP", "BTC/USDT"},
		{"BTC_USDT", "BTC/USDT"},
		{"ETH-USDT", "ETH/USDT"},
		{"ETHUSD", "ETH/USD"},
		{"SOLUSDC", "SOL/USDC"},
		{"DOGEBUSD", "DOGE/BUSD"},
		{"1000PEPEUSDT", "1000PEPE/USDT"},
		{"BTCUSDT_UMCBL", "BTC/USDT"},
		{"ETHUSDT-PERP", "ETH/USDT"},
		{"BTC/USDT", "BTC/USDT"},
		{"ABC-DEF", "ABC-DEF"}, // separator but no known quote
		{"XYZ", "XYZ"},
		{"USDT", "USDT"}, // no base left
	}
	for _, tc := range cases {
		if got := NormalizeSymbol(tc.in); got != tc.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSymbolMapperSpecialCases(t *testing.T) {
	m := NewSymbolMapper()

	if got := m.ToNormalized("BTC", Hyperliquid); got != "BTC/USDT" {
		t.Fatalf("hyperliquid BTC = %q, want BTC/USDT", got)
	}
	if got := m.ToNormalized("BTC-USDT-SWAP", OKX); got != "BTC/USDT" {
		t.Fatalf("okx swap = %q, want BTC/USDT", got)
	}
	if got := m.ToExchange("BTC/USDT", OKX); got != "BTC-USDT-SWAP" {
		t.Fatalf("okx native = %q, want BTC-USDT-SWAP", got)
	}
	if got := m.ToExchange("ETH/USDT", Hyperliquid); got != "ETH" {
		t.Fatalf("hyperliquid native = %q, want ETH", got)
	}
}

func TestSymbolMapperFormatRules(t *testing.T) {
	m := NewSymbolMapper()

	cases := []struct {
		exchange string
		want     string
	}{
		{Binance, "SOLUSDT"},
		{Bybit, "SOLUSDT"},
		{OKX, "SOL-USDT-SWAP"},
		{Gate, "SOL_USDT"},
		{MEXC, "SOL_USDT"},
		{Hyperliquid, "SOL"},
	}
	for _, tc := range cases {
		if got := m.ToExchange("SOL/USDT", tc.exchange); got != tc.want {
			t.Errorf("ToExchange(SOL/USDT, %s) = %q, want %q", tc.exchange, got, tc.want)
		}
	}

	if got := m.ToExchange("garbage", Binance); got != "" {
		t.Errorf("expected empty for unmappable symbol, got %q", got)
	}
}

func TestFindCommonSymbols(t *testing.T) {
	m := NewSymbolMapper()

	got := m.FindCommonSymbols(map[string][]string{
		Binance: {"BTCUSDT", "SOLUSDT"},
		OKX:     {"BTC-USDT-SWAP"},
		Gate:    {"DOGE_USDT"},
	})

	want := map[string]map[string]string{
		"BTC/USDT": {Binance: "BTCUSDT", OKX: "BTC-USDT-SWAP"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("common symbols = %v, want %v", got, want)
	}
}
