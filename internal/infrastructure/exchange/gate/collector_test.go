package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const tickersBody = `[
	{
		"contract": "BTC_USDT",
		"last": "43000.00",
		"mark_price": "43000.50",
		"index_price": "43001.00",
		"highest_bid": "42999.50",
		"lowest_ask": "43000.50",
		"funding_rate": "0.0001",
		"funding_next_apply": 1735689600,
		"total_size": "20000",
		"volume_24h_quote": "1200000000"
	},
	{
		"contract": "BTC_USD",
		"last": "43000.00",
		"mark_price": "43000.50",
		"funding_rate": "0.0001"
	},
	{
		"contract": "NEW_USDT",
		"last": "0",
		"mark_price": "0",
		"index_price": "0",
		"highest_bid": "0",
		"lowest_ask": "0",
		"funding_rate": "0",
		"total_size": "5000",
		"volume_24h_quote": "0"
	}
]`

func newTestCollector(t *testing.T, handler http.HandlerFunc) *Collector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCollector(srv.URL)
}

func TestFetchAll(t *testing.T) {
	var gotPath string
	c := newTestCollector(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(tickersBody))
	})

	tickers, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if gotPath != "/futures/usdt/tickers" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2 (coin-margined contract filtered)", len(tickers))
	}

	btc := tickers[0]
	if btc.Symbol != "BTC_USDT" || btc.NormalizedSymbol != "BTC/USDT" {
		t.Fatalf("symbol = %q normalized = %q", btc.Symbol, btc.NormalizedSymbol)
	}
	if btc.MarkPrice == nil || *btc.MarkPrice != 43000.5 {
		t.Fatalf("mark = %v", btc.MarkPrice)
	}
	if btc.FundingRate == nil || *btc.FundingRate != 0.01 {
		t.Fatalf("funding = %v, want 0.01 percent", btc.FundingRate)
	}
	if btc.OpenInterest == nil || *btc.OpenInterest != 20000*43000.5 {
		t.Fatalf("open interest = %v, want contracts times mark", btc.OpenInterest)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if btc.NextFundingTime == nil || !btc.NextFundingTime.Equal(want) {
		t.Fatalf("next funding = %v, want %v", btc.NextFundingTime, want)
	}
	if btc.Volume24h == nil || *btc.Volume24h != 1.2e9 {
		t.Fatalf("volume = %v", btc.Volume24h)
	}

	fresh := tickers[1]
	if fresh.Symbol != "NEW_USDT" {
		t.Fatalf("second ticker = %q", fresh.Symbol)
	}
	if fresh.MarkPrice != nil || fresh.BidPrice != nil || fresh.Volume24h != nil {
		t.Fatal("zero-valued prices must come back absent")
	}
	if fresh.OpenInterest != nil {
		t.Fatalf("open interest = %v, want nil without a mark", fresh.OpenInterest)
	}
	if fresh.FundingRate == nil || *fresh.FundingRate != 0 {
		t.Fatalf("zero funding must survive, got %v", fresh.FundingRate)
	}
	if fresh.NextFundingTime != nil {
		t.Fatalf("next funding = %v, want nil when unset", fresh.NextFundingTime)
	}
}

func TestFetchAllHTTPError(t *testing.T) {
	c := newTestCollector(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	if _, err := c.FetchAll(context.Background()); err == nil {
		t.Fatal("want error on 503")
	}
}
