package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"arbradar/internal/infrastructure/exchange"
)

func newTestCollector(t *testing.T, handler http.Handler) *Collector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCollector(srv.URL)
}

// testFastClient lifts the request pacing so sweep tests finish quickly.
func testFastClient() *exchange.Client {
	return exchange.NewClient(exchange.OKX, 10000)
}

func marketMux(t *testing.T, fundingCalls *int32) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instType"); got != "SWAP" {
			t.Errorf("instType = %q", got)
		}
		w.Write([]byte(`{
			"code": "0",
			"msg": "",
			"data": [
				{"instId": "BTC-USDT-SWAP", "last": "43000.00", "bidPx": "42999.50", "askPx": "43000.50", "volCcy24h": "1500000000"},
				{"instId": "BTC-USD-SWAP", "last": "43000.00", "bidPx": "42999.00", "askPx": "43001.00", "volCcy24h": "900000000"},
				{"instId": "ETH-USDT-SWAP", "last": "2300.00", "bidPx": "0", "askPx": "0", "volCcy24h": "800000000"}
			]
		}`))
	})
	mux.HandleFunc("/api/v5/public/open-interest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"code": "0",
			"data": [
				{"instId": "BTC-USDT-SWAP", "oiCcy": "12000.5"},
				{"instId": "BTC-USD-SWAP", "oiCcy": "8000"},
				{"instId": "ETH-USDT-SWAP", "oiCcy": "0"}
			]
		}`))
	})
	mux.HandleFunc("/api/v5/public/funding-rate", func(w http.ResponseWriter, r *http.Request) {
		if fundingCalls != nil {
			atomic.AddInt32(fundingCalls, 1)
		}
		inst := r.URL.Query().Get("instId")
		if inst == "BTC-USDT-SWAP" {
			w.Write([]byte(`{"code": "0", "data": [{"instId": "BTC-USDT-SWAP", "fundingRate": "0.0001", "nextFundingTime": "1735689600000"}]}`))
			return
		}
		w.Write([]byte(fmt.Sprintf(`{"code": "0", "data": [{"instId": %q, "fundingRate": "-0.0002", "nextFundingTime": ""}]}`, inst)))
	})
	return mux
}

func TestFetchAll(t *testing.T) {
	var fundingCalls int32
	c := newTestCollector(t, marketMux(t, &fundingCalls))

	tickers, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2 (coin-margined swap filtered)", len(tickers))
	}
	if n := atomic.LoadInt32(&fundingCalls); n != 2 {
		t.Fatalf("funding calls = %d, want one per kept instrument", n)
	}

	btc := tickers[0]
	if btc.Symbol != "BTC-USDT-SWAP" || btc.NormalizedSymbol != "BTC/USDT" {
		t.Fatalf("symbol = %q normalized = %q", btc.Symbol, btc.NormalizedSymbol)
	}
	if btc.MarkPrice != nil {
		t.Fatalf("mark = %v, endpoint carries none", btc.MarkPrice)
	}
	if btc.LastPrice == nil || *btc.LastPrice != 43000.0 {
		t.Fatalf("last = %v", btc.LastPrice)
	}
	if btc.OpenInterest == nil || *btc.OpenInterest != 12000.5 {
		t.Fatalf("open interest = %v", btc.OpenInterest)
	}
	if btc.FundingRate == nil || *btc.FundingRate != 0.01 {
		t.Fatalf("funding = %v, want 0.01 percent", btc.FundingRate)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if btc.NextFundingTime == nil || !btc.NextFundingTime.Equal(want) {
		t.Fatalf("next funding = %v, want %v", btc.NextFundingTime, want)
	}

	eth := tickers[1]
	if eth.Symbol != "ETH-USDT-SWAP" {
		t.Fatalf("second ticker = %q", eth.Symbol)
	}
	if eth.BidPrice != nil || eth.AskPrice != nil {
		t.Fatal("zero book must come back absent")
	}
	if eth.OpenInterest != nil {
		t.Fatalf("zero open interest must come back absent, got %v", eth.OpenInterest)
	}
	if eth.FundingRate == nil || *eth.FundingRate != -0.02 {
		t.Fatalf("funding = %v, want -0.02 percent", eth.FundingRate)
	}
	if eth.NextFundingTime != nil {
		t.Fatalf("next funding = %v, want nil on empty ts", eth.NextFundingTime)
	}
}

func TestFetchAllCodeError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "50011", "msg": "rate limit", "data": []}`))
	})
	mux.HandleFunc("/api/v5/public/open-interest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "0", "data": []}`))
	})
	c := newTestCollector(t, mux)

	_, err := c.FetchAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "50011") {
		t.Fatalf("err = %v, want code 50011", err)
	}
}

func TestFetchAllToleratesOpenInterestFailure(t *testing.T) {
	mux := marketMux(t, nil)
	wrapped := http.NewServeMux()
	wrapped.HandleFunc("/api/v5/public/open-interest", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	wrapped.Handle("/", mux)
	c := newTestCollector(t, wrapped)

	tickers, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(tickers) != 2 {
		t.Fatalf("got %d tickers, want 2", len(tickers))
	}
	for _, tk := range tickers {
		if tk.OpenInterest != nil {
			t.Fatalf("%s open interest = %v, want nil when endpoint is down", tk.Symbol, tk.OpenInterest)
		}
	}
}

func TestFundingSweepCapped(t *testing.T) {
	var fundingCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < fundingTopN+10; i++ {
			items = append(items, fmt.Sprintf(`{"instId": "C%03d-USDT-SWAP", "last": "1", "bidPx": "1", "askPx": "1", "volCcy24h": "1"}`, i))
		}
		fmt.Fprintf(w, `{"code": "0", "msg": "", "data": [%s]}`, strings.Join(items, ","))
	})
	mux.HandleFunc("/api/v5/public/open-interest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "0", "data": []}`))
	})
	mux.HandleFunc("/api/v5/public/funding-rate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fundingCalls, 1)
		w.Write([]byte(`{"code": "0", "data": []}`))
	})
	c := newTestCollector(t, mux)
	c.client = testFastClient()

	tickers, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(tickers) != fundingTopN+10 {
		t.Fatalf("got %d tickers", len(tickers))
	}
	if n := atomic.LoadInt32(&fundingCalls); n != fundingTopN {
		t.Fatalf("funding calls = %d, want %d", n, fundingTopN)
	}
}
