package mexc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://contract.mexc.com"
	rateLimit      = 10 // requests per second
)

func init() {
	exchange.RegisterCollector(exchange.MEXC, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
}

// Collector pulls the USDT-M futures universe from the contract API. Unlike
// the other venues this API reports numbers, not strings.
type Collector struct {
	baseURL string
	client  *exchange.Client
	mapper  *exchange.SymbolMapper
}

func NewCollector(baseURL string) *Collector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Collector{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  exchange.NewClient(exchange.MEXC, rateLimit),
		mapper:  exchange.NewSymbolMapper(),
	}
}

func (c *Collector) Name() string { return exchange.MEXC }

type tickerResponse struct {
	Success bool         `json:"success"`
	Code    int          `json:"code"`
	Data    []tickerItem `json:"data"`
}

type tickerItem struct {
	Symbol         string   `json:"symbol"`
	LastPrice      float64  `json:"lastPrice"`
	Bid1           float64  `json:"bid1"`
	Ask1           float64  `json:"ask1"`
	Volume24       float64  `json:"volume24"`
	HoldVol        float64  `json:"holdVol"`
	FundingRate    *float64 `json:"fundingRate"` // nil when the venue omits it
	NextSettleTime int64    `json:"nextSettleTime"`
}

func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var resp tickerResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/api/v1/contract/ticker", &resp); err != nil {
		return nil, fmt.Errorf("mexc tickers: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("mexc code %d: request rejected", resp.Code)
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(resp.Data))
	for _, it := range resp.Data {
		if !strings.HasSuffix(it.Symbol, "_USDT") {
			continue
		}
		t := &model.Ticker{
			Exchange:             exchange.MEXC,
			Symbol:               it.Symbol,
			NormalizedSymbol:     c.mapper.ToNormalized(it.Symbol, exchange.MEXC),
			LastPrice:            exchange.Positive(it.LastPrice),
			BidPrice:             exchange.Positive(it.Bid1),
			AskPrice:             exchange.Positive(it.Ask1),
			FundingRate:          exchange.AsPercent(it.FundingRate),
			NextFundingTime:      exchange.MsToTime(it.NextSettleTime),
			Volume24h:            exchange.Positive(it.Volume24),
			FundingIntervalHours: 8,
			DataOK:               true,
			Timestamp:            now,
		}
		// holdVol counts contracts; the last price converts it to quote value.
		switch {
		case it.HoldVol > 0 && it.LastPrice > 0:
			oi := it.HoldVol * it.LastPrice
			t.OpenInterest = &oi
		case it.HoldVol > 0:
			t.OpenInterest = exchange.Positive(it.HoldVol)
		}
		out = append(out, t)
	}
	return out, nil
}
