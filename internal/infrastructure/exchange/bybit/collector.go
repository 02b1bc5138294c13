package bybit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://api.bybit.com"
	rateLimit      = 10 // requests per second
)

func init() {
	exchange.RegisterCollector(exchange.Bybit, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
	exchange.RegisterFeed(exchange.Bybit, func(wsURL string) port.PriceFeed {
		return NewMarkFeed(wsURL)
	})
}

// Collector pulls the USDT linear perpetual universe from the v5 market API.
// A single tickers call carries prices, funding and open interest together.
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
		client:  exchange.NewClient(exchange.Bybit, rateLimit),
		mapper:  exchange.NewSymbolMapper(),
	}
}

func (c *Collector) Name() string { return exchange.Bybit }

type tickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []tickerItem `json:"list"`
	} `json:"result"`
}

type tickerItem struct {
	Symbol            string `json:"symbol"`
	MarkPrice         string `json:"markPrice"`
	IndexPrice        string `json:"indexPrice"`
	LastPrice         string `json:"lastPrice"`
	Bid1Price         string `json:"bid1Price"`
	Ask1Price         string `json:"ask1Price"`
	FundingRate       string `json:"fundingRate"`
	NextFundingTime   string `json:"nextFundingTime"`
	Turnover24h       string `json:"turnover24h"`
	OpenInterestValue string `json:"openInterestValue"`
}

func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var resp tickersResponse
	if err := c.client.GetJSON(ctx, c.baseURL+"/v5/market/tickers?category=linear", &resp); err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit retCode %d: %s", resp.RetCode, resp.RetMsg)
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(resp.Result.List))
	for _, it := range resp.Result.List {
		// category=linear also lists USDC contracts; keep the USDT book only.
		if !strings.HasSuffix(it.Symbol, "USDT") {
			continue
		}
		t := &model.Ticker{
			Exchange:             exchange.Bybit,
			Symbol:               it.Symbol,
			NormalizedSymbol:     c.mapper.ToNormalized(it.Symbol, exchange.Bybit),
			MarkPrice:            exchange.ParsePositive(it.MarkPrice),
			IndexPrice:           exchange.ParsePositive(it.IndexPrice),
			LastPrice:            exchange.ParsePositive(it.LastPrice),
			BidPrice:             exchange.ParsePositive(it.Bid1Price),
			AskPrice:             exchange.ParsePositive(it.Ask1Price),
			FundingRate:          exchange.AsPercent(exchange.ParseSigned(it.FundingRate)),
			OpenInterest:         exchange.ParsePositive(it.OpenInterestValue),
			Volume24h:            exchange.ParsePositive(it.Turnover24h),
			FundingIntervalHours: 8,
			DataOK:               true,
			Timestamp:            now,
		}
		if ms, err := strconv.ParseInt(it.NextFundingTime, 10, 64); err == nil {
			t.NextFundingTime = exchange.MsToTime(ms)
		}
		out = append(out, t)
	}
	return out, nil
}
