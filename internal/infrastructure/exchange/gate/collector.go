package gate

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
	defaultBaseURL = "https://api.gateio.ws/api/v4"
	rateLimit      = 10 // requests per second
)

func init() {
	exchange.RegisterCollector(exchange.Gate, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
}

// Collector pulls the USDT perpetual futures universe from the v4 API. One
// tickers call carries prices, funding and contract size together.
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
		client:  exchange.NewClient(exchange.Gate, rateLimit),
		mapper:  exchange.NewSymbolMapper(),
	}
}

func (c *Collector) Name() string { return exchange.Gate }

type tickerItem struct {
	Contract         string `json:"contract"`
	Last             string `json:"last"`
	MarkPrice        string `json:"mark_price"`
	IndexPrice       string `json:"index_price"`
	HighestBid       string `json:"highest_bid"`
	LowestAsk        string `json:"lowest_ask"`
	FundingRate      string `json:"funding_rate"`
	FundingNextApply int64  `json:"funding_next_apply"`
	TotalSize        string `json:"total_size"`
	Volume24hQuote   string `json:"volume_24h_quote"`
}

func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var items []tickerItem
	if err := c.client.GetJSON(ctx, c.baseURL+"/futures/usdt/tickers", &items); err != nil {
		return nil, fmt.Errorf("gate tickers: %w", err)
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(items))
	for _, it := range items {
		if !strings.HasSuffix(it.Contract, "_USDT") {
			continue
		}
		mark := exchange.ParsePositive(it.MarkPrice)
		t := &model.Ticker{
			Exchange:             exchange.Gate,
			Symbol:               it.Contract,
			NormalizedSymbol:     c.mapper.ToNormalized(it.Contract, exchange.Gate),
			MarkPrice:            mark,
			IndexPrice:           exchange.ParsePositive(it.IndexPrice),
			LastPrice:            exchange.ParsePositive(it.Last),
			BidPrice:             exchange.ParsePositive(it.HighestBid),
			AskPrice:             exchange.ParsePositive(it.LowestAsk),
			FundingRate:          exchange.AsPercent(exchange.ParseSigned(it.FundingRate)),
			Volume24h:            exchange.ParsePositive(it.Volume24hQuote),
			FundingIntervalHours: 8,
			DataOK:               true,
			Timestamp:            now,
		}
		// total_size counts contracts; the mark converts it to quote value.
		if size := exchange.ParsePositive(it.TotalSize); size != nil && mark != nil {
			oi := *size * *mark
			t.OpenInterest = &oi
		}
		if it.FundingNextApply > 0 {
			ts := time.Unix(it.FundingNextApply, 0).UTC()
			t.NextFundingTime = &ts
		}
		out = append(out, t)
	}
	return out, nil
}
