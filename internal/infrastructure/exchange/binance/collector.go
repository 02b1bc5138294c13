package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://fapi.binance.com"
	rateLimit      = 10 // requests per second
)

func init() {
	exchange.RegisterCollector(exchange.Binance, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
	exchange.RegisterFeed(exchange.Binance, func(wsURL string) port.PriceFeed {
		return NewMarkFeed(wsURL)
	})
}

// Collector pulls the USDT-M perpetual universe from the fapi REST API.
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
		client:  exchange.NewClient(exchange.Binance, rateLimit),
		mapper:  exchange.NewSymbolMapper(),
	}
}

func (c *Collector) Name() string { return exchange.Binance }

type ticker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	BidPrice    string `json:"bidPrice"`
	AskPrice    string `json:"askPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

type premiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

// FetchAll merges the 24h ticker book with the premium index, which carries
// both mark prices and funding. The premium index is best-effort: losing it
// degrades the tickers rather than failing the venue.
func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var (
		wg      sync.WaitGroup
		ticks   []ticker24h
		tickErr error
		prems   []premiumIndex
		premErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		tickErr = c.client.GetJSON(ctx, c.baseURL+"/fapi/v1/ticker/24hr", &ticks)
	}()
	go func() {
		defer wg.Done()
		premErr = c.client.GetJSON(ctx, c.baseURL+"/fapi/v1/premiumIndex", &prems)
	}()
	wg.Wait()

	if tickErr != nil {
		return nil, fmt.Errorf("binance tickers: %w", tickErr)
	}
	if premErr != nil {
		log.Warn().Err(premErr).Msg("binance premium index unavailable")
	}

	premBySymbol := make(map[string]premiumIndex, len(prems))
	for _, p := range prems {
		premBySymbol[p.Symbol] = p
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(ticks))
	for _, tk := range ticks {
		if !isPerp(tk.Symbol) {
			continue
		}
		t := &model.Ticker{
			Exchange:             exchange.Binance,
			Symbol:               tk.Symbol,
			NormalizedSymbol:     c.mapper.ToNormalized(tk.Symbol, exchange.Binance),
			LastPrice:            exchange.ParsePositive(tk.LastPrice),
			BidPrice:             exchange.ParsePositive(tk.BidPrice),
			AskPrice:             exchange.ParsePositive(tk.AskPrice),
			Volume24h:            exchange.ParsePositive(tk.QuoteVolume),
			FundingIntervalHours: 8,
			DataOK:               true,
			Timestamp:            now,
		}
		if p, ok := premBySymbol[tk.Symbol]; ok {
			t.MarkPrice = exchange.ParsePositive(p.MarkPrice)
			t.IndexPrice = exchange.ParsePositive(p.IndexPrice)
			t.FundingRate = exchange.AsPercent(exchange.ParseSigned(p.LastFundingRate))
			t.NextFundingTime = exchange.MsToTime(p.NextFundingTime)
		}
		out = append(out, t)
	}
	return out, nil
}

// isPerp keeps USDT-margined perpetuals and drops dated futures, which carry
// an underscore delivery suffix.
func isPerp(symbol string) bool {
	return strings.HasSuffix(symbol, "USDT") && !strings.Contains(symbol, "_")
}
