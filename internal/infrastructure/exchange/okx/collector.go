package okx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://www.okx.com"
	rateLimit      = 10 // requests per second

	// The funding endpoint answers one instId per call. The sweep is capped
	// so a refresh cycle stays inside the rate budget.
	fundingTopN = 30

	swapSuffix = "-USDT-SWAP"
)

func init() {
	exchange.RegisterCollector(exchange.OKX, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
	exchange.RegisterFeed(exchange.OKX, func(wsURL string) port.PriceFeed {
		return NewMarkFeed(wsURL)
	})
}

// Collector pulls the USDT perpetual swap universe from the v5 API. Tickers
// and open interest are bulk endpoints; funding is per-instrument.
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
		client:  exchange.NewClient(exchange.OKX, rateLimit),
		mapper:  exchange.NewSymbolMapper(),
	}
}

func (c *Collector) Name() string { return exchange.OKX }

type tickersResponse struct {
	Code string       `json:"code"`
	Msg  string       `json:"msg"`
	Data []tickerItem `json:"data"`
}

type tickerItem struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	VolCcy24h string `json:"volCcy24h"`
}

type fundingResponse struct {
	Code string        `json:"code"`
	Data []fundingItem `json:"data"`
}

type fundingItem struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

type openInterestResponse struct {
	Code string   `json:"code"`
	Data []oiItem `json:"data"`
}

type oiItem struct {
	InstID string `json:"instId"`
	OiCcy  string `json:"oiCcy"`
}

// FetchAll merges the swap ticker book with bulk open interest, then sweeps
// the per-instrument funding endpoint for the head of the listing. Open
// interest and funding are best-effort.
func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var (
		wg      sync.WaitGroup
		ticks   tickersResponse
		tickErr error
		ois     openInterestResponse
		oiErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		tickErr = c.client.GetJSON(ctx, c.baseURL+"/api/v5/market/tickers?instType=SWAP", &ticks)
	}()
	go func() {
		defer wg.Done()
		oiErr = c.client.GetJSON(ctx, c.baseURL+"/api/v5/public/open-interest?instType=SWAP", &ois)
	}()
	wg.Wait()

	if tickErr != nil {
		return nil, fmt.Errorf("okx tickers: %w", tickErr)
	}
	if ticks.Code != "0" {
		return nil, fmt.Errorf("okx code %s: %s", ticks.Code, ticks.Msg)
	}

	oiByInst := make(map[string]*float64)
	switch {
	case oiErr != nil:
		log.Warn().Err(oiErr).Msg("okx open interest unavailable")
	case ois.Code != "0":
		log.Warn().Str("code", ois.Code).Msg("okx open interest rejected")
	default:
		for _, it := range ois.Data {
			if !strings.HasSuffix(it.InstID, swapSuffix) {
				continue
			}
			if v := exchange.ParsePositive(it.OiCcy); v != nil {
				oiByInst[it.InstID] = v
			}
		}
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(ticks.Data))
	for _, it := range ticks.Data {
		if !strings.HasSuffix(it.InstID, swapSuffix) {
			continue
		}
		out = append(out, &model.Ticker{
			Exchange:             exchange.OKX,
			Symbol:               it.InstID,
			NormalizedSymbol:     c.mapper.ToNormalized(it.InstID, exchange.OKX),
			LastPrice:            exchange.ParsePositive(it.Last),
			BidPrice:             exchange.ParsePositive(it.BidPx),
			AskPrice:             exchange.ParsePositive(it.AskPx),
			OpenInterest:         oiByInst[it.InstID],
			Volume24h:            exchange.ParsePositive(it.VolCcy24h),
			FundingIntervalHours: 8,
			DataOK:               true,
			Timestamp:            now,
		})
	}

	c.attachFunding(ctx, out)
	return out, nil
}

// attachFunding fills funding for the first fundingTopN instruments in
// listing order. Individual failures skip the instrument.
func (c *Collector) attachFunding(ctx context.Context, tickers []*model.Ticker) {
	n := fundingTopN
	if len(tickers) < n {
		n = len(tickers)
	}
	for _, t := range tickers[:n] {
		if ctx.Err() != nil {
			return
		}
		var resp fundingResponse
		endpoint := c.baseURL + "/api/v5/public/funding-rate?instId=" + url.QueryEscape(t.Symbol)
		if err := c.client.GetJSON(ctx, endpoint, &resp); err != nil {
			log.Warn().Err(err).Str("instId", t.Symbol).Msg("okx funding unavailable")
			continue
		}
		if resp.Code != "0" || len(resp.Data) == 0 {
			continue
		}
		item := resp.Data[0]
		t.FundingRate = exchange.AsPercent(exchange.ParseSigned(item.FundingRate))
		if ms, err := strconv.ParseInt(item.NextFundingTime, 10, 64); err == nil {
			t.NextFundingTime = exchange.MsToTime(ms)
		}
	}
}
