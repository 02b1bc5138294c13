package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://api.hyperliquid.xyz"
	rateLimit      = 5 // requests per second, tighter than the CEX venues
)

func init() {
	exchange.RegisterCollector(exchange.Hyperliquid, func(baseURL string) port.Collector {
		return NewCollector(baseURL)
	})
}

// Collector pulls the perp universe from the info endpoint. The venue settles
// funding hourly and lists bare coin names instead of pairs.
type Collector struct {
	baseURL string
	client  *exchange.Client
}

func NewCollector(baseURL string) *Collector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Collector{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  exchange.NewClient(exchange.Hyperliquid, rateLimit),
	}
}

func (c *Collector) Name() string { return exchange.Hyperliquid }

type infoRequest struct {
	Type string `json:"type"`
}

type metaPayload struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type assetCtx struct {
	MarkPx       string `json:"markPx"`
	Funding      string `json:"funding"`
	OpenInterest string `json:"openInterest"`
}

// FetchAll posts the metaAndAssetCtxs query. The response is a two-element
// array: the coin universe, then one context per coin in the same order.
func (c *Collector) FetchAll(ctx context.Context) ([]*model.Ticker, error) {
	var raw []json.RawMessage
	if err := c.client.PostJSON(ctx, c.baseURL+"/info", infoRequest{Type: "metaAndAssetCtxs"}, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid info: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("hyperliquid info: got %d elements, want meta and contexts", len(raw))
	}
	var meta metaPayload
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, fmt.Errorf("hyperliquid meta: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, fmt.Errorf("hyperliquid contexts: %w", err)
	}

	now := time.Now().UTC()
	out := make([]*model.Ticker, 0, len(ctxs))
	for i, ac := range ctxs {
		if i >= len(meta.Universe) {
			break
		}
		name := meta.Universe[i].Name
		if name == "" {
			continue
		}
		mark := exchange.ParsePositive(ac.MarkPx)
		t := &model.Ticker{
			Exchange: exchange.Hyperliquid,
			Symbol:   name,
			// perps quote in USDC; the cross-venue lane treats them as USDT
			NormalizedSymbol:     name + "/USDT",
			MarkPrice:            mark,
			LastPrice:            mark,
			FundingRate:          exchange.AsPercent(exchange.ParseSigned(ac.Funding)),
			FundingIntervalHours: 1,
			DataOK:               true,
			Timestamp:            now,
		}
		if oi := exchange.ParsePositive(ac.OpenInterest); oi != nil && mark != nil {
			v := *oi * *mark
			t.OpenInterest = &v
		}
		out = append(out, t)
	}
	return out, nil
}
