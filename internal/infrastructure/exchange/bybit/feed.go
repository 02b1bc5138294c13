package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"arbradar/internal/application/port"
	"arbradar/internal/infrastructure/exchange"
)

const defaultWSURL = "wss://stream.bybit.com/v5/public/linear"

// MarkFeed streams linear ticker updates over the v5 public stream. Topics are
// subscribed with an op frame after the dial.
type MarkFeed struct {
	wsURL string
}

func NewMarkFeed(wsURL string) *MarkFeed {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = defaultWSURL
	}
	return &MarkFeed{wsURL: strings.TrimSpace(wsURL)}
}

func (f *MarkFeed) Name() string { return exchange.Bybit }

type subRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type tickerFrame struct {
	Topic string     `json:"topic"`
	Type  string     `json:"type"`
	Data  tickerData `json:"data"`

	// ack frames
	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
}

type tickerData struct {
	Symbol      string `json:"symbol"`
	MarkPrice   string `json:"markPrice"`
	FundingRate string `json:"fundingRate"`
}

// Subscribe opens the linear ticker stream for the given venue-native symbols.
// Delta frames omit unchanged fields; frames without a mark price are dropped.
func (f *MarkFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		topics = append(topics, "tickers."+s)
	}
	if len(topics) == 0 {
		return nil, errors.New("bybit: no symbols to subscribe")
	}

	subscribe := func(conn *websocket.Conn) error {
		return conn.WriteJSON(subRequest{Op: "subscribe", Args: topics})
	}

	out := make(chan port.Tick, 1024)
	go func() {
		defer close(out)
		exchange.RunFeed(ctx, f.Name(), f.wsURL, subscribe, func(b []byte) {
			var frame tickerFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				log.Error().Str("feed", f.Name()).Err(err).Msg("bad frame")
				return
			}
			if frame.Success != nil {
				if !*frame.Success {
					log.Error().Str("feed", f.Name()).Str("ret_msg", frame.RetMsg).Msg("subscribe rejected")
				}
				return
			}
			mark := exchange.ParsePositive(frame.Data.MarkPrice)
			if frame.Data.Symbol == "" || mark == nil {
				return
			}
			tick := port.Tick{
				Exchange: f.Name(),
				Symbol:   strings.ToUpper(frame.Data.Symbol),
				Mark:     *mark,
				Funding:  exchange.AsPercent(exchange.ParseSigned(frame.Data.FundingRate)),
				At:       time.Now().UTC(),
			}
			select {
			case out <- tick:
			case <-ctx.Done():
			}
		})
	}()
	return out, nil
}
