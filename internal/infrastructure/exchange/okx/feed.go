package okx

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

const defaultWSURL = "wss://ws.okx.com:8443/ws/v5/public"

// MarkFeed streams mark prices over the v5 public mark-price channel.
type MarkFeed struct {
	wsURL string
}

func NewMarkFeed(wsURL string) *MarkFeed {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = defaultWSURL
	}
	return &MarkFeed{wsURL: strings.TrimSpace(wsURL)}
}

func (f *MarkFeed) Name() string { return exchange.OKX }

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type markMsg struct {
	Event string     `json:"event,omitempty"`
	Code  string     `json:"code,omitempty"`
	Msg   string     `json:"msg,omitempty"`
	Arg   subArg     `json:"arg,omitempty"`
	Data  []markItem `json:"data,omitempty"`
}

type markItem struct {
	InstID string `json:"instId"`
	MarkPx string `json:"markPx"`
}

// Subscribe opens the mark-price channel for the given venue-native instIds.
func (f *MarkFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	args := make([]subArg, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		args = append(args, subArg{Channel: "mark-price", InstID: s})
	}
	if len(args) == 0 {
		return nil, errors.New("okx: no symbols to subscribe")
	}

	subscribe := func(conn *websocket.Conn) error {
		return conn.WriteJSON(subRequest{Op: "subscribe", Args: args})
	}

	out := make(chan port.Tick, 1024)
	go func() {
		defer close(out)
		exchange.RunFeed(ctx, f.Name(), f.wsURL, subscribe, func(b []byte) {
			var msg markMsg
			if err := json.Unmarshal(b, &msg); err != nil {
				log.Error().Str("feed", f.Name()).Err(err).Msg("bad frame")
				return
			}
			if msg.Event == "error" {
				log.Error().Str("feed", f.Name()).Str("code", msg.Code).Str("msg", msg.Msg).Msg("stream error")
				return
			}
			if msg.Event != "" || len(msg.Data) == 0 {
				return
			}
			for _, d := range msg.Data {
				mark := exchange.ParsePositive(d.MarkPx)
				if d.InstID == "" || mark == nil {
					continue
				}
				tick := port.Tick{
					Exchange: f.Name(),
					Symbol:   strings.ToUpper(d.InstID),
					Mark:     *mark,
					At:       time.Now().UTC(),
				}
				select {
				case out <- tick:
				case <-ctx.Done():
					return
				}
			}
		})
	}()
	return out, nil
}
