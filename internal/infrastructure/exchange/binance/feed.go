package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"arbradar/internal/application/port"
	"arbradar/internal/infrastructure/exchange"
)

const defaultWSURL = "wss://fstream.binance.com"

// MarkFeed streams mark prices over the combined markPrice stream.
type MarkFeed struct {
	wsURL string
}

func NewMarkFeed(wsURL string) *MarkFeed {
	if strings.TrimSpace(wsURL) == "" {
		wsURL = defaultWSURL
	}
	return &MarkFeed{wsURL: strings.TrimSpace(wsURL)}
}

func (f *MarkFeed) Name() string { return exchange.Binance }

type combinedFrame struct {
	Stream string    `json:"stream"`
	Data   markFrame `json:"data"`
}

type markFrame struct {
	Symbol  string `json:"s"`
	Mark    string `json:"p"`
	Funding string `json:"r"`
}

// Subscribe opens a combined markPrice@1s stream for the given venue-native
// symbols.
func (f *MarkFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.Tick, error) {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, s+"@markPrice@1s")
	}
	if len(streams) == 0 {
		return nil, errors.New("binance: no symbols to subscribe")
	}

	u, err := url.Parse(f.wsURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")

	out := make(chan port.Tick, 1024)
	go func() {
		defer close(out)
		exchange.RunFeed(ctx, f.Name(), u.String(), nil, func(b []byte) {
			var frame combinedFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				log.Error().Str("feed", f.Name()).Err(err).Msg("bad frame")
				return
			}
			mark := exchange.ParsePositive(frame.Data.Mark)
			if frame.Data.Symbol == "" || mark == nil {
				return
			}
			tick := port.Tick{
				Exchange: f.Name(),
				Symbol:   strings.ToUpper(frame.Data.Symbol),
				Mark:     *mark,
				Funding:  exchange.AsPercent(exchange.ParseSigned(frame.Data.Funding)),
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
