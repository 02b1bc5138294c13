package exchange

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"arbradar/internal/application/port"
)

// Venue identifiers, shared by config, the registries and output.
const (
	Binance     = "binance"
	Bybit       = "bybit"
	OKX         = "okx"
	Gate        = "gate"
	MEXC        = "mexc"
	Hyperliquid = "hyperliquid"
	Bitget      = "bitget"
)

// CollectorFactory builds a venue collector. baseURL overrides the venue's
// default REST endpoint when non-empty.
type CollectorFactory func(baseURL string) port.Collector

// FeedFactory builds a venue live price feed. wsURL overrides the venue's
// default stream endpoint when non-empty.
type FeedFactory func(wsURL string) port.PriceFeed

var (
	collectorRegistry = make(map[string]CollectorFactory)
	feedRegistry      = make(map[string]FeedFactory)
)

// RegisterCollector wires a venue's collector factory. Venue packages call
// this from init(), so importing a venue package is what enables it.
func RegisterCollector(venue string, factory CollectorFactory) {
	if factory == nil {
		log.Warn().Str("exchange", venue).Msg("nil collector factory ignored")
		return
	}
	if _, exists := collectorRegistry[venue]; exists {
		log.Warn().Str("exchange", venue).Msg("collector factory already registered, overwriting")
	}
	collectorRegistry[venue] = factory
}

// RegisterFeed wires a venue's live feed factory.
func RegisterFeed(venue string, factory FeedFactory) {
	if factory == nil {
		log.Warn().Str("exchange", venue).Msg("nil feed factory ignored")
		return
	}
	if _, exists := feedRegistry[venue]; exists {
		log.Warn().Str("exchange", venue).Msg("feed factory already registered, overwriting")
	}
	feedRegistry[venue] = factory
}

// NewCollector builds the named venue's collector; ok is false when no
// collector is registered under that name.
func NewCollector(venue, baseURL string) (port.Collector, bool) {
	factory, ok := collectorRegistry[strings.ToLower(venue)]
	if !ok {
		return nil, false
	}
	return factory(baseURL), true
}

// NewFeed builds the named venue's live feed; ok is false when the venue has
// no streaming support.
func NewFeed(venue, wsURL string) (port.PriceFeed, bool) {
	factory, ok := feedRegistry[strings.ToLower(venue)]
	if !ok {
		return nil, false
	}
	return factory(wsURL), true
}

// RunFeed dials wsURL and pumps raw frames through onMsg until ctx is done,
// reconnecting with exponential backoff. onConnect, when set, runs right
// after each successful dial (subscription handshakes go there). onMsg runs
// on the read goroutine and must not block.
func RunFeed(ctx context.Context, name, wsURL string, onConnect func(*websocket.Conn) error, onMsg func([]byte)) {
	backoff := 500 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", name).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = MinDuration(backoff*2, maxBackoff)
			continue
		}

		if onConnect != nil {
			if err := onConnect(conn); err != nil {
				log.Error().Str("feed", name).Err(err).Msg("ws handshake failed")
				_ = conn.Close()
				time.Sleep(backoff)
				backoff = MinDuration(backoff*2, maxBackoff)
				continue
			}
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", name).Msg("ws connected")

		err = ReadWithPing(ctx, conn, onMsg)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("feed", name).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = MinDuration(backoff*2, maxBackoff)
	}
}

// ReadWithPing reads frames with a rolling 60s deadline and keeps the
// connection alive with 25s pings. Returns when the stream breaks or ctx is
// done.
func ReadWithPing(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

// MinDuration returns the smaller of two durations.
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// BuildQueryURL joins a base endpoint, path and raw query string.
func BuildQueryURL(base, path, query string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("base url is empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = path
	u.RawQuery = query
	return u.String(), nil
}
