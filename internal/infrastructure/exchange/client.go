package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
)

// Client is the shared REST transport of the venue collectors: a per-venue
// rate limiter, JSON decoding and retry with backoff when the venue
// throttles. Transport-level failures are retried too; any other non-200
// fails immediately.
type Client struct {
	name      string
	http      *http.Client
	limiter   *rate.Limiter
	retryWait time.Duration
	log       zerolog.Logger
}

// NewClient builds a client capped at rps requests per second.
// Non-positive rps falls back to 10.
func NewClient(name string, rps float64) *Client {
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		name:      name,
		http:      &http.Client{Timeout: requestTimeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		retryWait: time.Second,
		log:       log.With().Str("exchange", name).Logger(),
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	return c.request(ctx, http.MethodGet, rawURL, nil, out)
}

// PostJSON sends payload as a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.request(ctx, http.MethodPost, rawURL, body, out)
}

func (c *Client) request(ctx context.Context, method, rawURL string, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retryWait<<(attempt-1)); err != nil {
				return err
			}
		}

		status, data, err := c.do(ctx, method, rawURL, body)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("request failed")
			continue
		}
		switch status {
		case http.StatusOK:
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%s decode: %w", c.name, err)
			}
			return nil
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%s http 429: throttled", c.name)
			c.log.Warn().Int("attempt", attempt+1).Msg("throttled, backing off")
		default:
			return fmt.Errorf("%s http %d: %s", c.name, status, data)
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
