// Package kalshi provides a client for the Kalshi trade API: market
// listings and per-market orderbooks.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// MarketInfo is one market row from the listings endpoint.
type MarketInfo struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	EventTicker  string `json:"event_ticker"`
	EventTitle   string `json:"event_title"`
	Status       string `json:"status"`
	Volume       int    `json:"volume"`
	OpenInterest int    `json:"open_interest"`
}

// Orderbook holds bid ladders as [price, quantity] pairs, best first.
type Orderbook struct {
	YesBids [][]int `json:"yes_bids"`
	NoBids  [][]int `json:"no_bids"`
}

// TopYesBid returns the best yes bid price, or nil when the side is empty.
func (o *Orderbook) TopYesBid() *int {
	return topPrice(o.YesBids)
}

// TopNoBid returns the best no bid price, or nil when the side is empty.
func (o *Orderbook) TopNoBid() *int {
	return topPrice(o.NoBids)
}

func topPrice(levels [][]int) *int {
	if len(levels) == 0 || len(levels[0]) == 0 {
		return nil
	}
	p := levels[0][0]
	return &p
}

// ClientConfig tunes retry, rate-limit, and circuit-breaker behavior.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
	RequestsPerSec float64
	BreakerTrips   uint32
}

// Client accesses the Kalshi API with a client-side token bucket and a
// circuit breaker so a failing API cannot stall the poll loop.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cfg        ClientConfig
}

// NewClient creates a Kalshi client. apiKey may be empty for public
// endpoints.
func NewClient(baseURL, apiKey string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.BreakerTrips == 0 {
		cfg.BreakerTrips = 5
	}

	settings := gobreaker.Settings{Name: "kalshi"}
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.BreakerTrips
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), int(cfg.RequestsPerSec)+1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		cfg:        cfg,
	}
}

// ListMarkets fetches up to limit markets with the given status.
func (c *Client) ListMarkets(ctx context.Context, status string, limit int) ([]MarketInfo, error) {
	u, err := url.Parse(c.baseURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", status)
	u.RawQuery = q.Encode()

	var payload struct {
		Markets []MarketInfo `json:"markets"`
	}
	if err := c.getJSON(ctx, u.String(), &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	return payload.Markets, nil
}

// GetOrderbook fetches the orderbook for one ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*Orderbook, error) {
	var book Orderbook
	if err := c.getJSON(ctx, c.baseURL+"/markets/"+url.PathEscape(ticker)+"/orderbook", &book); err != nil {
		return nil, fmt.Errorf("failed to fetch orderbook for %s: %w", ticker, err)
	}
	return &book, nil
}

// HealthCheck reports whether the API is reachable.
func (c *Client) HealthCheck(ctx context.Context) bool {
	var payload struct {
		Markets []MarketInfo `json:"markets"`
	}
	return c.getJSON(ctx, c.baseURL+"/markets?limit=1", &payload) == nil
}

// getJSON performs a GET with rate limiting, circuit breaking, and
// bounded exponential backoff on rate-limit and server errors.
func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.doGet(ctx, urlStr, out)
	})
	return err
}

func (c *Client) doGet(ctx context.Context, urlStr string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			switch {
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				resp.Body.Close()
				lastErr = fmt.Errorf("server responded %d", resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				resp.Body.Close()
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			default:
				err := json.NewDecoder(resp.Body).Decode(out)
				resp.Body.Close()
				if err != nil {
					return fmt.Errorf("failed to decode response: %w", err)
				}
				return nil
			}
		}

		delay := c.cfg.RetryDelayBase << attempt
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
