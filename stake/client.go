// Package stake reads trade executions and live quotes from the Stake
// brokerage API.
package stake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultURL is the production API.
const DefaultURL = "https://global-prd-api.hellostake.com/api"

// PageSize is the number of transactions asked per request.
const PageSize = 100

// Config holds client configuration
type Config struct {
	URL      string        // defaults to DefaultURL
	Token    string        // session token, sent as Stake-Session-Token
	Currency string        // currency of amounts, defaults to USD
	QuoteTTL time.Duration // how long quotes are reused, defaults to one minute
	Log      zerolog.Logger
	HTTP     *http.Client
	Limiter  *rate.Limiter // paces requests, defaults to 5 per second
}

// Client implements journal.Fetcher and journal.PriceSource.
type Client struct {
	url      string
	token    string
	currency string
	http     *http.Client
	log      zerolog.Logger
	limiter  *rate.Limiter
	quotes   *cache.Cache
}

// New creates a new client
func New(cfg Config) *Client {
	c := &Client{
		url:      strings.TrimSuffix(cfg.URL, "/"),
		token:    cfg.Token,
		currency: cfg.Currency,
		http:     cfg.HTTP,
		log:      cfg.Log.With().Str("component", "stake").Logger(),
		limiter:  cfg.Limiter,
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.currency == "" {
		c.currency = "USD"
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	}
	ttl := cfg.QuoteTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	c.quotes = cache.New(ttl, 2*ttl)
	return c
}

// do sends a JSON request and decodes the JSON response into data.
func (c *Client) do(ctx context.Context, method, uri string, body, data any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+"/"+uri, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stake-Session-Token", c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Debug().
		Str("method", method).
		Str("uri", uri).
		Int("status", resp.StatusCode).
		Dur("duration_ms", time.Since(start)).
		Msg("stake request")

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(buf.Bytes(), &msg)
		if msg.Message == "" {
			msg.Message = resp.Status
		}
		return fmt.Errorf("cannot http %s %s: %d %s", method, uri, resp.StatusCode, msg.Message)
	}
	return json.Unmarshal(buf.Bytes(), data)
}
