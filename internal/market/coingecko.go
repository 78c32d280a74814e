package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"tickrx/internal/logger"
)

const (
	coingeckoSource  = "coingecko"
	maxDetailBytes   = 512
	maxFetchAttempts = 3
)

type CoinGeckoConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
	PerPage           int
}

// CoinGecko reads /coins/markets. It holds no per-request state.
type CoinGecko struct {
	baseURL string
	apiKey  string
	perPage int
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type cgCoin struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price"`
	MarketCap    *float64 `json:"market_cap"`
	TotalVolume  *float64 `json:"total_volume"`
	Change1h     *float64 `json:"price_change_percentage_1h_in_currency"`
	Change24h    *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d     *float64 `json:"price_change_percentage_7d_in_currency"`
	LastUpdated  string   `json:"last_updated"`
}

func NewCoinGecko(cfg CoinGeckoConfig, log *logger.Logger) *CoinGecko {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.PerPage <= 0 || cfg.PerPage > 250 {
		cfg.PerPage = 200
	}
	if log == nil {
		log = logger.Nop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &CoinGecko{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		perPage: cfg.PerPage,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log.WithField("source", coingeckoSource),
	}
}

func (c *CoinGecko) Name() string {
	return coingeckoSource
}

// Markets returns the most traded coins in USD with 1h/24h/7d changes.
func (c *CoinGecko) Markets(ctx context.Context) ([]Instrument, error) {
	q := c.baseQuery()
	q.Set("order", "volume_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", "1")
	return c.fetch(ctx, q)
}

// MarketsBySymbols returns the top token for each requested ticker symbol.
// An empty result is not an error.
func (c *CoinGecko) MarketsBySymbols(ctx context.Context, symbols []string) ([]Instrument, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols is empty")
	}
	lower := make([]string, len(symbols))
	for i, s := range symbols {
		lower[i] = strings.ToLower(s)
	}
	q := c.baseQuery()
	q.Set("symbols", strings.Join(lower, ","))
	q.Set("include_tokens", "top")
	return c.fetch(ctx, q)
}

func (c *CoinGecko) baseQuery() url.Values {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "1h,24h,7d")
	return q
}

func (c *CoinGecko) fetch(ctx context.Context, q url.Values) ([]Instrument, error) {
	endpoint := c.baseURL + "/coins/markets?" + q.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &UpstreamError{Source: coingeckoSource, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	var (
		body    []byte
		lastErr error
	)
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		body, lastErr = c.do(ctx, endpoint)
		if lastErr == nil {
			break
		}
		var upErr *UpstreamError
		if errors.As(lastErr, &upErr) && upErr.Status != 0 {
			return nil, lastErr
		}
		if !shouldRetry(lastErr) || attempt == maxFetchAttempts-1 {
			break
		}
		c.log.WithFields(map[string]any{"attempt": attempt + 1, "error": lastErr.Error()}).Warn("retrying market request")
		select {
		case <-ctx.Done():
			return nil, &UpstreamError{Source: coingeckoSource, Err: ctx.Err()}
		case <-time.After(150 * time.Millisecond):
		}
	}
	if lastErr != nil {
		var upErr *UpstreamError
		if errors.As(lastErr, &upErr) {
			return nil, lastErr
		}
		return nil, &UpstreamError{Source: coingeckoSource, Err: lastErr}
	}

	out, err := DecodeCoinGeckoMarkets(body)
	if err != nil {
		return nil, &UpstreamError{Source: coingeckoSource, Detail: truncate(string(body)), Err: err}
	}
	c.log.WithField("count", len(out)).Debug("markets fetched")
	return out, nil
}

// DecodeCoinGeckoMarkets converts a /coins/markets JSON array into instruments.
func DecodeCoinGeckoMarkets(body []byte) ([]Instrument, error) {
	var coins []cgCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	out := make([]Instrument, 0, len(coins))
	for _, coin := range coins {
		out = append(out, coin.toInstrument())
	}
	return out, nil
}

func (c *CoinGecko) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tickrx/1.0")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Source: coingeckoSource, Status: resp.StatusCode, Detail: truncate(string(body))}
	}
	return body, nil
}

func (c cgCoin) toInstrument() Instrument {
	in := Instrument{
		ID:        c.ID,
		Symbol:    strings.ToUpper(c.Symbol),
		Name:      c.Name,
		MarketCap: c.MarketCap,
		Volume24h: c.TotalVolume,
		Change1h:  c.Change1h,
		Change24h: c.Change24h,
		Change7d:  c.Change7d,
	}
	if c.CurrentPrice != nil {
		in.Price = *c.CurrentPrice
	}
	if c.LastUpdated != "" {
		if ts, err := time.Parse(time.RFC3339, c.LastUpdated); err == nil {
			in.LastUpdated = ts.Unix()
		}
	}
	return in
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer")
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDetailBytes {
		return s
	}
	cut := maxDetailBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
