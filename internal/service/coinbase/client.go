// Package coinbase talks to the Coinbase Advanced Trade API: candle history,
// account balances, and market order submission for one product.
package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"dogebot/internal/domain/models"
	pkghttp "dogebot/pkg/http"
	"dogebot/pkg/logger"
)

const (
	defaultBaseURL = "https://api.coinbase.com"
	candlePageSize = 300 // API hard limit is 350 bars per request
)

// Client implements MarketData, BalanceSource and OrderSubmitter against the
// Advanced Trade REST API.
type Client struct {
	http       *pkghttp.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	productID  string
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint (tests, sandbox).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithCredentials sets the API key pair. Unauthenticated clients can still
// fetch candles.
func WithCredentials(key, secret string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
		c.apiSecret = secret
	}
}

// WithProductID sets the traded product (e.g. DOGE-USD).
func WithProductID(id string) ClientOption {
	return func(c *Client) { c.productID = id }
}

// WithRetry tunes the fetch retry policy. Order submission is never retried.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = attempts
		c.retryDelay = delay
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *pkghttp.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates an Advanced Trade API client.
func NewClient(log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		productID:  "DOGE-USD",
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = pkghttp.NewClient(pkghttp.WithTimeout(15 * time.Second))
	}
	return c
}

// ProductID returns the configured product.
func (c *Client) ProductID() string { return c.productID }

// flexFloat decodes a JSON number that the API sometimes encodes as a string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var err error
		s, err = strconv.Unquote(s)
		if err != nil {
			return err
		}
	}
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type apiCandle struct {
	Start  flexFloat `json:"start"`
	Open   flexFloat `json:"open"`
	High   flexFloat `json:"high"`
	Low    flexFloat `json:"low"`
	Close  flexFloat `json:"close"`
	Volume flexFloat `json:"volume"`
}

type candlesResponse struct {
	Candles []apiCandle `json:"candles"`
}

// ClosedCandles returns up to count most recent fully closed candles,
// ascending.
func (c *Client) ClosedCandles(ctx context.Context, count int, g models.Granularity) ([]models.Candle, error) {
	if count < 1 {
		return nil, fmt.Errorf("candle count must be positive, got %d", count)
	}
	end := c.now()
	// Over-fetch a couple of bars so dropping the open one still leaves count.
	start := end.Add(-time.Duration(count+2) * g.Duration())

	candles, err := c.CandlesRange(ctx, start, end, g)
	if err != nil {
		return nil, err
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}

// CandlesRange returns closed candles within [start, end], ascending, paging
// through the API's per-request bar limit.
func (c *Client) CandlesRange(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("unknown granularity %q", g)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("empty candle range")
	}

	window := g.Duration()
	var out []models.Candle
	for pageStart := start; pageStart.Before(end); {
		pageEnd := pageStart.Add(candlePageSize * window)
		if pageEnd.After(end) {
			pageEnd = end
		}

		page, err := c.fetchCandlePage(ctx, pageStart, pageEnd, g)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		pageStart = pageEnd
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	out = dedupeCandles(out)

	// Drop the still-open bar; its close price is provisional.
	now := c.now()
	closed := out[:0]
	for _, candle := range out {
		if candle.ClosedBy(now, g) {
			closed = append(closed, candle)
		}
	}
	return closed, nil
}

func (c *Client) fetchCandlePage(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error) {
	path := fmt.Sprintf("/api/v3/brokerage/products/%s/candles", url.PathEscape(c.productID))
	query := url.Values{
		"start":       []string{strconv.FormatInt(start.Unix(), 10)},
		"end":         []string{strconv.FormatInt(end.Unix(), 10)},
		"granularity": []string{string(g)},
	}

	var resp candlesResponse
	err := c.getWithRetry(ctx, path+"?"+query.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}

	candles := make([]models.Candle, 0, len(resp.Candles))
	for _, a := range resp.Candles {
		candles = append(candles, models.Candle{
			Start:  int64(a.Start),
			Open:   float64(a.Open),
			High:   float64(a.High),
			Low:    float64(a.Low),
			Close:  float64(a.Close),
			Volume: float64(a.Volume),
		})
	}
	return candles, nil
}

// getWithRetry retries transient fetch failures a fixed number of times.
// Safe for GETs only.
func (c *Client) getWithRetry(ctx context.Context, pathWithQuery string, dest interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.do(ctx, pkghttp.MethodGet, pathWithQuery, nil, dest)
		if lastErr == nil {
			return nil
		}
		if attempt < c.maxRetries {
			c.log.Warn("api fetch failed, retrying",
				logger.String("path", pathWithQuery),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return lastErr
}

type availableBalance struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type apiAccount struct {
	Currency         string           `json:"currency"`
	AvailableBalance availableBalance `json:"available_balance"`
}

type accountsResponse struct {
	Accounts []apiAccount `json:"accounts"`
}

// Balances returns available base and quote balances. Best-effort: any
// failure logs and returns zeros so the caller degrades to "nothing to
// trade".
func (c *Client) Balances(ctx context.Context) models.Balances {
	var resp accountsResponse
	if err := c.getWithRetry(ctx, "/api/v3/brokerage/accounts?limit=250", &resp); err != nil {
		c.log.Warn("balance fetch failed, assuming zero balances", logger.Error(err))
		return models.Balances{}
	}

	base, quote := splitProduct(c.productID)
	var out models.Balances
	for _, acct := range resp.Accounts {
		currency := acct.Currency
		if currency == "" {
			currency = acct.AvailableBalance.Currency
		}
		v, err := decimal.NewFromString(acct.AvailableBalance.Value)
		if err != nil {
			continue
		}
		switch currency {
		case base:
			out.Base = v
		case quote:
			out.Quote = v
		}
	}
	return out
}

type orderConfiguration struct {
	MarketMarketIOC marketIOC `json:"market_market_ioc"`
}

type marketIOC struct {
	QuoteSize string `json:"quote_size,omitempty"`
	BaseSize  string `json:"base_size,omitempty"`
}

type orderRequest struct {
	ClientOrderID      string             `json:"client_order_id"`
	ProductID          string             `json:"product_id"`
	Side               string             `json:"side"`
	OrderConfiguration orderConfiguration `json:"order_configuration"`
}

type orderResponse struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason"`
	ErrorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"error_response"`
}

// MarketBuy spends quoteUSD on an immediate-or-cancel market order. Never
// retried: a duplicate fill is worse than a missed one.
func (c *Client) MarketBuy(ctx context.Context, quoteUSD decimal.Decimal) error {
	return c.submitOrder(ctx, "BUY", marketIOC{QuoteSize: quoteUSD.String()})
}

// MarketSell sells baseDOGE via an immediate-or-cancel market order. Never
// retried.
func (c *Client) MarketSell(ctx context.Context, baseDOGE decimal.Decimal) error {
	return c.submitOrder(ctx, "SELL", marketIOC{BaseSize: baseDOGE.String()})
}

func (c *Client) submitOrder(ctx context.Context, side string, ioc marketIOC) error {
	req := orderRequest{
		ClientOrderID:      newClientOrderID(c.now()),
		ProductID:          c.productID,
		Side:               side,
		OrderConfiguration: orderConfiguration{MarketMarketIOC: ioc},
	}

	var resp orderResponse
	if err := c.do(ctx, pkghttp.MethodPost, "/api/v3/brokerage/orders", req, &resp); err != nil {
		return fmt.Errorf("submit %s order: %w", side, err)
	}
	if !resp.Success {
		reason := resp.FailureReason
		if resp.ErrorResponse.Message != "" {
			reason = fmt.Sprintf("%s: %s", reason, resp.ErrorResponse.Message)
		}
		return fmt.Errorf("%s order rejected: %s", side, reason)
	}
	return nil
}

// do issues one signed request. pathWithQuery must be the exact request path
// including the encoded query, since the signature covers it.
func (c *Client) do(ctx context.Context, method, pathWithQuery string, body, dest interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	opts := &pkghttp.RequestOptions{
		Method:  method,
		URL:     c.baseURL + pathWithQuery,
		Headers: c.authHeaders(method, pathWithQuery, payload),
	}
	if payload != nil {
		opts.Body = payload
	}
	return c.http.SendAndParse(ctx, opts, dest)
}

// authHeaders signs timestamp + method + path + body with the API secret.
func (c *Client) authHeaders(method, pathWithQuery string, body []byte) map[string]string {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + method + pathWithQuery))
	mac.Write(body)
	return map[string]string{
		"CB-ACCESS-KEY":       c.apiKey,
		"CB-ACCESS-SIGN":      hex.EncodeToString(mac.Sum(nil)),
		"CB-ACCESS-TIMESTAMP": timestamp,
	}
}

// newClientOrderID builds an idempotency key: ms timestamp plus 4 random
// bytes.
func newClientOrderID(now time.Time) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(suffix[:]))
}

func splitProduct(productID string) (base, quote string) {
	for i := 0; i < len(productID); i++ {
		if productID[i] == '-' {
			return productID[:i], productID[i+1:]
		}
	}
	return productID, ""
}

func dedupeCandles(candles []models.Candle) []models.Candle {
	if len(candles) < 2 {
		return candles
	}
	out := candles[:1]
	for _, c := range candles[1:] {
		if c.Start != out[len(out)-1].Start {
			out = append(out, c)
		}
	}
	return out
}
