package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hybrid-mm-engine/internal/domain"
)

// Client talks to the exchange spot REST API. Signed endpoints use
// HMAC-SHA256 over the query string.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client. testnet selects the sandbox host.
func NewClient(apiKey, secretKey string, testnet bool) *Client {
	baseURL := "https://api.binance.com"
	if testnet {
		baseURL = "https://testnet.binance.vision"
	}

	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL creates a client against an arbitrary host.
func NewClientWithBaseURL(apiKey, secretKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) sign(params string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(params))
	return hex.EncodeToString(mac.Sum(nil))
}

// apiError is the exchange error envelope.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("exchange api error %d: %s", e.Code, e.Message)
}

// do executes a request and decodes the error envelope on non-2xx status.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// GetKlines fetches up to limit closed candles for a symbol/interval.
// startMs/endMs of 0 mean unbounded on that side.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]*domain.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	if startMs > 0 {
		q.Set("startTime", strconv.FormatInt(startMs, 10))
	}
	if endMs > 0 {
		q.Set("endTime", strconv.FormatInt(endMs, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build klines request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("get klines: %w", err)
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	bars := make([]*domain.Bar, 0, len(rawKlines))
	for _, k := range rawKlines {
		bar, err := parseKline(symbol, k)
		if err != nil {
			return nil, fmt.Errorf("parse kline: %w", err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// parseKline converts one kline array row into a Bar. The wire format is
// [openTime, open, high, low, close, volume, closeTime, ...] with prices
// as strings.
func parseKline(symbol string, k []interface{}) (*domain.Bar, error) {
	if len(k) < 6 {
		return nil, fmt.Errorf("kline row has %d fields, want >= 6", len(k))
	}

	openTime, ok := k[0].(float64)
	if !ok {
		return nil, fmt.Errorf("kline open time is not a number")
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return nil, fmt.Errorf("kline field %d is not a string", i)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	bar := &domain.Bar{
		Symbol:      symbol,
		TimestampMs: int64(openTime),
		Open:        fields[0],
		High:        fields[1],
		Low:         fields[2],
		Close:       fields[3],
		Volume:      fields[4],
	}
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	return bar, nil
}

// GetCurrentPrice fetches the last trade price for a symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol)), nil)
	if err != nil {
		return 0, fmt.Errorf("build ticker request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("get current price: %w", err)
	}

	var priceResp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &priceResp); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(priceResp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price: %w", err)
	}
	return price, nil
}

// GetAccountBalances fetches non-zero balances, free plus locked, keyed
// by asset. Signed endpoint.
func (c *Client) GetAccountBalances(ctx context.Context) (map[string]float64, error) {
	params := fmt.Sprintf("timestamp=%d", time.Now().UnixMilli())
	signature := c.sign(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v3/account?%s&signature=%s", c.baseURL, params, signature), nil)
	if err != nil {
		return nil, fmt.Errorf("build account request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("get account balances: %w", err)
	}

	var account struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	balances := make(map[string]float64)
	for _, b := range account.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("parse free balance for %s: %w", b.Asset, err)
		}
		locked, err := strconv.ParseFloat(b.Locked, 64)
		if err != nil {
			return nil, fmt.Errorf("parse locked balance for %s: %w", b.Asset, err)
		}
		if total := free + locked; total > 0 {
			balances[b.Asset] = total
		}
	}

	return balances, nil
}

// PlacedOrder is the normalized response of a placed limit order.
type PlacedOrder struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          domain.Side
	Price         float64
	Quantity      float64
	Status        string
}

// PlaceLimitOrder submits a GTC limit order. Signed endpoint.
// clientOrderID carries the deterministic internal order id so fills can
// be matched back without extra state.
func (c *Client) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, price, quantity float64, clientOrderID string) (*PlacedOrder, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	params.Set("quantity", fmt.Sprintf("%.8f", quantity))
	params.Set("newClientOrderId", clientOrderID)
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	signature := c.sign(params.Encode())
	params.Set("signature", signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/v3/order?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("place limit order: %w", err)
	}

	var orderResp struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	return &PlacedOrder{
		OrderID:       strconv.FormatInt(orderResp.OrderID, 10),
		ClientOrderID: orderResp.ClientOrderID,
		Symbol:        symbol,
		Side:          side,
		Price:         price,
		Quantity:      quantity,
		Status:        orderResp.Status,
	}, nil
}

// CancelOrder cancels a resting order by client order id. Signed endpoint.
func (c *Client) CancelOrder(ctx context.Context, symbol, clientOrderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("origClientOrderId", clientOrderID)
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	signature := c.sign(params.Encode())
	params.Set("signature", signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/v3/order?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return nil
}
