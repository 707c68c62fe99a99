// Package provider предоставляет клиент API сети-поставщика услуг.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/mmeshcher/smm-panel/internal/metrics"
	"github.com/mmeshcher/smm-panel/internal/model"
)

const maxResponseSize = 1 << 20

// ErrTransport оборачивает сетевые ошибки, таймауты и некорректные ответы поставщика.
var ErrTransport = errors.New("provider transport error")

// ErrOrderMissing возвращается, если поставщик не вернул данных по заказу.
var ErrOrderMissing = errors.New("provider returned no data for order")

// ProviderError описывает бизнес-ошибку, явно возвращённую поставщиком в поле Error.
type ProviderError struct {
	Action  string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Action, e.Message)
}

// OrderRequest описывает параметры создания заказа у поставщика.
type OrderRequest struct {
	Service  int64
	Link     string
	Quantity int64
	Comments string
}

// OrderStatus описывает состояние заказа на стороне поставщика.
type OrderStatus struct {
	Status     string
	StartCount int64
	Remains    int64
	Charge     decimal.Decimal
}

// ModelStatus переводит статус поставщика в статус заказа панели.
func (s OrderStatus) ModelStatus() (model.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case "in progress", "pending", "processing":
		return model.OrderStatusInProgress, true
	case "completed":
		return model.OrderStatusCompleted, true
	case "canceled", "cancelled", "partial":
		return model.OrderStatusCanceled, true
	default:
		return "", false
	}
}

// CancelResult описывает ответ поставщика на отмену заказа.
type CancelResult struct {
	Success bool
	Charge  decimal.Decimal
}

// Client инкапсулирует HTTP-взаимодействие с API поставщика. Повторы запросов не выполняются.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient создаёт клиент поставщика. rps <= 0 отключает ограничение частоты запросов.
func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Balance возвращает баланс аккаунта панели у поставщика.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	res, err := c.call(ctx, "balance", nil)
	if err != nil {
		return decimal.Zero, err
	}

	balance := res.Get("balance")
	if !balance.Exists() {
		return decimal.Zero, fmt.Errorf("%w: balance field missing", ErrTransport)
	}

	return parseDecimal(balance)
}

// CreateOrder создаёт заказ у поставщика и возвращает его внешний идентификатор.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	params := url.Values{}
	params.Set("service", fmt.Sprint(req.Service))
	params.Set("link", req.Link)
	params.Set("quantity", fmt.Sprint(req.Quantity))
	if req.Comments != "" {
		params.Set("comments", req.Comments)
	}

	res, err := c.call(ctx, "create", params)
	if err != nil {
		return "", err
	}

	id := res.Get("order").String()
	if id == "" {
		return "", fmt.Errorf("%w: order id missing", ErrTransport)
	}

	return id, nil
}

// Status запрашивает состояние одного заказа.
func (c *Client) Status(ctx context.Context, orderID string) (OrderStatus, error) {
	entries, err := c.statuses(ctx, []string{orderID})
	if err != nil {
		return OrderStatus{}, err
	}

	e, ok := entries[orderID]
	if !ok {
		return OrderStatus{}, ErrOrderMissing
	}
	if e.err != nil {
		return OrderStatus{}, e.err
	}

	return e.status, nil
}

// Statuses запрашивает состояние нескольких заказов одним вызовом.
// Заказы, по которым поставщик не вернул данных или вернул ошибку, в результат не попадают.
func (c *Client) Statuses(ctx context.Context, orderIDs []string) (map[string]OrderStatus, error) {
	if len(orderIDs) == 0 {
		return map[string]OrderStatus{}, nil
	}

	entries, err := c.statuses(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]OrderStatus, len(entries))
	for id, e := range entries {
		if e.err != nil {
			continue
		}
		out[id] = e.status
	}

	return out, nil
}

// Cancel запрашивает отмену заказа у поставщика.
func (c *Client) Cancel(ctx context.Context, orderID string) (CancelResult, error) {
	params := url.Values{}
	params.Set("order", orderID)

	res, err := c.call(ctx, "cancel", params)
	if err != nil {
		return CancelResult{}, err
	}

	charge, err := parseDecimal(res.Get("charge"))
	if err != nil {
		return CancelResult{}, err
	}

	return CancelResult{
		Success: res.Get("success").Bool(),
		Charge:  charge,
	}, nil
}

type statusEntry struct {
	status OrderStatus
	err    error
}

func (c *Client) statuses(ctx context.Context, orderIDs []string) (map[string]statusEntry, error) {
	params := url.Values{}
	params.Set("orders", strings.Join(orderIDs, ","))

	res, err := c.call(ctx, "status", params)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]statusEntry, len(orderIDs))
	res.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}

		id := key.String()
		if msg := errorMessage(value); msg != "" {
			entries[id] = statusEntry{err: &ProviderError{Action: "status", Message: msg}}
			return true
		}

		charge, err := parseDecimal(value.Get("charge"))
		if err != nil {
			entries[id] = statusEntry{err: err}
			return true
		}

		entries[id] = statusEntry{status: OrderStatus{
			Status:     value.Get("status").String(),
			StartCount: value.Get("start_count").Int(),
			Remains:    value.Get("remains").Int(),
			Charge:     charge,
		}}
		return true
	})

	return entries, nil
}

func (c *Client) call(ctx context.Context, action string, params url.Values) (res gjson.Result, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		var perr *ProviderError
		switch {
		case errors.As(err, &perr):
			result = "provider_error"
		case err != nil:
			result = "transport_error"
		}
		metrics.ObserveProvider(action, result, time.Since(start))
	}()

	if c == nil || c.baseURL == "" {
		return gjson.Result{}, fmt.Errorf("%w: provider client not configured", ErrTransport)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: rate limit wait: %v", ErrTransport, err)
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	params.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: do request: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("%w: unexpected status: %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json response", ErrTransport)
	}

	res = gjson.ParseBytes(body)
	if msg := errorMessage(res); msg != "" {
		return gjson.Result{}, &ProviderError{Action: action, Message: msg}
	}

	return res, nil
}

func errorMessage(res gjson.Result) string {
	if !res.IsObject() {
		return ""
	}
	for _, field := range []string{"Error", "error"} {
		if v := res.Get(field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func parseDecimal(v gjson.Result) (decimal.Decimal, error) {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: parse amount %q: %v", ErrTransport, s, err)
	}

	return d, nil
}
