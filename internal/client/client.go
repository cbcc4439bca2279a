package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRetries = 3

// APIError is a non-retryable error answer from the journal server.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("server returned %d: %s (field %s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// Client talks to a journal server over its JSON API.
type Client struct {
	client    *resty.Client
	logger    *zap.Logger
	limiter   *rate.Limiter
	baseDelay time.Duration
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg config.Client, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout())

	return &Client{
		client:    client,
		logger:    logger.Named("client"),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		baseDelay: time.Second,
	}
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/health", c.client.R()); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// ListTrades returns every trade, newest first.
func (c *Client) ListTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/trades", c.client.R().SetResult(&trades)); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// AddTrade submits a raw trade and returns the derived record.
func (c *Client) AddTrade(ctx context.Context, raw journal.RawTradeInput) (models.Trade, error) {
	var trade models.Trade
	req := c.client.R().SetBody(raw).SetResult(&trade)
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/trades", req); err != nil {
		return models.Trade{}, fmt.Errorf("failed to add trade: %w", err)
	}
	return trade, nil
}

// DeleteTrade removes a trade. Unknown ids are not an error.
func (c *Client) DeleteTrade(ctx context.Context, id int64) error {
	path := "/api/trades/" + strconv.FormatInt(id, 10)
	if _, err := c.doRequest(ctx, http.MethodDelete, path, c.client.R()); err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	return nil
}

// RestoreTrades replaces the server's collection and returns the count written.
func (c *Client) RestoreTrades(ctx context.Context, trades []models.Trade) (int, error) {
	var result struct {
		Restored int `json:"restored"`
	}
	req := c.client.R().SetBody(trades).SetResult(&result)
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/trades/restore", req); err != nil {
		return 0, fmt.Errorf("failed to restore trades: %w", err)
	}
	return result.Restored, nil
}

// RecentTrades returns up to limit of the newest trades.
func (c *Client) RecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	req := c.client.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&trades)
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/trades/recent", req); err != nil {
		return nil, fmt.Errorf("failed to get recent trades: %w", err)
	}
	return trades, nil
}

// Statistics returns the dashboard KPIs.
func (c *Client) Statistics(ctx context.Context) (analytics.KPISummary, error) {
	var kpis analytics.KPISummary
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/statistics", c.client.R().SetResult(&kpis)); err != nil {
		return analytics.KPISummary{}, fmt.Errorf("failed to get statistics: %w", err)
	}
	return kpis, nil
}

// Calendar returns the grid for month (YYYY-MM). A blank month asks for the
// server's current month.
func (c *Client) Calendar(ctx context.Context, month string) (analytics.CalendarMonth, error) {
	var cal analytics.CalendarMonth
	req := c.client.R().SetResult(&cal)
	if month != "" {
		req.SetQueryParam("month", month)
	}
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/calendar", req); err != nil {
		return analytics.CalendarMonth{}, fmt.Errorf("failed to get calendar: %w", err)
	}
	return cal, nil
}

// Equity returns the cumulative P&L curve.
func (c *Client) Equity(ctx context.Context) ([]analytics.EquityPoint, error) {
	var curve []analytics.EquityPoint
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/equity", c.client.R().SetResult(&curve)); err != nil {
		return nil, fmt.Errorf("failed to get equity curve: %w", err)
	}
	return curve, nil
}

// Report builds the report for one period. A blank value returns
// analytics.ErrEmptyPeriod without a round trip.
func (c *Client) Report(ctx context.Context, kind, value string) (analytics.ReportResult, error) {
	if strings.TrimSpace(value) == "" {
		return analytics.ReportResult{}, analytics.ErrEmptyPeriod
	}

	var report analytics.ReportResult
	req := c.client.R().
		SetQueryParams(map[string]string{"kind": kind, "value": value}).
		SetResult(&report)
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/reports", req)
	if err != nil {
		return analytics.ReportResult{}, fmt.Errorf("failed to get report: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return analytics.ReportResult{}, analytics.ErrEmptyPeriod
	}
	return report, nil
}

// Export downloads a rendered report. It returns the server-suggested
// filename and the document body.
func (c *Client) Export(ctx context.Context, kind, value, format string) (string, []byte, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil, analytics.ErrEmptyPeriod
	}

	req := c.client.R().SetQueryParams(map[string]string{"kind": kind, "value": value, "format": format})
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/reports/export", req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to export report: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return "", nil, analytics.ErrEmptyPeriod
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return filename, resp.Body(), nil
}

// Todos lists the todo items.
func (c *Client) Todos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/todos", c.client.R().SetResult(&todos)); err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// AddTodo creates a todo item.
func (c *Client) AddTodo(ctx context.Context, text string) (models.Todo, error) {
	var todo models.Todo
	req := c.client.R().SetBody(map[string]string{"text": text}).SetResult(&todo)
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/todos", req); err != nil {
		return models.Todo{}, fmt.Errorf("failed to add todo: %w", err)
	}
	return todo, nil
}

// ToggleTodo flips a todo's completed flag.
func (c *Client) ToggleTodo(ctx context.Context, id int64) (models.Todo, error) {
	var todo models.Todo
	path := "/api/todos/" + strconv.FormatInt(id, 10) + "/toggle"
	if _, err := c.doRequest(ctx, http.MethodPost, path, c.client.R().SetResult(&todo)); err != nil {
		return models.Todo{}, fmt.Errorf("failed to toggle todo %d: %w", id, err)
	}
	return todo, nil
}

// DeleteTodo removes a todo item.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	path := "/api/todos/" + strconv.FormatInt(id, 10)
	if _, err := c.doRequest(ctx, http.MethodDelete, path, c.client.R()); err != nil {
		return fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	req.SetContext(ctx).SetError(&errorBody{})

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			err = apiError(resp)
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.baseDelay
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

func apiError(resp *resty.Response) *APIError {
	e := &APIError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		e.Message = body.Error
		e.Field = body.Field
	}
	return e
}
