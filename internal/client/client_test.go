package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/api"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:    resty.New().SetBaseURL(server.URL),
		logger:    zap.NewNop(),
		limiter:   rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		baseDelay: time.Millisecond,
	}
	return c, server
}

func TestNewClient(t *testing.T) {
	c := NewClient(config.Client{BaseURL: "http://localhost:8080/", RateLimit: 10, RateLimitBurst: 5, TimeoutSeconds: 3}, zap.NewNop())

	assert.Equal(t, "http://localhost:8080", c.client.BaseURL)
	assert.Equal(t, rate.Limit(10), c.limiter.Limit())
	assert.Equal(t, 5, c.limiter.Burst())
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalPnl":95,"tradeCount":1,"wins":1,"winRate":100,"profitFactor":95}`))
	})
	c, server := setupTestServer(handler)
	defer server.Close()

	kpis, err := c.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, float64(95), kpis.TotalPnL)
}

func TestDoRequest_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c, server := setupTestServer(handler)
	defer server.Close()

	_, err := c.ListTrades(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list trades")
	assert.Contains(t, err.Error(), "request failed after 3 attempts")
	assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
}

func TestDoRequest_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/api/trades", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"is required","field":"symbol"}`))
	})
	c, server := setupTestServer(handler)
	defer server.Close()

	_, err := c.AddTrade(context.Background(), journal.RawTradeInput{Type: "Long"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "symbol", apiErr.Field)
	assert.Equal(t, "is required", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRequest_ContextCancelled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c, server := setupTestServer(handler)
	defer server.Close()
	c.baseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Health(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReport_BlankValueSkipsRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	c, server := setupTestServer(handler)
	defer server.Close()

	_, err := c.Report(context.Background(), "day", " ")
	assert.ErrorIs(t, err, analytics.ErrEmptyPeriod)

	_, _, err = c.Export(context.Background(), "day", "", "csv")
	assert.ErrorIs(t, err, analytics.ErrEmptyPeriod)
}

func TestClientAgainstServer(t *testing.T) {
	// Arrange
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	book := journal.NewBook(database.NewKVStore(db), journal.NewNormalizer(true), zap.NewNop())
	require.NoError(t, book.Load(context.Background()))

	c, server := setupTestServer(api.NewServer(0, book, zap.NewNop()).Router())
	defer server.Close()
	ctx := context.Background()

	// Act & Assert
	require.NoError(t, c.Health(ctx))

	trade, err := c.AddTrade(ctx, journal.RawTradeInput{Date: "2024-01-05T10:00", Market: "Stock", Symbol: "aapl",
		Type: "Long", Qty: "10", EntryPrice: "100", ExitPrice: "110", Fees: "5"})
	require.NoError(t, err)
	assert.Equal(t, float64(95), trade.PnL)

	trades, err := c.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	recent, err := c.RecentTrades(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	cal, err := c.Calendar(ctx, "2024-01")
	require.NoError(t, err)
	assert.Equal(t, float64(95), cal.Days[4].PnL)

	curve, err := c.Equity(ctx)
	require.NoError(t, err)
	require.Len(t, curve, 1)

	report, err := c.Report(ctx, "week", "2024-W01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TradeCount)

	filename, body, err := c.Export(ctx, "week", "2024-W01", "csv")
	require.NoError(t, err)
	assert.Equal(t, "Trade_Review_Weekly_2024_W01.csv", filename)
	assert.Contains(t, string(body), "AAPL")

	todo, err := c.AddTodo(ctx, "size down after two losses")
	require.NoError(t, err)
	todo, err = c.ToggleTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.True(t, todo.Completed)
	require.NoError(t, c.DeleteTodo(ctx, todo.ID))
	todos, err := c.Todos(ctx)
	require.NoError(t, err)
	assert.Empty(t, todos)

	_, err = c.ToggleTodo(ctx, todo.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	restored, err := c.RestoreTrades(ctx, trades)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	require.NoError(t, c.DeleteTrade(ctx, trade.ID))
	kpis, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, kpis.TradeCount)
}
