package journal

import (
	"errors"
	"testing"
	"time"

	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)

func newTestNormalizer(computeROI bool) *Normalizer {
	n := NewNormalizer(computeROI)
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name       string
		raw        RawTradeInput
		status     models.TradeStatus
		grossPnL   float64
		pnl        float64
		pips       float64
		investment float64
		roi        models.Percent
	}{
		{
			name: "Long stock closed with fees",
			raw: RawTradeInput{Market: "Stock", Symbol: "aapl", Type: "Long",
				EntryPrice: "100", ExitPrice: "110", Qty: "10", Fees: "5"},
			status:     models.TradeStatusClosed,
			grossPnL:   100,
			pnl:        95,
			investment: 1000,
			roi:        9.5,
		},
		{
			name: "Short forex pips",
			raw: RawTradeInput{Market: "Forex", Symbol: "EURUSD", Type: "Short",
				EntryPrice: "1.2000", ExitPrice: "1.1950", Qty: "100000"},
			status:     models.TradeStatusClosed,
			grossPnL:   500,
			pnl:        500,
			pips:       50,
			investment: 120000,
			roi:        0.42,
		},
		{
			name: "Long JPY pair uses 100 multiplier",
			raw: RawTradeInput{Market: "Forex", Symbol: "usdjpy", Type: "Long",
				EntryPrice: "150.00", ExitPrice: "150.25", Qty: "10000", Leverage: "50"},
			status:     models.TradeStatusClosed,
			grossPnL:   2500,
			pnl:        2500,
			pips:       25,
			investment: 200, // USD base: qty / leverage
			roi:        1250,
		},
		{
			name: "Manual P&L closes the trade without pips",
			raw: RawTradeInput{Market: "Forex", Symbol: "GBPUSD", Type: "Long",
				EntryPrice: "1.25", ExitPrice: "1.30", Qty: "1000", ManualPnL: "250"},
			status:     models.TradeStatusClosed,
			grossPnL:   250,
			pnl:        250,
			pips:       0,
			investment: 1250,
			roi:        20,
		},
		{
			name: "Manual P&L still pays fees",
			raw: RawTradeInput{Symbol: "BTC", Type: "Short", EntryPrice: "40000", Qty: "1",
				ManualPnL: "-100", Fees: "20", Investment: "2000"},
			status:     models.TradeStatusClosed,
			grossPnL:   -100,
			pnl:        -120,
			investment: 2000,
			roi:        -6,
		},
		{
			name: "No exit is open",
			raw: RawTradeInput{Market: "Crypto", Symbol: "ETH", Type: "Long",
				EntryPrice: "2000", Qty: "2", Fees: "3", Leverage: "4"},
			status:     models.TradeStatusOpen,
			investment: 1000,
		},
		{
			name: "Short stock loss",
			raw: RawTradeInput{Symbol: "TSLA", Type: "Short", EntryPrice: "200", ExitPrice: "210", Qty: "5"},
			status:     models.TradeStatusClosed,
			grossPnL:   -50,
			pnl:        -50,
			investment: 1000,
			roi:        -5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade, err := newTestNormalizer(true).Normalize(tc.raw)
			require.NoError(t, err)

			assert.Equal(t, tc.status, trade.Status)
			assert.InDelta(t, tc.grossPnL, trade.GrossPnL, 1e-9)
			assert.InDelta(t, tc.pnl, trade.PnL, 1e-9)
			assert.InDelta(t, tc.pips, trade.Pips, 1e-9)
			assert.InDelta(t, tc.investment, trade.Investment, 1e-9)
			assert.InDelta(t, float64(tc.roi), float64(trade.ROI), 1e-9)
		})
	}
}

func TestNormalize_StoredFields(t *testing.T) {
	trade, err := newTestNormalizer(true).Normalize(RawTradeInput{
		Date: "2024-02-01T14:05", Market: "Stock", Symbol: " msft ", Style: "Swing",
		Type: "Long", EntryPrice: "400", Qty: "3", Notes: "breakout",
	})
	require.NoError(t, err)

	assert.Equal(t, fixedNow.UnixMilli(), trade.ID)
	assert.Equal(t, "MSFT", trade.Symbol)
	assert.Equal(t, "2024-02-01T14:05:00", trade.Date.String())
	assert.Equal(t, "Swing", trade.Style)
	assert.Equal(t, "breakout", trade.Notes)
	assert.Equal(t, float64(1), trade.Leverage)
	assert.Equal(t, float64(0), trade.Fees)
	assert.Equal(t, float64(0), trade.PnL)
}

func TestNormalize_BlankDateDefaultsToNow(t *testing.T) {
	trade, err := newTestNormalizer(true).Normalize(RawTradeInput{
		Symbol: "SPY", Type: "Long", EntryPrice: "500", Qty: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05T10:30:00", trade.Date.String())
}

func TestNormalize_WithoutROI(t *testing.T) {
	trade, err := newTestNormalizer(false).Normalize(RawTradeInput{
		Symbol: "AAPL", Type: "Long", EntryPrice: "100", ExitPrice: "110", Qty: "10", Fees: "5",
	})
	require.NoError(t, err)

	assert.InDelta(t, 95, trade.PnL, 1e-9)
	assert.Equal(t, float64(0), trade.Investment)
	assert.Equal(t, models.Percent(0), trade.ROI)
}

func TestNormalize_NonForexNeverHasPips(t *testing.T) {
	for _, market := range []string{"Stock", "Crypto", "Options", "forex", ""} {
		trade, err := newTestNormalizer(true).Normalize(RawTradeInput{
			Market: market, Symbol: "EURUSD", Type: "Long", EntryPrice: "1.1", ExitPrice: "1.2", Qty: "1000",
		})
		require.NoError(t, err)
		assert.Equal(t, float64(0), trade.Pips, "market %q", market)
	}
}

func TestNormalize_ValidationErrors(t *testing.T) {
	valid := RawTradeInput{Symbol: "AAPL", Type: "Long", EntryPrice: "100", Qty: "10"}

	testCases := []struct {
		name   string
		mutate func(r *RawTradeInput)
		field  string
	}{
		{name: "missing symbol", mutate: func(r *RawTradeInput) { r.Symbol = "  " }, field: "symbol"},
		{name: "bad type", mutate: func(r *RawTradeInput) { r.Type = "long" }, field: "type"},
		{name: "missing qty", mutate: func(r *RawTradeInput) { r.Qty = "" }, field: "qty"},
		{name: "unparsable qty", mutate: func(r *RawTradeInput) { r.Qty = "ten" }, field: "qty"},
		{name: "zero qty", mutate: func(r *RawTradeInput) { r.Qty = "0" }, field: "qty"},
		{name: "missing entry", mutate: func(r *RawTradeInput) { r.EntryPrice = "" }, field: "entryPrice"},
		{name: "negative entry", mutate: func(r *RawTradeInput) { r.EntryPrice = "-1" }, field: "entryPrice"},
		{name: "unparsable exit", mutate: func(r *RawTradeInput) { r.ExitPrice = "1.2.3" }, field: "exitPrice"},
		{name: "negative exit", mutate: func(r *RawTradeInput) { r.ExitPrice = "-5" }, field: "exitPrice"},
		{name: "negative fees", mutate: func(r *RawTradeInput) { r.Fees = "-1" }, field: "fees"},
		{name: "leverage below one", mutate: func(r *RawTradeInput) { r.Leverage = "0.5" }, field: "leverage"},
		{name: "unparsable investment", mutate: func(r *RawTradeInput) { r.Investment = "lots" }, field: "investment"},
		{name: "unparsable manual pnl", mutate: func(r *RawTradeInput) { r.ManualPnL = "NaN" }, field: "manualPnL"},
		{name: "bad date", mutate: func(r *RawTradeInput) { r.Date = "yesterday" }, field: "date"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := valid
			tc.mutate(&raw)

			_, err := newTestNormalizer(true).Normalize(raw)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTrade))
			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}
