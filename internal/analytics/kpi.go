package analytics

import (
	"sort"
	"time"

	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// KPISummary holds the dashboard metrics over closed trades.
type KPISummary struct {
	TotalPnL     float64 `json:"totalPnl"`
	WinRate      float64 `json:"winRate"`      // percent, 1 decimal
	ProfitFactor float64 `json:"profitFactor"` // 2 decimals
	TradeCount   int     `json:"tradeCount"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"`
}

// ComputeKPIs aggregates closed trades. A break-even trade counts as a loss.
// When there is no gross loss the profit factor is the gross profit itself.
func ComputeKPIs(trades []models.Trade) KPISummary {
	closed := Closed(trades)

	total := decimal.Zero
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	wins := 0
	for _, t := range closed {
		pnl := decimal.NewFromFloat(t.PnL)
		total = total.Add(pnl)
		if pnl.IsPositive() {
			wins++
			grossProfit = grossProfit.Add(pnl)
		} else if pnl.IsNegative() {
			grossLoss = grossLoss.Add(pnl)
		}
	}
	grossLoss = grossLoss.Abs()

	profitFactor := grossProfit
	if !grossLoss.IsZero() {
		profitFactor = grossProfit.Div(grossLoss)
	}

	return KPISummary{
		TotalPnL:     total.InexactFloat64(),
		WinRate:      winRate(wins, len(closed)),
		ProfitFactor: profitFactor.Round(2).InexactFloat64(),
		TradeCount:   len(closed),
		Wins:         wins,
		Losses:       len(closed) - wins,
		GrossProfit:  grossProfit.InexactFloat64(),
		GrossLoss:    grossLoss.InexactFloat64(),
	}
}

// Closed filters to closed trades, keeping their order.
func Closed(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}

func winRate(wins, count int) float64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(wins)).
		Div(decimal.NewFromInt(int64(count))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		InexactFloat64()
}

// ComputeDailyPnL sums closed-trade P&L per calendar date (YYYY-MM-DD).
func ComputeDailyPnL(trades []models.Trade) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		key := t.Date.DateKey()
		sums[key] = sums[key].Add(decimal.NewFromFloat(t.PnL))
	}

	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum.InexactFloat64()
	}
	return out
}

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	TradeID    int64   `json:"tradeId"`
	Date       string  `json:"date"`
	PnL        float64 `json:"pnl"`
	Cumulative float64 `json:"cumulative"`
}

// EquityCurve orders closed trades by date and accumulates their P&L.
// Trades with equal dates keep their relative order.
func EquityCurve(trades []models.Trade) []EquityPoint {
	closed := Closed(trades)
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Date.Before(closed[j].Date.Time)
	})

	points := make([]EquityPoint, 0, len(closed))
	running := decimal.Zero
	for _, t := range closed {
		running = running.Add(decimal.NewFromFloat(t.PnL))
		points = append(points, EquityPoint{
			TradeID:    t.ID,
			Date:       t.Date.String(),
			PnL:        t.PnL,
			Cumulative: running.InexactFloat64(),
		})
	}
	return points
}

// RecentTrades returns up to n trades from the front of the collection,
// which holds the newest ones.
func RecentTrades(trades []models.Trade, n int) []models.Trade {
	if n < 0 {
		n = 0
	}
	if n > len(trades) {
		n = len(trades)
	}
	out := make([]models.Trade, n)
	copy(out, trades[:n])
	return out
}

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Day      int     `json:"day"`
	Date     string  `json:"date"`
	HasPnL   bool    `json:"hasPnl"`
	PnL      float64 `json:"pnl,omitempty"`
	Positive bool    `json:"positive"`
}

// CalendarMonth is a Sunday-first month grid. LeadingBlanks empty cells
// precede the first day.
type CalendarMonth struct {
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	LeadingBlanks int           `json:"leadingBlanks"`
	Days          []CalendarDay `json:"days"`
	TotalPnL      float64       `json:"totalPnl"`
}

// BuildCalendar lays out daily P&L for one month.
func BuildCalendar(trades []models.Trade, year int, month time.Month) CalendarMonth {
	daily := ComputeDailyPnL(trades)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cal := CalendarMonth{
		Year:          year,
		Month:         int(month),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]CalendarDay, 0, daysInMonth),
	}

	total := decimal.Zero
	for d := 1; d <= daysInMonth; d++ {
		key := first.AddDate(0, 0, d-1).Format(models.DateKeyLayout)
		day := CalendarDay{Day: d, Date: key}
		if pnl, ok := daily[key]; ok {
			day.HasPnL = true
			day.PnL = pnl
			day.Positive = pnl >= 0
			total = total.Add(decimal.NewFromFloat(pnl))
		}
		cal.Days = append(cal.Days, day)
	}
	cal.TotalPnL = total.InexactFloat64()
	return cal
}
