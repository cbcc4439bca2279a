package export

import (
	"fmt"
	"strconv"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Header is the fixed column set of an exported report.
var Header = []string{"Date", "Market", "Symbol", "Style", "Type", "P&L", "Notes"}

const rowDateLayout = "1/2/2006"

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders an amount as US dollars, e.g. $1,234.56 or -$1,234.56.
func FormatUSD(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + usd.Sprintf("$%.2f", d.Abs().InexactFloat64())
}

// Summary is the headline block printed above the table.
type Summary struct {
	NetPnL  string `json:"netPnl"`
	WinRate string `json:"winRate"`
	Trades  string `json:"trades"`
}

// Document is a report laid out for export: a title, a summary and one
// row per trade in the fixed Header order.
type Document struct {
	Title       string     `json:"title"`
	Range       string     `json:"range,omitempty"`
	Filename    string     `json:"filename"` // without extension
	GeneratedOn string     `json:"generatedOn"`
	Summary     Summary    `json:"summary"`
	Header      []string   `json:"header"`
	Rows        [][]string `json:"rows"`
}

// NewDocument lays out report. generatedAt only feeds the "Generated on"
// line.
func NewDocument(report analytics.ReportResult, generatedAt time.Time) Document {
	doc := Document{
		GeneratedOn: generatedAt.Format(rowDateLayout),
		Summary: Summary{
			NetPnL:  FormatUSD(report.TotalPnL),
			WinRate: formatWinRate(report),
			Trades:  strconv.Itoa(report.TradeCount),
		},
		Header: Header,
		Rows:   make([][]string, 0, len(report.Rows)),
	}
	doc.Title, doc.Range, doc.Filename = titles(report.Period)

	for _, t := range report.Rows {
		doc.Rows = append(doc.Rows, row(t))
	}
	return doc
}

func titles(p analytics.Period) (title, span, filename string) {
	start, end := p.Bounds()
	last := end.AddDate(0, 0, -1)

	switch p.Kind {
	case analytics.PeriodDay:
		return "Daily Trade Review: " + start.Format("January 2, 2006"),
			"",
			"Trade_Review_Daily_" + start.Format(models.DateKeyLayout)
	case analytics.PeriodWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("Weekly Trade Review: Week %02d, %d", week, year),
			start.Format("Jan 2") + " - " + last.Format("Jan 2, 2006"),
			fmt.Sprintf("Trade_Review_Weekly_%d_W%02d", year, week)
	default:
		return "Monthly Trade Review: " + start.Format("January 2006"),
			"",
			"Trade_Review_" + start.Format("January_2006")
	}
}

func formatWinRate(report analytics.ReportResult) string {
	if report.TradeCount == 0 {
		return "0%"
	}
	return strconv.FormatFloat(report.WinRate, 'f', 1, 64) + "%"
}

func row(t models.Trade) []string {
	style := t.Style
	if style == "" {
		style = "-"
	}

	pnl := FormatUSD(t.PnL)
	if t.Market == models.MarketForex && t.Pips != 0 {
		sign := ""
		if t.Pips > 0 {
			sign = "+"
		}
		pnl += fmt.Sprintf(" (%s%s pips)", sign, strconv.FormatFloat(t.Pips, 'f', -1, 64))
	}

	return []string{
		t.Date.Format(rowDateLayout),
		t.DisplayMarket(),
		t.Symbol,
		style,
		string(t.Type),
		pnl,
		t.Notes,
	}
}
