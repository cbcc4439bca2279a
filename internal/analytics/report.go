package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

var (
	// ErrEmptyPeriod means no period was selected. Callers skip the report.
	ErrEmptyPeriod = errors.New("no report period selected")
	// ErrInvalidPeriod is wrapped by every period parsing failure.
	ErrInvalidPeriod = errors.New("invalid report period")
)

// PeriodKind selects how a report partitions the calendar.
type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// Period is a parsed report period: one day (YYYY-MM-DD), one ISO week
// (YYYY-Www) or one month (YYYY-MM).
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Value string     `json:"value"`

	start time.Time
	end   time.Time // exclusive
}

// ParsePeriod validates value for kind. A blank value is ErrEmptyPeriod.
func ParsePeriod(kind, value string) (Period, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Period{}, ErrEmptyPeriod
	}

	p := Period{Kind: PeriodKind(strings.ToLower(strings.TrimSpace(kind))), Value: value}
	switch p.Kind {
	case PeriodDay:
		day, err := time.ParseInLocation(models.DateKeyLayout, value, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: day %q must be YYYY-MM-DD", ErrInvalidPeriod, value)
		}
		p.start, p.end = day, day.AddDate(0, 0, 1)
	case PeriodWeek:
		year, week, err := ParseISOWeek(value)
		if err != nil {
			return Period{}, err
		}
		p.start = ISOWeekStart(year, week)
		p.end = p.start.AddDate(0, 0, 7)
	case PeriodMonth:
		month, err := time.ParseInLocation("2006-01", value, time.UTC)
		if err != nil {
			return Period{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidPeriod, value)
		}
		p.start, p.end = month, month.AddDate(0, 1, 0)
	default:
		return Period{}, fmt.Errorf("%w: unknown kind %q, expected day|week|month", ErrInvalidPeriod, kind)
	}
	return p, nil
}

// UnmarshalJSON restores the bounds from kind and value, which are all a
// period carries on the wire.
func (p *Period) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	parsed, err := ParsePeriod(wire.Kind, wire.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Bounds returns the half-open wall-clock range [start, end).
func (p Period) Bounds() (start, end time.Time) {
	return p.start, p.end
}

// Contains reports whether a wall-clock timestamp falls in the period.
func (p Period) Contains(w models.WallTime) bool {
	return !w.Before(p.start) && w.Before(p.end)
}

// ParseISOWeek parses an identifier like 2024-W01.
func ParseISOWeek(value string) (year, week int, err error) {
	yearPart, weekPart, ok := strings.Cut(strings.ToUpper(value), "-W")
	if !ok {
		return 0, 0, fmt.Errorf("%w: week %q must be YYYY-Www", ErrInvalidPeriod, value)
	}
	year, errYear := strconv.Atoi(yearPart)
	week, errWeek := strconv.Atoi(weekPart)
	if errYear != nil || errWeek != nil || len(yearPart) != 4 || len(weekPart) != 2 {
		return 0, 0, fmt.Errorf("%w: week %q must be YYYY-Www", ErrInvalidPeriod, value)
	}
	if week < 1 || week > isoWeeksInYear(year) {
		return 0, 0, fmt.Errorf("%w: %d has no week %d", ErrInvalidPeriod, year, week)
	}
	return year, week, nil
}

// ISOWeekStart returns the Monday that starts ISO week `week` of `year`.
// Week 1 is the week holding the year's first Thursday: if Jan 1 falls on
// Monday..Thursday its week is week 1, otherwise week 1 starts the
// following Monday.
func ISOWeekStart(year, week int) time.Time {
	simple := time.Date(year, time.January, 1+(week-1)*7, 0, 0, 0, 0, time.UTC)
	dow := isoWeekday(simple)
	if dow <= 4 {
		return simple.AddDate(0, 0, 1-dow)
	}
	return simple.AddDate(0, 0, 8-dow)
}

// isoWeekday maps Sunday=0..Saturday=6 to Monday=1..Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func isoWeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// ReportResult is the period-scoped aggregate handed to exporters.
type ReportResult struct {
	Period     Period         `json:"period"`
	Start      string         `json:"start"`
	End        string         `json:"end"` // last day, inclusive
	TotalPnL   float64        `json:"totalPnl"`
	WinRate    float64        `json:"winRate"`
	TradeCount int            `json:"tradeCount"`
	Rows       []models.Trade `json:"rows"`
}

// BuildReport filters closed trades into period, keeping input order. An
// empty selection yields zero metrics and no rows.
func BuildReport(trades []models.Trade, period Period) ReportResult {
	rows := make([]models.Trade, 0)
	for _, t := range trades {
		if t.IsClosed() && period.Contains(t.Date) {
			rows = append(rows, t)
		}
	}
	kpis := ComputeKPIs(rows)

	start, end := period.Bounds()
	return ReportResult{
		Period:     period,
		Start:      start.Format(models.DateKeyLayout),
		End:        end.AddDate(0, 0, -1).Format(models.DateKeyLayout),
		TotalPnL:   kpis.TotalPnL,
		WinRate:    kpis.WinRate,
		TradeCount: kpis.TradeCount,
		Rows:       rows,
	}
}
