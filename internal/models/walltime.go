package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	WallTimeLayout = "2006-01-02T15:04:05"
	DateKeyLayout  = "2006-01-02"
)

var wallTimeLayouts = []string{
	WallTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateKeyLayout,
}

// WallTime is a timezone-naive timestamp. The wall clock is carried in a
// time.Time pinned to UTC and is never converted, so calendar dates are
// the ones the user typed.
type WallTime struct {
	time.Time
}

// NewWallTime keeps the wall clock of t and drops its location.
func NewWallTime(t time.Time) WallTime {
	return WallTime{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseWallTime accepts datetime-local, date-only and RFC 3339 inputs.
// An RFC 3339 offset is discarded, not applied.
func ParseWallTime(s string) (WallTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wallTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return WallTime{t}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewWallTime(t), nil
	}
	return WallTime{}, fmt.Errorf("unrecognized date %q", s)
}

// DateKey is the calendar date, YYYY-MM-DD.
func (w WallTime) DateKey() string {
	return w.Format(DateKeyLayout)
}

// Midnight truncates to the start of the calendar day.
func (w WallTime) Midnight() time.Time {
	return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, time.UTC)
}

func (w WallTime) String() string {
	return w.Format(WallTimeLayout)
}

func (w WallTime) MarshalJSON() ([]byte, error) {
	if w.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(w.Format(WallTimeLayout))
}

func (w *WallTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*w = WallTime{}
		return nil
	}
	parsed, err := ParseWallTime(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
