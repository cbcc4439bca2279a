package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TradeType is the direction of a trade. It decides the P&L sign convention.
type TradeType string

const (
	TradeTypeLong  TradeType = "Long"
	TradeTypeShort TradeType = "Short"
)

// TradeStatus is derived from the exit price or a manual P&L override.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "Open"
	TradeStatusClosed TradeStatus = "Closed"
)

const (
	MarketStock = "Stock"
	MarketForex = "Forex"
)

// Trade is a fully derived journal entry. Trades are never updated in place.
type Trade struct {
	ID         int64       `json:"id"`
	Date       WallTime    `json:"date"`
	Market     string      `json:"market"`
	Symbol     string      `json:"symbol"`
	Style      string      `json:"style,omitempty"`
	Type       TradeType   `json:"type"`
	Qty        float64     `json:"qty"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	Fees       float64     `json:"fees"`
	Leverage   float64     `json:"leverage"`
	Investment float64     `json:"investment,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Status     TradeStatus `json:"status"`
	GrossPnL   float64     `json:"grossPnl,omitempty"` // before fees
	PnL        float64     `json:"pnl"`                // net of fees
	ROI        Percent     `json:"roi"`
	Pips       float64     `json:"pips"`
}

// IsClosed reports whether the trade contributes to aggregates.
func (t Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}

// DisplayMarket returns the market, falling back to Stock for records
// written before the market field existed.
func (t Trade) DisplayMarket() string {
	if t.Market == "" {
		return MarketStock
	}
	return t.Market
}

// ApplyDefaults fills fields that older stored records may lack.
func (t *Trade) ApplyDefaults() {
	if t.Leverage == 0 {
		t.Leverage = 1
	}
	if t.Status == "" {
		t.Status = TradeStatusOpen
	}
}

// Percent is a numeric percentage. Older records stored ROI as a
// fixed-decimal string ("12.50"), so decoding accepts both forms while
// encoding always emits a number.
type Percent float64

func (p *Percent) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*p = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(str), "%")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid percent %s: %w", string(data), err)
	}
	*p = Percent(v)
	return nil
}

// String formats the percentage with two decimals, the way it is displayed.
func (p Percent) String() string {
	return strconv.FormatFloat(float64(p), 'f', 2, 64) + "%"
}
