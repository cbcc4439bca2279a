package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trade-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidTrade is wrapped by every validation failure.
var ErrInvalidTrade = errors.New("invalid trade")

// FieldError names the submitted field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidTrade, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidTrade
}

// RawTradeInput is a trade as submitted from a form: every value is text
// and optional fields may be blank.
type RawTradeInput struct {
	Date       string `json:"date"`
	Market     string `json:"market"`
	Symbol     string `json:"symbol"`
	Style      string `json:"style"`
	Type       string `json:"type"`
	Qty        string `json:"qty"`
	EntryPrice string `json:"entryPrice"`
	ExitPrice  string `json:"exitPrice"`
	Fees       string `json:"fees"`
	Leverage   string `json:"leverage"`
	Investment string `json:"investment"`
	Notes      string `json:"notes"`
	ManualPnL  string `json:"manualPnL"`
}

var (
	hundred     = decimal.NewFromInt(100)
	tenThousand = decimal.NewFromInt(10000)
)

// Normalizer turns raw input into a derived Trade.
type Normalizer struct {
	computeROI bool
	now        func() time.Time
}

// NewNormalizer returns a Normalizer. computeROI enables investment
// auto-derivation and the ROI field.
func NewNormalizer(computeROI bool) *Normalizer {
	return &Normalizer{computeROI: computeROI, now: time.Now}
}

// Normalize validates raw and derives status, P&L, pips, investment and ROI.
// Nothing is derived from a submission that fails validation.
func (n *Normalizer) Normalize(raw RawTradeInput) (models.Trade, error) {
	in, err := n.validate(raw)
	if err != nil {
		return models.Trade{}, err
	}

	status := models.TradeStatusOpen
	pnl := decimal.Zero
	pips := decimal.Zero

	switch {
	case in.manualPnL != nil:
		pnl = *in.manualPnL
		status = models.TradeStatusClosed
	case in.exitPrice.IsPositive():
		status = models.TradeStatusClosed
		delta := in.exitPrice.Sub(in.entryPrice)
		if in.tradeType == models.TradeTypeShort {
			delta = in.entryPrice.Sub(in.exitPrice)
		}
		pnl = delta.Mul(in.qty)
		if in.market == models.MarketForex {
			pips = delta.Mul(pipMultiplier(in.symbol)).Round(1)
		}
	}

	investment := in.investment
	if n.computeROI && investment.IsZero() {
		investment = deriveInvestment(in)
	}

	netPnL := decimal.Zero
	if status == models.TradeStatusClosed {
		netPnL = pnl.Sub(in.fees)
	}

	roi := decimal.Zero
	if n.computeROI && status == models.TradeStatusClosed && investment.IsPositive() {
		roi = netPnL.Div(investment).Mul(hundred).Round(2)
	}

	grossPnL := decimal.Zero
	if status == models.TradeStatusClosed {
		grossPnL = pnl
	}

	return models.Trade{
		ID:         n.now().UnixMilli(),
		Date:       in.date,
		Market:     in.market,
		Symbol:     in.symbol,
		Style:      strings.TrimSpace(raw.Style),
		Type:       in.tradeType,
		Qty:        in.qty.InexactFloat64(),
		EntryPrice: in.entryPrice.InexactFloat64(),
		ExitPrice:  in.exitPrice.InexactFloat64(),
		Fees:       in.fees.InexactFloat64(),
		Leverage:   in.leverage.InexactFloat64(),
		Investment: investment.InexactFloat64(),
		Notes:      raw.Notes,
		Status:     status,
		GrossPnL:   grossPnL.InexactFloat64(),
		PnL:        netPnL.InexactFloat64(),
		ROI:        models.Percent(roi.InexactFloat64()),
		Pips:       pips.InexactFloat64(),
	}, nil
}

// pipMultiplier converts a price delta to pips. JPY pairs quote two decimals.
func pipMultiplier(symbol string) decimal.Decimal {
	if strings.Contains(symbol, "JPY") {
		return hundred
	}
	return tenThousand
}

// deriveInvestment is a simplified margin model. Forex pairs with a USD
// base are valued at qty, everything else at qty * entry, both divided by
// leverage. It ignores the quote currency's exchange rate.
func deriveInvestment(in validInput) decimal.Decimal {
	if !in.entryPrice.IsPositive() || !in.qty.IsPositive() {
		return decimal.Zero
	}
	if in.market == models.MarketForex && strings.HasPrefix(in.symbol, "USD") {
		return in.qty.Div(in.leverage)
	}
	return in.entryPrice.Mul(in.qty).Div(in.leverage)
}

type validInput struct {
	date       models.WallTime
	market     string
	symbol     string
	tradeType  models.TradeType
	qty        decimal.Decimal
	entryPrice decimal.Decimal
	exitPrice  decimal.Decimal
	fees       decimal.Decimal
	leverage   decimal.Decimal
	investment decimal.Decimal
	manualPnL  *decimal.Decimal
}

func (n *Normalizer) validate(raw RawTradeInput) (validInput, error) {
	var in validInput
	var err error

	in.symbol = strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if in.symbol == "" {
		return in, &FieldError{Field: "symbol", Message: "is required"}
	}
	in.market = strings.TrimSpace(raw.Market)

	switch models.TradeType(strings.TrimSpace(raw.Type)) {
	case models.TradeTypeLong:
		in.tradeType = models.TradeTypeLong
	case models.TradeTypeShort:
		in.tradeType = models.TradeTypeShort
	default:
		return in, &FieldError{Field: "type", Message: fmt.Sprintf("must be Long or Short, got %q", raw.Type)}
	}

	if strings.TrimSpace(raw.Date) == "" {
		in.date = models.NewWallTime(n.now())
	} else if in.date, err = models.ParseWallTime(raw.Date); err != nil {
		return in, &FieldError{Field: "date", Message: "is not a valid date"}
	}

	if in.qty, err = requiredPositive("qty", raw.Qty); err != nil {
		return in, err
	}
	if in.entryPrice, err = requiredPositive("entryPrice", raw.EntryPrice); err != nil {
		return in, err
	}
	if in.exitPrice, err = optionalDecimal("exitPrice", raw.ExitPrice, decimal.Zero); err != nil {
		return in, err
	}
	if in.exitPrice.IsNegative() {
		return in, &FieldError{Field: "exitPrice", Message: "must not be negative"}
	}
	if in.fees, err = optionalDecimal("fees", raw.Fees, decimal.Zero); err != nil {
		return in, err
	}
	if in.fees.IsNegative() {
		return in, &FieldError{Field: "fees", Message: "must not be negative"}
	}
	if in.leverage, err = optionalDecimal("leverage", raw.Leverage, decimal.NewFromInt(1)); err != nil {
		return in, err
	}
	if in.leverage.LessThan(decimal.NewFromInt(1)) {
		return in, &FieldError{Field: "leverage", Message: "must be at least 1"}
	}
	if in.investment, err = optionalDecimal("investment", raw.Investment, decimal.Zero); err != nil {
		return in, err
	}
	if in.investment.IsNegative() {
		return in, &FieldError{Field: "investment", Message: "must not be negative"}
	}

	if strings.TrimSpace(raw.ManualPnL) != "" {
		manual, err := parseDecimal("manualPnL", raw.ManualPnL)
		if err != nil {
			return in, err
		}
		in.manualPnL = &manual
	}

	return in, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Message: fmt.Sprintf("is not a number: %q", s)}
	}
	return d, nil
}

func requiredPositive(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, &FieldError{Field: field, Message: "is required"}
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, &FieldError{Field: field, Message: "must be greater than zero"}
	}
	return d, nil
}

func optionalDecimal(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return parseDecimal(field, s)
}

// CheckRecord validates an already derived trade, such as one restored from
// an exported journal. The symbol is upper-cased and stored defaults are
// applied first. Field names are prefixed with prefix.
func CheckRecord(t *models.Trade, prefix string) error {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.ApplyDefaults()

	fail := func(field, msg string) error {
		return &FieldError{Field: prefix + field, Message: msg}
	}

	switch {
	case t.Symbol == "":
		return fail("symbol", "is required")
	case t.Type != models.TradeTypeLong && t.Type != models.TradeTypeShort:
		return fail("type", fmt.Sprintf("must be Long or Short, got %q", t.Type))
	case t.Qty <= 0:
		return fail("qty", "must be greater than zero")
	case t.EntryPrice <= 0:
		return fail("entryPrice", "must be greater than zero")
	case t.ExitPrice < 0:
		return fail("exitPrice", "must not be negative")
	case t.Fees < 0:
		return fail("fees", "must not be negative")
	case t.Leverage < 1:
		return fail("leverage", "must be at least 1")
	case t.Investment < 0:
		return fail("investment", "must not be negative")
	}

	switch t.Status {
	case models.TradeStatusClosed:
	case models.TradeStatusOpen:
		if t.ExitPrice > 0 {
			return fail("status", "is Open but the trade has an exit price")
		}
		if t.PnL != 0 || t.GrossPnL != 0 || t.Pips != 0 || t.ROI != 0 {
			return fail("pnl", "must be zero while the trade is Open")
		}
	default:
		return fail("status", fmt.Sprintf("must be Open or Closed, got %q", t.Status))
	}
	return nil
}
