package portfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/util"
)

// Currency is any asset code: a fiat currency, a ticker or a token.
type Currency string

const (
	CAD Currency = "CAD"
	USD Currency = "USD"
)

type TxKind int

const (
	TRADE TxKind = iota
	// Employer-granted shares. Processing injects a FUNDING leg first.
	VEST
	FUNDING
)

func (k TxKind) String() string {
	switch k {
	case TRADE:
		return "Trade"
	case VEST:
		return "Vest"
	case FUNDING:
		return "Funding"
	}
	return fmt.Sprintf("TxKind(%d)", int(k))
}

func ParseTxKind(s string) (TxKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "trade", "buy", "sell":
		return TRADE, nil
	case "vest":
		return VEST, nil
	case "funding":
		return FUNDING, nil
	}
	return TRADE, fmt.Errorf("unknown transaction kind %q", s)
}

func (k TxKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TxKind) UnmarshalText(text []byte) error {
	kind, err := ParseTxKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

type TxAction int

const (
	BUY TxAction = iota
	SELL
)

func (a TxAction) String() string {
	if a == BUY {
		return "Buy"
	}
	return "Sell"
}

// Tx converts Quantity units of BaseCurrency against QuoteCurrency at Price.
// A positive Quantity acquires the base currency, a negative one disposes of
// it. Price and Fees are in the quote currency.
type Tx struct {
	Date          date.Date
	Kind          TxKind
	Description   string
	BaseCurrency  Currency
	QuoteCurrency Currency
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Fees          decimal.Decimal
	// Units of reporting currency per unit of quote currency on Date.
	QuoteToReportingRate util.Optional[decimal.Decimal]
	Note                 string
}

func (tx *Tx) Action() TxAction {
	if tx.Quantity.IsPositive() {
		return BUY
	}
	return SELL
}

// Cost is the signed amount of quote currency, fees included.
func (tx *Tx) Cost() decimal.Decimal {
	return tx.Quantity.Mul(tx.Price).Add(tx.Fees)
}

func (tx *Tx) ReportingCost() (decimal.Decimal, error) {
	rate, ok := tx.QuoteToReportingRate.Get()
	if !ok {
		return decimal.Zero, fmt.Errorf("reporting cost of %s: %w", tx, ErrUnsetRate)
	}
	return tx.Cost().Mul(rate), nil
}

// WithEffectivePrice returns a copy with the fees folded into the price.
func (tx *Tx) WithEffectivePrice() (*Tx, error) {
	if tx.Quantity.IsZero() {
		return nil, fmt.Errorf("%s: %w", tx, ErrZeroQuantity)
	}
	ntx := *tx
	ntx.Price = util.Div(tx.Cost(), tx.Quantity)
	ntx.Fees = decimal.Zero
	return &ntx, nil
}

// Flip re-expresses the transaction from the quote currency's side: selling
// X units of A for B becomes buying X*price units of B with A.
func (tx *Tx) Flip() (*Tx, error) {
	rate, ok := tx.QuoteToReportingRate.Get()
	if !ok {
		return nil, fmt.Errorf("cannot flip %s: %w", tx, ErrUnsetRate)
	}
	if tx.Price.IsZero() {
		return nil, fmt.Errorf("cannot flip %s: %w", tx, ErrZeroPrice)
	}
	return &Tx{
		Date:                 tx.Date,
		Kind:                 tx.Kind,
		Description:          tx.Description,
		BaseCurrency:         tx.QuoteCurrency,
		QuoteCurrency:        tx.BaseCurrency,
		Quantity:             tx.Quantity.Mul(tx.Price).Neg(),
		Price:                util.Div(decimal.NewFromInt(1), tx.Price),
		Fees:                 util.Div(tx.Fees, tx.Price),
		QuoteToReportingRate: util.NewOptional(rate.Mul(tx.Price)),
		Note:                 tx.Note,
	}, nil
}

func (tx *Tx) String() string {
	return fmt.Sprintf("%s %s %s %s %s @ %s %s",
		tx.Date, tx.Kind, tx.Action(), tx.Quantity.Abs(), tx.BaseCurrency, tx.Price, tx.QuoteCurrency)
}
