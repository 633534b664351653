package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
)

var (
	ErrZeroQuantity = errors.New("transaction quantity is zero")
	ErrZeroPrice    = errors.New("transaction price is zero")
	ErrUnsetRate    = errors.New("quote to reporting rate is not set")
	ErrDuplicateKey = errors.New("holding already exists")
	ErrSameCurrency = errors.New("base and quote currencies are the same")
	ErrNoRateSource = errors.New("no rate source")
)

type RateLookupError struct {
	Date  date.Date
	Base  Currency
	Quote Currency
	Err   error
}

func (e *RateLookupError) Error() string {
	return fmt.Sprintf("Error getting rate for %s %s to %s: %v", e.Date, e.Base, e.Quote, e.Err)
}

func (e *RateLookupError) Unwrap() error { return e.Err }

// InsufficientFundsError is returned when a transaction spends more of its
// quote currency than is held. Holdings is the latest snapshot of every asset
// at the time of failure.
type InsufficientFundsError struct {
	Tx        *Tx
	Cost      decimal.Decimal
	Currency  Currency
	Available decimal.Decimal
	Holdings  []AssetHolding
}

func (e *InsufficientFundsError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Insufficient funds to complete transaction on %s.\n", e.Tx.Date)
	fmt.Fprintf(&b, " - Cost: %s %s\n", e.Cost, e.Currency)
	fmt.Fprintf(&b, " - Current holdings: %s %s\n", e.Available, e.Currency)
	fmt.Fprintf(&b, "Details:\nTransaction: %s", e.Tx)
	if e.Tx.Description != "" {
		fmt.Fprintf(&b, " (%s)", e.Tx.Description)
	}
	b.WriteString("\nCurrent holdings:\n")
	for _, h := range e.Holdings {
		fmt.Fprintf(&b, "  %s\n", h)
	}
	return b.String()
}
