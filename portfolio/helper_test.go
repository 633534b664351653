package portfolio

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/fx"
	"github.com/custodian/acb/util"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mkDate(day int) date.Date {
	return date.New(2020, time.January, 1).AddDays(day)
}

// Test Tx
type TTx struct {
	Day   int
	Date  date.Date // Overrides Day
	Kind  TxKind
	Desc  string
	Base  Currency
	Quote Currency // Defaults to CAD
	Qty   string
	Price string
	Fees  string
	Rate  string // Preset quote to reporting rate
}

// eXpand to full type.
func (t TTx) X() *Tx {
	tx := &Tx{
		Date:          util.Tern(t.Date.IsZero(), mkDate(t.Day), t.Date),
		Kind:          t.Kind,
		Description:   t.Desc,
		BaseCurrency:  t.Base,
		QuoteCurrency: util.Tern(t.Quote == "", CAD, t.Quote),
		Quantity:      d(t.Qty),
		Price:         d(util.Tern(t.Price == "", "0", t.Price)),
		Fees:          d(util.Tern(t.Fees == "", "0", t.Fees)),
	}
	if t.Rate != "" {
		tx.QuoteToReportingRate.Set(d(t.Rate))
	}
	return tx
}

func seed(t *testing.T, h *Holdings, asset Currency, day int, qty, acb string) {
	require.NoError(t, h.Add(AssetHolding{
		Date: mkDate(day), Asset: asset, Quantity: d(qty), Acb: d(acb)}, false))
}

func requireDecEq(t *testing.T, exp string, actual decimal.Decimal, what ...string) {
	t.Helper()
	require.True(t, d(exp).Equal(actual), "%s expected %s, got %s", strings.Join(what, " "), exp, actual)
}

func requireClose(t *testing.T, exp string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, util.IsClose(d(exp), actual), "expected ~%s, got %s", exp, actual)
}

func usdCadRates(rate string) *fx.StaticRates {
	return fx.NewStaticRates().Set("USD", "CAD", mkDate(-365), d(rate))
}
