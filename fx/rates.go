// Package fx provides historical exchange rates. The production source is the
// Bank of Canada's daily FX_RATES_DAILY series, which quotes every currency
// in CAD; other pairs are crossed through CAD.
package fx

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
)

const CAD = "CAD"

var (
	ErrRateNotFound      = errors.New("exchange rate not found")
	ErrUnknownCurrency   = errors.New("currency not available")
	ErrFutureRateRequest = errors.New("exchange rate requested for a future date")
)

// RateSource supplies the price of one unit of base, in quote, on a given day.
type RateSource interface {
	GetRate(base, quote string, on date.Date) (decimal.Decimal, error)
}

// DailyRates holds the CAD value of one unit of each currency observed on a
// day.
type DailyRates struct {
	Date  date.Date
	Rates map[string]decimal.Decimal
}

func sortDailyRates(rates []DailyRates) {
	sort.SliceStable(rates, func(i, j int) bool {
		return rates[i].Date.Before(rates[j].Date)
	})
}

type pair struct {
	base  string
	quote string
}

type datedRate struct {
	on   date.Date
	rate decimal.Decimal
}

// StaticRates is an in-memory RateSource. A lookup returns the latest rate
// set on or before the requested day, falling back to the inverse pair.
type StaticRates struct {
	rates map[pair][]datedRate
}

func NewStaticRates() *StaticRates {
	return &StaticRates{rates: make(map[pair][]datedRate)}
}

func (s *StaticRates) Set(base, quote string, on date.Date, rate decimal.Decimal) *StaticRates {
	p := pair{base, quote}
	rs := s.rates[p]
	i := sort.Search(len(rs), func(i int) bool { return !rs[i].on.Before(on) })
	if i < len(rs) && rs[i].on.Equal(on) {
		rs[i].rate = rate
		return s
	}
	rs = append(rs, datedRate{})
	copy(rs[i+1:], rs[i:])
	rs[i] = datedRate{on: on, rate: rate}
	s.rates[p] = rs
	return s
}

func (s *StaticRates) asOf(base, quote string, on date.Date) (decimal.Decimal, bool) {
	rs := s.rates[pair{base, quote}]
	i := sort.Search(len(rs), func(i int) bool { return rs[i].on.After(on) })
	if i == 0 {
		return decimal.Zero, false
	}
	return rs[i-1].rate, true
}

func (s *StaticRates) GetRate(base, quote string, on date.Date) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := s.asOf(base, quote, on); ok {
		return r, nil
	}
	if r, ok := s.asOf(quote, base, on); ok && !r.IsZero() {
		return decimal.NewFromInt(1).Div(r), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s on %s", ErrRateNotFound, base, quote, on)
}
