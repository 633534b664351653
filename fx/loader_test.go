package fx

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custodian/acb/date"
)

type fakeFetcher struct {
	byYear map[int][]DailyRates
	calls  []string
}

func (f *fakeFetcher) Fetch(start, end date.Date) ([]DailyRates, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%s", start, end))
	days, ok := f.byYear[start.Year()]
	if !ok {
		return nil, fmt.Errorf("no data for %d", start.Year())
	}
	return append([]DailyRates(nil), days...), nil
}

type recordingPrinter struct {
	msgs []string
}

func (p *recordingPrinter) Ln(v ...interface{})               { p.msgs = append(p.msgs, fmt.Sprintln(v...)) }
func (p *recordingPrinter) F(format string, v ...interface{}) { p.msgs = append(p.msgs, fmt.Sprintf(format, v...)) }

func day(d string, rates ...string) DailyRates {
	dr := DailyRates{Date: date.MustParse(d), Rates: map[string]decimal.Decimal{}}
	for i := 0; i+1 < len(rates); i += 2 {
		dr.Rates[rates[i]] = decimal.RequireFromString(rates[i+1])
	}
	return dr
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{byYear: map[int][]DailyRates{
		2021: {
			day("2021-12-30", "USD", "1.2700", "EUR", "1.4400"),
			day("2021-12-31", "USD", "1.2678", "EUR", "1.4399"),
		},
		2022: {
			day("2022-01-05", "USD", "1.2800", "EUR", "1.4400"),
			day("2022-01-04", "USD", "1.2700", "EUR", "1.4300"),
		},
	}}
}

func withToday(t *testing.T, d string) {
	date.TodaysDateForTest = date.MustParse(d)
	t.Cleanup(func() { date.TodaysDateForTest = date.Date{} })
}

func TestRateLoaderLookups(t *testing.T) {
	rq := require.New(t)
	withToday(t, "2022-06-30")
	fetcher := newFakeFetcher()
	l := NewRateLoaderWithFetcher(false, NewMemRatesCache(), fetcher, &recordingPrinter{})

	r, err := l.GetRate("USD", "CAD", date.MustParse("2022-01-05"))
	rq.NoError(err)
	rq.Equal("1.28", r.String())

	// Weekend takes the previous business day.
	r, err = l.GetRate("USD", "CAD", date.MustParse("2022-01-08"))
	rq.NoError(err)
	rq.Equal("1.28", r.String())

	// New year's day falls back to the previous year.
	r, err = l.GetRate("USD", "CAD", date.MustParse("2022-01-01"))
	rq.NoError(err)
	rq.Equal("1.2678", r.String())

	// Crossed through CAD.
	r, err = l.GetRate("USD", "EUR", date.MustParse("2022-01-05"))
	rq.NoError(err)
	exp := decimal.RequireFromString("1.28").Div(decimal.RequireFromString("1.44"))
	rq.True(exp.Equal(r), "%s != %s", exp, r)

	r, err = l.GetRate("CAD", "CAD", date.MustParse("2022-01-05"))
	rq.NoError(err)
	rq.Equal("1", r.String())

	rq.Len(fetcher.calls, 2)
	rq.Equal("2022-01-01:2022-06-30", fetcher.calls[0])
	rq.Equal("2021-01-01:2021-12-31", fetcher.calls[1])
}

func TestRateLoaderErrors(t *testing.T) {
	withToday(t, "2022-06-30")
	l := NewRateLoaderWithFetcher(false, nil, newFakeFetcher(), &recordingPrinter{})

	_, err := l.GetRate("XYZ", "CAD", date.MustParse("2022-01-05"))
	require.ErrorIs(t, err, ErrUnknownCurrency)

	_, err = l.GetRate("USD", "CAD", date.MustParse("2022-07-01"))
	require.ErrorIs(t, err, ErrFutureRateRequest)

	_, err = l.GetRate("USD", "CAD", date.MustParse("2019-05-01"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to fetch rates for 2019")
}

func TestRateLoaderUsesPersistentCache(t *testing.T) {
	rq := require.New(t)
	withToday(t, "2022-06-30")
	ratesCache := NewMemRatesCache()

	first := newFakeFetcher()
	l := NewRateLoaderWithFetcher(false, ratesCache, first, &recordingPrinter{})
	_, err := l.GetRate("USD", "CAD", date.MustParse("2021-12-31"))
	rq.NoError(err)
	rq.Len(first.calls, 1)
	rq.Len(ratesCache.RatesByYear[2021], 2)

	// A past year is served from the persistent cache.
	second := newFakeFetcher()
	l = NewRateLoaderWithFetcher(false, ratesCache, second, &recordingPrinter{})
	r, err := l.GetRate("USD", "CAD", date.MustParse("2021-12-30"))
	rq.NoError(err)
	rq.Equal("1.27", r.String())
	rq.Empty(second.calls)

	// Forcing a download ignores it.
	third := newFakeFetcher()
	l = NewRateLoaderWithFetcher(true, ratesCache, third, &recordingPrinter{})
	_, err = l.GetRate("USD", "CAD", date.MustParse("2021-12-30"))
	rq.NoError(err)
	rq.Len(third.calls, 1)
}

func TestRateLoaderRefreshesCurrentYear(t *testing.T) {
	rq := require.New(t)
	withToday(t, "2022-06-30")
	ratesCache := NewMemRatesCache()
	ratesCache.RatesByYear[2022] = []DailyRates{day("2022-01-04", "USD", "1.2700")}

	fetcher := newFakeFetcher()
	l := NewRateLoaderWithFetcher(false, ratesCache, fetcher, &recordingPrinter{})
	r, err := l.GetRate("USD", "CAD", date.MustParse("2022-01-06"))
	rq.NoError(err)
	rq.Equal("1.28", r.String())
	rq.Len(fetcher.calls, 1)
}
