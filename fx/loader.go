package fx

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/log"
)

type yearRates struct {
	year       int
	days       []DailyRates
	currencies map[string]struct{}
	// fresh is set when the table was downloaded during this run.
	fresh bool
}

func newYearRates(year int, days []DailyRates, fresh bool) *yearRates {
	yr := &yearRates{year: year, days: days, currencies: map[string]struct{}{}, fresh: fresh}
	for _, d := range days {
		for cur := range d.Rates {
			yr.currencies[cur] = struct{}{}
		}
	}
	return yr
}

func (yr *yearRates) lastDate() date.Date {
	if len(yr.days) == 0 {
		return date.Date{}
	}
	return yr.days[len(yr.days)-1].Date
}

// asOf returns the most recent observation of cur on or before on.
func (yr *yearRates) asOf(cur string, on date.Date) (decimal.Decimal, bool) {
	i := sort.Search(len(yr.days), func(i int) bool { return yr.days[i].Date.After(on) })
	for i--; i >= 0; i-- {
		if v, ok := yr.days[i].Rates[cur]; ok {
			return v, true
		}
	}
	return decimal.Zero, false
}

// RateLoader is a RateSource backed by the Bank of Canada daily rates. Weekends
// and holidays take the rate of the previous business day.
type RateLoader struct {
	ForceDownload bool
	Cache         RatesCache
	Fetcher       RemoteRatesFetcher
	errPrinter    log.ErrorPrinter
	years         *cache.Cache
}

func NewRateLoader(
	forceDownload bool, ratesCache RatesCache, errPrinter log.ErrorPrinter) *RateLoader {
	return NewRateLoaderWithFetcher(forceDownload, ratesCache, NewValetClient(), errPrinter)
}

func NewRateLoaderWithFetcher(
	forceDownload bool, ratesCache RatesCache, fetcher RemoteRatesFetcher,
	errPrinter log.ErrorPrinter) *RateLoader {
	if errPrinter == nil {
		errPrinter = &log.StderrErrorPrinter{}
	}
	return &RateLoader{
		ForceDownload: forceDownload,
		Cache:         ratesCache,
		Fetcher:       fetcher,
		errPrinter:    errPrinter,
		years:         cache.New(cache.NoExpiration, 0),
	}
}

// GetRate returns the value of one unit of base in quote on the given day.
func (l *RateLoader) GetRate(base, quote string, on date.Date) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	if quote != CAD {
		baseCad, err := l.GetRate(base, CAD, on)
		if err != nil {
			return decimal.Zero, err
		}
		quoteCad, err := l.GetRate(quote, CAD, on)
		if err != nil {
			return decimal.Zero, err
		}
		if quoteCad.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: %s/CAD is zero on %s", ErrRateNotFound, quote, on)
		}
		return baseCad.Div(quoteCad), nil
	}
	return l.cadRate(base, on)
}

func (l *RateLoader) cadRate(cur string, on date.Date) (decimal.Decimal, error) {
	today := date.Today()
	if on.After(today) {
		return decimal.Zero, fmt.Errorf("%w: %s on %s (today is %s)",
			ErrFutureRateRequest, cur, on, today)
	}

	yr, err := l.yearRates(on.Year())
	if err != nil {
		return decimal.Zero, err
	}
	// The current year's table may predate the requested day.
	if yr.lastDate().Before(on) && on.Year() == today.Year() && !yr.fresh {
		if yr, err = l.download(on.Year()); err != nil {
			return decimal.Zero, err
		}
	}
	if _, ok := yr.currencies[cur]; !ok && len(yr.days) > 0 {
		return decimal.Zero, fmt.Errorf("%w: %s (no %s/CAD rates in %d)",
			ErrUnknownCurrency, cur, cur, on.Year())
	}
	if v, ok := yr.asOf(cur, on); ok {
		return v, nil
	}

	// Early January holidays use the last rate of the previous year.
	prev, err := l.yearRates(on.Year() - 1)
	if err == nil {
		if v, ok := prev.asOf(cur, on); ok {
			return v, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s/CAD on %s", ErrRateNotFound, cur, on)
}

func (l *RateLoader) yearRates(year int) (*yearRates, error) {
	key := strconv.Itoa(year)
	if v, ok := l.years.Get(key); ok {
		return v.(*yearRates), nil
	}

	if !l.ForceDownload && l.Cache != nil {
		days, err := l.Cache.GetRates(year)
		if err != nil {
			l.errPrinter.F("Failed to read cached rates for %d: %v\n", year, err)
		} else if len(days) > 0 {
			yr := newYearRates(year, days, false)
			l.years.Set(key, yr, cache.NoExpiration)
			return yr, nil
		}
	}
	return l.download(year)
}

func (l *RateLoader) download(year int) (*yearRates, error) {
	today := date.Today()
	if year > today.Year() {
		return nil, fmt.Errorf("%w: year %d", ErrFutureRateRequest, year)
	}
	end := date.EndOfYear(year)
	if end.After(today) {
		end = today
	}
	log.L.Info("Downloading exchange rates", "year", year)
	days, err := l.Fetcher.Fetch(date.StartOfYear(year), end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates for %d: %w", year, err)
	}
	sortDailyRates(days)
	yr := newYearRates(year, days, true)
	if l.Cache != nil {
		if err := l.Cache.WriteRates(year, days); err != nil {
			l.errPrinter.F("Failed to cache rates for %d: %v\n", year, err)
		}
	}
	l.years.Set(strconv.Itoa(year), yr, cache.NoExpiration)
	return yr, nil
}
