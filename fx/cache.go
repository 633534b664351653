package fx

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/custodian/acb/date"
)

// RatesCache persists one calendar year of observations at a time.
// GetRates returns nil, nil when nothing is cached for the year.
type RatesCache interface {
	WriteRates(year int, rates []DailyRates) error
	GetRates(year int) ([]DailyRates, error)
}

type MemRatesCache struct {
	RatesByYear map[int][]DailyRates
}

func NewMemRatesCache() *MemRatesCache {
	return &MemRatesCache{RatesByYear: make(map[int][]DailyRates)}
}

func (c *MemRatesCache) WriteRates(year int, rates []DailyRates) error {
	c.RatesByYear[year] = rates
	return nil
}

func (c *MemRatesCache) GetRates(year int) ([]DailyRates, error) {
	return c.RatesByYear[year], nil
}

// CSVRatesCache stores each year in <Dir>/rates-<year>.csv.
type CSVRatesCache struct {
	Dir string
}

func NewCSVRatesCache(dir string) *CSVRatesCache {
	return &CSVRatesCache{Dir: dir}
}

func (c *CSVRatesCache) path(year int) string {
	return filepath.Join(c.Dir, fmt.Sprintf("rates-%d.csv", year))
}

func (c *CSVRatesCache) WriteRates(year int, rates []DailyRates) (err error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	currencySet := map[string]struct{}{}
	for _, day := range rates {
		for cur := range day.Rates {
			currencySet[cur] = struct{}{}
		}
	}
	currencies := maps.Keys(currencySet)
	slices.Sort(currencies)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"date"}
	for _, cur := range currencies {
		header = append(header, "FX"+cur+CAD)
	}
	err = w.Write(header)
	for _, day := range rates {
		row := []string{day.Date.String()}
		for _, cur := range currencies {
			cell := ""
			if v, ok := day.Rates[cur]; ok {
				cell = v.String()
			}
			row = append(row, cell)
		}
		err = multierr.Append(err, w.Write(row))
	}
	w.Flush()
	err = multierr.Append(err, w.Error())
	if err != nil {
		return err
	}
	return atomic.WriteFile(c.path(year), &buf)
}

func (c *CSVRatesCache) GetRates(year int) (rates []DailyRates, err error) {
	f, err := os.Open(c.path(year))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading rates cache %s: %w", c.path(year), err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	for _, rec := range records[1:] {
		d, err := date.Parse(rec[0])
		if err != nil {
			return nil, err
		}
		day := DailyRates{Date: d, Rates: make(map[string]decimal.Decimal)}
		for i := 1; i < len(rec) && i < len(header); i++ {
			cur, ok := currencyFromColumn(header[i])
			if !ok || rec[i] == "" {
				continue
			}
			v, err := decimal.NewFromString(rec[i])
			if err != nil {
				return nil, fmt.Errorf("invalid cached rate %q: %w", rec[i], err)
			}
			day.Rates[cur] = v
		}
		rates = append(rates, day)
	}
	sortDailyRates(rates)
	return rates, nil
}
