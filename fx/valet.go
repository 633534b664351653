package fx

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
)

const valetURL string = "https://www.bankofcanada.ca/valet/observations/group/FX_RATES_DAILY/csv"

const observationsMarker = "\"OBSERVATIONS\""

// RemoteRatesFetcher downloads daily observations for an inclusive date range.
type RemoteRatesFetcher interface {
	Fetch(start, end date.Date) ([]DailyRates, error)
}

// ValetClient is a client for the Bank of Canada Valet API.
type ValetClient struct {
	url    string
	client *http.Client
}

// NewValetClient creates a new client with the default URL.
func NewValetClient() *ValetClient {
	return NewValetClientWithURL(valetURL)
}

func NewValetClientWithURL(u string) *ValetClient {
	return &ValetClient{url: u, client: http.DefaultClient}
}

// Fetch fetches the observations between start and end.
func (c *ValetClient) Fetch(start, end date.Date) ([]DailyRates, error) {
	u, err := createURL(c.url, start, end)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("error downloading rates from Bank of Canada: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading rates from Bank of Canada: %s", resp.Status)
	}
	return decodeObservations(resp.Body)
}

func createURL(rootURL string, start, end date.Date) (*url.URL, error) {
	u, err := url.Parse(rootURL)
	if err != nil {
		return u, err
	}
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start_date", start.String())
	}
	if !end.IsZero() {
		q.Set("end_date", end.String())
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// currencyFromColumn returns "USD" for "FXUSDCAD".
func currencyFromColumn(col string) (string, bool) {
	if len(col) != 8 || !strings.HasPrefix(col, "FX") || !strings.HasSuffix(col, CAD) {
		return "", false
	}
	return col[2:5], true
}

// decodeObservations parses the OBSERVATIONS section of a Valet CSV document.
// Everything before it (terms, series descriptions) is skipped.
func decodeObservations(r io.Reader) ([]DailyRates, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	idx := bytes.Index(data, []byte(observationsMarker))
	if idx < 0 {
		return nil, fmt.Errorf("no OBSERVATIONS section in rates response")
	}
	data = data[idx+len(observationsMarker):]

	cr := csv.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing rates CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) == 0 || header[0] != "date" {
		return nil, fmt.Errorf("unexpected rates CSV header %v", header)
	}
	currencies := make([]string, len(header))
	for i, col := range header[1:] {
		if cur, ok := currencyFromColumn(col); ok {
			currencies[i+1] = cur
		}
	}

	rates := make([]DailyRates, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		d, err := date.Parse(rec[0])
		if err != nil {
			return nil, err
		}
		day := DailyRates{Date: d, Rates: make(map[string]decimal.Decimal)}
		for i := 1; i < len(rec) && i < len(currencies); i++ {
			if currencies[i] == "" || strings.TrimSpace(rec[i]) == "" {
				continue
			}
			v, err := decimal.NewFromString(strings.TrimSpace(rec[i]))
			if err != nil {
				return nil, fmt.Errorf("invalid rate %q for %s on %s: %w", rec[i], currencies[i], d, err)
			}
			day.Rates[currencies[i]] = v
		}
		rates = append(rates, day)
	}
	sortDailyRates(rates)
	return rates, nil
}
