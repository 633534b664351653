package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type _PrintHelper struct {
	PrintAllDecimals bool
	Currency         Currency
}

func humanizeDecimalStr(val string) string {
	if os.Getenv("HUMANIZE") == "" {
		return val
	}
	negative := ""
	if strings.HasPrefix(val, "-") {
		negative, val = val[:1], val[1:]
	}
	before, after, found := strings.Cut(val, ".")
	suffix := ""
	if found {
		suffix = fmt.Sprintf(".%s", after)
	}
	i, err := strconv.ParseInt(before, 10, 64)
	if err != nil {
		// Beyond int64. Left ungrouped.
		return negative + val
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s%d%s", negative, i, suffix)
}

func (h _PrintHelper) symbol() string {
	if c := money.GetCurrency(string(h.Currency)); c != nil {
		return c.Grapheme
	}
	return "$"
}

func (h _PrintHelper) CurrStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return humanizeDecimalStr(val.String())
	}
	return humanizeDecimalStr(val.StringFixed(2))
}

// QtyStr prints quantities and rates, which are never rounded to cents.
func (h _PrintHelper) QtyStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.Round(8).String()
}

func (h _PrintHelper) DollarStr(val decimal.Decimal) string {
	return h.symbol() + h.CurrStr(val)
}

func (h _PrintHelper) PlusMinusDollar(val decimal.Decimal, showPlus bool) string {
	if val.IsNegative() {
		return fmt.Sprintf("-%s%s", h.symbol(), h.CurrStr(val.Neg()))
	}
	plus := ""
	if showPlus {
		plus = "+"
	}
	return fmt.Sprintf("%s%s%s", plus, h.symbol(), h.CurrStr(val))
}

func strOrDash(useStr bool, str string) string {
	if useStr {
		return str
	}
	return "-"
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// RenderTxTableModel renders one row per applied transaction leg, with the
// yearly gain totals in the footer.
func RenderTxTableModel(
	deltas []*TxDelta, gains *CumulativeCapitalGains, reportingCurrency Currency,
	renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Date", "TX", "Description", "Quantity", "Base", "Price", "Quote",
		"Cost", "Rate", "Cap. Gain", "Base Balance", "Base ACB/Unit", "Quote Balance",
	}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues, Currency: reportingCurrency}
	sawSynthetic := false

	for _, d := range deltas {
		tx := d.Tx
		kind := tx.Kind.String()
		if d.Synthetic {
			kind += " *"
			sawSynthetic = true
		}
		var gainStr string
		if d.Gain != nil {
			gainStr = ph.PlusMinusDollar(d.Gain.CapitalGain, false)
		}
		row := []string{
			tx.Date.String(),
			kind,
			tx.Description,
			ph.QtyStr(tx.Quantity),
			string(tx.BaseCurrency),
			ph.QtyStr(tx.Price),
			string(tx.QuoteCurrency),
			ph.QtyStr(tx.Cost()),
			ph.QtyStr(tx.QuoteToReportingRate.GetOr(decimal.Zero)),
			strOrDash(d.Gain != nil, gainStr),
			ph.QtyStr(d.PostBase.Quantity),
			strOrDash(tx.BaseCurrency != reportingCurrency, ph.DollarStr(d.PostBase.Acb)),
			ph.QtyStr(d.PostQuote.Quantity),
		}
		table.Rows = append(table.Rows, row)
	}

	years := gains.YearTotalsKeysSorted()
	yearStrs := []string{}
	yearValsStrs := []string{}
	for _, year := range years {
		yearStrs = append(yearStrs, fmt.Sprintf("%d", year))
		yearValsStrs = append(yearValsStrs, ph.PlusMinusDollar(gains.YearTotals[year].CapitalGain, false))
	}
	totalFooterLabel := "Total"
	totalFooterValsStr := ph.PlusMinusDollar(gains.Total.CapitalGain, false)
	if len(years) > 0 {
		totalFooterLabel += "\n" + strings.Join(yearStrs, "\n")
		totalFooterValsStr += "\n" + strings.Join(yearValsStrs, "\n")
	}
	table.Footer = []string{"", "", "", "", "", "", "", "",
		totalFooterLabel, totalFooterValsStr, "", "", ""}

	if sawSynthetic {
		table.Notes = append(table.Notes, " * Generated funding for a vesting event")
	}
	return table
}

// RenderAggregateCapitalGains generates a RenderTable that will render out to this:
//
//	| Year            | Cost Base | Gross Proceeds | Capital Gain |
//	+-----------------+-----------+----------------+--------------+
//	| 2000            | xxxx.xx   | xxxx.xx        | xxxx.xx      |
//	| Since inception | xxxx.xx   | xxxx.xx        | xxxx.xx      |
func RenderAggregateCapitalGains(
	gains *CumulativeCapitalGains, reportingCurrency Currency, renderFullValues bool) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Year", "Cost Base", "Gross Proceeds", "Capital Gain"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues, Currency: reportingCurrency}
	row := func(label string, t GainTotals) []string {
		return []string{label, ph.DollarStr(t.CostBase), ph.DollarStr(t.GrossProceeds),
			ph.PlusMinusDollar(t.CapitalGain, false)}
	}
	for _, year := range gains.YearTotalsKeysSorted() {
		table.Rows = append(table.Rows, row(fmt.Sprintf("%d", year), gains.YearTotals[year]))
	}
	table.Rows = append(table.Rows, row("Since inception", gains.Total))
	return table
}

// RenderHoldingsTable renders the latest snapshot of each asset.
func RenderHoldingsTable(
	holdings *Holdings, reportingCurrency Currency, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Asset", "As Of", "Quantity", "ACB/Unit", "Total ACB"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues, Currency: reportingCurrency}
	total := decimal.Zero
	for _, h := range holdings.Current() {
		table.Rows = append(table.Rows, []string{
			string(h.Asset), h.Date.String(), ph.QtyStr(h.Quantity),
			ph.DollarStr(h.Acb), ph.DollarStr(h.TotalAcb()),
		})
		total = total.Add(h.TotalAcb())
	}
	table.Footer = []string{"", "", "", "Total", ph.DollarStr(total)}
	return table
}

func PrintRenderTable(title string, tableModel *RenderTable, writer io.Writer) {
	if title != "" {
		fmt.Fprintf(writer, "%s\n", title)
	}

	table := tablewriter.NewWriter(writer)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetRowLine(true)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(tableModel.Rows)
	if len(tableModel.Footer) > 0 {
		table.SetFooter(tableModel.Footer)
	}
	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(writer, note)
	}
	for _, err := range tableModel.Errors {
		fmt.Fprintf(writer, "Error: %s\n", err)
	}
}

// WriteRenderTableCSV writes the header and rows of tableModel. Multi-line
// footer cells are dropped.
func WriteRenderTableCSV(tableModel *RenderTable, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(tableModel.Header); err != nil {
		return err
	}
	if err := w.WriteAll(tableModel.Rows); err != nil {
		return err
	}
	return w.Error()
}
