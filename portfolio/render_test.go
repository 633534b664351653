package portfolio

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLocaleStringAll(t *testing.T) {
	t.Setenv("HUMANIZE", "1")

	for _, tc := range []struct {
		orig string
		exp  string
	}{
		{
			orig: "10",
			exp:  "10",
		},
		{
			orig: "1123",
			exp:  "1,123",
		},
		{
			orig: "99991123",
			exp:  "99,991,123",
		},
		{
			orig: ".3",
			exp:  "0.3",
		},
		{
			orig: "0.3",
			exp:  "0.3",
		},
		{
			orig: "1.234567",
			exp:  "1.234567",
		},
		{
			orig: "123.234567",
			exp:  "123.234567",
		},
		{
			orig: "1234.234567",
			exp:  "1,234.234567",
		},
		{
			orig: "12345678.234567",
			exp:  "12,345,678.234567",
		},
		{
			orig: "9223372036854775807",
			exp:  "9,223,372,036,854,775,807",
		},
		{
			// Too wide to group. Printed as is.
			orig: "123456789012345678901234.5",
			exp:  "123456789012345678901234.5",
		},
	} {
		for _, negative := range []string{"", "-"} {
			value := negative + tc.orig
			t.Run(value, func(t *testing.T) {
				h := _PrintHelper{PrintAllDecimals: true}
				dec, err := decimal.NewFromString(value)
				require.NoError(t, err)
				v := h.CurrStr(dec)
				expected := negative + tc.exp
				t.Log("orig:", tc.orig)
				t.Log("expected:", tc.exp)
				t.Log("negative:", negative)
				require.Equal(t, expected, v)
			})
		}
	}
}

func TestDollarStrWideValue(t *testing.T) {
	t.Setenv("HUMANIZE", "1")
	ph := _PrintHelper{Currency: CAD}
	require.Equal(t, "$123456789012345678901234.50", ph.DollarStr(d("123456789012345678901234.5")))
	require.Equal(t, "-$123456789012345678901234.50",
		ph.PlusMinusDollar(d("-123456789012345678901234.5"), true))
}

func TestDollarStr(t *testing.T) {
	t.Setenv("HUMANIZE", "")
	rq := require.New(t)

	ph := _PrintHelper{Currency: CAD}
	rq.Equal("$1234.50", ph.DollarStr(d("1234.5")))
	rq.Equal("-$3.00", ph.PlusMinusDollar(d("-3"), true))
	rq.Equal("+$3.00", ph.PlusMinusDollar(d("3"), true))
	rq.Equal("0.12345679", ph.QtyStr(d("0.123456789")))

	rq.Equal("€1.00", _PrintHelper{Currency: "EUR"}.DollarStr(d("1")))
	rq.Equal("$1.00", _PrintHelper{Currency: "XYZ"}.DollarStr(d("1")))

	full := _PrintHelper{PrintAllDecimals: true, Currency: CAD}
	rq.Equal("$1.125", full.DollarStr(d("1.125")))
	rq.Equal("0.123456789", full.QtyStr(d("0.123456789")))
}

func TestRenderTxTableModel(t *testing.T) {
	t.Setenv("HUMANIZE", "")
	rq := require.New(t)

	p := NewProcessor(nil, usdCadRates("1.35"), CAD)
	seed(t, p.Holdings, CAD, 0, "50000", "1")
	deltas, err := TxsToDeltaList([]*Tx{
		TTx{Day: 1, Kind: VEST, Desc: "RSU Vest", Base: "AAPL", Quote: USD, Qty: "100", Price: "150"}.X(),
		TTx{Day: 2, Base: "AAPL", Qty: "-10", Price: "250"}.X(),
	}, p)
	rq.NoError(err)
	rq.Len(deltas, 3)
	gains := CalcCumulativeCapitalGains(GainsFromDeltas(deltas))

	table := RenderTxTableModel(deltas, gains, CAD, false)
	rq.Len(table.Rows, 3)
	for _, row := range table.Rows {
		rq.Len(row, len(table.Header))
	}
	rq.Equal([]string{"2020-01-02", "Funding *", "RSU Funding", "15000", "USD", "1.35", "CAD",
		"20250", "1", "-", "15000", "$1.35", "29750"}, table.Rows[0])
	rq.Equal("Vest", table.Rows[1][1])
	rq.Equal("$202.50", table.Rows[1][11])
	// The sale is flipped into a purchase of CAD.
	rq.Equal("CAD", table.Rows[2][4])
	rq.Equal("$475.00", table.Rows[2][9])
	rq.Equal("-", table.Rows[2][11])
	rq.Equal("Total\n2020", table.Footer[8])
	rq.Equal("$475.00\n$475.00", table.Footer[9])
	rq.Len(table.Notes, 1)

	var buf bytes.Buffer
	PrintRenderTable("Transactions", table, &buf)
	out := buf.String()
	rq.Contains(out, "Transactions\n")
	rq.Contains(out, "RSU Funding")
	rq.Contains(out, "Generated funding")
}

func TestRenderAggregateCapitalGains(t *testing.T) {
	t.Setenv("HUMANIZE", "")
	rq := require.New(t)

	gains := CalcCumulativeCapitalGains([]*CapitalGain{
		{Date: mkDate(1), Asset: "XYZ", CostBase: d("32.5"), GrossProceeds: d("50"), CapitalGain: d("17.5")},
		{Date: mkDate(400), Asset: "XYZ", CostBase: d("50"), GrossProceeds: d("40"), CapitalGain: d("-10")},
	})
	table := RenderAggregateCapitalGains(gains, CAD, false)
	rq.Equal([][]string{
		{"2020", "$32.50", "$50.00", "$17.50"},
		{"2021", "$50.00", "$40.00", "-$10.00"},
		{"Since inception", "$82.50", "$90.00", "$7.50"},
	}, table.Rows)

	var buf bytes.Buffer
	rq.NoError(WriteRenderTableCSV(table, &buf))
	rq.Equal("Year,Cost Base,Gross Proceeds,Capital Gain\n"+
		"2020,$32.50,$50.00,$17.50\n"+
		"2021,$50.00,$40.00,-$10.00\n"+
		"Since inception,$82.50,$90.00,$7.50\n", buf.String())
}

func TestRenderHoldingsTable(t *testing.T) {
	t.Setenv("HUMANIZE", "")
	rq := require.New(t)

	h := NewHoldings()
	seed(t, h, CAD, 0, "970", "1")
	seed(t, h, "XYZ", 0, "10", "5")
	seed(t, h, "XYZ", 2, "15", "6.5")

	table := RenderHoldingsTable(h, CAD, false)
	rq.Equal([][]string{
		{"CAD", "2020-01-01", "970", "$1.00", "$970.00"},
		{"XYZ", "2020-01-03", "15", "$6.50", "$97.50"},
	}, table.Rows)
	rq.Equal("$1067.50", table.Footer[4])
}
