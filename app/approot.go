package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"

	"github.com/custodian/acb/config"
	"github.com/custodian/acb/fx"
	"github.com/custodian/acb/log"
	ptf "github.com/custodian/acb/portfolio"
	"github.com/custodian/acb/util"
)

// Version is of the format 0.YY.MM[.i], or 0.year.month.optional_minor_increment
// Major version is kept at 0 while the gains rules are unaudited.
var AcbVersion = "0.26.10"

type Options struct {
	ReportingCurrency ptf.Currency
	Tolerance         util.Tolerance
	RenderFullValues  bool
	CSVOutputDir      string
}

func NewOptions() Options {
	return Options{
		ReportingCurrency: ptf.CAD,
		Tolerance:         util.DefaultTolerance,
		RenderFullValues:  false,
		CSVOutputDir:      "",
	}
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	tol, err := cfg.Tolerance()
	if err != nil {
		return Options{}, err
	}
	options := NewOptions()
	options.ReportingCurrency = cfg.Currency()
	options.Tolerance = tol
	options.RenderFullValues = cfg.RenderFullValues
	return options, nil
}

// NewRateSource builds the Bank of Canada rate loader described by cfg. Year
// tables are persisted under the rates cache dir when one is configured.
func NewRateSource(cfg *config.Config, errPrinter log.ErrorPrinter) (fx.RateSource, error) {
	dir, err := cfg.RatesCacheDir()
	if err != nil {
		return nil, err
	}
	var ratesCache fx.RatesCache = fx.NewMemRatesCache()
	if dir != "" {
		ratesCache = fx.NewCSVRatesCache(dir)
	}
	fetcher := fx.NewValetClient()
	if cfg.Rates.URL != "" {
		fetcher = fx.NewValetClientWithURL(cfg.Rates.URL)
	}
	return fx.NewRateLoaderWithFetcher(cfg.Rates.ForceDownload, ratesCache, fetcher, errPrinter), nil
}

// SortTxs orders txs by date. Transactions on the same day keep their
// relative order.
func SortTxs(txs []*ptf.Tx) []*ptf.Tx {
	sorted := make([]*ptf.Tx, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

type AppModel struct {
	Deltas         []*ptf.TxDelta
	Holdings       *ptf.Holdings
	Gains          []*ptf.CapitalGain
	AssetGains     map[ptf.Currency]*ptf.CumulativeCapitalGains
	AggregateGains *ptf.CumulativeCapitalGains
	// Set when processing stopped early. The rest of the model covers the
	// transactions applied before the failure.
	Err error
}

// RunAcbAppToModel applies txs to holdings (which is modified) and aggregates
// the realized gains.
func RunAcbAppToModel(
	txs []*ptf.Tx,
	holdings *ptf.Holdings,
	rates fx.RateSource,
	options Options) *AppModel {

	p := ptf.NewProcessor(holdings, rates, options.ReportingCurrency)
	p.Tolerance = options.Tolerance

	deltas, err := ptf.TxsToDeltaList(SortTxs(txs), p)
	gains := ptf.GainsFromDeltas(deltas)
	assetGains := ptf.CalcAssetCumulativeCapitalGains(gains)
	return &AppModel{
		Deltas:         deltas,
		Holdings:       p.Holdings,
		Gains:          gains,
		AssetGains:     assetGains,
		AggregateGains: ptf.MergeCumulativeCapitalGains(assetGains),
		Err:            err,
	}
}

type AppRenderResult struct {
	TxTable             *ptf.RenderTable
	AggregateGainsTable *ptf.RenderTable
	AssetGainsTables    map[ptf.Currency]*ptf.RenderTable
	HoldingsTable       *ptf.RenderTable
}

func RenderModel(model *AppModel, options Options) *AppRenderResult {
	rc, full := options.ReportingCurrency, options.RenderFullValues

	txTable := ptf.RenderTxTableModel(model.Deltas, model.AggregateGains, rc, full)
	if model.Err != nil {
		txTable.Errors = append(txTable.Errors, model.Err)
	}
	assetTables := make(map[ptf.Currency]*ptf.RenderTable)
	for asset, gains := range model.AssetGains {
		assetTables[asset] = ptf.RenderAggregateCapitalGains(gains, rc, full)
	}
	return &AppRenderResult{
		TxTable:             txTable,
		AggregateGainsTable: ptf.RenderAggregateCapitalGains(model.AggregateGains, rc, full),
		AssetGainsTables:    assetTables,
		HoldingsTable:       ptf.RenderHoldingsTable(model.Holdings, rc, full),
	}
}

func RunAcbAppToRenderModel(
	txs []*ptf.Tx,
	holdings *ptf.Holdings,
	rates fx.RateSource,
	options Options) (*AppModel, *AppRenderResult) {

	model := RunAcbAppToModel(txs, holdings, rates, options)
	return model, RenderModel(model, options)
}

func WriteRenderResult(renderRes *AppRenderResult, writer io.Writer) {
	ptf.PrintRenderTable("Transactions", renderRes.TxTable, writer)

	assets := make([]string, 0, len(renderRes.AssetGainsTables))
	for asset := range renderRes.AssetGainsTables {
		assets = append(assets, string(asset))
	}
	sort.Strings(assets)
	for _, asset := range assets {
		fmt.Fprintln(writer, "")
		ptf.PrintRenderTable(fmt.Sprintf("Gains for %s", asset),
			renderRes.AssetGainsTables[ptf.Currency(asset)], writer)
	}

	fmt.Fprintln(writer, "")
	ptf.PrintRenderTable("Aggregate Gains", renderRes.AggregateGainsTable, writer)
	fmt.Fprintln(writer, "")
	ptf.PrintRenderTable("Holdings", renderRes.HoldingsTable, writer)
}

// Returns an OK flag. Used to signal what exit code to use.
// Processing errors are rendered with the transactions table, and also go to
// errPrinter.
func RunAcbAppToWriter(
	writer io.Writer,
	txs []*ptf.Tx,
	holdings *ptf.Holdings,
	rates fx.RateSource,
	options Options,
	errPrinter log.ErrorPrinter) (bool, *AppRenderResult) {

	model, renderRes := RunAcbAppToRenderModel(txs, holdings, rates, options)
	WriteRenderResult(renderRes, writer)
	if model.Err != nil {
		errPrinter.Ln("Error:", model.Err)
		return false, renderRes
	}
	return true, renderRes
}

func writeCSVFile(path string, table *ptf.RenderTable) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, fp.Close()) }()
	return ptf.WriteRenderTableCSV(table, fp)
}

// RunAcbAppToCSV writes each render table to its own file in csvOutDir.
// Values are always rendered in full.
func RunAcbAppToCSV(
	csvOutDir string,
	txs []*ptf.Tx,
	holdings *ptf.Holdings,
	rates fx.RateSource,
	options Options,
	errPrinter log.ErrorPrinter,
) bool {
	if err := os.MkdirAll(csvOutDir, os.ModePerm); err != nil {
		errPrinter.Ln(fmt.Sprintf("Error %T %v", err, err))
		return false
	}

	options.RenderFullValues = true
	model, renderRes := RunAcbAppToRenderModel(txs, holdings, rates, options)

	files := map[string]*ptf.RenderTable{
		"transactions.csv":    renderRes.TxTable,
		"aggregate-gains.csv": renderRes.AggregateGainsTable,
		"holdings.csv":        renderRes.HoldingsTable,
	}
	for asset, table := range renderRes.AssetGainsTables {
		files[fmt.Sprintf("gains-%s.csv", asset)] = table
	}
	var err error
	for _, name := range util.SortedKeys(files) {
		err = multierr.Append(err, writeCSVFile(filepath.Join(csvOutDir, name), files[name]))
	}
	if err != nil {
		errPrinter.Ln("Error writing output:", err)
		return false
	}
	if model.Err != nil {
		errPrinter.Ln("Error:", model.Err)
		return false
	}
	return true
}

// RunAcbAppFromConfig sets up logging, rates and opening balances from cfg,
// then renders to writer, or to CSV files when csvOutputDir is set.
// Returns an OK flag.
func RunAcbAppFromConfig(
	writer io.Writer,
	cfg *config.Config,
	txs []*ptf.Tx,
	csvOutputDir string,
	errPrinter log.ErrorPrinter) bool {

	log.Init(cfg.LogLevel, os.Stderr)

	options, err := OptionsFromConfig(cfg)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}
	options.CSVOutputDir = csvOutputDir

	holdings, err := cfg.OpeningHoldings()
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}
	rates, err := NewRateSource(cfg, errPrinter)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return false
	}

	if options.CSVOutputDir != "" {
		return RunAcbAppToCSV(options.CSVOutputDir, txs, holdings, rates, options, errPrinter)
	}
	ok, _ := RunAcbAppToWriter(writer, txs, holdings, rates, options, errPrinter)
	return ok
}
