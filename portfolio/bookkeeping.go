package portfolio

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/fx"
	"github.com/custodian/acb/log"
	"github.com/custodian/acb/util"
)

// CapitalGain is realized when a transaction ends in the reporting currency.
type CapitalGain struct {
	Date          date.Date
	Asset         Currency // The asset disposed of.
	CostBase      decimal.Decimal
	GrossProceeds decimal.Decimal
	CapitalGain   decimal.Decimal
}

// TxDelta records the effect of one applied transaction. Tx is the
// normalized form that was applied: fees folded into the price, rate resolved
// and, for disposals, flipped.
type TxDelta struct {
	Tx        *Tx
	OrigTx    *Tx
	PreBase   AssetHolding
	PostBase  AssetHolding
	PreQuote  AssetHolding
	PostQuote AssetHolding
	Gain      *CapitalGain
	// Set for the funding leg generated ahead of a VEST.
	Synthetic bool
}

type Processor struct {
	Holdings          *Holdings
	Rates             fx.RateSource
	ReportingCurrency Currency
	Tolerance         util.Tolerance
	Logger            *slog.Logger
}

// NewProcessor uses a new store when holdings is nil, and the Bank of Canada
// rates (not persisted) when rates is nil.
func NewProcessor(holdings *Holdings, rates fx.RateSource, reportingCurrency Currency) *Processor {
	if holdings == nil {
		holdings = NewHoldings()
	}
	if rates == nil {
		rates = fx.NewRateLoader(false, fx.NewMemRatesCache(), nil)
	}
	return &Processor{
		Holdings:          holdings,
		Rates:             rates,
		ReportingCurrency: reportingCurrency,
		Tolerance:         util.DefaultTolerance,
	}
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.L
}

type pendingTx struct {
	tx        *Tx
	origTx    *Tx
	prepared  bool
	synthetic bool
}

// AddTx applies tx to the holdings. A VEST is preceded by a generated FUNDING
// leg, so up to two deltas are returned, in the order they were applied. On
// error, the deltas applied so far are returned.
func (p *Processor) AddTx(tx *Tx) ([]*TxDelta, error) {
	queue := []pendingTx{{tx: tx, origTx: tx}}
	deltas := make([]*TxDelta, 0, 1)

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if !item.prepared {
			ntx, err := p.prepare(item.tx)
			if err != nil {
				return deltas, err
			}
			item.tx, item.prepared = ntx, true
			if ntx.Kind == VEST && ntx.QuoteCurrency != p.ReportingCurrency {
				funding := p.fundingTx(ntx)
				p.logger().Debug("Adding vest funding",
					"date", funding.Date.String(), "currency", string(funding.BaseCurrency),
					"quantity", funding.Quantity.String(), "rate", funding.Price.String())
				queue = append([]pendingTx{{tx: funding, origTx: funding, synthetic: true}, item}, queue...)
				continue
			}
		}

		delta, err := p.apply(item.tx)
		if err != nil {
			return deltas, err
		}
		delta.OrigTx = item.origTx
		if item.synthetic {
			delta.Synthetic = true
			delta.Gain = nil
		}
		deltas = append(deltas, delta)
	}
	return deltas, nil
}

// prepare folds fees into the price and resolves the reporting rate. A rate
// already present on the transaction is trusted as is.
func (p *Processor) prepare(tx *Tx) (*Tx, error) {
	if tx.BaseCurrency == tx.QuoteCurrency {
		return nil, fmt.Errorf("%s: %w", tx, ErrSameCurrency)
	}
	ntx, err := tx.WithEffectivePrice()
	if err != nil {
		return nil, err
	}
	if ntx.QuoteToReportingRate.Present() {
		return ntx, nil
	}
	switch {
	case ntx.QuoteCurrency == p.ReportingCurrency:
		ntx.QuoteToReportingRate.Set(decimal.NewFromInt(1))
	case p.Rates == nil:
		return nil, &RateLookupError{
			Date: ntx.Date, Base: ntx.QuoteCurrency, Quote: p.ReportingCurrency, Err: ErrNoRateSource}
	default:
		rate, err := p.Rates.GetRate(
			string(ntx.QuoteCurrency), string(p.ReportingCurrency), ntx.Date)
		if err != nil {
			return nil, &RateLookupError{
				Date: ntx.Date, Base: ntx.QuoteCurrency, Quote: p.ReportingCurrency, Err: err}
		}
		ntx.QuoteToReportingRate.Set(rate)
	}
	return ntx, nil
}

// fundingTx buys the vest's cost in its quote currency with reporting
// currency, so that the vest itself can be processed as a plain purchase.
func (p *Processor) fundingTx(vest *Tx) *Tx {
	desc := strings.ReplaceAll(vest.Description, "Vest", "Funding")
	if desc == vest.Description {
		desc = strings.TrimSpace(vest.Description + " Funding")
	}
	return &Tx{
		Date:                 vest.Date,
		Kind:                 FUNDING,
		Description:          desc,
		BaseCurrency:         vest.QuoteCurrency,
		QuoteCurrency:        p.ReportingCurrency,
		Quantity:             vest.Cost(),
		Price:                vest.QuoteToReportingRate.MustGet(),
		Fees:                 decimal.Zero,
		QuoteToReportingRate: util.NewOptional(decimal.NewFromInt(1)),
	}
}

func (p *Processor) holding(asset Currency, on date.Date) AssetHolding {
	h := p.Holdings.GetAsOf(asset, on)
	if asset == p.ReportingCurrency {
		h.Acb = decimal.NewFromInt(1)
	}
	return h
}

// apply updates the base and quote holdings for a prepared transaction.
func (p *Processor) apply(tx *Tx) (*TxDelta, error) {
	if tx.Quantity.IsNegative() {
		var err error
		if tx, err = tx.Flip(); err != nil {
			return nil, err
		}
	}
	rc := p.ReportingCurrency
	cost := tx.Cost()

	base := p.holding(tx.BaseCurrency, tx.Date)
	quote := p.holding(tx.QuoteCurrency, tx.Date)
	delta := &TxDelta{Tx: tx, PreBase: base, PreQuote: quote}

	if quote.Quantity.LessThan(cost) && !p.Tolerance.IsClose(quote.Quantity, cost) {
		return nil, &InsufficientFundsError{
			Tx:        tx,
			Cost:      cost,
			Currency:  tx.QuoteCurrency,
			Available: quote.Quantity,
			Holdings:  p.Holdings.Current(),
		}
	}

	if tx.BaseCurrency != rc {
		// Weighted average of the held cost and the acquired cost, the latter
		// valued at the quote asset's ACB. A position brought exactly to zero
		// has no ACB.
		heldCost := base.Quantity.Mul(base.Acb)
		acquiredCost := cost.Mul(quote.Acb)
		base.Acb = util.DivOrZero(heldCost.Add(acquiredCost), base.Quantity.Add(tx.Quantity))
	}
	base.Quantity = base.Quantity.Add(tx.Quantity)
	base.Date = tx.Date

	if tx.BaseCurrency == rc {
		costBase := quote.Acb.Mul(cost)
		delta.Gain = &CapitalGain{
			Date:          tx.Date,
			Asset:         tx.QuoteCurrency,
			CostBase:      costBase,
			GrossProceeds: tx.Quantity,
			CapitalGain:   tx.Quantity.Sub(costBase),
		}
	}

	quote.Quantity = quote.Quantity.Sub(cost)
	quote.Date = tx.Date

	for _, h := range []AssetHolding{base, quote} {
		err := p.Holdings.Add(h, true)
		util.Assertf(err == nil, "writing %s: %v", h, err)
	}
	delta.PostBase, delta.PostQuote = base, quote

	p.logger().Debug("Processed transaction",
		"date", tx.Date.String(), "kind", tx.Kind.String(),
		"base", string(tx.BaseCurrency), "quote", string(tx.QuoteCurrency),
		"quantity", tx.Quantity.String(), "cost", cost.String(),
		"baseAcb", base.Acb.String(), "gain", delta.Gain != nil)
	return delta, nil
}

// TxsToDeltaList folds p over txs, which must be in chronological order.
// Processing stops at the first error; the deltas so far are returned with it.
func TxsToDeltaList(txs []*Tx, p *Processor) ([]*TxDelta, error) {
	deltas := make([]*TxDelta, 0, len(txs))
	for i, tx := range txs {
		txDeltas, err := p.AddTx(tx)
		deltas = append(deltas, txDeltas...)
		if err != nil {
			return deltas, fmt.Errorf("transaction %d (%s): %w", i+1, tx.Date, err)
		}
	}
	return deltas, nil
}

// GainsFromDeltas returns the capital gains of deltas, in order.
func GainsFromDeltas(deltas []*TxDelta) []*CapitalGain {
	var gains []*CapitalGain
	for _, d := range deltas {
		if d.Gain != nil {
			gains = append(gains, d.Gain)
		}
	}
	return gains
}

// ProcessTransaction applies one transaction and returns its capital gain, if
// it realized one.
func ProcessTransaction(
	tx *Tx, holdings *Holdings, rates fx.RateSource, reportingCurrency Currency,
) (*CapitalGain, error) {
	deltas, err := NewProcessor(holdings, rates, reportingCurrency).AddTx(tx)
	if err != nil {
		return nil, err
	}
	return deltas[len(deltas)-1].Gain, nil
}

// ProcessTransactions applies txs in order to holdings (a new store if nil).
func ProcessTransactions(
	txs []*Tx, holdings *Holdings, rates fx.RateSource, reportingCurrency Currency,
) (*Holdings, []*CapitalGain, error) {
	p := NewProcessor(holdings, rates, reportingCurrency)
	deltas, err := TxsToDeltaList(txs, p)
	return p.Holdings, GainsFromDeltas(deltas), err
}
