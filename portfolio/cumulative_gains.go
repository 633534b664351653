package portfolio

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/custodian/acb/util"
)

type GainTotals struct {
	CostBase      decimal.Decimal
	GrossProceeds decimal.Decimal
	CapitalGain   decimal.Decimal
}

func (t GainTotals) Add(o GainTotals) GainTotals {
	return GainTotals{
		CostBase:      t.CostBase.Add(o.CostBase),
		GrossProceeds: t.GrossProceeds.Add(o.GrossProceeds),
		CapitalGain:   t.CapitalGain.Add(o.CapitalGain),
	}
}

func totalsOf(g *CapitalGain) GainTotals {
	return GainTotals{CostBase: g.CostBase, GrossProceeds: g.GrossProceeds, CapitalGain: g.CapitalGain}
}

type CumulativeCapitalGains struct {
	Total      GainTotals
	YearTotals map[int]GainTotals
}

func (g *CumulativeCapitalGains) YearTotalsKeysSorted() []int {
	return util.SortedKeys(g.YearTotals)
}

// CalcCumulativeCapitalGains sums gains per calendar year of their date.
// Years without any gain have no entry.
func CalcCumulativeCapitalGains(gains []*CapitalGain) *CumulativeCapitalGains {
	cc := &CumulativeCapitalGains{YearTotals: map[int]GainTotals{}}
	byYear := lo.GroupBy(gains, func(g *CapitalGain) int { return g.Date.Year() })
	for year, yearGains := range byYear {
		total := lo.Reduce(yearGains, func(agg GainTotals, g *CapitalGain, _ int) GainTotals {
			return agg.Add(totalsOf(g))
		}, GainTotals{})
		cc.YearTotals[year] = total
		cc.Total = cc.Total.Add(total)
	}
	return cc
}

// CalcAssetCumulativeCapitalGains splits the gains by disposed asset.
func CalcAssetCumulativeCapitalGains(gains []*CapitalGain) map[Currency]*CumulativeCapitalGains {
	byAsset := lo.GroupBy(gains, func(g *CapitalGain) Currency { return g.Asset })
	return lo.MapValues(byAsset, func(assetGains []*CapitalGain, _ Currency) *CumulativeCapitalGains {
		return CalcCumulativeCapitalGains(assetGains)
	})
}

func MergeCumulativeCapitalGains(assetGains map[Currency]*CumulativeCapitalGains) *CumulativeCapitalGains {
	cc := &CumulativeCapitalGains{YearTotals: map[int]GainTotals{}}
	for _, gains := range assetGains {
		cc.Total = cc.Total.Add(gains.Total)
		for year, yearGains := range gains.YearTotals {
			cc.YearTotals[year] = cc.YearTotals[year].Add(yearGains)
		}
	}
	return cc
}
