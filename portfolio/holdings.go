package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/custodian/acb/date"
	"github.com/custodian/acb/util"
)

// AssetHolding is the state of one asset at the end of Date.
type AssetHolding struct {
	Date     date.Date
	Asset    Currency
	Quantity decimal.Decimal
	// Per unit, in the reporting currency.
	Acb decimal.Decimal
}

func (h AssetHolding) TotalAcb() decimal.Decimal {
	return h.Quantity.Mul(h.Acb)
}

func (h AssetHolding) String() string {
	return fmt.Sprintf("%s %s: %s (ACB/unit %s)", h.Date, h.Asset, h.Quantity, h.Acb)
}

func compareHoldingKeys(a, b AssetHolding) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return strings.Compare(string(a.Asset), string(b.Asset))
}

// Holdings is the history of asset snapshots, keyed and ordered by
// (date, asset). Reads return copies, so callers may modify what they get.
type Holdings struct {
	records []AssetHolding
}

func NewHoldings() *Holdings {
	return &Holdings{}
}

func (h *Holdings) Len() int { return len(h.records) }

// Add inserts a snapshot. An existing snapshot with the same date and asset is
// replaced only if overwrite is set.
func (h *Holdings) Add(ah AssetHolding, overwrite bool) error {
	i, found := slices.BinarySearchFunc(h.records, ah, compareHoldingKeys)
	if found {
		if !overwrite {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateKey, ah.Asset, ah.Date)
		}
		h.records[i] = ah
		return nil
	}
	h.records = slices.Insert(h.records, i, ah)
	return nil
}

// Get returns the most recent snapshot of asset on or before asOf, or the
// most recent one overall when asOf is absent. When there is none, a zero
// snapshot dated asOf is returned.
func (h *Holdings) Get(asset Currency, asOf util.Optional[date.Date]) AssetHolding {
	end := len(h.records)
	on, bounded := asOf.Get()
	if bounded {
		end = sort.Search(len(h.records), func(i int) bool {
			return h.records[i].Date.After(on)
		})
	}
	for i := end - 1; i >= 0; i-- {
		if h.records[i].Asset == asset {
			return h.records[i]
		}
	}
	return AssetHolding{Date: on, Asset: asset}
}

func (h *Holdings) GetAsOf(asset Currency, on date.Date) AssetHolding {
	return h.Get(asset, util.NewOptional(on))
}

func (h *Holdings) Latest(asset Currency) AssetHolding {
	return h.Get(asset, util.Optional[date.Date]{})
}

// Records returns every snapshot in key order.
func (h *Holdings) Records() []AssetHolding {
	return slices.Clone(h.records)
}

// Current returns the latest snapshot of each asset, sorted by asset.
func (h *Holdings) Current() []AssetHolding {
	latest := map[Currency]AssetHolding{}
	for _, r := range h.records {
		latest[r.Asset] = r
	}
	assets := util.SortedKeys(latest)
	current := make([]AssetHolding, 0, len(assets))
	for _, a := range assets {
		current = append(current, latest[a])
	}
	return current
}
