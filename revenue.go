package searchrev

import (
	"strings"

	"github.com/pkg/errors"
)

// RevenueExtractor turns purchase hits into RevenueRecords.
type RevenueExtractor struct {
	// PurchaseEvent is the event list value which marks a purchase. It
	// defaults to the package level PurchaseEvent.
	PurchaseEvent string

	// AnyEvent treats a hit as a purchase when PurchaseEvent is one of the
	// events in its list, rather than the whole list.
	AnyEvent bool

	// SkipMalformed drops purchase hits with a malformed product list
	// (logging and counting them) instead of failing the run.
	SkipMalformed bool

	Log   Logger
	Stats Statter
}

// NewRevenueExtractor returns a fail-fast RevenueExtractor for the default
// purchase event.
func NewRevenueExtractor() *RevenueExtractor {
	return &RevenueExtractor{
		PurchaseEvent: PurchaseEvent,
		Log:           NopLogger{},
		Stats:         NopStatter{},
	}
}

func (x *RevenueExtractor) isPurchase(h HitRecord) bool {
	if x.AnyEvent {
		return DecodeEventList(h.EventList).Has(x.PurchaseEvent)
	}
	return strings.TrimSpace(h.EventList) == x.PurchaseEvent
}

// Extract returns one RevenueRecord per purchase hit whose product entries
// sum to more than zero. A malformed product list, including an empty one or
// an entry without revenue, returns a *RevenueParseError unless SkipMalformed
// is set.
func (x *RevenueExtractor) Extract(hits []HitRecord) ([]RevenueRecord, error) {
	var recs []RevenueRecord
	for _, h := range hits {
		if !x.isPurchase(h) {
			continue
		}
		x.Stats.Count("revenue.purchases", 1, 1)
		pl, err := DecodePurchaseList(h.ProductList)
		if err != nil {
			rerr := &RevenueParseError{VisitorKey: h.VisitorKey, ProductList: h.ProductList, Err: err}
			if perr, ok := err.(*ProductEntryError); ok {
				rerr.Entry = perr.Entry
			}
			if !x.SkipMalformed {
				return nil, errors.Wrapf(rerr, "hit at %v", h.HitTime)
			}
			x.Log.Printf("skipping purchase: %v", rerr)
			x.Stats.Count("revenue.malformed", 1, 1)
			continue
		}
		total := pl.Total()
		if !total.IsPositive() {
			x.Stats.Count("revenue.nonpositive", 1, 1)
			continue
		}
		recs = append(recs, RevenueRecord{VisitorKey: h.VisitorKey, Revenue: total})
	}
	x.Log.Debugf("extracted %d revenue records from %d hits", len(recs), len(hits))
	return recs, nil
}
