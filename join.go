package searchrev

import (
	"github.com/pkg/errors"
)

// Join performs an inner join of the revenue, referral and keyword relations
// on visitor key. A visitor key contributes only if it appears in all three.
// Repeated keys fan out: a key with two revenue records, one referral and one
// keyword yields two rows. Rows come out in revenue record order, then
// referral order, then keyword order.
func Join(tr Translator, revs []RevenueRecord, refs []ExternalReferralRecord, kws []KeywordRecord) ([]AttributedRow, error) {
	refIdx := make(map[uint64][]int)
	for i, r := range refs {
		id, err := tr.GetID(VisitorField, r.VisitorKey)
		if err != nil {
			return nil, errors.Wrapf(err, "translating referral visitor %s", r.VisitorKey)
		}
		refIdx[id] = append(refIdx[id], i)
	}
	kwIdx := make(map[uint64][]int)
	for i, k := range kws {
		id, err := tr.GetID(VisitorField, k.VisitorKey)
		if err != nil {
			return nil, errors.Wrapf(err, "translating keyword visitor %s", k.VisitorKey)
		}
		kwIdx[id] = append(kwIdx[id], i)
	}

	var rows []AttributedRow
	for _, rev := range revs {
		id, err := tr.GetID(VisitorField, rev.VisitorKey)
		if err != nil {
			return nil, errors.Wrapf(err, "translating revenue visitor %s", rev.VisitorKey)
		}
		for _, ri := range refIdx[id] {
			for _, ki := range kwIdx[id] {
				rows = append(rows, AttributedRow{
					VisitorKey:         rev.VisitorKey,
					SearchEngineDomain: refs[ri].SearchEngineDomain,
					SearchKeyword:      kws[ki].SearchKeyword,
					Revenue:            rev.Revenue,
				})
			}
		}
	}
	return rows, nil
}
