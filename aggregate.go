package searchrev

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// groupKey joins domain and keyword with a byte which can't appear in a tab
// separated feed field.
func groupKey(domain, keyword string) string {
	return domain + "\x00" + keyword
}

// Aggregate sums the revenue of rows per (domain, keyword) group and returns
// one AggregatedRow per group, highest revenue first. Groups with equal
// revenue stay in the order their first row appeared in rows.
func Aggregate(tr Translator, rows []AttributedRow) ([]AggregatedRow, error) {
	pos := make(map[uint64]int)
	var out []AggregatedRow
	for _, r := range rows {
		id, err := tr.GetID(GroupField, groupKey(r.SearchEngineDomain, r.SearchKeyword))
		if err != nil {
			return nil, errors.Wrapf(err, "translating group %s/%s", r.SearchEngineDomain, r.SearchKeyword)
		}
		i, ok := pos[id]
		if !ok {
			i = len(out)
			pos[id] = i
			out = append(out, AggregatedRow{
				SearchEngineDomain: r.SearchEngineDomain,
				SearchKeyword:      r.SearchKeyword,
				Revenue:            decimal.Zero,
			})
		}
		out[i].Revenue = out[i].Revenue.Add(r.Revenue)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue.GreaterThan(out[j].Revenue)
	})
	return out, nil
}
