package pilosa

import (
	"context"
	"math"

	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Field names in the report index.
const (
	FieldDate    = "date"
	FieldDomain  = "domain"
	FieldKeyword = "keyword"
	FieldRevenue = "revenue_cents"
)

type indexer interface {
	AddColumn(field string, col, row string)
	AddValue(field string, col string, val, min, max int64)
	Close() error
}

// Sink is a searchrev.Sink writing reports into a Pilosa index.
type Sink struct {
	Hosts     []string
	Index     string
	BatchSize uint
	Log       searchrev.Logger

	setup func() (indexer, error)
}

// NewSink returns a Sink for index on the Pilosa cluster at hosts.
func NewSink(hosts []string, index string) *Sink {
	s := &Sink{
		Hosts:     hosts,
		Index:     index,
		BatchSize: 10000,
		Log:       searchrev.NopLogger{},
	}
	s.setup = func() (indexer, error) {
		return SetupPilosa(s.Hosts, s.Index, s.BatchSize)
	}
	return s
}

// Cents converts revenue to whole cents, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(searchrev.RevenuePlaces).Round(0).IntPart()
}

// ColumnKey identifies a report row across runs: a rerun for the same day
// overwrites rather than duplicates.
func ColumnKey(rep *searchrev.Report, row searchrev.AggregatedRow) string {
	return rep.Date.Format("2006-01-02") + "/" + row.SearchEngineDomain + "/" + row.SearchKeyword
}

// WriteReport implements searchrev.Sink.
func (s *Sink) WriteReport(ctx context.Context, rep *searchrev.Report) error {
	idx, err := s.setup()
	if err != nil {
		return errors.Wrap(err, "setting up pilosa")
	}
	day := rep.Date.Format("2006-01-02")
	for _, row := range rep.Rows {
		if err := ctx.Err(); err != nil {
			idx.Close()
			return err
		}
		col := ColumnKey(rep, row)
		idx.AddColumn(FieldDate, col, day)
		idx.AddColumn(FieldDomain, col, row.SearchEngineDomain)
		idx.AddColumn(FieldKeyword, col, row.SearchKeyword)
		idx.AddValue(FieldRevenue, col, Cents(row.Revenue), 0, math.MaxInt32)
	}
	if err := idx.Close(); err != nil {
		return errors.Wrap(err, "importing report")
	}
	s.Log.Printf("imported %d report rows into pilosa index %s", len(rep.Rows), s.Index)
	return nil
}
