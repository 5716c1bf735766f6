package pilosa

import (
	"context"
	"testing"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/test"
	"github.com/pkg/errors"
)

type bit struct{ field, col, row string }

type value struct {
	field, col string
	val        int64
}

type fakeIndexer struct {
	bits   []bit
	values []value
	closed bool
	err    error
}

func (f *fakeIndexer) AddColumn(field string, col, row string) {
	f.bits = append(f.bits, bit{field, col, row})
}

func (f *fakeIndexer) AddValue(field string, col string, val, min, max int64) {
	f.values = append(f.values, value{field, col, val})
}

func (f *fakeIndexer) Close() error {
	f.closed = true
	return f.err
}

func TestCents(t *testing.T) {
	for _, tst := range []struct {
		in   string
		want int64
	}{
		{"290", 29000},
		{"18.75", 1875},
		{"0.005", 1},
		{"12.344", 1234},
	} {
		if got := Cents(test.Dec(tst.in)); got != tst.want {
			t.Errorf("Cents(%s) = %d, want %d", tst.in, got, tst.want)
		}
	}
}

func TestSinkWriteReport(t *testing.T) {
	fake := &fakeIndexer{}
	s := NewSink([]string{"localhost:10101"}, "searchrev")
	s.setup = func() (indexer, error) { return fake, nil }
	rep := &searchrev.Report{
		Date: time.Date(2009, 9, 27, 0, 0, 0, 0, time.UTC),
		Rows: []searchrev.AggregatedRow{
			{SearchEngineDomain: "google.com", SearchKeyword: "ipod", Revenue: test.Dec("290.00")},
			{SearchEngineDomain: "bing.com", SearchKeyword: "zune", Revenue: test.Dec("250")},
		},
	}
	test.ErrNil(t, s.WriteReport(context.Background(), rep), "writing report")
	if !fake.closed {
		t.Fatal("indexer should be closed")
	}
	col := "2009-09-27/google.com/ipod"
	test.MustBe(t, []bit{
		{FieldDate, col, "2009-09-27"},
		{FieldDomain, col, "google.com"},
		{FieldKeyword, col, "ipod"},
	}, fake.bits[:3])
	test.MustBe(t, []value{
		{FieldRevenue, col, 29000},
		{FieldRevenue, "2009-09-27/bing.com/zune", 25000},
	}, fake.values)
}

func TestSinkImportError(t *testing.T) {
	s := NewSink(nil, "searchrev")
	s.setup = func() (indexer, error) { return &fakeIndexer{err: errors.New("import failed")}, nil }
	rep := &searchrev.Report{Rows: []searchrev.AggregatedRow{{SearchEngineDomain: "a", SearchKeyword: "b", Revenue: test.Dec("1")}}}
	if err := s.WriteReport(context.Background(), rep); err == nil {
		t.Fatal("expected import error")
	}
}
