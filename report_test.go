package searchrev_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/file"
	"github.com/ksb256/searchrev/mock"
	"github.com/ksb256/searchrev/test"
)

var reportRows = []searchrev.AggregatedRow{
	{SearchEngineDomain: "search.yahoo.com", SearchKeyword: "cd+player", Revenue: test.Dec("290")},
	{SearchEngineDomain: "google.com", SearchKeyword: "ipod", Revenue: test.Dec("190.005")},
	{SearchEngineDomain: "bing.com", SearchKeyword: "zune", Revenue: test.Dec("0.1")},
}

func TestReportName(t *testing.T) {
	d := time.Date(2009, time.September, 27, 23, 59, 0, 0, time.UTC)
	test.MustBe(t, "2009-09-27_SearchKeyWordPerformance.tab", searchrev.ReportName(d, "tab"))
	test.MustBe(t, "2009-09-27_SearchKeyWordPerformance.avro", searchrev.ReportName(d, "avro"))
}

func TestReportDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	d := time.Date(2009, time.September, 27, 23, 30, 0, 0, loc)
	test.MustBe(t, time.Date(2009, time.September, 27, 0, 0, 0, 0, time.UTC), searchrev.ReportDay(d))
	test.MustBe(t, "2009-09-27_SearchKeyWordPerformance.tab", searchrev.ReportName(d, "tab"))
}

func TestWriteTSV(t *testing.T) {
	buf := &bytes.Buffer{}
	test.ErrNil(t, searchrev.WriteTSV(buf, reportRows), "writing")
	test.MustBe(t, "search_engine_domain\tsearch_keyword\trevenue\n"+
		"search.yahoo.com\tcd+player\t290.00\n"+
		"google.com\tipod\t190.01\n"+
		"bing.com\tzune\t0.10\n", buf.String())

	rows, err := searchrev.ReadReport(buf)
	test.ErrNil(t, err, "reading")
	test.MustEqual(t, []searchrev.AggregatedRow{
		{SearchEngineDomain: "search.yahoo.com", SearchKeyword: "cd+player", Revenue: test.Dec("290")},
		{SearchEngineDomain: "google.com", SearchKeyword: "ipod", Revenue: test.Dec("190.01")},
		{SearchEngineDomain: "bing.com", SearchKeyword: "zune", Revenue: test.Dec("0.1")},
	}, rows)
}

func TestReadReportErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":       "",
		"bad header":  "domain\tkeyword\trevenue\n",
		"short row":   "search_engine_domain\tsearch_keyword\trevenue\ngoogle.com\t1.00\n",
		"bad revenue": "search_engine_domain\tsearch_keyword\trevenue\ngoogle.com\tipod\tlots\n",
	} {
		if _, err := searchrev.ReadReport(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestStoreSinkRef(t *testing.T) {
	d := time.Date(2009, time.September, 27, 0, 0, 0, 0, time.UTC)
	for prefix, want := range map[string]string{
		"":                 "2009-09-27_SearchKeyWordPerformance.tab",
		"out":              "out/2009-09-27_SearchKeyWordPerformance.tab",
		"s3://bucket/rep/": "s3://bucket/rep/2009-09-27_SearchKeyWordPerformance.tab",
	} {
		s := &searchrev.StoreSink{Prefix: prefix, Encoder: searchrev.TSVEncoder{}}
		test.MustBe(t, want, s.Ref(d), prefix)
	}
}

func TestStoreSink(t *testing.T) {
	dir, err := ioutil.TempDir("", "searchrev-report")
	test.ErrNil(t, err, "making temp dir")
	defer os.RemoveAll(dir)

	log := &mock.RecordingLogger{}
	s := &searchrev.StoreSink{
		Store:   file.NewStore(),
		Prefix:  filepath.Join(dir, "reports"),
		Encoder: searchrev.TSVEncoder{},
		Log:     log,
	}
	rep := &searchrev.Report{RunID: "r1", Date: time.Date(2009, time.September, 27, 12, 0, 0, 0, time.UTC), Rows: reportRows}
	test.ErrNil(t, s.WriteReport(context.Background(), rep), "writing report")
	test.ErrNil(t, s.WriteReport(context.Background(), rep), "rewriting report")

	f, err := os.Open(filepath.Join(dir, "reports", "2009-09-27_SearchKeyWordPerformance.tab"))
	test.ErrNil(t, err, "opening report")
	defer f.Close()
	rows, err := searchrev.ReadReport(f)
	test.ErrNil(t, err, "reading report")
	if len(rows) != len(reportRows) {
		t.Fatalf("expected %d rows, got %+v", len(reportRows), rows)
	}
	if len(log.Lines) != 2 {
		t.Fatalf("expected a log line per write, got %v", log.Lines)
	}
}

type failStore struct{}

func (failStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return nil, errors.New("unavailable")
}

func (failStore) Put(ctx context.Context, ref string, body io.Reader) error {
	return errors.New("unavailable")
}

func TestStoreSinkPutError(t *testing.T) {
	s := &searchrev.StoreSink{Store: failStore{}, Encoder: searchrev.TSVEncoder{}}
	err := s.WriteReport(context.Background(), &searchrev.Report{Date: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "SearchKeyWordPerformance.tab") {
		t.Fatalf("expected put error naming the report, got %v", err)
	}
}
