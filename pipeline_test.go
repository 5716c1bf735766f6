package searchrev_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/fake"
	"github.com/ksb256/searchrev/mock"
	"github.com/ksb256/searchrev/test"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var runDate = time.Date(2009, time.September, 27, 0, 0, 0, 0, time.UTC)

func newPipeline() *searchrev.Pipeline {
	p := searchrev.NewPipeline()
	p.Now = func() time.Time { return runDate }
	return p
}

func TestRunSingleVisitor(t *testing.T) {
	hits, err := searchrev.ReadAll(feed(
		row("1254033280", "10.0.0.1", "", "", "http://www.google.com/search?q=shoes&x=1"),
		row("1254033380", "10.0.0.1", "1", "a;b;c;12.00,d;e;f;8.00", "https://www.esshopzilla.com/checkout/?a=confirm"),
	))
	test.ErrNil(t, err, "reading feed")
	res, err := newPipeline().Run(context.Background(), searchrev.NewSliceSource(hits))
	test.ErrNil(t, err, "running")
	test.MustEqual(t, []searchrev.AggregatedRow{
		{SearchEngineDomain: "google.com", SearchKeyword: "shoes", Revenue: test.Dec("20.00")},
	}, res.Rows)
	test.MustBe(t, 2, res.Hits)
	test.MustBe(t, runDate, res.Date)
	if res.RunID == "" {
		t.Fatal("run id not set")
	}
}

func TestRunRepeatPurchases(t *testing.T) {
	src := searchrev.NewReader(feed(
		row("1254033280", "10.0.0.2", "", "", "http://www.bing.com/search?q=Zune"),
		row("1254033300", "10.0.0.2", "1", "a;b;c;5.00", "https://www.esshopzilla.com/checkout/"),
		row("1254033400", "10.0.0.2", "1", "a;b;c;7.00", "https://www.esshopzilla.com/checkout/"),
		row("1254033500", "10.0.0.3", "1", "a;b;c;100.00", "https://www.esshopzilla.com/checkout/"),
	))
	res, err := newPipeline().Run(context.Background(), src)
	test.ErrNil(t, err, "running")
	test.MustEqual(t, []searchrev.AggregatedRow{
		{SearchEngineDomain: "bing.com", SearchKeyword: "zune", Revenue: test.Dec("12.00")},
	}, res.Rows)
	if len(res.Attributed) != 2 {
		t.Fatalf("expected two attributed rows, got %+v", res.Attributed)
	}
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	run := func(concurrent bool) *searchrev.Result {
		p := newPipeline()
		p.Concurrent = concurrent
		res, err := p.Run(context.Background(), fake.NewSource(7, 2000))
		test.ErrNil(t, err, "running")
		return res
	}
	seq, conc := run(false), run(true)
	if len(seq.Rows) == 0 {
		t.Fatal("generated feed produced an empty report")
	}
	test.MustEqual(t, seq.Rows, conc.Rows)
	test.MustEqual(t, seq.Attributed, conc.Attributed)
	for i := 1; i < len(seq.Rows); i++ {
		if seq.Rows[i].Revenue.GreaterThan(seq.Rows[i-1].Revenue) {
			t.Fatalf("rows out of order at %d: %+v", i, seq.Rows)
		}
	}
}

func TestRunStats(t *testing.T) {
	stats := &mock.RecordingStatter{}
	log := &mock.RecordingLogger{}
	p := newPipeline()
	p.Stats = stats
	p.Log = log
	p.Revenue.Stats = stats
	src := searchrev.NewReader(feed(
		row("1254033280", "10.0.0.1", "", "", "http://www.google.com/search?q=ipod"),
		row("1254033281", "10.0.0.1", "1", "a;b;c;1.00", "https://www.esshopzilla.com/"),
		row("1254033282", "10.0.0.2", "", "", "http://www.bing.com/"),
	))
	_, err := p.Run(context.Background(), src)
	test.ErrNil(t, err, "running")
	for name, want := range map[string]int64{
		"hits":              3,
		"revenue":           1,
		"referrals":         2,
		"keywords":          1,
		"joined":            1,
		"groups":            1,
		"revenue.purchases": 1,
	} {
		test.MustBe(t, want, stats.Get(name), name)
	}
	if _, ok := stats.Timings["run"]; !ok {
		t.Fatal("run not timed")
	}
	if len(log.Lines) != 1 {
		t.Fatalf("expected a run summary line, got %v", log.Lines)
	}
}

type errSource struct{ n int }

func (s *errSource) Record() (searchrev.HitRecord, error) {
	if s.n == 2 {
		return searchrev.HitRecord{}, errors.New("connection reset")
	}
	s.n++
	return searchrev.HitRecord{VisitorKey: "10.0.0.1"}, nil
}

func TestRunErrors(t *testing.T) {
	if res, err := newPipeline().Run(context.Background(), &errSource{}); err == nil || res != nil {
		t.Fatalf("expected source error and no result, got %v %v", res, err)
	}

	hits, err := searchrev.ReadAll(feed(
		row("1254033280", "10.0.0.1", "", "", "http://www.google.com/search?q=ipod"),
		row("1254033281", "10.0.0.1", "1", "a;b;c;x", ""),
	))
	test.ErrNil(t, err, "reading feed")
	for _, concurrent := range []bool{false, true} {
		p := newPipeline()
		p.Concurrent = concurrent
		_, err := p.Process(hits)
		var rerr *searchrev.RevenueParseError
		if !errors.As(err, &rerr) {
			t.Fatalf("concurrent=%v: expected RevenueParseError, got %v", concurrent, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newPipeline().Run(ctx, searchrev.NewSliceSource(nil))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
