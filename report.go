package searchrev

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ReportColumns is the header of a TSV report.
var ReportColumns = []string{"search_engine_domain", "search_keyword", "revenue"}

// RevenuePlaces is the number of decimal places revenue is reported with.
const RevenuePlaces = 2

// Report is the result of one pipeline run.
type Report struct {
	RunID string
	Date  time.Time
	Rows  []AggregatedRow
}

// ReportName is the object name of the report for date, e.g.
// 2009-09-27_SearchKeyWordPerformance.tab.
func ReportName(date time.Time, ext string) string {
	return ReportDay(date).Format("2006-01-02") + "_SearchKeyWordPerformance." + ext
}

// ReportDay is the calendar day of date in its own location, as midnight UTC.
// Sinks key reports by it so that every sink agrees with ReportName.
func ReportDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// Sink persists a report.
type Sink interface {
	WriteReport(ctx context.Context, rep *Report) error
}

// ObjectStore is a durable store for input feeds and reports. Put replaces
// any existing object at ref.
type ObjectStore interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Put(ctx context.Context, ref string, body io.Reader) error
}

// Encoder serializes a report into an object format.
type Encoder interface {
	EncodeReport(w io.Writer, rep *Report) error
	Ext() string
}

// TSVEncoder writes reports as tab separated text with a header line.
type TSVEncoder struct{}

// Ext implements Encoder.
func (TSVEncoder) Ext() string { return "tab" }

// EncodeReport implements Encoder.
func (TSVEncoder) EncodeReport(w io.Writer, rep *Report) error {
	return WriteTSV(w, rep.Rows)
}

// WriteTSV writes rows with a header line, revenue to RevenuePlaces places.
func WriteTSV(w io.Writer, rows []AggregatedRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(ReportColumns, "\t") + "\n"); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, r := range rows {
		line := r.SearchEngineDomain + "\t" + r.SearchKeyword + "\t" + r.Revenue.StringFixed(RevenuePlaces) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return errors.Wrapf(err, "writing row %s/%s", r.SearchEngineDomain, r.SearchKeyword)
		}
	}
	return errors.Wrap(bw.Flush(), "flushing report")
}

// ReadReport parses a report written by WriteTSV.
func ReadReport(r io.Reader) ([]AggregatedRow, error) {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if !scan.Scan() {
		if err := scan.Err(); err != nil {
			return nil, errors.Wrap(err, "scanning report header")
		}
		return nil, errors.New("empty report")
	}
	if h := strings.TrimSuffix(scan.Text(), "\r"); h != strings.Join(ReportColumns, "\t") {
		return nil, errors.Errorf("unexpected report header '%s'", h)
	}
	var rows []AggregatedRow
	line := 1
	for scan.Scan() {
		line++
		txt := strings.TrimSuffix(scan.Text(), "\r")
		if txt == "" {
			continue
		}
		fields := strings.Split(txt, "\t")
		if len(fields) != len(ReportColumns) {
			return nil, errors.Errorf("report line %d has %d fields", line, len(fields))
		}
		rev, err := decimal.NewFromString(fields[2])
		if err != nil {
			return nil, errors.Wrapf(err, "report line %d revenue", line)
		}
		rows = append(rows, AggregatedRow{SearchEngineDomain: fields[0], SearchKeyword: fields[1], Revenue: rev})
	}
	return rows, errors.Wrap(scan.Err(), "scanning report")
}

// StoreSink encodes reports and puts them into an ObjectStore under Prefix,
// named by ReportName.
type StoreSink struct {
	Store   ObjectStore
	Prefix  string
	Encoder Encoder
	Log     Logger
}

// Ref returns the object reference the report for date is written to.
func (s *StoreSink) Ref(date time.Time) string {
	name := ReportName(date, s.Encoder.Ext())
	if s.Prefix == "" || strings.HasSuffix(s.Prefix, "/") {
		return s.Prefix + name
	}
	return s.Prefix + "/" + name
}

// WriteReport implements Sink.
func (s *StoreSink) WriteReport(ctx context.Context, rep *Report) error {
	buf := &bytes.Buffer{}
	if err := s.Encoder.EncodeReport(buf, rep); err != nil {
		return errors.Wrap(err, "encoding report")
	}
	ref := s.Ref(rep.Date)
	n := buf.Len()
	if err := s.Store.Put(ctx, ref, buf); err != nil {
		return errors.Wrapf(err, "putting report to %s", ref)
	}
	if s.Log != nil {
		s.Log.Printf("wrote %d report rows (%d bytes) to %s", len(rep.Rows), n, ref)
	}
	return nil
}
