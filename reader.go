package searchrev

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// maxLineSize bounds a single feed row. Referrers and product lists can be
// long, so the bufio default of 64K is not enough.
const maxLineSize = 1 << 20

// Reader is a Source which parses the tab separated hit feed. It reads the
// underlying io.Reader once, lazily, one row per call to Record. Reader is
// not safe for concurrent use.
type Reader struct {
	scan   *bufio.Scanner
	line   int
	header bool
}

// NewReader returns a Reader over the feed in r. The first line of r must be
// the header.
func NewReader(r io.Reader) *Reader {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scan: scan}
}

// Record returns the next hit in the feed, or io.EOF after the last one. A
// *SchemaViolation is returned if the header or the row doesn't fit the
// schema.
func (r *Reader) Record() (HitRecord, error) {
	if !r.header {
		if err := r.readHeader(); err != nil {
			return HitRecord{}, err
		}
	}
	for r.scan.Scan() {
		r.line++
		txt := strings.TrimSuffix(r.scan.Text(), "\r")
		if strings.TrimSpace(txt) == "" {
			continue
		}
		return ParseRow(r.line, strings.Split(txt, "\t"))
	}
	if err := r.scan.Err(); err != nil {
		return HitRecord{}, errors.Wrapf(err, "scanning feed after line %d", r.line)
	}
	return HitRecord{}, io.EOF
}

func (r *Reader) readHeader() error {
	if !r.scan.Scan() {
		if err := r.scan.Err(); err != nil {
			return errors.Wrap(err, "scanning header")
		}
		return &SchemaViolation{Line: 1, Reason: "missing header"}
	}
	r.line++
	r.header = true
	header := strings.Split(strings.TrimSuffix(r.scan.Text(), "\r"), "\t")
	return validateHeader(header)
}

func validateHeader(header []string) error {
	if len(header) != numColumns {
		return &SchemaViolation{Line: 1, Reason: "header has " + strconv.Itoa(len(header)) + " columns, want " + strconv.Itoa(numColumns)}
	}
	for i, h := range header {
		if strings.TrimSpace(h) != Columns[i] {
			return &SchemaViolation{Line: 1, Field: Columns[i], Reason: "header column " + strconv.Itoa(i) + " is '" + h + "'"}
		}
	}
	return nil
}

// ParseRow converts the fields of one feed row into a HitRecord. line is only
// used for error reporting.
func ParseRow(line int, row []string) (HitRecord, error) {
	if len(row) != numColumns {
		return HitRecord{}, &SchemaViolation{Line: line, Reason: "row has " + strconv.Itoa(len(row)) + " fields, want " + strconv.Itoa(numColumns)}
	}
	ip := strings.TrimSpace(row[colIP])
	if ip == "" {
		return HitRecord{}, &SchemaViolation{Line: line, Field: Columns[colIP], Reason: "required field is empty"}
	}
	ts := strings.TrimSpace(row[colHitTime])
	if ts == "" {
		return HitRecord{}, &SchemaViolation{Line: line, Field: Columns[colHitTime], Reason: "required field is empty"}
	}
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return HitRecord{}, &SchemaViolation{Line: line, Field: Columns[colHitTime], Reason: "not a unix timestamp: '" + ts + "'"}
	}
	return HitRecord{
		HitTime:     time.Unix(secs, 0).UTC(),
		DateTime:    row[colDateTime],
		UserAgent:   row[colUserAgent],
		VisitorKey:  ip,
		EventList:   row[colEventList],
		GeoCity:     row[colGeoCity],
		GeoRegion:   row[colGeoRegion],
		GeoCountry:  row[colGeoCountry],
		PageName:    row[colPageName],
		PageURL:     row[colPageURL],
		ProductList: row[colProductList],
		Referrer:    row[colReferrer],
	}, nil
}

// FormatRow is the inverse of ParseRow. It is used to republish hits as feed
// rows, e.g. onto a Kafka topic.
func FormatRow(h HitRecord) string {
	row := make([]string, numColumns)
	row[colHitTime] = strconv.FormatInt(h.HitTime.Unix(), 10)
	row[colDateTime] = h.DateTime
	row[colUserAgent] = h.UserAgent
	row[colIP] = h.VisitorKey
	row[colEventList] = h.EventList
	row[colGeoCity] = h.GeoCity
	row[colGeoRegion] = h.GeoRegion
	row[colGeoCountry] = h.GeoCountry
	row[colPageName] = h.PageName
	row[colPageURL] = h.PageURL
	row[colProductList] = h.ProductList
	row[colReferrer] = h.Referrer
	return strings.Join(row, "\t")
}

// ReadAll reads every hit from the feed in r.
func ReadAll(r io.Reader) ([]HitRecord, error) {
	return Collect(NewReader(r))
}
