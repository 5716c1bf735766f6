// Package avro encodes reports as Avro object container files, for loading
// into warehouses which prefer a typed format over the tab separated report.
package avro

import (
	"io"

	"github.com/ksb256/searchrev"
	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
)

// Schema is the record schema of one report row. Revenue is carried as a
// fixed point decimal string.
const Schema = `{
  "type": "record",
  "name": "SearchKeywordPerformance",
  "namespace": "com.esshopzilla.searchrev",
  "fields": [
    {"name": "search_engine_domain", "type": "string"},
    {"name": "search_keyword", "type": "string"},
    {"name": "revenue", "type": "string"}
  ]
}`

// Metadata keys written into the container header.
const (
	MetaRunID = "searchrev.run_id"
	MetaDate  = "searchrev.date"
)

// Encoder is a searchrev.Encoder writing Avro OCF.
type Encoder struct {
	// Compression is an OCF codec name: "null", "deflate" or "snappy".
	Compression string

	codec *goavro.Codec
}

// NewEncoder returns an Encoder with deflate compression.
func NewEncoder() (*Encoder, error) {
	codec, err := goavro.NewCodec(Schema)
	if err != nil {
		return nil, errors.Wrap(err, "compiling report schema")
	}
	return &Encoder{Compression: goavro.CompressionDeflateLabel, codec: codec}, nil
}

// Ext implements searchrev.Encoder.
func (e *Encoder) Ext() string { return "avro" }

// EncodeReport implements searchrev.Encoder.
func (e *Encoder) EncodeReport(w io.Writer, rep *searchrev.Report) error {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           e.codec,
		CompressionName: e.Compression,
		MetaData: map[string][]byte{
			MetaRunID: []byte(rep.RunID),
			MetaDate:  []byte(rep.Date.Format("2006-01-02")),
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating ocf writer")
	}
	if len(rep.Rows) == 0 {
		return nil
	}
	natives := make([]interface{}, len(rep.Rows))
	for i, r := range rep.Rows {
		natives[i] = map[string]interface{}{
			"search_engine_domain": r.SearchEngineDomain,
			"search_keyword":       r.SearchKeyword,
			"revenue":              r.Revenue.StringFixed(searchrev.RevenuePlaces),
		}
	}
	return errors.Wrap(ocf.Append(natives), "appending report rows")
}
