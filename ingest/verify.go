package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/store"
	"github.com/pkg/errors"
)

// VerifyMain holds the options of the verify command.
type VerifyMain struct {
	Report string `help:"TSV report to read. A local path, http(s) URL or s3://bucket/key."`
	Region string `help:"AWS region for s3 references."`

	out io.Writer
}

// NewVerifyMain gets a new VerifyMain with default values.
func NewVerifyMain() *VerifyMain {
	return &VerifyMain{Region: "us-east-1", out: os.Stdout}
}

// SetOutput sets where the report is printed.
func (m *VerifyMain) SetOutput(w io.Writer) {
	m.out = w
}

// Run reads and prints the report.
func (m *VerifyMain) Run() error {
	if m.Report == "" {
		return errors.New("no report given")
	}
	_, err := Verify(context.Background(), m.Report, m.Region, m.out)
	return err
}

// Verify reads the TSV report at ref, prints it to w, and returns the number
// of rows.
func Verify(ctx context.Context, ref, region string, w io.Writer) (int, error) {
	st, name, err := store.Open(ref, region)
	if err != nil {
		return 0, errors.Wrap(err, "opening report store")
	}
	rc, err := st.Open(ctx, name)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", ref)
	}
	defer rc.Close()
	rows, err := searchrev.ReadReport(rc)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", ref)
	}
	if err := searchrev.WriteTSV(w, rows); err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "# %d rows in %s\n", len(rows), ref)
	return len(rows), nil
}
