package store

import (
	"testing"

	"github.com/ksb256/searchrev/aws/s3"
	"github.com/ksb256/searchrev/file"
)

func TestOpen(t *testing.T) {
	st, name, err := Open("/data/hits.tsv", "us-east-1")
	if err != nil {
		t.Fatalf("opening local ref: %v", err)
	}
	if _, ok := st.(*file.Store); !ok || name != "/data/hits.tsv" {
		t.Fatalf("local ref gave %T %q", st, name)
	}

	st, name, err = Open("s3://reports/out/2009-09-27", "us-west-2")
	if err != nil {
		t.Fatalf("opening s3 ref: %v", err)
	}
	s3st, ok := st.(*s3.Store)
	if !ok {
		t.Fatalf("s3 ref gave %T", st)
	}
	if s3st.Bucket() != "reports" || name != "out/2009-09-27" {
		t.Fatalf("s3 ref split into %q %q", s3st.Bucket(), name)
	}

	if _, _, err := Open("s3:///nobucket", "us-east-1"); err == nil {
		t.Fatal("expected error for s3 URL without a bucket")
	}
}
