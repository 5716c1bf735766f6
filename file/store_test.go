package file

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustTempDir(t *testing.T, prefix string) string {
	t.Helper()
	d, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatal("getting temp dir")
	}
	return d
}

func TestStorePutOpen(t *testing.T) {
	d := mustTempDir(t, "teststore")
	defer os.RemoveAll(d)
	s := NewStore()
	ctx := context.Background()

	ref := filepath.Join(d, "out", "nested", "report.tab")
	if err := s.Put(ctx, ref, strings.NewReader("first")); err != nil {
		t.Fatalf("putting: %v", err)
	}
	if err := s.Put(ctx, ref, strings.NewReader("second")); err != nil {
		t.Fatalf("overwriting: %v", err)
	}

	rc, err := s.Open(ctx, ref)
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	defer rc.Close()
	got, err := ioutil.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected overwritten contents, got '%s'", got)
	}

	infos, err := ioutil.ReadDir(filepath.Dir(ref))
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("temp files left behind: %v", infos)
	}
}

func TestStoreOpenMissing(t *testing.T) {
	d := mustTempDir(t, "teststore")
	defer os.RemoveAll(d)
	_, err := NewStore().Open(context.Background(), filepath.Join(d, "nope"))
	if err == nil {
		t.Fatal("expected error opening missing file")
	}
}

func TestStoreOpenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.tsv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "feed contents")
	}))
	defer srv.Close()
	s := NewStore()

	rc, err := s.Open(context.Background(), srv.URL+"/feed.tsv")
	if err != nil {
		t.Fatalf("opening url: %v", err)
	}
	got, err := ioutil.ReadAll(rc)
	rc.Close()
	if err != nil || string(got) != "feed contents" {
		t.Fatalf("unexpected body '%s', err: %v", got, err)
	}

	if _, err := s.Open(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
	if err := s.Put(context.Background(), srv.URL+"/out", strings.NewReader("x")); err == nil {
		t.Fatal("expected error putting to a URL")
	}
}
