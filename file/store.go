// Package file implements searchrev.ObjectStore over the local file system.
// References are file paths; http and https URLs may also be opened for
// reading.
package file

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is a searchrev.ObjectStore backed by local files.
type Store struct {
	// Client fetches http(s) references. Defaults to http.DefaultClient.
	Client *http.Client
}

// NewStore returns a Store using the default http client.
func NewStore() *Store {
	return &Store{Client: http.DefaultClient}
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Open opens the file or URL at ref for reading.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if isURL(ref) {
		req, err := http.NewRequest(http.MethodGet, ref, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building request")
		}
		client := s.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, errors.Wrap(err, "getting via http")
		}
		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, errors.Errorf("getting %s: status %s", ref, resp.Status)
		}
		return resp.Body, nil
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Put writes body to the file at ref, creating parent directories and
// replacing any existing file. The file is written beside its final location
// and renamed into place, so readers never see a partial report.
func (s *Store) Put(ctx context.Context, ref string, body io.Reader) error {
	if isURL(ref) {
		return errors.Errorf("can't write to URL %s", ref)
	}
	dir := filepath.Dir(ref)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "making directory %s", dir)
	}
	tmp, err := ioutil.TempFile(dir, "."+filepath.Base(ref))
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "setting permissions")
	}
	return errors.Wrap(os.Rename(tmp.Name(), ref), "renaming into place")
}
