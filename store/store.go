// Package store picks the searchrev.ObjectStore for a reference: S3 for
// s3:// URLs, the local filesystem (or plain HTTP for reads) otherwise.
package store

import (
	"github.com/ksb256/searchrev"
	"github.com/ksb256/searchrev/aws/s3"
	"github.com/ksb256/searchrev/file"
	"github.com/pkg/errors"
)

// Open returns the store holding ref along with ref's name inside that
// store. region is only used for S3.
func Open(ref, region string) (searchrev.ObjectStore, string, error) {
	if !s3.IsURL(ref) {
		return file.NewStore(), ref, nil
	}
	bucket, key, err := s3.ParseURL(ref)
	if err != nil {
		return nil, "", err
	}
	st, err := s3.NewStore(bucket, s3.OptStoreRegion(region))
	if err != nil {
		return nil, "", errors.Wrapf(err, "opening store for %s", ref)
	}
	return st, key, nil
}
