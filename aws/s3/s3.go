// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 implements searchrev.ObjectStore over Amazon S3. References
// are object keys within the store's bucket; ParseURL splits s3://bucket/key
// URLs for callers which start from a full URL.
package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
)

// Scheme prefixes S3 URLs.
const Scheme = "s3://"

// IsURL reports whether ref is an s3:// URL.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, Scheme)
}

// ParseURL splits an s3://bucket/key URL. The key may be empty.
func ParseURL(ref string) (bucket, key string, err error) {
	if !IsURL(ref) {
		return "", "", errors.Errorf("'%s' is not an s3 URL", ref)
	}
	rest := strings.TrimPrefix(ref, Scheme)
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", errors.Errorf("no bucket in '%s'", ref)
	}
	if len(parts) == 2 {
		key = parts[1]
	}
	return parts[0], key, nil
}

// StoreOption is a functional option type for Store.
type StoreOption func(s *Store)

// OptStoreRegion sets the AWS region for a Store.
func OptStoreRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

// OptStoreClients replaces the S3 client and uploader, mainly for testing.
func OptStoreClients(client s3iface.S3API, uploader s3manageriface.UploaderAPI) StoreOption {
	return func(s *Store) {
		s.s3 = client
		s.uploader = uploader
	}
}

// Store is a searchrev.ObjectStore for one S3 bucket.
type Store struct {
	bucket string
	region string

	s3       s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

// NewStore returns a Store for bucket with the options applied. Unless
// clients are supplied, a session is created from the ambient AWS
// configuration.
func NewStore(bucket string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		bucket: bucket,
		region: "us-east-1",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.s3 == nil || s.uploader == nil {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(s.region)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "getting new session")
		}
		s.s3 = s3.New(sess)
		s.uploader = s3manager.NewUploader(sess)
	}
	return s, nil
}

// Bucket returns the bucket the store reads and writes.
func (s *Store) Bucket() string {
	return s.bucket
}

// Open fetches the object at key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching s3://%s/%s", s.bucket, key)
	}
	return result.Body, nil
}

// Put uploads body to key, replacing any existing object.
func (s *Store) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return errors.Wrapf(err, "uploading s3://%s/%s", s.bucket, key)
}
