package searchrev

import (
	"io"

	"github.com/pkg/errors"
)

// Source is the interface for getting hits one record at a time. Record
// returns io.EOF once the source is exhausted.
type Source interface {
	Record() (HitRecord, error)
}

// Collect drains src into a slice so that the pipeline stages can make
// multiple passes over it.
func Collect(src Source) ([]HitRecord, error) {
	hits := make([]HitRecord, 0, 1024)
	for {
		h, err := src.Record()
		if err == io.EOF {
			return hits, nil
		} else if err != nil {
			return nil, errors.Wrapf(err, "reading hit %d", len(hits))
		}
		hits = append(hits, h)
	}
}

// SliceSource is a Source over hits already in memory.
type SliceSource struct {
	hits []HitRecord
	i    int
}

// NewSliceSource returns a Source which yields hits in order.
func NewSliceSource(hits []HitRecord) *SliceSource {
	return &SliceSource{hits: hits}
}

// Record implements Source.
func (s *SliceSource) Record() (HitRecord, error) {
	if s.i >= len(s.hits) {
		return HitRecord{}, io.EOF
	}
	s.i++
	return s.hits[s.i-1], nil
}
