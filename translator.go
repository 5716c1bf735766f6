package searchrev

import (
	"sync"

	"github.com/pkg/errors"
)

// Translator maps string keys within a named field to dense integer ids and
// back. The join interns visitor keys and report groups through a Translator
// so that large key sets can live outside the Go heap. Implementations should
// be threadsafe and generate ids monotonically per field, starting at 0.
type Translator interface {
	Get(field string, id uint64) (string, error)
	GetID(field string, val string) (uint64, error)
}

// Fields used by the join and aggregation.
const (
	VisitorField = "visitor"
	GroupField   = "group"
)

// MapTranslator is an in-memory implementation of Translator.
type MapTranslator struct {
	lock   sync.RWMutex
	fields map[string]*MapFieldTranslator
}

// NewMapTranslator creates a new MapTranslator.
func NewMapTranslator() *MapTranslator {
	return &MapTranslator{
		fields: make(map[string]*MapFieldTranslator),
	}
}

func (m *MapTranslator) getFieldTranslator(field string) *MapFieldTranslator {
	m.lock.RLock()
	if mt, ok := m.fields[field]; ok {
		m.lock.RUnlock()
		return mt
	}
	m.lock.RUnlock()
	m.lock.Lock()
	defer m.lock.Unlock()
	if mt, ok := m.fields[field]; ok {
		return mt
	}
	m.fields[field] = NewMapFieldTranslator()
	return m.fields[field]
}

// Get returns the value mapped to the given id in the given field.
func (m *MapTranslator) Get(field string, id uint64) (string, error) {
	val, err := m.getFieldTranslator(field).Get(id)
	return val, errors.Wrapf(err, "field '%s'", field)
}

// GetID returns the id of val in field, allocating one if val is new.
func (m *MapTranslator) GetID(field string, val string) (uint64, error) {
	return m.getFieldTranslator(field).GetID(val), nil
}

// MapFieldTranslator translates the values of a single field. Lookups of
// known values only take a read lock.
type MapFieldTranslator struct {
	lock sync.RWMutex
	ids  map[string]uint64
	vals []string
}

// NewMapFieldTranslator returns an empty MapFieldTranslator.
func NewMapFieldTranslator() *MapFieldTranslator {
	return &MapFieldTranslator{
		ids: make(map[string]uint64),
	}
}

// Get returns the value for id.
func (m *MapFieldTranslator) Get(id uint64) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if id >= uint64(len(m.vals)) {
		return "", errors.Errorf("id %d not found", id)
	}
	return m.vals[id], nil
}

// GetID returns the id for val, allocating the next id if val is new.
func (m *MapFieldTranslator) GetID(val string) uint64 {
	m.lock.RLock()
	id, ok := m.ids[val]
	m.lock.RUnlock()
	if ok {
		return id
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if id, ok := m.ids[val]; ok {
		return id
	}
	id = uint64(len(m.vals))
	m.ids[val] = id
	m.vals = append(m.vals, val)
	return id
}
