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

// Package leveldb provides a searchrev.Translator which keeps its key
// dictionaries in leveldb, for feeds whose visitor key set doesn't fit
// comfortably in memory.
package leveldb

import (
	"encoding/binary"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ searchrev.Translator = &Translator{}

// curIDKey holds the next id to allocate in a field's id map. It is shorter
// than the 8 byte id keys so it can't collide with them.
var curIDKey = []byte("next")

// Translator is a searchrev.Translator which stores the two way val/id
// mapping in leveldb, one pair of databases per field.
type Translator struct {
	lock    sync.RWMutex
	dirname string
	fields  map[string]*FieldTranslator
}

// FieldTranslator translates the values of one field.
type FieldTranslator struct {
	lock   valueLocker
	idLock sync.Mutex
	idMap  *leveldb.DB
	valMap *leveldb.DB
	curID  uint64
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// Close closes all of the underlying leveldb instances.
func (lt *Translator) Close() error {
	lt.lock.Lock()
	defer lt.lock.Unlock()
	errs := make(errorList, 0)
	for f, lft := range lt.fields {
		err := lft.Close()
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "field : %v", f))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Close closes the two leveldbs used by the FieldTranslator.
func (lft *FieldTranslator) Close() error {
	errs := make(errorList, 0)
	err := lft.idMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing idMap"))
	}
	err = lft.valMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing valMap"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// getFieldTranslator retrieves or creates a FieldTranslator for the given field.
func (lt *Translator) getFieldTranslator(field string) (*FieldTranslator, error) {
	lt.lock.RLock()
	if tr, ok := lt.fields[field]; ok {
		lt.lock.RUnlock()
		return tr, nil
	}
	lt.lock.RUnlock()
	lt.lock.Lock()
	defer lt.lock.Unlock()
	if tr, ok := lt.fields[field]; ok {
		return tr, nil
	}
	lft, err := NewFieldTranslator(lt.dirname, field)
	if err != nil {
		return nil, errors.Wrap(err, "creating new FieldTranslator")
	}
	lt.fields[field] = lft
	return lft, nil
}

// NewFieldTranslator opens (or creates) the databases for field under
// dirname. Ids continue from where a previous FieldTranslator left off.
func NewFieldTranslator(dirname string, field string) (*FieldTranslator, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	lft := &FieldTranslator{
		lock: newBucketVLock(),
	}
	idPath := filepath.Join(dirname, field+"-id")
	lft.idMap, err = leveldb.OpenFile(idPath, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", idPath)
	}
	valPath := filepath.Join(dirname, field+"-val")
	lft.valMap, err = leveldb.OpenFile(valPath, &opt.Options{})
	if err != nil {
		lft.idMap.Close()
		return nil, errors.Wrapf(err, "opening leveldb at %v", valPath)
	}
	data, err := lft.idMap.Get(curIDKey, nil)
	if err == nil {
		lft.curID = binary.BigEndian.Uint64(data)
	} else if err != leveldb.ErrNotFound {
		lft.Close()
		return nil, errors.Wrap(err, "reading next id")
	}
	return lft, nil
}

// NewTranslator gets a new Translator storing its databases under dirname.
func NewTranslator(dirname string, fields ...string) (lt *Translator, err error) {
	lt = &Translator{
		dirname: dirname,
		fields:  make(map[string]*FieldTranslator),
	}
	for _, field := range fields {
		lft, err := NewFieldTranslator(dirname, field)
		if err != nil {
			lt.Close()
			return nil, errors.Wrap(err, "making FieldTranslator")
		}
		lt.fields[field] = lft
	}
	return lt, nil
}

// Get returns the value mapped to the given id in the given field.
func (lt *Translator) Get(field string, id uint64) (string, error) {
	lft, err := lt.getFieldTranslator(field)
	if err != nil {
		return "", errors.Wrap(err, "getting field translator")
	}
	return lft.Get(id)
}

// Get returns the value mapped to the given id.
func (lft *FieldTranslator) Get(id uint64) (string, error) {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	data, err := lft.idMap.Get(idBytes, nil)
	if err != nil {
		return "", errors.Wrap(err, "fetching from idMap")
	}
	return string(data), nil
}

// GetID returns the integer id associated with the given value in the given
// field. It allocates a new ID if the value is not found.
func (lt *Translator) GetID(field string, val string) (id uint64, err error) {
	lft, err := lt.getFieldTranslator(field)
	if err != nil {
		return 0, errors.Wrap(err, "getting field translator")
	}
	return lft.GetID(val)
}

// GetID returns the integer id associated with the given value. It allocates a
// new ID if the value is not found.
func (lft *FieldTranslator) GetID(val string) (id uint64, err error) {
	valBytes := []byte(val)

	// most lookups in a join are for keys which were already interned
	data, err := lft.valMap.Get(valBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, errors.Wrap(err, "trying to read value map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), nil
	}

	lft.lock.Lock(valBytes)
	defer lft.lock.Unlock(valBytes)
	// re-read after locking
	data, err = lft.valMap.Get(valBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, errors.Wrap(err, "trying to read value map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), nil
	}

	id, err = lft.allocate(valBytes)
	if err != nil {
		return 0, err
	}
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	err = lft.valMap.Put(valBytes, idBytes, &opt.WriteOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "putting new id into valmap")
	}
	return id, nil
}

// allocate takes the next id, recording it and the value in the id map in one
// batch so a reopened translator resumes after it.
func (lft *FieldTranslator) allocate(valBytes []byte) (uint64, error) {
	lft.idLock.Lock()
	defer lft.idLock.Unlock()
	id := lft.curID
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	nextBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nextBytes, id+1)

	batch := new(leveldb.Batch)
	batch.Put(idBytes, valBytes)
	batch.Put(curIDKey, nextBytes)
	if err := lft.idMap.Write(batch, &opt.WriteOptions{}); err != nil {
		return 0, errors.Wrap(err, "putting new id into idmap")
	}
	lft.curID = id + 1
	return id, nil
}

type valueLocker interface {
	Lock(val []byte)
	Unlock(val []byte)
}

type bucketVLock struct {
	ms []sync.Mutex
}

func newBucketVLock() bucketVLock {
	return bucketVLock{
		ms: make([]sync.Mutex, 1000),
	}
}

func (b bucketVLock) Lock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Lock()
}

func (b bucketVLock) Unlock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Unlock()
}
