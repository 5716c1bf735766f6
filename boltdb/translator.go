// Package boltdb provides a searchrev.Translator implementation using boltdb.
// Writes are slower than with the leveldb translator, but everything lives in
// a single file.
package boltdb

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/ksb256/searchrev"
	"github.com/pkg/errors"
)

var (
	idBucket  = []byte("idKey")
	valBucket = []byte("valKey")
)

var _ searchrev.Translator = &Translator{}

// Translator is a searchrev.Translator which stores the two way val/id mapping
// in boltdb, one pair of nested buckets per field.
type Translator struct {
	Db     *bolt.DB
	fmu    sync.RWMutex
	fields map[string]struct{}
}

// Close syncs and closes the underlying boltdb.
func (bt *Translator) Close() error {
	err := bt.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return bt.Db.Close()
}

// NewTranslator gets a new Translator backed by the bolt file at filename.
func NewTranslator(filename string, fields ...string) (bt *Translator, err error) {
	bt = &Translator{
		fields: make(map[string]struct{}),
	}
	bt.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	bt.Db.MaxBatchDelay = 400 * time.Microsecond
	err = bt.Db.Update(func(tx *bolt.Tx) error {
		ib, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return errors.Wrap(err, "creating idKey bucket")
		}
		vb, err := tx.CreateBucketIfNotExists(valBucket)
		if err != nil {
			return errors.Wrap(err, "creating valKey bucket")
		}
		for _, field := range fields {
			err = addField(ib, vb, field)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bt.Db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	// only once the buckets are committed can other transactions see them
	for _, field := range fields {
		bt.fields[field] = struct{}{}
	}
	return bt, nil
}

func addField(ib, vb *bolt.Bucket, field string) error {
	_, err := ib.CreateBucketIfNotExists([]byte(field))
	if err != nil {
		return errors.Wrap(err, "adding "+field+" to id bucket")
	}
	_, err = vb.CreateBucketIfNotExists([]byte(field))
	if err != nil {
		return errors.Wrap(err, "adding "+field+" to val bucket")
	}
	return nil
}

func (bt *Translator) ensureField(field string) error {
	bt.fmu.RLock()
	_, ok := bt.fields[field]
	bt.fmu.RUnlock()
	if ok {
		return nil
	}
	err := bt.Db.Update(func(tx *bolt.Tx) error {
		return addField(tx.Bucket(idBucket), tx.Bucket(valBucket), field)
	})
	if err != nil {
		return errors.Wrapf(err, "adding field %s", field)
	}
	bt.fmu.Lock()
	bt.fields[field] = struct{}{}
	bt.fmu.Unlock()
	return nil
}

// fieldBuckets returns the id and val buckets of field within tx.
func fieldBuckets(tx *bolt.Tx, field string) (fib, fvb *bolt.Bucket, err error) {
	fib = tx.Bucket(idBucket).Bucket([]byte(field))
	fvb = tx.Bucket(valBucket).Bucket([]byte(field))
	if fib == nil || fvb == nil {
		return nil, nil, errors.Errorf("no buckets for field %s", field)
	}
	return fib, fvb, nil
}

// Get returns the value previously mapped to id by GetID.
func (bt *Translator) Get(field string, id uint64) (val string, err error) {
	if err := bt.ensureField(field); err != nil {
		return "", err
	}
	err = bt.Db.View(func(tx *bolt.Tx) error {
		fib, _, err := fieldBuckets(tx, field)
		if err != nil {
			return err
		}
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, id)
		data := fib.Get(idBytes)
		if data == nil {
			return errors.Errorf("no value for id %d in field %s", id, field)
		}
		val = string(data)
		return nil
	})
	return val, err
}

// GetID maps val to an id, allocating the next one if val is new. Ids start
// at 1.
func (bt *Translator) GetID(field string, val string) (id uint64, err error) {
	if err := bt.ensureField(field); err != nil {
		return 0, err
	}
	bsval := []byte(val)

	// look up to see if this val is already mapped to an id
	err = bt.Db.View(func(tx *bolt.Tx) error {
		_, fvb, err := fieldBuckets(tx, field)
		if err != nil {
			return err
		}
		if ret := fvb.Get(bsval); len(ret) == 8 {
			id = binary.BigEndian.Uint64(ret)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "reading val bucket")
	}
	if id != 0 {
		return id, nil
	}

	// get new id, and map it in both directions. Batch may retry the
	// function so the existence check is repeated inside it.
	err = bt.Db.Batch(func(tx *bolt.Tx) error {
		fib, fvb, err := fieldBuckets(tx, field)
		if err != nil {
			return err
		}
		if ret := fvb.Get(bsval); len(ret) == 8 {
			id = binary.BigEndian.Uint64(ret)
			return nil
		}

		id, err = fib.NextSequence()
		if err != nil {
			return err
		}
		keybytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keybytes, id)
		err = fib.Put(keybytes, bsval)
		if err != nil {
			return errors.Wrap(err, "inserting into idKey bucket")
		}
		err = fvb.Put(bsval, keybytes)
		if err != nil {
			return errors.Wrap(err, "inserting into valKey bucket")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
