// Package pilosa loads reports into a Pilosa index so revenue can be sliced
// by search engine, keyword and day with Pilosa queries. Each report row is
// one column, keyed by date, domain and keyword.
package pilosa

import (
	"io"
	"sync"
	"time"

	gopilosa "github.com/pilosa/go-pilosa"
	"github.com/pkg/errors"
)

// Index streams columns and values into a keyed Pilosa index, running one
// importer per field.
type Index struct {
	client    *gopilosa.Client
	batchSize uint

	lock        sync.RWMutex
	index       *gopilosa.Index
	importWG    sync.WaitGroup
	recordChans map[string]chanRecordIterator
	err         error
}

func newIndex() *Index {
	return &Index{
		recordChans: make(map[string]chanRecordIterator),
	}
}

// SetupPilosa returns a new Index after creating the index (with column keys)
// in Pilosa.
func SetupPilosa(hosts []string, indexName string, batchSize uint) (*Index, error) {
	schema := gopilosa.NewSchema()
	indexer := newIndex()
	indexer.batchSize = batchSize
	client, err := gopilosa.NewClient(hosts,
		gopilosa.OptClientSocketTimeout(time.Minute*60),
		gopilosa.OptClientConnectTimeout(time.Second*60))
	if err != nil {
		return nil, errors.Wrap(err, "creating pilosa cluster client")
	}
	indexer.client = client
	indexer.index = schema.Index(indexName, gopilosa.OptIndexKeys(true))
	err = client.SyncSchema(schema)
	if err != nil {
		return nil, errors.Wrap(err, "synchronizing schema")
	}
	return indexer, nil
}

// AddColumn sets the bit for row in field for col. Fields are created on
// first use, as ranked set fields with row keys.
func (i *Index) AddColumn(field string, col, row string) {
	c, ok := i.recordChan(field, func() *gopilosa.Field {
		return i.index.Field(field, gopilosa.OptFieldTypeSet(gopilosa.CacheTypeRanked, 100000), gopilosa.OptFieldKeys(true))
	})
	if !ok {
		return
	}
	c <- gopilosa.Column{RowKey: row, ColumnKey: col}
}

// AddValue sets the integer value of field for col. Fields are created on
// first use as int fields holding min through max.
func (i *Index) AddValue(field string, col string, val, min, max int64) {
	c, ok := i.recordChan(field, func() *gopilosa.Field {
		return i.index.Field(field, gopilosa.OptFieldTypeInt(min, max))
	})
	if !ok {
		return
	}
	c <- gopilosa.FieldValue{ColumnKey: col, Value: val}
}

func (i *Index) recordChan(name string, field func() *gopilosa.Field) (chanRecordIterator, bool) {
	i.lock.RLock()
	c, ok := i.recordChans[name]
	i.lock.RUnlock()
	if ok {
		return c, true
	}
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.err != nil {
		return nil, false
	}
	if err := i.setupField(field()); err != nil {
		i.err = errors.Wrapf(err, "setting up field '%s'", name)
		return nil, false
	}
	return i.recordChans[name], true
}

// setupField ensures the existence of a field in Pilosa, and starts an
// importer for it. Callers must hold i.lock.
func (i *Index) setupField(field *gopilosa.Field) error {
	fieldName := field.Name()
	if _, ok := i.recordChans[fieldName]; ok {
		return nil
	}
	err := i.client.EnsureField(field)
	if err != nil {
		return errors.Wrapf(err, "creating field '%v'", fieldName)
	}
	cbi := newChanRecordIterator()
	i.recordChans[fieldName] = cbi
	i.importWG.Add(1)
	go func() {
		defer i.importWG.Done()
		err := i.client.ImportField(field, cbi, gopilosa.OptImportBatchSize(int(i.batchSize)))
		if err != nil {
			i.lock.Lock()
			if i.err == nil {
				i.err = errors.Wrapf(err, "importing field %v", fieldName)
			}
			i.lock.Unlock()
			// drain so producers don't block on a dead importer
			for range cbi {
			}
		}
	}()
	return nil
}

// Close waits for all ongoing imports to finish and returns the first error
// any field setup or import hit.
func (i *Index) Close() error {
	i.lock.Lock()
	for _, cbi := range i.recordChans {
		close(cbi)
	}
	i.lock.Unlock()
	i.importWG.Wait()
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.err
}

type chanRecordIterator chan gopilosa.Record

func newChanRecordIterator() chanRecordIterator {
	return make(chan gopilosa.Record, 200000)
}

func (c chanRecordIterator) NextRecord() (gopilosa.Record, error) {
	b, ok := <-c
	if !ok {
		return b, io.EOF
	}
	return b, nil
}
