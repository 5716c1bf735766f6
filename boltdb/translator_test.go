package boltdb

import (
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/ksb256/searchrev/test"
)

func TestBoltTranslator(t *testing.T) {
	boltFile := filepath.Join(t.TempDir(), "translator.db")
	bt, err := NewTranslator(boltFile, "f1", "f2")
	if err != nil {
		t.Fatalf("couldn't get bolt db: %v", err)
	}
	id1, err := bt.GetID("f1", "hello")
	test.ErrNil(t, err, "GetID f1")
	id2, err := bt.GetID("f2", "hello")
	test.ErrNil(t, err, "GetID f2")

	val, err := bt.Get("f1", id1)
	test.ErrNil(t, err, "Get f1")
	test.MustBe(t, "hello", val, "f1")
	val, err = bt.Get("f2", id2)
	test.ErrNil(t, err, "Get f2")
	test.MustBe(t, "hello", val, "f2")

	err = bt.Close()
	if err != nil {
		t.Fatalf("closing bolt db: %v", err)
	}

	bt, err = NewTranslator(boltFile, "f1", "f2")
	if err != nil {
		t.Fatalf("getting new translator: %v", err)
	}
	defer bt.Close()
	val, err = bt.Get("f1", id1)
	test.ErrNil(t, err, "after reopen, Get f1")
	test.MustBe(t, "hello", val, "f1 after reopen")

	id1again, err := bt.GetID("f1", "hello")
	test.ErrNil(t, err, "GetID again f1")
	id2again, err := bt.GetID("f2", "hello")
	test.ErrNil(t, err, "GetID again f2")
	if id1again != id1 || id2again != id2 {
		t.Fatalf("didn't get same ids for same values id1: %v, 1again: %v, 2: %v, 2again: %v", id1, id1again, id2, id2again)
	}

	id3, err := bt.GetID("f3", "newfield")
	test.ErrNil(t, err, "GetID f3")
	val, err = bt.Get("f3", id3)
	test.ErrNil(t, err, "Get f3")
	test.MustBe(t, "newfield", val, "f3")

	if _, err := bt.Get("f3", id3+100); err == nil {
		t.Fatal("expected error getting unallocated id")
	}
}

func TestBoltTranslatorConcurrent(t *testing.T) {
	bt, err := NewTranslator(filepath.Join(t.TempDir(), "translator.db"))
	if err != nil {
		t.Fatalf("couldn't get bolt db: %v", err)
	}
	defer bt.Close()

	rets := make([][]uint64, 4)
	wg := &sync.WaitGroup{}
	for i := range rets {
		rets[i] = make([]uint64, 100)
		wg.Add(1)
		go func(ret []uint64) {
			defer wg.Done()
			for j := range ret {
				id, err := bt.GetID("visitor", strconv.Itoa(j))
				if err != nil {
					t.Errorf("getting id: %v", err)
					return
				}
				ret[j] = id
			}
		}(rets[i])
	}
	wg.Wait()
	for i := 1; i < len(rets); i++ {
		test.MustBe(t, rets[0], rets[i], "ids across goroutines")
	}
}

func TestBoltTranslatorConcurrentNewFields(t *testing.T) {
	bt, err := NewTranslator(filepath.Join(t.TempDir(), "translator.db"))
	if err != nil {
		t.Fatalf("couldn't get bolt db: %v", err)
	}
	defer bt.Close()

	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			field := "f" + strconv.Itoa(i%3)
			for j := 0; j < 20; j++ {
				val := strconv.Itoa(j)
				id, err := bt.GetID(field, val)
				if err != nil {
					t.Errorf("getting id in %s: %v", field, err)
					return
				}
				got, err := bt.Get(field, id)
				if err != nil {
					t.Errorf("getting %d in %s: %v", id, field, err)
					return
				}
				if got != val {
					t.Errorf("%s: id %d maps to %s, want %s", field, id, got, val)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
