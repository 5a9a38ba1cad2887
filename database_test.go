package slatekv

// database_test.go implements tests for the Database handle.

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/slatekv/slatekv/engine/memengine"
	"github.com/slatekv/slatekv/internal/logging"
)

// newTestDB opens a database against a fresh in-memory engine.
func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(t.Name(), &Options{Engine: memengine.New(), Logger: logging.Discard})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPutGetRoundtrip tests that a put value is returned by a subsequent get.
func TestPutGetRoundtrip(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("hello"), []byte("world")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, found, err := db.Get([]byte("hello"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Get: key not found after Put")
	}
	if !bytes.Equal(value, []byte("world")) {
		t.Errorf("Get = %q, want %q", value, "world")
	}
}

// TestGetAbsentKey tests that reading an absent key reports found=false
// without an error.
func TestGetAbsentKey(t *testing.T) {
	db := newTestDB(t)

	value, found, err := db.Get([]byte("missing"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Get: absent key reported found")
	}
	if value != nil {
		t.Errorf("Get: absent key returned value %q", value)
	}
}

// TestDeleteRemovesKey tests that a deleted key is no longer visible.
func TestDeleteRemovesKey(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, found, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("Get: key still visible after Delete")
	}
}

// TestDeleteAbsentKey tests that deleting an absent key succeeds.
func TestDeleteAbsentKey(t *testing.T) {
	db := newTestDB(t)

	if err := db.Delete([]byte("never-existed")); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

// TestEmptyKeyRejected tests that every operation rejects an empty key
// with ErrInvalidArgument before touching the store.
func TestEmptyKeyRejected(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put(nil, []byte("v")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Put empty key: err = %v, want ErrInvalidArgument", err)
	}
	if _, _, err := db.Get([]byte{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Get empty key: err = %v, want ErrInvalidArgument", err)
	}
	if err := db.Delete(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Delete empty key: err = %v, want ErrInvalidArgument", err)
	}
}

// TestEmptyValueDistinctFromAbsent tests that an empty value is stored and
// is distinguishable from an absent key.
func TestEmptyValueDistinctFromAbsent(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, found, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Get: empty-value key reported absent")
	}
	if len(value) != 0 {
		t.Errorf("Get = %q, want empty", value)
	}
}

// TestPutOverwrite tests that a second put replaces the first value.
func TestPutOverwrite(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte("one")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := db.Put([]byte("k"), []byte("two")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, _, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(value, []byte("two")) {
		t.Errorf("Get = %q, want %q", value, "two")
	}
}

// TestWriteBatchAtomicity tests that a batch is applied as a unit: a
// concurrent reader sees either none of the batch or all of it.
func TestWriteBatchAtomicity(t *testing.T) {
	db := newTestDB(t)

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(1)
	errCh := make(chan error, 1)
	go func() {
		defer wg.Done()
		for {
			_, foundA, err := db.Get([]byte("a"))
			if err != nil {
				errCh <- err
				return
			}
			_, foundB, err := db.Get([]byte("b"))
			if err != nil {
				errCh <- err
				return
			}
			if foundA != foundB {
				// The batch below always writes both keys together, so
				// observing one without the other breaks atomicity. The
				// reader races the writer, so a-before-b skew at the key
				// level is only possible across separate writes.
				errCh <- errors.New("observed partial batch")
				return
			}
			if foundA {
				errCh <- nil
				return
			}
		}
	}()

	for i := 0; i < rounds; i++ {
		batch := NewWriteBatch()
		batch.Put([]byte("a"), []byte{byte(i)})
		batch.Put([]byte("b"), []byte{byte(i)})
		if err := db.Write(batch); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	wg.Wait()
	if err := <-errCh; err != nil {
		t.Fatalf("reader: %v", err)
	}
}

// TestScanOrdered tests that a scan yields keys in ascending order over
// the half-open range [start, end).
func TestScanOrdered(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []string{"c", "a", "b", "e", "d"} {
		if err := db.Put([]byte(k), []byte("v-"+k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	it, err := db.Scan([]byte("a"), []byte("d"))
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	entries, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(entries) != len(want) {
		t.Fatalf("Scan returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if string(e.Key) != want[i] {
			t.Errorf("entry %d: key = %q, want %q", i, e.Key, want[i])
		}
		if string(e.Value) != "v-"+want[i] {
			t.Errorf("entry %d: value = %q, want %q", i, e.Value, "v-"+want[i])
		}
	}
}

// TestScanFullRange tests that an empty start and nil end scan the whole
// keyspace.
func TestScanFullRange(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []string{"x", "y", "z"} {
		if err := db.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	it, err := db.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	entries, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Scan returned %d entries, want 3", len(entries))
	}
	for i, want := range []string{"x", "y", "z"} {
		if string(entries[i].Key) != want {
			t.Errorf("entry %d: key = %q, want %q", i, entries[i].Key, want)
		}
	}
}

// TestScanExcludesDeleted tests that deleted keys do not appear in scans.
func TestScanExcludesDeleted(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []string{"a", "b", "c"} {
		if err := db.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := db.Delete([]byte("b")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	it, err := db.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	entries, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, e := range entries {
		if string(e.Key) == "b" {
			t.Error("Scan returned deleted key")
		}
	}
	if len(entries) != 2 {
		t.Errorf("Scan returned %d entries, want 2", len(entries))
	}
}

// TestRemoteDurabilityHidesUnflushed tests that a read requiring remote
// durability does not see writes that were not awaited to durable.
func TestRemoteDurabilityHidesUnflushed(t *testing.T) {
	db := newTestDB(t)

	// Opt out of awaiting durability so the write stays memory-resident.
	if err := db.PutWithOptions([]byte("k"), []byte("v"), nil, &WriteOptions{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, found, err := db.GetWithOptions([]byte("k"), &ReadOptions{Durability: DurabilityRemote})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("remote-durability read observed unflushed write")
	}

	_, found, err = db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Error("memory-durability read missed the write")
	}

	if err := db.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	_, found, err = db.GetWithOptions([]byte("k"), &ReadOptions{Durability: DurabilityRemote})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Error("remote-durability read missed flushed write")
	}
}

// TestDefaultWriteIsDurable tests that a default put is immediately
// visible to remote-durability reads.
func TestDefaultWriteIsDurable(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, found, err := db.GetWithOptions([]byte("k"), &ReadOptions{Durability: DurabilityRemote})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Error("default put was not awaited to durable")
	}
}

// TestClosedDatabase tests that every operation on a closed handle fails
// with ErrClosed and that Close itself is idempotent.
func TestClosedDatabase(t *testing.T) {
	db := newTestDB(t)

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if _, _, err := db.Get([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: err = %v, want ErrClosed", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close: err = %v, want ErrClosed", err)
	}
	if err := db.Delete([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete after Close: err = %v, want ErrClosed", err)
	}
	if _, err := db.Scan(nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Scan after Close: err = %v, want ErrClosed", err)
	}
	if _, err := db.BeginTransaction(IsolationSnapshot); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginTransaction after Close: err = %v, want ErrClosed", err)
	}
	if _, err := db.Snapshot(); !errors.Is(err, ErrClosed) {
		t.Errorf("Snapshot after Close: err = %v, want ErrClosed", err)
	}
	if err := db.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close: err = %v, want ErrClosed", err)
	}
}

// TestSharedStateAcrossHandles tests that two handles opened on the same
// engine path observe the same store.
func TestSharedStateAcrossHandles(t *testing.T) {
	eng := memengine.New()
	opts := &Options{Engine: eng, Logger: logging.Discard}

	db1, err := Open("shared", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db1.Close()
	db2, err := Open("shared", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db2.Close()

	if err := db1.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, found, err := db2.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || !bytes.Equal(value, []byte("v")) {
		t.Errorf("second handle: value = %q found = %v, want %q true", value, found, "v")
	}
}

// TestBadURLRejected tests that an unrecognized object-store scheme fails
// with ErrInvalidArgument.
func TestBadURLRejected(t *testing.T) {
	_, err := Open("p", &Options{Engine: memengine.New(), URL: "ftp://bucket/x", Logger: logging.Discard})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Open with bad URL: err = %v, want ErrInvalidArgument", err)
	}
}

// TestConcurrentReadersAndWriters tests that concurrent handle use is
// race-free and every committed write is eventually readable.
func TestConcurrentReadersAndWriters(t *testing.T) {
	db := newTestDB(t)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := []byte{byte('a' + w)}
			for i := 0; i < 25; i++ {
				if err := db.Put(key, []byte{byte(i)}); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				if _, _, err := db.Get(key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 4; w++ {
		value, found, err := db.Get([]byte{byte('a' + w)})
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found || value[0] != 24 {
			t.Errorf("writer %d: value = %v found = %v, want [24] true", w, value, found)
		}
	}
}
