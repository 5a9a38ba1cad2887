package slatekv

// write_batch_test.go implements tests for batch construction and the
// consume-once rule.

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// TestWriteBatchLastWriteWins tests that later operations on the same key
// shadow earlier ones within a batch.
func TestWriteBatchLastWriteWins(t *testing.T) {
	db := newTestDB(t)

	batch := NewWriteBatch()
	batch.Put([]byte("k"), []byte("one"))
	batch.Put([]byte("k"), []byte("two"))
	batch.Put([]byte("gone"), []byte("x"))
	batch.Delete([]byte("gone"))
	if err := db.Write(batch); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, found, err := db.Get([]byte("k"))
	if err != nil || !found || !bytes.Equal(value, []byte("two")) {
		t.Errorf("Get = %q found = %v err = %v, want %q true nil", value, found, err, "two")
	}
	if _, found, _ := db.Get([]byte("gone")); found {
		t.Error("key deleted within the batch is still visible")
	}
}

// TestWriteBatchConsumeOnce tests that a batch cannot be written twice.
func TestWriteBatchConsumeOnce(t *testing.T) {
	db := newTestDB(t)

	batch := NewWriteBatch()
	batch.Put([]byte("k"), []byte("v"))
	if err := db.Write(batch); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := db.Write(batch); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("second Write: err = %v, want ErrInvalidArgument", err)
	}
}

// TestWriteBatchDeferredErrors tests that recording errors surface when
// the batch is written, not when recorded.
func TestWriteBatchDeferredErrors(t *testing.T) {
	db := newTestDB(t)

	batch := NewWriteBatch()
	batch.Put(nil, []byte("v"))
	batch.Put([]byte("k"), []byte("v"))
	if err := db.Write(batch); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Write with empty-key record: err = %v, want ErrInvalidArgument", err)
	}
	if _, found, _ := db.Get([]byte("k")); found {
		t.Error("record after a failed one was applied")
	}

	ttlBatch := NewWriteBatch()
	ttlBatch.PutWithOptions([]byte("k"), []byte("v"), &PutOptions{TTL: -time.Second})
	if err := db.Write(ttlBatch); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Write with negative TTL: err = %v, want ErrInvalidArgument", err)
	}
}

// TestWriteNilBatch tests that writing a nil batch is invalid.
func TestWriteNilBatch(t *testing.T) {
	db := newTestDB(t)

	if err := db.Write(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Write(nil): err = %v, want ErrInvalidArgument", err)
	}
}

// TestWriteEmptyBatch tests that an empty batch is a no-op.
func TestWriteEmptyBatch(t *testing.T) {
	db := newTestDB(t)

	if err := db.Write(NewWriteBatch()); err != nil {
		t.Errorf("Write of empty batch failed: %v", err)
	}
}

// TestWriteBatchLen tests the operation count.
func TestWriteBatchLen(t *testing.T) {
	batch := NewWriteBatch()
	if batch.Len() != 0 {
		t.Errorf("Len = %d, want 0", batch.Len())
	}
	batch.Put([]byte("a"), []byte("1"))
	batch.Delete([]byte("b"))
	if batch.Len() != 2 {
		t.Errorf("Len = %d, want 2", batch.Len())
	}
}
