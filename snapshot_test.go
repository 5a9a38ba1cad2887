package slatekv

// snapshot_test.go implements tests for point-in-time snapshots.

import (
	"bytes"
	"errors"
	"testing"
)

// TestSnapshotFrozenView tests that a snapshot never observes writes made
// after it was taken.
func TestSnapshotFrozenView(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	snap, err := db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	defer snap.Close()

	if err := db.Put([]byte("k"), []byte("new")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := db.Put([]byte("k2"), []byte("later")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, found, err := snap.Get([]byte("k"))
	if err != nil || !found || !bytes.Equal(value, []byte("old")) {
		t.Errorf("snap Get = %q found = %v err = %v, want %q true nil", value, found, err, "old")
	}
	if _, found, _ := snap.Get([]byte("k2")); found {
		t.Error("snapshot observed a later write")
	}

	// The live handle sees the new state.
	value, _, err = db.Get([]byte("k"))
	if err != nil || !bytes.Equal(value, []byte("new")) {
		t.Errorf("db Get = %q err = %v, want %q nil", value, err, "new")
	}
}

// TestSnapshotScan tests that snapshot scans reflect the snapshot's view.
func TestSnapshotScan(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []string{"a", "b"} {
		if err := db.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	snap, err := db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	defer snap.Close()

	if err := db.Put([]byte("c"), []byte("c")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := db.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	it, err := snap.Scan(nil, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	entries, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	want := []string{"a", "b"}
	if len(entries) != len(want) {
		t.Fatalf("Scan returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if string(e.Key) != want[i] {
			t.Errorf("entry %d: key = %q, want %q", i, e.Key, want[i])
		}
	}
}

// TestClosedSnapshot tests that a closed snapshot rejects reads and that
// Close is idempotent.
func TestClosedSnapshot(t *testing.T) {
	db := newTestDB(t)

	snap, err := db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := snap.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, _, err := snap.Get([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: err = %v, want ErrClosed", err)
	}
	if _, err := snap.Scan(nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Scan after Close: err = %v, want ErrClosed", err)
	}
}

// TestViewClosesSnapshot tests the View combinator's open-run-close
// contract.
func TestViewClosesSnapshot(t *testing.T) {
	db := newTestDB(t)

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	var leaked *Snapshot
	err := db.View(func(snap *Snapshot) error {
		leaked = snap
		_, found, err := snap.Get([]byte("k"))
		if err != nil {
			return err
		}
		if !found {
			return errors.New("key missing in view")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if _, _, err := leaked.Get([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("snapshot usable after View returned: err = %v, want ErrClosed", err)
	}
}

// TestViewClosesOnPanic tests that View releases the snapshot even when
// fn panics, so its version pin does not outlive the call.
func TestViewClosesOnPanic(t *testing.T) {
	db := newTestDB(t)

	var leaked *Snapshot
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic did not propagate out of View")
			}
		}()
		_ = db.View(func(snap *Snapshot) error {
			leaked = snap
			panic("boom")
		})
	}()
	if !leaked.Closed() {
		t.Error("snapshot still open after panicking fn")
	}
}

// TestSnapshotClosed tests the Closed accessor across the snapshot's
// lifecycle.
func TestSnapshotClosed(t *testing.T) {
	db := newTestDB(t)

	snap, err := db.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Closed() {
		t.Error("Closed() = true before Close")
	}
	if err := snap.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !snap.Closed() {
		t.Error("Closed() = false after Close")
	}
}
