package memengine

// iter.go implements the engine-side cursor.
//
// The cursor is lazy: each advance resolves the next visible key under the
// store's read lock, so it never materializes the range. Visibility is
// pinned to the sequence captured when the scan was created.

import (
	"bytes"
	"sync"

	"github.com/slatekv/slatekv/engine"
)

type memIter struct {
	store *store
	req   engine.ReadRequest
	start []byte
	end   []byte
	atSeq uint64

	mu sync.Mutex
	// lower is the inclusive lower bound of the next advance.
	lower  []byte
	closed bool

	// overlay merges uncommitted transaction writes into the view; nil for
	// non-transactional scans.
	overlay *txnOverlay
}

func newIterator(s *store, req engine.ScanRequest, atSeq uint64) *memIter {
	return &memIter{
		store: s,
		req:   engine.ReadRequest{Durability: req.Durability, Dirty: req.Dirty},
		start: append([]byte(nil), req.Start...),
		end:   append([]byte(nil), req.End...),
		atSeq: atSeq,
		lower: append([]byte(nil), req.Start...),
	}
}

func (it *memIter) Next() (key, value []byte, found bool, err error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil, false, engine.Errf(engine.CodeClosed, "memengine: iterator is closed")
	}

	for {
		k, v, ok, err := it.store.nextVisible(it.lower, it.end, it.atSeq, it.req)
		if err != nil {
			return nil, nil, false, err
		}

		var tomb bool
		if it.overlay != nil {
			k, v, ok, tomb = it.overlay.merge(it.lower, it.end, k, v, ok)
		}

		if !ok {
			return nil, nil, false, nil
		}

		// Advance past the returned key: its successor is the key with a
		// zero byte appended.
		it.lower = append(append([]byte(nil), k...), 0)

		if tomb {
			// Overlay tombstone shadowed the store's entry; keep going.
			continue
		}
		return k, v, true, nil
	}
}

func (it *memIter) Seek(target []byte) error {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return engine.Errf(engine.CodeClosed, "memengine: iterator is closed")
	}
	if bytes.Compare(target, it.start) < 0 {
		// Seeking below the range start clamps to the range.
		target = it.start
	}
	it.lower = append([]byte(nil), target...)
	return nil
}

func (it *memIter) Close() error {
	it.mu.Lock()
	it.closed = true
	it.mu.Unlock()
	return nil
}

// emptyIter is a drained cursor, used by readers over stores that have
// nothing durable yet.
type emptyIter struct {
	mu     sync.Mutex
	closed bool
}

func newEmptyIterator() *emptyIter { return &emptyIter{} }

func (it *emptyIter) Next() ([]byte, []byte, bool, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return nil, nil, false, engine.Errf(engine.CodeClosed, "memengine: iterator is closed")
	}
	return nil, nil, false, nil
}

func (it *emptyIter) Seek(target []byte) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return engine.Errf(engine.CodeClosed, "memengine: iterator is closed")
	}
	return nil
}

func (it *emptyIter) Close() error {
	it.mu.Lock()
	it.closed = true
	it.mu.Unlock()
	return nil
}
