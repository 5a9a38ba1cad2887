package slatekv

import (
	"sync"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/bridge"
)

// Snapshot is a consistent point-in-time read view of a store. Reads
// through a Snapshot never observe writes made after it was taken. The
// caller must Close it to release the pinned state; Close is idempotent.
type Snapshot struct {
	mu     sync.Mutex
	snap   engine.Snapshot
	closed bool
}

func newSnapshot(snap engine.Snapshot) *Snapshot {
	return &Snapshot{snap: snap}
}

func (s *Snapshot) check() error {
	if s.closed {
		return closedf("slatekv: snapshot has been closed")
	}
	return nil
}

// Get returns the value under key as of the snapshot.
func (s *Snapshot) Get(key []byte) (value []byte, found bool, err error) {
	return s.GetWithOptions(key, nil)
}

// GetWithOptions is Get with explicit read options.
func (s *Snapshot) GetWithOptions(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	req, err := opts.readRequest()
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, false, err
	}
	type hit struct {
		value []byte
		found bool
	}
	h, err := bridge.Do(bridge.Default(), func() (hit, error) {
		v, ok, err := s.snap.Get(key, req)
		return hit{v, ok}, err
	})
	if err != nil {
		return nil, false, mapEngineError(err)
	}
	return h.value, h.found, nil
}

// Scan returns an iterator over [start, end) as of the snapshot.
func (s *Snapshot) Scan(start, end []byte) (*Iterator, error) {
	return s.ScanWithOptions(start, end, nil)
}

// ScanWithOptions is Scan with explicit scan options.
func (s *Snapshot) ScanWithOptions(start, end []byte, opts *ScanOptions) (*Iterator, error) {
	req, err := opts.scanRequest(start, end)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	it, err := bridge.Do(bridge.Default(), func() (engine.Iterator, error) {
		return s.snap.Scan(req)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return newIterator(it), nil
}

// Close releases the snapshot. Closing an already closed Snapshot is a
// no-op.
// Closed reports whether the snapshot has been closed.
func (s *Snapshot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Snapshot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := bridge.DoErr(bridge.Default(), func() error {
		return s.snap.Close()
	})
	return mapEngineError(err)
}
