package slatekv

import (
	"iter"
	"sync"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/bridge"
)

// Entry is a key-value pair yielded by an Iterator.
type Entry struct {
	Key   []byte
	Value []byte
}

// Iterator is a forward cursor over a key range, yielding entries in
// ascending key order. An Iterator is not safe for concurrent use. The
// caller must Close it; Close is idempotent, and any use after Close
// fails.
type Iterator struct {
	mu     sync.Mutex
	it     engine.Iterator
	closed bool
	err    error
}

func newIterator(it engine.Iterator) *Iterator {
	return &Iterator{it: it}
}

// Next advances the cursor and returns the next entry, or nil when the
// range is exhausted.
func (i *Iterator) Next() (*Entry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, internalf("slatekv: iterator has been closed")
	}
	type step struct {
		key, value []byte
		found      bool
	}
	s, err := bridge.Do(bridge.Default(), func() (step, error) {
		k, v, ok, err := i.it.Next()
		return step{k, v, ok}, err
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	if !s.found {
		return nil, nil
	}
	return &Entry{Key: s.key, Value: s.value}, nil
}

// Seek repositions the cursor to the first key at or after target that
// lies within the iterator's range. The target must be non-empty.
// Seeking never moves the cursor
// outside the range the iterator was created with.
func (i *Iterator) Seek(target []byte) error {
	if err := validateKey(target); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return internalf("slatekv: iterator has been closed")
	}
	err := bridge.DoErr(bridge.Default(), func() error {
		return i.it.Seek(target)
	})
	return mapEngineError(err)
}

// Close releases the cursor. Closing an already closed Iterator is a
// no-op.
func (i *Iterator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	err := bridge.DoErr(bridge.Default(), func() error {
		return i.it.Close()
	})
	return mapEngineError(err)
}

// Entries returns a range-over-func sequence of the remaining entries.
// Iteration stops at the end of the range or on the first error; after
// the loop, Err reports whether an error ended it. Entries does not
// close the iterator.
func (i *Iterator) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for {
			e, err := i.Next()
			if err != nil {
				i.mu.Lock()
				i.err = err
				i.mu.Unlock()
				return
			}
			if e == nil {
				return
			}
			if !yield(*e) {
				return
			}
		}
	}
}

// Err returns the error that terminated the most recent Entries loop,
// if any.
func (i *Iterator) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Collect drains the iterator into a slice and closes it.
func (i *Iterator) Collect() ([]Entry, error) {
	defer i.Close()
	var out []Entry
	for {
		e, err := i.Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			return out, nil
		}
		out = append(out, *e)
	}
}
