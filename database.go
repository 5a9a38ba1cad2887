package slatekv

import (
	"sync"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/engine/memengine"
	"github.com/slatekv/slatekv/internal/bridge"
	"github.com/slatekv/slatekv/internal/logging"
)

// Database is a read-write handle onto a store. It is safe for concurrent
// use by multiple goroutines. A Database holds engine resources until Close
// is called; Close is idempotent and every operation after it fails with a
// Closed error.
type Database struct {
	mu     sync.RWMutex
	closed bool

	eng engine.Engine
	db  engine.DB
	log logging.Logger
}

// Open opens (creating if absent) the store at path and returns a
// read-write handle to it. A nil opts selects the defaults: the shared
// in-memory engine, an empty URL, and a stderr logger.
func Open(path string, opts *Options) (*Database, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	eng := opts.Engine
	if eng == nil {
		eng = memengine.Shared()
	}
	log := logging.OrDefault(opts.Logger)
	log.Debugf(logging.NSDB+"opening path=%q url=%q", path, opts.URL)
	db, err := bridge.Do(bridge.Default(), func() (engine.DB, error) {
		return eng.Open(engine.OpenRequest{Path: path, URL: opts.URL})
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &Database{eng: eng, db: db, log: log}, nil
}

// check returns a Closed error when the handle has been closed.
// Callers hold at least a read lock.
func (d *Database) check() error {
	if d.closed {
		return closedf("slatekv: database has been closed")
	}
	return nil
}

// Get returns the value stored under key. The found result reports whether
// the key was present; absence is not an error.
func (d *Database) Get(key []byte) (value []byte, found bool, err error) {
	return d.GetWithOptions(key, nil)
}

// GetWithOptions is Get with explicit read options.
func (d *Database) GetWithOptions(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	req, err := opts.readRequest()
	if err != nil {
		return nil, false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return nil, false, err
	}
	type hit struct {
		value []byte
		found bool
	}
	h, err := bridge.Do(bridge.Default(), func() (hit, error) {
		v, ok, err := d.db.Get(key, req)
		return hit{v, ok}, err
	})
	if err != nil {
		return nil, false, mapEngineError(err)
	}
	return h.value, h.found, nil
}

// Put stores value under key, replacing any existing value.
func (d *Database) Put(key, value []byte) error {
	return d.PutWithOptions(key, value, nil, nil)
}

// PutWithOptions is Put with explicit put and write options.
func (d *Database) PutWithOptions(key, value []byte, popts *PutOptions, wopts *WriteOptions) error {
	if err := validateKey(key); err != nil {
		return err
	}
	ttl, err := popts.ttl()
	if err != nil {
		return err
	}
	req := wopts.writeRequest()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return err
	}
	err = bridge.DoErr(bridge.Default(), func() error {
		return d.db.Put(key, value, ttl, req)
	})
	return mapEngineError(err)
}

// Delete removes key from the store. Deleting an absent key succeeds.
func (d *Database) Delete(key []byte) error {
	return d.DeleteWithOptions(key, nil)
}

// DeleteWithOptions is Delete with explicit write options.
func (d *Database) DeleteWithOptions(key []byte, wopts *WriteOptions) error {
	if err := validateKey(key); err != nil {
		return err
	}
	req := wopts.writeRequest()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return err
	}
	err := bridge.DoErr(bridge.Default(), func() error {
		return d.db.Delete(key, req)
	})
	return mapEngineError(err)
}

// Scan returns an iterator over the half-open key range [start, end) in
// ascending key order. An empty start scans from the beginning; a nil end
// scans to the end of the keyspace. The caller must Close the iterator.
func (d *Database) Scan(start, end []byte) (*Iterator, error) {
	return d.ScanWithOptions(start, end, nil)
}

// ScanWithOptions is Scan with explicit scan options.
func (d *Database) ScanWithOptions(start, end []byte, opts *ScanOptions) (*Iterator, error) {
	req, err := opts.scanRequest(start, end)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	it, err := bridge.Do(bridge.Default(), func() (engine.Iterator, error) {
		return d.db.Scan(req)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return newIterator(it), nil
}

// Write applies a batch atomically: either every record in the batch
// becomes visible, or none does. The batch is consumed by the call and
// cannot be reused.
func (d *Database) Write(batch *WriteBatch) error {
	return d.WriteWithOptions(batch, nil)
}

// WriteWithOptions is Write with explicit write options.
func (d *Database) WriteWithOptions(batch *WriteBatch, wopts *WriteOptions) error {
	records, err := batch.take()
	if err != nil {
		return err
	}
	req := wopts.writeRequest()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return err
	}
	err = bridge.DoErr(bridge.Default(), func() error {
		return d.db.Write(records, req)
	})
	return mapEngineError(err)
}

// BeginTransaction starts a transaction at the given isolation level.
func (d *Database) BeginTransaction(level IsolationLevel) (*Transaction, error) {
	iso, err := level.toEngine()
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	txn, err := bridge.Do(bridge.Default(), func() (engine.Txn, error) {
		return d.db.Begin(iso)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	d.log.Debugf(logging.NSTxn+"begin isolation=%s", level)
	return newTransaction(txn, d.log), nil
}

// Snapshot captures a consistent point-in-time read view of the store.
// The caller must Close the snapshot to release its pinned state.
func (d *Database) Snapshot() (*Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return nil, err
	}
	snap, err := bridge.Do(bridge.Default(), func() (engine.Snapshot, error) {
		return d.db.Snapshot()
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	d.log.Debugf(logging.NSSnapshot + "created")
	return newSnapshot(snap), nil
}

// Flush forces memory-resident state to durable storage.
func (d *Database) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.check(); err != nil {
		return err
	}
	err := bridge.DoErr(bridge.Default(), func() error {
		return d.db.Flush()
	})
	return mapEngineError(err)
}

// Close releases the handle's engine resources. Closing an already closed
// Database is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Debugf(logging.NSDB + "closing")
	err := bridge.DoErr(bridge.Default(), func() error {
		return d.db.Close()
	})
	return mapEngineError(err)
}
