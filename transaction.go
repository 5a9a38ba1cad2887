package slatekv

import (
	"sync"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/bridge"
	"github.com/slatekv/slatekv/internal/logging"
)

// Transaction is an optimistic transaction. Reads observe a fixed view of
// the store taken at BeginTransaction; writes are buffered and become
// visible only on Commit. Commit fails with a TransactionConflict error
// when a concurrent commit invalidated this transaction, in which case the
// whole transaction may be retried. A Transaction ends after the first
// Commit or Rollback. Operations on a finished transaction fail with a
// Closed error, except Rollback, which always succeeds as a no-op.
type Transaction struct {
	mu   sync.Mutex
	txn  engine.Txn
	done bool
	log  logging.Logger
}

func newTransaction(txn engine.Txn, log logging.Logger) *Transaction {
	return &Transaction{txn: txn, log: log}
}

func (t *Transaction) check() error {
	if t.done {
		return closedf("slatekv: transaction has already been committed or rolled back")
	}
	return nil
}

// Get returns the value under key as seen by this transaction: its own
// buffered writes first, then the transaction's read view.
func (t *Transaction) Get(key []byte) (value []byte, found bool, err error) {
	return t.GetWithOptions(key, nil)
}

// GetWithOptions is Get with explicit read options.
func (t *Transaction) GetWithOptions(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	req, err := opts.readRequest()
	if err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(); err != nil {
		return nil, false, err
	}
	type hit struct {
		value []byte
		found bool
	}
	h, err := bridge.Do(bridge.Default(), func() (hit, error) {
		v, ok, err := t.txn.Get(key, req)
		return hit{v, ok}, err
	})
	if err != nil {
		return nil, false, mapEngineError(err)
	}
	return h.value, h.found, nil
}

// Put buffers storing value under key.
func (t *Transaction) Put(key, value []byte) error {
	return t.PutWithOptions(key, value, nil)
}

// PutWithOptions is Put with explicit put options.
func (t *Transaction) PutWithOptions(key, value []byte, opts *PutOptions) error {
	if err := validateKey(key); err != nil {
		return err
	}
	ttl, err := opts.ttl()
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(); err != nil {
		return err
	}
	err = bridge.DoErr(bridge.Default(), func() error {
		return t.txn.Put(key, value, ttl)
	})
	return mapEngineError(err)
}

// Delete buffers removing key.
func (t *Transaction) Delete(key []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(); err != nil {
		return err
	}
	err := bridge.DoErr(bridge.Default(), func() error {
		return t.txn.Delete(key)
	})
	return mapEngineError(err)
}

// Scan returns an iterator over [start, end) merging the transaction's
// buffered writes over its read view.
func (t *Transaction) Scan(start, end []byte) (*Iterator, error) {
	return t.ScanWithOptions(start, end, nil)
}

// ScanWithOptions is Scan with explicit scan options.
func (t *Transaction) ScanWithOptions(start, end []byte, opts *ScanOptions) (*Iterator, error) {
	req, err := opts.scanRequest(start, end)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(); err != nil {
		return nil, err
	}
	it, err := bridge.Do(bridge.Default(), func() (engine.Iterator, error) {
		return t.txn.Scan(req)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return newIterator(it), nil
}

// Commit validates the transaction against concurrent commits and, on
// success, atomically applies its buffered writes.
func (t *Transaction) Commit() error {
	return t.CommitWithOptions(nil)
}

// CommitWithOptions is Commit with explicit write options.
func (t *Transaction) CommitWithOptions(wopts *WriteOptions) error {
	req := wopts.writeRequest()
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	err := bridge.DoErr(bridge.Default(), func() error {
		return t.txn.Commit(req)
	})
	if err != nil {
		t.log.Debugf(logging.NSTxn+"commit failed: %v", err)
		return mapEngineError(err)
	}
	return nil
}

// Rollback discards the transaction's buffered writes. Unlike the other
// transaction operations, rolling back a finished transaction is not an
// error: it returns nil as a no-op, so cleanup paths can call it
// unconditionally.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	err := bridge.DoErr(bridge.Default(), func() error {
		return t.txn.Rollback()
	})
	return mapEngineError(err)
}
