package slatekv

import (
	"github.com/slatekv/slatekv/engine"
)

// WriteBatch accumulates puts and deletes for atomic application via
// Database.Write. A batch records operations in order; later operations
// on the same key win. A batch is consumed by Write and cannot be
// reused afterward. WriteBatch is not safe for concurrent use.
type WriteBatch struct {
	records  []engine.BatchRecord
	consumed bool
	err      error
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put records storing value under key.
func (b *WriteBatch) Put(key, value []byte) {
	b.PutWithOptions(key, value, nil)
}

// PutWithOptions is Put with explicit per-record options.
func (b *WriteBatch) PutWithOptions(key, value []byte, opts *PutOptions) {
	if b.err != nil {
		return
	}
	if b.consumed {
		b.err = invalidArgf("slatekv: write batch has already been committed")
		return
	}
	if err := validateKey(key); err != nil {
		b.err = err
		return
	}
	ttl, err := opts.ttl()
	if err != nil {
		b.err = err
		return
	}
	b.records = append(b.records, engine.BatchRecord{
		Kind:  engine.RecordPut,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

// Delete records removing key.
func (b *WriteBatch) Delete(key []byte) {
	if b.err != nil {
		return
	}
	if b.consumed {
		b.err = invalidArgf("slatekv: write batch has already been committed")
		return
	}
	if err := validateKey(key); err != nil {
		b.err = err
		return
	}
	b.records = append(b.records, engine.BatchRecord{
		Kind: engine.RecordDelete,
		Key:  key,
	})
}

// Len returns the number of recorded operations.
func (b *WriteBatch) Len() int {
	return len(b.records)
}

// take consumes the batch, surfacing any deferred recording error.
func (b *WriteBatch) take() ([]engine.BatchRecord, error) {
	if b == nil {
		return nil, invalidArgf("slatekv: write batch cannot be nil")
	}
	if b.err != nil {
		return nil, b.err
	}
	if b.consumed {
		return nil, invalidArgf("slatekv: write batch has already been committed")
	}
	b.consumed = true
	records := b.records
	b.records = nil
	return records, nil
}
