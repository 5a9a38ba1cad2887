package slatekv

import (
	"sync"

	"github.com/google/uuid"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/engine/memengine"
	"github.com/slatekv/slatekv/internal/bridge"
	"github.com/slatekv/slatekv/internal/logging"
)

// Reader is a read-only handle onto an existing store. A Reader either
// follows the store's durable state or is pinned to a checkpoint; it never
// observes memory-resident writes of a concurrent writer. The caller must
// Close it; Close is idempotent.
type Reader struct {
	mu     sync.RWMutex
	closed bool

	rd  engine.Reader
	log logging.Logger
}

// OpenReader opens a read-only handle onto the store at path. The store
// must already exist: opening a reader never creates state. A nil opts
// selects the defaults.
func OpenReader(path string, opts *ReaderOptions) (*Reader, error) {
	if opts == nil {
		opts = DefaultReaderOptions()
	}
	var checkpoint *uuid.UUID
	if opts.CheckpointID != "" {
		id, err := uuid.Parse(opts.CheckpointID)
		if err != nil {
			return nil, invalidArgf("slatekv: invalid checkpoint id %q: %v", opts.CheckpointID, err)
		}
		checkpoint = &id
	}
	if opts.ManifestPollInterval < 0 {
		return nil, invalidArgf("slatekv: manifest poll interval cannot be negative")
	}
	if opts.CheckpointLifetime < 0 {
		return nil, invalidArgf("slatekv: checkpoint lifetime cannot be negative")
	}
	eng := opts.Engine
	if eng == nil {
		eng = memengine.Shared()
	}
	log := logging.OrDefault(opts.Logger)
	log.Debugf(logging.NSReader+"opening path=%q url=%q checkpoint=%q", path, opts.URL, opts.CheckpointID)
	rd, err := bridge.Do(bridge.Default(), func() (engine.Reader, error) {
		return eng.OpenReader(engine.OpenReaderRequest{
			Path:                 path,
			URL:                  opts.URL,
			Checkpoint:           checkpoint,
			ManifestPollInterval: opts.ManifestPollInterval,
			CheckpointLifetime:   opts.CheckpointLifetime,
			MaxMemtableBytes:     opts.MaxMemtableBytes,
		})
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &Reader{rd: rd, log: log}, nil
}

func (r *Reader) check() error {
	if r.closed {
		return closedf("slatekv: reader has been closed")
	}
	return nil
}

// Get returns the value under key as of the reader's current view.
func (r *Reader) Get(key []byte) (value []byte, found bool, err error) {
	return r.GetWithOptions(key, nil)
}

// GetWithOptions is Get with explicit read options.
func (r *Reader) GetWithOptions(key []byte, opts *ReadOptions) (value []byte, found bool, err error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	req, err := opts.readRequest()
	if err != nil {
		return nil, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, false, err
	}
	type hit struct {
		value []byte
		found bool
	}
	h, err := bridge.Do(bridge.Default(), func() (hit, error) {
		v, ok, err := r.rd.Get(key, req)
		return hit{v, ok}, err
	})
	if err != nil {
		return nil, false, mapEngineError(err)
	}
	return h.value, h.found, nil
}

// Scan returns an iterator over [start, end) as of the reader's current
// view.
func (r *Reader) Scan(start, end []byte) (*Iterator, error) {
	return r.ScanWithOptions(start, end, nil)
}

// ScanWithOptions is Scan with explicit scan options.
func (r *Reader) ScanWithOptions(start, end []byte, opts *ScanOptions) (*Iterator, error) {
	req, err := opts.scanRequest(start, end)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	it, err := bridge.Do(bridge.Default(), func() (engine.Iterator, error) {
		return r.rd.Scan(req)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return newIterator(it), nil
}

// Close releases the reader. Closing an already closed Reader is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.log.Debugf(logging.NSReader + "closing")
	err := bridge.DoErr(bridge.Default(), func() error {
		return r.rd.Close()
	})
	return mapEngineError(err)
}
