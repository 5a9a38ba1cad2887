// Package memengine is the in-memory reference implementation of the engine
// boundary.
//
// It implements the boundary semantics — key ordering, sequence-pinned
// snapshots, snapshot and serializable transaction isolation, record TTL,
// memory/remote durability tiers, manifest and checkpoint metadata, and
// garbage collection — without any of the physical formats of a real engine.
// It backs the test harness and serves as the default engine when no
// object-store URL is configured.
//
// Stores are keyed by (path, URL) within one Engine value, so a Database,
// Reader, and Admin opened on the same location through the same Engine
// observe the same state.
package memengine

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/compression"
)

// Config tunes the reference engine.
type Config struct {
	// Compression selects the codec used when staging durable values.
	Compression compression.Type
}

// DefaultConfig returns the default engine configuration (Snappy staging).
func DefaultConfig() Config {
	return Config{Compression: compression.Snappy}
}

// Engine is an in-memory implementation of engine.Engine.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	stores map[string]*store
}

// New creates an engine with the default configuration.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an engine with the given configuration.
func NewWithConfig(cfg Config) *Engine {
	if !cfg.Compression.IsSupported() {
		cfg.Compression = compression.Snappy
	}
	return &Engine{
		cfg:    cfg,
		stores: make(map[string]*store),
	}
}

var (
	sharedEngine *Engine
	sharedOnce   sync.Once
)

// Shared returns the process-wide default engine, creating it on first use.
// Handles opened without an explicit engine all resolve through it, so a
// Database and an Admin opened on the same path cooperate by default.
func Shared() *Engine {
	sharedOnce.Do(func() {
		sharedEngine = New()
	})
	return sharedEngine
}

// supported object-store URL schemes; credentials are the provider's concern
// and never inspected here.
var urlSchemes = []string{"file", "s3", "az", "gs", "memory"}

func validateURL(url string) error {
	if url == "" {
		return nil
	}
	i := strings.Index(url, "://")
	if i <= 0 {
		return engine.Errf(engine.CodeInvalid, "memengine: malformed object store URL %q", url)
	}
	scheme := url[:i]
	for _, s := range urlSchemes {
		if scheme == s {
			return nil
		}
	}
	return engine.Errf(engine.CodeInvalid, "memengine: unsupported object store scheme %q", scheme)
}

// getStore returns the store for (path, url), creating it when create is
// true. With create false it fails CodeData for an unknown location.
func (e *Engine) getStore(path, url string, create bool) (*store, error) {
	if path == "" {
		return nil, engine.Errf(engine.CodeInvalid, "memengine: path cannot be empty")
	}
	if err := validateURL(url); err != nil {
		return nil, err
	}
	key := path + "\x00" + url
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stores[key]
	if !ok {
		if !create {
			return nil, engine.Errf(engine.CodeData, "memengine: no manifest found at %q", path)
		}
		s = newStore(e.cfg.Compression)
		e.stores[key] = s
	}
	return s, nil
}

// Open implements engine.Engine.
func (e *Engine) Open(req engine.OpenRequest) (engine.DB, error) {
	s, err := e.getStore(req.Path, req.URL, true)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.bootstrapLocked(time.Now())
	s.mu.Unlock()
	return &memDB{store: s}, nil
}

// OpenReader implements engine.Engine.
func (e *Engine) OpenReader(req engine.OpenReaderRequest) (engine.Reader, error) {
	s, err := e.getStore(req.Path, req.URL, false)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.manifests) == 0 {
		return nil, engine.Errf(engine.CodeData, "memengine: no manifest found at %q", req.Path)
	}

	r := &memReader{store: s}
	if req.Checkpoint != nil {
		cp, ok := s.checkpoints[*req.Checkpoint]
		if !ok {
			return nil, engine.Errf(engine.CodeData, "memengine: checkpoint %s not found", *req.Checkpoint)
		}
		m, ok := s.manifestByIDLocked(cp.ManifestID)
		if !ok {
			return nil, engine.Errf(engine.CodeData, "memengine: manifest %d for checkpoint %s not found", cp.ManifestID, cp.ID)
		}
		r.pinSeq = m.Sequence
		r.pinned = true
	}
	return r, nil
}

// OpenAdmin implements engine.Engine.
func (e *Engine) OpenAdmin(req engine.OpenAdminRequest) (engine.Admin, error) {
	s, err := e.getStore(req.Path, req.URL, true)
	if err != nil {
		return nil, err
	}
	return &memAdmin{store: s}, nil
}

// memDB is the engine-side database object.
type memDB struct {
	store  *store
	closed atomic.Bool
}

func (d *memDB) check() error {
	if d.closed.Load() {
		return engine.Errf(engine.CodeClosed, "memengine: database is closed")
	}
	return nil
}

func (d *memDB) Get(key []byte, req engine.ReadRequest) ([]byte, bool, error) {
	if err := d.check(); err != nil {
		return nil, false, err
	}
	return d.store.get(key, 0, req)
}

func (d *memDB) Put(key, value []byte, ttl *time.Duration, w engine.WriteRequest) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.store.apply([]engine.BatchRecord{{
		Kind:  engine.RecordPut,
		Key:   key,
		Value: value,
		TTL:   ttl,
	}}, w)
}

func (d *memDB) Delete(key []byte, w engine.WriteRequest) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.store.apply([]engine.BatchRecord{{
		Kind: engine.RecordDelete,
		Key:  key,
	}}, w)
}

func (d *memDB) Scan(req engine.ScanRequest) (engine.Iterator, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	d.store.mu.RLock()
	atSeq := d.store.seq
	d.store.mu.RUnlock()
	return newIterator(d.store, req, atSeq), nil
}

func (d *memDB) Write(records []engine.BatchRecord, w engine.WriteRequest) error {
	if err := d.check(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return d.store.apply(records, w)
}

func (d *memDB) Begin(iso engine.Isolation) (engine.Txn, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	return newTxn(d.store, iso), nil
}

func (d *memDB) Snapshot() (engine.Snapshot, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	d.store.mu.RLock()
	seq := d.store.seq
	d.store.mu.RUnlock()
	d.store.pin(seq)
	return &memSnap{store: d.store, seq: seq}, nil
}

func (d *memDB) Flush() error {
	if err := d.check(); err != nil {
		return err
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return d.store.flushLocked(time.Now())
}

func (d *memDB) Close() error {
	d.closed.Store(true)
	return nil
}

// memReader is the engine-side read-only object. When pinned it evaluates
// every read at the checkpoint's manifest sequence; otherwise it follows the
// durable tier.
type memReader struct {
	store  *store
	pinSeq uint64
	pinned bool
	closed atomic.Bool
}

func (r *memReader) check() error {
	if r.closed.Load() {
		return engine.Errf(engine.CodeClosed, "memengine: reader is closed")
	}
	return nil
}

func (r *memReader) at() uint64 {
	if r.pinned {
		return r.pinSeq
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.durableSeq
}

func (r *memReader) Get(key []byte, req engine.ReadRequest) ([]byte, bool, error) {
	if err := r.check(); err != nil {
		return nil, false, err
	}
	seq := r.at()
	if seq == 0 {
		return nil, false, nil
	}
	return r.store.get(key, seq, req)
}

func (r *memReader) Scan(req engine.ScanRequest) (engine.Iterator, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	seq := r.at()
	if seq == 0 {
		return newEmptyIterator(), nil
	}
	return newIterator(r.store, req, seq), nil
}

func (r *memReader) Close() error {
	r.closed.Store(true)
	return nil
}

// memSnap is the engine-side point-in-time view.
type memSnap struct {
	store  *store
	seq    uint64
	closed atomic.Bool
}

func (s *memSnap) check() error {
	if s.closed.Load() {
		return engine.Errf(engine.CodeClosed, "memengine: snapshot is closed")
	}
	return nil
}

func (s *memSnap) Get(key []byte, req engine.ReadRequest) ([]byte, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	return s.store.get(key, s.seq, req)
}

func (s *memSnap) Scan(req engine.ScanRequest) (engine.Iterator, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return newIterator(s.store, req, s.seq), nil
}

func (s *memSnap) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.store.unpin(s.seq)
	}
	return nil
}

var _ engine.Engine = (*Engine)(nil)
