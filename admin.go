package slatekv

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/engine/memengine"
	"github.com/slatekv/slatekv/internal/bridge"
	"github.com/slatekv/slatekv/internal/logging"
)

// Manifest is the metadata of one manifest version.
type Manifest = engine.ManifestInfo

// Checkpoint is the metadata of one checkpoint.
type Checkpoint = engine.CheckpointInfo

// CheckpointResult identifies a newly created checkpoint.
type CheckpointResult struct {
	// ID is the checkpoint's UUID in canonical string form.
	ID string
	// ManifestID is the manifest version the checkpoint pins.
	ManifestID uint64
}

// Admin is a control-plane handle onto a store: manifest inspection,
// checkpoint lifecycle, and garbage collection. It performs no data-plane
// reads or writes. The caller must Close it; Close is idempotent.
type Admin struct {
	mu     sync.RWMutex
	closed bool

	adm engine.Admin
	log logging.Logger
}

// OpenAdmin opens a control-plane handle for the store at path. A nil
// opts selects the defaults.
func OpenAdmin(path string, opts *AdminOptions) (*Admin, error) {
	if opts == nil {
		opts = DefaultAdminOptions()
	}
	eng := opts.Engine
	if eng == nil {
		eng = memengine.Shared()
	}
	log := logging.OrDefault(opts.Logger)
	log.Debugf(logging.NSAdmin+"opening path=%q url=%q", path, opts.URL)
	adm, err := bridge.Do(bridge.Default(), func() (engine.Admin, error) {
		return eng.OpenAdmin(engine.OpenAdminRequest{Path: path, URL: opts.URL})
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &Admin{adm: adm, log: log}, nil
}

func (a *Admin) check() error {
	if a.closed {
		return closedf("slatekv: admin has been closed")
	}
	return nil
}

// ReadManifest returns the manifest with the given id, or nil when no
// such manifest exists.
func (a *Admin) ReadManifest(id uint64) (*Manifest, error) {
	return a.readManifest(id, false)
}

// ReadLatestManifest returns the store's most recent manifest, or nil
// when the store has none.
func (a *Admin) ReadLatestManifest() (*Manifest, error) {
	return a.readManifest(0, true)
}

func (a *Admin) readManifest(id uint64, latest bool) (*Manifest, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return nil, err
	}
	m, err := bridge.Do(bridge.Default(), func() (*engine.ManifestInfo, error) {
		return a.adm.ReadManifest(id, latest)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return m, nil
}

// ListManifests lists manifests with start <= ID < end, in ascending ID
// order. end == 0 means unbounded.
func (a *Admin) ListManifests(start, end uint64) ([]Manifest, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return nil, err
	}
	ms, err := bridge.Do(bridge.Default(), func() ([]engine.ManifestInfo, error) {
		return a.adm.ListManifests(start, end)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return ms, nil
}

// CreateCheckpoint creates a checkpoint of the store's current durable
// state, or of the source checkpoint when opts.Source is set.
func (a *Admin) CreateCheckpoint(opts *CheckpointOptions) (*CheckpointResult, error) {
	if opts == nil {
		opts = DefaultCheckpointOptions()
	}
	var spec engine.CheckpointSpec
	if opts.Lifetime < 0 {
		return nil, invalidArgf("slatekv: checkpoint lifetime cannot be negative")
	}
	if opts.Lifetime > 0 {
		d := opts.Lifetime
		spec.Lifetime = &d
	}
	if opts.Source != "" {
		src, err := uuid.Parse(opts.Source)
		if err != nil {
			return nil, invalidArgf("slatekv: invalid source checkpoint id %q: %v", opts.Source, err)
		}
		spec.Source = &src
	}
	spec.Name = opts.Name
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return nil, err
	}
	info, err := bridge.Do(bridge.Default(), func() (*engine.CheckpointInfo, error) {
		return a.adm.CreateCheckpoint(spec)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	a.log.Debugf(logging.NSCheckpoint+"created id=%s manifest=%d", info.ID, info.ManifestID)
	return &CheckpointResult{ID: info.ID.String(), ManifestID: info.ManifestID}, nil
}

// ListCheckpoints lists the store's live checkpoints. A non-empty name
// restricts the listing to checkpoints carrying that name.
func (a *Admin) ListCheckpoints(name string) ([]Checkpoint, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return nil, err
	}
	cs, err := bridge.Do(bridge.Default(), func() ([]engine.CheckpointInfo, error) {
		return a.adm.ListCheckpoints(name)
	})
	if err != nil {
		return nil, mapEngineError(err)
	}
	return cs, nil
}

// RefreshCheckpoint replaces the checkpoint's expiry: a positive lifetime
// extends it from now, zero removes the expiry entirely.
func (a *Admin) RefreshCheckpoint(id string, lifetime time.Duration) error {
	cid, err := uuid.Parse(id)
	if err != nil {
		return invalidArgf("slatekv: invalid checkpoint id %q: %v", id, err)
	}
	if lifetime < 0 {
		return invalidArgf("slatekv: checkpoint lifetime cannot be negative")
	}
	var lt *time.Duration
	if lifetime > 0 {
		lt = &lifetime
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return err
	}
	err = bridge.DoErr(bridge.Default(), func() error {
		return a.adm.RefreshCheckpoint(cid, lt)
	})
	return mapEngineError(err)
}

// DeleteCheckpoint removes the checkpoint, releasing the state it pinned.
func (a *Admin) DeleteCheckpoint(id string) error {
	cid, err := uuid.Parse(id)
	if err != nil {
		return invalidArgf("slatekv: invalid checkpoint id %q: %v", id, err)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return err
	}
	err = bridge.DoErr(bridge.Default(), func() error {
		return a.adm.DeleteCheckpoint(cid)
	})
	return mapEngineError(err)
}

// RunGC runs one garbage collection pass: expired checkpoints, manifests,
// write-ahead log segments, and compacted artifacts older than the
// configured minimum ages are removed. State referenced by a live
// checkpoint is never collected.
func (a *Admin) RunGC(opts *GCOptions) error {
	req, err := opts.gcRequest()
	if err != nil {
		return err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(); err != nil {
		return err
	}
	a.log.Debugf(logging.NSGC+"running manifest_min_age=%s wal_min_age=%s compacted_min_age=%s",
		req.ManifestMinAge, req.WALMinAge, req.CompactedMinAge)
	err = bridge.DoErr(bridge.Default(), func() error {
		return a.adm.RunGC(req)
	})
	return mapEngineError(err)
}

// Close releases the handle. Closing an already closed Admin is a no-op.
func (a *Admin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	err := bridge.DoErr(bridge.Default(), func() error {
		return a.adm.Close()
	})
	return mapEngineError(err)
}
