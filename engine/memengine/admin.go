package memengine

// admin.go implements the engine-side control plane: manifest access,
// checkpoint management, and garbage collection.

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/slatekv/slatekv/engine"
)

// Default minimum ages per artifact class when a GC request leaves them
// unset.
const (
	defaultManifestMinAge  = 24 * time.Hour
	defaultWALMinAge       = time.Minute
	defaultCompactedMinAge = time.Minute
)

type memAdmin struct {
	store  *store
	closed atomic.Bool
}

func (a *memAdmin) check() error {
	if a.closed.Load() {
		return engine.Errf(engine.CodeClosed, "memengine: admin is closed")
	}
	return nil
}

func (a *memAdmin) ReadManifest(id uint64, latest bool) (*engine.ManifestInfo, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	s := a.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m engine.ManifestInfo
	var ok bool
	if latest {
		m, ok = s.latestManifestLocked()
	} else {
		m, ok = s.manifestByIDLocked(id)
	}
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (a *memAdmin) ListManifests(start, end uint64) ([]engine.ManifestInfo, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	s := a.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []engine.ManifestInfo
	for _, m := range s.manifests {
		if m.ID < start {
			continue
		}
		if end != 0 && m.ID >= end {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *memAdmin) CreateCheckpoint(spec engine.CheckpointSpec) (*engine.CheckpointInfo, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var manifestID uint64
	if spec.Source != nil {
		src, ok := s.checkpoints[*spec.Source]
		if !ok {
			return nil, engine.Errf(engine.CodeData, "memengine: source checkpoint %s not found", *spec.Source)
		}
		manifestID = src.ManifestID
	} else {
		m, ok := s.latestManifestLocked()
		if !ok {
			m = s.appendManifestLocked(now, 0, 0)
		}
		manifestID = m.ID
	}

	info := engine.CheckpointInfo{
		ID:         uuid.New(),
		ManifestID: manifestID,
		Name:       spec.Name,
		CreateTime: now,
	}
	if spec.Lifetime != nil {
		exp := now.Add(*spec.Lifetime)
		info.ExpireTime = &exp
	}
	s.checkpoints[info.ID] = info
	return &info, nil
}

func (a *memAdmin) ListCheckpoints(name string) ([]engine.CheckpointInfo, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	s := a.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []engine.CheckpointInfo
	for _, cp := range s.checkpoints {
		if name != "" && cp.Name != name {
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}

func (a *memAdmin) RefreshCheckpoint(id uuid.UUID, lifetime *time.Duration) error {
	if err := a.check(); err != nil {
		return err
	}
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[id]
	if !ok {
		return engine.Errf(engine.CodeData, "memengine: checkpoint %s not found", id)
	}
	if lifetime != nil {
		exp := time.Now().Add(*lifetime)
		cp.ExpireTime = &exp
	} else {
		cp.ExpireTime = nil
	}
	s.checkpoints[id] = cp
	return nil
}

func (a *memAdmin) DeleteCheckpoint(id uuid.UUID) error {
	if err := a.check(); err != nil {
		return err
	}
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.checkpoints[id]; !ok {
		return engine.Errf(engine.CodeData, "memengine: checkpoint %s not found", id)
	}
	delete(s.checkpoints, id)
	return nil
}

// RunGC removes expired checkpoints, prunes old manifests not referenced by
// any live checkpoint, trims the write-ahead ledger, and compacts superseded
// record versions, each bounded by its class's minimum age.
func (a *memAdmin) RunGC(req engine.GCRequest) error {
	if err := a.check(); err != nil {
		return err
	}

	manifestMinAge := req.ManifestMinAge
	if manifestMinAge <= 0 {
		manifestMinAge = defaultManifestMinAge
	}
	walMinAge := req.WALMinAge
	if walMinAge <= 0 {
		walMinAge = defaultWALMinAge
	}
	compactedMinAge := req.CompactedMinAge
	if compactedMinAge <= 0 {
		compactedMinAge = defaultCompactedMinAge
	}

	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// Expired checkpoints go first so the manifests they pinned become
	// collectable in the same run.
	for id, cp := range s.checkpoints {
		if cp.ExpireTime != nil && now.After(*cp.ExpireTime) {
			delete(s.checkpoints, id)
		}
	}

	referenced := make(map[uint64]bool)
	for _, cp := range s.checkpoints {
		referenced[cp.ManifestID] = true
	}

	// Keep the latest manifest unconditionally.
	if n := len(s.manifests); n > 0 {
		kept := s.manifests[:0]
		for i, m := range s.manifests {
			old := now.Sub(m.CreatedAt) >= manifestMinAge
			if i == n-1 || referenced[m.ID] || !old {
				kept = append(kept, m)
			}
		}
		s.manifests = kept
	}

	// Trim durable write-ahead entries older than the class minimum.
	keptWAL := s.wal[:0]
	for _, e := range s.wal {
		if e.seq <= s.durableSeq && now.Sub(e.appendedAt) >= walMinAge {
			continue
		}
		keptWAL = append(keptWAL, e)
	}
	s.wal = keptWAL

	// Compact superseded durable versions, honoring sequences pinned by
	// open snapshots and transactions as well as by live checkpoints.
	floor := s.durableSeq
	if pinned, ok := s.minPinnedLocked(); ok && pinned < floor {
		floor = pinned
	}
	for _, cp := range s.checkpoints {
		if m, ok := s.manifestByIDLocked(cp.ManifestID); ok && m.Sequence < floor {
			floor = m.Sequence
		}
	}
	for key, vs := range s.records {
		if len(vs) < 2 {
			continue
		}
		kept := vs[:0]
		for i, v := range vs {
			latest := i == len(vs)-1
			superseded := !latest && vs[i+1].seq <= floor
			old := now.Sub(v.writtenAt) >= compactedMinAge
			if superseded && old {
				continue
			}
			kept = append(kept, v)
		}
		s.records[key] = kept
	}

	return nil
}

func (a *memAdmin) Close() error {
	a.closed.Store(true)
	return nil
}
