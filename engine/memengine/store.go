package memengine

// store.go implements the versioned in-memory keyspace shared by all handles
// opened on the same path/URL.
//
// Every committed write receives a monotonically increasing sequence number.
// Reads evaluate at a sequence (the latest, or one pinned by a snapshot,
// transaction, or checkpointed reader). A flush promotes all writes up to the
// current sequence to the durable tier: promoted values are staged in
// compressed, checksum-tagged form and re-verified on every read, so
// corruption of staged bytes surfaces as a data error at the boundary.

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/checksum"
	"github.com/slatekv/slatekv/internal/compression"
)

// version is one committed value of a key.
type version struct {
	seq       uint64
	tombstone bool
	writtenAt time.Time
	expireAt  time.Time // zero means no expiry

	// Exactly one of value/stored is set. Before promotion the raw value is
	// held in value; flush moves it into stored (compressed + tagged) and
	// clears value, so durable reads always exercise the decode path.
	value  []byte
	stored []byte
}

type walEntry struct {
	seq        uint64
	appendedAt time.Time
}

type store struct {
	mu sync.RWMutex

	codec compression.Type

	seq        uint64 // last committed sequence
	durableSeq uint64 // all sequences <= durableSeq are durably persisted

	records map[string][]version
	keys    []string // sorted distinct keys ever written

	wal []walEntry

	manifests      []engine.ManifestInfo
	nextManifestID uint64

	checkpoints map[uuid.UUID]engine.CheckpointInfo

	// pins holds reference counts of sequences that snapshots and
	// transactions still read at; compaction never removes versions a
	// pinned sequence may need.
	pins map[uint64]int
}

func newStore(codec compression.Type) *store {
	return &store{
		codec:          codec,
		records:        make(map[string][]version),
		nextManifestID: 1,
		checkpoints:    make(map[uuid.UUID]engine.CheckpointInfo),
		pins:           make(map[uint64]int),
	}
}

// insertKeyLocked records k in the sorted key index.
func (s *store) insertKeyLocked(k string) {
	i := sort.SearchStrings(s.keys, k)
	if i < len(s.keys) && s.keys[i] == k {
		return
	}
	s.keys = append(s.keys, "")
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = k
}

func (s *store) pin(seq uint64) {
	s.mu.Lock()
	s.pins[seq]++
	s.mu.Unlock()
}

func (s *store) unpin(seq uint64) {
	s.mu.Lock()
	if s.pins[seq] > 1 {
		s.pins[seq]--
	} else {
		delete(s.pins, seq)
	}
	s.mu.Unlock()
}

func (s *store) minPinnedLocked() (uint64, bool) {
	first := true
	var min uint64
	for seq := range s.pins {
		if first || seq < min {
			min = seq
			first = false
		}
	}
	return min, !first
}

// latestSeqLocked returns the sequence of the newest committed version of
// key, or 0 when the key was never written.
func (s *store) latestSeqLocked(key string) uint64 {
	vs := s.records[key]
	if len(vs) == 0 {
		return 0
	}
	return vs[len(vs)-1].seq
}

// visibleLocked resolves the newest version of key with seq <= maxSeq that
// has not expired by now. found is false for absent keys, tombstones, and
// expired records.
func (s *store) visibleLocked(key string, maxSeq uint64, now time.Time) (*version, bool) {
	vs := s.records[key]
	for i := len(vs) - 1; i >= 0; i-- {
		v := &vs[i]
		if v.seq > maxSeq {
			continue
		}
		if v.tombstone {
			return nil, false
		}
		if !v.expireAt.IsZero() && !now.Before(v.expireAt) {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// load returns the value held by v, decoding and integrity-checking staged
// bytes for promoted versions.
func (s *store) load(v *version) ([]byte, error) {
	if v.stored == nil {
		return v.value, nil
	}
	data, err := checksum.Verify(v.stored)
	if err != nil {
		return nil, engine.Errf(engine.CodeData, "memengine: %v", err)
	}
	value, err := compression.Decode(data)
	if err != nil {
		return nil, engine.Errf(engine.CodeData, "memengine: %v", err)
	}
	return value, nil
}

// effectiveSeq resolves a read's visibility ceiling. atSeq == 0 means the
// latest; DurabilityRemote caps visibility at the durable tier.
func (s *store) effectiveSeqLocked(atSeq uint64, req engine.ReadRequest) uint64 {
	max := atSeq
	if max == 0 {
		max = s.seq
	}
	if req.Durability == engine.DurabilityRemote && s.durableSeq < max {
		max = s.durableSeq
	}
	return max
}

// get reads key at the given pinned sequence (0 = latest).
func (s *store) get(key []byte, atSeq uint64, req engine.ReadRequest) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := s.effectiveSeqLocked(atSeq, req)
	v, ok := s.visibleLocked(string(key), max, time.Now())
	if !ok {
		return nil, false, nil
	}
	value, err := s.load(v)
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// apply commits records atomically under one sequence number and optionally
// flushes so the write is durable before returning.
func (s *store) apply(records []engine.BatchRecord, w engine.WriteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(records, time.Now())
	if w.AwaitDurable {
		return s.flushLocked(time.Now())
	}
	return nil
}

func (s *store) applyLocked(records []engine.BatchRecord, now time.Time) {
	s.seq++
	seq := s.seq
	for _, r := range records {
		key := string(r.Key)
		v := version{seq: seq, writtenAt: now}
		switch r.Kind {
		case engine.RecordPut:
			v.value = append([]byte(nil), r.Value...)
			if r.TTL != nil {
				v.expireAt = now.Add(*r.TTL)
			}
		case engine.RecordDelete:
			v.tombstone = true
		}
		s.records[key] = append(s.records[key], v)
		s.insertKeyLocked(key)
	}
	s.wal = append(s.wal, walEntry{seq: seq, appendedAt: now})
}

// flushLocked promotes everything up to the current sequence to the durable
// tier, staging values through the compression and checksum pipeline, drops
// records that expired in memory, and records a new manifest.
func (s *store) flushLocked(now time.Time) error {
	s.durableSeq = s.seq

	var tables int
	var size int64
	for _, key := range s.keys {
		vs := s.records[key]
		for i := range vs {
			v := &vs[i]
			if v.seq > s.durableSeq || v.stored != nil || v.tombstone {
				continue
			}
			if !v.expireAt.IsZero() && !now.Before(v.expireAt) {
				// Expired before ever becoming durable; flush drops it.
				v.tombstone = true
				v.value = nil
				continue
			}
			encoded, err := compression.Encode(s.codec, v.value)
			if err != nil {
				return engine.Errf(engine.CodeInternal, "memengine: stage %q: %v", key, err)
			}
			v.stored = checksum.Append(encoded)
			v.value = nil
		}
		if v, ok := s.visibleLocked(key, s.durableSeq, now); ok {
			tables++
			size += int64(len(v.stored))
		}
	}

	s.appendManifestLocked(now, tables, size)
	return nil
}

func (s *store) appendManifestLocked(now time.Time, tables int, size int64) engine.ManifestInfo {
	m := engine.ManifestInfo{
		ID:        s.nextManifestID,
		Sequence:  s.durableSeq,
		CreatedAt: now,
		Tables:    tables,
		SizeBytes: size,
	}
	s.nextManifestID++
	s.manifests = append(s.manifests, m)
	return m
}

// bootstrapLocked writes the initial manifest for a freshly created store.
func (s *store) bootstrapLocked(now time.Time) {
	if len(s.manifests) == 0 {
		s.appendManifestLocked(now, 0, 0)
	}
}

func (s *store) latestManifestLocked() (engine.ManifestInfo, bool) {
	if len(s.manifests) == 0 {
		return engine.ManifestInfo{}, false
	}
	return s.manifests[len(s.manifests)-1], true
}

func (s *store) manifestByIDLocked(id uint64) (engine.ManifestInfo, bool) {
	for _, m := range s.manifests {
		if m.ID == id {
			return m, true
		}
	}
	return engine.ManifestInfo{}, false
}

// nextVisible returns the smallest visible key >= lower (and < end when end
// is non-nil) at the given visibility ceiling, along with its value.
func (s *store) nextVisible(lower []byte, end []byte, atSeq uint64, req engine.ReadRequest) (key, value []byte, found bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := s.effectiveSeqLocked(atSeq, req)
	now := time.Now()

	i := sort.SearchStrings(s.keys, string(lower))
	for ; i < len(s.keys); i++ {
		k := s.keys[i]
		if end != nil && k >= string(end) {
			return nil, nil, false, nil
		}
		v, ok := s.visibleLocked(k, max, now)
		if !ok {
			continue
		}
		val, lerr := s.load(v)
		if lerr != nil {
			return nil, nil, false, lerr
		}
		out := make([]byte, len(val))
		copy(out, val)
		return []byte(k), out, true, nil
	}
	return nil, nil, false, nil
}
