package memengine

// txn.go implements optimistic transactions over the versioned store.
//
// A transaction pins its read sequence at begin and accumulates writes in a
// private overlay. Commit validates under the store lock: under snapshot
// isolation, a conflict is a concurrently committed write physically
// overlapping the transaction's write set; serializable isolation
// additionally validates every key the transaction read. Validation failure
// surfaces as CodeTransactionConflict and the transaction stays terminal.

import (
	"sort"
	"sync"
	"time"

	"github.com/slatekv/slatekv/engine"
)

type txnWrite struct {
	value     []byte
	tombstone bool
	ttl       *time.Duration
}

type memTxn struct {
	store   *store
	iso     engine.Isolation
	readSeq uint64

	mu      sync.Mutex
	done    bool
	writes  map[string]txnWrite
	readSet map[string]struct{}
}

func newTxn(s *store, iso engine.Isolation) *memTxn {
	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()
	s.pin(seq)
	return &memTxn{
		store:   s,
		iso:     iso,
		readSeq: seq,
		writes:  make(map[string]txnWrite),
		readSet: make(map[string]struct{}),
	}
}

func (t *memTxn) checkLocked() error {
	if t.done {
		return engine.Errf(engine.CodeClosed, "memengine: transaction is closed")
	}
	return nil
}

func (t *memTxn) Get(key []byte, req engine.ReadRequest) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return nil, false, err
	}

	k := string(key)
	t.readSet[k] = struct{}{}

	if w, ok := t.writes[k]; ok {
		if w.tombstone {
			return nil, false, nil
		}
		out := make([]byte, len(w.value))
		copy(out, w.value)
		return out, true, nil
	}
	return t.store.get(key, t.readSeq, req)
}

func (t *memTxn) Put(key, value []byte, ttl *time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return err
	}
	t.writes[string(key)] = txnWrite{
		value: append([]byte(nil), value...),
		ttl:   ttl,
	}
	return nil
}

func (t *memTxn) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return err
	}
	t.writes[string(key)] = txnWrite{tombstone: true}
	return nil
}

func (t *memTxn) Scan(req engine.ScanRequest) (engine.Iterator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return nil, err
	}

	it := newIterator(t.store, req, t.readSeq)
	it.overlay = t.overlayLocked()
	return it, nil
}

// overlayLocked snapshots the transaction's current writes into a merge
// overlay that also feeds scanned keys back into the read set.
func (t *memTxn) overlayLocked() *txnOverlay {
	o := &txnOverlay{
		writes: make(map[string]txnWrite, len(t.writes)),
		track: func(key string) {
			t.mu.Lock()
			if !t.done {
				t.readSet[key] = struct{}{}
			}
			t.mu.Unlock()
		},
	}
	for k, w := range t.writes {
		o.writes[k] = w
		o.keys = append(o.keys, k)
	}
	sort.Strings(o.keys)
	return o
}

func (t *memTxn) Commit(w engine.WriteRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return err
	}
	t.done = true
	defer t.store.unpin(t.readSeq)

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Write-write validation applies to both isolation levels.
	for k := range t.writes {
		if s.latestSeqLocked(k) > t.readSeq {
			return engine.Errf(engine.CodeTransactionConflict,
				"memengine: write conflict on %q", k)
		}
	}
	if t.iso == engine.IsolationSerializable {
		for k := range t.readSet {
			if s.latestSeqLocked(k) > t.readSeq {
				return engine.Errf(engine.CodeTransactionConflict,
					"memengine: read set invalidated on %q", k)
			}
		}
	}

	if len(t.writes) == 0 {
		return nil
	}

	records := make([]engine.BatchRecord, 0, len(t.writes))
	for k, wr := range t.writes {
		r := engine.BatchRecord{Key: []byte(k)}
		if wr.tombstone {
			r.Kind = engine.RecordDelete
		} else {
			r.Kind = engine.RecordPut
			r.Value = wr.value
			r.TTL = wr.ttl
		}
		records = append(records, r)
	}
	s.applyLocked(records, time.Now())
	if w.AwaitDurable {
		return s.flushLocked(time.Now())
	}
	return nil
}

func (t *memTxn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkLocked(); err != nil {
		return err
	}
	t.done = true
	t.store.unpin(t.readSeq)
	return nil
}

// txnOverlay merges a transaction's private writes into a store scan.
type txnOverlay struct {
	keys   []string // sorted
	writes map[string]txnWrite
	track  func(key string)
}

// merge picks the next entry among the store candidate and the overlay's
// writes at or after lower. tomb reports that the winning entry is an
// overlay tombstone; the caller skips it and advances.
func (o *txnOverlay) merge(lower, end, storeKey, storeVal []byte, storeOK bool) (key, value []byte, ok, tomb bool) {
	// Smallest overlay key in [lower, end).
	i := sort.SearchStrings(o.keys, string(lower))
	var oKey string
	var oOK bool
	if i < len(o.keys) {
		k := o.keys[i]
		if end == nil || k < string(end) {
			oKey, oOK = k, true
		}
	}

	switch {
	case !oOK && !storeOK:
		return nil, nil, false, false
	case !oOK:
		o.track(string(storeKey))
		return storeKey, storeVal, true, false
	case !storeOK || oKey <= string(storeKey):
		// Overlay wins; it shadows an equal store key.
		o.track(oKey)
		w := o.writes[oKey]
		if w.tombstone {
			return []byte(oKey), nil, true, true
		}
		return []byte(oKey), append([]byte(nil), w.value...), true, false
	default:
		o.track(string(storeKey))
		return storeKey, storeVal, true, false
	}
}
