package slatekv

// options.go defines the per-call option sets and their canonicalization
// into engine boundary requests.
//
// Every option type follows the same contract: a nil pointer means "all
// defaults" and takes a fast path that builds the identical canonical
// request the defaults would, so sparse calls cost nothing extra and the
// two paths are referentially equivalent. Invalid or mutually exclusive
// values fail with an InvalidArgument error before the engine is ever
// invoked.

import (
	"time"

	"github.com/slatekv/slatekv/engine"
	"github.com/slatekv/slatekv/internal/logging"
)

// Durability selects which state a read may observe.
type Durability int

const (
	// DurabilityMemory permits reads satisfied from memory-resident state.
	// This is the default.
	DurabilityMemory Durability = iota
	// DurabilityRemote restricts reads to durably persisted state.
	DurabilityRemote
)

// String returns the name of the durability level.
func (d Durability) String() string {
	switch d {
	case DurabilityMemory:
		return "memory"
	case DurabilityRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// ParseDurability parses "memory" or "remote".
func ParseDurability(s string) (Durability, error) {
	switch s {
	case "memory":
		return DurabilityMemory, nil
	case "remote":
		return DurabilityRemote, nil
	default:
		return 0, invalidArgf("slatekv: invalid durability_filter: %s (expected 'remote' or 'memory')", s)
	}
}

func (d Durability) toEngine() (engine.DurabilityLevel, error) {
	switch d {
	case DurabilityMemory:
		return engine.DurabilityMemory, nil
	case DurabilityRemote:
		return engine.DurabilityRemote, nil
	default:
		return 0, invalidArgf("slatekv: invalid durability_filter: %d", int(d))
	}
}

// IsolationLevel is the concurrency-control strength of a transaction.
type IsolationLevel int

const (
	// IsolationSnapshot gives the transaction a fixed read view; writers
	// may still conflict on physical write overlap at commit. This is the
	// default.
	IsolationSnapshot IsolationLevel = iota
	// IsolationSerializable additionally fails the commit when concurrent
	// commits invalidated the transaction's observed read set.
	IsolationSerializable
)

// String returns the name of the isolation level.
func (l IsolationLevel) String() string {
	switch l {
	case IsolationSnapshot:
		return "snapshot"
	case IsolationSerializable:
		return "serializable"
	default:
		return "unknown"
	}
}

// ParseIsolationLevel parses an isolation level name.
// Accepted: "snapshot", "si", "serializable", "ssi", "serializable_snapshot".
// The empty string selects the default, snapshot.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch s {
	case "", "snapshot", "si":
		return IsolationSnapshot, nil
	case "serializable", "ssi", "serializable_snapshot":
		return IsolationSerializable, nil
	default:
		return 0, invalidArgf("slatekv: invalid isolation level: %s (expected 'snapshot' or 'serializable')", s)
	}
}

func (l IsolationLevel) toEngine() (engine.Isolation, error) {
	switch l {
	case IsolationSnapshot:
		return engine.IsolationSnapshot, nil
	case IsolationSerializable:
		return engine.IsolationSerializable, nil
	default:
		return 0, invalidArgf("slatekv: invalid isolation level: %d", int(l))
	}
}

// Options configures a Database handle.
type Options struct {
	// URL selects the object store backing the database: file://, s3://,
	// az://, or gs://. It is passed to the engine unmodified; credentials
	// are resolved engine-side from the provider's standard environment.
	// Empty selects the engine's in-memory store.
	URL string

	// Engine is the storage engine implementation.
	// nil selects the shared in-memory reference engine.
	Engine engine.Engine

	// Logger receives client-runtime log output.
	// nil selects a WARN-level stderr logger.
	Logger logging.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() *Options {
	return &Options{}
}

// ReaderOptions configures a read-only handle.
type ReaderOptions struct {
	// URL selects the object store, exactly as Options.URL.
	URL string

	// CheckpointID pins the reader to a checkpoint (UUID string).
	// Empty means the reader follows the store's durable state.
	CheckpointID string

	// ManifestPollInterval is how often an unpinned reader refreshes its
	// view of the durable state. Zero selects the engine default.
	ManifestPollInterval time.Duration

	// CheckpointLifetime bounds the reader's own ephemeral checkpoint.
	// Zero selects the engine default.
	CheckpointLifetime time.Duration

	// MaxMemtableBytes caps the reader's in-memory buffering.
	// Zero selects the engine default.
	MaxMemtableBytes uint64

	// Engine and Logger behave exactly as in Options.
	Engine engine.Engine
	Logger logging.Logger
}

// DefaultReaderOptions returns the default reader options.
func DefaultReaderOptions() *ReaderOptions {
	return &ReaderOptions{}
}

// AdminOptions configures a control-plane handle.
type AdminOptions struct {
	// URL selects the object store, exactly as Options.URL.
	URL string

	// Engine and Logger behave exactly as in Options.
	Engine engine.Engine
	Logger logging.Logger
}

// DefaultAdminOptions returns the default admin options.
func DefaultAdminOptions() *AdminOptions {
	return &AdminOptions{}
}

// ReadOptions are the per-read options.
type ReadOptions struct {
	// Durability selects whether the read may be satisfied from
	// memory-resident state (DurabilityMemory, the default) or must
	// reflect durably persisted state (DurabilityRemote).
	Durability Durability

	// Dirty permits visibility of uncommitted, in-flight writes.
	// Default false. Dirty cannot be combined with DurabilityRemote: an
	// uncommitted write is by definition not durably persisted.
	Dirty bool
}

// DefaultReadOptions returns the default read options.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{}
}

// defaultReadRequest is the canonical request for absent read options.
var defaultReadRequest = engine.ReadRequest{Durability: engine.DurabilityMemory}

func (o *ReadOptions) readRequest() (engine.ReadRequest, error) {
	if o == nil {
		return defaultReadRequest, nil
	}
	d, err := o.Durability.toEngine()
	if err != nil {
		return engine.ReadRequest{}, err
	}
	if o.Dirty && o.Durability == DurabilityRemote {
		return engine.ReadRequest{}, invalidArgf("slatekv: dirty reads cannot require remote durability")
	}
	return engine.ReadRequest{Durability: d, Dirty: o.Dirty}, nil
}

// ScanOptions are the per-scan options.
type ScanOptions struct {
	// Durability and Dirty behave exactly as in ReadOptions.
	Durability Durability
	Dirty      bool

	// ReadAheadBytes hints how much data to prefetch ahead of the cursor.
	// Zero selects the engine default; negative is invalid.
	ReadAheadBytes int

	// CacheBlocks hints whether fetched blocks should populate the block
	// cache. Default false.
	CacheBlocks bool

	// MaxFetchTasks caps the parallelism of background fetches feeding the
	// cursor. Zero selects the default of one; negative is invalid.
	MaxFetchTasks int
}

// DefaultScanOptions returns the default scan options.
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{}
}

func defaultScanRequest(start, end []byte) engine.ScanRequest {
	return engine.ScanRequest{
		Start:         start,
		End:           end,
		Durability:    engine.DurabilityMemory,
		MaxFetchTasks: 1,
	}
}

func (o *ScanOptions) scanRequest(start, end []byte) (engine.ScanRequest, error) {
	if o == nil {
		return defaultScanRequest(start, end), nil
	}
	d, err := o.Durability.toEngine()
	if err != nil {
		return engine.ScanRequest{}, err
	}
	if o.Dirty && o.Durability == DurabilityRemote {
		return engine.ScanRequest{}, invalidArgf("slatekv: dirty reads cannot require remote durability")
	}
	if o.ReadAheadBytes < 0 {
		return engine.ScanRequest{}, invalidArgf("slatekv: read_ahead_bytes cannot be negative")
	}
	if o.MaxFetchTasks < 0 {
		return engine.ScanRequest{}, invalidArgf("slatekv: max_fetch_tasks cannot be negative")
	}
	tasks := o.MaxFetchTasks
	if tasks == 0 {
		tasks = 1
	}
	return engine.ScanRequest{
		Start:          start,
		End:            end,
		Durability:     d,
		Dirty:          o.Dirty,
		ReadAheadBytes: o.ReadAheadBytes,
		CacheBlocks:    o.CacheBlocks,
		MaxFetchTasks:  tasks,
	}, nil
}

// PutOptions are the per-put options.
type PutOptions struct {
	// TTL bounds the record's lifetime. Zero selects the engine's default
	// record lifetime (no client-imposed expiry); negative is invalid.
	TTL time.Duration
}

// DefaultPutOptions returns the default put options.
func DefaultPutOptions() *PutOptions {
	return &PutOptions{}
}

func (o *PutOptions) ttl() (*time.Duration, error) {
	if o == nil || o.TTL == 0 {
		return nil, nil
	}
	if o.TTL < 0 {
		return nil, invalidArgf("slatekv: ttl cannot be negative")
	}
	d := o.TTL
	return &d, nil
}

// WriteOptions are the per-write options.
type WriteOptions struct {
	// AwaitDurable makes the write wait until it is durably persisted
	// before returning. The default (nil WriteOptions) is true; a
	// zero-value &WriteOptions{} explicitly opts out.
	AwaitDurable bool
}

// DefaultWriteOptions returns the default write options.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{AwaitDurable: true}
}

// defaultWriteRequest is the canonical request for absent write options.
var defaultWriteRequest = engine.WriteRequest{AwaitDurable: true}

func (o *WriteOptions) writeRequest() engine.WriteRequest {
	if o == nil {
		return defaultWriteRequest
	}
	return engine.WriteRequest{AwaitDurable: o.AwaitDurable}
}

// CheckpointOptions are the parameters of checkpoint creation.
type CheckpointOptions struct {
	// Lifetime bounds the checkpoint's validity in wall-clock time.
	// Zero means the checkpoint never expires; negative is invalid.
	Lifetime time.Duration

	// Source derives the new checkpoint from an existing one, given as a
	// UUID string. Empty derives from the latest manifest.
	Source string

	// Name optionally labels the checkpoint for ListCheckpoints filtering.
	Name string
}

// DefaultCheckpointOptions returns the default checkpoint options.
func DefaultCheckpointOptions() *CheckpointOptions {
	return &CheckpointOptions{}
}

// GCOptions are the garbage collection parameters. All ages are minimum
// artifact ages; an artifact younger than its class's minimum is never
// collected.
type GCOptions struct {
	// MinAge applies to every artifact class without a specific override.
	// Zero defers to the engine's per-class defaults.
	MinAge time.Duration

	// ManifestMinAge, WALMinAge, and CompactedMinAge override MinAge for
	// their artifact class. Zero falls back to MinAge, then to the engine
	// default.
	ManifestMinAge  time.Duration
	WALMinAge       time.Duration
	CompactedMinAge time.Duration
}

// DefaultGCOptions returns the default GC options.
func DefaultGCOptions() *GCOptions {
	return &GCOptions{}
}

func (o *GCOptions) gcRequest() (engine.GCRequest, error) {
	if o == nil {
		return engine.GCRequest{}, nil
	}
	for _, age := range []time.Duration{o.MinAge, o.ManifestMinAge, o.WALMinAge, o.CompactedMinAge} {
		if age < 0 {
			return engine.GCRequest{}, invalidArgf("slatekv: gc min age cannot be negative")
		}
	}
	pick := func(specific time.Duration) time.Duration {
		if specific > 0 {
			return specific
		}
		return o.MinAge
	}
	return engine.GCRequest{
		ManifestMinAge:  pick(o.ManifestMinAge),
		WALMinAge:       pick(o.WALMinAge),
		CompactedMinAge: pick(o.CompactedMinAge),
	}, nil
}

// validateKey rejects empty keys locally, before any engine call.
func validateKey(key []byte) error {
	if len(key) == 0 {
		return invalidArgf("slatekv: key cannot be empty")
	}
	return nil
}
