// Package engine defines the request/response boundary between the client
// runtime and the storage engine.
//
// Everything above this boundary (handles, option canonicalization, dispatch,
// error mapping) lives in the root package. Everything below it — the LSM
// tree, write-ahead log, compaction, manifest persistence, object-store
// protocol — belongs to an Engine implementation. The runtime ships one
// implementation, memengine, an in-memory reference engine used by the test
// harness and as the default when no object-store URL is configured.
//
// All failures crossing the boundary are *Error values carrying one of the
// fixed Code values; the root package translates them into its public
// taxonomy.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Code identifies the class of an engine failure.
type Code int

const (
	// CodeInvalid reports malformed input that reached the boundary.
	CodeInvalid Code = iota + 1
	// CodeClosed reports an operation on a released engine object.
	CodeClosed
	// CodeUnavailable reports an unreachable object store.
	CodeUnavailable
	// CodeData reports corruption, format mismatch, or missing manifests.
	CodeData
	// CodeTransactionConflict reports a commit invalidated by a concurrent
	// writer.
	CodeTransactionConflict
	// CodeInternal reports a defect or unexpected engine state.
	CodeInternal
)

// String returns the name of the code.
func (c Code) String() string {
	switch c {
	case CodeInvalid:
		return "Invalid"
	case CodeClosed:
		return "Closed"
	case CodeUnavailable:
		return "Unavailable"
	case CodeData:
		return "Data"
	case CodeTransactionConflict:
		return "TransactionConflict"
	case CodeInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is the failure type crossing the boundary.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Errf constructs a coded engine error.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DurabilityLevel selects which state a read may observe.
type DurabilityLevel int

const (
	// DurabilityMemory permits reads from memory-resident state.
	DurabilityMemory DurabilityLevel = iota
	// DurabilityRemote restricts reads to durably persisted state.
	DurabilityRemote
)

// Isolation is the concurrency-control strength of a transaction.
type Isolation int

const (
	// IsolationSnapshot gives readers a fixed view; writers conflict only
	// on physical write overlap at commit.
	IsolationSnapshot Isolation = iota
	// IsolationSerializable additionally validates the transaction's read
	// set at commit.
	IsolationSerializable
)

// ReadRequest is the canonical form of per-read options.
type ReadRequest struct {
	Durability DurabilityLevel
	Dirty      bool
}

// ScanRequest is the canonical form of a range scan.
// End == nil scans to the end of the keyspace; Start may be empty to scan
// from the beginning.
type ScanRequest struct {
	Start []byte
	End   []byte

	Durability     DurabilityLevel
	Dirty          bool
	ReadAheadBytes int
	CacheBlocks    bool
	MaxFetchTasks  int
}

// WriteRequest is the canonical form of per-write options.
type WriteRequest struct {
	AwaitDurable bool
}

// RecordKind discriminates batch records.
type RecordKind int

const (
	// RecordPut stores a value.
	RecordPut RecordKind = iota
	// RecordDelete removes a key.
	RecordDelete
)

// BatchRecord is one operation inside an atomic batch.
// TTL == nil means the engine's default record lifetime.
type BatchRecord struct {
	Kind  RecordKind
	Key   []byte
	Value []byte
	TTL   *time.Duration
}

// OpenRequest opens a database root handle.
type OpenRequest struct {
	Path string
	// URL is the object-store URL (file://, s3://, az://, gs://), passed
	// through unmodified; empty selects the engine's in-memory store.
	URL string
}

// OpenReaderRequest opens a read-only handle, optionally pinned to a
// checkpoint.
type OpenReaderRequest struct {
	Path string
	URL  string

	// Checkpoint pins the reader to a checkpointed view when non-nil.
	Checkpoint *uuid.UUID

	// ManifestPollInterval, CheckpointLifetime, and MaxMemtableBytes tune
	// the reader; zero values select engine defaults.
	ManifestPollInterval time.Duration
	CheckpointLifetime   time.Duration
	MaxMemtableBytes     uint64
}

// OpenAdminRequest opens a control-plane handle.
type OpenAdminRequest struct {
	Path string
	URL  string
}

// ManifestInfo is the JSON-serializable metadata of one manifest version.
type ManifestInfo struct {
	ID        uint64    `json:"id"`
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	Tables    int       `json:"tables"`
	SizeBytes int64     `json:"size_bytes"`
}

// CheckpointSpec are the parameters of checkpoint creation.
type CheckpointSpec struct {
	// Lifetime bounds the checkpoint's validity; nil means no expiry.
	Lifetime *time.Duration
	// Source derives the checkpoint from an existing one when non-nil.
	Source *uuid.UUID
	// Name optionally labels the checkpoint.
	Name string
}

// CheckpointInfo is the JSON-serializable metadata of one checkpoint.
type CheckpointInfo struct {
	ID         uuid.UUID  `json:"id"`
	ManifestID uint64     `json:"manifest_id"`
	Name       string     `json:"name,omitempty"`
	CreateTime time.Time  `json:"create_time"`
	ExpireTime *time.Time `json:"expire_time,omitempty"`
}

// GCRequest carries fully resolved minimum ages per artifact class.
// Zero values select the engine's defaults.
type GCRequest struct {
	ManifestMinAge  time.Duration
	WALMinAge       time.Duration
	CompactedMinAge time.Duration
}

// Engine is the storage engine collaborator.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Open opens (creating if necessary) the store at the request's
	// path/URL and returns a database object.
	Open(req OpenRequest) (DB, error)

	// OpenReader opens a read-only view of an existing store. It fails
	// with CodeData when the store has no manifest.
	OpenReader(req OpenReaderRequest) (Reader, error)

	// OpenAdmin opens a control-plane handle for the store.
	OpenAdmin(req OpenAdminRequest) (Admin, error)
}

// DB is an opaque engine-side database object.
type DB interface {
	Get(key []byte, req ReadRequest) (value []byte, found bool, err error)
	Put(key, value []byte, ttl *time.Duration, w WriteRequest) error
	Delete(key []byte, w WriteRequest) error
	Scan(req ScanRequest) (Iterator, error)
	Write(records []BatchRecord, w WriteRequest) error
	Begin(iso Isolation) (Txn, error)
	Snapshot() (Snapshot, error)
	Flush() error
	Close() error
}

// Reader is an opaque engine-side read-only object.
type Reader interface {
	Get(key []byte, req ReadRequest) (value []byte, found bool, err error)
	Scan(req ScanRequest) (Iterator, error)
	Close() error
}

// Txn is an opaque engine-side transaction.
type Txn interface {
	Get(key []byte, req ReadRequest) (value []byte, found bool, err error)
	Put(key, value []byte, ttl *time.Duration) error
	Delete(key []byte) error
	Scan(req ScanRequest) (Iterator, error)
	Commit(w WriteRequest) error
	Rollback() error
}

// Snapshot is an opaque engine-side point-in-time view.
type Snapshot interface {
	Get(key []byte, req ReadRequest) (value []byte, found bool, err error)
	Scan(req ScanRequest) (Iterator, error)
	Close() error
}

// Iterator is an opaque engine-side cursor over ordered entries.
type Iterator interface {
	// Next returns the next entry, or found == false at end-of-sequence.
	Next() (key, value []byte, found bool, err error)
	// Seek repositions the cursor to the first key >= target.
	Seek(target []byte) error
	Close() error
}

// Admin is an opaque engine-side control-plane object.
type Admin interface {
	// ReadManifest returns the manifest with the given id, or the latest
	// when latest is true. It returns nil when no matching manifest exists.
	ReadManifest(id uint64, latest bool) (*ManifestInfo, error)

	// ListManifests lists manifests with start <= id < end.
	// end == 0 means unbounded.
	ListManifests(start, end uint64) ([]ManifestInfo, error)

	CreateCheckpoint(spec CheckpointSpec) (*CheckpointInfo, error)

	// ListCheckpoints lists checkpoints, filtered by name when name != "".
	ListCheckpoints(name string) ([]CheckpointInfo, error)

	// RefreshCheckpoint extends (lifetime non-nil) or removes (nil) the
	// checkpoint's expiry.
	RefreshCheckpoint(id uuid.UUID, lifetime *time.Duration) error

	DeleteCheckpoint(id uuid.UUID) error

	RunGC(req GCRequest) error

	Close() error
}
