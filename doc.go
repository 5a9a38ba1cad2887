// Package slatekv is the client runtime for an embedded, object-storage
// backed key-value engine.
//
// The package exposes three handle kinds: Database for reads and writes,
// Reader for read-only access to durable or checkpointed state, and Admin
// for the control plane (manifests, checkpoints, garbage collection). All
// handles are safe for concurrent use and must be closed when no longer
// needed; every operation on a closed handle fails with ErrClosed.
//
// Keys and values are arbitrary bytes; keys must be non-empty. Reads
// report absence through a found result rather than an error:
//
//	db, err := slatekv.Open("demo", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Put([]byte("hello"), []byte("world")); err != nil {
//		log.Fatal(err)
//	}
//	value, found, err := db.Get([]byte("hello"))
//
// Range scans yield entries in ascending key order over a half-open
// range [start, end). Transactions are optimistic: Update retries are the
// caller's choice when Commit fails with ErrTransactionConflict.
//
// All errors returned by this package match exactly one of the Err*
// sentinels under errors.Is, so callers can branch on failure class
// without string inspection.
package slatekv
