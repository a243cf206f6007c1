// Package page implements the versioned, copy-on-write page layer.
//
// # Layout
//
// Records live in fixed-size pages of 128 slots, addressed by node
// key. One committed revision is rooted by an UberPage: an immutable
// page directory, a name dictionary snapshot, the node key watermark
// and the commit metadata (commit UUID, author, message, timestamp).
// Adjacent revisions share every page the later one did not modify.
//
// # Transactions
//
// ReadTx pins one committed revision and serves lookups from its page
// directory. WriteTx builds the next revision: it starts with a
// shallow copy of the base directory and copies a whole page the first
// time any of its records is prepared for modification. Commit seals
// the working directory into a new UberPage and appends it to the
// store; Rollback discards it and hands back the last durable uber
// page.
//
// Node keys are allocated by the write transaction and never reused,
// so a key identifies the same logical node in every revision that
// contains it.
//
// # Name dictionary
//
// Qualified name components are interned into 31-bit keys derived from
// xxh3 with linear probing, reference-counted so unused names retire.
// The dictionary is cloned per working revision, keeping committed
// snapshots immutable.
//
// # Persistence
//
// When the store has a directory, every committed revision is
// serialized as one zstd-compressed JSON frame appended to
// revisions.dat. Each frame is a complete snapshot: reopening a store
// replays the frames and can serve any committed revision without
// reconstructing deltas.
package page
