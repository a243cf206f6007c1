package page

import "errors"

var (
	// ErrRecordNotFound indicates a node key with no live record.
	ErrRecordNotFound = errors.New("page: record not found")

	// ErrTxClosed indicates use of a page transaction after commit,
	// rollback or close.
	ErrTxClosed = errors.New("page: transaction closed")

	// ErrRevisionNotFound indicates a revision number that was never
	// committed.
	ErrRevisionNotFound = errors.New("page: revision not found")

	// ErrSnapshotCorrupt indicates a revision snapshot that cannot be
	// decoded from disk.
	ErrSnapshotCorrupt = errors.New("page: snapshot corrupt")
)
