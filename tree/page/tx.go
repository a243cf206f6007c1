package page

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joshuapare/treekit/tree"
)

// Reader is the read-side contract over one revision. Both the pinned
// read transaction and the write transaction satisfy it, so cursors can
// run over either.
type Reader interface {
	// GetRecord resolves a node key. The second return is false when no
	// live record exists under the key.
	GetRecord(key int64) (tree.Node, bool, error)

	// GetName resolves an interned name key.
	GetName(key int32, kind tree.Kind) string

	// RevisionNumber is the revision this view works against. For a
	// write transaction it is the revision being built.
	RevisionNumber() uint32

	// MaxNodeKey is the highest allocated node key visible to the view.
	MaxNodeKey() int64

	// CommitMeta returns the commit metadata of the base revision.
	CommitMeta() CommitMeta
}

// Tx is the page transaction contract the node write transaction
// drives: record fetch, copy-on-write preparation, removal, name
// interning, key allocation and the commit/rollback boundary.
type Tx interface {
	Reader

	// PrepareEntryForModification returns an editable copy of the
	// record installed in the working revision, copying the containing
	// page first if this revision does not own it yet.
	PrepareEntryForModification(key int64) (tree.Node, error)

	// PutRecord installs a freshly created record.
	PutRecord(n tree.Node) error

	// RemoveEntry deletes the record under key.
	RemoveEntry(key int64) error

	// CreateNameKey interns a name into the working dictionary.
	CreateNameKey(name string, kind tree.Kind) int32

	// RemoveName drops one reference to an interned name.
	RemoveName(key int32, kind tree.Kind)

	// NewNodeKey allocates the next node key. Keys are never reused.
	NewNodeKey() int64

	// Commit seals the working revision into a new uber page.
	Commit(message string) (*UberPage, error)

	// Rollback discards the working revision and returns the uber page
	// of the last durable revision.
	Rollback() (*UberPage, error)

	// ClearCaches drops transient working state after a rollback.
	ClearCaches()

	// CloseCaches releases the transaction; it must not be used after.
	CloseCaches()

	// UberPage returns the base uber page this transaction builds on.
	UberPage() *UberPage

	// IsBootstrap reports whether the base revision is the synthetic
	// bootstrap revision.
	IsBootstrap() bool
}

// ReadTx is a reader pinned to one committed revision.
type ReadTx struct {
	uber *UberPage
}

func (r *ReadTx) GetRecord(key int64) (tree.Node, bool, error) {
	n, ok := r.uber.getRecord(key)
	return n, ok, nil
}

func (r *ReadTx) GetName(key int32, kind tree.Kind) string {
	return r.uber.names.GetName(key, kind)
}

func (r *ReadTx) RevisionNumber() uint32 { return r.uber.Revision() }
func (r *ReadTx) MaxNodeKey() int64      { return r.uber.MaxNodeKey() }
func (r *ReadTx) CommitMeta() CommitMeta { return r.uber.Meta() }

// WriteTx is the single page write transaction of a resource. It builds
// one revision on top of a base uber page with page-granular
// copy-on-write and is spent after Commit or Rollback.
type WriteTx struct {
	store      *Store
	base       *UberPage
	revision   uint32
	pages      map[int64]*RecordPage
	dirty      map[int64]struct{}
	names      *NameDictionary
	maxNodeKey int64
	closed     bool
}

var _ Tx = (*WriteTx)(nil)

func (w *WriteTx) GetRecord(key int64) (tree.Node, bool, error) {
	if w.closed {
		return nil, false, ErrTxClosed
	}
	p, ok := w.pages[pageNoForKey(key)]
	if !ok {
		return nil, false, nil
	}
	n, ok := p.get(key)
	return n, ok, nil
}

func (w *WriteTx) GetName(key int32, kind tree.Kind) string {
	return w.names.GetName(key, kind)
}

func (w *WriteTx) RevisionNumber() uint32 { return w.revision }
func (w *WriteTx) MaxNodeKey() int64      { return w.maxNodeKey }
func (w *WriteTx) CommitMeta() CommitMeta { return w.base.Meta() }

// preparePage copies a page into the working revision on first touch.
func (w *WriteTx) preparePage(pageNo int64) *RecordPage {
	p, ok := w.pages[pageNo]
	if !ok {
		p = newRecordPage(pageNo)
		w.pages[pageNo] = p
		w.dirty[pageNo] = struct{}{}
		return p
	}
	if _, isDirty := w.dirty[pageNo]; !isDirty {
		p = p.clone()
		w.pages[pageNo] = p
		w.dirty[pageNo] = struct{}{}
	}
	return p
}

func (w *WriteTx) PrepareEntryForModification(key int64) (tree.Node, error) {
	if w.closed {
		return nil, ErrTxClosed
	}
	p := w.preparePage(pageNoForKey(key))
	n, ok := p.get(key)
	if !ok {
		return nil, fmt.Errorf("%w: key %d", ErrRecordNotFound, key)
	}
	return n, nil
}

func (w *WriteTx) PutRecord(n tree.Node) error {
	if w.closed {
		return ErrTxClosed
	}
	w.preparePage(pageNoForKey(n.NodeKey())).put(n)
	return nil
}

func (w *WriteTx) RemoveEntry(key int64) error {
	if w.closed {
		return ErrTxClosed
	}
	p := w.preparePage(pageNoForKey(key))
	if _, ok := p.get(key); !ok {
		return fmt.Errorf("%w: key %d", ErrRecordNotFound, key)
	}
	p.remove(key)
	return nil
}

func (w *WriteTx) CreateNameKey(name string, kind tree.Kind) int32 {
	return w.names.CreateNameKey(name, kind)
}

func (w *WriteTx) RemoveName(key int32, kind tree.Kind) {
	w.names.RemoveName(key, kind)
}

func (w *WriteTx) NewNodeKey() int64 {
	w.maxNodeKey++
	return w.maxNodeKey
}

func (w *WriteTx) Commit(message string) (*UberPage, error) {
	if w.closed {
		return nil, ErrTxClosed
	}
	u := &UberPage{
		revision:   w.revision,
		maxNodeKey: w.maxNodeKey,
		pages:      w.pages,
		names:      w.names,
		meta: CommitMeta{
			ID:        uuid.New(),
			Author:    w.store.author,
			Message:   message,
			Timestamp: time.Now().UTC(),
		},
	}
	if err := w.store.commitRevision(u); err != nil {
		return nil, err
	}
	w.closed = true
	return u, nil
}

func (w *WriteTx) Rollback() (*UberPage, error) {
	if w.closed {
		return nil, ErrTxClosed
	}
	w.closed = true
	return w.store.Latest(), nil
}

func (w *WriteTx) ClearCaches() {
	w.pages = nil
	w.dirty = nil
}

func (w *WriteTx) CloseCaches() {
	w.closed = true
}

func (w *WriteTx) UberPage() *UberPage { return w.base }

func (w *WriteTx) IsBootstrap() bool { return w.base.IsBootstrap() }
