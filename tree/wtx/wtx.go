// Package wtx implements the node write transaction: the single writer
// of a resource. It applies structural edits through the page
// transaction's copy-on-write, keeps per-node rolling hashes and
// descendant counts in sync, assigns hierarchical order keys, notifies
// the index controller, and coordinates commit, rollback and revert.
//
// A transaction is logically single-threaded. When a periodic
// auto-commit is configured, every editing, commit, rollback, revert,
// close and hook-registration method takes a mutex so the scheduled
// commit cannot interleave with a caller; navigation and the plain
// accessors do not lock. Without auto-commit the caller must ensure
// external single-threaded use.
package wtx

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/index"
	"github.com/joshuapare/treekit/tree/page"
	"github.com/joshuapare/treekit/tree/pathsummary"
	"github.com/joshuapare/treekit/tree/resource"
	"github.com/joshuapare/treekit/tree/rtx"
)

// schedulerJoinDeadline bounds how long Close waits for the auto-commit
// worker.
const schedulerJoinDeadline = 2 * time.Second

// PreCommitHook runs before the page transaction commits; an error
// aborts the commit.
type PreCommitHook func(*Trx) error

// PostCommitHook runs after the transaction has been reinstantiated on
// the new head revision.
type PostCommitHook func(*Trx) error

// Trx is the node write transaction. Navigation is inherited from the
// embedded read cursor, which runs over the page write transaction.
type Trx struct {
	*rtx.ReadTx

	mgr        *resource.Manager
	cfg        resource.Config
	pageTx     page.Tx
	factory    *tree.Factory
	pathWriter *pathsummary.Writer
	indexCtl   *index.Controller
	logger     *zap.Logger

	modificationCount int
	bulkInsert        bool
	closed            bool

	preCommitHooks  []PreCommitHook
	postCommitHooks []PostCommitHook

	// lock is installed only when a periodic auto-commit runs.
	lock       *sync.Mutex
	ticker     *time.Ticker
	done       chan struct{}
	workerDone chan struct{}
}

// Begin opens the write transaction of the resource, pinned to the
// latest revision. At most one write transaction exists per resource.
func Begin(mgr *resource.Manager) (*Trx, error) {
	if err := mgr.AcquireWriter(); err != nil {
		return nil, err
	}

	cfg := mgr.Config()
	pageTx := mgr.Store().BeginWriteTx(mgr.Store().Latest())
	cursor, err := rtx.New(pageTx)
	if err != nil {
		mgr.ReleaseWriter()
		return nil, err
	}

	w := &Trx{
		ReadTx:   cursor,
		mgr:      mgr,
		cfg:      cfg,
		pageTx:   pageTx,
		factory:  tree.NewFactory(pageTx, pageTx, cfg.UseCompression),
		indexCtl: index.NewController(mgr.Logger()),
		logger:   mgr.Logger(),
	}
	if cfg.WithPathSummary {
		w.pathWriter = pathsummary.NewWriter(w)
		w.rebuildPathSummary()
	}

	if cfg.AutoCommitInterval > 0 {
		w.lock = &sync.Mutex{}
		w.ticker = time.NewTicker(cfg.AutoCommitInterval)
		w.done = make(chan struct{})
		w.workerDone = make(chan struct{})
		go w.autoCommitLoop()
	}

	w.logger.Debug("write transaction opened",
		zap.Uint32("baseRevision", pageTx.UberPage().Revision()),
		zap.Uint32("targetRevision", pageTx.RevisionNumber()))
	return w, nil
}

// autoCommitLoop runs scheduled commits until Close.
func (w *Trx) autoCommitLoop() {
	defer close(w.workerDone)
	for {
		select {
		case <-w.ticker.C:
			if err := w.Commit(""); err != nil {
				w.logger.Warn("scheduled auto-commit failed", zap.Error(err))
			}
		case <-w.done:
			return
		}
	}
}

// acquireLock takes the method lock when auto-commit is active.
func (w *Trx) acquireLock() {
	if w.lock != nil {
		w.lock.Lock()
	}
}

// releaseLock releases the method lock when auto-commit is active.
func (w *Trx) releaseLock() {
	if w.lock != nil {
		w.lock.Unlock()
	}
}

// assertOpen fails every operation on a closed transaction.
func (w *Trx) assertOpen() error {
	if w.closed {
		return ErrClosed
	}
	return nil
}

// checkAccessAndCommit bumps the modification counter and runs the
// size-based intermediate commit when the threshold is crossed.
func (w *Trx) checkAccessAndCommit() error {
	if err := w.assertOpen(); err != nil {
		return err
	}
	w.modificationCount++
	if w.cfg.MaxNodeCount > 0 && w.modificationCount > w.cfg.MaxNodeCount {
		return w.commitInternal("")
	}
	return nil
}

// ModificationCount returns the number of modifications since the last
// commit or rollback.
func (w *Trx) ModificationCount() int { return w.modificationCount }

// PageTx exposes the page write transaction.
func (w *Trx) PageTx() page.Tx { return w.pageTx }

// IndexController exposes the index controller of this transaction.
func (w *Trx) IndexController() *index.Controller { return w.indexCtl }

// GetPathSummary returns a read view over the path summary.
func (w *Trx) GetPathSummary() *pathsummary.Reader {
	w.acquireLock()
	defer w.releaseLock()
	if w.pathWriter == nil {
		return nil
	}
	return w.pathWriter.GetPathSummary()
}

// GetCommitCredentials returns the commit metadata of the revision the
// transaction builds on.
func (w *Trx) GetCommitCredentials() page.CommitMeta {
	return w.pageTx.CommitMeta()
}

// AddPreCommitHook registers a hook run before every commit.
func (w *Trx) AddPreCommitHook(hook PreCommitHook) {
	w.acquireLock()
	defer w.releaseLock()
	w.preCommitHooks = append(w.preCommitHooks, hook)
}

// AddPostCommitHook registers a hook run after every commit.
func (w *Trx) AddPostCommitHook(hook PostCommitHook) {
	w.acquireLock()
	defer w.releaseLock()
	w.postCommitHooks = append(w.postCommitHooks, hook)
}

// TruncateTo is declared for revision truncation; its semantics are not
// defined yet.
func (w *Trx) TruncateTo(revision uint32) error {
	if err := w.assertOpen(); err != nil {
		return err
	}
	return fmt.Errorf("%w: truncate to revision %d", ErrNotImplemented, revision)
}

// CurrentPathNodeKey implements pathsummary.Cursor: the path context of
// the current node is the path node of its nearest named
// ancestor-or-self, or the root path at document level.
func (w *Trx) CurrentPathNodeKey() int64 {
	n := w.CurrentNode()
	for {
		if nn, ok := n.(tree.NamedNode); ok {
			return nn.PathNodeKey()
		}
		if !n.HasParent() {
			return pathsummary.RootPathNodeKey
		}
		parent, ok, err := w.pageTx.GetRecord(n.ParentKey())
		if err != nil || !ok {
			return pathsummary.RootPathNodeKey
		}
		n = parent
	}
}

// rebuildPathSummary reconstructs the path summary from the stored
// tree, honouring the path node keys persisted on named nodes.
func (w *Trx) rebuildPathSummary() {
	axis := rtx.NewDescendantAxis(w.pageTx, tree.DocumentRootKey, false)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		n, found, err := w.pageTx.GetRecord(key)
		if err != nil || !found {
			continue
		}
		w.restorePathFor(n)
		if el, isElement := n.(*tree.ElementNode); isElement {
			for i := 0; i < el.NamespaceCount(); i++ {
				if ns, ok, _ := w.pageTx.GetRecord(el.NamespaceKey(i)); ok {
					w.restorePathFor(ns)
				}
			}
			for i := 0; i < el.AttributeCount(); i++ {
				if att, ok, _ := w.pageTx.GetRecord(el.AttributeKey(i)); ok {
					w.restorePathFor(att)
				}
			}
		}
	}
}

// restorePathFor re-registers one named node's path.
func (w *Trx) restorePathFor(n tree.Node) {
	nn, ok := n.(tree.NamedNode)
	if !ok {
		return
	}
	parentPath := pathsummary.RootPathNodeKey
	if parent, found, _ := w.pageTx.GetRecord(n.ParentKey()); found {
		if pn, isNamed := parent.(tree.NamedNode); isNamed {
			parentPath = pn.PathNodeKey()
		}
	}
	name := tree.QName{
		Prefix: w.pageTx.GetName(nn.PrefixKey(), n.Kind()),
		Local:  w.pageTx.GetName(nn.LocalNameKey(), n.Kind()),
		URI:    w.pageTx.GetName(nn.URIKey(), tree.KindNamespace),
	}
	w.pathWriter.Restore(nn.PathNodeKey(), parentPath, name, n.Kind())
}

// nodeHash computes the image hash of a node.
func nodeHash(n tree.Node) int64 {
	return encoding.Hash64(n.Image())
}

// prepare returns an editable copy of the record under key.
func (w *Trx) prepare(key int64) (tree.Node, error) {
	return w.pageTx.PrepareEntryForModification(key)
}

// prepareStruct prepares a record known to be structural.
func (w *Trx) prepareStruct(key int64) (tree.StructuralNode, error) {
	n, err := w.prepare(key)
	if err != nil {
		return nil, err
	}
	sn, ok := n.(tree.StructuralNode)
	if !ok {
		return nil, fmt.Errorf("%w: node %d is not structural", ErrNotStructural, key)
	}
	return sn, nil
}

// record resolves a key without preparing it for modification.
func (w *Trx) record(key int64) (tree.Node, bool) {
	n, ok, err := w.pageTx.GetRecord(key)
	if err != nil {
		return nil, false
	}
	return n, ok
}

// structural resolves a key as a structural node.
func (w *Trx) structural(key int64) (tree.StructuralNode, bool) {
	n, ok := w.record(key)
	if !ok {
		return nil, false
	}
	sn, isStruct := n.(tree.StructuralNode)
	return sn, isStruct
}
