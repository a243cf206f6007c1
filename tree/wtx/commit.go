package wtx

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/page"
	"github.com/joshuapare/treekit/tree/pathsummary"
)

// Commit seals the working revision: pre-commit hooks run first, the
// page transaction commits to a new uber page, the transaction is
// reinstantiated on the new head, and post-commit hooks run last. An
// empty message is allowed.
func (w *Trx) Commit(message string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.commitInternal(message)
}

func (w *Trx) commitInternal(message string) error {
	if err := w.assertOpen(); err != nil {
		return err
	}

	for _, hook := range w.preCommitHooks {
		if err := hook(w); err != nil {
			return fmt.Errorf("pre-commit hook: %w", err)
		}
	}

	w.modificationCount = 0

	if err := w.mgr.WriteCommitMarker(); err != nil {
		return fmt.Errorf("write commit marker: %w", err)
	}
	uber, err := w.pageTx.Commit(message)
	if err != nil {
		return fmt.Errorf("page commit: %w", err)
	}
	if err := w.mgr.RemoveCommitMarker(); err != nil {
		return fmt.Errorf("remove commit marker: %w", err)
	}

	w.reinstantiate(uber)

	w.logger.Info("committed",
		zap.Uint32("revision", uber.Revision()),
		zap.String("commit", uber.Meta().ID.String()),
		zap.String("message", message))

	for _, hook := range w.postCommitHooks {
		if err := hook(w); err != nil {
			return fmt.Errorf("post-commit hook: %w", err)
		}
	}
	return nil
}

// Rollback discards every modification since the last commit and
// reopens the transaction on the last durable revision.
func (w *Trx) Rollback() error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}

	w.modificationCount = 0

	uber, err := w.pageTx.Rollback()
	if err != nil {
		return fmt.Errorf("page rollback: %w", err)
	}
	w.pageTx.ClearCaches()
	w.pageTx.CloseCaches()
	if err := w.mgr.RemoveCommitMarker(); err != nil {
		return fmt.Errorf("remove commit marker: %w", err)
	}

	w.reinstantiate(uber)
	w.MoveToDocumentRoot()

	w.logger.Info("rolled back", zap.Uint32("revision", uber.Revision()))
	return nil
}

// RevertTo reopens the transaction with an older committed revision as
// its base; the next commit creates a new head on top of it. The cursor
// moves to the document root.
func (w *Trx) RevertTo(revision uint32) error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}
	if err := w.mgr.AssertAccess(revision); err != nil {
		return err
	}

	uber, err := w.mgr.Store().Revision(revision)
	if err != nil {
		return err
	}
	w.pageTx.CloseCaches()
	w.modificationCount = 0

	w.reinstantiate(uber)
	w.MoveToDocumentRoot()

	w.logger.Info("reverted",
		zap.Uint32("to", revision),
		zap.Uint32("nextRevision", w.pageTx.RevisionNumber()))
	return nil
}

// reinstantiate opens a fresh page write transaction on top of the
// given uber page and rebuilds everything bound to the old one: the
// cursor source, the node factory, the path summary and the index
// listeners.
func (w *Trx) reinstantiate(base *page.UberPage) {
	w.pageTx = w.mgr.Store().BeginWriteTx(base)
	w.SetSource(w.pageTx)
	w.factory = tree.NewFactory(w.pageTx, w.pageTx, w.cfg.UseCompression)

	if w.cfg.WithPathSummary {
		w.pathWriter = pathsummary.NewWriter(w)
		w.rebuildPathSummary()
	}
	w.indexCtl.CreateIndexListeners(w.indexCtl.Defs())

	if !w.MoveTo(w.NodeKey()) {
		w.MoveToDocumentRoot()
	}
}

// Close releases the transaction. Uncommitted modifications must be
// committed or rolled back first. The auto-commit scheduler gets a
// bounded join deadline.
func (w *Trx) Close() error {
	w.acquireLock()
	if w.closed {
		w.releaseLock()
		return nil
	}
	if w.modificationCount > 0 {
		w.releaseLock()
		return ErrUncommittedChanges
	}
	w.closed = true
	w.releaseLock()

	// Stop the scheduler outside the lock; a scheduled commit may be
	// waiting on it.
	if w.ticker != nil {
		w.ticker.Stop()
		close(w.done)
		select {
		case <-w.workerDone:
		case <-time.After(schedulerJoinDeadline):
			return ErrSchedulerShutdown
		}
	}

	w.pageTx.CloseCaches()
	if err := w.mgr.RemoveCommitMarker(); err != nil {
		w.logger.Warn("remove commit marker", zap.Error(err))
	}
	w.ReadTx.Close()
	w.mgr.ReleaseWriter()

	w.logger.Debug("write transaction closed")
	return nil
}
