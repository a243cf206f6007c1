// Package resource manages one stored resource: its configuration, its
// page store, the single-writer guarantee, and commit bookkeeping.
//
// A Manager is obtained with Open and hands out the page-level pieces
// the transaction packages build on. The node-level transactions live in
// the rtx and wtx packages; they take a Manager in their constructors.
package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshuapare/treekit/tree/page"
)

// commitMarkerFile exists while a commit is in flight. A leftover
// marker on open means the previous process died mid-commit; the
// snapshot log is authoritative, so the marker is only informational.
const commitMarkerFile = ".commit"

var (
	// ErrWriterActive indicates a second concurrent write transaction.
	ErrWriterActive = errors.New("resource: a write transaction is already active")

	// ErrClosed indicates use of a closed manager.
	ErrClosed = errors.New("resource: manager closed")

	// ErrNoSuchRevision indicates a revision that was never committed.
	ErrNoSuchRevision = errors.New("resource: no such revision")
)

// Options configures Open.
type Options struct {
	// Dir is the resource directory. Empty opens an ephemeral in-memory
	// resource (no locking, no persistence).
	Dir string

	// Config applies when the resource is created. An existing
	// resource keeps its stored configuration.
	Config *Config

	// Author is recorded in commit metadata.
	Author string

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// Manager owns one resource.
type Manager struct {
	mu           sync.Mutex
	id           uuid.UUID
	dir          string
	cfg          Config
	store        *page.Store
	logger       *zap.Logger
	lock         *dirLock
	writerActive bool
	closed       bool
}

// Open opens or creates a resource.
func Open(opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lock *dirLock
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create resource dir: %w", err)
		}
		var err error
		lock, err = acquireDirLock(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("lock resource dir: %w", err)
		}
		stored, ok, err := loadConfig(opts.Dir)
		if err != nil {
			lock.release()
			return nil, err
		}
		if ok {
			cfg = stored
		} else if err := saveConfig(opts.Dir, cfg); err != nil {
			lock.release()
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(opts.Dir, commitMarkerFile)); err == nil {
			logger.Warn("stale commit marker found; previous commit may have been interrupted",
				zap.String("dir", opts.Dir))
		}
	}

	store, err := page.NewStore(page.StoreOptions{
		Dir:           opts.Dir,
		Author:        opts.Author,
		StoreDeweyIDs: cfg.StoreDeweyIDs,
		HashEnabled:   cfg.HashMode != HashNone,
		Logger:        logger,
	})
	if err != nil {
		if lock != nil {
			lock.release()
		}
		return nil, err
	}

	m := &Manager{
		id:     uuid.New(),
		dir:    opts.Dir,
		cfg:    cfg,
		store:  store,
		logger: logger,
		lock:   lock,
	}
	logger.Info("resource opened",
		zap.String("resource", m.id.String()),
		zap.String("dir", opts.Dir),
		zap.Uint32("revision", store.LatestRevision()),
		zap.String("hashMode", cfg.HashMode.String()))
	return m, nil
}

// ID returns the resource identity of this manager instance.
func (m *Manager) ID() uuid.UUID { return m.id }

// Config returns the resource configuration.
func (m *Manager) Config() Config { return m.cfg }

// Store returns the page store.
func (m *Manager) Store() *page.Store { return m.store }

// Logger returns the resource logger.
func (m *Manager) Logger() *zap.Logger { return m.logger }

// LatestRevision returns the most recently committed revision number.
func (m *Manager) LatestRevision() uint32 { return m.store.LatestRevision() }

// AssertAccess validates that a revision exists.
func (m *Manager) AssertAccess(revision uint32) error {
	if _, err := m.store.Revision(revision); err != nil {
		return fmt.Errorf("%w: %d", ErrNoSuchRevision, revision)
	}
	return nil
}

// AcquireWriter claims the single writer slot.
func (m *Manager) AcquireWriter() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.writerActive {
		return ErrWriterActive
	}
	m.writerActive = true
	return nil
}

// ReleaseWriter frees the writer slot.
func (m *Manager) ReleaseWriter() {
	m.mu.Lock()
	m.writerActive = false
	m.mu.Unlock()
}

// WriteCommitMarker creates the in-flight commit marker.
func (m *Manager) WriteCommitMarker() error {
	if m.dir == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(m.dir, commitMarkerFile), nil, 0o644)
}

// RemoveCommitMarker deletes the commit marker if present.
func (m *Manager) RemoveCommitMarker() error {
	if m.dir == "" {
		return nil
	}
	err := os.Remove(filepath.Join(m.dir, commitMarkerFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close releases the directory lock. An active writer must be closed
// first.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if m.writerActive {
		return ErrWriterActive
	}
	m.closed = true
	if m.lock != nil {
		if err := m.lock.release(); err != nil {
			return fmt.Errorf("release dir lock: %w", err)
		}
	}
	m.logger.Info("resource closed", zap.String("resource", m.id.String()))
	return nil
}
