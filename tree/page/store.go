package page

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// Store owns every committed revision of one resource. It is safe for
// concurrent readers; the single writer is enforced one level up by the
// resource manager.
type Store struct {
	mu        sync.RWMutex
	dir       string // "" keeps the store ephemeral
	author    string
	logger    *zap.Logger
	revisions []*UberPage
}

// StoreOptions configures a store.
type StoreOptions struct {
	// Dir is the directory revision snapshots are persisted to. Empty
	// keeps the store in memory only.
	Dir string

	// Author is recorded in the commit metadata of every revision.
	Author string

	// StoreDeweyIDs assigns an order key to the bootstrap document root
	// so that descendants can derive theirs.
	StoreDeweyIDs bool

	// HashEnabled seeds the bootstrap document root with its image
	// hash, the base every rolling update folds into.
	HashEnabled bool

	// Logger defaults to zap.NewNop().
	Logger *zap.Logger
}

// NewStore opens a store. If the directory already holds revision
// snapshots they are loaded; otherwise revision 0 is bootstrapped with a
// bare document root.
func NewStore(opts StoreOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{dir: opts.Dir, author: opts.Author, logger: logger}

	if opts.Dir != "" {
		loaded, err := loadRevisions(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("load revisions: %w", err)
		}
		if len(loaded) > 0 {
			s.revisions = loaded
			logger.Debug("store opened",
				zap.String("dir", opts.Dir),
				zap.Uint32("latest", s.revisions[len(s.revisions)-1].Revision()))
			return s, nil
		}
	}

	s.revisions = []*UberPage{bootstrapRevision(opts.StoreDeweyIDs, opts.HashEnabled)}
	if s.dir != "" {
		if err := appendSnapshot(s.dir, s.revisions[0]); err != nil {
			return nil, fmt.Errorf("persist bootstrap: %w", err)
		}
	}
	logger.Debug("store bootstrapped", zap.String("dir", opts.Dir))
	return s, nil
}

// bootstrapRevision builds revision 0: a single page holding the
// document root.
func bootstrapRevision(storeDeweyIDs, hashEnabled bool) *UberPage {
	var id *deweyid.ID
	if storeDeweyIDs {
		id = deweyid.NewRoot()
	}
	root := tree.NewDocumentRootNode(id)
	if hashEnabled {
		root.SetHash(encoding.Hash64(root.Image()))
	}
	p := newRecordPage(pageNoForKey(root.NodeKey()))
	p.put(root)
	return &UberPage{
		revision:   0,
		maxNodeKey: root.NodeKey(),
		pages:      map[int64]*RecordPage{p.pageNo: p},
		names:      NewNameDictionary(),
		meta:       CommitMeta{ID: uuid.New(), Timestamp: time.Now().UTC()},
		bootstrap:  true,
	}
}

// Latest returns the most recently committed uber page.
func (s *Store) Latest() *UberPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revisions[len(s.revisions)-1]
}

// LatestRevision returns the most recent revision number.
func (s *Store) LatestRevision() uint32 {
	return s.Latest().Revision()
}

// Revision returns the uber page of a committed revision.
func (s *Store) Revision(revision uint32) (*UberPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.revisions {
		if u.Revision() == revision {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrRevisionNotFound, revision)
}

// BeginWriteTx opens a page write transaction on top of base, targeting
// the next revision number after the latest committed one. Passing the
// latest uber page continues the head; passing an older one reverts.
func (s *Store) BeginWriteTx(base *UberPage) *WriteTx {
	s.mu.RLock()
	target := s.revisions[len(s.revisions)-1].Revision() + 1
	s.mu.RUnlock()

	pages := make(map[int64]*RecordPage, len(base.pages))
	for no, p := range base.pages {
		pages[no] = p
	}
	return &WriteTx{
		store:      s,
		base:       base,
		revision:   target,
		pages:      pages,
		dirty:      make(map[int64]struct{}),
		names:      base.names.Clone(),
		maxNodeKey: base.maxNodeKey,
	}
}

// BeginReadTx opens a reader pinned to a committed revision.
func (s *Store) BeginReadTx(revision uint32) (*ReadTx, error) {
	u, err := s.Revision(revision)
	if err != nil {
		return nil, err
	}
	return &ReadTx{uber: u}, nil
}

// commitRevision appends a freshly committed uber page and persists it.
func (s *Store) commitRevision(u *UberPage) error {
	s.mu.Lock()
	s.revisions = append(s.revisions, u)
	s.mu.Unlock()

	if s.dir != "" {
		if err := appendSnapshot(s.dir, u); err != nil {
			return fmt.Errorf("persist revision %d: %w", u.Revision(), err)
		}
	}
	s.logger.Debug("revision committed",
		zap.Uint32("revision", u.Revision()),
		zap.Int64("maxNodeKey", u.MaxNodeKey()),
		zap.String("commit", u.Meta().ID.String()))
	return nil
}
