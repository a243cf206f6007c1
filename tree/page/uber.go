package page

import (
	"time"

	"github.com/google/uuid"

	"github.com/joshuapare/treekit/tree"
)

// CommitMeta records who committed a revision, when, and why.
type CommitMeta struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UberPage is the root page of one committed revision: the immutable
// page directory, the name dictionary snapshot, the node key watermark
// and the commit metadata. Adjacent revisions share unmodified pages.
type UberPage struct {
	revision   uint32
	maxNodeKey int64
	pages      map[int64]*RecordPage
	names      *NameDictionary
	meta       CommitMeta
	bootstrap  bool
}

// Revision returns the revision number this uber page roots.
func (u *UberPage) Revision() uint32 { return u.revision }

// MaxNodeKey returns the highest node key allocated up to this revision.
func (u *UberPage) MaxNodeKey() int64 { return u.maxNodeKey }

// Meta returns the commit metadata.
func (u *UberPage) Meta() CommitMeta { return u.meta }

// IsBootstrap reports whether this is the synthetic revision 0 created
// when the resource was bootstrapped.
func (u *UberPage) IsBootstrap() bool { return u.bootstrap }

// getRecord resolves a node key against the page directory.
func (u *UberPage) getRecord(key int64) (tree.Node, bool) {
	p, ok := u.pages[pageNoForKey(key)]
	if !ok {
		return nil, false
	}
	return p.get(key)
}

// RecordCount returns the number of live records across all pages.
func (u *UberPage) RecordCount() int {
	total := 0
	for _, p := range u.pages {
		total += p.Len()
	}
	return total
}
