// Package index forwards node change notifications from the write
// transaction to pluggable index listeners.
//
// The write transaction emits one notification per inserted or removed
// node — including every node of a moved subtree, before and after the
// move — together with the node's path node key. Listeners decide what
// to index; the built-in path index keeps the set of node keys per path.
package index

import (
	"go.uber.org/zap"

	"github.com/joshuapare/treekit/tree"
)

// ChangeType discriminates insertions from deletions.
type ChangeType int

// Change types.
const (
	Insert ChangeType = iota + 1
	Delete
)

func (c ChangeType) String() string {
	switch c {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Listener consumes change notifications for one index.
type Listener interface {
	Listen(change ChangeType, node tree.Node, pathNodeKey int64)
}

// Def describes one index to build: a name and the set of path node
// keys it covers. An empty path set covers every path.
type Def struct {
	Name  string
	Paths []int64
}

// Controller fans change notifications out to the listeners built from
// the current index definitions. Listeners are rebuilt whenever the
// write transaction swaps its page transaction.
type Controller struct {
	defs      []Def
	listeners []Listener
	logger    *zap.Logger
}

// NewController creates a controller with no definitions. A nil logger
// defaults to zap.NewNop().
func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{logger: logger}
}

// Defs returns the current index definitions.
func (c *Controller) Defs() []Def { return c.defs }

// CreateIndexListeners replaces the listener set from the given
// definitions. Each definition is served by a fresh PathIndex.
func (c *Controller) CreateIndexListeners(defs []Def) {
	c.defs = defs
	c.listeners = c.listeners[:0]
	for _, def := range defs {
		c.listeners = append(c.listeners, NewPathIndex(def))
	}
	c.logger.Debug("index listeners rebuilt", zap.Int("count", len(defs)))
}

// AddListener registers an externally built listener.
func (c *Controller) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Listeners returns the live listener set.
func (c *Controller) Listeners() []Listener { return c.listeners }

// NotifyChange forwards one change to every listener.
func (c *Controller) NotifyChange(change ChangeType, node tree.Node, pathNodeKey int64) {
	for _, l := range c.listeners {
		l.Listen(change, node, pathNodeKey)
	}
}

// PathIndex is the built-in listener: the set of node keys per path
// node key, restricted to the definition's paths.
type PathIndex struct {
	def    Def
	byPath map[int64]map[int64]struct{}
}

// NewPathIndex creates an empty path index for the definition.
func NewPathIndex(def Def) *PathIndex {
	return &PathIndex{def: def, byPath: make(map[int64]map[int64]struct{})}
}

// covered reports whether the path is inside the definition.
func (p *PathIndex) covered(pathNodeKey int64) bool {
	if len(p.def.Paths) == 0 {
		return true
	}
	for _, path := range p.def.Paths {
		if path == pathNodeKey {
			return true
		}
	}
	return false
}

func (p *PathIndex) Listen(change ChangeType, node tree.Node, pathNodeKey int64) {
	if pathNodeKey == tree.NullKey || !p.covered(pathNodeKey) {
		return
	}
	switch change {
	case Insert:
		set, ok := p.byPath[pathNodeKey]
		if !ok {
			set = make(map[int64]struct{})
			p.byPath[pathNodeKey] = set
		}
		set[node.NodeKey()] = struct{}{}
	case Delete:
		if set, ok := p.byPath[pathNodeKey]; ok {
			delete(set, node.NodeKey())
			if len(set) == 0 {
				delete(p.byPath, pathNodeKey)
			}
		}
	}
}

// Keys returns the node keys indexed under a path node key.
func (p *PathIndex) Keys(pathNodeKey int64) []int64 {
	set := p.byPath[pathNodeKey]
	out := make([]int64, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}

// Size returns the total number of indexed node keys.
func (p *PathIndex) Size() int {
	total := 0
	for _, set := range p.byPath {
		total += len(set)
	}
	return total
}
