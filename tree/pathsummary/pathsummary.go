// Package pathsummary maintains the secondary tree of distinct
// root-to-node name paths. Every named node stores the key of its path
// node; the summary answers path-existence queries in constant time and
// anchors per-path index definitions.
//
// Path nodes are reference-counted: inserting a node on an existing
// path bumps the count, removing the last user retires the path node
// (and any childless ancestors it leaves behind).
package pathsummary

import (
	"errors"

	"github.com/joshuapare/treekit/tree"
)

// RootPathNodeKey is the key of the synthetic root path node.
const RootPathNodeKey int64 = 0

// OpType tells the writer why a node's path is being adapted.
type OpType int

// Path adaptation operations.
const (
	// OpSetName renames a node in place.
	OpSetName OpType = iota + 1
	// OpMoved relocates a subtree under a different parent path.
	OpMoved
	// OpMovedOnSameLevel relocates a subtree among its siblings; the
	// path is unchanged and the writer does nothing.
	OpMovedOnSameLevel
)

// ErrPathNodeNotFound indicates a path node key with no live path node.
var ErrPathNodeNotFound = errors.New("pathsummary: path node not found")

// pathNode is one distinct (kind, name) step of a root-to-node path.
type pathNode struct {
	key      int64
	parent   *pathNode
	kind     tree.Kind
	name     tree.QName
	level    int
	refs     int
	children []*pathNode
}

// Cursor supplies the writer with the path context of the node the
// write transaction is currently positioned on. The write transaction
// implements it.
type Cursor interface {
	// CurrentPathNodeKey returns the path node key of the nearest named
	// ancestor-or-self of the insertion anchor, or RootPathNodeKey at
	// the document level.
	CurrentPathNodeKey() int64
}

// Writer builds and maintains the path summary for one write
// transaction lifetime. It is rebuilt whenever the transaction swaps
// its page transaction.
type Writer struct {
	cursor  Cursor
	root    *pathNode
	byKey   map[int64]*pathNode
	nextKey int64
}

// NewWriter creates a writer bound to the given cursor.
func NewWriter(cursor Cursor) *Writer {
	root := &pathNode{key: RootPathNodeKey, level: 0}
	return &Writer{
		cursor:  cursor,
		root:    root,
		byKey:   map[int64]*pathNode{RootPathNodeKey: root},
		nextKey: RootPathNodeKey,
	}
}

// GetPathNodeKey returns the path node key for a node of the given kind
// and name inserted under the cursor's current path context, creating
// the path node if the path is new.
func (w *Writer) GetPathNodeKey(name tree.QName, kind tree.Kind) int64 {
	parent := w.nodeFor(w.cursor.CurrentPathNodeKey())
	child := w.ensureChild(parent, kind, name)
	child.refs++
	return child.key
}

// nodeFor resolves a key, falling back to the root for unknown keys.
func (w *Writer) nodeFor(key int64) *pathNode {
	if n, ok := w.byKey[key]; ok {
		return n
	}
	return w.root
}

// ensureChild finds or creates the (kind, name) child of parent.
func (w *Writer) ensureChild(parent *pathNode, kind tree.Kind, name tree.QName) *pathNode {
	for _, c := range parent.children {
		if c.kind == kind && c.name.Equal(name) {
			return c
		}
	}
	w.nextKey++
	child := &pathNode{
		key:    w.nextKey,
		parent: parent,
		kind:   kind,
		name:   name,
		level:  parent.level + 1,
	}
	parent.children = append(parent.children, child)
	w.byKey[child.key] = child
	return child
}

// Restore re-registers a stored path node under the given parent path,
// keeping its persisted key. Used when the summary is rebuilt from the
// tree after the write transaction swaps its page transaction.
func (w *Writer) Restore(pathNodeKey, parentPathKey int64, name tree.QName, kind tree.Kind) {
	if n, ok := w.byKey[pathNodeKey]; ok {
		n.refs++
		return
	}
	parent := w.nodeFor(parentPathKey)
	child := &pathNode{
		key:    pathNodeKey,
		parent: parent,
		kind:   kind,
		name:   name,
		level:  parent.level + 1,
		refs:   1,
	}
	parent.children = append(parent.children, child)
	w.byKey[pathNodeKey] = child
	if pathNodeKey > w.nextKey {
		w.nextKey = pathNodeKey
	}
}

// EnsureChildPath finds or creates the (kind, name) child path of the
// given parent path and takes a reference on it. Used when a moved
// subtree is re-anchored.
func (w *Writer) EnsureChildPath(parentPathKey int64, name tree.QName, kind tree.Kind) int64 {
	child := w.ensureChild(w.nodeFor(parentPathKey), kind, name)
	child.refs++
	return child.key
}

// AdaptForChangedNode re-anchors a renamed or moved node and returns
// its new path node key. OpMovedOnSameLevel is a no-op and returns the
// node's existing key.
func (w *Writer) AdaptForChangedNode(node tree.NamedNode, name tree.QName, op OpType) int64 {
	if op == OpMovedOnSameLevel {
		return node.PathNodeKey()
	}

	old, ok := w.byKey[node.PathNodeKey()]
	parent := w.root
	if ok {
		parent = old.parent
		w.release(old)
	}
	if op == OpMoved {
		parent = w.nodeFor(w.cursor.CurrentPathNodeKey())
	}

	child := w.ensureChild(parent, node.Kind(), name)
	child.refs++
	return child.key
}

// Remove drops one reference from the path node of a removed named
// node.
func (w *Writer) Remove(node tree.NamedNode) {
	if n, ok := w.byKey[node.PathNodeKey()]; ok {
		w.release(n)
	}
}

// release decrements a reference and retires childless, unreferenced
// path nodes up the chain.
func (w *Writer) release(n *pathNode) {
	n.refs--
	for n != nil && n != w.root && n.refs <= 0 && len(n.children) == 0 {
		parent := n.parent
		for i, c := range parent.children {
			if c == n {
				parent.children = append(parent.children[:i], parent.children[i+1:]...)
				break
			}
		}
		delete(w.byKey, n.key)
		n = nil
		if parent != w.root && parent.refs <= 0 && len(parent.children) == 0 {
			n = parent
		}
	}
}

// GetPathSummary returns a read view over the current summary.
func (w *Writer) GetPathSummary() *Reader {
	return &Reader{writer: w}
}

// Reader is a read view over a writer's path summary.
type Reader struct {
	writer *Writer
}

// PathNodeCount returns the number of live path nodes, excluding the
// synthetic root.
func (r *Reader) PathNodeCount() int {
	return len(r.writer.byKey) - 1
}

// Level returns the level of a path node (root is 0).
func (r *Reader) Level(pathNodeKey int64) (int, error) {
	n, ok := r.writer.byKey[pathNodeKey]
	if !ok {
		return 0, ErrPathNodeNotFound
	}
	return n.level, nil
}

// Name returns the name step of a path node.
func (r *Reader) Name(pathNodeKey int64) (tree.QName, error) {
	n, ok := r.writer.byKey[pathNodeKey]
	if !ok {
		return tree.QName{}, ErrPathNodeNotFound
	}
	return n.name, nil
}

// References returns the number of nodes on the path.
func (r *Reader) References(pathNodeKey int64) (int, error) {
	n, ok := r.writer.byKey[pathNodeKey]
	if !ok {
		return 0, ErrPathNodeNotFound
	}
	return n.refs, nil
}

// PathExists reports whether a path of name steps exists from the root.
// Steps match path nodes by name only, whatever their node kind.
func (r *Reader) PathExists(steps ...tree.QName) bool {
	n := r.writer.root
outer:
	for _, step := range steps {
		for _, c := range n.children {
			if c.name.Equal(step) {
				n = c
				continue outer
			}
		}
		return false
	}
	return true
}
