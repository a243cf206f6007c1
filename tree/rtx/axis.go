package rtx

import (
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/page"
)

// The axes iterate node keys without disturbing any cursor. They read
// through a page.Reader directly; callers position their own cursor on
// the yielded keys when they need one.

// DescendantAxis yields the subtree under start in document (pre-)
// order.
type DescendantAxis struct {
	src         page.Reader
	start       int64
	next        int64
	includeSelf bool
	started     bool
	done        bool
}

// NewDescendantAxis creates a pre-order axis over the subtree rooted at
// start.
func NewDescendantAxis(src page.Reader, start int64, includeSelf bool) *DescendantAxis {
	return &DescendantAxis{src: src, start: start, next: start, includeSelf: includeSelf}
}

func structAt(src page.Reader, key int64) tree.StructuralNode {
	n, ok, err := src.GetRecord(key)
	if err != nil || !ok {
		return nil
	}
	sn, _ := n.(tree.StructuralNode)
	return sn
}

// Next returns the next key in document order, or false when the
// subtree is exhausted.
func (a *DescendantAxis) Next() (int64, bool) {
	if a.done {
		return tree.NullKey, false
	}
	if !a.started {
		a.started = true
		if !a.includeSelf {
			if !a.advanceFrom(a.start) {
				return tree.NullKey, false
			}
		}
		return a.next, true
	}
	if !a.advanceFrom(a.next) {
		return tree.NullKey, false
	}
	return a.next, true
}

// advanceFrom computes the pre-order successor of key within the
// subtree.
func (a *DescendantAxis) advanceFrom(key int64) bool {
	sn := structAt(a.src, key)
	if sn == nil {
		a.done = true
		return false
	}
	if sn.HasFirstChild() {
		a.next = sn.FirstChildKey()
		return true
	}
	for {
		if key == a.start {
			a.done = true
			return false
		}
		if sn.HasRightSibling() {
			a.next = sn.RightSiblingKey()
			return true
		}
		key = sn.ParentKey()
		sn = structAt(a.src, key)
		if sn == nil {
			a.done = true
			return false
		}
	}
}

// PostOrderAxis yields the subtree under start in post-order: children
// before their parent, the start node last.
type PostOrderAxis struct {
	src     page.Reader
	start   int64
	next    int64
	started bool
	done    bool
}

// NewPostOrderAxis creates a post-order axis over the subtree rooted at
// start. The start node itself is always included (last).
func NewPostOrderAxis(src page.Reader, start int64) *PostOrderAxis {
	return &PostOrderAxis{src: src, start: start}
}

// leftmostLeaf drills down to the deepest first child under key.
func (a *PostOrderAxis) leftmostLeaf(key int64) int64 {
	for {
		sn := structAt(a.src, key)
		if sn == nil || !sn.HasFirstChild() {
			return key
		}
		key = sn.FirstChildKey()
	}
}

// Next returns the next key in post-order, or false when done.
func (a *PostOrderAxis) Next() (int64, bool) {
	if a.done {
		return tree.NullKey, false
	}
	if !a.started {
		a.started = true
		a.next = a.leftmostLeaf(a.start)
		if a.next == a.start {
			a.done = true
		}
		return a.next, true
	}
	sn := structAt(a.src, a.next)
	if sn == nil {
		a.done = true
		return tree.NullKey, false
	}
	if sn.HasRightSibling() {
		a.next = a.leftmostLeaf(sn.RightSiblingKey())
	} else {
		a.next = sn.ParentKey()
	}
	if a.next == a.start {
		a.done = true
	}
	return a.next, true
}

// LevelOrderAxis yields the subtree under start in breadth-first order.
// With non-structural nodes included, an element's namespaces and then
// attributes are enqueued before its structural children, so parents
// and left siblings are always yielded before the nodes that derive
// order keys from them.
type LevelOrderAxis struct {
	src                  page.Reader
	queue                []int64
	includeNonStructural bool
}

// NewLevelOrderAxis creates a breadth-first axis over the subtree
// rooted at start, excluding the start node itself.
func NewLevelOrderAxis(src page.Reader, start int64, includeNonStructural bool) *LevelOrderAxis {
	a := &LevelOrderAxis{src: src, includeNonStructural: includeNonStructural}
	a.enqueueChildren(start)
	return a
}

func (a *LevelOrderAxis) enqueueChildren(key int64) {
	n, ok, err := a.src.GetRecord(key)
	if err != nil || !ok {
		return
	}
	if el, isElement := n.(*tree.ElementNode); isElement && a.includeNonStructural {
		for i := 0; i < el.NamespaceCount(); i++ {
			a.queue = append(a.queue, el.NamespaceKey(i))
		}
		for i := 0; i < el.AttributeCount(); i++ {
			a.queue = append(a.queue, el.AttributeKey(i))
		}
	}
	if sn, isStruct := n.(tree.StructuralNode); isStruct {
		for child := sn.FirstChildKey(); child != tree.NullKey; {
			a.queue = append(a.queue, child)
			next := structAt(a.src, child)
			if next == nil {
				break
			}
			child = next.RightSiblingKey()
		}
	}
}

// Next returns the next key in level order, or false when done.
func (a *LevelOrderAxis) Next() (int64, bool) {
	if len(a.queue) == 0 {
		return tree.NullKey, false
	}
	key := a.queue[0]
	a.queue = a.queue[1:]
	a.enqueueChildren(key)
	return key, true
}
