// Package rtx implements the read-only node transaction: a navigational
// cursor over one revision of the tree. The write transaction embeds the
// same cursor over its page write transaction.
//
// A cursor holds a single current node. Move methods return whether the
// move happened; on a failed move the cursor stays where it was.
package rtx

import (
	"errors"
	"fmt"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/page"
)

// ErrClosed indicates use of a closed transaction.
var ErrClosed = errors.New("rtx: transaction closed")

// ReadTx is a cursor over one revision.
type ReadTx struct {
	src    page.Reader
	cur    tree.Node
	closed bool
}

// New opens a cursor positioned on the document root.
func New(src page.Reader) (*ReadTx, error) {
	r := &ReadTx{src: src}
	if !r.MoveToDocumentRoot() {
		return nil, fmt.Errorf("rtx: revision %d has no document root", src.RevisionNumber())
	}
	return r, nil
}

// Close releases the cursor.
func (r *ReadTx) Close() {
	r.closed = true
	r.cur = nil
}

// Closed reports whether the cursor has been closed.
func (r *ReadTx) Closed() bool { return r.closed }

// AssertOpen returns ErrClosed after Close.
func (r *ReadTx) AssertOpen() error {
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Source returns the underlying page view.
func (r *ReadTx) Source() page.Reader { return r.src }

// SetSource swaps the underlying page view. The write transaction uses
// this when it reopens its page transaction after commit, rollback or
// revert; the cursor must be repositioned afterwards.
func (r *ReadTx) SetSource(src page.Reader) { r.src = src }

// RevisionNumber returns the revision the cursor works against.
func (r *ReadTx) RevisionNumber() uint32 { return r.src.RevisionNumber() }

// CommitMeta returns the commit metadata of the base revision.
func (r *ReadTx) CommitMeta() page.CommitMeta { return r.src.CommitMeta() }

// MaxNodeKey returns the highest allocated node key.
func (r *ReadTx) MaxNodeKey() int64 { return r.src.MaxNodeKey() }

// CurrentNode returns the node under the cursor.
func (r *ReadTx) CurrentNode() tree.Node { return r.cur }

// SetCurrentNode repositions the cursor onto an already-resolved node.
// Used by the write transaction after creating or preparing records.
func (r *ReadTx) SetCurrentNode(n tree.Node) { r.cur = n }

// Structural returns the current node as a structural node. It must
// only be called when the current node is structural.
func (r *ReadTx) Structural() tree.StructuralNode {
	return r.cur.(tree.StructuralNode)
}

// NodeKey returns the key of the current node.
func (r *ReadTx) NodeKey() int64 { return r.cur.NodeKey() }

// Kind returns the kind of the current node.
func (r *ReadTx) Kind() tree.Kind { return r.cur.Kind() }

// Hash returns the stored hash of the current node.
func (r *ReadTx) Hash() int64 { return r.cur.Hash() }

// MoveTo positions the cursor on the node with the given key.
func (r *ReadTx) MoveTo(key int64) bool {
	if r.closed || key == tree.NullKey {
		return false
	}
	n, ok, err := r.src.GetRecord(key)
	if err != nil || !ok {
		return false
	}
	r.cur = n
	return true
}

// MoveToDocumentRoot positions the cursor on the document root.
func (r *ReadTx) MoveToDocumentRoot() bool {
	return r.MoveTo(tree.DocumentRootKey)
}

// MoveToParent positions the cursor on the parent.
func (r *ReadTx) MoveToParent() bool {
	return r.MoveTo(r.cur.ParentKey())
}

// MoveToFirstChild positions the cursor on the first structural child.
func (r *ReadTx) MoveToFirstChild() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	if !ok {
		return false
	}
	return r.MoveTo(sn.FirstChildKey())
}

// MoveToLeftSibling positions the cursor on the left sibling.
func (r *ReadTx) MoveToLeftSibling() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	if !ok {
		return false
	}
	return r.MoveTo(sn.LeftSiblingKey())
}

// MoveToRightSibling positions the cursor on the right sibling.
func (r *ReadTx) MoveToRightSibling() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	if !ok {
		return false
	}
	return r.MoveTo(sn.RightSiblingKey())
}

// MoveToAttribute positions the cursor on attribute i of the current
// element.
func (r *ReadTx) MoveToAttribute(i int) bool {
	el, ok := r.cur.(*tree.ElementNode)
	if !ok || i < 0 || i >= el.AttributeCount() {
		return false
	}
	return r.MoveTo(el.AttributeKey(i))
}

// MoveToNamespace positions the cursor on namespace i of the current
// element.
func (r *ReadTx) MoveToNamespace(i int) bool {
	el, ok := r.cur.(*tree.ElementNode)
	if !ok || i < 0 || i >= el.NamespaceCount() {
		return false
	}
	return r.MoveTo(el.NamespaceKey(i))
}

// HasParent reports whether the current node has a parent.
func (r *ReadTx) HasParent() bool { return r.cur.HasParent() }

// HasFirstChild reports whether the current node has a structural child.
func (r *ReadTx) HasFirstChild() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	return ok && sn.HasFirstChild()
}

// HasLeftSibling reports whether the current node has a left sibling.
func (r *ReadTx) HasLeftSibling() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	return ok && sn.HasLeftSibling()
}

// HasRightSibling reports whether the current node has a right sibling.
func (r *ReadTx) HasRightSibling() bool {
	sn, ok := r.cur.(tree.StructuralNode)
	return ok && sn.HasRightSibling()
}

// IsDocumentRoot reports whether the cursor is on the document root.
func (r *ReadTx) IsDocumentRoot() bool { return r.cur.Kind() == tree.KindDocumentRoot }

// IsElement reports whether the cursor is on an element.
func (r *ReadTx) IsElement() bool { return r.cur.Kind() == tree.KindElement }

// IsText reports whether the cursor is on a text node.
func (r *ReadTx) IsText() bool { return r.cur.Kind() == tree.KindText }

// IsAttribute reports whether the cursor is on an attribute.
func (r *ReadTx) IsAttribute() bool { return r.cur.Kind() == tree.KindAttribute }

// IsNamespace reports whether the cursor is on a namespace.
func (r *ReadTx) IsNamespace() bool { return r.cur.Kind() == tree.KindNamespace }

// IsStructural reports whether the cursor is on a structural node.
func (r *ReadTx) IsStructural() bool { return r.cur.Kind().Structural() }

// ChildCount returns the structural child count of the current node, or
// zero for non-structural nodes.
func (r *ReadTx) ChildCount() uint64 {
	if sn, ok := r.cur.(tree.StructuralNode); ok {
		return sn.ChildCount()
	}
	return 0
}

// DescendantCount returns the descendant count of the current node, or
// zero for non-structural nodes.
func (r *ReadTx) DescendantCount() uint64 {
	if sn, ok := r.cur.(tree.StructuralNode); ok {
		return sn.DescendantCount()
	}
	return 0
}

// AttributeCount returns the attribute count of the current element.
func (r *ReadTx) AttributeCount() int {
	if el, ok := r.cur.(*tree.ElementNode); ok {
		return el.AttributeCount()
	}
	return 0
}

// NamespaceCount returns the namespace count of the current element.
func (r *ReadTx) NamespaceCount() int {
	if el, ok := r.cur.(*tree.ElementNode); ok {
		return el.NamespaceCount()
	}
	return 0
}

// Name returns the qualified name of the current node, or the zero
// QName for unnamed kinds.
func (r *ReadTx) Name() tree.QName {
	nn, ok := r.cur.(tree.NamedNode)
	if !ok {
		return tree.QName{}
	}
	return tree.QName{
		Prefix: r.src.GetName(nn.PrefixKey(), r.cur.Kind()),
		Local:  r.src.GetName(nn.LocalNameKey(), r.cur.Kind()),
		URI:    r.src.GetName(nn.URIKey(), tree.KindNamespace),
	}
}

// Value returns the decoded value of the current node, or "" for
// unvalued kinds.
func (r *ReadTx) Value() string {
	if vn, ok := r.cur.(tree.ValuedNode); ok {
		return string(vn.Value())
	}
	return ""
}

// PathNodeKey returns the path summary link of the current node, or
// tree.NullKey for unnamed kinds.
func (r *ReadTx) PathNodeKey() int64 {
	if nn, ok := r.cur.(tree.NamedNode); ok {
		return nn.PathNodeKey()
	}
	return tree.NullKey
}
