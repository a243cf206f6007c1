package wtx

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/events"
	"github.com/joshuapare/treekit/tree/rtx"
)

// InsertSubtreeAsFirstChild bulk-inserts an event stream as the first
// child of the current structural node and commits.
func (w *Trx) InsertSubtreeAsFirstChild(r events.Reader) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertSubtree(r, asFirstChild, true)
}

// InsertSubtreeAsLeftSibling bulk-inserts an event stream as the left
// sibling of the current structural node and commits.
func (w *Trx) InsertSubtreeAsLeftSibling(r events.Reader) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertSubtree(r, asLeftSibling, true)
}

// InsertSubtreeAsRightSibling bulk-inserts an event stream as the right
// sibling of the current structural node and commits.
func (w *Trx) InsertSubtreeAsRightSibling(r events.Reader) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertSubtree(r, asRightSibling, true)
}

// insertSubtree shreds an event stream into the tree. Per-edit hashing
// is deferred: the inserted subtree is recomputed bottom-up afterwards
// and its root hash folded into the ancestor chain. With commit set the
// operation ends in a commit, matching bulk-load semantics.
func (w *Trx) insertSubtree(r events.Reader, pos insertPos, commit bool) error {
	if !w.IsStructural() {
		return ErrNotStructural
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	w.bulkInsert = true
	defer func() { w.bulkInsert = false }()

	topKeys, firstKey, err := w.shred(r, pos)
	if err != nil {
		return err
	}

	// Recompute each inserted subtree bottom-up, then fold it into the
	// ancestor chain. Top-level text nodes were accounted immediately
	// during the shred and are not in the list.
	w.bulkInsert = false
	for _, key := range topKeys {
		if err := w.postorderSubtree(key); err != nil {
			return err
		}
		if err := w.foldBulkInsert(key); err != nil {
			return err
		}
	}

	rootKey := firstKey
	if !w.MoveTo(rootKey) {
		return ErrNodeGone
	}
	if commit {
		if err := w.commitInternal(""); err != nil {
			return err
		}
		w.MoveTo(rootKey)
	}
	return nil
}

// shred replays an event stream through the insert operations. It
// returns the keys of the top-level nodes that still need the deferred
// hash recompute, plus the key of the first inserted (or merged)
// top-level node. Top-level text is inserted with hashing live because
// it may merge into a neighbour that predates the stream.
func (w *Trx) shred(r events.Reader, pos insertPos) ([]int64, int64, error) {
	var topKeys []int64
	firstKey := tree.NullKey
	// insertAs tracks where the next structural node goes; depth tracks
	// open elements. After an EndElement the cursor climbs back onto
	// the closed element and inserts continue as its right sibling.
	insertAs := pos
	depth := 0

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, firstKey, fmt.Errorf("read event stream: %w", err)
		}

		topLevel := false
		switch event.Kind {
		case events.StartElement:
			if err := w.insertElement(event.Name, insertAs); err != nil {
				return nil, firstKey, err
			}
			insertAs = asFirstChild
			depth++
			topLevel = depth == 1
		case events.EndElement:
			depth--
			if depth < 0 {
				return nil, firstKey, events.ErrMalformedStream
			}
			if insertAs == asFirstChild {
				// Empty element: stay on it.
				insertAs = asRightSibling
			} else {
				if !w.MoveToParent() {
					return nil, firstKey, events.ErrMalformedStream
				}
			}
		case events.Text:
			if depth == 0 {
				// May merge into a pre-existing neighbour: hash it now.
				w.bulkInsert = false
				err := w.insertText(event.Value, insertAs)
				w.bulkInsert = true
				if err != nil {
					return nil, firstKey, err
				}
				if firstKey == tree.NullKey {
					firstKey = w.NodeKey()
				}
			} else {
				if err := w.insertText(event.Value, insertAs); err != nil {
					return nil, firstKey, err
				}
			}
			insertAs = asRightSibling
		case events.Comment:
			if err := w.insertComment(event.Value, insertAs); err != nil {
				return nil, firstKey, err
			}
			insertAs = asRightSibling
			topLevel = depth == 0
		case events.ProcessingInstruction:
			if err := w.insertPI(event.Name.Local, event.Value, insertAs); err != nil {
				return nil, firstKey, err
			}
			insertAs = asRightSibling
			topLevel = depth == 0
		case events.Attribute:
			if !w.IsElement() {
				return nil, firstKey, events.ErrMalformedStream
			}
			if err := w.insertAttribute(event.Name, event.Value, MoveToParentElement); err != nil {
				return nil, firstKey, err
			}
		case events.Namespace:
			if !w.IsElement() {
				return nil, firstKey, events.ErrMalformedStream
			}
			if err := w.insertNamespace(event.Name, MoveToParentElement); err != nil {
				return nil, firstKey, err
			}
		default:
			return nil, firstKey, events.ErrMalformedStream
		}

		if topLevel {
			topKeys = append(topKeys, w.NodeKey())
			if firstKey == tree.NullKey {
				firstKey = w.NodeKey()
			}
		}
	}
	if depth != 0 || firstKey == tree.NullKey {
		return nil, firstKey, events.ErrMalformedStream
	}
	return topKeys, firstKey, nil
}

// CopySubtreeAsFirstChild copies the subtree under the source cursor as
// the first child of the current node, leaving the cursor on the copy.
func (w *Trx) CopySubtreeAsFirstChild(src *rtx.ReadTx) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.copySubtree(src, asFirstChild)
}

// CopySubtreeAsLeftSibling copies the subtree under the source cursor
// as the left sibling of the current node, leaving the cursor on the
// copy.
func (w *Trx) CopySubtreeAsLeftSibling(src *rtx.ReadTx) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.copySubtree(src, asLeftSibling)
}

// CopySubtreeAsRightSibling copies the subtree under the source cursor
// as the right sibling of the current node, leaving the cursor on the
// copy.
func (w *Trx) CopySubtreeAsRightSibling(src *rtx.ReadTx) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.copySubtree(src, asRightSibling)
}

// copySubtree replays a source subtree through the insert operations.
// Single value nodes take the direct path; elements stream through the
// shredder without the bulk commit.
func (w *Trx) copySubtree(src *rtx.ReadTx, pos insertPos) error {
	if err := src.AssertOpen(); err != nil {
		return err
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	srcKey := src.NodeKey()
	defer src.MoveTo(srcKey)
	if src.IsDocumentRoot() {
		if !src.MoveToFirstChild() {
			return ErrNodeGone
		}
	}
	if !src.IsStructural() {
		return ErrNotStructural
	}

	switch src.Kind() {
	case tree.KindText:
		return w.insertText(src.Value(), pos)
	case tree.KindComment:
		return w.insertComment(src.Value(), pos)
	case tree.KindProcessingInstruction:
		return w.insertPI(src.Name().Local, src.Value(), pos)
	default:
		anchorKey := w.NodeKey()
		if err := w.insertSubtree(events.NewTreeReader(src), pos, false); err != nil {
			return err
		}
		// Land on the copied subtree root.
		w.MoveTo(anchorKey)
		switch pos {
		case asFirstChild:
			w.MoveToFirstChild()
		case asLeftSibling:
			w.MoveToLeftSibling()
		default:
			w.MoveToRightSibling()
		}
		return nil
	}
}

// ReplaceNodeWithSubtree replaces the current structural node with the
// subtree described by an event stream.
func (w *Trx) ReplaceNodeWithSubtree(r events.Reader) error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}
	if !w.IsStructural() || w.IsDocumentRoot() {
		return ErrNotStructural
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	formerKey := w.NodeKey()
	cur := w.Structural()
	var anchorKey int64
	var pos insertPos
	if cur.HasLeftSibling() {
		anchorKey = cur.LeftSiblingKey()
		pos = asRightSibling
	} else {
		anchorKey = cur.ParentKey()
		pos = asFirstChild
	}

	if !w.MoveTo(anchorKey) {
		return ErrNodeGone
	}
	if err := w.insertSubtree(r, pos, false); err != nil {
		return err
	}
	insertedKey := w.NodeKey()

	if !w.MoveTo(formerKey) {
		return ErrNodeGone
	}
	if err := w.removeInternal(); err != nil {
		return err
	}
	w.MoveTo(insertedKey)
	return nil
}

// ReplaceNode replaces the current node with the node (or subtree)
// under the source cursor. Structural replacements choose
// remove-then-insert for a text current node to preserve sibling text
// merges, insert-then-remove otherwise. Attribute and namespace
// replacements remove and re-insert in place.
func (w *Trx) ReplaceNode(src *rtx.ReadTx) error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}

	switch src.Kind() {
	case tree.KindElement, tree.KindText, tree.KindComment, tree.KindProcessingInstruction:
		if !w.IsStructural() || w.IsDocumentRoot() {
			return ErrNotStructural
		}
		if w.IsText() {
			return w.removeAndThenInsert(src)
		}
		return w.insertAndThenRemove(src)

	case tree.KindAttribute:
		if !w.IsAttribute() {
			return ErrReplaceKindMismatch
		}
		if err := w.removeInternal(); err != nil {
			return err
		}
		return w.insertAttribute(src.Name(), src.Value(), MoveNone)

	case tree.KindNamespace:
		if !w.IsNamespace() {
			return ErrReplaceKindMismatch
		}
		if err := w.removeInternal(); err != nil {
			return err
		}
		return w.insertNamespace(src.Name(), MoveNone)

	default:
		return ErrReplaceKindMismatch
	}
}

// removeAndThenInsert removes the current node first so an adjacent
// text copy merges with the freed slot's neighbours.
func (w *Trx) removeAndThenInsert(src *rtx.ReadTx) error {
	cur := w.Structural()
	if cur.HasLeftSibling() {
		leftKey := cur.LeftSiblingKey()
		if err := w.removeInternal(); err != nil {
			return err
		}
		if !w.MoveTo(leftKey) {
			return ErrNodeGone
		}
		return w.copySubtree(src, asRightSibling)
	}
	parentKey := cur.ParentKey()
	if err := w.removeInternal(); err != nil {
		return err
	}
	if !w.MoveTo(parentKey) {
		return ErrNodeGone
	}
	return w.copySubtree(src, asFirstChild)
}

// insertAndThenRemove inserts the copy next to the current node before
// removing it.
func (w *Trx) insertAndThenRemove(src *rtx.ReadTx) error {
	cur := w.Structural()
	formerKey := cur.NodeKey()
	if cur.HasLeftSibling() {
		if !w.MoveToLeftSibling() {
			return ErrNodeGone
		}
		if err := w.copySubtree(src, asRightSibling); err != nil {
			return err
		}
	} else {
		if !w.MoveToParent() {
			return ErrNodeGone
		}
		if err := w.copySubtree(src, asFirstChild); err != nil {
			return err
		}
	}
	insertedKey := w.NodeKey()
	if !w.MoveTo(formerKey) {
		return ErrNodeGone
	}
	if err := w.removeInternal(); err != nil {
		return err
	}
	w.MoveTo(insertedKey)
	return nil
}
