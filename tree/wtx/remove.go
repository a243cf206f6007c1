package wtx

import (
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/index"
	"github.com/joshuapare/treekit/tree/resource"
	"github.com/joshuapare/treekit/tree/rtx"
)

// Remove deletes the current node and its subtree. Text siblings left
// adjacent by the removal are merged. The cursor lands on the former
// right sibling, else the left sibling, else the parent.
func (w *Trx) Remove() error {
	w.acquireLock()
	defer w.releaseLock()
	return w.removeInternal()
}

func (w *Trx) removeInternal() error {
	if err := w.assertOpen(); err != nil {
		return err
	}
	if w.IsDocumentRoot() {
		return ErrDocumentRootRemoval
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	switch {
	case w.IsStructural():
		node := w.Structural()

		// Delete the descendants bottom-up; the subtree root itself is
		// handled by adaptForRemove so the ancestor hash walk still
		// sees it.
		var descendants []int64
		axis := rtx.NewPostOrderAxis(w.pageTx, node.NodeKey())
		for key, ok := axis.Next(); ok; key, ok = axis.Next() {
			if key != node.NodeKey() {
				descendants = append(descendants, key)
			}
		}
		for _, key := range descendants {
			if err := w.deleteSingleNode(key); err != nil {
				return err
			}
		}

		if err := w.adaptForRemove(node); err != nil {
			return err
		}

		w.SetCurrentNode(node)
		if err := w.adaptHashesWithRemove(); err != nil {
			return err
		}

		// Reposition: right sibling, else left sibling, else parent.
		// The right sibling may have been merged away.
		if !w.MoveTo(node.RightSiblingKey()) {
			if !w.MoveTo(node.LeftSiblingKey()) {
				w.MoveTo(node.ParentKey())
			}
		}
		return nil

	case w.IsAttribute():
		node := w.CurrentNode()
		parent, err := w.prepare(node.ParentKey())
		if err != nil {
			return err
		}
		parent.(*tree.ElementNode).RemoveAttribute(node.NodeKey())
		w.SetCurrentNode(node)
		if err := w.adaptHashesWithRemove(); err != nil {
			return err
		}
		w.notifyDelete(node)
		w.removeNameOf(node)
		if err := w.pageTx.RemoveEntry(node.NodeKey()); err != nil {
			return err
		}
		w.MoveTo(node.ParentKey())
		return nil

	case w.IsNamespace():
		node := w.CurrentNode()
		parent, err := w.prepare(node.ParentKey())
		if err != nil {
			return err
		}
		parent.(*tree.ElementNode).RemoveNamespace(node.NodeKey())
		w.SetCurrentNode(node)
		if err := w.adaptHashesWithRemove(); err != nil {
			return err
		}
		w.notifyDelete(node)
		w.removeNameOf(node)
		if err := w.pageTx.RemoveEntry(node.NodeKey()); err != nil {
			return err
		}
		w.MoveTo(node.ParentKey())
		return nil
	}
	return ErrNotStructural
}

// deleteSingleNode removes one subtree node: its attributes and
// namespaces (for elements), its index entries, its interned names, and
// finally its record. No hash or topology adaptation happens here; the
// subtree root's removal accounts for the whole subtree.
func (w *Trx) deleteSingleNode(key int64) error {
	node, ok := w.record(key)
	if !ok {
		return ErrNodeGone
	}
	if el, isElement := node.(*tree.ElementNode); isElement {
		for i := 0; i < el.AttributeCount(); i++ {
			if att, ok := w.record(el.AttributeKey(i)); ok {
				w.notifyDelete(att)
				w.removeNameOf(att)
				if err := w.pageTx.RemoveEntry(att.NodeKey()); err != nil {
					return err
				}
			}
		}
		for i := 0; i < el.NamespaceCount(); i++ {
			if ns, ok := w.record(el.NamespaceKey(i)); ok {
				w.notifyDelete(ns)
				w.removeNameOf(ns)
				if err := w.pageTx.RemoveEntry(ns.NodeKey()); err != nil {
					return err
				}
			}
		}
	}
	w.notifyDelete(node)
	w.removeNameOf(node)
	return w.pageTx.RemoveEntry(key)
}

// notifyDelete emits one DELETE notification for a node with its path
// node key (own key for named nodes, the parent element's for value
// nodes).
func (w *Trx) notifyDelete(node tree.Node) {
	pathNodeKey := tree.NullKey
	if nn, ok := node.(tree.NamedNode); ok {
		pathNodeKey = nn.PathNodeKey()
	} else {
		pathNodeKey = w.parentPathNodeKey(node)
	}
	w.indexCtl.NotifyChange(index.Delete, node, pathNodeKey)
}

// removeNameOf retires the interned name of a named node and its path
// summary reference.
func (w *Trx) removeNameOf(node tree.Node) {
	nn, ok := node.(tree.NamedNode)
	if !ok {
		return
	}
	kind := node.Kind()
	w.pageTx.RemoveName(nn.PrefixKey(), kind)
	w.pageTx.RemoveName(nn.LocalNameKey(), kind)
	w.pageTx.RemoveName(nn.URIKey(), tree.KindNamespace)
	if w.pathWriter != nil {
		w.pathWriter.Remove(nn)
	}
}

// adaptForRemove unlinks a subtree root: merges text siblings the
// removal leaves adjacent, repoints siblings and parent, fixes counts,
// and deletes the root's non-structural children and record.
func (w *Trx) adaptForRemove(oldNode tree.StructuralNode) error {
	// Merge adjacent text siblings into the left one; the right sibling
	// is deleted below.
	concatenated := false
	var mergedRightKey int64 = tree.NullKey
	if oldNode.HasLeftSibling() && oldNode.HasRightSibling() {
		left, leftOK := w.structural(oldNode.LeftSiblingKey())
		right, rightOK := w.structural(oldNode.RightSiblingKey())
		if leftOK && rightOK && left.Kind() == tree.KindText && right.Kind() == tree.KindText {
			merged := string(left.(tree.ValuedNode).Value()) + string(right.(tree.ValuedNode).Value())

			oldHash := nodeHash(left)
			leftPrepared, err := w.prepare(left.NodeKey())
			if err != nil {
				return err
			}
			leftPrepared.(tree.ValuedNode).SetValue([]byte(merged), w.cfg.UseCompression)
			w.SetCurrentNode(leftPrepared)
			if err := w.adaptHashesWithUpdate(oldHash); err != nil {
				return err
			}

			// The absorbed right text node leaves the tree: subtract
			// its hash and descendant contribution before unlinking.
			mergedRightKey = right.NodeKey()
			concatenated = true
			if w.cfg.HashMode == resource.HashRolling {
				w.SetCurrentNode(right)
				if err := w.adaptHashesWithRemove(); err != nil {
					return err
				}
			}
		}
	}

	// Left sibling: skip over the removed node (and the merged-away
	// right text node).
	if oldNode.HasLeftSibling() {
		leftSibling, err := w.prepareStruct(oldNode.LeftSiblingKey())
		if err != nil {
			return err
		}
		if concatenated {
			right, ok := w.structural(mergedRightKey)
			if !ok {
				return ErrNodeGone
			}
			leftSibling.SetRightSiblingKey(right.RightSiblingKey())
		} else {
			leftSibling.SetRightSiblingKey(oldNode.RightSiblingKey())
		}
	}

	// Right sibling back-pointer.
	if oldNode.HasRightSibling() {
		if concatenated {
			right, ok := w.structural(mergedRightKey)
			if !ok {
				return ErrNodeGone
			}
			if right.HasRightSibling() {
				afterMerged, err := w.prepareStruct(right.RightSiblingKey())
				if err != nil {
					return err
				}
				afterMerged.SetLeftSiblingKey(oldNode.LeftSiblingKey())
			}
		} else {
			rightSibling, err := w.prepareStruct(oldNode.RightSiblingKey())
			if err != nil {
				return err
			}
			rightSibling.SetLeftSiblingKey(oldNode.LeftSiblingKey())
		}
	}

	// Parent: first-child pointer and child count; a merge removes one
	// more child and one more descendant along the whole chain.
	parent, err := w.prepareStruct(oldNode.ParentKey())
	if err != nil {
		return err
	}
	if !oldNode.HasLeftSibling() {
		parent.SetFirstChildKey(oldNode.RightSiblingKey())
	}
	parent.DecrementChildCount()
	if concatenated {
		parent.DecrementChildCount()
		if w.cfg.HashMode != resource.HashRolling {
			// Rolling mode already adjusted descendant counts when the
			// merged text node's hash was subtracted.
			parent.DecrementDescendantCount()
			for key := parent.ParentKey(); key != tree.NullKey; {
				ancestor, err := w.prepareStruct(key)
				if err != nil {
					return err
				}
				ancestor.DecrementDescendantCount()
				key = ancestor.ParentKey()
			}
		}
	}

	// Delete the merged-away right text node.
	if concatenated {
		if right, ok := w.record(mergedRightKey); ok {
			w.notifyDelete(right)
		}
		if err := w.pageTx.RemoveEntry(mergedRightKey); err != nil {
			return err
		}
	}

	// Delete the root's attributes and namespaces, then the root.
	if el, isElement := oldNode.(*tree.ElementNode); isElement {
		for i := 0; i < el.AttributeCount(); i++ {
			if att, ok := w.record(el.AttributeKey(i)); ok {
				w.notifyDelete(att)
				w.removeNameOf(att)
				if err := w.pageTx.RemoveEntry(att.NodeKey()); err != nil {
					return err
				}
			}
		}
		for i := 0; i < el.NamespaceCount(); i++ {
			if ns, ok := w.record(el.NamespaceKey(i)); ok {
				w.notifyDelete(ns)
				w.removeNameOf(ns)
				if err := w.pageTx.RemoveEntry(ns.NodeKey()); err != nil {
					return err
				}
			}
		}
	}
	w.notifyDelete(oldNode)
	w.removeNameOf(oldNode)
	return w.pageTx.RemoveEntry(oldNode.NodeKey())
}
