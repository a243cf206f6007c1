package wtx

import (
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/deweyid"
	"github.com/joshuapare/treekit/tree/index"
	"github.com/joshuapare/treekit/tree/pathsummary"
	"github.com/joshuapare/treekit/tree/resource"
	"github.com/joshuapare/treekit/tree/rtx"
)

// MoveSubtreeToFirstChild relocates the subtree rooted at fromKey to
// become the first child of the current element.
func (w *Trx) MoveSubtreeToFirstChild(fromKey int64) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.moveSubtreeToFirstChild(fromKey)
}

func (w *Trx) moveSubtreeToFirstChild(fromKey int64) error {
	toMove, err := w.checkMoveSource(fromKey)
	if err != nil {
		return err
	}
	if !w.IsElement() && !w.IsDocumentRoot() {
		return ErrNotElement
	}
	if err := w.checkAncestors(toMove.NodeKey()); err != nil {
		return err
	}
	if w.Structural().FirstChildKey() == fromKey {
		return nil
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}
	return w.moveSubtree(toMove, w.Structural(), asFirstChild)
}

// MoveSubtreeToRightSibling relocates the subtree rooted at fromKey to
// become the right sibling of the current structural node.
func (w *Trx) MoveSubtreeToRightSibling(fromKey int64) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.moveSubtreeToRightSibling(fromKey)
}

func (w *Trx) moveSubtreeToRightSibling(fromKey int64) error {
	toMove, err := w.checkMoveSource(fromKey)
	if err != nil {
		return err
	}
	if !w.IsStructural() || w.IsDocumentRoot() {
		return ErrNotStructural
	}
	if err := w.checkAncestors(toMove.NodeKey()); err != nil {
		return err
	}
	if w.Structural().RightSiblingKey() == fromKey {
		return nil
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}
	return w.moveSubtree(toMove, w.Structural(), asRightSibling)
}

// MoveSubtreeToLeftSibling relocates the subtree rooted at fromKey to
// become the left sibling of the current structural node. It delegates
// to the right-sibling or first-child form.
func (w *Trx) MoveSubtreeToLeftSibling(fromKey int64) error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}
	if w.HasLeftSibling() {
		if !w.MoveToLeftSibling() {
			return ErrNodeGone
		}
		return w.moveSubtreeToRightSibling(fromKey)
	}
	if !w.MoveToParent() {
		return ErrNodeGone
	}
	return w.moveSubtreeToFirstChild(fromKey)
}

// checkMoveSource validates the move source key and resolves it.
func (w *Trx) checkMoveSource(fromKey int64) (tree.StructuralNode, error) {
	if err := w.assertOpen(); err != nil {
		return nil, err
	}
	if fromKey < 0 || fromKey > w.pageTx.MaxNodeKey() {
		return nil, ErrInvalidNodeKey
	}
	if fromKey == w.NodeKey() {
		return nil, ErrMoveToSelf
	}
	node, ok := w.record(fromKey)
	if !ok {
		return nil, ErrNodeGone
	}
	sn, isStruct := node.(tree.StructuralNode)
	if !isStruct {
		return nil, ErrNotStructural
	}
	return sn, nil
}

// checkAncestors walks from the current node to the root; finding the
// move source on the way means the target sits inside the moved
// subtree.
func (w *Trx) checkAncestors(sourceKey int64) error {
	n := w.CurrentNode()
	for n.HasParent() {
		parent, ok := w.record(n.ParentKey())
		if !ok {
			return ErrNodeGone
		}
		if parent.NodeKey() == sourceKey {
			return ErrMoveToOwnSubtree
		}
		n = parent
	}
	return nil
}

// moveSubtree performs the relocation: index DELETE sweep, hash
// subtraction, topology surgery on both sides, hash re-add, path
// summary adjustment, index INSERT sweep, and order key recomputation.
func (w *Trx) moveSubtree(toMove tree.StructuralNode, anchor tree.StructuralNode, pos insertPos) error {
	anchorKey := anchor.NodeKey()
	oldParentKey := toMove.ParentKey()
	oldImageHash := nodeHash(toMove)

	// Index: the whole subtree leaves its old position.
	w.notifySubtree(toMove.NodeKey(), index.Delete)

	// Hashes and descendant counts leave the old ancestor chain.
	w.SetCurrentNode(toMove)
	if err := w.adaptHashesWithRemove(); err != nil {
		return err
	}

	if _, err := w.adaptForMove(toMove, anchorKey, pos); err != nil {
		return err
	}

	// Postorder mode recomputes the departed chain only after the
	// subtree is detached.
	if w.cfg.HashMode == resource.HashPostorder && w.MoveTo(oldParentKey) {
		if err := w.postorderAdd(); err != nil {
			return err
		}
	}

	// Hashes and descendant counts join the new ancestor chain.
	if !w.MoveTo(toMove.NodeKey()) {
		return ErrNodeGone
	}
	// The parent key is part of the node image, so a move across parents
	// swaps the moved root's old image hash for the new one before the
	// subtree is folded into its new ancestors.
	if w.cfg.HashMode == resource.HashRolling && w.CurrentNode().ParentKey() != oldParentKey {
		moved, err := w.prepare(toMove.NodeKey())
		if err != nil {
			return err
		}
		moved.SetHash(moved.Hash() - oldImageHash + nodeHash(moved))
		w.SetCurrentNode(moved)
	}
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}

	// Path summary: a move across parents re-anchors the whole
	// subtree's paths; within one parent nothing changes.
	if w.pathWriter != nil {
		if _, isNamed := toMove.(tree.NamedNode); isNamed {
			moved, ok := w.record(toMove.NodeKey())
			if ok && moved.ParentKey() != oldParentKey {
				if err := w.adaptPathsForMovedSubtree(toMove.NodeKey()); err != nil {
					return err
				}
			}
		}
	}

	// Index: the subtree arrives at its new position.
	w.notifySubtree(toMove.NodeKey(), index.Insert)

	if w.cfg.StoreDeweyIDs {
		if err := w.computeNewDeweyIDs(toMove.NodeKey()); err != nil {
			return err
		}
	}
	return nil
}

// notifySubtree emits one change notification for every node of a
// subtree in document order, namespaces and attributes included: each
// element is notified before its namespaces and attributes.
func (w *Trx) notifySubtree(rootKey int64, change index.ChangeType) {
	axis := rtx.NewDescendantAxis(w.pageTx, rootKey, true)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		node, found := w.record(key)
		if !found {
			continue
		}
		pathNodeKey := tree.NullKey
		if nn, isNamed := node.(tree.NamedNode); isNamed {
			pathNodeKey = nn.PathNodeKey()
		} else if node.ParentKey() != tree.DocumentRootKey {
			pathNodeKey = w.parentPathNodeKey(node)
		}
		w.indexCtl.NotifyChange(change, node, pathNodeKey)
		if el, isElement := node.(*tree.ElementNode); isElement {
			for i := 0; i < el.NamespaceCount(); i++ {
				if ns, ok := w.record(el.NamespaceKey(i)); ok {
					w.indexCtl.NotifyChange(change, ns, ns.(tree.NamedNode).PathNodeKey())
				}
			}
			for i := 0; i < el.AttributeCount(); i++ {
				if att, ok := w.record(el.AttributeKey(i)); ok {
					w.indexCtl.NotifyChange(change, att, att.(tree.NamedNode).PathNodeKey())
				}
			}
		}
	}
}

// adaptForMove detaches the subtree from its old position (merging text
// siblings it leaves adjacent) and splices it in at the new one. It
// returns the effective anchor key, which changes only when the anchor
// itself was merged away.
func (w *Trx) adaptForMove(fromNode tree.StructuralNode, anchorKey int64, pos insertPos) (int64, error) {
	fromKey := fromNode.NodeKey()

	// Old side: parent child count, first-child pointer, sibling links.
	oldParent, err := w.prepareStruct(fromNode.ParentKey())
	if err != nil {
		return anchorKey, err
	}
	oldParent.DecrementChildCount()
	if oldParent.FirstChildKey() == fromKey {
		oldParent.SetFirstChildKey(fromNode.RightSiblingKey())
	}
	if fromNode.HasRightSibling() {
		rightSibling, err := w.prepareStruct(fromNode.RightSiblingKey())
		if err != nil {
			return anchorKey, err
		}
		rightSibling.SetLeftSiblingKey(fromNode.LeftSiblingKey())
	}
	if fromNode.HasLeftSibling() {
		leftSibling, err := w.prepareStruct(fromNode.LeftSiblingKey())
		if err != nil {
			return anchorKey, err
		}
		leftSibling.SetRightSiblingKey(fromNode.RightSiblingKey())
	}

	// Merge text siblings the departure leaves adjacent. If the anchor
	// itself is the merged-away right text node, the merged left node
	// takes its place.
	if fromNode.HasLeftSibling() && fromNode.HasRightSibling() {
		left, leftOK := w.structural(fromNode.LeftSiblingKey())
		right, rightOK := w.structural(fromNode.RightSiblingKey())
		if leftOK && rightOK && left.Kind() == tree.KindText && right.Kind() == tree.KindText {
			merged := string(left.(tree.ValuedNode).Value()) + string(right.(tree.ValuedNode).Value())

			oldHash := nodeHash(left)
			leftPrepared, err := w.prepare(left.NodeKey())
			if err != nil {
				return anchorKey, err
			}
			leftPrepared.(tree.ValuedNode).SetValue([]byte(merged), w.cfg.UseCompression)
			w.SetCurrentNode(leftPrepared)
			if err := w.adaptHashesWithUpdate(oldHash); err != nil {
				return anchorKey, err
			}

			if w.cfg.HashMode == resource.HashRolling {
				w.SetCurrentNode(right)
				if err := w.adaptHashesWithRemove(); err != nil {
					return anchorKey, err
				}
			} else {
				if err := w.adjustAncestorDescendants(right, -1); err != nil {
					return anchorKey, err
				}
			}

			mergedLeft, err := w.prepareStruct(left.NodeKey())
			if err != nil {
				return anchorKey, err
			}
			mergedLeft.SetRightSiblingKey(right.RightSiblingKey())
			if right.HasRightSibling() {
				afterMerged, err := w.prepareStruct(right.RightSiblingKey())
				if err != nil {
					return anchorKey, err
				}
				afterMerged.SetLeftSiblingKey(left.NodeKey())
			}
			oldParentAgain, err := w.prepareStruct(fromNode.ParentKey())
			if err != nil {
				return anchorKey, err
			}
			oldParentAgain.DecrementChildCount()

			w.notifyDelete(right)
			if err := w.pageTx.RemoveEntry(right.NodeKey()); err != nil {
				return anchorKey, err
			}
			if anchorKey == right.NodeKey() {
				anchorKey = left.NodeKey()
			}
		}
	}

	// New side: splice in relative to the anchor.
	anchor, err := w.prepareStruct(anchorKey)
	if err != nil {
		return anchorKey, err
	}
	from, err := w.prepareStruct(fromKey)
	if err != nil {
		return anchorKey, err
	}

	switch pos {
	case asFirstChild:
		oldFirst := anchor.FirstChildKey()
		from.SetParentKey(anchor.NodeKey())
		from.SetLeftSiblingKey(tree.NullKey)
		from.SetRightSiblingKey(oldFirst)
		anchor.SetFirstChildKey(fromKey)
		anchor.IncrementChildCount()
		if oldFirst != tree.NullKey {
			first, err := w.prepareStruct(oldFirst)
			if err != nil {
				return anchorKey, err
			}
			first.SetLeftSiblingKey(fromKey)
		}
	case asRightSibling:
		oldRight := anchor.RightSiblingKey()
		from.SetParentKey(anchor.ParentKey())
		from.SetLeftSiblingKey(anchor.NodeKey())
		from.SetRightSiblingKey(oldRight)
		anchor.SetRightSiblingKey(fromKey)
		if oldRight != tree.NullKey {
			right, err := w.prepareStruct(oldRight)
			if err != nil {
				return anchorKey, err
			}
			right.SetLeftSiblingKey(fromKey)
		}
		newParent, err := w.prepareStruct(anchor.ParentKey())
		if err != nil {
			return anchorKey, err
		}
		newParent.IncrementChildCount()
	default:
		return anchorKey, ErrNotStructural
	}
	return anchorKey, nil
}

// adaptPathsForMovedSubtree re-anchors the path of every named node in
// a moved subtree under its new ancestor paths, walking in document
// order so each parent path is final before its children are visited.
func (w *Trx) adaptPathsForMovedSubtree(rootKey int64) error {
	axis := rtx.NewDescendantAxis(w.pageTx, rootKey, true)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		node, found := w.record(key)
		if !found {
			continue
		}
		if err := w.reanchorPath(node); err != nil {
			return err
		}
		if el, isElement := node.(*tree.ElementNode); isElement {
			for i := 0; i < el.NamespaceCount(); i++ {
				if ns, ok := w.record(el.NamespaceKey(i)); ok {
					if err := w.reanchorPath(ns); err != nil {
						return err
					}
				}
			}
			for i := 0; i < el.AttributeCount(); i++ {
				if att, ok := w.record(el.AttributeKey(i)); ok {
					if err := w.reanchorPath(att); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// reanchorPath moves one named node's path reference under its parent's
// (possibly new) path node.
func (w *Trx) reanchorPath(node tree.Node) error {
	nn, ok := node.(tree.NamedNode)
	if !ok {
		return nil
	}
	parentPath := pathsummary.RootPathNodeKey
	if parent, found := w.record(node.ParentKey()); found {
		if pn, isNamed := parent.(tree.NamedNode); isNamed {
			parentPath = pn.PathNodeKey()
		}
	}
	name := tree.QName{
		Prefix: w.pageTx.GetName(nn.PrefixKey(), node.Kind()),
		Local:  w.pageTx.GetName(nn.LocalNameKey(), node.Kind()),
		URI:    w.pageTx.GetName(nn.URIKey(), tree.KindNamespace),
	}
	w.pathWriter.Remove(nn)
	newPath := w.pathWriter.EnsureChildPath(parentPath, name, node.Kind())
	if newPath == nn.PathNodeKey() {
		return nil
	}
	prepared, err := w.prepare(node.NodeKey())
	if err != nil {
		return err
	}
	prepared.(tree.NamedNode).SetPathNodeKey(newPath)
	return nil
}

// computeNewDeweyIDs assigns a fresh order key to a moved subtree root
// and renumbers the subtree in level order, attributes and namespaces
// included. Parents and left siblings are renumbered before the nodes
// deriving keys from them.
func (w *Trx) computeNewDeweyIDs(rootKey int64) error {
	if !w.MoveTo(rootKey) {
		return ErrNodeGone
	}

	var id *deweyid.ID
	var err error
	left, leftOK := w.record(w.Structural().LeftSiblingKey())
	right, rightOK := w.record(w.Structural().RightSiblingKey())
	switch {
	case leftOK && rightOK:
		id, err = deweyid.NewBetween(left.DeweyID(), right.DeweyID())
	case leftOK:
		id, err = deweyid.NewBetween(left.DeweyID(), nil)
	case rightOK:
		id, err = deweyid.NewBetween(nil, right.DeweyID())
	default:
		parent, ok := w.record(w.CurrentNode().ParentKey())
		if !ok {
			return ErrNodeGone
		}
		id = parent.DeweyID().NewChildID()
	}
	if err != nil {
		return err
	}

	root, err := w.prepare(rootKey)
	if err != nil {
		return err
	}
	root.SetDeweyID(id)

	axis := rtx.NewLevelOrderAxis(w.pageTx, rootKey, true)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		node, found := w.record(key)
		if !found {
			continue
		}
		newID, err := w.recomputedIDFor(node)
		if err != nil {
			return err
		}
		prepared, err := w.prepare(key)
		if err != nil {
			return err
		}
		prepared.SetDeweyID(newID)
	}

	w.MoveTo(rootKey)
	return nil
}

// recomputedIDFor derives a node's new order key from its already
// renumbered parent or predecessor.
func (w *Trx) recomputedIDFor(node tree.Node) (*deweyid.ID, error) {
	parent, ok := w.record(node.ParentKey())
	if !ok {
		return nil, ErrNodeGone
	}

	switch node.Kind() {
	case tree.KindAttribute:
		el := parent.(*tree.ElementNode)
		idx := attributeIndex(el, node.NodeKey())
		if idx == 0 {
			return parent.DeweyID().NewAttributeID(), nil
		}
		prev, ok := w.record(el.AttributeKey(idx - 1))
		if !ok {
			return nil, ErrNodeGone
		}
		return deweyid.NewBetween(prev.DeweyID(), nil)
	case tree.KindNamespace:
		el := parent.(*tree.ElementNode)
		idx := namespaceIndex(el, node.NodeKey())
		if idx == 0 {
			return parent.DeweyID().NewNamespaceID(), nil
		}
		prev, ok := w.record(el.NamespaceKey(idx - 1))
		if !ok {
			return nil, ErrNodeGone
		}
		return deweyid.NewBetween(prev.DeweyID(), nil)
	default:
		sn := node.(tree.StructuralNode)
		if sn.HasLeftSibling() {
			leftSib, ok := w.record(sn.LeftSiblingKey())
			if !ok {
				return nil, ErrNodeGone
			}
			return deweyid.NewBetween(leftSib.DeweyID(), nil)
		}
		return parent.DeweyID().NewChildID(), nil
	}
}

func attributeIndex(el *tree.ElementNode, key int64) int {
	for i := 0; i < el.AttributeCount(); i++ {
		if el.AttributeKey(i) == key {
			return i
		}
	}
	return 0
}

func namespaceIndex(el *tree.ElementNode, key int64) int {
	for i := 0; i < el.NamespaceCount(); i++ {
		if el.NamespaceKey(i) == key {
			return i
		}
	}
	return 0
}
