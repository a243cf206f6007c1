package wtx

import (
	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/resource"
	"github.com/joshuapare/treekit/tree/rtx"
)

// prime folds a child hash into its parent. All hash arithmetic is
// wrapping int64.
const prime = encoding.HashPrime

// adaptHashesWithAdd folds the node under the cursor into its ancestor
// chain after an insert (or the re-add phase of a move). Descendant
// counts are propagated in every mode; hashes per the configured mode.
// Skipped entirely during bulk insert.
func (w *Trx) adaptHashesWithAdd() error {
	if w.bulkInsert {
		return nil
	}
	switch w.cfg.HashMode {
	case resource.HashRolling:
		return w.rollingAdd()
	case resource.HashPostorder:
		if err := w.adjustAncestorDescendants(w.CurrentNode(), addedDescendants(w.CurrentNode())); err != nil {
			return err
		}
		return w.postorderAdd()
	default:
		return w.adjustAncestorDescendants(w.CurrentNode(), addedDescendants(w.CurrentNode()))
	}
}

// adaptHashesWithRemove subtracts the node under the cursor from its
// ancestor chain before its entry is removed (or as the remove phase of
// a move).
func (w *Trx) adaptHashesWithRemove() error {
	if w.bulkInsert {
		return nil
	}
	switch w.cfg.HashMode {
	case resource.HashRolling:
		return w.rollingRemove()
	case resource.HashPostorder:
		if err := w.adjustAncestorDescendants(w.CurrentNode(), -addedDescendants(w.CurrentNode())); err != nil {
			return err
		}
		return w.postorderRemove()
	default:
		return w.adjustAncestorDescendants(w.CurrentNode(), -addedDescendants(w.CurrentNode()))
	}
}

// adaptHashesWithUpdate replaces the node's old image hash with the new
// one along the ancestor path after a rename or value change.
func (w *Trx) adaptHashesWithUpdate(oldHash int64) error {
	if w.bulkInsert {
		return nil
	}
	switch w.cfg.HashMode {
	case resource.HashRolling:
		return w.rollingUpdate(oldHash)
	case resource.HashPostorder:
		return w.postorderAdd()
	default:
		return nil
	}
}

// addedDescendants is the descendant-count delta a node contributes to
// its ancestors: its own subtree size. Non-structural nodes contribute
// nothing.
func addedDescendants(n tree.Node) int64 {
	sn, ok := n.(tree.StructuralNode)
	if !ok {
		return 0
	}
	return int64(sn.DescendantCount()) + 1
}

// adjustAncestorDescendants walks the ancestor chain of n applying a
// descendant-count delta.
func (w *Trx) adjustAncestorDescendants(n tree.Node, delta int64) error {
	if delta == 0 {
		return nil
	}
	for key := n.ParentKey(); key != tree.NullKey; {
		ancestor, err := w.prepareStruct(key)
		if err != nil {
			return err
		}
		ancestor.SetDescendantCount(uint64(int64(ancestor.DescendantCount()) + delta))
		key = ancestor.ParentKey()
	}
	return nil
}

// rollingAdd walks from the current node to the root. The start node
// keeps (or gets) its image hash, its parent adds the contribution, and
// every further ancestor replaces the previous level's old contribution
// with its new one. Descendant counts ride along.
func (w *Trx) rollingAdd() error {
	startNode := w.CurrentNode()
	startKey := startNode.NodeKey()
	parentKey := startNode.ParentKey()
	descendants := addedDescendants(startNode)

	hashToAdd := startNode.Hash()
	if hashToAdd == 0 {
		hashToAdd = nodeHash(startNode)
	}
	var possibleOldHash int64

	key := startKey
	for key != tree.NullKey {
		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		var newHash int64
		switch key {
		case startKey:
			newHash = hashToAdd
		case parentKey:
			possibleOldHash = node.Hash()
			newHash = possibleOldHash + hashToAdd*prime
			hashToAdd = newHash
			addDescendants(node, descendants)
		default:
			newHash = node.Hash() - possibleOldHash*prime + hashToAdd*prime
			hashToAdd = newHash
			possibleOldHash = node.Hash()
			addDescendants(node, descendants)
		}
		node.SetHash(newHash)
		key = node.ParentKey()
	}
	w.MoveTo(startKey)
	return nil
}

// addDescendants bumps an ancestor's descendant count during rollingAdd.
func addDescendants(ancestor tree.Node, delta int64) {
	if sn, ok := ancestor.(tree.StructuralNode); ok && delta != 0 {
		sn.SetDescendantCount(uint64(int64(sn.DescendantCount()) + delta))
	}
}

// rollingRemove subtracts the current node's contribution from its
// ancestor chain. The node itself is left untouched (a moved subtree
// keeps its hash), the first ancestor loses the direct contribution,
// and deeper ancestors replace the previous level's old contribution
// with its new one.
func (w *Trx) rollingRemove() error {
	startNode := w.CurrentNode()
	startKey := startNode.NodeKey()
	descendants := addedDescendants(startNode)

	hashToRemove := startNode.Hash()
	if hashToRemove == 0 {
		hashToRemove = nodeHash(startNode)
	}
	var hashToAdd int64
	first := true

	for key := startNode.ParentKey(); key != tree.NullKey; {
		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		var newHash int64
		if first {
			newHash = node.Hash() - hashToRemove*prime
			first = false
		} else {
			newHash = node.Hash() - hashToRemove*prime + hashToAdd*prime
		}
		hashToRemove = node.Hash()
		hashToAdd = newHash
		addDescendants(node, -descendants)
		node.SetHash(newHash)
		key = node.ParentKey()
	}
	w.MoveTo(startKey)
	return nil
}

// rollingUpdate replaces the current node's old image hash with its new
// one: the node itself swaps the raw image hash, and each ancestor
// swaps the previous level's old total for its new total.
func (w *Trx) rollingUpdate(oldHash int64) error {
	startNode := w.CurrentNode()
	startKey := startNode.NodeKey()
	newNodeHash := nodeHash(startNode)

	childOld := oldHash
	childNew := newNodeHash
	key := startKey
	for key != tree.NullKey {
		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		var newHash int64
		if key == startKey {
			newHash = node.Hash() - childOld + childNew
		} else {
			newHash = node.Hash() - childOld*prime + childNew*prime
		}
		childOld = node.Hash()
		childNew = newHash
		node.SetHash(newHash)
		key = node.ParentKey()
	}
	w.MoveTo(startKey)
	return nil
}

// postorderHashOf recomputes one node's hash from its image and the
// stored hashes of its namespaces, attributes and structural children.
func (w *Trx) postorderHashOf(n tree.Node) int64 {
	h := nodeHash(n)
	if el, ok := n.(*tree.ElementNode); ok {
		for i := 0; i < el.NamespaceCount(); i++ {
			if ns, ok := w.record(el.NamespaceKey(i)); ok {
				h += prime * ns.Hash()
			}
		}
		for i := 0; i < el.AttributeCount(); i++ {
			if att, ok := w.record(el.AttributeKey(i)); ok {
				h += prime * att.Hash()
			}
		}
	}
	if sn, ok := n.(tree.StructuralNode); ok {
		for key := sn.FirstChildKey(); key != tree.NullKey; {
			child, ok := w.structural(key)
			if !ok {
				break
			}
			h += prime * child.Hash()
			key = child.RightSiblingKey()
		}
	}
	return h
}

// postorderAdd recomputes the current node (its image hash for
// non-structural nodes) and then every ancestor up to the root from
// stored child hashes.
func (w *Trx) postorderAdd() error {
	startKey := w.NodeKey()
	key := startKey

	if !w.IsStructural() {
		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		node.SetHash(nodeHash(node))
		key = node.ParentKey()
	}

	for key != tree.NullKey {
		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		node.SetHash(w.postorderHashOf(node))
		key = node.ParentKey()
	}
	w.MoveTo(startKey)
	return nil
}

// postorderRemove recomputes from the current node's parent upward.
func (w *Trx) postorderRemove() error {
	startKey := w.NodeKey()
	parentKey := w.CurrentNode().ParentKey()
	if parentKey == tree.NullKey {
		return nil
	}
	if !w.MoveTo(parentKey) {
		return ErrNodeGone
	}
	err := w.postorderAdd()
	w.MoveTo(startKey)
	return err
}

// postorderSubtree recomputes hashes and descendant counts of the whole
// subtree under (and including) rootKey bottom-up. Used after a bulk
// insert, which skips per-edit maintenance.
func (w *Trx) postorderSubtree(rootKey int64) error {
	axis := rtx.NewPostOrderAxis(w.pageTx, rootKey)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		n, found := w.record(key)
		if !found {
			continue
		}

		if el, isElement := n.(*tree.ElementNode); isElement {
			for i := 0; i < el.NamespaceCount(); i++ {
				if err := w.setImageHash(el.NamespaceKey(i)); err != nil {
					return err
				}
			}
			for i := 0; i < el.AttributeCount(); i++ {
				if err := w.setImageHash(el.AttributeKey(i)); err != nil {
					return err
				}
			}
		}

		node, err := w.prepare(key)
		if err != nil {
			return err
		}
		if sn, isStruct := node.(tree.StructuralNode); isStruct {
			var descendants uint64
			for childKey := sn.FirstChildKey(); childKey != tree.NullKey; {
				child, ok := w.structural(childKey)
				if !ok {
					break
				}
				descendants += child.DescendantCount() + 1
				childKey = child.RightSiblingKey()
			}
			sn.SetDescendantCount(descendants)
		}
		if w.cfg.HashMode != resource.HashNone {
			node.SetHash(w.postorderHashOf(node))
		}
	}
	return nil
}

// setImageHash stores the raw image hash of a leaf record.
func (w *Trx) setImageHash(key int64) error {
	if w.cfg.HashMode == resource.HashNone {
		return nil
	}
	node, err := w.prepare(key)
	if err != nil {
		return err
	}
	node.SetHash(nodeHash(node))
	return nil
}

// foldBulkInsert folds a freshly recomputed subtree into its ancestors
// with the rolling-add formula, after a bulk insert.
func (w *Trx) foldBulkInsert(rootKey int64) error {
	if !w.MoveTo(rootKey) {
		return ErrNodeGone
	}
	switch w.cfg.HashMode {
	case resource.HashRolling, resource.HashPostorder:
		return w.rollingAdd()
	default:
		return w.adjustAncestorDescendants(w.CurrentNode(), addedDescendants(w.CurrentNode()))
	}
}
