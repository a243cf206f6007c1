package wtx

import (
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/index"
	"github.com/joshuapare/treekit/tree/pathsummary"
)

// SetName renames the current named node, re-interning its name,
// re-anchoring its path and adapting hashes.
func (w *Trx) SetName(name tree.QName) error {
	if !tree.IsValidQName(name) {
		return ErrInvalidName
	}
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}
	nn, ok := w.CurrentNode().(tree.NamedNode)
	if !ok {
		return ErrNotNameNode
	}
	if w.Name().Equal(name) {
		return nil
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	kind := w.Kind()
	oldHash := nodeHash(w.CurrentNode())

	// Retire the old name keys, intern the new ones.
	w.pageTx.RemoveName(nn.PrefixKey(), kind)
	w.pageTx.RemoveName(nn.LocalNameKey(), kind)
	w.pageTx.RemoveName(nn.URIKey(), tree.KindNamespace)

	prefixKey := tree.NullNameKey
	if name.Prefix != "" {
		prefixKey = w.pageTx.CreateNameKey(name.Prefix, kind)
	}
	localNameKey := tree.NullNameKey
	if name.Local != "" {
		localNameKey = w.pageTx.CreateNameKey(name.Local, kind)
	}
	uriKey := tree.NullNameKey
	if name.URI != "" {
		uriKey = w.pageTx.CreateNameKey(name.URI, tree.KindNamespace)
	}

	node, err := w.prepare(nn.NodeKey())
	if err != nil {
		return err
	}
	named := node.(tree.NamedNode)
	named.SetName(prefixKey, localNameKey, uriKey)

	if w.pathWriter != nil {
		named.SetPathNodeKey(w.pathWriter.AdaptForChangedNode(named, name, pathsummary.OpSetName))
	}

	w.SetCurrentNode(node)
	return w.adaptHashesWithUpdate(oldHash)
}

// SetValue overwrites the value of the current valued node. An empty
// value removes the node.
func (w *Trx) SetValue(value string) error {
	w.acquireLock()
	defer w.releaseLock()

	if err := w.assertOpen(); err != nil {
		return err
	}
	if _, ok := w.CurrentNode().(tree.ValuedNode); !ok {
		return ErrNotValueNode
	}
	if value == "" {
		return w.removeInternal()
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}
	return w.setValueInternal(value)
}

// setValueInternal replaces the current node's value, adapting hashes
// and swapping the index entry.
func (w *Trx) setValueInternal(value string) error {
	node := w.CurrentNode()
	pathNodeKey := w.valuePathNodeKey(node)

	w.indexCtl.NotifyChange(index.Delete, node, pathNodeKey)

	oldHash := nodeHash(node)
	prepared, err := w.prepare(node.NodeKey())
	if err != nil {
		return err
	}
	prepared.(tree.ValuedNode).SetValue([]byte(value), w.cfg.UseCompression)

	w.SetCurrentNode(prepared)
	if err := w.adaptHashesWithUpdate(oldHash); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, prepared, pathNodeKey)
	return nil
}

// valuePathNodeKey is the path context of a valued node: its own path
// node for named kinds (attributes, PIs), the parent element's
// otherwise.
func (w *Trx) valuePathNodeKey(node tree.Node) int64 {
	if nn, ok := node.(tree.NamedNode); ok {
		return nn.PathNodeKey()
	}
	return w.parentPathNodeKey(node)
}
