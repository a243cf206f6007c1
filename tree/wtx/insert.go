package wtx

import (
	"strings"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/deweyid"
	"github.com/joshuapare/treekit/tree/index"
	"github.com/joshuapare/treekit/tree/pathsummary"
)

// insertPos is the position of a new node relative to the anchor.
type insertPos int

const (
	asFirstChild insertPos = iota + 1
	asLeftSibling
	asRightSibling
)

// InsertElementAsFirstChild creates an element as the first child of
// the current element or document root.
func (w *Trx) InsertElementAsFirstChild(name tree.QName) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertElement(name, asFirstChild)
}

// InsertElementAsLeftSibling creates an element as the left sibling of
// the current structural node.
func (w *Trx) InsertElementAsLeftSibling(name tree.QName) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertElement(name, asLeftSibling)
}

// InsertElementAsRightSibling creates an element as the right sibling
// of the current structural node.
func (w *Trx) InsertElementAsRightSibling(name tree.QName) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertElement(name, asRightSibling)
}

func (w *Trx) insertElement(name tree.QName, pos insertPos) error {
	if !tree.IsValidQName(name) {
		return ErrInvalidName
	}
	if err := w.checkInsertAnchor(pos, true); err != nil {
		return err
	}
	parentKey, leftSibKey, rightSibKey := w.topologySlot(pos)
	if parent, ok := w.record(parentKey); ok && parent.Kind() == tree.KindDocumentRoot {
		if w.rootElementExists(parent) {
			return ErrSecondRootElement
		}
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	pathNodeKey := w.pathNodeKeyFor(name, tree.KindElement, pos)
	id, err := w.newDeweyID(pos)
	if err != nil {
		return err
	}

	node := w.factory.CreateElement(parentKey, leftSibKey, rightSibKey, name, pathNodeKey, id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	w.SetCurrentNode(node)
	if err := w.adaptForInsert(node); err != nil {
		return err
	}
	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, pathNodeKey)
	return nil
}

// InsertTextAsFirstChild inserts text as the first child of the current
// structural node, merging into an adjacent text node if one exists.
func (w *Trx) InsertTextAsFirstChild(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertText(value, asFirstChild)
}

// InsertTextAsLeftSibling inserts text as the left sibling of the
// current structural node, merging into an adjacent text node if one
// exists.
func (w *Trx) InsertTextAsLeftSibling(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertText(value, asLeftSibling)
}

// InsertTextAsRightSibling inserts text as the right sibling of the
// current structural node, merging into an adjacent text node if one
// exists.
func (w *Trx) InsertTextAsRightSibling(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertText(value, asRightSibling)
}

func (w *Trx) insertText(value string, pos insertPos) error {
	if value == "" {
		return ErrEmptyValue
	}
	if err := w.checkInsertAnchor(pos, false); err != nil {
		return err
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	// Merge with an adjacent text node instead of creating a neighbour
	// that would violate the text-merge invariant. A merge only adapts
	// the hash; no index change is emitted.
	switch pos {
	case asFirstChild:
		if first, ok := w.structural(w.Structural().FirstChildKey()); ok && first.Kind() == tree.KindText {
			return w.mergeIntoText(first.NodeKey(), value, true)
		}
	case asLeftSibling:
		if w.IsText() {
			return w.mergeIntoText(w.NodeKey(), value, true)
		}
		if left, ok := w.structural(w.Structural().LeftSiblingKey()); ok && left.Kind() == tree.KindText {
			return w.mergeIntoText(left.NodeKey(), value, false)
		}
	case asRightSibling:
		if w.IsText() {
			return w.mergeIntoText(w.NodeKey(), value, false)
		}
		if right, ok := w.structural(w.Structural().RightSiblingKey()); ok && right.Kind() == tree.KindText {
			return w.mergeIntoText(right.NodeKey(), value, true)
		}
	}

	parentKey, leftSibKey, rightSibKey := w.topologySlot(pos)
	id, err := w.newDeweyID(pos)
	if err != nil {
		return err
	}

	node := w.factory.CreateText(parentKey, leftSibKey, rightSibKey, []byte(value), id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	w.SetCurrentNode(node)
	if err := w.adaptForInsert(node); err != nil {
		return err
	}
	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, w.parentPathNodeKey(node))
	return nil
}

// mergeIntoText concatenates value into the text node under key,
// prepending when prepend is set, and leaves the cursor on it.
func (w *Trx) mergeIntoText(key int64, value string, prepend bool) error {
	existing, ok := w.record(key)
	if !ok {
		return ErrNodeGone
	}
	vn := existing.(tree.ValuedNode)
	merged := string(vn.Value()) + value
	if prepend {
		merged = value + string(vn.Value())
	}

	oldHash := nodeHash(existing)
	prepared, err := w.prepare(key)
	if err != nil {
		return err
	}
	prepared.(tree.ValuedNode).SetValue([]byte(merged), w.cfg.UseCompression)
	w.SetCurrentNode(prepared)
	return w.adaptHashesWithUpdate(oldHash)
}

// InsertCommentAsFirstChild inserts a comment as the first child of the
// current structural node.
func (w *Trx) InsertCommentAsFirstChild(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertComment(value, asFirstChild)
}

// InsertCommentAsLeftSibling inserts a comment as the left sibling of
// the current structural node.
func (w *Trx) InsertCommentAsLeftSibling(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertComment(value, asLeftSibling)
}

// InsertCommentAsRightSibling inserts a comment as the right sibling of
// the current structural node.
func (w *Trx) InsertCommentAsRightSibling(value string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertComment(value, asRightSibling)
}

func (w *Trx) insertComment(value string, pos insertPos) error {
	if strings.Contains(value, "--") || strings.HasSuffix(value, "-") {
		return ErrIllegalCommentContent
	}
	if err := w.checkInsertAnchor(pos, false); err != nil {
		return err
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	parentKey, leftSibKey, rightSibKey := w.topologySlot(pos)
	id, err := w.newDeweyID(pos)
	if err != nil {
		return err
	}

	node := w.factory.CreateComment(parentKey, leftSibKey, rightSibKey, []byte(value), id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	w.SetCurrentNode(node)
	if err := w.adaptForInsert(node); err != nil {
		return err
	}
	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, w.parentPathNodeKey(node))
	return nil
}

// InsertPIAsFirstChild inserts a processing instruction as the first
// child of the current structural node.
func (w *Trx) InsertPIAsFirstChild(target, content string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertPI(target, content, asFirstChild)
}

// InsertPIAsLeftSibling inserts a processing instruction as the left
// sibling of the current structural node.
func (w *Trx) InsertPIAsLeftSibling(target, content string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertPI(target, content, asLeftSibling)
}

// InsertPIAsRightSibling inserts a processing instruction as the right
// sibling of the current structural node.
func (w *Trx) InsertPIAsRightSibling(target, content string) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertPI(target, content, asRightSibling)
}

func (w *Trx) insertPI(target, content string, pos insertPos) error {
	if !tree.IsNCName(target) {
		return ErrInvalidName
	}
	if strings.Contains(content, "?>-") {
		return ErrIllegalPIContent
	}
	if err := w.checkInsertAnchor(pos, false); err != nil {
		return err
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	name := tree.Name(target)
	parentKey, leftSibKey, rightSibKey := w.topologySlot(pos)
	pathNodeKey := w.pathNodeKeyFor(name, tree.KindProcessingInstruction, pos)
	id, err := w.newDeweyID(pos)
	if err != nil {
		return err
	}

	node := w.factory.CreatePI(parentKey, leftSibKey, rightSibKey, name, []byte(content), pathNodeKey, id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	w.SetCurrentNode(node)
	if err := w.adaptForInsert(node); err != nil {
		return err
	}
	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, pathNodeKey)
	return nil
}

// Movement selects where the cursor lands after inserting an attribute
// or namespace.
type Movement int

// Cursor movements after non-structural inserts.
const (
	// MoveNone leaves the cursor on the inserted node.
	MoveNone Movement = iota
	// MoveToParentElement returns the cursor to the owning element.
	MoveToParentElement
)

// InsertAttribute creates or overwrites an attribute on the current
// element. An existing attribute with the same name is overwritten in
// place rather than duplicated.
func (w *Trx) InsertAttribute(name tree.QName, value string, move Movement) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertAttribute(name, value, move)
}

func (w *Trx) insertAttribute(name tree.QName, value string, move Movement) error {
	if !tree.IsValidQName(name) {
		return ErrInvalidName
	}
	if !w.IsElement() {
		return ErrNotElement
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	// Duplicate name: overwrite the value in place instead of adding a
	// second attribute.
	element := w.CurrentNode().(*tree.ElementNode)
	elementKey := element.NodeKey()
	for i := 0; i < element.AttributeCount(); i++ {
		if !w.MoveToAttribute(i) {
			continue
		}
		if w.Name().Prefix == name.Prefix && w.Name().Local == name.Local {
			var err error
			if w.Value() != value {
				err = w.setValueInternal(value)
			}
			if move != MoveToParentElement {
				w.MoveTo(element.AttributeKey(i))
			} else {
				w.MoveTo(elementKey)
			}
			return err
		}
		w.MoveTo(elementKey)
	}

	pathNodeKey := w.pathNodeKeyFor(name, tree.KindAttribute, asFirstChild)
	id, err := w.newAttributeID()
	if err != nil {
		return err
	}

	node := w.factory.CreateAttribute(elementKey, name, []byte(value), pathNodeKey, id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	parent, err := w.prepare(elementKey)
	if err != nil {
		return err
	}
	parent.(*tree.ElementNode).InsertAttribute(node.NodeKey(),
		tree.PackName(node.PrefixKey(), node.LocalNameKey()))

	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, pathNodeKey)

	if move == MoveToParentElement {
		w.MoveToParent()
	}
	return nil
}

// InsertNamespace declares a namespace on the current element. A
// duplicate prefix is rejected.
func (w *Trx) InsertNamespace(name tree.QName, move Movement) error {
	w.acquireLock()
	defer w.releaseLock()
	return w.insertNamespace(name, move)
}

func (w *Trx) insertNamespace(name tree.QName, move Movement) error {
	if name.Prefix != "" && !tree.IsNCName(name.Prefix) {
		return ErrInvalidName
	}
	if name.URI == "" {
		return ErrInvalidName
	}
	if !w.IsElement() {
		return ErrNotElement
	}
	if err := w.checkAccessAndCommit(); err != nil {
		return err
	}

	element := w.CurrentNode().(*tree.ElementNode)
	elementKey := element.NodeKey()
	for i := 0; i < element.NamespaceCount(); i++ {
		if !w.MoveToNamespace(i) {
			continue
		}
		duplicate := w.Name().Prefix == name.Prefix
		w.MoveTo(elementKey)
		if duplicate {
			return ErrDuplicateNamespace
		}
	}

	pathNodeKey := w.pathNodeKeyFor(name, tree.KindNamespace, asFirstChild)
	id, err := w.newNamespaceID()
	if err != nil {
		return err
	}

	node := w.factory.CreateNamespace(elementKey, name, pathNodeKey, id)
	if err := w.pageTx.PutRecord(node); err != nil {
		return err
	}

	parent, err := w.prepare(elementKey)
	if err != nil {
		return err
	}
	parent.(*tree.ElementNode).InsertNamespace(node.NodeKey())

	w.SetCurrentNode(node)
	if err := w.adaptHashesWithAdd(); err != nil {
		return err
	}
	w.indexCtl.NotifyChange(index.Insert, node, pathNodeKey)

	if move == MoveToParentElement {
		w.MoveToParent()
	}
	return nil
}

// checkInsertAnchor validates the current node against the insert
// position. Element inserts as first child additionally allow the
// document root.
func (w *Trx) checkInsertAnchor(pos insertPos, element bool) error {
	if !w.IsStructural() {
		return ErrNotStructural
	}
	switch pos {
	case asFirstChild:
		if element && !w.IsElement() && !w.IsDocumentRoot() {
			return ErrNotElement
		}
	case asLeftSibling, asRightSibling:
		if w.IsDocumentRoot() {
			return ErrSiblingOfRoot
		}
	}
	return nil
}

// topologySlot computes the parent and sibling keys of the slot a new
// node is spliced into.
func (w *Trx) topologySlot(pos insertPos) (parentKey, leftSibKey, rightSibKey int64) {
	cur := w.Structural()
	switch pos {
	case asFirstChild:
		return cur.NodeKey(), tree.NullKey, cur.FirstChildKey()
	case asLeftSibling:
		return cur.ParentKey(), cur.LeftSiblingKey(), cur.NodeKey()
	default:
		return cur.ParentKey(), cur.NodeKey(), cur.RightSiblingKey()
	}
}

// rootElementExists reports whether the document root already has an
// element child.
func (w *Trx) rootElementExists(root tree.Node) bool {
	sn := root.(tree.StructuralNode)
	for key := sn.FirstChildKey(); key != tree.NullKey; {
		child, ok := w.structural(key)
		if !ok {
			return false
		}
		if child.Kind() == tree.KindElement {
			return true
		}
		key = child.RightSiblingKey()
	}
	return false
}

// pathNodeKeyFor acquires a path node key for a new named node. For
// sibling inserts the context is the parent of the current node, so the
// lookup runs from there.
func (w *Trx) pathNodeKeyFor(name tree.QName, kind tree.Kind, pos insertPos) int64 {
	if w.pathWriter == nil {
		return pathsummary.RootPathNodeKey
	}
	if pos == asFirstChild {
		return w.pathWriter.GetPathNodeKey(name, kind)
	}
	key := w.NodeKey()
	w.MoveToParent()
	pathNodeKey := w.pathWriter.GetPathNodeKey(name, kind)
	w.MoveTo(key)
	return pathNodeKey
}

// parentPathNodeKey returns the path node key of a node's parent
// element, or tree.NullKey below the document root.
func (w *Trx) parentPathNodeKey(n tree.Node) int64 {
	parent, ok := w.record(n.ParentKey())
	if !ok {
		return tree.NullKey
	}
	if nn, isNamed := parent.(tree.NamedNode); isNamed {
		return nn.PathNodeKey()
	}
	return tree.NullKey
}

// adaptForInsert splices a new structural node into the topology:
// parent child count and first-child pointer, then both sibling
// back-pointers.
func (w *Trx) adaptForInsert(newNode tree.Node) error {
	sn, ok := newNode.(tree.StructuralNode)
	if !ok {
		return nil
	}

	parent, err := w.prepareStruct(newNode.ParentKey())
	if err != nil {
		return err
	}
	parent.IncrementChildCount()
	if !sn.HasLeftSibling() {
		parent.SetFirstChildKey(newNode.NodeKey())
	}

	if sn.HasRightSibling() {
		rightSibling, err := w.prepareStruct(sn.RightSiblingKey())
		if err != nil {
			return err
		}
		rightSibling.SetLeftSiblingKey(newNode.NodeKey())
	}
	if sn.HasLeftSibling() {
		leftSibling, err := w.prepareStruct(sn.LeftSiblingKey())
		if err != nil {
			return err
		}
		leftSibling.SetRightSiblingKey(newNode.NodeKey())
	}
	return nil
}

// Dewey ID helpers. All return nil when order keys are not stored.

func (w *Trx) newDeweyID(pos insertPos) (*deweyid.ID, error) {
	switch pos {
	case asFirstChild:
		return w.newFirstChildID()
	case asLeftSibling:
		return w.newLeftSiblingID()
	default:
		return w.newRightSiblingID()
	}
}

func (w *Trx) newFirstChildID() (*deweyid.ID, error) {
	if !w.cfg.StoreDeweyIDs {
		return nil, nil
	}
	cur := w.Structural()
	if first, ok := w.record(cur.FirstChildKey()); ok {
		return deweyid.NewBetween(nil, first.DeweyID())
	}
	return w.CurrentNode().DeweyID().NewChildID(), nil
}

func (w *Trx) newLeftSiblingID() (*deweyid.ID, error) {
	if !w.cfg.StoreDeweyIDs {
		return nil, nil
	}
	currID := w.CurrentNode().DeweyID()
	if left, ok := w.record(w.Structural().LeftSiblingKey()); ok {
		return deweyid.NewBetween(left.DeweyID(), currID)
	}
	return deweyid.NewBetween(nil, currID)
}

func (w *Trx) newRightSiblingID() (*deweyid.ID, error) {
	if !w.cfg.StoreDeweyIDs {
		return nil, nil
	}
	currID := w.CurrentNode().DeweyID()
	if right, ok := w.record(w.Structural().RightSiblingKey()); ok {
		return deweyid.NewBetween(currID, right.DeweyID())
	}
	return deweyid.NewBetween(currID, nil)
}

func (w *Trx) newAttributeID() (*deweyid.ID, error) {
	if !w.cfg.StoreDeweyIDs {
		return nil, nil
	}
	element := w.CurrentNode().(*tree.ElementNode)
	if count := element.AttributeCount(); count > 0 {
		if last, ok := w.record(element.AttributeKey(count - 1)); ok {
			return deweyid.NewBetween(last.DeweyID(), nil)
		}
	}
	return w.CurrentNode().DeweyID().NewAttributeID(), nil
}

func (w *Trx) newNamespaceID() (*deweyid.ID, error) {
	if !w.cfg.StoreDeweyIDs {
		return nil, nil
	}
	element := w.CurrentNode().(*tree.ElementNode)
	if count := element.NamespaceCount(); count > 0 {
		if last, ok := w.record(element.NamespaceKey(count - 1)); ok {
			return deweyid.NewBetween(last.DeweyID(), nil)
		}
	}
	return w.CurrentNode().DeweyID().NewNamespaceID(), nil
}
