package tree

import "github.com/joshuapare/treekit/tree/deweyid"

// KeyAllocator hands out fresh node keys. Node keys are monotonically
// increasing and never reused; the page layer owns the counter.
type KeyAllocator interface {
	NewNodeKey() int64
}

// NameInterner interns name strings into the name dictionary of the
// current revision.
type NameInterner interface {
	CreateNameKey(name string, kind Kind) int32
}

// Factory constructs fresh node records with allocated keys, interned
// names, zero hash and zero descendant count. It is rebuilt whenever the
// write transaction swaps its page transaction (commit, rollback,
// revert).
type Factory struct {
	keys     KeyAllocator
	names    NameInterner
	compress bool
}

// NewFactory creates a factory over the given allocator and interner.
// Values of created nodes are compressed when compress is set.
func NewFactory(keys KeyAllocator, names NameInterner, compress bool) *Factory {
	return &Factory{keys: keys, names: names, compress: compress}
}

// internName interns the three components of a qualified name. The URI
// is interned in the namespace space, matching how namespace lookups
// resolve it.
func (f *Factory) internName(name QName, kind Kind) (prefixKey, localNameKey, uriKey int32) {
	prefixKey = NullNameKey
	localNameKey = NullNameKey
	uriKey = NullNameKey
	if name.Prefix != "" {
		prefixKey = f.names.CreateNameKey(name.Prefix, kind)
	}
	if name.Local != "" {
		localNameKey = f.names.CreateNameKey(name.Local, kind)
	}
	if name.URI != "" {
		uriKey = f.names.CreateNameKey(name.URI, KindNamespace)
	}
	return prefixKey, localNameKey, uriKey
}

// CreateElement constructs an element for the given topology slot.
func (f *Factory) CreateElement(parentKey, leftSiblingKey, rightSiblingKey int64,
	name QName, pathNodeKey int64, id *deweyid.ID) *ElementNode {
	prefixKey, localNameKey, uriKey := f.internName(name, KindElement)
	return NewElementNode(f.keys.NewNodeKey(), parentKey, leftSiblingKey, rightSiblingKey,
		prefixKey, localNameKey, uriKey, pathNodeKey, id)
}

// CreateAttribute constructs an attribute owned by the given element.
func (f *Factory) CreateAttribute(parentKey int64, name QName, value []byte,
	pathNodeKey int64, id *deweyid.ID) *AttributeNode {
	prefixKey, localNameKey, uriKey := f.internName(name, KindAttribute)
	return NewAttributeNode(f.keys.NewNodeKey(), parentKey,
		prefixKey, localNameKey, uriKey, value, f.compress, pathNodeKey, id)
}

// CreateNamespace constructs a namespace declaration owned by the given
// element.
func (f *Factory) CreateNamespace(parentKey int64, name QName,
	pathNodeKey int64, id *deweyid.ID) *NamespaceNode {
	prefixKey, localNameKey, uriKey := f.internName(name, KindNamespace)
	return NewNamespaceNode(f.keys.NewNodeKey(), parentKey,
		prefixKey, localNameKey, uriKey, pathNodeKey, id)
}

// CreateText constructs a text node for the given topology slot.
func (f *Factory) CreateText(parentKey, leftSiblingKey, rightSiblingKey int64,
	value []byte, id *deweyid.ID) *TextNode {
	return NewTextNode(f.keys.NewNodeKey(), parentKey, leftSiblingKey, rightSiblingKey,
		value, f.compress, id)
}

// CreateComment constructs a comment node for the given topology slot.
func (f *Factory) CreateComment(parentKey, leftSiblingKey, rightSiblingKey int64,
	value []byte, id *deweyid.ID) *CommentNode {
	return NewCommentNode(f.keys.NewNodeKey(), parentKey, leftSiblingKey, rightSiblingKey,
		value, f.compress, id)
}

// CreatePI constructs a processing-instruction node for the given
// topology slot.
func (f *Factory) CreatePI(parentKey, leftSiblingKey, rightSiblingKey int64,
	target QName, content []byte, pathNodeKey int64, id *deweyid.ID) *PINode {
	prefixKey, localNameKey, uriKey := f.internName(target, KindProcessingInstruction)
	return NewPINode(f.keys.NewNodeKey(), parentKey, leftSiblingKey, rightSiblingKey,
		prefixKey, localNameKey, uriKey, content, f.compress, pathNodeKey, id)
}
