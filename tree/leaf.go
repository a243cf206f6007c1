package tree

import (
	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// AttributeNode is a named, valued non-structural child of an element.
type AttributeNode struct {
	delegate
	nameDelegate
	valueDelegate
}

// NewAttributeNode constructs an attribute owned by the given element.
func NewAttributeNode(nodeKey, parentKey int64, prefixKey, localNameKey, uriKey int32,
	value []byte, compress bool, pathNodeKey int64, id *deweyid.ID) *AttributeNode {
	n := &AttributeNode{
		delegate: delegate{nodeKey: nodeKey, parentKey: parentKey, deweyID: id},
		nameDelegate: nameDelegate{
			prefixKey:    prefixKey,
			localNameKey: localNameKey,
			uriKey:       uriKey,
			pathNodeKey:  pathNodeKey,
		},
	}
	n.valueDelegate.SetValue(value, compress)
	return n
}

func (n *AttributeNode) Kind() Kind { return KindAttribute }

func (n *AttributeNode) Image() []byte {
	b := imageBase(encoding.NewImageBuilder(), KindAttribute, &n.delegate)
	return b.I32(n.prefixKey).I32(n.localNameKey).I32(n.uriKey).Bytes(n.Value()).Image()
}

func (n *AttributeNode) Clone() Node {
	out := *n
	out.valueDelegate = n.valueDelegate.cloneValue()
	return &out
}

// NamespaceNode is a named non-structural child of an element declaring
// a prefix binding.
type NamespaceNode struct {
	delegate
	nameDelegate
}

// NewNamespaceNode constructs a namespace declaration owned by the
// given element.
func NewNamespaceNode(nodeKey, parentKey int64, prefixKey, localNameKey, uriKey int32,
	pathNodeKey int64, id *deweyid.ID) *NamespaceNode {
	return &NamespaceNode{
		delegate: delegate{nodeKey: nodeKey, parentKey: parentKey, deweyID: id},
		nameDelegate: nameDelegate{
			prefixKey:    prefixKey,
			localNameKey: localNameKey,
			uriKey:       uriKey,
			pathNodeKey:  pathNodeKey,
		},
	}
}

func (n *NamespaceNode) Kind() Kind { return KindNamespace }

func (n *NamespaceNode) Image() []byte {
	b := imageBase(encoding.NewImageBuilder(), KindNamespace, &n.delegate)
	return b.I32(n.prefixKey).I32(n.localNameKey).I32(n.uriKey).Image()
}

func (n *NamespaceNode) Clone() Node {
	out := *n
	return &out
}

// TextNode is a valued structural node.
type TextNode struct {
	delegate
	structDelegate
	valueDelegate
}

// NewTextNode constructs a text node splice-ready for the given
// topology slot.
func NewTextNode(nodeKey, parentKey, leftSiblingKey, rightSiblingKey int64,
	value []byte, compress bool, id *deweyid.ID) *TextNode {
	n := &TextNode{
		delegate: delegate{nodeKey: nodeKey, parentKey: parentKey, deweyID: id},
		structDelegate: structDelegate{
			firstChildKey:   NullKey,
			leftSiblingKey:  leftSiblingKey,
			rightSiblingKey: rightSiblingKey,
		},
	}
	n.valueDelegate.SetValue(value, compress)
	return n
}

func (n *TextNode) Kind() Kind { return KindText }

func (n *TextNode) Image() []byte {
	return imageBase(encoding.NewImageBuilder(), KindText, &n.delegate).Bytes(n.Value()).Image()
}

func (n *TextNode) Clone() Node {
	out := *n
	out.valueDelegate = n.valueDelegate.cloneValue()
	return &out
}

// CommentNode is a valued structural node.
type CommentNode struct {
	delegate
	structDelegate
	valueDelegate
}

// NewCommentNode constructs a comment node splice-ready for the given
// topology slot.
func NewCommentNode(nodeKey, parentKey, leftSiblingKey, rightSiblingKey int64,
	value []byte, compress bool, id *deweyid.ID) *CommentNode {
	n := &CommentNode{
		delegate: delegate{nodeKey: nodeKey, parentKey: parentKey, deweyID: id},
		structDelegate: structDelegate{
			firstChildKey:   NullKey,
			leftSiblingKey:  leftSiblingKey,
			rightSiblingKey: rightSiblingKey,
		},
	}
	n.valueDelegate.SetValue(value, compress)
	return n
}

func (n *CommentNode) Kind() Kind { return KindComment }

func (n *CommentNode) Image() []byte {
	return imageBase(encoding.NewImageBuilder(), KindComment, &n.delegate).Bytes(n.Value()).Image()
}

func (n *CommentNode) Clone() Node {
	out := *n
	out.valueDelegate = n.valueDelegate.cloneValue()
	return &out
}

// PINode is a processing instruction: a named, valued structural node
// whose name is the target and whose value is the content.
type PINode struct {
	delegate
	structDelegate
	nameDelegate
	valueDelegate
}

// NewPINode constructs a processing-instruction node splice-ready for
// the given topology slot.
func NewPINode(nodeKey, parentKey, leftSiblingKey, rightSiblingKey int64,
	prefixKey, localNameKey, uriKey int32, content []byte, compress bool,
	pathNodeKey int64, id *deweyid.ID) *PINode {
	n := &PINode{
		delegate: delegate{nodeKey: nodeKey, parentKey: parentKey, deweyID: id},
		structDelegate: structDelegate{
			firstChildKey:   NullKey,
			leftSiblingKey:  leftSiblingKey,
			rightSiblingKey: rightSiblingKey,
		},
		nameDelegate: nameDelegate{
			prefixKey:    prefixKey,
			localNameKey: localNameKey,
			uriKey:       uriKey,
			pathNodeKey:  pathNodeKey,
		},
	}
	n.valueDelegate.SetValue(content, compress)
	return n
}

func (n *PINode) Kind() Kind { return KindProcessingInstruction }

func (n *PINode) Image() []byte {
	b := imageBase(encoding.NewImageBuilder(), KindProcessingInstruction, &n.delegate)
	return b.I32(n.prefixKey).I32(n.localNameKey).I32(n.uriKey).Bytes(n.Value()).Image()
}

func (n *PINode) Clone() Node {
	out := *n
	out.valueDelegate = n.valueDelegate.cloneValue()
	return &out
}
