package tree

import (
	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// ElementNode is a named structural node. Attributes and namespaces are
// non-structural children: they are not part of the sibling chain and
// are tracked as ordered key lists on the element itself.
type ElementNode struct {
	delegate
	structDelegate
	nameDelegate

	attributeKeys []int64
	// attributeNames mirrors attributeKeys with the packed
	// (prefix, local) name of each attribute for duplicate lookup.
	attributeNames []int64
	namespaceKeys  []int64
}

// NewElementNode constructs an element splice-ready for the given
// topology slot.
func NewElementNode(nodeKey, parentKey, leftSiblingKey, rightSiblingKey int64,
	prefixKey, localNameKey, uriKey int32, pathNodeKey int64, id *deweyid.ID) *ElementNode {
	return &ElementNode{
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
}

func (n *ElementNode) Kind() Kind { return KindElement }

// PackName packs a (prefix, local) name-key pair into the single value
// used for attribute duplicate detection.
func PackName(prefixKey, localNameKey int32) int64 {
	return int64(prefixKey)<<32 | int64(uint32(localNameKey))
}

// AttributeCount returns the number of attributes.
func (n *ElementNode) AttributeCount() int { return len(n.attributeKeys) }

// AttributeKey returns the node key of attribute i.
func (n *ElementNode) AttributeKey(i int) int64 { return n.attributeKeys[i] }

// AttributeKeyByName returns the node key of the attribute with the
// given packed name, or false.
func (n *ElementNode) AttributeKeyByName(packedName int64) (int64, bool) {
	for i, name := range n.attributeNames {
		if name == packedName {
			return n.attributeKeys[i], true
		}
	}
	return NullKey, false
}

// InsertAttribute appends an attribute key with its packed name.
func (n *ElementNode) InsertAttribute(key, packedName int64) {
	n.attributeKeys = append(n.attributeKeys, key)
	n.attributeNames = append(n.attributeNames, packedName)
}

// RemoveAttribute removes an attribute key, keeping list order.
func (n *ElementNode) RemoveAttribute(key int64) {
	for i, k := range n.attributeKeys {
		if k == key {
			n.attributeKeys = append(n.attributeKeys[:i], n.attributeKeys[i+1:]...)
			n.attributeNames = append(n.attributeNames[:i], n.attributeNames[i+1:]...)
			return
		}
	}
}

// PackedAttributeNames returns a copy of the packed attribute name
// list, index-aligned with the attribute keys.
func (n *ElementNode) PackedAttributeNames() []int64 {
	return append([]int64(nil), n.attributeNames...)
}

// NamespaceCount returns the number of namespace declarations.
func (n *ElementNode) NamespaceCount() int { return len(n.namespaceKeys) }

// NamespaceKey returns the node key of namespace i.
func (n *ElementNode) NamespaceKey(i int) int64 { return n.namespaceKeys[i] }

// InsertNamespace appends a namespace key.
func (n *ElementNode) InsertNamespace(key int64) {
	n.namespaceKeys = append(n.namespaceKeys, key)
}

// RemoveNamespace removes a namespace key, keeping list order.
func (n *ElementNode) RemoveNamespace(key int64) {
	for i, k := range n.namespaceKeys {
		if k == key {
			n.namespaceKeys = append(n.namespaceKeys[:i], n.namespaceKeys[i+1:]...)
			return
		}
	}
}

func (n *ElementNode) Image() []byte {
	b := imageBase(encoding.NewImageBuilder(), KindElement, &n.delegate)
	return b.I32(n.prefixKey).I32(n.localNameKey).I32(n.uriKey).Image()
}

func (n *ElementNode) Clone() Node {
	out := *n
	out.attributeKeys = append([]int64(nil), n.attributeKeys...)
	out.attributeNames = append([]int64(nil), n.attributeNames...)
	out.namespaceKeys = append([]int64(nil), n.namespaceKeys...)
	return &out
}
