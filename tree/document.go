package tree

import (
	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// DocumentRootNode is the fixed root of a resource. It has no parent and
// no siblings; its children are the document-level element, comments and
// processing instructions.
type DocumentRootNode struct {
	delegate
	structDelegate
}

// NewDocumentRootNode constructs the bootstrap document root. The dewey
// ID is nil when order keys are not stored.
func NewDocumentRootNode(id *deweyid.ID) *DocumentRootNode {
	return &DocumentRootNode{
		delegate: delegate{nodeKey: DocumentRootKey, parentKey: NullKey, deweyID: id},
		structDelegate: structDelegate{
			firstChildKey:   NullKey,
			leftSiblingKey:  NullKey,
			rightSiblingKey: NullKey,
		},
	}
}

func (n *DocumentRootNode) Kind() Kind { return KindDocumentRoot }

func (n *DocumentRootNode) Image() []byte {
	return imageBase(encoding.NewImageBuilder(), KindDocumentRoot, &n.delegate).Image()
}

func (n *DocumentRootNode) Clone() Node {
	out := *n
	return &out
}
