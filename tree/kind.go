// Package tree defines the node model of the storage engine: the record
// kinds of the XDM data model, their capability interfaces, and the
// factory that creates fresh records against the page layer.
//
// Nodes reference each other by stored 64-bit keys, never by pointers;
// resolving a key goes through the page transaction. NullKey marks an
// absent reference.
package tree

// Kind identifies the variant of a node record.
type Kind uint8

// Node kinds of the XDM data model.
const (
	KindDocumentRoot Kind = iota + 1
	KindElement
	KindAttribute
	KindNamespace
	KindText
	KindComment
	KindProcessingInstruction
)

// NullKey marks an absent node reference.
const NullKey int64 = -1

// DocumentRootKey is the fixed node key of the document root.
const DocumentRootKey int64 = 0

// NullNameKey marks an absent interned name component (e.g. no prefix).
const NullNameKey int32 = -1

// String returns the kind name used in errors and logs.
func (k Kind) String() string {
	switch k {
	case KindDocumentRoot:
		return "document-root"
	case KindElement:
		return "element"
	case KindAttribute:
		return "attribute"
	case KindNamespace:
		return "namespace"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindProcessingInstruction:
		return "processing-instruction"
	default:
		return "unknown"
	}
}

// Structural reports whether the kind participates in the sibling and
// first-child chain, as opposed to attributes and namespaces which hang
// off an element.
func (k Kind) Structural() bool {
	switch k {
	case KindDocumentRoot, KindElement, KindText, KindComment, KindProcessingInstruction:
		return true
	default:
		return false
	}
}
