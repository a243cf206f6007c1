package tree

import (
	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// Node is the capability every record shares. Mutation must only happen
// on records obtained through the page transaction's
// PrepareEntryForModification, so that copy-on-write is preserved.
type Node interface {
	Kind() Kind
	NodeKey() int64
	ParentKey() int64
	SetParentKey(key int64)
	HasParent() bool

	// Hash is the stored rolling/postorder hash (0 when unhashed).
	Hash() int64
	SetHash(hash int64)

	// DeweyID is nil when order keys are not stored.
	DeweyID() *deweyid.ID
	SetDeweyID(id *deweyid.ID)

	// Image is the deterministic byte encoding hashed by Hash64. It
	// covers identity and content fields (including the parent key),
	// never sibling or first-child pointers, counts, the stored hash or
	// the path node key.
	Image() []byte

	// Clone returns a deep copy, used by the page layer for
	// copy-on-write.
	Clone() Node
}

// StructuralNode is a node in the sibling/first-child chain.
type StructuralNode interface {
	Node

	FirstChildKey() int64
	SetFirstChildKey(key int64)
	HasFirstChild() bool

	LeftSiblingKey() int64
	SetLeftSiblingKey(key int64)
	HasLeftSibling() bool

	RightSiblingKey() int64
	SetRightSiblingKey(key int64)
	HasRightSibling() bool

	ChildCount() uint64
	IncrementChildCount()
	DecrementChildCount()

	DescendantCount() uint64
	SetDescendantCount(count uint64)
	DecrementDescendantCount()
}

// NamedNode is a node carrying an interned qualified name and a link
// into the path summary.
type NamedNode interface {
	Node

	PrefixKey() int32
	LocalNameKey() int32
	URIKey() int32
	SetName(prefixKey, localNameKey, uriKey int32)

	PathNodeKey() int64
	SetPathNodeKey(key int64)
}

// ValuedNode is a node carrying a byte value, stored encoded (optionally
// compressed).
type ValuedNode interface {
	Node

	// Value returns the decoded value bytes.
	Value() []byte
	// SetValue stores raw, compressing when compress is set.
	SetValue(raw []byte, compress bool)
}

// delegate carries the fields every node has.
type delegate struct {
	nodeKey   int64
	parentKey int64
	hash      int64
	deweyID   *deweyid.ID
}

func (d *delegate) NodeKey() int64              { return d.nodeKey }
func (d *delegate) ParentKey() int64            { return d.parentKey }
func (d *delegate) SetParentKey(key int64)      { d.parentKey = key }
func (d *delegate) HasParent() bool             { return d.parentKey != NullKey }
func (d *delegate) Hash() int64                 { return d.hash }
func (d *delegate) SetHash(hash int64)          { d.hash = hash }
func (d *delegate) DeweyID() *deweyid.ID        { return d.deweyID }
func (d *delegate) SetDeweyID(id *deweyid.ID)   { d.deweyID = id }

// structDelegate carries the sibling chain and the counters.
type structDelegate struct {
	firstChildKey   int64
	leftSiblingKey  int64
	rightSiblingKey int64
	childCount      uint64
	descendantCount uint64
}

func (d *structDelegate) FirstChildKey() int64         { return d.firstChildKey }
func (d *structDelegate) SetFirstChildKey(key int64)   { d.firstChildKey = key }
func (d *structDelegate) HasFirstChild() bool          { return d.firstChildKey != NullKey }
func (d *structDelegate) LeftSiblingKey() int64        { return d.leftSiblingKey }
func (d *structDelegate) SetLeftSiblingKey(key int64)  { d.leftSiblingKey = key }
func (d *structDelegate) HasLeftSibling() bool         { return d.leftSiblingKey != NullKey }
func (d *structDelegate) RightSiblingKey() int64       { return d.rightSiblingKey }
func (d *structDelegate) SetRightSiblingKey(key int64) { d.rightSiblingKey = key }
func (d *structDelegate) HasRightSibling() bool        { return d.rightSiblingKey != NullKey }
func (d *structDelegate) ChildCount() uint64           { return d.childCount }
func (d *structDelegate) SetChildCount(count uint64)   { d.childCount = count }
func (d *structDelegate) IncrementChildCount()         { d.childCount++ }
func (d *structDelegate) DecrementChildCount()         { d.childCount-- }
func (d *structDelegate) DescendantCount() uint64      { return d.descendantCount }

func (d *structDelegate) SetDescendantCount(count uint64) { d.descendantCount = count }
func (d *structDelegate) DecrementDescendantCount()       { d.descendantCount-- }

// nameDelegate carries the interned name and the path summary link.
type nameDelegate struct {
	prefixKey    int32
	localNameKey int32
	uriKey       int32
	pathNodeKey  int64
}

func (d *nameDelegate) PrefixKey() int32    { return d.prefixKey }
func (d *nameDelegate) LocalNameKey() int32 { return d.localNameKey }
func (d *nameDelegate) URIKey() int32       { return d.uriKey }

func (d *nameDelegate) SetName(prefixKey, localNameKey, uriKey int32) {
	d.prefixKey = prefixKey
	d.localNameKey = localNameKey
	d.uriKey = uriKey
}

func (d *nameDelegate) PathNodeKey() int64       { return d.pathNodeKey }
func (d *nameDelegate) SetPathNodeKey(key int64) { d.pathNodeKey = key }

// valueDelegate carries the encoded value and the compression setting
// used by the last SetValue.
type valueDelegate struct {
	encoded  []byte
	compress bool
}

func (d *valueDelegate) Value() []byte {
	raw, err := encoding.DecodeValue(d.encoded)
	if err != nil {
		// Values are written by EncodeValue only; a corrupt value means
		// the page layer handed back foreign bytes.
		panic(err)
	}
	return raw
}

func (d *valueDelegate) SetValue(raw []byte, compress bool) {
	d.encoded = encoding.EncodeValue(raw, compress)
	d.compress = compress
}

func (d *valueDelegate) cloneValue() valueDelegate {
	out := valueDelegate{compress: d.compress}
	out.encoded = append([]byte(nil), d.encoded...)
	return out
}

// imageBase appends the fields shared by all node images.
func imageBase(b *encoding.ImageBuilder, kind Kind, d *delegate) *encoding.ImageBuilder {
	return b.Byte(byte(kind)).I64(d.nodeKey).I64(d.parentKey)
}
