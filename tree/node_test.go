package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElementNode_AttributeList(t *testing.T) {
	el := NewElementNode(1, 0, NullKey, NullKey, NullNameKey, 10, NullNameKey, 0, nil)

	el.InsertAttribute(5, PackName(NullNameKey, 20))
	el.InsertAttribute(6, PackName(NullNameKey, 21))
	require.Equal(t, 2, el.AttributeCount())
	require.Equal(t, int64(5), el.AttributeKey(0))
	require.Equal(t, int64(6), el.AttributeKey(1))

	key, ok := el.AttributeKeyByName(PackName(NullNameKey, 21))
	require.True(t, ok)
	require.Equal(t, int64(6), key)

	_, ok = el.AttributeKeyByName(PackName(NullNameKey, 99))
	require.False(t, ok)

	el.RemoveAttribute(5)
	require.Equal(t, 1, el.AttributeCount())
	require.Equal(t, int64(6), el.AttributeKey(0))
}

func TestElementNode_NamespaceList(t *testing.T) {
	el := NewElementNode(1, 0, NullKey, NullKey, NullNameKey, 10, NullNameKey, 0, nil)

	el.InsertNamespace(7)
	el.InsertNamespace(8)
	require.Equal(t, 2, el.NamespaceCount())
	el.RemoveNamespace(7)
	require.Equal(t, 1, el.NamespaceCount())
	require.Equal(t, int64(8), el.NamespaceKey(0))
}

func TestClone_Independent(t *testing.T) {
	el := NewElementNode(1, 0, NullKey, NullKey, NullNameKey, 10, NullNameKey, 0, nil)
	el.InsertAttribute(5, PackName(NullNameKey, 20))

	clone := el.Clone().(*ElementNode)
	clone.InsertAttribute(6, PackName(NullNameKey, 21))
	clone.SetFirstChildKey(42)
	clone.IncrementChildCount()

	require.Equal(t, 1, el.AttributeCount())
	require.Equal(t, 2, clone.AttributeCount())
	require.Equal(t, NullKey, el.FirstChildKey())
	require.Equal(t, uint64(0), el.ChildCount())
}

func TestTextNode_ValueRoundTrip(t *testing.T) {
	text := NewTextNode(2, 1, NullKey, NullKey, []byte("hello"), true, nil)
	require.Equal(t, []byte("hello"), text.Value())

	text.SetValue([]byte("world"), true)
	require.Equal(t, []byte("world"), text.Value())

	clone := text.Clone().(*TextNode)
	clone.SetValue([]byte("changed"), true)
	require.Equal(t, []byte("world"), text.Value())
}

func TestImage_IgnoresPointersAndCounts(t *testing.T) {
	el := NewElementNode(1, 0, NullKey, NullKey, NullNameKey, 10, NullNameKey, 0, nil)
	before := append([]byte(nil), el.Image()...)

	el.SetFirstChildKey(7)
	el.SetRightSiblingKey(8)
	el.IncrementChildCount()
	el.SetDescendantCount(5)
	el.SetHash(12345)
	el.SetPathNodeKey(99)

	require.Equal(t, before, el.Image())
}

func TestImage_ChangesWithIdentityAndContent(t *testing.T) {
	a := NewTextNode(2, 1, NullKey, NullKey, []byte("x"), false, nil)
	b := NewTextNode(2, 1, NullKey, NullKey, []byte("y"), false, nil)
	c := NewTextNode(3, 1, NullKey, NullKey, []byte("x"), false, nil)

	require.NotEqual(t, a.Image(), b.Image())
	require.NotEqual(t, a.Image(), c.Image())
}

func TestImage_DistinguishesKinds(t *testing.T) {
	text := NewTextNode(2, 1, NullKey, NullKey, []byte("v"), false, nil)
	comment := NewCommentNode(2, 1, NullKey, NullKey, []byte("v"), false, nil)
	require.NotEqual(t, text.Image(), comment.Image())
}

type fixedAllocator struct{ next int64 }

func (a *fixedAllocator) NewNodeKey() int64 {
	a.next++
	return a.next
}

type fakeInterner struct{ keys map[string]int32 }

func (i *fakeInterner) CreateNameKey(name string, kind Kind) int32 {
	if i.keys == nil {
		i.keys = make(map[string]int32)
	}
	if key, ok := i.keys[name]; ok {
		return key
	}
	key := int32(len(i.keys) + 1)
	i.keys[name] = key
	return key
}

func TestFactory_CreateElement(t *testing.T) {
	f := NewFactory(&fixedAllocator{}, &fakeInterner{}, false)

	el := f.CreateElement(0, NullKey, NullKey, PrefixedName("p", "local", "urn:x"), 3, nil)
	require.Equal(t, int64(1), el.NodeKey())
	require.Equal(t, int64(0), el.ParentKey())
	require.Equal(t, int64(3), el.PathNodeKey())
	require.NotEqual(t, NullNameKey, el.PrefixKey())
	require.NotEqual(t, NullNameKey, el.LocalNameKey())
	require.NotEqual(t, NullNameKey, el.URIKey())
	require.Equal(t, int64(0), el.Hash())
	require.Equal(t, uint64(0), el.DescendantCount())
}

func TestFactory_NoPrefixLeavesNullKeys(t *testing.T) {
	f := NewFactory(&fixedAllocator{}, &fakeInterner{}, false)

	el := f.CreateElement(0, NullKey, NullKey, Name("plain"), 0, nil)
	require.Equal(t, NullNameKey, el.PrefixKey())
	require.Equal(t, NullNameKey, el.URIKey())
	require.NotEqual(t, NullNameKey, el.LocalNameKey())
}

func TestFactory_KeysMonotonic(t *testing.T) {
	f := NewFactory(&fixedAllocator{}, &fakeInterner{}, false)

	text := f.CreateText(0, NullKey, NullKey, []byte("a"), nil)
	comment := f.CreateComment(0, NullKey, NullKey, []byte("b"), nil)
	pi := f.CreatePI(0, NullKey, NullKey, Name("target"), []byte("c"), 0, nil)

	require.Equal(t, int64(1), text.NodeKey())
	require.Equal(t, int64(2), comment.NodeKey())
	require.Equal(t, int64(3), pi.NodeKey())
}
