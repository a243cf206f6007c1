package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treekit/tree"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreOptions{})
	require.NoError(t, err)
	return s
}

func TestBootstrap(t *testing.T) {
	s := newTestStore(t)

	latest := s.Latest()
	require.Equal(t, uint32(0), latest.Revision())
	require.True(t, latest.IsBootstrap())
	require.Equal(t, 1, latest.RecordCount())

	root, ok := latest.getRecord(tree.DocumentRootKey)
	require.True(t, ok)
	require.Equal(t, tree.KindDocumentRoot, root.Kind())
}

func TestWriteTx_PutAndGet(t *testing.T) {
	s := newTestStore(t)
	w := s.BeginWriteTx(s.Latest())

	key := w.NewNodeKey()
	text := tree.NewTextNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey, []byte("v"), false, nil)
	require.NoError(t, w.PutRecord(text))

	got, ok, err := w.GetRecord(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, key, got.NodeKey())
}

func TestWriteTx_CopyOnWriteIsolation(t *testing.T) {
	s := newTestStore(t)

	// Commit a child under the root.
	w := s.BeginWriteTx(s.Latest())
	key := w.NewNodeKey()
	require.NoError(t, w.PutRecord(tree.NewTextNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey, []byte("old"), false, nil)))
	root, err := w.PrepareEntryForModification(tree.DocumentRootKey)
	require.NoError(t, err)
	root.(tree.StructuralNode).SetFirstChildKey(key)
	committed, err := w.Commit("base")
	require.NoError(t, err)

	// A second transaction modifies the text; the committed revision
	// must keep the old value.
	w2 := s.BeginWriteTx(committed)
	prepared, err := w2.PrepareEntryForModification(key)
	require.NoError(t, err)
	prepared.(tree.ValuedNode).SetValue([]byte("new"), false)

	r, err := s.BeginReadTx(committed.Revision())
	require.NoError(t, err)
	fromCommitted, ok, err := r.GetRecord(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("old"), fromCommitted.(tree.ValuedNode).Value())

	fromWorking, ok, err := w2.GetRecord(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("new"), fromWorking.(tree.ValuedNode).Value())
}

func TestWriteTx_RemoveEntry(t *testing.T) {
	s := newTestStore(t)
	w := s.BeginWriteTx(s.Latest())

	key := w.NewNodeKey()
	require.NoError(t, w.PutRecord(tree.NewTextNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey, []byte("v"), false, nil)))
	require.NoError(t, w.RemoveEntry(key))

	_, ok, err := w.GetRecord(key)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, w.RemoveEntry(key), ErrRecordNotFound)
}

func TestWriteTx_PrepareMissing(t *testing.T) {
	s := newTestStore(t)
	w := s.BeginWriteTx(s.Latest())

	_, err := w.PrepareEntryForModification(12345)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestWriteTx_CommitAdvancesRevision(t *testing.T) {
	s := newTestStore(t)

	w := s.BeginWriteTx(s.Latest())
	require.Equal(t, uint32(1), w.RevisionNumber())
	uber, err := w.Commit("first")
	require.NoError(t, err)
	require.Equal(t, uint32(1), uber.Revision())
	require.Equal(t, "first", uber.Meta().Message)
	require.NotEmpty(t, uber.Meta().ID)
	require.Equal(t, uint32(1), s.LatestRevision())

	// The transaction is spent after commit.
	_, err = w.Commit("again")
	require.ErrorIs(t, err, ErrTxClosed)
}

func TestWriteTx_RollbackReturnsLastDurable(t *testing.T) {
	s := newTestStore(t)
	w := s.BeginWriteTx(s.Latest())

	key := w.NewNodeKey()
	require.NoError(t, w.PutRecord(tree.NewTextNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey, []byte("v"), false, nil)))

	uber, err := w.Rollback()
	require.NoError(t, err)
	require.Equal(t, uint32(0), uber.Revision())
	require.Equal(t, uint32(0), s.LatestRevision())
}

func TestStore_RevisionLookup(t *testing.T) {
	s := newTestStore(t)
	w := s.BeginWriteTx(s.Latest())
	_, err := w.Commit("r1")
	require.NoError(t, err)

	u0, err := s.Revision(0)
	require.NoError(t, err)
	require.True(t, u0.IsBootstrap())

	_, err = s.Revision(9)
	require.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestNameDictionary_InternAndResolve(t *testing.T) {
	d := NewNameDictionary()

	key := d.CreateNameKey("foo", tree.KindElement)
	again := d.CreateNameKey("foo", tree.KindElement)
	require.Equal(t, key, again)
	require.Equal(t, "foo", d.GetName(key, tree.KindElement))
	require.Equal(t, "", d.GetName(key, tree.KindAttribute))
	require.Equal(t, "", d.GetName(tree.NullNameKey, tree.KindElement))
	require.Equal(t, 1, d.Len())
}

func TestNameDictionary_KindsAreSeparate(t *testing.T) {
	d := NewNameDictionary()

	elemKey := d.CreateNameKey("name", tree.KindElement)
	attKey := d.CreateNameKey("name", tree.KindAttribute)
	require.NotEqual(t, elemKey, attKey)
	require.Equal(t, "name", d.GetName(elemKey, tree.KindElement))
	require.Equal(t, "name", d.GetName(attKey, tree.KindAttribute))
}

func TestNameDictionary_RefCounting(t *testing.T) {
	d := NewNameDictionary()

	key := d.CreateNameKey("foo", tree.KindElement)
	d.CreateNameKey("foo", tree.KindElement)

	d.RemoveName(key, tree.KindElement)
	require.Equal(t, "foo", d.GetName(key, tree.KindElement))
	d.RemoveName(key, tree.KindElement)
	require.Equal(t, "", d.GetName(key, tree.KindElement))
	require.Equal(t, 0, d.Len())
}

func TestNameDictionary_CloneIndependent(t *testing.T) {
	d := NewNameDictionary()
	key := d.CreateNameKey("foo", tree.KindElement)

	clone := d.Clone()
	clone.RemoveName(key, tree.KindElement)
	require.Equal(t, "", clone.GetName(key, tree.KindElement))
	require.Equal(t, "foo", d.GetName(key, tree.KindElement))
}

func TestPersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(StoreOptions{Dir: dir, Author: "tester"})
	require.NoError(t, err)

	w := s.BeginWriteTx(s.Latest())
	key := w.NewNodeKey()
	nameKey := w.CreateNameKey("r", tree.KindElement)
	el := tree.NewElementNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey,
		tree.NullNameKey, nameKey, tree.NullNameKey, 1, nil)
	el.SetHash(42)
	require.NoError(t, w.PutRecord(el))
	root, err := w.PrepareEntryForModification(tree.DocumentRootKey)
	require.NoError(t, err)
	root.(tree.StructuralNode).SetFirstChildKey(key)
	root.(tree.StructuralNode).IncrementChildCount()
	_, err = w.Commit("persisted")
	require.NoError(t, err)

	// Reopen from disk.
	reopened, err := NewStore(StoreOptions{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, uint32(1), reopened.LatestRevision())

	latest := reopened.Latest()
	require.Equal(t, "persisted", latest.Meta().Message)
	require.Equal(t, "tester", latest.Meta().Author)

	got, ok := latest.getRecord(key)
	require.True(t, ok)
	gotEl := got.(*tree.ElementNode)
	require.Equal(t, nameKey, gotEl.LocalNameKey())
	require.Equal(t, int64(42), gotEl.Hash())
	require.Equal(t, int64(1), gotEl.PathNodeKey())

	r := &ReadTx{uber: latest}
	require.Equal(t, "r", r.GetName(nameKey, tree.KindElement))
}

func TestPersistence_AllKinds(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(StoreOptions{Dir: dir})
	require.NoError(t, err)

	w := s.BeginWriteTx(s.Latest())
	elKey := w.NewNodeKey()
	el := tree.NewElementNode(elKey, tree.DocumentRootKey, tree.NullKey, tree.NullKey,
		tree.NullNameKey, w.CreateNameKey("e", tree.KindElement), tree.NullNameKey, 0, nil)

	attKey := w.NewNodeKey()
	att := tree.NewAttributeNode(attKey, elKey, tree.NullNameKey,
		w.CreateNameKey("a", tree.KindAttribute), tree.NullNameKey, []byte("v"), false, 0, nil)
	el.InsertAttribute(attKey, tree.PackName(att.PrefixKey(), att.LocalNameKey()))

	nsKey := w.NewNodeKey()
	ns := tree.NewNamespaceNode(nsKey, elKey, w.CreateNameKey("p", tree.KindNamespace),
		tree.NullNameKey, w.CreateNameKey("urn:x", tree.KindNamespace), 0, nil)
	el.InsertNamespace(nsKey)

	textKey := w.NewNodeKey()
	text := tree.NewTextNode(textKey, elKey, tree.NullKey, tree.NullKey, []byte("txt"), false, nil)
	el.SetFirstChildKey(textKey)

	for _, n := range []tree.Node{el, att, ns, text} {
		require.NoError(t, w.PutRecord(n))
	}
	_, err = w.Commit("")
	require.NoError(t, err)

	reopened, err := NewStore(StoreOptions{Dir: dir})
	require.NoError(t, err)
	latest := reopened.Latest()

	gotEl, ok := latest.getRecord(elKey)
	require.True(t, ok)
	require.Equal(t, 1, gotEl.(*tree.ElementNode).AttributeCount())
	require.Equal(t, 1, gotEl.(*tree.ElementNode).NamespaceCount())

	gotText, ok := latest.getRecord(textKey)
	require.True(t, ok)
	require.Equal(t, []byte("txt"), gotText.(tree.ValuedNode).Value())

	gotAtt, ok := latest.getRecord(attKey)
	require.True(t, ok)
	require.Equal(t, []byte("v"), gotAtt.(tree.ValuedNode).Value())
}
