package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treekit/tree"
)

func textNode(key int64) tree.Node {
	return tree.NewTextNode(key, tree.DocumentRootKey, tree.NullKey, tree.NullKey, []byte("v"), false, nil)
}

func TestPathIndex_InsertAndDelete(t *testing.T) {
	idx := NewPathIndex(Def{Name: "all"})

	idx.Listen(Insert, textNode(1), 10)
	idx.Listen(Insert, textNode(2), 10)
	idx.Listen(Insert, textNode(3), 11)
	require.Equal(t, 3, idx.Size())
	require.ElementsMatch(t, []int64{1, 2}, idx.Keys(10))

	idx.Listen(Delete, textNode(1), 10)
	require.ElementsMatch(t, []int64{2}, idx.Keys(10))

	idx.Listen(Delete, textNode(2), 10)
	require.Empty(t, idx.Keys(10))
	require.Equal(t, 1, idx.Size())
}

func TestPathIndex_IgnoresUncoveredPaths(t *testing.T) {
	idx := NewPathIndex(Def{Name: "only-10", Paths: []int64{10}})

	idx.Listen(Insert, textNode(1), 10)
	idx.Listen(Insert, textNode(2), 11)
	require.Equal(t, 1, idx.Size())
}

func TestPathIndex_IgnoresNullPath(t *testing.T) {
	idx := NewPathIndex(Def{Name: "all"})
	idx.Listen(Insert, textNode(1), tree.NullKey)
	require.Equal(t, 0, idx.Size())
}

func TestController_FanOut(t *testing.T) {
	c := NewController(nil)
	c.CreateIndexListeners([]Def{{Name: "a"}, {Name: "b"}})
	require.Len(t, c.Listeners(), 2)

	c.NotifyChange(Insert, textNode(1), 10)
	for _, l := range c.Listeners() {
		require.Equal(t, 1, l.(*PathIndex).Size())
	}
}

func TestController_RebuildReplacesListeners(t *testing.T) {
	c := NewController(nil)
	c.CreateIndexListeners([]Def{{Name: "a"}})
	c.NotifyChange(Insert, textNode(1), 10)

	c.CreateIndexListeners(c.Defs())
	require.Len(t, c.Listeners(), 1)
	require.Equal(t, 0, c.Listeners()[0].(*PathIndex).Size())
}

func TestChangeType_String(t *testing.T) {
	require.Equal(t, "insert", Insert.String())
	require.Equal(t, "delete", Delete.String())
}
