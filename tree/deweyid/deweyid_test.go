package deweyid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRoot(t *testing.T) {
	root := NewRoot()
	require.Equal(t, []uint32{1}, root.Divisions())
	require.Equal(t, 0, root.Level())
}

func TestNewChildID(t *testing.T) {
	root := NewRoot()
	child := root.NewChildID()

	require.Equal(t, []uint32{1, 17}, child.Divisions())
	require.Equal(t, 1, child.Level())
	require.Equal(t, -1, Compare(root, child))
}

func TestNewAttributeAndNamespaceIDs(t *testing.T) {
	element := NewRoot().NewChildID()
	att := element.NewAttributeID()
	ns := element.NewNamespaceID()
	child := element.NewChildID()

	// Namespaces sort before attributes, both before structural
	// children.
	require.Equal(t, -1, Compare(ns, att))
	require.Equal(t, -1, Compare(att, child))
	require.Equal(t, []uint32{1, 17, 0, 17}, ns.Divisions())
	require.Equal(t, []uint32{1, 17, 1, 17}, att.Divisions())
}

func TestNewBetween_AfterLeft(t *testing.T) {
	left := NewRoot().NewChildID()
	id, err := NewBetween(left, nil)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 33}, id.Divisions())
	require.Equal(t, -1, Compare(left, id))
}

func TestNewBetween_BeforeRight(t *testing.T) {
	right := NewRoot().NewChildID()
	id, err := NewBetween(nil, right)
	require.NoError(t, err)
	require.Equal(t, -1, Compare(id, right))
	require.Equal(t, 1, id.Level())
}

func TestNewBetween_Midpoint(t *testing.T) {
	left := FromDivisions([]uint32{1, 17})
	right := FromDivisions([]uint32{1, 33})

	id, err := NewBetween(left, right)
	require.NoError(t, err)
	require.Equal(t, -1, Compare(left, id))
	require.Equal(t, -1, Compare(id, right))
	require.Equal(t, 1, id.Level())
}

func TestNewBetween_AdjacentExtends(t *testing.T) {
	left := FromDivisions([]uint32{1, 17})
	right := FromDivisions([]uint32{1, 19})

	id, err := NewBetween(left, right)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 18, 17}, id.Divisions())
	require.Equal(t, -1, Compare(left, id))
	require.Equal(t, -1, Compare(id, right))
	// The even division does not add a level.
	require.Equal(t, 1, id.Level())
}

func TestNewBetween_ExtensionSortsAfterLeftSubtree(t *testing.T) {
	left := FromDivisions([]uint32{1, 17})
	leftChild := left.NewChildID()
	right := FromDivisions([]uint32{1, 19})

	id, err := NewBetween(left, right)
	require.NoError(t, err)
	// The new sibling must come after every descendant of left.
	require.Equal(t, -1, Compare(leftChild, id))
}

func TestNewBetween_PrefixCase(t *testing.T) {
	left := FromDivisions([]uint32{1, 17})
	right := FromDivisions([]uint32{1, 17, 19})

	id, err := NewBetween(left, right)
	require.NoError(t, err)
	require.Equal(t, -1, Compare(left, id))
	require.Equal(t, -1, Compare(id, right))
}

func TestNewBetween_Errors(t *testing.T) {
	_, err := NewBetween(nil, nil)
	require.ErrorIs(t, err, ErrNoAnchor)

	a := FromDivisions([]uint32{1, 17})
	b := FromDivisions([]uint32{1, 33})
	_, err = NewBetween(b, a)
	require.ErrorIs(t, err, ErrNotOrdered)

	_, err = NewBetween(a, a)
	require.ErrorIs(t, err, ErrNotOrdered)
}

func TestCompare_PrefixBeforeExtension(t *testing.T) {
	parent := FromDivisions([]uint32{1, 17})
	child := FromDivisions([]uint32{1, 17, 17})
	sibling := FromDivisions([]uint32{1, 33})

	require.Equal(t, -1, Compare(parent, child))
	require.Equal(t, -1, Compare(child, sibling))
	require.Equal(t, 0, Compare(parent, parent))
	require.Equal(t, 1, Compare(sibling, child))
}

func TestRepeatedBetweenStaysOrdered(t *testing.T) {
	left := FromDivisions([]uint32{1, 17})
	right := FromDivisions([]uint32{1, 19})

	// Repeatedly bisect the same gap; order must hold at every step.
	for i := 0; i < 20; i++ {
		mid, err := NewBetween(left, right)
		require.NoError(t, err)
		require.Equal(t, -1, Compare(left, mid), "step %d: left %v mid %v", i, left, mid)
		require.Equal(t, -1, Compare(mid, right), "step %d: mid %v right %v", i, mid, right)
		right = mid
	}
}

func TestSiblingChainOrdered(t *testing.T) {
	ids := []*ID{NewRoot().NewChildID()}
	for i := 0; i < 50; i++ {
		next, err := NewBetween(ids[len(ids)-1], nil)
		require.NoError(t, err)
		ids = append(ids, next)
	}
	for i := 1; i < len(ids); i++ {
		require.Equal(t, -1, Compare(ids[i-1], ids[i]))
		require.Equal(t, 1, ids[i].Level())
	}
}

func TestString(t *testing.T) {
	require.Equal(t, "1.17.33", FromDivisions([]uint32{1, 17, 33}).String())
}

func TestEqual(t *testing.T) {
	a := FromDivisions([]uint32{1, 17})
	require.True(t, a.Equal(FromDivisions([]uint32{1, 17})))
	require.False(t, a.Equal(FromDivisions([]uint32{1, 19})))
	require.False(t, a.Equal(nil))
}
