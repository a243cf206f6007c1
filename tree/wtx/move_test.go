package wtx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/deweyid"
	"github.com/joshuapare/treekit/tree/wtx"
)

func TestScenario_MoveToRightSiblingOfText(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	rKey, aKey, bKey, textKey := buildScenarioTree(t, w)

	// Move <a/> behind the text node: <r><b/>xy<a/></r>.
	require.True(t, w.MoveTo(textKey))
	require.NoError(t, w.MoveSubtreeToRightSibling(aKey))

	require.True(t, w.MoveTo(rKey))
	require.Equal(t, uint64(3), w.ChildCount())
	require.Equal(t, uint64(3), w.DescendantCount())

	require.True(t, w.MoveToFirstChild())
	require.Equal(t, bKey, w.NodeKey())
	require.True(t, w.MoveToRightSibling())
	require.Equal(t, textKey, w.NodeKey())
	require.True(t, w.MoveToRightSibling())
	require.Equal(t, aKey, w.NodeKey())
	require.False(t, w.MoveToRightSibling())

	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
	checkHashes(t, w.PageTx(), tree.DocumentRootKey)
}

func TestMove_SelfRejected(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	_, aKey, _, _ := buildScenarioTree(t, w)
	require.True(t, w.MoveTo(aKey))
	require.ErrorIs(t, w.MoveSubtreeToFirstChild(aKey), wtx.ErrMoveToSelf)
}

func TestMove_IntoOwnSubtreeRejected(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("outer")))
	outerKey := w.NodeKey()
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("inner")))

	// The cursor sits inside outer's subtree.
	require.ErrorIs(t, w.MoveSubtreeToFirstChild(outerKey), wtx.ErrMoveToOwnSubtree)
}

func TestMove_InvalidKeyRejected(t *testing.T) {
	_, w := newTrx(t, defaultCfg())
	buildScenarioTree(t, w)

	require.ErrorIs(t, w.MoveSubtreeToFirstChild(-2), wtx.ErrInvalidNodeKey)
	require.ErrorIs(t, w.MoveSubtreeToFirstChild(999), wtx.ErrInvalidNodeKey)
}

func TestMove_MissingSourceRejected(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	rKey, aKey, _, _ := buildScenarioTree(t, w)
	require.True(t, w.MoveTo(aKey))
	require.NoError(t, w.Remove())

	require.True(t, w.MoveTo(rKey))
	require.ErrorIs(t, w.MoveSubtreeToFirstChild(aKey), wtx.ErrNodeGone)
}

func TestMove_AlreadyFirstChildIsNoop(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	rKey, aKey, _, _ := buildScenarioTree(t, w)
	require.True(t, w.MoveTo(rKey))
	before := w.ModificationCount()
	require.NoError(t, w.MoveSubtreeToFirstChild(aKey))
	require.Equal(t, before, w.ModificationCount())
}

func TestMove_ToFirstChild(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	rKey, aKey, bKey, _ := buildScenarioTree(t, w)

	// Move <b/> under <a/>: <r><a><b/></a>xy</r>.
	require.True(t, w.MoveTo(aKey))
	require.NoError(t, w.MoveSubtreeToFirstChild(bKey))

	require.True(t, w.MoveTo(aKey))
	require.Equal(t, uint64(1), w.ChildCount())
	require.Equal(t, uint64(1), w.DescendantCount())
	require.True(t, w.MoveToFirstChild())
	require.Equal(t, bKey, w.NodeKey())

	require.True(t, w.MoveTo(rKey))
	require.Equal(t, uint64(2), w.ChildCount())
	require.Equal(t, uint64(3), w.DescendantCount())

	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
	checkHashes(t, w.PageTx(), tree.DocumentRootKey)
}

func TestMove_ToLeftSibling(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	rKey, aKey, bKey, textKey := buildScenarioTree(t, w)

	// Move <a/> before the text: <r><b/><a/>xy</r>.
	require.True(t, w.MoveTo(textKey))
	require.NoError(t, w.MoveSubtreeToLeftSibling(aKey))

	require.True(t, w.MoveTo(rKey))
	require.True(t, w.MoveToFirstChild())
	require.Equal(t, bKey, w.NodeKey())
	require.True(t, w.MoveToRightSibling())
	require.Equal(t, aKey, w.NodeKey())
	require.True(t, w.MoveToRightSibling())
	require.Equal(t, textKey, w.NodeKey())

	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
	checkHashes(t, w.PageTx(), tree.DocumentRootKey)
}

func TestMove_DepartureMergesTextSiblings(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	// <r>left<m/>right<z/></r>; moving <m/> merges left+right.
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	rKey := w.NodeKey()
	require.NoError(t, w.InsertTextAsFirstChild("left"))
	leftKey := w.NodeKey()
	require.NoError(t, w.InsertElementAsRightSibling(tree.Name("m")))
	mKey := w.NodeKey()
	require.NoError(t, w.InsertTextAsRightSibling("right"))
	require.NoError(t, w.InsertElementAsRightSibling(tree.Name("z")))
	zKey := w.NodeKey()

	require.NoError(t, w.MoveSubtreeToFirstChild(mKey))

	// z now holds m; r holds merged text and z.
	require.True(t, w.MoveTo(rKey))
	require.Equal(t, uint64(2), w.ChildCount())
	require.True(t, w.MoveToFirstChild())
	require.Equal(t, leftKey, w.NodeKey())
	require.Equal(t, "leftright", w.Value())
	require.True(t, w.MoveToRightSibling())
	require.Equal(t, zKey, w.NodeKey())
	require.True(t, w.MoveToFirstChild())
	require.Equal(t, mKey, w.NodeKey())

	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
	checkHashes(t, w.PageTx(), tree.DocumentRootKey)
}

func TestMove_RecomputesDeweyIDs(t *testing.T) {
	cfg := defaultCfg()
	cfg.StoreDeweyIDs = true
	_, w := newTrx(t, cfg)

	rKey, aKey, _, textKey := buildScenarioTree(t, w)

	// Give the moved subtree depth: <a><c/></a>.
	require.True(t, w.MoveTo(aKey))
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("c")))
	require.NoError(t, w.InsertAttribute(tree.Name("k"), "v", wtx.MoveToParentElement))

	require.True(t, w.MoveTo(textKey))
	require.NoError(t, w.MoveSubtreeToRightSibling(aKey))

	// Order keys must match document order again after the move.
	require.True(t, w.MoveTo(rKey))
	var last *deweyid.ID
	var walk func()
	walk = func() {
		id := w.CurrentNode().DeweyID()
		require.NotNil(t, id)
		if last != nil {
			require.Equal(t, -1, deweyid.Compare(last, id),
				"order violated at node %d (%s after %s)", w.NodeKey(), id, last)
		}
		last = id
		if w.MoveToFirstChild() {
			for {
				walk()
				if !w.MoveToRightSibling() {
					break
				}
			}
			w.MoveToParent()
		}
	}
	walk()

	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
	checkHashes(t, w.PageTx(), tree.DocumentRootKey)
}
