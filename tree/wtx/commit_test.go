package wtx_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/resource"
	"github.com/joshuapare/treekit/tree/rtx"
	"github.com/joshuapare/treekit/tree/wtx"
)

func TestCommit_CreatesRevisionAndContinues(t *testing.T) {
	m, w := newTrx(t, defaultCfg())

	rKey, _, _, _ := buildScenarioTree(t, w)
	require.NoError(t, w.Commit("initial tree"))
	require.Equal(t, uint32(1), m.LatestRevision())
	require.Equal(t, 0, w.ModificationCount())

	// The transaction continues on the new head; the cursor survives.
	require.Equal(t, uint32(2), w.PageTx().RevisionNumber())
	require.True(t, w.MoveTo(rKey))
	require.NoError(t, w.InsertCommentAsFirstChild("second revision"))
	require.NoError(t, w.Commit(""))
	require.Equal(t, uint32(2), m.LatestRevision())
}

func TestCommit_ReadersSeeCommittedRevision(t *testing.T) {
	m, w := newTrx(t, defaultCfg())

	rKey, aKey, bKey, textKey := buildScenarioTree(t, w)
	require.NoError(t, w.Commit("tree"))

	readTx, err := m.Store().BeginReadTx(1)
	require.NoError(t, err)
	r, err := rtx.New(readTx)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.MoveTo(rKey))
	require.Equal(t, "r", r.Name().Local)
	require.Equal(t, uint64(3), r.ChildCount())
	require.True(t, r.MoveToFirstChild())
	require.Equal(t, aKey, r.NodeKey())
	require.True(t, r.MoveToRightSibling())
	require.Equal(t, bKey, r.NodeKey())
	require.True(t, r.MoveToRightSibling())
	require.Equal(t, textKey, r.NodeKey())
	require.Equal(t, "xy", r.Value())

	// Uncommitted writer edits stay invisible to the pinned reader.
	require.True(t, w.MoveTo(textKey))
	require.NoError(t, w.SetValue("changed"))
	require.True(t, r.MoveTo(textKey))
	require.Equal(t, "xy", r.Value())
	require.NoError(t, w.Rollback())
}

func TestCommit_Credentials(t *testing.T) {
	cfg := resource.DefaultConfig()
	m, err := resource.Open(resource.Options{Config: &cfg, Author: "jane"})
	require.NoError(t, err)
	defer m.Close()

	w, err := wtx.Begin(m)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.NoError(t, w.Commit("hello"))

	creds := w.GetCommitCredentials()
	require.Equal(t, "jane", creds.Author)
	require.Equal(t, "hello", creds.Message)
	require.False(t, creds.Timestamp.IsZero())
}

func TestRollback_RestoresLastCommitted(t *testing.T) {
	m, w := newTrx(t, defaultCfg())

	rKey, aKey, _, _ := buildScenarioTree(t, w)
	require.NoError(t, w.Commit(""))

	require.True(t, w.MoveTo(aKey))
	require.NoError(t, w.Remove())
	require.True(t, w.MoveTo(rKey))
	require.NoError(t, w.InsertCommentAsFirstChild("noise"))

	require.NoError(t, w.Rollback())
	require.Equal(t, uint32(1), m.LatestRevision())
	require.Equal(t, 0, w.ModificationCount())

	// The tree is back to the committed state.
	require.True(t, w.MoveTo(rKey))
	require.Equal(t, uint64(3), w.ChildCount())
	require.True(t, w.MoveToFirstChild())
	require.Equal(t, aKey, w.NodeKey())
	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
}

func TestScenario_RevertTo(t *testing.T) {
	m, w := newTrx(t, defaultCfg())

	// Revision 1: bare root element.
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	rKey := w.NodeKey()
	require.NoError(t, w.Commit("r only"))

	// Revision 2: a child.
	require.True(t, w.MoveTo(rKey))
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("a")))
	require.NoError(t, w.Commit("with a"))
	require.Equal(t, uint32(2), m.LatestRevision())

	// Revert to revision 1: the child is gone, the cursor is on the
	// document root.
	require.NoError(t, w.RevertTo(1))
	require.True(t, w.IsDocumentRoot())
	require.True(t, w.MoveTo(rKey))
	require.Equal(t, uint64(0), w.ChildCount())

	// Committing on top creates revision 3 whose content matches the
	// reverted-to state plus new edits.
	require.NoError(t, w.InsertCommentAsFirstChild("post revert"))
	require.NoError(t, w.Commit("reverted"))
	require.Equal(t, uint32(3), m.LatestRevision())

	readTx, err := m.Store().BeginReadTx(3)
	require.NoError(t, err)
	r, err := rtx.New(readTx)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.MoveTo(rKey))
	require.Equal(t, uint64(1), r.ChildCount())
	require.True(t, r.MoveToFirstChild())
	require.Equal(t, tree.KindComment, r.Kind())
}

func TestRevertTo_UnknownRevision(t *testing.T) {
	_, w := newTrx(t, defaultCfg())
	require.ErrorIs(t, w.RevertTo(9), resource.ErrNoSuchRevision)
}

func TestClose_RefusesUncommitted(t *testing.T) {
	cfg := resource.DefaultConfig()
	m, err := resource.Open(resource.Options{Config: &cfg})
	require.NoError(t, err)
	defer m.Close()

	w, err := wtx.Begin(m)
	require.NoError(t, err)

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.ErrorIs(t, w.Close(), wtx.ErrUncommittedChanges)

	require.NoError(t, w.Commit(""))
	require.NoError(t, w.Close())

	// Closing twice is fine; using the transaction afterwards is not.
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Commit(""), wtx.ErrClosed)
}

func TestSingleWriter(t *testing.T) {
	cfg := resource.DefaultConfig()
	m, err := resource.Open(resource.Options{Config: &cfg})
	require.NoError(t, err)
	defer m.Close()

	w, err := wtx.Begin(m)
	require.NoError(t, err)

	_, err = wtx.Begin(m)
	require.ErrorIs(t, err, resource.ErrWriterActive)

	require.NoError(t, w.Close())
	w2, err := wtx.Begin(m)
	require.NoError(t, err)
	require.NoError(t, w2.Close())
}

func TestHooks_RunInOrder(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	var order []string
	w.AddPreCommitHook(func(*wtx.Trx) error {
		order = append(order, "pre1")
		return nil
	})
	w.AddPreCommitHook(func(*wtx.Trx) error {
		order = append(order, "pre2")
		return nil
	})
	w.AddPostCommitHook(func(*wtx.Trx) error {
		order = append(order, "post")
		return nil
	})

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.NoError(t, w.Commit(""))
	require.Equal(t, []string{"pre1", "pre2", "post"}, order)
}

func TestHooks_PreCommitFailureAbortsCommit(t *testing.T) {
	m, w := newTrx(t, defaultCfg())

	boom := errors.New("boom")
	w.AddPreCommitHook(func(*wtx.Trx) error { return boom })

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.ErrorIs(t, w.Commit(""), boom)
	require.Equal(t, uint32(0), m.LatestRevision())

	// Roll back so the cleanup can close.
	require.NoError(t, w.Rollback())
}

func TestIntermediateCommit_MaxNodeCount(t *testing.T) {
	cfg := defaultCfg()
	cfg.MaxNodeCount = 3
	m, w := newTrx(t, cfg)

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	rKey := w.NodeKey()
	for i := 0; i < 6; i++ {
		require.True(t, w.MoveTo(rKey))
		require.NoError(t, w.InsertCommentAsFirstChild("filler"))
	}
	require.GreaterOrEqual(t, m.LatestRevision(), uint32(1))
	require.LessOrEqual(t, w.ModificationCount(), 4)

	if w.ModificationCount() > 0 {
		require.NoError(t, w.Commit(""))
	}
	checkSubtree(t, w.PageTx(), tree.DocumentRootKey)
}

func TestAutoCommit_Scheduled(t *testing.T) {
	cfg := defaultCfg()
	cfg.AutoCommitInterval = 20 * time.Millisecond
	m, w := newTrx(t, cfg)

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))

	require.Eventually(t, func() bool {
		return m.LatestRevision() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, w.ModificationCount())
}

func TestTruncateTo_NotImplemented(t *testing.T) {
	_, w := newTrx(t, defaultCfg())
	require.ErrorIs(t, w.TruncateTo(0), wtx.ErrNotImplemented)
}

func TestGetPathSummary(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("c")))

	summary := w.GetPathSummary()
	require.NotNil(t, summary)
	require.True(t, summary.PathExists(tree.Name("r"), tree.Name("c")))
	require.False(t, summary.PathExists(tree.Name("x")))
}

func TestPathSummary_SurvivesCommit(t *testing.T) {
	_, w := newTrx(t, defaultCfg())

	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("r")))
	require.NoError(t, w.InsertElementAsFirstChild(tree.Name("c")))
	require.NoError(t, w.Commit(""))

	// Rebuilt from the stored tree after reinstantiation.
	summary := w.GetPathSummary()
	require.True(t, summary.PathExists(tree.Name("r"), tree.Name("c")))
}
