package events

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treekit/tree"
)

func TestSliceReader_YieldsInOrderThenEOF(t *testing.T) {
	r := NewSliceReader(
		Start(tree.Name("r")),
		TextEvent("x"),
		End(),
	)

	e, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, StartElement, e.Kind)
	require.Equal(t, "r", e.Name.Local)

	e, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, Text, e.Kind)
	require.Equal(t, "x", e.Value)

	e, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, EndElement, e.Kind)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestBuilders(t *testing.T) {
	require.Equal(t, Event{Kind: Comment, Value: "c"}, CommentEvent("c"))
	require.Equal(t, Event{Kind: ProcessingInstruction, Name: tree.Name("t"), Value: "v"}, PIEvent("t", "v"))
	require.Equal(t, Event{Kind: Attribute, Name: tree.Name("a"), Value: "1"}, Attr(tree.Name("a"), "1"))
	require.Equal(t, Event{Kind: Namespace, Name: tree.PrefixedName("p", "", "urn:x")}, NS(tree.PrefixedName("p", "", "urn:x")))
}
