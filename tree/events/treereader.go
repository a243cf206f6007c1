package events

import (
	"io"

	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/rtx"
)

// TreeReader streams an existing subtree in document order, emitting
// namespace and attribute events directly after each StartElement. It
// materializes the event sequence up front from the cursor's revision,
// so later writes do not disturb an in-flight copy.
type TreeReader struct {
	events []Event
	pos    int
}

// NewTreeReader serializes the subtree rooted at the cursor's current
// node. The cursor position is restored before returning.
func NewTreeReader(r *rtx.ReadTx) *TreeReader {
	startKey := r.NodeKey()
	defer r.MoveTo(startKey)

	t := &TreeReader{}
	t.serialize(r, startKey)
	return t
}

// serialize walks the subtree iteratively, closing elements on the way
// back up.
func (t *TreeReader) serialize(r *rtx.ReadTx, startKey int64) {
	// openStack holds keys of elements whose EndElement is pending.
	var openStack []int64

	axis := rtx.NewDescendantAxis(r.Source(), startKey, true)
	for key, ok := axis.Next(); ok; key, ok = axis.Next() {
		if !r.MoveTo(key) {
			return
		}

		// Close any elements this node is not inside of.
		for len(openStack) > 0 && !isDescendantOf(r, key, openStack[len(openStack)-1]) {
			t.events = append(t.events, End())
			openStack = openStack[:len(openStack)-1]
		}

		switch r.Kind() {
		case tree.KindElement:
			t.events = append(t.events, Start(r.Name()))
			for i := 0; i < r.NamespaceCount(); i++ {
				r.MoveToNamespace(i)
				t.events = append(t.events, NS(r.Name()))
				r.MoveToParent()
			}
			for i := 0; i < r.AttributeCount(); i++ {
				r.MoveToAttribute(i)
				t.events = append(t.events, Attr(r.Name(), r.Value()))
				r.MoveToParent()
			}
			openStack = append(openStack, key)
		case tree.KindText:
			t.events = append(t.events, TextEvent(r.Value()))
		case tree.KindComment:
			t.events = append(t.events, CommentEvent(r.Value()))
		case tree.KindProcessingInstruction:
			t.events = append(t.events, PIEvent(r.Name().Local, r.Value()))
		}
	}
	for range openStack {
		t.events = append(t.events, End())
	}
}

// isDescendantOf walks parent links from key looking for ancestor.
func isDescendantOf(r *rtx.ReadTx, key, ancestor int64) bool {
	n, ok, err := r.Source().GetRecord(key)
	if err != nil || !ok {
		return false
	}
	for n.HasParent() {
		if n.ParentKey() == ancestor {
			return true
		}
		parent, ok, err := r.Source().GetRecord(n.ParentKey())
		if err != nil || !ok {
			return false
		}
		n = parent
	}
	return false
}

func (t *TreeReader) Next() (Event, error) {
	if t.pos >= len(t.events) {
		return Event{}, io.EOF
	}
	e := t.events[t.pos]
	t.pos++
	return e, nil
}
