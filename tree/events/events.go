// Package events models subtrees as flat event streams: the bulk-insert
// path of the write transaction consumes a Reader, and TreeReader
// serializes an existing subtree back into events for copy and replace
// operations.
//
// A well-formed stream nests StartElement/EndElement properly;
// Attribute and Namespace events apply to the most recently started
// element and must precede its content.
package events

import (
	"errors"
	"io"

	"github.com/joshuapare/treekit/tree"
)

// EventKind discriminates stream events.
type EventKind uint8

// Stream event kinds.
const (
	StartElement EventKind = iota + 1
	EndElement
	Text
	Comment
	ProcessingInstruction
	Attribute
	Namespace
)

// ErrMalformedStream indicates improper nesting or a trailing
// non-element event where an element was required.
var ErrMalformedStream = errors.New("events: malformed stream")

// Event is one element of a subtree stream. Name is set for element,
// attribute, namespace and PI events; Value for text, comment,
// attribute and PI events.
type Event struct {
	Kind  EventKind
	Name  tree.QName
	Value string
}

// Reader yields a stream of events. Next returns io.EOF when the
// stream is exhausted.
type Reader interface {
	Next() (Event, error)
}

// SliceReader replays a fixed event slice.
type SliceReader struct {
	events []Event
	pos    int
}

// NewSliceReader creates a reader over the given events.
func NewSliceReader(evts ...Event) *SliceReader {
	return &SliceReader{events: evts}
}

func (r *SliceReader) Next() (Event, error) {
	if r.pos >= len(r.events) {
		return Event{}, io.EOF
	}
	e := r.events[r.pos]
	r.pos++
	return e, nil
}

// Convenience constructors for building streams in tests and callers.

// Start opens an element.
func Start(name tree.QName) Event { return Event{Kind: StartElement, Name: name} }

// End closes the innermost open element.
func End() Event { return Event{Kind: EndElement} }

// TextEvent emits character content.
func TextEvent(value string) Event { return Event{Kind: Text, Value: value} }

// CommentEvent emits a comment.
func CommentEvent(value string) Event { return Event{Kind: Comment, Value: value} }

// PIEvent emits a processing instruction.
func PIEvent(target, content string) Event {
	return Event{Kind: ProcessingInstruction, Name: tree.Name(target), Value: content}
}

// Attr emits an attribute on the open element.
func Attr(name tree.QName, value string) Event {
	return Event{Kind: Attribute, Name: name, Value: value}
}

// NS emits a namespace declaration on the open element.
func NS(name tree.QName) Event { return Event{Kind: Namespace, Name: name} }
