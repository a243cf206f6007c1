package page

import (
	"github.com/zeebo/xxh3"

	"github.com/joshuapare/treekit/tree"
)

// NameDictionary interns (kind, name) pairs into stable 31-bit keys.
// Keys are derived from xxh3 with linear probing on collision, so the
// same name interned into two revisions yields the same key as long as
// the probe paths match, which keeps hash images stable across
// revisions. Entries are reference-counted; RemoveName retires a name
// once its last user is gone.
type NameDictionary struct {
	entries map[int32]*nameEntry
}

type nameEntry struct {
	name string
	kind tree.Kind
	refs int
}

// NewNameDictionary creates an empty dictionary.
func NewNameDictionary() *NameDictionary {
	return &NameDictionary{entries: make(map[int32]*nameEntry)}
}

// hashName derives the initial probe position for a (kind, name) pair.
func hashName(kind tree.Kind, name string) int32 {
	h := xxh3.HashString(string(rune(kind)) + name)
	key := int32(h & 0x7fffffff)
	if key < 0 {
		key = 0
	}
	return key
}

// CreateNameKey interns the name and returns its key, incrementing the
// reference count of an existing entry.
func (d *NameDictionary) CreateNameKey(name string, kind tree.Kind) int32 {
	key := hashName(kind, name)
	for {
		e, ok := d.entries[key]
		if !ok {
			d.entries[key] = &nameEntry{name: name, kind: kind, refs: 1}
			return key
		}
		if e.name == name && e.kind == kind {
			e.refs++
			return key
		}
		// Collision: probe the next slot, wrapping below zero.
		if key == 0x7fffffff {
			key = 0
		} else {
			key++
		}
	}
}

// GetName resolves a key back to its name, or "" for unknown keys and
// tree.NullNameKey.
func (d *NameDictionary) GetName(key int32, kind tree.Kind) string {
	if key == tree.NullNameKey {
		return ""
	}
	if e, ok := d.entries[key]; ok && e.kind == kind {
		return e.name
	}
	return ""
}

// RemoveName drops one reference, deleting the entry when the count
// reaches zero. Unknown keys are ignored.
func (d *NameDictionary) RemoveName(key int32, kind tree.Kind) {
	e, ok := d.entries[key]
	if !ok || e.kind != kind {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(d.entries, key)
	}
}

// Len returns the number of interned names.
func (d *NameDictionary) Len() int {
	return len(d.entries)
}

// Clone deep-copies the dictionary for the next working revision.
func (d *NameDictionary) Clone() *NameDictionary {
	out := &NameDictionary{entries: make(map[int32]*nameEntry, len(d.entries))}
	for key, e := range d.entries {
		copied := *e
		out.entries[key] = &copied
	}
	return out
}
