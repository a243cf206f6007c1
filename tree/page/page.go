// Package page implements the copy-on-write page layer: fixed-size
// record pages grouped into immutable per-revision page directories, an
// interned name dictionary, and the page transaction the node write
// transaction drives.
//
// Committed revisions are immutable and share unmodified pages; a write
// transaction copies a page the first time one of its records is
// prepared for modification. Readers pin a committed revision and are
// never affected by the writer until it commits.
package page

import "github.com/joshuapare/treekit/tree"

// RecordsPerPage is the number of record slots per page. Copy-on-write
// granularity is one page: the first modification of any record in a
// page copies all of its records into the working revision.
const RecordsPerPage = 128

// RecordPage holds the records of one page number. Pages of committed
// revisions must never be mutated; the write transaction clones before
// writing.
type RecordPage struct {
	pageNo  int64
	records map[int64]tree.Node
}

// pageNoForKey maps a node key to its page number.
func pageNoForKey(key int64) int64 {
	return key / RecordsPerPage
}

// newRecordPage creates an empty page.
func newRecordPage(pageNo int64) *RecordPage {
	return &RecordPage{pageNo: pageNo, records: make(map[int64]tree.Node, RecordsPerPage)}
}

// get returns the record stored under key.
func (p *RecordPage) get(key int64) (tree.Node, bool) {
	n, ok := p.records[key]
	return n, ok
}

// put stores a record under its node key.
func (p *RecordPage) put(n tree.Node) {
	p.records[n.NodeKey()] = n
}

// remove deletes the record stored under key.
func (p *RecordPage) remove(key int64) {
	delete(p.records, key)
}

// clone deep-copies the page, cloning every record.
func (p *RecordPage) clone() *RecordPage {
	out := newRecordPage(p.pageNo)
	for key, n := range p.records {
		out.records[key] = n.Clone()
	}
	return out
}

// Len returns the number of live records on the page.
func (p *RecordPage) Len() int {
	return len(p.records)
}
