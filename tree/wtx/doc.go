// Package wtx implements the single node write transaction of a
// resource.
//
// # Overview
//
// The write transaction is the only way to mutate a stored tree. It
// combines five responsibilities:
//
//  1. Structural edits: insert, remove, replace, move and copy of
//     nodes and whole subtrees, including attribute and namespace
//     management on elements.
//  2. Copy-on-write materialization: every mutation goes through the
//     page transaction's PrepareEntryForModification, so committed
//     revisions are never touched.
//  3. Hash maintenance: a per-node rolling Merkle hash and descendant
//     counts are kept in sync with every edit (see Hash Modes below).
//  4. Order keys: hierarchical dewey IDs are assigned to new nodes and
//     recomputed for relocated subtrees when the resource stores them.
//  5. Commit coordination: commit, rollback and revert swap the page
//     transaction underneath a stable cursor, with pre- and
//     post-commit hooks and two auto-commit triggers.
//
// # Transaction lifecycle
//
// A transaction is opened against the latest revision and stays usable
// across commits:
//
//	m, _ := resource.Open(resource.Options{Dir: dir})
//	w, _ := wtx.Begin(m)
//	defer w.Close()
//
//	w.InsertElementAsFirstChild(tree.Name("library"))
//	w.InsertElementAsFirstChild(tree.Name("book"))
//	w.InsertAttribute(tree.Name("isbn"), "12345", wtx.MoveToParentElement)
//	w.Commit("initial load")
//
// After Commit the transaction is reinstantiated on the new head: a
// fresh page write transaction, node factory, path summary writer and
// index listeners. Rollback discards the working revision and reopens
// on the last durable one. RevertTo reopens with an older revision as
// the base; the next commit then creates a new head on top of it.
//
// Close refuses to run while uncommitted modifications exist.
//
// # Edit semantics
//
// Text nodes never end up adjacent: inserting text next to a text node
// concatenates into it, and removing a node between two text nodes
// merges them into the left one. Both cases adapt hashes without
// emitting index INSERT/DELETE pairs for the surviving node.
//
// Attributes upsert by name: inserting an attribute whose (prefix,
// local) name exists on the element overwrites the value in place.
// Namespace prefixes must be unique per element.
//
// Moves relocate a subtree without copying. The target anchor must not
// sit inside the moved subtree (checked by walking the anchor's
// ancestors), and a move that would be a no-op (already in place) does
// nothing. After the topology surgery the subtree's index entries are
// re-announced and, when order keys are stored, the subtree is
// renumbered in level order.
//
// Bulk inserts consume an event stream (events.Reader). Per-edit hash
// maintenance is suspended for the duration; the inserted subtree is
// recomputed bottom-up afterwards, folded into the ancestor chain with
// the rolling formula, and the operation ends in a commit.
//
// # Hash modes
//
// The resource configuration fixes one of three modes:
//
//   - HashNone: no hashes; descendant counts are still maintained.
//   - HashRolling: O(depth) incremental updates along the ancestor
//     path of each edit.
//   - HashPostorder: recompute of the affected chain from stored child
//     hashes on each edit.
//
// Both hashing modes agree: recomputing any node bottom-up from
// scratch yields exactly the stored hash. The per-node hash is
//
//	hash(n) = H(image(n)) + Σ PRIME·hash(child)
//
// where children are the namespaces, attributes and structural
// children, H is SHA-256 truncated to the low 64 bits, PRIME is 77081,
// and all arithmetic wraps in int64.
//
// # Concurrency
//
// The transaction is logically single-threaded and not safe for
// concurrent use — with one exception: when a periodic auto-commit
// interval is configured, a scheduler commits in the background and
// every public method synchronizes on an internal mutex. Without the
// interval no lock is taken and the caller must serialize access.
//
// At most one write transaction exists per resource; the resource
// manager enforces the writer slot. Any number of read transactions
// may run concurrently, each pinned to a committed revision.
package wtx
