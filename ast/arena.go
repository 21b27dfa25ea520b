// Package ast defines the closed family of AST node types the reconstruction
// engine produces, plus the arena that owns them.
//
// Nodes are not linked by pointer as in a conventional tree; instead each
// node that refers to children stores a Handle, a lightweight index into an
// Arena. This is the chosen resolution (see DESIGN.md) of the "ref-counted
// handles" design: construction is strictly
// bottom-up, so unique ownership by index needs no reference counting and
// introduces no cycles.
package ast

// Handle is an index into an Arena's node storage. The zero value, Nil, never
// refers to a real node.
type Handle int32

// Nil is the handle that represents "no node", used for optional fields
// (e.g. a Raise with no operands, or a For loop with no else clause).
const Nil Handle = 0

// Valid reports whether h refers to a node in some arena (it does not
// validate the handle against a specific arena).
func (h Handle) Valid() bool { return h > 0 }

// Arena owns every node produced while reconstructing a single code record
// (and, recursively, its nested code records share the caller's arena so
// that handles remain comparable across a single top-level decompile).
type Arena struct {
	nodes []Node
}

// NewArena returns an empty arena with room for n nodes, a reasonable
// estimate being a small multiple of the code record's instruction count.
// Slot 0 is reserved for Nil, so the first allocated node gets handle 1.
func NewArena(capacityHint int) *Arena {
	return &Arena{nodes: append(make([]Node, 0, capacityHint+1), nil)}
}

// Alloc appends n to the arena and returns its handle. Once a node is
// reachable from another node's fields or from a block's Body, it must not
// be mutated again (the invariant: "a node, once appended to a block
// body, is not further mutated").
func (a *Arena) Alloc(n Node) Handle {
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// At returns the node stored at h, or nil for Nil. It panics if h is out of
// range, which indicates an engine bug (a dangling handle should never be
// dereferenced).
func (a *Arena) At(h Handle) Node {
	return a.nodes[h]
}

// Len returns the number of nodes allocated so far, usable as a checkpoint
// to detect (but not undo) allocations made during a failed speculative
// reduction; the engine does not free nodes, it only avoids referencing the
// speculative ones.
func (a *Arena) Len() int { return len(a.nodes) - 1 }
