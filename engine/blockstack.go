package engine

import "github.com/opendis/pydec/ast"

// blockMeta carries engine-only bookkeeping for an open block that doesn't
// belong on the ast.Block node itself, since ast.Block is also the shape
// the finished tree keeps — these flags only matter mid-reconstruction.
type blockMeta struct {
	// pendingTry marks a SETUP_EXCEPT/SETUP_FINALLY block not yet known
	// to be a bare try/finally vs. a try/except possibly followed by its
	// own finally; it is cleared once END_FINALLY is reached.
	pendingTry bool

	// forPlaceholder, withPlaceholder and excPlaceholder hold the
	// synthetic stack value a FOR/WITH/except-handler block pushes to
	// stand in for "the next value a STORE_* binds" (the loop variable,
	// the "as" target, the in-flight exception instance). emitStore
	// compares an incoming store's source value against these handles
	// to decide whether the store belongs on the block header instead
	// of in the block body. ast.Nil is "no placeholder pending".
	forPlaceholder  ast.Handle
	withPlaceholder ast.Handle
	excPlaceholder  ast.Handle
}

func newBlockMeta() *blockMeta {
	return &blockMeta{
		forPlaceholder:  ast.Nil,
		withPlaceholder: ast.Nil,
		excPlaceholder:  ast.Nil,
	}
}

// blockStack is the open-block stack driving control-flow recovery (the
// "block stack" of the reconstruction pipeline): every SETUP_* or
// container-opening opcode pushes a block, and instructions accumulate into
// the innermost open block's Body until it closes, either naturally (the
// instruction offset reaches its recorded EndOffset) or because a control
// handler pops it to open a sibling in its place (else, except, a
// condition-bearing while). POP_BLOCK has no effect on the stack;
// END_FINALLY only clears a try block's pendingTry, after which it too
// closes naturally.
type blockStack struct {
	arena *ast.Arena
	open  []ast.Handle
	meta  map[ast.Handle]*blockMeta
}

func newBlockStack(a *ast.Arena) *blockStack {
	return &blockStack{arena: a, meta: make(map[ast.Handle]*blockMeta)}
}

func (s *blockStack) push(b *ast.Block) ast.Handle {
	h := s.arena.Alloc(b)
	s.open = append(s.open, h)
	s.meta[h] = newBlockMeta()
	return h
}

func (s *blockStack) top() (ast.Handle, *ast.Block, bool) {
	if len(s.open) == 0 {
		return ast.Nil, nil, false
	}
	h := s.open[len(s.open)-1]
	b, _ := s.arena.At(h).(*ast.Block)
	return h, b, true
}

func (s *blockStack) metaFor(h ast.Handle) *blockMeta {
	m, ok := s.meta[h]
	if !ok {
		m = newBlockMeta()
		s.meta[h] = m
	}
	return m
}

// pop removes and returns the innermost open block, appending it to its new
// parent's Body (or returning it as a root if the stack is now empty).
func (s *blockStack) pop() (ast.Handle, *ast.Block, bool) {
	n := len(s.open)
	if n == 0 {
		return ast.Nil, nil, false
	}
	h := s.open[n-1]
	s.open = s.open[:n-1]
	b, _ := s.arena.At(h).(*ast.Block)
	delete(s.meta, h)
	if _, parent, ok := s.top(); ok {
		parent.Body = append(parent.Body, h)
	}
	return h, b, true
}

// closeNatural pops and finalizes every open block whose EndOffset has been
// reached by offset, innermost first, appending each into what is now the
// innermost remaining block's Body. This is the "natural block closure"
// step of the reconstruction loop: most blocks (if/while/for bodies) have
// no explicit closing opcode and end only because control reaches a point
// past their recorded extent. onClose, if non-nil, runs after each pop
// (while the popped block's handle still resolves) so the caller can apply
// the ternary-recovery pass at exactly the closing instant a ternary's
// shape becomes recognizable.
func (s *blockStack) closeNatural(offset int, onClose func(ast.Handle, *ast.Block)) {
	for {
		_, b, ok := s.top()
		if !ok || b.EndOffset > offset {
			return
		}
		if m := s.metaFor(s.open[len(s.open)-1]); m.pendingTry {
			return
		}
		h, b, ok := s.pop()
		if !ok {
			return
		}
		if onClose != nil {
			onClose(h, b)
		}
	}
}

func (s *blockStack) len() int {
	return len(s.open)
}

// appendBody appends h to the innermost open block's Body, the mechanism
// by which every statement (and every bare expression-statement, via
// POP_TOP) becomes part of the reconstructed tree rather than merely
// living in the arena unreferenced.
func (s *blockStack) appendBody(h ast.Handle) {
	if _, b, ok := s.top(); ok {
		b.Body = append(b.Body, h)
	}
}
