package engine

import "github.com/opendis/pydec/ast"

// valueStack simulates the runtime's evaluation stack, holding arena
// handles to whatever expression node is standing in for the value at each
// position. It never holds actual data values — this is pure stack
// bookkeeping over an AST the arena owns, never evaluation.
type valueStack struct {
	slots      []ast.Handle
	nullPending bool     // set by PUSH_NULL (>= 3.11), cleared by the next CALL
	kwNames    []string // set by KW_NAMES, consumed by the next CALL
}

func newValueStack(capacityHint int) *valueStack {
	return &valueStack{slots: make([]ast.Handle, 0, capacityHint)}
}

func (s *valueStack) push(h ast.Handle) {
	s.slots = append(s.slots, h)
}

func (s *valueStack) pop() (ast.Handle, bool) {
	n := len(s.slots)
	if n == 0 {
		return ast.Nil, false
	}
	h := s.slots[n-1]
	s.slots = s.slots[:n-1]
	return h, true
}

// popN pops exactly n handles, returning them in original (bottom-to-top)
// order. Returns false if the stack underflows.
func (s *valueStack) popN(n int) ([]ast.Handle, bool) {
	if n == 0 {
		return nil, true
	}
	if len(s.slots) < n {
		return nil, false
	}
	start := len(s.slots) - n
	out := make([]ast.Handle, n)
	copy(out, s.slots[start:])
	s.slots = s.slots[:start]
	return out, true
}

func (s *valueStack) peek() (ast.Handle, bool) {
	n := len(s.slots)
	if n == 0 {
		return ast.Nil, false
	}
	return s.slots[n-1], true
}

func (s *valueStack) dup() bool {
	h, ok := s.peek()
	if !ok {
		return false
	}
	s.push(h)
	return true
}

func (s *valueStack) rotTwo() bool {
	n := len(s.slots)
	if n < 2 {
		return false
	}
	s.slots[n-1], s.slots[n-2] = s.slots[n-2], s.slots[n-1]
	return true
}

func (s *valueStack) rotThree() bool {
	n := len(s.slots)
	if n < 3 {
		return false
	}
	s.slots[n-1], s.slots[n-2], s.slots[n-3] = s.slots[n-2], s.slots[n-3], s.slots[n-1]
	return true
}

func (s *valueStack) len() int {
	return len(s.slots)
}
