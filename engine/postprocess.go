package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
)

// tryTernaryRecovery is invoked by decompileCode's onClose callback every
// time a block closes: it recognizes the "a if cond else b" idiom,
// where a POP_JUMP_IF_FALSE opens an If arm and a following JUMP_FORWARD
// opens a sibling Else arm, and each arm leaves its computed expression on
// the value stack rather than appending a statement to its Body (unlike an
// ordinary if/else, whose arms end in POP_TOP-driven statements). Only the
// Else arm's closure is examined; the If arm closes earlier, via
// handleUnconditionalJump's direct pop, and is never itself a candidate.
func (d *decompiler) tryTernaryRecovery(stack *valueStack, blocks *blockStack, h ast.Handle, b *ast.Block) {
	if b.Variant != ast.BlockElse {
		return
	}
	_, parent, ok := blocks.top()
	if !ok {
		return
	}
	n := len(parent.Body)
	if n < 2 || parent.Body[n-1] != h {
		return
	}
	ifBlock, ok := d.arena.At(parent.Body[n-2]).(*ast.Block)
	if !ok || (ifBlock.Variant != ast.BlockIf && ifBlock.Variant != ast.BlockElif) {
		return
	}
	if len(ifBlock.Body) != 0 || len(b.Body) != 0 {
		return
	}
	args, ok := stack.popN(2)
	if !ok {
		return
	}
	tern := d.arena.Alloc(&ast.Ternary{Start: ifBlock.Start, End: b.EndOffset, Cond: ifBlock.Test, Then: args[0], Else: args[1]})
	stack.push(tern)
	parent.Body = parent.Body[:n-2]
}

// runPostPasses applies the two recovery passes that operate on the
// finished tree rather than mid-reconstruction: chain-store
// recognition and docstring hoisting. Ternary recovery and comprehension
// recovery both run earlier, at the moment the shape they look for closes
// (decompileCode's onClose hook and handleMakeFunction respectively), since
// each needs live access to the value stack a finished tree no longer has.
func runPostPasses(arena *ast.Arena, root ast.Handle) {
	var visit ast.VisitorFunc
	visit = func(a *ast.Arena, h ast.Handle, dir ast.VisitDirection) ast.Visitor {
		if dir == ast.VisitEnter {
			if b, ok := a.At(h).(*ast.Block); ok {
				hoistDocstring(a, b)
				mergeChainStores(a, b)
			}
		}
		return visit
	}
	ast.Walk(arena, visit, root)
}

// hoistDocstring recognizes a leading bare string-literal expression
// statement — the only shape a module/function/class docstring takes once
// reconstructed, since POP_TOP appends the literal straight to Body with no
// wrapping Store — and moves its text into Block.Docstring, removing the
// statement from Body. Only MAIN, FUNCTION and CLASS blocks are considered.
func hoistDocstring(a *ast.Arena, b *ast.Block) {
	if b.Variant != ast.BlockMain && b.Variant != ast.BlockFunction && b.Variant != ast.BlockClass {
		return
	}
	if len(b.Body) == 0 {
		return
	}
	obj, ok := a.At(b.Body[0]).(*ast.Object)
	if !ok {
		return
	}
	s, ok := obj.Value.(coderecord.ConstStr)
	if !ok {
		return
	}
	b.Docstring = string(s)
	b.Body = b.Body[1:]
}

// mergeChainStores folds every maximal run of two or more consecutive Store
// statements sharing an identical Value handle into a single ChainStore,
// recovering "a = b = expr". This is the only place ChainStore nodes
// are actually produced: the DUP_TOP that duplicates the right-hand side for
// each extra target leaves indistinguishable copies of the same handle on
// the stack, so the chain can only be recognized after the fact, once every
// Store in the run is sitting in the same Body.
func mergeChainStores(a *ast.Arena, b *ast.Block) {
	out := b.Body[:0:0]
	body := b.Body
	for i := 0; i < len(body); {
		st, ok := a.At(body[i]).(*ast.Store)
		if !ok {
			out = append(out, body[i])
			i++
			continue
		}
		j := i + 1
		targets := []ast.Handle{st.Target}
		for j < len(body) {
			next, ok := a.At(body[j]).(*ast.Store)
			if !ok || next.Value != st.Value {
				break
			}
			targets = append(targets, next.Target)
			j++
		}
		if len(targets) == 1 {
			out = append(out, body[i])
			i++
			continue
		}
		out = append(out, a.Alloc(&ast.ChainStore{Start: st.Start, End: st.End, Value: st.Value, Targets: targets}))
		i = j
	}
	b.Body = out
}
