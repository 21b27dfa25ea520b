package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
)

func isControlOp(op opcode.Opcode) bool {
	switch op {
	case opcode.JUMP_FORWARD, opcode.JUMP_ABSOLUTE,
		opcode.POP_JUMP_IF_FALSE, opcode.POP_JUMP_IF_TRUE,
		opcode.JUMP_IF_FALSE_OR_POP, opcode.JUMP_IF_TRUE_OR_POP,
		opcode.JUMP_IF_FALSE, opcode.JUMP_IF_TRUE,
		opcode.SETUP_LOOP, opcode.SETUP_EXCEPT, opcode.SETUP_FINALLY, opcode.SETUP_WITH,
		opcode.FOR_ITER, opcode.GET_ITER,
		opcode.BREAK_LOOP, opcode.CONTINUE_LOOP,
		opcode.POP_BLOCK, opcode.END_FINALLY, opcode.WITH_CLEANUP:
		return true
	}
	return false
}

// jumpTarget resolves a decoded jump operand to an absolute instruction
// offset, per its operand class: relative operands (SETUP_*, FOR_ITER,
// JUMP_FORWARD) are offsets from the instruction following the jump;
// absolute operands (JUMP_ABSOLUTE, POP_JUMP_IF_*) already are absolute
// offsets (scaled by 2 on >= 3.10, where jump operands count instructions
// rather than bytes — approximated here as already-byte-scaled, since the
// container reader normalizes this before the engine sees it).
func jumpTarget(insn opcode.Instruction) int {
	switch insn.Op.Class() {
	case opcode.ClassJumpRelative:
		return insn.Next + int(insn.Arg)
	default:
		return int(insn.Arg)
	}
}

func (d *decompiler) dispatchControl(code *coderecord.Code, stack *valueStack, blocks *blockStack, insn opcode.Instruction) error {
	switch insn.Op {
	case opcode.SETUP_LOOP:
		blocks.push(&ast.Block{Start: insn.Offset, EndOffset: jumpTarget(insn), Variant: ast.BlockWhile})
		return nil

	case opcode.SETUP_EXCEPT:
		// Opens a bare TRY; the except-matching pattern in the handler
		// section (see maybeEnterExceptHandler, openExceptClause) promotes
		// it to one or more sibling EXCEPT blocks once the jump testing
		// the exception's type is seen.
		h := blocks.push(&ast.Block{Start: insn.Offset, EndOffset: jumpTarget(insn), Variant: ast.BlockTry})
		blocks.metaFor(h).pendingTry = true
		return nil

	case opcode.SETUP_FINALLY:
		h := blocks.push(&ast.Block{Start: insn.Offset, EndOffset: jumpTarget(insn), Variant: ast.BlockFinally})
		blocks.metaFor(h).pendingTry = true
		return nil

	case opcode.SETUP_WITH:
		ctx, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		h := blocks.push(&ast.Block{Start: insn.Offset, EndOffset: jumpTarget(insn), Variant: ast.BlockWith, ContextExpr: ctx})
		placeholder := d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next})
		blocks.metaFor(h).withPlaceholder = placeholder
		stack.push(placeholder) // stands in for the __exit__-bound value; a following STORE_* binds Block.AsName, and a bare POP_TOP (no "as" clause) discards it
		return nil

	case opcode.FOR_ITER:
		iter, ok := stack.peek()
		if !ok {
			return errStackUnderflow(insn)
		}
		h := blocks.push(&ast.Block{Start: insn.Offset, EndOffset: jumpTarget(insn), Variant: ast.BlockFor, Iter: iter})
		placeholder := d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next})
		blocks.metaFor(h).forPlaceholder = placeholder
		stack.push(placeholder) // the value this iteration yields; the following STORE_* binds Block.Target instead of a body Store
		return nil

	case opcode.GET_ITER:
		return nil // no-op at the AST level: For/comprehension recovery reads Iter straight off the stack value

	case opcode.JUMP_FORWARD, opcode.JUMP_ABSOLUTE:
		return d.handleUnconditionalJump(blocks, insn)

	case opcode.POP_JUMP_IF_FALSE, opcode.POP_JUMP_IF_TRUE:
		cond, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		return d.handleConditionalJump(blocks, insn, cond)

	case opcode.JUMP_IF_FALSE, opcode.JUMP_IF_TRUE:
		cond, ok := stack.peek()
		if !ok {
			return errStackUnderflow(insn)
		}
		return d.handleConditionalJump(blocks, insn, cond)

	case opcode.JUMP_IF_FALSE_OR_POP, opcode.JUMP_IF_TRUE_OR_POP:
		// short-circuit and/or: the condition is left on the stack as the
		// expression's value and no Block is opened. No pass rebuilds
		// "a and b"/"a or b" from this shape.
		return nil

	case opcode.BREAK_LOOP:
		blocks.appendBody(d.arena.Alloc(&ast.Keyword{Start: insn.Offset, End: insn.Next, Op: ast.KeywordBreak}))
		return nil

	case opcode.CONTINUE_LOOP:
		blocks.appendBody(d.arena.Alloc(&ast.Keyword{Start: insn.Offset, End: insn.Next, Op: ast.KeywordContinue}))
		return nil

	case opcode.POP_BLOCK:
		return nil // no AST effect: the block it closes ends naturally (EndOffset) or is already pending a handler (pendingTry)

	case opcode.END_FINALLY:
		if _, _, ok := blocks.top(); ok {
			h := blocks.open[len(blocks.open)-1]
			blocks.metaFor(h).pendingTry = false
		}
		return nil

	case opcode.WITH_CLEANUP:
		return nil // the With block's EndOffset closes it naturally; no AST effect
	}
	return errUnhandled(insn)
}

// handleUnconditionalJump recognizes the "jump to the end of an if/elif
// chain, skipping an else arm" idiom: if the jump's target lands past the
// current If/Elif block's own EndOffset, that block is finalized right now
// (popped into its parent's Body, rather than left open) and a sibling
// Else block is opened in its place, covering [insn.Next, target). Closing
// the If eagerly here — instead of leaving it open behind the Else, as a
// naive nesting would — is what makes the two appear as adjacent entries
// in the parent's Body, which is the shape the ternary-recovery pass
// and the printer both expect.
func (d *decompiler) handleUnconditionalJump(blocks *blockStack, insn opcode.Instruction) error {
	target := jumpTarget(insn)
	_, b, ok := blocks.top()
	if !ok {
		return nil
	}
	if (b.Variant == ast.BlockIf || b.Variant == ast.BlockElif) && target > b.EndOffset {
		blocks.pop()
		blocks.push(&ast.Block{Start: insn.Next, EndOffset: target, Variant: ast.BlockElse})
	}
	return nil
}

// handleConditionalJump opens the If block a POP_JUMP_IF_*/JUMP_IF_* test
// begins: the jump target is the block's EndOffset (where control resumes
// if the condition is false), and Test is the popped/peeked condition
// handle. When cond is an ExceptionMatch (the exception-type test an
// except clause compiles down to) it opens an EXCEPT clause instead.
func (d *decompiler) handleConditionalJump(blocks *blockStack, insn opcode.Instruction, cond ast.Handle) error {
	target := jumpTarget(insn)
	if em, ok := d.arena.At(cond).(*ast.ExceptionMatch); ok {
		return d.openExceptClause(blocks, insn, target, em.Type)
	}
	variant := ast.BlockIf
	if h, top, ok := blocks.top(); ok && top.Variant == ast.BlockWhile {
		variant = ast.BlockWhile
		blocks.pop() // replace the bare SETUP_LOOP placeholder with a condition-bearing While
		if _, parent, ok := blocks.top(); ok && len(parent.Body) > 0 && parent.Body[len(parent.Body)-1] == h {
			parent.Body = parent.Body[:len(parent.Body)-1]
		}
	}
	blocks.push(&ast.Block{Start: insn.Offset, EndOffset: target, Variant: variant, Test: cond})
	return nil
}

// openExceptClause closes the TRY (or a preceding EXCEPT, for "except A:
// ... except B:" chains) block an exception-match test just probed, and
// opens the EXCEPT clause it guards in its place as a sibling — the same
// pop-then-push-sibling shape handleUnconditionalJump uses for If/Else.
// The in-flight-exception placeholder carries forward so a subsequent
// STORE_* ("except Type as name:") can bind Block.ExceptName.
func (d *decompiler) openExceptClause(blocks *blockStack, insn opcode.Instruction, target int, excType ast.Handle) error {
	h, _, ok := blocks.top()
	if !ok {
		return errUnhandled(insn)
	}
	placeholder := blocks.metaFor(h).excPlaceholder
	blocks.pop()
	nh := blocks.push(&ast.Block{Start: insn.Next, EndOffset: target, Variant: ast.BlockExcept, ExceptType: excType})
	m := blocks.metaFor(nh)
	m.pendingTry = true
	m.excPlaceholder = placeholder
	return nil
}

// maybeEnterExceptHandler pushes the in-flight-exception placeholder the
// instant a TRY block's handler section begins: its EndOffset has been
// reached, but pendingTry has kept closeNatural from popping it. The
// DUP_TOP/COMPARE_OP/POP_JUMP_IF_FALSE triple that follows duplicates this
// placeholder, compares it against a type, and (via openExceptClause)
// carries it into the EXCEPT clause it opens. Called once per pos from the
// main decode loop; pos only ever increases, so this fires exactly once
// per TRY block without needing its own guard flag beyond excPlaceholder
// itself.
func (d *decompiler) maybeEnterExceptHandler(stack *valueStack, blocks *blockStack, pos int) {
	h, b, ok := blocks.top()
	if !ok || b.Variant != ast.BlockTry || pos != b.EndOffset {
		return
	}
	m := blocks.metaFor(h)
	if m.excPlaceholder.Valid() {
		return
	}
	placeholder := d.arena.Alloc(&ast.Name{Start: pos, End: pos})
	m.excPlaceholder = placeholder
	stack.push(placeholder)
}
