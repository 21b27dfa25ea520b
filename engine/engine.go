// Package engine reconstructs an AST from a code record's instruction
// stream: it simulates the evaluation stack and block stack the runtime
// itself would have driven, and turns the resulting shape into the ast
// package's node family. Decoding the instruction stream into
// (opcode, operand) pairs is opcode's job; turning the result into source
// text is an external collaborator's (the printer, out of scope).
package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
	"github.com/opendis/pydec/pyver"
)

// minStackDepth floors an old code record's (possibly under-reported)
// StackDepth hint so newValueStack never starts from zero capacity.
const minStackDepth = 4

// decompiler holds the state shared across one top-level Decompile call,
// including its recursive descent into nested code records (functions,
// classes, comprehensions): one arena, one error list, one table cache.
type decompiler struct {
	arena  *ast.Arena
	opts   Options
	tables *tableCache
	errs   *errorList
}

// appendStmt finalizes a statement-level node into the body of whichever
// block the dispatch loop is currently inside and returns h. It is a thin
// wrapper over blocks.appendBody, which the statement handlers call
// directly; nothing in the engine calls appendStmt itself.
func (d *decompiler) appendStmt(blocks *blockStack, h ast.Handle) ast.Handle {
	blocks.appendBody(h)
	return h
}

// Decompile reconstructs the AST for a top-level module code record,
// returning the arena that owns every produced node and a handle to the
// root Block. A non-nil error is always an engine.ErrorList; reconstruction
// continues past most per-instruction failures so a caller gets as complete
// a tree as possible alongside the diagnostics.
func Decompile(code *coderecord.Code, ver pyver.Version, opts Options) (*ast.Arena, ast.Handle, error) {
	d := &decompiler{
		arena:  ast.NewArena(len(code.Instructions) * 2),
		opts:   opts,
		tables: newTableCache(),
		errs:   newErrorList(code.Filename),
	}
	root, err := d.decompileCode(code, ver, ast.BlockMain)
	if err != nil {
		return d.arena, ast.Nil, err
	}
	runPostPasses(d.arena, root)
	return d.arena, root, d.errs.errOrNil()
}

// decompileCode runs the reconstruction loop over one code record's
// instructions, returning a handle to its root Block (whose Variant is
// kind). It recurses into nested code records via the MAKE_FUNCTION
// handler, sharing this decompiler's arena, error list and table cache.
func (d *decompiler) decompileCode(code *coderecord.Code, ver pyver.Version, kind ast.BlockKind) (ast.Handle, error) {
	depth := code.StackDepth
	if depth < minStackDepth {
		depth = minStackDepth
	}

	disp := opcode.NewDispatcher(ver).WithTable(d.tables.get(ver))
	stack := newValueStack(depth)
	blocks := newBlockStack(d.arena)

	rootHandle := blocks.push(&ast.Block{
		Start:     0,
		EndOffset: len(code.Instructions),
		Variant:   kind,
		Name:      code.Name,
	})

	onClose := func(h ast.Handle, b *ast.Block) {
		d.tryTernaryRecovery(stack, blocks, h, b)
	}

	pos := 0
	for pos < len(code.Instructions) {
		blocks.closeNatural(pos, onClose)
		d.maybeEnterExceptHandler(stack, blocks, pos)

		insn, err := disp.Decode(code.Instructions, pos)
		if err != nil {
			d.errs.add(pos, err.Error())
			break
		}
		d.opts.tracef("%04d %-24s %d\n", insn.Offset, insn.Op, insn.Arg)

		if err := d.dispatch(code, ver, stack, blocks, insn); err != nil {
			d.errs.add(insn.Offset, err.Error())
		}
		pos = insn.Next
	}

	blocks.closeNatural(len(code.Instructions), onClose)
	for blocks.len() > 1 {
		blocks.pop()
	}

	if b, ok := d.arena.At(rootHandle).(*ast.Block); ok {
		b.End = len(code.Instructions)
	}
	return rootHandle, nil
}

// dispatch executes one decoded instruction's effect against stack and
// blocks, grouped by opcode catalogue family. Each
// group lives in its own file to keep this switch itself short.
func (d *decompiler) dispatch(code *coderecord.Code, ver pyver.Version, stack *valueStack, blocks *blockStack, insn opcode.Instruction) error {
	if insn.Op == opcode.POP_TOP {
		v, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		if _, top, ok := blocks.top(); ok && top.Variant == ast.BlockWith && blocks.metaFor(blocks.open[len(blocks.open)-1]).withPlaceholder == v {
			return nil // "with ctx:" with no "as" clause: the placeholder is discarded, not a body expression
		}
		blocks.appendBody(v)
		return nil
	}

	switch {
	case isAtomOp(insn.Op):
		return d.dispatchAtom(code, blocks, stack, insn)
	case isOperatorOp(insn.Op):
		return d.dispatchOperator(stack, insn)
	case isContainerOp(insn.Op):
		return d.dispatchContainer(code, ver, blocks, stack, insn)
	case isCallOp(insn.Op):
		return d.dispatchCall(code, ver, blocks, stack, insn)
	case isControlOp(insn.Op):
		return d.dispatchControl(code, stack, blocks, insn)
	default:
		switch insn.Op {
		case opcode.NOP, opcode.EXTENDED_ARG, opcode.RESUME, opcode.PRECALL:
			return nil
		case opcode.PUSH_NULL:
			stack.nullPending = true
			return nil
		}
		return errUnhandled(insn)
	}
}
