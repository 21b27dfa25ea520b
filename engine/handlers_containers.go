package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
	"github.com/opendis/pydec/pyver"
)

func isContainerOp(op opcode.Opcode) bool {
	switch op {
	case opcode.BUILD_LIST, opcode.BUILD_TUPLE, opcode.BUILD_SET, opcode.BUILD_MAP,
		opcode.BUILD_CONST_KEY_MAP, opcode.BUILD_STRING, opcode.FORMAT_VALUE, opcode.KW_NAMES,
		opcode.LIST_APPEND, opcode.SET_ADD, opcode.MAP_ADD:
		return true
	}
	return false
}

func (d *decompiler) dispatchContainer(code *coderecord.Code, ver pyver.Version, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	n := int(insn.Arg)
	switch insn.Op {
	// LIST_APPEND/SET_ADD/MAP_ADD are the accumulation opcodes a
	// comprehension's loop body emits instead of returning a value; the
	// engine doesn't maintain the addressed container at all (it never sat
	// on the stack at the depth CPython's "arg" names, since reconstruction
	// builds the comprehension from the block shape, not by replaying the
	// accumulation), so these leave a CompElement marker in the innermost
	// block's Body for the comprehension-recovery pass in handleMakeFunction
	// to find and lift out.
	case opcode.LIST_APPEND, opcode.SET_ADD:
		val, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		blocks.appendBody(d.arena.Alloc(&ast.CompElement{Start: insn.Offset, End: insn.Next, Value: val}))
		return nil

	case opcode.MAP_ADD:
		val, ok1 := stack.pop()
		key, ok2 := stack.pop()
		if !ok1 || !ok2 {
			return errStackUnderflow(insn)
		}
		blocks.appendBody(d.arena.Alloc(&ast.CompElement{Start: insn.Offset, End: insn.Next, Key: key, Value: val}))
		return nil
	case opcode.BUILD_TUPLE:
		elems, ok := stack.popN(n)
		if !ok {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.Tuple{Start: insn.Offset, End: insn.Next, Elems: elems}))
		return nil

	case opcode.BUILD_LIST:
		elems, ok := stack.popN(n)
		if !ok {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.List{Start: insn.Offset, End: insn.Next, Elems: elems}))
		return nil

	case opcode.BUILD_SET:
		elems, ok := stack.popN(n)
		if !ok {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.Set{Start: insn.Offset, End: insn.Next, Elems: elems}))
		return nil

	case opcode.BUILD_MAP:
		return d.handleBuildMap(stack, ver, insn, n)

	case opcode.BUILD_CONST_KEY_MAP:
		values, ok := stack.popN(n)
		if !ok {
			return errStackUnderflow(insn)
		}
		keys, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.ConstMap{Start: insn.Offset, End: insn.Next, Keys: keys, Values: values}))
		return nil

	case opcode.BUILD_STRING:
		parts, ok := stack.popN(n)
		if !ok {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.JoinedStr{Start: insn.Offset, End: insn.Next, Parts: parts}))
		return nil

	case opcode.FORMAT_VALUE:
		return d.handleFormatValue(stack, insn, n)

	case opcode.KW_NAMES:
		c, ok := constAt(code, n)
		if !ok {
			return errUnhandled(insn)
		}
		tup, ok := c.(coderecord.ConstTuple)
		if !ok {
			return errUnhandled(insn)
		}
		names := make([]string, 0, len(tup))
		for _, item := range tup {
			if s, ok := item.(coderecord.ConstStr); ok {
				names = append(names, string(s))
			}
		}
		stack.kwNames = names
		return nil
	}
	return errUnhandled(insn)
}

// handleBuildMap covers both eras: pre-3.5 BUILD_MAP(n) pushes an empty
// dict sized as a hint, to be filled by n subsequent STORE_MAP
// instructions (handled by handleStoreMap); 3.5+ BUILD_MAP(n) pops n
// key/value pairs directly off the stack. Per the module context's
// version table, this is a straight version gate, not a
// stack-shape guess.
func (d *decompiler) handleBuildMap(stack *valueStack, ver pyver.Version, insn opcode.Instruction, n int) error {
	if !ver.AtLeast(3, 5) {
		stack.push(d.arena.Alloc(&ast.Map{Start: insn.Offset, End: insn.Next}))
		return nil
	}
	pairs, ok := stack.popN(2 * n)
	if !ok {
		return errStackUnderflow(insn)
	}
	m := &ast.Map{Start: insn.Offset, End: insn.Next}
	for i := 0; i < len(pairs); i += 2 {
		m.Entries = append(m.Entries, ast.MapEntry{Key: pairs[i], Value: pairs[i+1]})
	}
	stack.push(d.arena.Alloc(m))
	return nil
}

func (d *decompiler) handleFormatValue(stack *valueStack, insn opcode.Instruction, flags int) error {
	const (
		fvConvMask = 0x3
		fvHaveSpec = 0x4
	)
	var spec ast.Handle = ast.Nil
	if flags&fvHaveSpec != 0 {
		s, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		spec = s
	}
	val, ok := stack.pop()
	if !ok {
		return errStackUnderflow(insn)
	}
	var conv byte
	switch flags & fvConvMask {
	case 1:
		conv = 's'
	case 2:
		conv = 'r'
	case 3:
		conv = 'a'
	}
	stack.push(d.arena.Alloc(&ast.FormattedValue{Start: insn.Offset, End: insn.Next, Expr: val, Conversion: conv, FormatSpec: spec}))
	return nil
}
