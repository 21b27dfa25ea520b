package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/opcode"
)

func isOperatorOp(op opcode.Opcode) bool {
	switch op {
	case opcode.BINARY_ADD, opcode.BINARY_SUBTRACT, opcode.BINARY_MULTIPLY, opcode.BINARY_DIVIDE,
		opcode.BINARY_TRUE_DIVIDE, opcode.BINARY_FLOOR_DIVIDE, opcode.BINARY_MODULO, opcode.BINARY_POWER,
		opcode.BINARY_MATRIX_MULTIPLY, opcode.BINARY_LSHIFT, opcode.BINARY_RSHIFT,
		opcode.BINARY_AND, opcode.BINARY_OR, opcode.BINARY_XOR, opcode.BINARY_OP,
		opcode.INPLACE_ADD, opcode.INPLACE_SUBTRACT, opcode.INPLACE_MULTIPLY,
		opcode.INPLACE_TRUE_DIVIDE, opcode.INPLACE_FLOOR_DIVIDE, opcode.INPLACE_MODULO, opcode.INPLACE_POWER,
		opcode.INPLACE_MATRIX_MULTIPLY, opcode.INPLACE_LSHIFT, opcode.INPLACE_RSHIFT,
		opcode.INPLACE_AND, opcode.INPLACE_OR, opcode.INPLACE_XOR,
		opcode.UNARY_POSITIVE, opcode.UNARY_NEGATIVE, opcode.UNARY_NOT, opcode.UNARY_INVERT,
		opcode.COMPARE_OP, opcode.BINARY_SUBSCR, opcode.BUILD_SLICE:
		return true
	}
	return false
}

// binOpByOpcode maps the pre-3.11 per-operator opcodes straight to their
// BinOp spelling; BINARY_OP (>= 3.11) instead looks the operator up by
// operand index via binOpByIndex.
var binOpByOpcode = map[opcode.Opcode]ast.BinOp{
	opcode.BINARY_ADD:             ast.BinAdd,
	opcode.INPLACE_ADD:            ast.BinAdd,
	opcode.BINARY_SUBTRACT:        ast.BinSub,
	opcode.INPLACE_SUBTRACT:       ast.BinSub,
	opcode.BINARY_MULTIPLY:        ast.BinMul,
	opcode.INPLACE_MULTIPLY:       ast.BinMul,
	opcode.BINARY_DIVIDE:          ast.BinDiv,
	opcode.BINARY_TRUE_DIVIDE:     ast.BinDiv,
	opcode.INPLACE_TRUE_DIVIDE:    ast.BinDiv,
	opcode.BINARY_FLOOR_DIVIDE:    ast.BinFloorDiv,
	opcode.INPLACE_FLOOR_DIVIDE:   ast.BinFloorDiv,
	opcode.BINARY_MODULO:          ast.BinMod,
	opcode.INPLACE_MODULO:         ast.BinMod,
	opcode.BINARY_POWER:           ast.BinPow,
	opcode.INPLACE_POWER:          ast.BinPow,
	opcode.BINARY_MATRIX_MULTIPLY: ast.BinMatMul,
	opcode.INPLACE_MATRIX_MULTIPLY: ast.BinMatMul,
	opcode.BINARY_LSHIFT:          ast.BinLShift,
	opcode.INPLACE_LSHIFT:         ast.BinLShift,
	opcode.BINARY_RSHIFT:          ast.BinRShift,
	opcode.INPLACE_RSHIFT:         ast.BinRShift,
	opcode.BINARY_AND:             ast.BinBitAnd,
	opcode.INPLACE_AND:            ast.BinBitAnd,
	opcode.BINARY_OR:              ast.BinBitOr,
	opcode.INPLACE_OR:             ast.BinBitOr,
	opcode.BINARY_XOR:             ast.BinBitXor,
	opcode.INPLACE_XOR:            ast.BinBitXor,
}

// binOpByIndex is the >= 3.11 BINARY_OP operand table, in the runtime's
// published nb_* operator order.
var binOpByIndex = [...]ast.BinOp{
	ast.BinAdd, ast.BinBitAnd, ast.BinFloorDiv, ast.BinLShift, ast.BinMatMul,
	ast.BinMul, ast.BinMod, ast.BinBitOr, ast.BinPow, ast.BinRShift,
	ast.BinSub, ast.BinDiv, ast.BinBitXor,
}

var unOpByOpcode = map[opcode.Opcode]ast.UnOp{
	opcode.UNARY_POSITIVE: ast.UnPositive,
	opcode.UNARY_NEGATIVE: ast.UnNegative,
	opcode.UNARY_NOT:      ast.UnNot,
	opcode.UNARY_INVERT:   ast.UnInvert,
}

// cmpOpByIndex is the runtime's published dis.cmp_op table, indexed by
// COMPARE_OP's operand.
var cmpOpByIndex = [...]ast.CmpOp{
	ast.CmpLT, ast.CmpLE, ast.CmpEQ, ast.CmpNE, ast.CmpGT, ast.CmpGE,
	ast.CmpIn, ast.CmpNotIn, ast.CmpIs, ast.CmpIsNot,
}

// cmpOpExceptionMatch is dis.cmp_op's 11th entry, "exception match": the
// comparator an except clause's DUP_TOP/COMPARE_OP/POP_JUMP_IF_FALSE test
// compiles down to. It never reaches the printer as a real comparison —
// handleConditionalJump recognizes the ast.ExceptionMatch this produces
// and turns the jump into an except clause instead of an If.
const cmpOpExceptionMatch = 10

func (d *decompiler) dispatchOperator(stack *valueStack, insn opcode.Instruction) error {
	switch insn.Op {
	case opcode.BUILD_SLICE:
		return d.handleBuildSlice(stack, insn)

	case opcode.BINARY_SUBSCR:
		idx, ok1 := stack.pop()
		container, ok2 := stack.pop()
		if !ok1 || !ok2 {
			return errStackUnderflow(insn)
		}
		stack.push(d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: container, Index: idx}))
		return nil

	case opcode.COMPARE_OP:
		idx := int(insn.Arg)
		if idx == cmpOpExceptionMatch {
			typ, ok1 := stack.pop()
			_, ok2 := stack.pop() // the duplicated in-flight-exception placeholder; only the type matters here
			if !ok1 || !ok2 {
				return errStackUnderflow(insn)
			}
			stack.push(d.arena.Alloc(&ast.ExceptionMatch{Start: insn.Offset, End: insn.Next, Type: typ}))
			return nil
		}
		if idx < 0 || idx >= len(cmpOpByIndex) {
			return errUnhandled(insn)
		}
		right, ok1 := stack.pop()
		left, ok2 := stack.pop()
		if !ok1 || !ok2 {
			return errStackUnderflow(insn)
		}
		if cmp, ok := d.arena.At(left).(*ast.Compare); ok {
			cmp.Links = append(cmp.Links, ast.CompareLink{Op: cmpOpByIndex[idx], Right: right})
			stack.push(left)
			return nil
		}
		stack.push(d.arena.Alloc(&ast.Compare{
			Start: insn.Offset, End: insn.Next, Left: left,
			Links: []ast.CompareLink{{Op: cmpOpByIndex[idx], Right: right}},
		}))
		return nil

	case opcode.BINARY_OP:
		idx := int(insn.Arg)
		if idx < 0 || idx >= len(binOpByIndex) {
			return errUnhandled(insn)
		}
		return d.emitBinary(stack, insn, binOpByIndex[idx])

	default:
		if op, ok := unOpByOpcode[insn.Op]; ok {
			operand, ok := stack.pop()
			if !ok {
				return errStackUnderflow(insn)
			}
			stack.push(d.arena.Alloc(&ast.Unary{Start: insn.Offset, End: insn.Next, Op: op, Operand: operand}))
			return nil
		}
		if op, ok := binOpByOpcode[insn.Op]; ok {
			return d.emitBinary(stack, insn, op)
		}
	}
	return errUnhandled(insn)
}

func (d *decompiler) emitBinary(stack *valueStack, insn opcode.Instruction, op ast.BinOp) error {
	right, ok1 := stack.pop()
	left, ok2 := stack.pop()
	if !ok1 || !ok2 {
		return errStackUnderflow(insn)
	}
	stack.push(d.arena.Alloc(&ast.Binary{Start: insn.Offset, End: insn.Next, Op: op, Left: left, Right: right}))
	return nil
}

func (d *decompiler) handleBuildSlice(stack *valueStack, insn opcode.Instruction) error {
	n := int(insn.Arg)
	args, ok := stack.popN(n)
	if !ok {
		return errStackUnderflow(insn)
	}
	s := &ast.Slice{Start: insn.Offset, End: insn.Next, Lower: ast.Nil, Upper: ast.Nil, Step: ast.Nil}
	switch n {
	case 2:
		s.Variant, s.Lower, s.Upper = ast.Slice2, args[0], args[1]
	case 3:
		s.Variant, s.Lower, s.Upper, s.Step = ast.Slice3, args[0], args[1], args[2]
	default:
		return errUnhandled(insn)
	}
	stack.push(d.arena.Alloc(s))
	return nil
}
