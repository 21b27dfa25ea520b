package engine

import (
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
)

func isAtomOp(op opcode.Opcode) bool {
	switch op {
	case opcode.LOAD_CONST, opcode.LOAD_NAME, opcode.LOAD_GLOBAL, opcode.LOAD_FAST,
		opcode.LOAD_DEREF, opcode.LOAD_CLASSDEREF, opcode.LOAD_CLOSURE,
		opcode.LOAD_BUILD_CLASS, opcode.LOAD_ATTR,
		opcode.STORE_NAME, opcode.STORE_FAST, opcode.STORE_GLOBAL, opcode.STORE_DEREF,
		opcode.STORE_ATTR, opcode.STORE_SUBSCR, opcode.STORE_MAP,
		opcode.DELETE_NAME, opcode.DELETE_FAST, opcode.DELETE_GLOBAL, opcode.DELETE_DEREF,
		opcode.DELETE_ATTR, opcode.DELETE_SUBSCR,
		opcode.IMPORT_NAME, opcode.IMPORT_FROM, opcode.IMPORT_STAR,
		opcode.SETUP_ANNOTATIONS, opcode.STORE_ANNOTATION,
		opcode.RETURN_VALUE, opcode.RAISE_VARARGS,
		opcode.PRINT_ITEM, opcode.PRINT_ITEM_TO, opcode.PRINT_NEWLINE, opcode.PRINT_NEWLINE_TO,
		opcode.DUP_TOP, opcode.ROT_TWO, opcode.ROT_THREE:
		return true
	}
	return false
}

// freeName resolves a LOAD_DEREF/STORE_DEREF/LOAD_CLOSURE operand against
// the logical Cellvars-then-Freevars concatenation (opcode.ClassFree).
func freeName(code *coderecord.Code, idx int) (string, bool) {
	if idx < len(code.Cellvars) {
		return code.Cellvars[idx], true
	}
	idx -= len(code.Cellvars)
	if idx < len(code.Freevars) {
		return code.Freevars[idx], true
	}
	return "", false
}

func (d *decompiler) dispatchAtom(code *coderecord.Code, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	switch insn.Op {
	case opcode.LOAD_CONST:
		c, ok := constAt(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		stack.push(d.arena.Alloc(&ast.Object{Start: insn.Offset, End: insn.Next, Value: c}))
		return nil

	case opcode.LOAD_NAME, opcode.LOAD_GLOBAL:
		name, ok := nameAt(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		scope := ast.ScopeName
		if insn.Op == opcode.LOAD_GLOBAL {
			scope = ast.ScopeGlobal
		}
		stack.push(d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name, Scope: scope}))
		return nil

	case opcode.LOAD_FAST:
		name, ok := localAt(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		stack.push(d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name, Scope: ast.ScopeFast}))
		return nil

	case opcode.LOAD_DEREF, opcode.LOAD_CLASSDEREF:
		name, ok := freeName(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		scope := ast.ScopeDeref
		if insn.Op == opcode.LOAD_CLASSDEREF {
			scope = ast.ScopeClassDeref
		}
		stack.push(d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name, Scope: scope}))
		return nil

	case opcode.LOAD_CLOSURE:
		name, ok := freeName(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		stack.push(d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name, Scope: ast.ScopeFree, IsCell: true}))
		return nil

	case opcode.LOAD_BUILD_CLASS:
		stack.push(d.arena.Alloc(&ast.LoadBuildClass{Start: insn.Offset, End: insn.Next}))
		return nil

	case opcode.LOAD_ATTR:
		name, ok := nameAt(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		obj, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		attr := d.arena.Alloc(&ast.Object{Start: insn.Offset, End: insn.Next, Value: coderecord.ConstStr(name)})
		stack.push(d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: obj, Index: attr}))
		return nil

	case opcode.STORE_NAME, opcode.STORE_GLOBAL, opcode.STORE_FAST, opcode.STORE_DEREF:
		return d.handleStoreSimple(code, blocks, stack, insn)

	case opcode.STORE_ATTR:
		return d.handleStoreAttr(code, blocks, stack, insn)

	case opcode.STORE_SUBSCR:
		return d.handleStoreSubscr(blocks, stack, insn)

	case opcode.STORE_MAP:
		return d.handleStoreMap(stack, insn)

	case opcode.DELETE_NAME, opcode.DELETE_GLOBAL, opcode.DELETE_FAST, opcode.DELETE_DEREF:
		return d.handleDeleteSimple(code, blocks, stack, insn)

	case opcode.DELETE_ATTR:
		return d.handleDeleteAttr(code, blocks, stack, insn)

	case opcode.DELETE_SUBSCR:
		idx, ok1 := stack.pop()
		obj, ok2 := stack.pop()
		if !ok1 || !ok2 {
			return errStackUnderflow(insn)
		}
		target := d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: obj, Index: idx})
		blocks.appendBody(d.arena.Alloc(&ast.Delete{Start: insn.Offset, End: insn.Next, Target: target}))
		return nil

	case opcode.IMPORT_NAME:
		return d.handleImportName(code, stack, insn)
	case opcode.IMPORT_FROM:
		return d.handleImportFrom(code, stack, insn)
	case opcode.IMPORT_STAR:
		mod, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		name := moduleNameOf(d.arena, mod)
		blocks.appendBody(d.arena.Alloc(&ast.Import{Start: insn.Offset, End: insn.Next, Module: name, Star: true}))
		return nil

	case opcode.SETUP_ANNOTATIONS:
		return nil // no-op: the engine doesn't model the __annotations__ dict itself

	case opcode.STORE_ANNOTATION:
		name, ok := nameAt(code, int(insn.Arg))
		if !ok {
			return errUnhandled(insn)
		}
		val, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		target := d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name})
		blocks.appendBody(d.arena.Alloc(&ast.AnnotatedAssign{Start: insn.Offset, End: insn.Next, Target: target, Value: val}))
		return nil

	case opcode.RETURN_VALUE:
		val, ok := stack.pop()
		if !ok {
			val = ast.Nil
		}
		blocks.appendBody(d.arena.Alloc(&ast.Return{Start: insn.Offset, End: insn.Next, Value: val}))
		return nil

	case opcode.RAISE_VARARGS:
		return d.handleRaise(blocks, stack, insn)

	case opcode.PRINT_ITEM, opcode.PRINT_ITEM_TO:
		val, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		var dest ast.Handle = ast.Nil
		if insn.Op == opcode.PRINT_ITEM_TO {
			d2, ok := stack.pop()
			if !ok {
				return errStackUnderflow(insn)
			}
			dest = d2
		}
		blocks.appendBody(d.arena.Alloc(&ast.Print{Start: insn.Offset, End: insn.Next, Values: []ast.Handle{val}, Dest: dest}))
		return nil

	case opcode.PRINT_NEWLINE, opcode.PRINT_NEWLINE_TO:
		var dest ast.Handle = ast.Nil
		if insn.Op == opcode.PRINT_NEWLINE_TO {
			d2, ok := stack.pop()
			if !ok {
				return errStackUnderflow(insn)
			}
			dest = d2
		}
		blocks.appendBody(d.arena.Alloc(&ast.Print{Start: insn.Offset, End: insn.Next, Newline: true, Dest: dest}))
		return nil

	case opcode.POP_TOP:
		if _, ok := stack.pop(); !ok {
			return errStackUnderflow(insn)
		}
		return nil
	case opcode.DUP_TOP:
		if !stack.dup() {
			return errStackUnderflow(insn)
		}
		return nil
	case opcode.ROT_TWO:
		if !stack.rotTwo() {
			return errStackUnderflow(insn)
		}
		return nil
	case opcode.ROT_THREE:
		if !stack.rotThree() {
			return errStackUnderflow(insn)
		}
		return nil
	}
	return errUnhandled(insn)
}

func (d *decompiler) handleStoreSimple(code *coderecord.Code, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	var name string
	var scope ast.NameScope
	var ok bool
	switch insn.Op {
	case opcode.STORE_NAME:
		name, ok = nameAt(code, int(insn.Arg))
		scope = ast.ScopeName
	case opcode.STORE_GLOBAL:
		name, ok = nameAt(code, int(insn.Arg))
		scope = ast.ScopeGlobal
	case opcode.STORE_FAST:
		name, ok = localAt(code, int(insn.Arg))
		scope = ast.ScopeFast
	case opcode.STORE_DEREF:
		name, ok = freeName(code, int(insn.Arg))
		scope = ast.ScopeDeref
	}
	if !ok {
		return errUnhandled(insn)
	}
	val, ok := stack.pop()
	if !ok {
		return errStackUnderflow(insn)
	}
	target := d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name, Scope: scope})
	d.emitStore(blocks, insn, val, target)
	return nil
}

func (d *decompiler) handleDeleteSimple(code *coderecord.Code, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	var name string
	var ok bool
	switch insn.Op {
	case opcode.DELETE_NAME, opcode.DELETE_GLOBAL:
		name, ok = nameAt(code, int(insn.Arg))
	case opcode.DELETE_FAST:
		name, ok = localAt(code, int(insn.Arg))
	case opcode.DELETE_DEREF:
		name, ok = freeName(code, int(insn.Arg))
	}
	if !ok {
		return errUnhandled(insn)
	}
	target := d.arena.Alloc(&ast.Name{Start: insn.Offset, End: insn.Next, Ident: name})
	blocks.appendBody(d.arena.Alloc(&ast.Delete{Start: insn.Offset, End: insn.Next, Target: target}))
	return nil
}

func (d *decompiler) handleStoreAttr(code *coderecord.Code, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	name, ok := nameAt(code, int(insn.Arg))
	if !ok {
		return errUnhandled(insn)
	}
	obj, ok1 := stack.pop()
	val, ok2 := stack.pop()
	if !ok1 || !ok2 {
		return errStackUnderflow(insn)
	}
	attr := d.arena.Alloc(&ast.Object{Start: insn.Offset, End: insn.Next, Value: coderecord.ConstStr(name)})
	target := d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: obj, Index: attr})
	d.emitStore(blocks, insn, val, target)
	return nil
}

func (d *decompiler) handleDeleteAttr(code *coderecord.Code, blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	name, ok := nameAt(code, int(insn.Arg))
	if !ok {
		return errUnhandled(insn)
	}
	obj, ok := stack.pop()
	if !ok {
		return errStackUnderflow(insn)
	}
	attr := d.arena.Alloc(&ast.Object{Start: insn.Offset, End: insn.Next, Value: coderecord.ConstStr(name)})
	target := d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: obj, Index: attr})
	blocks.appendBody(d.arena.Alloc(&ast.Delete{Start: insn.Offset, End: insn.Next, Target: target}))
	return nil
}

func (d *decompiler) handleStoreSubscr(blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	idx, ok1 := stack.pop()
	obj, ok2 := stack.pop()
	val, ok3 := stack.pop()
	if !ok1 || !ok2 || !ok3 {
		return errStackUnderflow(insn)
	}
	target := d.arena.Alloc(&ast.Subscript{Start: insn.Offset, End: insn.Next, Container: obj, Index: idx})
	d.emitStore(blocks, insn, val, target)
	return nil
}

// handleStoreMap implements the pre-3.5 incremental-BUILD_MAP idiom: the
// map itself is already on the stack underneath key and value. Value and
// key are always popped; when the stack runs short or the value left on top
// is not a Map, the pair is dropped without an error rather than stored
// (see DESIGN.md).
func (d *decompiler) handleStoreMap(stack *valueStack, insn opcode.Instruction) error {
	val, ok1 := stack.pop()
	key, ok2 := stack.pop()
	mapHandle, ok3 := stack.peek()
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	m, ok := d.arena.At(mapHandle).(*ast.Map)
	if !ok {
		return nil
	}
	m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: val})
	return nil
}

// emitStore appends an ordinary Store statement, unless val is a pending
// FOR/WITH/EXCEPT placeholder the innermost open block is waiting on — in
// which case the store instead binds the block's header field
// (Target/AsName/ExceptName) and never becomes a body statement. "a = b =
// expr" (chain assignment) surfaces here as one Store per target, each
// sharing the same Value handle thanks to the DUP_TOP that precedes every
// target but the last; the post-processing merge pass folds such a run
// into one ChainStore once the whole block's Body is final.
func (d *decompiler) emitStore(blocks *blockStack, insn opcode.Instruction, val, target ast.Handle) {
	if h, b, ok := blocks.top(); ok {
		m := blocks.metaFor(h)
		switch {
		case b.Variant == ast.BlockFor && m.forPlaceholder == val:
			b.Target = target
			m.forPlaceholder = ast.Nil
			return
		case b.Variant == ast.BlockWith && m.withPlaceholder == val:
			b.AsName = target
			m.withPlaceholder = ast.Nil
			return
		case b.Variant == ast.BlockExcept && m.excPlaceholder == val:
			if nm, ok := d.arena.At(target).(*ast.Name); ok {
				b.ExceptName = nm.Ident
			}
			m.excPlaceholder = ast.Nil
			return
		}
	}
	blocks.appendBody(d.arena.Alloc(&ast.Store{Start: insn.Offset, End: insn.Next, Value: val, Target: target}))
}

func (d *decompiler) handleRaise(blocks *blockStack, stack *valueStack, insn opcode.Instruction) error {
	n := int(insn.Arg)
	var exc, cause ast.Handle = ast.Nil, ast.Nil
	switch n {
	case 0:
	case 1:
		v, ok := stack.pop()
		if !ok {
			return errStackUnderflow(insn)
		}
		exc = v
	case 2:
		c, ok1 := stack.pop()
		v, ok2 := stack.pop()
		if !ok1 || !ok2 {
			return errStackUnderflow(insn)
		}
		exc, cause = v, c
	default:
		return errUnhandled(insn)
	}
	blocks.appendBody(d.arena.Alloc(&ast.Raise{Start: insn.Offset, End: insn.Next, Exc: exc, Cause: cause}))
	return nil
}

func (d *decompiler) handleImportName(code *coderecord.Code, stack *valueStack, insn opcode.Instruction) error {
	name, ok := nameAt(code, int(insn.Arg))
	if !ok {
		return errUnhandled(insn)
	}
	fromList, ok1 := stack.pop()
	levelHandle, ok2 := stack.pop()
	if !ok1 || !ok2 {
		return errStackUnderflow(insn)
	}
	level := 0
	if obj, ok := d.arena.At(levelHandle).(*ast.Object); ok {
		if ci, ok := obj.Value.(coderecord.ConstInt); ok {
			level = int(ci.Value)
		}
	}
	var names []string
	if tup, ok := d.arena.At(fromList).(*ast.Object); ok {
		if ct, ok := tup.Value.(coderecord.ConstTuple); ok {
			for _, c := range ct {
				if s, ok := c.(coderecord.ConstStr); ok {
					names = append(names, string(s))
				}
			}
		}
	}
	stack.push(d.arena.Alloc(&ast.Import{Start: insn.Offset, End: insn.Next, Module: name, Names: names, Level: level}))
	return nil
}

func (d *decompiler) handleImportFrom(code *coderecord.Code, stack *valueStack, insn opcode.Instruction) error {
	name, ok := nameAt(code, int(insn.Arg))
	if !ok {
		return errUnhandled(insn)
	}
	mod, ok := stack.peek()
	if !ok {
		return errStackUnderflow(insn)
	}
	module := moduleNameOf(d.arena, mod)
	stack.push(d.arena.Alloc(&ast.Import{Start: insn.Offset, End: insn.Next, Module: module, Names: []string{name}}))
	return nil
}

func moduleNameOf(a *ast.Arena, h ast.Handle) string {
	if imp, ok := a.At(h).(*ast.Import); ok {
		return imp.Module
	}
	return ""
}

func constAt(code *coderecord.Code, idx int) (coderecord.Const, bool) {
	if idx < 0 || idx >= len(code.Consts) {
		return nil, false
	}
	return code.Consts[idx], true
}

func nameAt(code *coderecord.Code, idx int) (string, bool) {
	if idx < 0 || idx >= len(code.Names) {
		return "", false
	}
	return code.Names[idx], true
}

func localAt(code *coderecord.Code, idx int) (string, bool) {
	if idx < 0 || idx >= len(code.Varnames) {
		return "", false
	}
	return code.Varnames[idx], true
}
