package engine

import (
	"testing"

	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecoverComprehensionCapturesTarget exercises recoverComprehension
// directly against a hand-built FOR block, the shape decompileCode leaves
// behind once FOR_ITER's placeholder correctly threads a STORE_* into
// Block.Target: comprehension recovery reads that field straight off the
// block, so a populated Target here is what makes "[x for x in xs]" recover
// a generator with a bound loop variable instead of a nil one.
func TestRecoverComprehensionCapturesTarget(t *testing.T) {
	arena := ast.NewArena(8)
	d := &decompiler{arena: arena}

	iterName := arena.Alloc(&ast.Name{Ident: "xs"})
	targetName := arena.Alloc(&ast.Name{Ident: "x"})
	elemName := arena.Alloc(&ast.Name{Ident: "x"})
	compElem := arena.Alloc(&ast.CompElement{Value: elemName, Key: ast.Nil})

	forBlock := &ast.Block{Variant: ast.BlockFor, Iter: iterName, Target: targetName, Body: []ast.Handle{compElem}}
	forHandle := arena.Alloc(forBlock)

	root := &ast.Block{Variant: ast.BlockFunction, Body: []ast.Handle{forHandle}}
	rootHandle := arena.Alloc(root)

	result := d.recoverComprehension(rootHandle)
	rb, ok := arena.At(result).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockComprehension, rb.Variant)
	require.Len(t, rb.Generators, 1)

	target, ok := arena.At(rb.Generators[0].Target).(*ast.Name)
	require.True(t, ok, "comprehension generator should carry the FOR block's Target")
	assert.Equal(t, "x", target.Ident)

	iter, ok := arena.At(rb.Generators[0].Iter).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "xs", iter.Ident)

	elem, ok := arena.At(rb.Element).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "x", elem.Ident)
}

// TestSubstituteDecoratedFunctionsHoistsNamedFunction covers the
// "@decorator\ndef f(): ..." reconstruction: a positional call argument that
// is a non-<lambda> Function gets hoisted into its own Store ("def f():
// ...") appended to the enclosing block's body, and the call argument slot
// is rewritten to a Name referencing it — so the call becomes
// "decorator(f)" instead of embedding the function object inline.
func TestSubstituteDecoratedFunctionsHoistsNamedFunction(t *testing.T) {
	arena := ast.NewArena(8)
	d := &decompiler{arena: arena}
	blocks := newBlockStack(arena)
	blocks.push(&ast.Block{Variant: ast.BlockMain})

	nestedBody := arena.Alloc(&ast.Block{Variant: ast.BlockFunction})
	fn := arena.Alloc(&ast.Function{Name: "f", Body: nestedBody})

	args := []ast.Handle{fn}
	d.substituteDecoratedFunctions(blocks, args)

	_, b, ok := blocks.top()
	require.True(t, ok)
	require.Len(t, b.Body, 1, "the Function argument should be hoisted into its own Store statement")

	st, ok := arena.At(b.Body[0]).(*ast.Store)
	require.True(t, ok)
	assert.Equal(t, fn, st.Value)
	name, ok := arena.At(st.Target).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "f", name.Ident)

	require.Len(t, args, 1)
	argName, ok := arena.At(args[0]).(*ast.Name)
	require.True(t, ok, "the call argument slot should now reference the hoisted function by name")
	assert.Equal(t, "f", argName.Ident)
}

// TestSubstituteDecoratedFunctionsSkipsLambda confirms a <lambda> Function
// argument passes through untouched: a lambda has no name to bind and is
// meant to stay inline as an expression, unlike a decorated "def".
func TestSubstituteDecoratedFunctionsSkipsLambda(t *testing.T) {
	arena := ast.NewArena(8)
	d := &decompiler{arena: arena}
	blocks := newBlockStack(arena)
	blocks.push(&ast.Block{Variant: ast.BlockMain})

	nestedBody := arena.Alloc(&ast.Block{Variant: ast.BlockFunction})
	fn := arena.Alloc(&ast.Function{Name: "<lambda>", Body: nestedBody})

	args := []ast.Handle{fn}
	d.substituteDecoratedFunctions(blocks, args)

	_, b, _ := blocks.top()
	assert.Empty(t, b.Body, "a <lambda> argument must not be hoisted into a Store")
	assert.Equal(t, fn, args[0])
}

func TestDecompileImportModule(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  os

consts:
  int 0
  none

code:
  load_const 0
  load_const 1
  import_name 0
  store_name 0
`)
	require.Len(t, root.Body, 1)
	st, ok := arena.At(root.Body[0]).(*ast.Store)
	require.True(t, ok)
	imp, ok := arena.At(st.Value).(*ast.Import)
	require.True(t, ok)
	assert.Equal(t, "os", imp.Module)
	assert.Equal(t, 0, imp.Level)
	assert.Empty(t, imp.Names)
	name, ok := arena.At(st.Target).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "os", name.Ident)
}

func TestDecompileSlice(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  xs
  y

consts:
  int 1
  int 2

code:
  load_name 0
  load_const 0
  load_const 1
  build_slice 2
  binary_subscr
  store_name 1
`)
	require.Len(t, root.Body, 1)
	st, ok := arena.At(root.Body[0]).(*ast.Store)
	require.True(t, ok)
	sub, ok := arena.At(st.Value).(*ast.Subscript)
	require.True(t, ok)

	container, ok := arena.At(sub.Container).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "xs", container.Ident)

	slice, ok := arena.At(sub.Index).(*ast.Slice)
	require.True(t, ok)
	assert.Equal(t, ast.Slice2, slice.Variant)
	assert.True(t, slice.Lower.Valid())
	assert.True(t, slice.Upper.Valid())
	assert.False(t, slice.Step.Valid())
}

// TestTryClassBuilderRecognizesLoadBuildClass exercises the
// LOAD_BUILD_CLASS/CALL speculative reduction directly: a call whose callee
// is the LoadBuildClass sentinel and whose first argument is a Function
// produces a Class node (body call, base tuple and name) instead of an
// ordinary Call. A class body's code record is a nested one, which the
// asm fixture format cannot embed, so this is driven straight against
// tryClassBuilder the way the comprehension-recovery test drives
// recoverComprehension.
func TestTryClassBuilderRecognizesLoadBuildClass(t *testing.T) {
	arena := ast.NewArena(8)
	d := &decompiler{arena: arena}
	stack := newValueStack(4)

	callee := arena.Alloc(&ast.LoadBuildClass{})
	nestedBody := arena.Alloc(&ast.Block{Variant: ast.BlockClass})
	fn := arena.Alloc(&ast.Function{Name: "C", Body: nestedBody})
	className := arena.Alloc(&ast.Object{Value: coderecord.ConstStr("C")})
	base := arena.Alloc(&ast.Name{Ident: "Base"})

	result, isClass, err := d.tryClassBuilder(stack, opcode.Instruction{}, callee, []ast.Handle{fn, className, base})
	require.NoError(t, err)
	require.True(t, isClass)

	cls, ok := arena.At(result).(*ast.Class)
	require.True(t, ok)
	assert.Equal(t, "C", cls.Name)

	bodyCall, ok := arena.At(cls.Body).(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, fn, bodyCall.Callee)

	bases, ok := arena.At(cls.Bases).(*ast.Tuple)
	require.True(t, ok)
	require.Len(t, bases.Elems, 1)
	baseName, ok := arena.At(bases.Elems[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "Base", baseName.Ident)
}
