package engine

import (
	"testing"

	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/internal/asmfixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decompileAsm(t *testing.T, src string) (*ast.Arena, *ast.Block) {
	t.Helper()
	code, ver, err := asmfixture.Asm(src)
	require.NoError(t, err)
	arena, root, err := Decompile(code, ver, Options{})
	require.NoError(t, err)
	b, ok := arena.At(root).(*ast.Block)
	require.True(t, ok)
	return arena, b
}

func TestDecompileBinaryAddStore(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  x

consts:
  int 1
  int 2

code:
  load_const 0
  load_const 1
  binary_add
  store_name 0
`)
	require.Len(t, root.Body, 1)
	st, ok := arena.At(root.Body[0]).(*ast.Store)
	require.True(t, ok)
	bin, ok := arena.At(st.Value).(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, bin.Op)
	name, ok := arena.At(st.Target).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "x", name.Ident)
}

func TestDecompileTernary(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  cond
  then_val
  else_val
  result

code:
  load_name 0
  pop_jump_if_false else_branch
  load_name 1
  jump_forward end
else_branch:
  load_name 2
end:
  store_name 3
`)
	require.Len(t, root.Body, 1)
	st, ok := arena.At(root.Body[0]).(*ast.Store)
	require.True(t, ok)
	tern, ok := arena.At(st.Value).(*ast.Ternary)
	require.True(t, ok, "expected the if/else pair folded into a Ternary, got %s", ast.Describe(arena, st.Value))

	cond, _ := arena.At(tern.Cond).(*ast.Name)
	then, _ := arena.At(tern.Then).(*ast.Name)
	els, _ := arena.At(tern.Else).(*ast.Name)
	require.NotNil(t, cond)
	require.NotNil(t, then)
	require.NotNil(t, els)
	assert.Equal(t, "cond", cond.Ident)
	assert.Equal(t, "then_val", then.Ident)
	assert.Equal(t, "else_val", els.Ident)
}

func TestDecompileChainStore(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  a
  b

consts:
  int 1

code:
  load_const 0
  dup_top
  store_name 0
  store_name 1
`)
	require.Len(t, root.Body, 1, "the two Stores sharing one Value should merge into a single ChainStore")
	cs, ok := arena.At(root.Body[0]).(*ast.ChainStore)
	require.True(t, ok)
	require.Len(t, cs.Targets, 2)
	a, _ := arena.At(cs.Targets[0]).(*ast.Name)
	b, _ := arena.At(cs.Targets[1]).(*ast.Name)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, "a", a.Ident)
	assert.Equal(t, "b", b.Ident)
}

func TestDecompileDocstringHoist(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  x

consts:
  str "module docstring"
  int 1

code:
  load_const 0
  pop_top
  load_const 1
  store_name 0
`)
	assert.Equal(t, "module docstring", root.Docstring)
	require.Len(t, root.Body, 1)
	_, ok := arena.At(root.Body[0]).(*ast.Store)
	assert.True(t, ok)
}

func TestDecompileBuildList(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  xs

consts:
  int 1
  int 2

code:
  load_const 0
  load_const 1
  build_list 2
  store_name 0
`)
	require.Len(t, root.Body, 1)
	st, ok := arena.At(root.Body[0]).(*ast.Store)
	require.True(t, ok)
	list, ok := arena.At(st.Value).(*ast.List)
	require.True(t, ok)
	require.Len(t, list.Elems, 2)
	one, _ := arena.At(list.Elems[0]).(*ast.Object)
	require.NotNil(t, one)
	assert.Equal(t, coderecord.ConstInt{Value: 1, Raw: "1"}, one.Value)
}
