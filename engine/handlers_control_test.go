package engine

import (
	"testing"

	"github.com/opendis/pydec/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompileWhileLoop(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  cond
  x

code:
  setup_loop done
loop:
  load_name 0
  pop_jump_if_false done
  load_name 1
  pop_top
  jump_absolute loop
  pop_block
done:
  return_value
`)
	require.Len(t, root.Body, 2)
	wb, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockWhile, wb.Variant)

	cond, ok := arena.At(wb.Test).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "cond", cond.Ident)

	require.Len(t, wb.Body, 1)
	x, ok := arena.At(wb.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "x", x.Ident)
}

func TestDecompileForLoopCapturesTarget(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  xs
  x
  y

code:
  load_name 0
  get_iter
loop:
  for_iter done
  store_name 1
  load_name 1
  store_name 2
  jump_absolute loop
done:
  return_value
`)
	require.Len(t, root.Body, 2)
	fb, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockFor, fb.Variant)

	target, ok := arena.At(fb.Target).(*ast.Name)
	require.True(t, ok, "FOR_ITER's following STORE_NAME should bind Block.Target, not leak into the body")
	assert.Equal(t, "x", target.Ident)

	iter, ok := arena.At(fb.Iter).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "xs", iter.Ident)

	require.Len(t, fb.Body, 1)
	_, ok = arena.At(fb.Body[0]).(*ast.Store)
	assert.True(t, ok, "the second STORE_NAME (y = x) is an ordinary body Store")
}

func TestDecompileWithStatement(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  ctx
  x
  y

code:
  load_name 0
  setup_with done
  store_name 1
  load_name 2
  pop_top
  pop_block
  end_finally
done:
  return_value
`)
	require.Len(t, root.Body, 2)
	wb, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockWith, wb.Variant)

	ctx, ok := arena.At(wb.ContextExpr).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "ctx", ctx.Ident)

	asName, ok := arena.At(wb.AsName).(*ast.Name)
	require.True(t, ok, "the STORE_NAME right after SETUP_WITH should bind Block.AsName, not leak into the body")
	assert.Equal(t, "x", asName.Ident)

	require.Len(t, wb.Body, 1)
	y, ok := arena.At(wb.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "y", y.Ident)
}

func TestDecompileWithStatementNoAsClause(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  ctx
  y

code:
  load_name 0
  setup_with done
  pop_top
  load_name 1
  pop_top
  pop_block
  end_finally
done:
  return_value
`)
	require.Len(t, root.Body, 2)
	wb, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockWith, wb.Variant)
	assert.False(t, wb.AsName.Valid(), "no STORE_* followed SETUP_WITH, so AsName stays unset")
	require.Len(t, wb.Body, 1, "the placeholder POP_TOP (no \"as\" clause) must not appear in Body")
	y, ok := arena.At(wb.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "y", y.Ident)
}

func TestDecompileTryExceptAsName(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  Err
  e
  x
  y

code:
  setup_except handler
  load_name 2
  pop_top
  pop_block
handler:
  dup_top
  load_name 0
  compare_op 10
  pop_jump_if_false reraise
  store_name 1
  load_name 3
  pop_top
  end_finally
reraise:
  return_value
`)
	require.Len(t, root.Body, 3)

	tryB, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockTry, tryB.Variant, "the body under SETUP_EXCEPT stays a plain TRY block")
	require.Len(t, tryB.Body, 1)
	x, ok := arena.At(tryB.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "x", x.Ident)

	exceptB, ok := arena.At(root.Body[1]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockExcept, exceptB.Variant, "the DUP_TOP/COMPARE_OP/POP_JUMP_IF_FALSE triple should promote the handler to an EXCEPT sibling")

	errType, ok := arena.At(exceptB.ExceptType).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "Err", errType.Ident)
	assert.Equal(t, "e", exceptB.ExceptName, "STORE_NAME right after the type match should bind ExceptName, not leak into the body")

	require.Len(t, exceptB.Body, 1)
	y, ok := arena.At(exceptB.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "y", y.Ident)

	_, ok = arena.At(root.Body[2]).(*ast.Return)
	assert.True(t, ok)
}

func TestDecompileTryFinally(t *testing.T) {
	arena, root := decompileAsm(t, `
module: <module>
version: 3.8.0

names:
  x
  cleanup

code:
  setup_finally handler
  load_name 0
  pop_top
  pop_block
handler:
  load_name 1
  pop_top
  end_finally
  return_value
`)
	require.Len(t, root.Body, 2)
	fb, ok := arena.At(root.Body[0]).(*ast.Block)
	require.True(t, ok)
	assert.Equal(t, ast.BlockFinally, fb.Variant)
	require.Len(t, fb.Body, 2)

	x, ok := arena.At(fb.Body[0]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "x", x.Ident)

	cleanup, ok := arena.At(fb.Body[1]).(*ast.Name)
	require.True(t, ok)
	assert.Equal(t, "cleanup", cleanup.Ident)
}
