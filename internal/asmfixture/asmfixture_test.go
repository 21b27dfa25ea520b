package asmfixture

import (
	"testing"

	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
	"github.com/opendis/pydec/pyver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsmFlatProgram(t *testing.T) {
	src := `
module: <module>
version: 3.8.0
stackdepth: 4

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
  load_const 0
  return_value
`
	code, ver, err := Asm(src)
	require.NoError(t, err)
	assert.Equal(t, pyver.New(3, 8, 0), ver)
	assert.Equal(t, []string{"x"}, code.Names)
	require.Len(t, code.Consts, 2)
	assert.Equal(t, coderecord.ConstInt{Value: 1, Raw: "1"}, code.Consts[0])

	d := opcode.NewDispatcher(ver)
	var ops []opcode.Opcode
	for pos := 0; pos < len(code.Instructions); {
		insn, err := d.Decode(code.Instructions, pos)
		require.NoError(t, err)
		ops = append(ops, insn.Op)
		pos = insn.Next
	}
	assert.Equal(t, []opcode.Opcode{
		opcode.LOAD_CONST, opcode.LOAD_CONST, opcode.BINARY_ADD,
		opcode.STORE_NAME, opcode.LOAD_CONST, opcode.RETURN_VALUE,
	}, ops)
}

func TestAsmResolvesLabels(t *testing.T) {
	src := `
module: <module>
version: 3.8.0

varnames:
  x

code:
loop:
  load_fast 0
  pop_jump_if_false done
  jump_absolute loop
done:
  return_value
`
	code, ver, err := Asm(src)
	require.NoError(t, err)

	d := opcode.NewDispatcher(ver)
	insns := map[opcode.Opcode]uint32{}
	for pos := 0; pos < len(code.Instructions); {
		insn, err := d.Decode(code.Instructions, pos)
		require.NoError(t, err)
		insns[insn.Op] = insn.Arg
		pos = insn.Next
	}
	// pop_jump_if_false and jump_absolute both encode an absolute address in
	// this format band; done: sits right after the jump_absolute instruction.
	assert.Equal(t, uint32(0), insns[opcode.JUMP_ABSOLUTE])
	assert.Equal(t, uint32(6), insns[opcode.POP_JUMP_IF_FALSE])
}

func TestAsmRejectsUnknownMnemonic(t *testing.T) {
	_, _, err := Asm("module: m\nversion: 3.8.0\ncode:\n  not_a_real_op 0\n")
	assert.Error(t, err)
}

func TestAsmMissingVersion(t *testing.T) {
	_, _, err := Asm("code:\n  return_value\n")
	assert.Error(t, err)
}
