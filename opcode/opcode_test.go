package opcode

import (
	"testing"

	"github.com/opendis/pydec/pyver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "load_const", LOAD_CONST.String())
	assert.Equal(t, "call", CALL.String())
	assert.Contains(t, Opcode(9001).String(), "illegal")
}

func TestDecodeFixedWidth36(t *testing.T) {
	d := NewDispatcher(pyver.New(3, 8, 0))
	// LOAD_FAST 0 ; LOAD_FAST 1 ; RETURN_VALUE
	code := []byte{124, 0, 124, 1, 83, 0}

	insns := decodeAll(t, d, code)
	require.Len(t, insns, 3)
	assert.Equal(t, LOAD_FAST, insns[0].Op)
	assert.Equal(t, uint32(0), insns[0].Arg)
	assert.Equal(t, LOAD_FAST, insns[1].Op)
	assert.Equal(t, uint32(1), insns[1].Arg)
	assert.Equal(t, RETURN_VALUE, insns[2].Op)
}

func TestDecodeVariableWidthLegacy(t *testing.T) {
	d := NewDispatcher(pyver.New(2, 7, 0))
	// LOAD_CONST 1 ; RETURN_VALUE
	code := []byte{100, 1, 0, 84}

	insns := decodeAll(t, d, code)
	require.Len(t, insns, 2)
	assert.Equal(t, LOAD_CONST, insns[0].Op)
	assert.Equal(t, uint32(1), insns[0].Arg)
	assert.Equal(t, RETURN_VALUE, insns[1].Op)
}

func TestDecodeExtendedArgAccumulates311(t *testing.T) {
	d := NewDispatcher(pyver.New(3, 11, 0))
	// EXTENDED_ARG 1 ; LOAD_CONST 2 -> arg == (1<<8)|2
	code := []byte{144, 1, 100, 2}

	insns := decodeAll(t, d, code)
	require.Len(t, insns, 2)
	assert.Equal(t, EXTENDED_ARG, insns[0].Op)
	assert.Equal(t, LOAD_CONST, insns[1].Op)
	assert.Equal(t, uint32(1<<8|2), insns[1].Arg)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	d := NewDispatcher(pyver.New(3, 9, 0))
	_, err := d.Decode([]byte{250, 0}, 0)
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 0, decErr.Offset)
}

func TestByName(t *testing.T) {
	op, ok := ByName("load_const")
	require.True(t, ok)
	assert.Equal(t, LOAD_CONST, op)

	_, ok = ByName("not_a_real_mnemonic")
	assert.False(t, ok)
}

func TestSplitPacked(t *testing.T) {
	lo, hi := SplitPacked(3<<8 | 2)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 3, hi)
}

func decodeAll(t *testing.T, d *Dispatcher, code []byte) []Instruction {
	t.Helper()
	var out []Instruction
	pos := 0
	for pos < len(code) {
		insn, err := d.Decode(code, pos)
		require.NoError(t, err)
		out = append(out, insn)
		pos = insn.Next
	}
	return out
}
