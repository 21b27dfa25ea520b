package opcode

import (
	"fmt"

	"github.com/opendis/pydec/pyver"
)

// DecodeError reports a failure to decode an instruction at a given byte
// offset: an unknown raw opcode, or a truncated operand at the end of the
// instruction buffer.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("opcode: offset %d: %s", e.Offset, e.Msg)
}

// Instruction is one decoded (opcode, operand) pair together with the byte
// offset it started at and the offset immediately following it.
type Instruction struct {
	Offset int
	Op     Opcode
	Arg    uint32
	Next   int
}

// Dispatcher decodes a code record's raw instruction stream into a sequence
// of canonical Instructions, resolving the version-specific numeric
// encoding via a Table and accumulating EXTENDED_ARG prefixes the way the
// runtime itself does. A Dispatcher is stateful across calls to Decode
// within one instruction stream (it carries pending EXTENDED_ARG bits) but
// holds no state tied to a particular code object, so one Dispatcher can be
// reused across every code record sharing a format version.
type Dispatcher struct {
	ver       pyver.Version
	table     Table
	wide      bool // fixed 2-byte instruction encoding (>= 3.6)
	extended  uint32
}

// NewDispatcher builds a Dispatcher for the given format version, using the
// canonical version table unless overridden by WithTable.
func NewDispatcher(ver pyver.Version) *Dispatcher {
	return &Dispatcher{
		ver:   ver,
		table: NewTable(ver),
		wide:  ver.AtLeast(3, 6),
	}
}

// WithTable overrides the Dispatcher's opcode table, e.g. with one built by
// the container reader from a runtime's actual dis.opmap rather than the
// canonical approximation NewTable supplies.
func (d *Dispatcher) WithTable(t Table) *Dispatcher {
	d.table = t
	return d
}

// Reset clears any pending EXTENDED_ARG accumulation, for reuse between
// independent instruction streams.
func (d *Dispatcher) Reset() {
	d.extended = 0
}

// Decode reads one instruction from code starting at pos, returning the
// canonical opcode, its fully accumulated operand (folding in any prior
// EXTENDED_ARG), and the offset of the next instruction. Callers should
// loop Decode until pos reaches len(code).
func (d *Dispatcher) Decode(code []byte, pos int) (Instruction, error) {
	if pos < 0 || pos >= len(code) {
		return Instruction{}, &DecodeError{Offset: pos, Msg: "position out of range"}
	}
	raw := code[pos]
	op, ok := d.table[raw]
	if !ok {
		return Instruction{}, &DecodeError{Offset: pos, Msg: fmt.Sprintf("unknown raw opcode %d", raw)}
	}

	var arg uint32
	var next int
	switch {
	case !op.HasOperand() && op != EXTENDED_ARG:
		next = pos + instructionWidth(d.wide)
	case d.wide:
		if pos+1 >= len(code) {
			return Instruction{}, &DecodeError{Offset: pos, Msg: "truncated operand"}
		}
		arg = d.extended<<8 | uint32(code[pos+1])
		next = pos + 2
	default:
		if pos+2 >= len(code) {
			return Instruction{}, &DecodeError{Offset: pos, Msg: "truncated operand"}
		}
		lo := uint32(code[pos+1])
		hi := uint32(code[pos+2])
		arg = d.extended<<16 | hi<<8 | lo
		next = pos + 3
	}

	if op == EXTENDED_ARG {
		d.extended = arg
	} else {
		d.extended = 0
	}

	return Instruction{Offset: pos, Op: op, Arg: arg, Next: next}, nil
}

func instructionWidth(wide bool) int {
	if wide {
		return 2
	}
	return 1
}

// SplitPacked decomposes an operand decoded for a ClassArgPacked opcode
// e.g. the legacy CALL_FUNCTION's (positional, keyword) pair, into
// its two sub-counts.
func SplitPacked(arg uint32) (lo, hi int) {
	return int(arg & 0xff), int((arg >> 8) & 0xff)
}
