package engine

import (
	"fmt"
	"go/scanner"
	"go/token"

	"github.com/opendis/pydec/opcode"
)

// Error and ErrorList are the engine's diagnostic types. Reconstruction
// failures are accumulated rather than aborting at the first one, reusing
// go/scanner's own Error/ErrorList rather than inventing a parallel type:
// a position, a message, sorting and an Error() rendering come for free.
// The list is sorted but not deduplicated.
type Error = scanner.Error
type ErrorList = scanner.ErrorList

// errorList accumulates diagnostics against a single code record's
// synthetic file position (offsets, since there is no source text here —
// only byte offsets into the instruction stream).
type errorList struct {
	filename string
	list     ErrorList
}

func newErrorList(filename string) *errorList {
	return &errorList{filename: filename}
}

func (e *errorList) add(offset int, msg string) {
	e.list.Add(token.Position{Filename: e.filename, Offset: offset, Line: offset}, msg)
}

func (e *errorList) errOrNil() error {
	if len(e.list) == 0 {
		return nil
	}
	e.list.Sort()
	return e.list.Err()
}

func errUnhandled(insn opcode.Instruction) error {
	return fmt.Errorf("unhandled opcode %s", insn.Op)
}

func errStackUnderflow(insn opcode.Instruction) error {
	return fmt.Errorf("stack underflow at %s", insn.Op)
}
