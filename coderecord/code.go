// Package coderecord defines the input data model the reconstruction engine
// consumes: a code record (the runtime's compiled representation of a single
// callable or module scope) and the closed family of constant-pool value
// types it can embed.
//
// Materializing a Code from the on-disk container format is an external
// collaborator; this package only defines the shape a reader
// must produce and the engine must consume.
package coderecord

import "fmt"

// Flag bits recorded in Code.Flags. Only the subset the engine's handlers
// gate behavior on is named; the container reader may set others that the
// engine ignores.
const (
	FlagOptimized uint32 = 1 << iota
	FlagNewLocals
	FlagVarArgs
	FlagVarKeywords
	FlagNested
	FlagGenerator
	FlagNoFree
	FlagCoroutine
	FlagIterableCoroutine
	FlagAsyncGenerator
)

// LineEntry maps a byte offset in the instruction buffer to a source line
// number. Entries are ordered by StartOffset; the line for a given offset is
// the line of the last entry whose StartOffset is <= that offset.
type LineEntry struct {
	StartOffset int
	Line        int
}

// Code is a single code record: the runtime's compiled representation of a
// module, function, class body, lambda or comprehension. It is immutable
// once produced by the container reader.
type Code struct {
	// Instructions is the raw instruction byte buffer: a sequence of
	// (opcode, operand) pairs as described by the opcode package.
	Instructions []byte

	// Consts is the constant pool, in the order the compiler emitted them.
	// LOAD_CONST and friends index into this slice.
	Consts []Const

	// Names holds identifiers used for global/attribute/import access
	// (LOAD_NAME, LOAD_GLOBAL, LOAD_ATTR, IMPORT_NAME, ...).
	Names []string

	// Varnames holds the names of local variables, parameters first. LOAD_FAST
	// and STORE_FAST index into this slice.
	Varnames []string

	// Cellvars holds the names of locals that are captured by a nested
	// function (and therefore must be boxed in a cell).
	Cellvars []string

	// Freevars holds the names of variables captured from an enclosing
	// function. LOAD_DEREF/STORE_DEREF index into the logical
	// concatenation of Cellvars then Freevars in the pre-3.11 scheme; the
	// engine's freeName helper applies that split for every version.
	Freevars []string

	// StackDepth is the maximum evaluation stack depth the compiler computed
	// for this code record. It is a hint, not a hard limit: the engine's
	// simulated stack does not enforce it, but a very old bytecode version may
	// under-report it, hence the floor applied by the engine (see
	// engine.minStackDepth).
	StackDepth int

	// ArgCount, KwOnlyArgCount and PosOnlyArgCount partition Varnames[:n] into
	// the three kinds of declared parameters.
	ArgCount       int
	KwOnlyArgCount int
	PosOnlyArgCount int

	// Flags is the bitset of Flag* values describing this code record.
	Flags uint32

	// Name is the bare name of the function/class/module this code record
	// implements (e.g. "f", "<listcomp>", "<module>").
	Name string

	// QualName is the dotted qualified name (e.g. "Outer.method.<locals>.f").
	QualName string

	// Filename is the source filename the compiler recorded, purely
	// informational for error messages.
	Filename string

	// FirstLine is the source line number of the first statement of this code
	// record.
	FirstLine int

	// LineTable maps instruction offsets to source line numbers.
	LineTable []LineEntry
}

// HasFlag reports whether all bits of flag are set in c.Flags.
func (c *Code) HasFlag(flag uint32) bool {
	return c.Flags&flag == flag
}

// LineForOffset returns the source line number associated with the given
// byte offset into c.Instructions, or 0 if c.LineTable is empty.
func (c *Code) LineForOffset(offset int) int {
	line := 0
	for _, e := range c.LineTable {
		if e.StartOffset > offset {
			break
		}
		line = e.Line
	}
	return line
}

// String renders a short, human-readable identifier for the code record,
// useful in error messages.
func (c *Code) String() string {
	if c.Filename != "" {
		return fmt.Sprintf("%s (%s:%d)", c.QualName, c.Filename, c.FirstLine)
	}
	return c.QualName
}
