package coderecord

import "strconv"

// Const is the closed family of values that can live in a code record's
// constant pool: numbers, strings, nested code records, tuples, and none.
// Unlike a full runtime value representation, a Const need not
// support arithmetic, iteration or ordering: its only job is to be carried,
// unmodified, into an ast.Object node.
type Const interface {
	String() string
	constTag() string
}

// ConstNone is the singleton "none" constant.
type ConstNone struct{}

// None is the shared ConstNone value; compare constants with ==.
var None = ConstNone{}

func (ConstNone) String() string  { return "None" }
func (ConstNone) constTag() string { return "none" }

// ConstBool is a boolean constant.
type ConstBool bool

func (b ConstBool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (ConstBool) constTag() string { return "bool" }

// ConstInt is an integer constant. The runtime's arbitrary-precision
// integers are represented as their decimal text when they would overflow
// int64; Raw is always populated, Value is valid only when Big is false.
type ConstInt struct {
	Value int64
	Raw   string // decimal text, used verbatim when Big is true
	Big   bool
}

func (i ConstInt) String() string {
	if i.Big {
		return i.Raw
	}
	return strconv.FormatInt(i.Value, 10)
}
func (ConstInt) constTag() string { return "int" }

// ConstFloat is a floating point constant.
type ConstFloat struct {
	Value float64
	Raw   string // the compiler's original text representation, if known
}

func (f ConstFloat) String() string { return f.Raw }
func (ConstFloat) constTag() string { return "float" }

// ConstStr is a text string constant.
type ConstStr string

func (s ConstStr) String() string  { return string(s) }
func (ConstStr) constTag() string { return "str" }

// ConstBytes is a binary data constant.
type ConstBytes []byte

func (b ConstBytes) String() string  { return string(b) }
func (ConstBytes) constTag() string { return "bytes" }

// ConstTuple is an immutable sequence of constants, e.g. the keys tuple of a
// BUILD_CONST_KEY_MAP, or a tuple literal made entirely of constants.
type ConstTuple []Const

func (ConstTuple) String() string  { return "(...)" }
func (ConstTuple) constTag() string { return "tuple" }

// ConstCode wraps a nested code record (a function, class, lambda or
// comprehension body) found in an enclosing code record's constant pool.
type ConstCode struct {
	Code *Code
}

func (c ConstCode) String() string  { return c.Code.String() }
func (ConstCode) constTag() string { return "code" }
