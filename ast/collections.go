package ast

// Tuple, List and Set represent the three BUILD_{TUPLE,LIST,SET} literal
// forms. They share a shape (an ordered list of element handles) but are
// kept as distinct node types,
// because they print with different delimiters and a one-element Tuple
// needs a trailing comma the other two never do.
type Tuple struct {
	Start, End int
	Elems      []Handle
}

func (*Tuple) Kind() Kind { return KindTuple }

type List struct {
	Start, End int
	Elems      []Handle
}

func (*List) Kind() Kind { return KindList }

type Set struct {
	Start, End int
	Elems      []Handle
}

func (*Set) Kind() Kind { return KindSet }

// MapEntry is one key/value pair of a Map node, kept in insertion order as
// dict construction preserves ("insertion-ordered").
type MapEntry struct {
	Key, Value Handle
}

// Map represents a dict literal built incrementally (BUILD_MAP in its
// pre-3.5 empty-then-SETMAP form, or populated directly from n pairs in
// later versions).
type Map struct {
	Start, End int
	Entries    []MapEntry
}

func (*Map) Kind() Kind { return KindMap }

// ConstMap represents a BUILD_CONST_KEY_MAP: a tuple of constant keys
// zipped with a sequence of (possibly non-constant) value expressions.
type ConstMap struct {
	Start, End int
	Keys       Handle // the keys value popped by the handler, normally an Object wrapping a ConstTuple
	Values     []Handle
}

func (*ConstMap) Kind() Kind { return KindConstMap }

// Slice represents a BUILD_SLICE result. Which of Lower/Upper/Step are
// valid handles depends on Variant.
type Slice struct {
	Start, End           int
	Variant              SliceVariant
	Lower, Upper, Step   Handle
}

func (*Slice) Kind() Kind { return KindSlice }
