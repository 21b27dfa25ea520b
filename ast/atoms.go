package ast

import "github.com/opendis/pydec/coderecord"

// Object wraps a literal constant pulled straight from the code record's
// constant pool by LOAD_CONST.
type Object struct {
	Start, End int // instruction offsets this node was built from
	Value      coderecord.Const
}

func (*Object) Kind() Kind { return KindObject }

// NameScope distinguishes where a Name node's identifier was resolved from,
// which the printer needs even though syntactically a name prints the same
// regardless of scope.
type NameScope uint8

const (
	ScopeName        NameScope = iota // LOAD_NAME / STORE_NAME
	ScopeGlobal                       // LOAD_GLOBAL / STORE_GLOBAL
	ScopeFast                         // LOAD_FAST / STORE_FAST
	ScopeDeref                        // LOAD_DEREF / STORE_DEREF
	ScopeClassDeref                   // LOAD_CLASSDEREF
	ScopeFree                         // a free variable referenced via LOAD_CLOSURE
	ScopePredeclared                  // names vector entries with no clear local/global origin
)

// Name is an identifier reference.
type Name struct {
	Start, End int
	Ident      string
	Scope      NameScope
	IsCell     bool // true if this reference denotes a LOAD_CLOSURE cell
}

func (*Name) Kind() Kind { return KindName }

// LoadBuildClass is the sentinel pushed by LOAD_BUILD_CLASS. It carries no
// data; its presence on the stack is what the CALL handler's class-builder
// combinator looks for (see engine package).
type LoadBuildClass struct {
	Start, End int
}

func (*LoadBuildClass) Kind() Kind { return KindLoadBuildClass }
