package ast

// Kind discriminates the closed family of node variants. A Node's
// concrete Go type always matches its Kind; the pair is redundant on
// purpose, the same way ast.Expr/ast.Stmt marker methods in a typical AST package
// are redundant with the concrete type — it lets a type switch double as
// a same-family sanity check.
type Kind uint8

const (
	KindObject Kind = iota
	KindName
	KindLoadBuildClass

	KindTuple
	KindList
	KindSet
	KindMap
	KindConstMap
	KindSlice

	KindBinary
	KindUnary
	KindCompare
	KindSubscript
	KindTernary

	KindCall
	KindFunction
	KindClass
	KindLambda

	KindStore
	KindDelete
	KindReturn
	KindRaise
	KindImport
	KindKeyword
	KindPrint
	KindAnnotatedAssign

	KindBlock

	KindFormattedValue
	KindJoinedStr
	KindChainStore
	KindCompElement
	KindExceptionMatch

	KindKwNamesMap
)

var kindNames = [...]string{
	KindObject:          "object",
	KindName:            "name",
	KindLoadBuildClass:  "load_build_class",
	KindTuple:           "tuple",
	KindList:            "list",
	KindSet:             "set",
	KindMap:             "map",
	KindConstMap:        "const_map",
	KindSlice:           "slice",
	KindBinary:          "binary",
	KindUnary:           "unary",
	KindCompare:         "compare",
	KindSubscript:       "subscript",
	KindTernary:         "ternary",
	KindCall:            "call",
	KindFunction:        "function",
	KindClass:           "class",
	KindLambda:          "lambda",
	KindStore:           "store",
	KindDelete:          "delete",
	KindReturn:          "return",
	KindRaise:           "raise",
	KindImport:          "import",
	KindKeyword:         "keyword",
	KindPrint:           "print",
	KindAnnotatedAssign: "annotated_assign",
	KindBlock:           "block",
	KindFormattedValue:  "formatted_value",
	KindJoinedStr:       "joined_str",
	KindChainStore:      "chain_store",
	KindCompElement:     "comp_element",
	KindExceptionMatch:  "exception_match",
	KindKwNamesMap:      "kwnames_map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown_kind"
}

// Node is implemented by every AST node variant. Unlike a typical
// standalone ast.Node, it has no Span/Format/Walk methods directly: those operations
// need access to the owning Arena to resolve a node's children (stored as
// Handle, not as pointers), so they live on Arena (see describe.go,
// visitor.go) instead of on Node itself.
type Node interface {
	Kind() Kind
}
