package ast

// VisitDirection indicates whether a call to Visit enters or exits a node,
// mirroring the visitor pattern a source-language AST package typically offers.
type VisitDirection int

const (
	VisitEnter VisitDirection = iota
	VisitExit
)

// Visitor is called for every node reachable from the handle passed to
// Walk. Returning a nil Visitor from Visit skips that node's children.
type Visitor interface {
	Visit(a *Arena, h Handle, dir VisitDirection) (w Visitor)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(a *Arena, h Handle, dir VisitDirection) Visitor

func (f VisitorFunc) Visit(a *Arena, h Handle, dir VisitDirection) Visitor {
	return f(a, h, dir)
}

// Walk visits h and, recursively, every node reachable from it, resolving
// child handles against a. It is the arena-indexed analogue of the
// a conventional ast.Walk: since nodes here hold Handle rather than Node
// pointers, every recursive step must be told which arena to resolve
// against.
func Walk(a *Arena, v Visitor, h Handle) {
	if !h.Valid() {
		return
	}
	if v = v.Visit(a, h, VisitEnter); v == nil {
		return
	}
	walkChildren(a, v, a.At(h))
	v.Visit(a, h, VisitExit)
}

// WalkAll is a convenience for walking a slice of sibling handles in order,
// e.g. a Block's Body.
func WalkAll(a *Arena, v Visitor, hs []Handle) {
	for _, h := range hs {
		Walk(a, v, h)
	}
}

func walkChildren(a *Arena, v Visitor, n Node) {
	switch n := n.(type) {
	case *Object, *Name, *LoadBuildClass:
		// leaves

	case *Tuple:
		WalkAll(a, v, n.Elems)
	case *List:
		WalkAll(a, v, n.Elems)
	case *Set:
		WalkAll(a, v, n.Elems)
	case *Map:
		for _, e := range n.Entries {
			Walk(a, v, e.Key)
			Walk(a, v, e.Value)
		}
	case *ConstMap:
		Walk(a, v, n.Keys)
		WalkAll(a, v, n.Values)
	case *Slice:
		Walk(a, v, n.Lower)
		Walk(a, v, n.Upper)
		Walk(a, v, n.Step)

	case *Binary:
		Walk(a, v, n.Left)
		Walk(a, v, n.Right)
	case *Unary:
		Walk(a, v, n.Operand)
	case *Compare:
		Walk(a, v, n.Left)
		for _, l := range n.Links {
			Walk(a, v, l.Right)
		}
	case *Subscript:
		Walk(a, v, n.Container)
		Walk(a, v, n.Index)
	case *Ternary:
		Walk(a, v, n.Cond)
		Walk(a, v, n.Then)
		Walk(a, v, n.Else)

	case *Call:
		Walk(a, v, n.Callee)
		WalkAll(a, v, n.Positional)
		for _, kw := range n.Keyword {
			Walk(a, v, kw.Value)
		}
		Walk(a, v, n.StarArgs)
		Walk(a, v, n.StarStarArgs)
	case *Function:
		WalkAll(a, v, n.Defaults)
		for _, kw := range n.KwDefaults {
			Walk(a, v, kw.Value)
		}
		for _, kw := range n.Annotations {
			Walk(a, v, kw.Value)
		}
		WalkAll(a, v, n.Closure)
		Walk(a, v, n.Body)
	case *Class:
		Walk(a, v, n.Body)
		Walk(a, v, n.Bases)
	case *Lambda:
		WalkAll(a, v, n.Defaults)
		Walk(a, v, n.Body)

	case *Store:
		Walk(a, v, n.Value)
		Walk(a, v, n.Target)
	case *Delete:
		Walk(a, v, n.Target)
	case *Return:
		Walk(a, v, n.Value)
	case *Raise:
		Walk(a, v, n.Exc)
		Walk(a, v, n.Cause)
	case *Import:
		// leaf: only strings
	case *Keyword:
		Walk(a, v, n.Value)
		Walk(a, v, n.Msg)
	case *Print:
		WalkAll(a, v, n.Values)
		Walk(a, v, n.Dest)
	case *AnnotatedAssign:
		Walk(a, v, n.Target)
		Walk(a, v, n.Annotation)
		Walk(a, v, n.Value)

	case *Block:
		Walk(a, v, n.Test)
		Walk(a, v, n.Iter)
		Walk(a, v, n.Target)
		Walk(a, v, n.ExceptType)
		Walk(a, v, n.ContextExpr)
		Walk(a, v, n.AsName)
		for _, g := range n.Generators {
			Walk(a, v, g.Target)
			Walk(a, v, g.Iter)
			WalkAll(a, v, g.Ifs)
		}
		Walk(a, v, n.Element)
		Walk(a, v, n.Key)
		WalkAll(a, v, n.Body)

	case *FormattedValue:
		Walk(a, v, n.Expr)
		Walk(a, v, n.FormatSpec)
	case *JoinedStr:
		WalkAll(a, v, n.Parts)
	case *ChainStore:
		Walk(a, v, n.Value)
		WalkAll(a, v, n.Targets)
	case *CompElement:
		Walk(a, v, n.Key)
		Walk(a, v, n.Value)
	case *ExceptionMatch:
		Walk(a, v, n.Type)

	case *KwNamesMap:
		for _, e := range n.Entries {
			Walk(a, v, e.Value)
		}
	}
}
