package ast

import "fmt"

// Describe renders a short, single-line label for the node at h, in the
// same spirit as a Node.Format method — a debug label, not source
// text. The real pretty-printer (out of scope here) is what turns a tree
// into valid source; Describe exists so the engine and its CLI wrapper can
// produce a readable structural dump without depending on that printer.
func Describe(a *Arena, h Handle) string {
	if !h.Valid() {
		return "<nil>"
	}
	switch n := a.At(h).(type) {
	case *Object:
		return fmt.Sprintf("object %s", n.Value)
	case *Name:
		return fmt.Sprintf("name %s", n.Ident)
	case *LoadBuildClass:
		return "load_build_class"
	case *Tuple:
		return fmt.Sprintf("tuple[%d]", len(n.Elems))
	case *List:
		return fmt.Sprintf("list[%d]", len(n.Elems))
	case *Set:
		return fmt.Sprintf("set[%d]", len(n.Elems))
	case *Map:
		return fmt.Sprintf("map[%d]", len(n.Entries))
	case *ConstMap:
		return fmt.Sprintf("const_map[%d]", len(n.Values))
	case *Slice:
		return fmt.Sprintf("slice(variant=%d)", n.Variant)
	case *Binary:
		return fmt.Sprintf("binary %s", n.Op)
	case *Unary:
		return fmt.Sprintf("unary %s", n.Op)
	case *Compare:
		return fmt.Sprintf("compare[%d links]", len(n.Links))
	case *Subscript:
		return "subscript"
	case *Ternary:
		return "ternary"
	case *Call:
		return fmt.Sprintf("call(pos=%d,kw=%d)", len(n.Positional), len(n.Keyword))
	case *Function:
		return fmt.Sprintf("function %s", n.Name)
	case *Class:
		return fmt.Sprintf("class %s", n.Name)
	case *Lambda:
		return "lambda"
	case *Store:
		return "store"
	case *Delete:
		return "delete"
	case *Return:
		return "return"
	case *Raise:
		return "raise"
	case *Import:
		return fmt.Sprintf("import %s", n.Module)
	case *Keyword:
		return n.Op.String()
	case *Print:
		return "print"
	case *AnnotatedAssign:
		return "annotated_assign"
	case *Block:
		return fmt.Sprintf("block %s [%d stmts]", n.Variant, len(n.Body))
	case *FormattedValue:
		return "formatted_value"
	case *JoinedStr:
		return fmt.Sprintf("joined_str[%d]", len(n.Parts))
	case *ChainStore:
		return fmt.Sprintf("chain_store[%d targets]", len(n.Targets))
	case *CompElement:
		return "comp_element"
	case *ExceptionMatch:
		return "exception_match"
	case *KwNamesMap:
		return fmt.Sprintf("kwnames_map[%d]", len(n.Entries))
	default:
		return fmt.Sprintf("%T", n)
	}
}

// Dump writes an indented structural tree, rooted at h, to the returned
// string — a debugging aid, not the real source-text emitter.
func Dump(a *Arena, h Handle) string {
	var buf []byte
	dumpNode(a, h, 0, &buf)
	return string(buf)
}

func dumpNode(a *Arena, h Handle, depth int, buf *[]byte) {
	if !h.Valid() {
		return
	}
	for i := 0; i < depth; i++ {
		*buf = append(*buf, ' ', ' ')
	}
	*buf = append(*buf, Describe(a, h)...)
	*buf = append(*buf, '\n')

	switch n := a.At(h).(type) {
	case *Block:
		for _, c := range n.Body {
			dumpNode(a, c, depth+1, buf)
		}
	case *Function:
		dumpNode(a, n.Body, depth+1, buf)
	}
}
