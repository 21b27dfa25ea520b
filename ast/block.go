package ast

// ComprehensionGenerator is one "for target in iter if cond..." clause of a
// comprehension, recovered by the comprehension-recovery pass.
type ComprehensionGenerator struct {
	Target Handle
	Iter   Handle
	Ifs    []Handle
}

// Block is the single node type backing every entry of the engine's block
// stack: MAIN, FUNCTION, CLASS, IF/ELIF/ELSE, TRY/EXCEPT/FINALLY,
// WHILE, FOR, WITH, CONTAINER and COMPREHENSION. Only the fields relevant to
// Kind are populated; a compiler's internal block representation
// likewise tends to carry fields that only some block shapes use.
type Block struct {
	Start int // instruction offset this block was opened at
	End   int // instruction offset this block actually closed at; set only on a code record's root block, 0 elsewhere

	// EndOffset is the byte position at which this block must close; it must
	// be monotonically >= the program counter
	// while the block is open.
	EndOffset int

	Variant BlockKind
	Body    []Handle
	Inited  bool

	// IF / ELIF / WHILE
	Test Handle

	// FOR
	Iter   Handle
	Target Handle

	// TRY / EXCEPT
	ExceptType Handle
	ExceptName string

	// WITH
	ContextExpr Handle
	AsName      Handle

	// MAIN / FUNCTION / CLASS — Name is set on the root block of every
	// decompiled code record; Docstring is hoisted only on these three kinds.
	Name      string
	Docstring string // hoisted docstring text; empty if none was found

	// CONTAINER — a speculative collection under construction (old-style
	// BUILD_MAP-then-STORE_MAP idiom, or similar incremental builders).
	ContainerKind Kind

	// COMPREHENSION — populated by the comprehension-recovery pass; until
	// then a comprehension's code record is decompiled as an ordinary
	// FUNCTION block.
	Generators []ComprehensionGenerator
	Element    Handle
	Key        Handle // dict comprehension's key expression; Nil otherwise
}

func (*Block) Kind() Kind { return KindBlock }

// BlockKindOf is a convenience accessor so callers do not need to type-assert
// to *Block merely to read which control construct it represents.
func BlockKindOf(n Node) (BlockKind, bool) {
	b, ok := n.(*Block)
	if !ok {
		return 0, false
	}
	return b.Variant, true
}
