package ast

// FormattedValue represents a single f-string interpolation site, i.e. the
// "{expr!r:spec}" part of an f-string, built by FORMAT_VALUE. Conversion is
// 's', 'r', 'a' or 0 for none; FormatSpec is Nil when no ":spec" was given.
type FormattedValue struct {
	Start, End int
	Expr       Handle
	Conversion byte
	FormatSpec Handle
}

func (*FormattedValue) Kind() Kind { return KindFormattedValue }

// JoinedStr represents an f-string as a whole, the concatenation of
// literal Object(string) parts and FormattedValue parts, built by
// BUILD_STRING. By design, nested interpolated strings (an
// f-string inside a FormattedValue's FormatSpec or Expr resolving to
// another JoinedStr) are reconstructed as an opaque single level; the
// engine does not attempt to recover further nesting.
type JoinedStr struct {
	Start, End int
	Parts      []Handle
}

func (*JoinedStr) Kind() Kind { return KindJoinedStr }

// ChainStore replaces a run of consecutive Store statements that share an
// identical Value, recovered by the chain-store merge pass from the
// "a = b = expr" idiom: the pass folds the run into one ChainStore
// holding every target in source order, in the block Body the Stores
// occupied.
type ChainStore struct {
	Start, End int
	Value      Handle
	Targets    []Handle
}

func (*ChainStore) Kind() Kind { return KindChainStore }

// CompElement is a transient marker left in a comprehension function's
// body by LIST_APPEND/SET_ADD/MAP_ADD: it records the element (and, for a
// dict comprehension, the key) the loop body would have fed into the
// accumulating container. Comprehension recovery consumes it while
// folding the synthetic function into a Block with BlockComprehension
// variant; it never survives into the final tree.
type CompElement struct {
	Start, End int
	Key        Handle
	Value      Handle
}

func (*CompElement) Kind() Kind { return KindCompElement }
