package ast

// KeywordArg is one "name=value" argument of a Call.
type KeywordArg struct {
	Name  string
	Value Handle
}

// Call represents a function call. StarArgs/StarStarArgs hold the handles
// of a CALL_FUNCTION_EX-style "*args"/"**kwargs" expansion, if present;
// Nil when absent.
type Call struct {
	Start, End   int
	Callee       Handle
	Positional   []Handle
	Keyword      []KeywordArg
	StarArgs     Handle
	StarStarArgs Handle
}

func (*Call) Kind() Kind { return KindCall }

// Function represents a MAKE_FUNCTION result: a nested code record's
// reconstructed body together with the default-value and closure machinery
// the call site bound to it.
type Function struct {
	Start, End  int
	Name        string
	Body        Handle // the nested code record's root Block (BlockFunction)
	Defaults    []Handle
	KwDefaults  []KeywordArg
	Annotations []KeywordArg
	Closure     []Handle // Name nodes marked IsCell, in Freevars order
}

func (*Function) Kind() Kind { return KindFunction }

// Class represents the result of the LOAD_BUILD_CLASS/CALL speculative
// reduction: the synthesized zero-arg call to the class body's code
// object, the base-class tuple, and the class's name.
type Class struct {
	Start, End int
	Body       Handle // a Call wrapping the class body Function
	Bases      Handle // a Tuple, possibly empty
	Name       string
}

func (*Class) Kind() Kind { return KindClass }

// Lambda represents a Function whose code record's Name is "<lambda>",
// kept inline as an expression rather than hoisted to a Store+decorator
// pattern (see the Calls handler catalogue).
type Lambda struct {
	Start, End int
	Params     []string
	Defaults   []Handle
	Body       Handle // the single expression the lambda evaluates
}

func (*Lambda) Kind() Kind { return KindLambda }
