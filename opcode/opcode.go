// Package opcode decodes (opcode, operand) pairs from a code record's
// instruction buffer, normalizing the numeric encoding used by a given
// bytecode-format version into a single, version-independent canonical
// enumeration. Populating the version tables from the real runtime's
// published opcode lists is an external collaborator's job; this
// package owns the canonical enumeration itself and the decoding logic that
// consumes whatever table it is handed.
package opcode

import "fmt"

// Opcode is the canonical, version-independent instruction identifier the
// dispatcher normalizes every version's numeric opcode into.
type Opcode uint16

//nolint:revive
const (
	ILLEGAL Opcode = iota

	// no-ops and bookkeeping
	NOP
	EXTENDED_ARG
	RESUME        // >= 3.11, no-op for reconstruction purposes
	PRECALL       // >= 3.11, no-op
	PUSH_NULL     // >= 3.11, inserts a sentinel consumed by the next CALL

	// value-producing atoms
	LOAD_CONST
	LOAD_NAME
	LOAD_GLOBAL
	LOAD_FAST
	LOAD_DEREF
	LOAD_CLASSDEREF
	LOAD_CLOSURE
	LOAD_BUILD_CLASS
	LOAD_ATTR

	// stores / deletes
	STORE_NAME
	STORE_FAST
	STORE_GLOBAL
	STORE_DEREF
	STORE_ATTR
	STORE_SUBSCR
	STORE_MAP
	DELETE_NAME
	DELETE_FAST
	DELETE_GLOBAL
	DELETE_DEREF
	DELETE_ATTR
	DELETE_SUBSCR

	// arithmetic / logic
	BINARY_ADD
	BINARY_SUBTRACT
	BINARY_MULTIPLY
	BINARY_DIVIDE // python 2 true/classic division
	BINARY_TRUE_DIVIDE
	BINARY_FLOOR_DIVIDE
	BINARY_MODULO
	BINARY_POWER
	BINARY_MATRIX_MULTIPLY
	BINARY_LSHIFT
	BINARY_RSHIFT
	BINARY_AND
	BINARY_OR
	BINARY_XOR
	BINARY_OP // >= 3.11, unified binary/inplace op with an operand index
	INPLACE_ADD
	INPLACE_SUBTRACT
	INPLACE_MULTIPLY
	INPLACE_TRUE_DIVIDE
	INPLACE_FLOOR_DIVIDE
	INPLACE_MODULO
	INPLACE_POWER
	INPLACE_MATRIX_MULTIPLY
	INPLACE_LSHIFT
	INPLACE_RSHIFT
	INPLACE_AND
	INPLACE_OR
	INPLACE_XOR
	UNARY_POSITIVE
	UNARY_NEGATIVE
	UNARY_NOT
	UNARY_INVERT
	COMPARE_OP

	// subscription / slicing
	BINARY_SUBSCR
	BUILD_SLICE

	// container construction
	BUILD_LIST
	BUILD_TUPLE
	BUILD_SET
	BUILD_MAP
	BUILD_CONST_KEY_MAP
	BUILD_STRING
	FORMAT_VALUE
	LIST_APPEND // comprehension accumulation
	SET_ADD
	MAP_ADD

	// calls
	CALL_FUNCTION
	CALL_FUNCTION_KW
	CALL_FUNCTION_EX
	CALL // >= 3.11
	KW_NAMES

	// control flow
	JUMP_FORWARD
	JUMP_ABSOLUTE
	POP_JUMP_IF_FALSE
	POP_JUMP_IF_TRUE
	JUMP_IF_FALSE_OR_POP
	JUMP_IF_TRUE_OR_POP
	JUMP_IF_FALSE // pre-pop variant (python 1.x/2.x)
	JUMP_IF_TRUE  // pre-pop variant (python 1.x/2.x)
	POP_BLOCK
	POP_TOP
	DUP_TOP
	ROT_TWO
	ROT_THREE
	SETUP_LOOP
	FOR_ITER
	GET_ITER
	BREAK_LOOP
	CONTINUE_LOOP
	SETUP_EXCEPT
	SETUP_FINALLY
	SETUP_WITH
	END_FINALLY
	WITH_CLEANUP
	RAISE_VARARGS
	RETURN_VALUE

	// scope construction
	MAKE_FUNCTION

	// imports / attrs
	IMPORT_NAME
	IMPORT_FROM
	IMPORT_STAR

	// annotations
	SETUP_ANNOTATIONS
	STORE_ANNOTATION

	// python 2 print statement
	PRINT_ITEM
	PRINT_ITEM_TO
	PRINT_NEWLINE
	PRINT_NEWLINE_TO

	maxOpcode
)

var opcodeNames = [...]string{
	ILLEGAL:                 "illegal",
	NOP:                     "nop",
	EXTENDED_ARG:            "extended_arg",
	RESUME:                  "resume",
	PRECALL:                 "precall",
	PUSH_NULL:               "push_null",
	LOAD_CONST:              "load_const",
	LOAD_NAME:               "load_name",
	LOAD_GLOBAL:             "load_global",
	LOAD_FAST:               "load_fast",
	LOAD_DEREF:              "load_deref",
	LOAD_CLASSDEREF:         "load_classderef",
	LOAD_CLOSURE:            "load_closure",
	LOAD_BUILD_CLASS:        "load_build_class",
	LOAD_ATTR:               "load_attr",
	STORE_NAME:              "store_name",
	STORE_FAST:              "store_fast",
	STORE_GLOBAL:            "store_global",
	STORE_DEREF:             "store_deref",
	STORE_ATTR:              "store_attr",
	STORE_SUBSCR:            "store_subscr",
	STORE_MAP:               "store_map",
	DELETE_NAME:             "delete_name",
	DELETE_FAST:             "delete_fast",
	DELETE_GLOBAL:           "delete_global",
	DELETE_DEREF:            "delete_deref",
	DELETE_ATTR:             "delete_attr",
	DELETE_SUBSCR:           "delete_subscr",
	BINARY_ADD:              "binary_add",
	BINARY_SUBTRACT:         "binary_subtract",
	BINARY_MULTIPLY:         "binary_multiply",
	BINARY_DIVIDE:           "binary_divide",
	BINARY_TRUE_DIVIDE:      "binary_true_divide",
	BINARY_FLOOR_DIVIDE:     "binary_floor_divide",
	BINARY_MODULO:           "binary_modulo",
	BINARY_POWER:            "binary_power",
	BINARY_MATRIX_MULTIPLY:  "binary_matrix_multiply",
	BINARY_LSHIFT:           "binary_lshift",
	BINARY_RSHIFT:           "binary_rshift",
	BINARY_AND:              "binary_and",
	BINARY_OR:               "binary_or",
	BINARY_XOR:              "binary_xor",
	BINARY_OP:               "binary_op",
	INPLACE_ADD:             "inplace_add",
	INPLACE_SUBTRACT:        "inplace_subtract",
	INPLACE_MULTIPLY:        "inplace_multiply",
	INPLACE_TRUE_DIVIDE:     "inplace_true_divide",
	INPLACE_FLOOR_DIVIDE:    "inplace_floor_divide",
	INPLACE_MODULO:          "inplace_modulo",
	INPLACE_POWER:           "inplace_power",
	INPLACE_MATRIX_MULTIPLY: "inplace_matrix_multiply",
	INPLACE_LSHIFT:          "inplace_lshift",
	INPLACE_RSHIFT:          "inplace_rshift",
	INPLACE_AND:             "inplace_and",
	INPLACE_OR:              "inplace_or",
	INPLACE_XOR:             "inplace_xor",
	UNARY_POSITIVE:          "unary_positive",
	UNARY_NEGATIVE:          "unary_negative",
	UNARY_NOT:               "unary_not",
	UNARY_INVERT:            "unary_invert",
	COMPARE_OP:              "compare_op",
	BINARY_SUBSCR:           "binary_subscr",
	BUILD_SLICE:             "build_slice",
	BUILD_LIST:              "build_list",
	BUILD_TUPLE:             "build_tuple",
	BUILD_SET:               "build_set",
	BUILD_MAP:               "build_map",
	BUILD_CONST_KEY_MAP:     "build_const_key_map",
	BUILD_STRING:            "build_string",
	FORMAT_VALUE:            "format_value",
	LIST_APPEND:             "list_append",
	SET_ADD:                 "set_add",
	MAP_ADD:                 "map_add",
	CALL_FUNCTION:           "call_function",
	CALL_FUNCTION_KW:        "call_function_kw",
	CALL_FUNCTION_EX:        "call_function_ex",
	CALL:                    "call",
	KW_NAMES:                "kw_names",
	JUMP_FORWARD:            "jump_forward",
	JUMP_ABSOLUTE:           "jump_absolute",
	POP_JUMP_IF_FALSE:       "pop_jump_if_false",
	POP_JUMP_IF_TRUE:        "pop_jump_if_true",
	JUMP_IF_FALSE_OR_POP:    "jump_if_false_or_pop",
	JUMP_IF_TRUE_OR_POP:     "jump_if_true_or_pop",
	JUMP_IF_FALSE:           "jump_if_false",
	JUMP_IF_TRUE:            "jump_if_true",
	POP_BLOCK:               "pop_block",
	POP_TOP:                 "pop_top",
	DUP_TOP:                 "dup_top",
	ROT_TWO:                 "rot_two",
	ROT_THREE:               "rot_three",
	SETUP_LOOP:              "setup_loop",
	FOR_ITER:                "for_iter",
	GET_ITER:                "get_iter",
	BREAK_LOOP:              "break_loop",
	CONTINUE_LOOP:           "continue_loop",
	SETUP_EXCEPT:            "setup_except",
	SETUP_FINALLY:           "setup_finally",
	SETUP_WITH:              "setup_with",
	END_FINALLY:             "end_finally",
	WITH_CLEANUP:            "with_cleanup",
	RAISE_VARARGS:           "raise_varargs",
	RETURN_VALUE:            "return_value",
	MAKE_FUNCTION:           "make_function",
	IMPORT_NAME:             "import_name",
	IMPORT_FROM:             "import_from",
	IMPORT_STAR:             "import_star",
	SETUP_ANNOTATIONS:       "setup_annotations",
	STORE_ANNOTATION:        "store_annotation",
	PRINT_ITEM:              "print_item",
	PRINT_ITEM_TO:           "print_item_to",
	PRINT_NEWLINE:           "print_newline",
	PRINT_NEWLINE_TO:        "print_newline_to",
}

// byName is the inverse of opcodeNames, built once at package init, the way
// a reverse mnemonic lookup is built for a pseudo-assembler.
var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

// ByName looks up the canonical Opcode for a mnemonic as spelled by
// opcodeNames (lowercase, e.g. "load_const"), for assemblers and other
// tooling that write opcode names rather than Opcode values.
func ByName(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

func (op Opcode) String() string {
	if op < Opcode(len(opcodeNames)) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal op (%d)", op)
}
