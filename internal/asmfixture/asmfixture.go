// Package asmfixture implements a human-readable/writable form of a code
// record, the same role a pseudo-assembler plays for raw bytecode: hand-authoring a fixture as raw instruction bytes is
// unreadable and error-prone, so tests (and, until a real container reader
// exists, the CLI) build one from text instead.
//
// The format looks like this (section order is fixed, every section but
// "code:" is optional):
//
//	module: <module>           # Code.Name / Code.QualName
//	version: 3.8.0             # bytecode-format version this program targets
//	argcount: 0
//	kwonlyargcount: 0
//	posonlyargcount: 0
//	stackdepth: 4
//	flags: 0
//
//	names:
//	  foo
//	  bar
//
//	varnames:
//	  x
//
//	cellvars:
//
//	freevars:
//
//	consts:
//	  int 1
//	  str "hello"
//	  none
//
//	code:
//	  load_const 0
//	  store_name 0
//	loop:
//	  load_fast 0
//	  pop_jump_if_false done
//	  jump_absolute loop
//	done:
//	  return_value
//
// A bare identifier followed by ":" inside the code section defines a
// label at the address of the next instruction; a jump instruction may
// name a label instead of a numeric offset, and Asm resolves it once every
// instruction's address is known.
//
// Nested code records (a function or class body embedded in another
// record's constant pool) and tuple constants are not supported: author
// those cases as a literal coderecord.Code in Go instead. EXTENDED_ARG
// sequences are not emitted either; every operand must fit the format's
// base instruction width (one byte for the wide >= 3.6 encoding, sixteen
// bits for the legacy variable-width encoding). None of this matters for
// hand-written fixtures exercising one opcode family at a time, which is
// the only thing this package is for.
package asmfixture

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/opcode"
	"github.com/opendis/pydec/pyver"
)

// Asm parses src and returns the code record it describes together with
// the bytecode-format version named by its "version:" header.
func Asm(src string) (*coderecord.Code, pyver.Version, error) {
	p := &parser{}
	if err := p.run(src); err != nil {
		return nil, pyver.Version{}, err
	}
	return p.assemble()
}

type constSpec struct {
	tag  string
	text string
}

type instrSpec struct {
	line int
	mnem string
	arg  string // raw operand token: numeric literal or label name; empty if none
}

type parser struct {
	header map[string]string

	names    []string
	varnames []string
	cellvars []string
	freevars []string
	consts   []constSpec
	instrs   []instrSpec
	labels   map[string]int // label name -> index into instrs of the instruction it precedes
}

const (
	secNone = iota
	secNames
	secVarnames
	secCellvars
	secFreevars
	secConsts
	secCode
)

func (p *parser) run(src string) error {
	p.header = map[string]string{}
	p.labels = map[string]int{}

	sec := secNone
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "names:":
			sec = secNames
			continue
		case "varnames:":
			sec = secVarnames
			continue
		case "cellvars:":
			sec = secCellvars
			continue
		case "freevars:":
			sec = secFreevars
			continue
		case "consts:":
			sec = secConsts
			continue
		case "code:":
			sec = secCode
			continue
		}

		switch sec {
		case secNone:
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				return fmt.Errorf("asmfixture: line %d: expected \"key: value\", got %q", lineNo, line)
			}
			p.header[strings.TrimSpace(k)] = strings.TrimSpace(v)
		case secNames:
			p.names = append(p.names, line)
		case secVarnames:
			p.varnames = append(p.varnames, line)
		case secCellvars:
			p.cellvars = append(p.cellvars, line)
		case secFreevars:
			p.freevars = append(p.freevars, line)
		case secConsts:
			tag, text, _ := strings.Cut(line, " ")
			p.consts = append(p.consts, constSpec{tag: tag, text: strings.TrimSpace(text)})
		case secCode:
			if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
				label := strings.TrimSuffix(line, ":")
				p.labels[label] = len(p.instrs)
				continue
			}
			mnem, arg, _ := strings.Cut(line, " ")
			p.instrs = append(p.instrs, instrSpec{line: lineNo, mnem: strings.ToLower(mnem), arg: strings.TrimSpace(arg)})
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("asmfixture: %w", err)
	}
	if len(p.instrs) == 0 {
		return fmt.Errorf("asmfixture: no code: section")
	}
	return nil
}

func (p *parser) assemble() (*coderecord.Code, pyver.Version, error) {
	ver, err := parseVersion(p.header["version"])
	if err != nil {
		return nil, pyver.Version{}, err
	}

	consts, err := p.buildConsts()
	if err != nil {
		return nil, pyver.Version{}, err
	}

	wide := ver.AtLeast(3, 6)
	table := opcode.NewTable(ver)
	rev := make(map[opcode.Opcode]byte, len(table))
	for raw, op := range table {
		rev[op] = raw
	}

	// First pass: lay out instructions at their base (non-extended) width to
	// learn every address, so label references can be resolved before the
	// second pass emits bytes.
	addrs := make([]int, len(p.instrs)+1)
	pos := 0
	for i, ins := range p.instrs {
		addrs[i] = pos
		op, ok := opcode.ByName(ins.mnem)
		if !ok {
			return nil, pyver.Version{}, fmt.Errorf("asmfixture: line %d: unknown mnemonic %q", ins.line, ins.mnem)
		}
		pos += instrWidth(op, wide)
	}
	addrs[len(p.instrs)] = pos

	var buf []byte
	for i, ins := range p.instrs {
		op, _ := opcode.ByName(ins.mnem)
		raw, ok := rev[op]
		if !ok {
			return nil, pyver.Version{}, fmt.Errorf("asmfixture: line %d: opcode %q has no raw encoding for version %s", ins.line, ins.mnem, ver)
		}

		var arg uint32
		if op.HasOperand() {
			n, err := p.resolveOperand(ins, addrs, i, op)
			if err != nil {
				return nil, pyver.Version{}, err
			}
			arg = n
		}

		b, err := encode(raw, op, arg, wide)
		if err != nil {
			return nil, pyver.Version{}, fmt.Errorf("asmfixture: line %d: %w", ins.line, err)
		}
		buf = append(buf, b...)
	}

	code := &coderecord.Code{
		Instructions: buf,
		Consts:       consts,
		Names:        p.names,
		Varnames:     p.varnames,
		Cellvars:     p.cellvars,
		Freevars:     p.freevars,
		Name:         p.header["module"],
		QualName:     p.header["module"],
	}
	if v, ok := p.header["stackdepth"]; ok {
		code.StackDepth, _ = strconv.Atoi(v)
	}
	if v, ok := p.header["argcount"]; ok {
		code.ArgCount, _ = strconv.Atoi(v)
	}
	if v, ok := p.header["kwonlyargcount"]; ok {
		code.KwOnlyArgCount, _ = strconv.Atoi(v)
	}
	if v, ok := p.header["posonlyargcount"]; ok {
		code.PosOnlyArgCount, _ = strconv.Atoi(v)
	}
	if v, ok := p.header["flags"]; ok {
		n, _ := strconv.ParseUint(v, 0, 32)
		code.Flags = uint32(n)
	}
	return code, ver, nil
}

// instrWidth returns an instruction's byte width assuming its operand (if
// any) fits the format's base width, i.e. without any EXTENDED_ARG prefix.
func instrWidth(op opcode.Opcode, wide bool) int {
	if !op.HasOperand() && op != opcode.EXTENDED_ARG {
		if wide {
			return 2
		}
		return 1
	}
	if wide {
		return 2
	}
	return 3
}

func encode(raw byte, op opcode.Opcode, arg uint32, wide bool) ([]byte, error) {
	if !op.HasOperand() && op != opcode.EXTENDED_ARG {
		if wide {
			return []byte{raw, 0}, nil
		}
		return []byte{raw}, nil
	}
	if wide {
		if arg > 0xff {
			return nil, fmt.Errorf("operand %d does not fit a single byte (EXTENDED_ARG is not supported by this assembler)", arg)
		}
		return []byte{raw, byte(arg)}, nil
	}
	if arg > 0xffff {
		return nil, fmt.Errorf("operand %d does not fit sixteen bits (EXTENDED_ARG is not supported by this assembler)", arg)
	}
	return []byte{raw, byte(arg), byte(arg >> 8)}, nil
}

// resolveOperand turns an instruction's raw operand token into the
// integer CPython would have encoded: a label's resolved address for a
// jump, or the literal integer otherwise.
func (p *parser) resolveOperand(ins instrSpec, addrs []int, idx int, op opcode.Opcode) (uint32, error) {
	switch op.Class() {
	case opcode.ClassJumpRelative, opcode.ClassJumpAbsolute:
		target, ok := p.labels[ins.arg]
		if !ok {
			n, err := strconv.Atoi(ins.arg)
			if err != nil {
				return 0, fmt.Errorf("asmfixture: line %d: unknown label %q", ins.line, ins.arg)
			}
			return uint32(n), nil
		}
		addr := addrs[target]
		if op.Class() == opcode.ClassJumpRelative {
			return uint32(addr - addrs[idx+1]), nil
		}
		return uint32(addr), nil
	default:
		n, err := strconv.ParseUint(ins.arg, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("asmfixture: line %d: bad operand %q: %w", ins.line, ins.arg, err)
		}
		return uint32(n), nil
	}
}

func (p *parser) buildConsts() ([]coderecord.Const, error) {
	out := make([]coderecord.Const, 0, len(p.consts))
	for _, c := range p.consts {
		switch c.tag {
		case "none":
			out = append(out, coderecord.None)
		case "bool":
			out = append(out, coderecord.ConstBool(c.text == "true"))
		case "int":
			n, err := strconv.ParseInt(c.text, 0, 64)
			if err != nil {
				out = append(out, coderecord.ConstInt{Raw: c.text, Big: true})
				continue
			}
			out = append(out, coderecord.ConstInt{Value: n, Raw: c.text})
		case "float":
			f, err := strconv.ParseFloat(c.text, 64)
			if err != nil {
				return nil, fmt.Errorf("asmfixture: bad float constant %q: %w", c.text, err)
			}
			out = append(out, coderecord.ConstFloat{Value: f, Raw: c.text})
		case "str":
			s, err := strconv.Unquote(c.text)
			if err != nil {
				return nil, fmt.Errorf("asmfixture: bad str constant %q: %w", c.text, err)
			}
			out = append(out, coderecord.ConstStr(s))
		case "bytes":
			s, err := strconv.Unquote(c.text)
			if err != nil {
				return nil, fmt.Errorf("asmfixture: bad bytes constant %q: %w", c.text, err)
			}
			out = append(out, coderecord.ConstBytes(s))
		default:
			return nil, fmt.Errorf("asmfixture: unknown const tag %q", c.tag)
		}
	}
	return out, nil
}

func parseVersion(s string) (pyver.Version, error) {
	if s == "" {
		return pyver.Version{}, fmt.Errorf("asmfixture: missing version: header")
	}
	parts := strings.SplitN(s, ".", 3)
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return pyver.Version{}, fmt.Errorf("asmfixture: bad version %q: %w", s, err)
		}
		nums[i] = n
	}
	return pyver.New(nums[0], nums[1], nums[2]), nil
}
