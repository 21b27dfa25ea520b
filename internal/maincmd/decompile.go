package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/mainer"
	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/coderecord"
	"github.com/opendis/pydec/engine"
	"github.com/opendis/pydec/internal/asmfixture"
	"github.com/opendis/pydec/pyver"
)

// ContainerReader turns a container file's raw bytes into the code record
// and bytecode-format version the engine needs. Reading the real on-disk
// container format (a marshalled code object plus its format-version
// header) is an external collaborator's job; ContainerReader is a seam so
// this command doesn't hardcode which one it talks to.
type ContainerReader func(b []byte) (*coderecord.Code, pyver.Version, error)

// Reader is the ContainerReader this command uses. It defaults to a stand-in
// that only understands the textual fixture format asmfixture.Asm parses —
// the same format the engine's own tests build their inputs from — since no
// reader for the real container format is implemented here. Replacing it
// with one is the only change needed to point this command at real files.
var Reader ContainerReader = func(b []byte) (*coderecord.Code, pyver.Version, error) {
	return asmfixture.Asm(string(b))
}

func (c *Cmd) Decompile(ctx context.Context, stdio mainer.Stdio, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	code, ver, err := Reader(b)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	opts := engine.Options{}
	if c.Trace {
		opts.Trace = stdio.Stderr
	}

	arena, root, err := engine.Decompile(code, ver, opts)
	if root.Valid() {
		io.WriteString(stdio.Stdout, ast.Dump(arena, root))
	}
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}
