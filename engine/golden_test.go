package engine

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/opendis/pydec/ast"
	"github.com/opendis/pydec/internal/asmfixture"
	"github.com/opendis/pydec/internal/filetest"
	"github.com/stretchr/testify/require"
)

var testUpdateGoldenTests = flag.Bool("test.update-golden-tests", false, "If set, replace expected golden decompile dumps with actual results.")

// TestDecompileGolden drives every testdata/in/*.asm fixture through
// Decompile and diffs its ast.Dump against the matching testdata/out
// golden file — the same SourceFiles/DiffOutput harness the parser and
// resolver packages this engine was grounded on use for their own
// golden-file tests.
func TestDecompileGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".asm") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			code, ver, err := asmfixture.Asm(string(src))
			require.NoError(t, err)

			arena, root, err := Decompile(code, ver, Options{})
			require.NoError(t, err)

			filetest.DiffOutput(t, fi, ast.Dump(arena, root), resultDir, testUpdateGoldenTests)
		})
	}
}
