package generate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ListenOcean/goProxyTool/internal/generate/trampoline"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const zlibSchema = `
package: main
headers: [zlib.h]
functions:
  - name: compress
    lib: z
    before: beforeCompress
    after: afterCompress
    params:
      - {name: dest, type: "unsigned char*"}
      - {name: destLen, type: "unsigned long*"}
      - {name: source, type: "const unsigned char*"}
      - {name: sourceLen, type: "unsigned long"}
    returns: int
  - name: zlibVersion
    lib: z
    returns: "const char*"
`

func TestDecodeSchema(t *testing.T) {
	schema, err := DecodeSchema([]byte(zlibSchema))
	require.NoError(t, err)
	assert.Equal(t, "main", schema.Package)
	assert.Equal(t, []string{"zlib.h"}, schema.Headers)
	require.Len(t, schema.Functions, 2)
	assert.Equal(t, "beforeCompress", schema.Functions[0].Before)
	assert.Len(t, schema.Functions[0].Params, 4)

	decls, err := Declarations(schema)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, trampoline.ProxyConfig{Lib: "z", Before: "beforeCompress", After: "afterCompress"}, decls[0].Config)
	assert.Equal(t, "const char*", decls[1].Signature.Returns)
	assert.Empty(t, decls[1].Signature.Params)
}

func TestDecodeSchemaDefaultsPackage(t *testing.T) {
	schema, err := DecodeSchema([]byte("functions: []\n"))
	require.NoError(t, err)
	assert.Equal(t, "main", schema.Package)
}

func TestDecodeSchemaErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		doc string
		err error
	}{
		"unknown function key": {"functions:\n  - name: f\n    lib: z\n    around: hook\n", ErrUnknownKey},
		"unknown top key":      {"pkg: main\n", ErrUnknownKey},
		"unknown param key":    {"functions:\n  - name: f\n    params:\n      - {name: a, ctype: int}\n", ErrUnknownKey},
		"empty":                {"", ErrInvalidSchema},
		"not yaml":             {"functions: [", ErrInvalidSchema},
		"bad package":          {"package: my-pkg\n", ErrInvalidSchema},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSchema([]byte(tc.doc))
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestDeclarationsRejectsDuplicates(t *testing.T) {
	schema, err := DecodeSchema([]byte("functions:\n  - {name: f, lib: z}\n  - {name: f, lib: y}\n"))
	require.NoError(t, err)
	_, err = Declarations(schema)
	assert.True(t, errors.Is(err, ErrDuplicateFunc))
}

func TestGenerateAll(t *testing.T) {
	var decls []trampoline.Declaration
	for i := 0; i < 50; i++ {
		decls = append(decls, trampoline.Declaration{
			Signature: trampoline.Signature{
				Name:    "fn" + strings.Repeat("x", i),
				Params:  []trampoline.Param{{Name: "a", Type: "int"}},
				Returns: "int",
			},
			Config: trampoline.ProxyConfig{Lib: "m", Before: "pre"},
		})
	}

	trampolines, err := GenerateAll(decls, 4)
	require.NoError(t, err)
	require.Len(t, trampolines, len(decls))
	for i, tr := range trampolines {
		assert.Equal(t, decls[i].Signature.Name+"_external", tr.Names.External)
	}

	empty, err := GenerateAll(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGenerateAllReportsEveryRejectedDeclaration(t *testing.T) {
	decls := []trampoline.Declaration{
		{Signature: trampoline.Signature{Name: "ok"}, Config: trampoline.ProxyConfig{Lib: "m"}},
		{Signature: trampoline.Signature{Name: "nolib"}},
		{Signature: trampoline.Signature{Name: "bad-name"}, Config: trampoline.ProxyConfig{Lib: "m"}},
	}
	trampolines, err := GenerateAll(decls, 0)
	assert.Nil(t, trampolines)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.True(t, errors.Is(errs[0], trampoline.ErrMissingLib))
	assert.Contains(t, errs[0].Error(), "nolib")
	assert.True(t, errors.Is(errs[1], trampoline.ErrInvalidIdent))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "proxy.yaml")
	output := filepath.Join(dir, "proxy_gen.go")
	require.NoError(t, os.WriteFile(schemaPath, []byte(zlibSchema), 0o644))
	opts := Options{Schema: schemaPath, Output: output, Workers: 2}

	written, err := Run(opts)
	require.NoError(t, err)
	assert.True(t, written)

	src, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(src), "//export compress")
	assert.Contains(t, string(src), "//export zlibVersion")
	assert.Contains(t, string(src), "#include <zlib.h>")
	assert.Contains(t, string(src), "beforeCompress(&_input0, &_input1, &_input2, &_input3)")

	// A second run finds the same content and leaves the file alone.
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(output, past, past))
	written, err = Run(opts)
	require.NoError(t, err)
	assert.False(t, written)
	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past))
}

func TestRunWritesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "proxy.yaml")
	output := filepath.Join(dir, "proxy_gen.go")
	require.NoError(t, os.WriteFile(schemaPath, []byte("functions:\n  - {name: f, returns: int}\n"), 0o644))

	_, err := Run(Options{Schema: schemaPath, Output: output})
	assert.True(t, errors.Is(err, trampoline.ErrMissingLib))
	assert.NoFileExists(t, output)

	_, err = Run(Options{Schema: filepath.Join(dir, "missing.yaml"), Output: output})
	assert.Error(t, err)
}

func TestGenerateCmd(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "proxy.yaml")
	output := filepath.Join(dir, "out.go")
	require.NoError(t, os.WriteFile(schemaPath, []byte(zlibSchema), 0o644))

	cmd := NewGenerateCmd()
	cmd.SetArgs([]string{"-f", schemaPath, "-o", output, "-w", "1"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, output)
}
