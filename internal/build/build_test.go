package build

import (
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoBinary(t *testing.T) {
	t.Setenv("PROXYGEN_GO_BIN", "/opt/go/bin/go")
	goPath, err := GoBinary()
	require.NoError(t, err)
	assert.Equal(t, "/opt/go/bin/go", goPath)
}

func TestExecuteCmd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()

	stdout, _, err := ExecuteCmd(dir, "/bin/sh", []string{"-c", "pwd; echo $PROXYGEN_TEST"}, []string{"PROXYGEN_TEST=value"})
	require.NoError(t, err)
	assert.Contains(t, string(stdout), "value")

	_, stderr, err := ExecuteCmd(dir, "/bin/sh", []string{"-c", "echo oops >&2; exit 3"}, nil)
	assert.Error(t, err)
	assert.Contains(t, string(stderr), "oops")
}

// The pipeline runs a fake go command that writes a library holding the
// forwarder's lookup name next to the exported symbol, then checks the lookup
// name was truncated.
func TestBuildEntry(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	schema := filepath.Join(dir, "proxy.yaml")
	require.NoError(t, os.WriteFile(schema, []byte(`
functions:
  - name: compress
    lib: z
    params:
      - {name: level, type: int}
    returns: int
`), 0o644))

	fakeGo := filepath.Join(dir, "go")
	require.NoError(t, os.WriteFile(fakeGo, []byte("#!/bin/sh\n"+
		"grep -q 'C.proxygen_forward_compress' proxy_gen.go || exit 1\n"+
		"grep -q '\"compress_external\"' proxy_gen.go || exit 1\n"+
		"printf 'ELF\\000compress_external\\000compress\\000' > \"$4\"\n"), 0o755))
	t.Setenv("PROXYGEN_GO_BIN", fakeGo)

	library := filepath.Join(dir, "libproxy.so")
	opts := Options{PackageDir: dir, Library: library}
	opts.Schema = schema
	require.NoError(t, BuildEntry(opts))

	assert.FileExists(t, filepath.Join(dir, "proxy_gen.go"))
	got, err := os.ReadFile(library)
	require.NoError(t, err)
	assert.Equal(t, []byte("ELF\x00compress\x00external\x00compress\x00"), got)
}

const stubLibrary = `static int seen;

int scale(int x) {
	seen = x;
	return x * 10;
}

int scale_seen(void) {
	return seen;
}
`

const stubSchema = `
functions:
  - name: scale
    params:
      - {name: x, type: int}
    returns: int
    lib: stub
    before: doubleInput
    after: negate
`

const stubHooks = `package main

import "C"

func doubleInput(x *C.int) {
	*x *= 2
}

func negate(result C.int) C.int {
	return -result
}

func main() {}
`

const stubHost = `#include <dlfcn.h>
#include <stdio.h>

int main(int argc, char **argv) {
	void *proxy = dlopen(argv[1], RTLD_NOW);
	int (*scale)(int);
	int (*seen)(void);

	if (argc < 2 || proxy == NULL) {
		fprintf(stderr, "dlopen: %s\n", dlerror());
		return 1;
	}
	scale = (int (*)(int))dlsym(proxy, "scale");
	seen = (int (*)(void))dlsym(proxy, "scale_seen");
	if (scale == NULL || seen == NULL) {
		fprintf(stderr, "dlsym: %s\n", dlerror());
		return 1;
	}
	printf("result=%d ", scale(3));
	printf("seen=%d\n", seen());
	return 0;
}
`

func cCompiler(t *testing.T) string {
	t.Helper()
	for _, name := range []string{os.Getenv("CC"), "cc", "gcc", "clang"} {
		if name == "" {
			continue
		}
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no C compiler found")
	return ""
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// A proxy built from a schema forwards every call to the real library. The
// before hook rewrites the argument the library sees, the after hook cannot
// change the returned value.
func TestBuildEntryForwardsToLibrary(t *testing.T) {
	if testing.Short() {
		t.Skip("builds shared libraries")
	}
	if runtime.GOOS != "linux" {
		t.Skip("needs the ELF dynamic loader")
	}
	goPath, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not found")
	}
	cc := cCompiler(t)

	dir := t.TempDir()
	writeFile(t, dir, "stub.c", stubLibrary)
	_, _, err = ExecuteCmd(dir, cc, []string{"-shared", "-fPIC", "-Wl,-soname,libstub.so", "-o", "libstub.so", "stub.c"}, nil)
	require.NoError(t, err)

	pkg := filepath.Join(dir, "proxy")
	require.NoError(t, os.Mkdir(pkg, 0o755))
	writeFile(t, pkg, "go.mod", "module proxy\n\ngo 1.18\n")
	writeFile(t, pkg, "hooks.go", stubHooks)

	t.Setenv("PROXYGEN_GO_BIN", goPath)
	t.Setenv("CGO_LDFLAGS", "-L"+dir)
	library := filepath.Join(dir, "libproxy.so")
	opts := Options{PackageDir: pkg, Library: library}
	opts.Schema = writeFile(t, dir, "proxy.yaml", stubSchema)
	require.NoError(t, BuildEntry(opts))

	// The real library stays needed and the proxied name is only defined,
	// never imported, so it cannot bind back to the proxy itself.
	lib, err := elf.Open(library)
	require.NoError(t, err)
	defer lib.Close()
	needed, err := lib.ImportedLibraries()
	require.NoError(t, err)
	assert.Contains(t, needed, "libstub.so")
	symbols, err := lib.DynamicSymbols()
	require.NoError(t, err)
	exported := false
	for _, sym := range symbols {
		switch sym.Name {
		case "scale":
			assert.NotEqual(t, elf.SHN_UNDEF, sym.Section)
			exported = true
		case "scale_external":
			assert.Fail(t, "lookup name left in the dynamic symbols")
		}
	}
	assert.True(t, exported)

	writeFile(t, dir, "host.c", stubHost)
	_, _, err = ExecuteCmd(dir, cc, []string{"-o", "host", "host.c", "-ldl"}, nil)
	require.NoError(t, err)
	stdout, _, err := ExecuteCmd(dir, filepath.Join(dir, "host"), []string{library}, []string{"LD_LIBRARY_PATH=" + dir})
	require.NoError(t, err)
	assert.Equal(t, "result=60 seen=6\n", string(stdout))
}
