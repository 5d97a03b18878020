package trampoline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/generate/ast"

	"github.com/dave/dst"
)

func unnamedParamIdent(p int) string {
	return fmt.Sprintf(configs.UnnamedParamIdentFormat, p)
}

// NewFile assembles the trampolines into one cgo source file of package
// `pkg`. Declarations keep the order of `trampolines`, link flags are sorted,
// so the same input always gives the same file. The preamble carries the
// shared resolver followed by one forwarder per trampoline.
func NewFile(pkg string, headers []string, trampolines []*Trampoline) *dst.File {
	usesUnsafe := false
	libSet := make(map[string]struct{})
	for _, t := range trampolines {
		libSet[t.Lib] = struct{}{}
		usesUnsafe = usesUnsafe || t.UsesUnsafe
	}
	libs := make([]string, 0, len(libSet))
	for lib := range libSet {
		libs = append(libs, lib)
	}
	sort.Strings(libs)

	preamble := []string{configs.CFlagsLine, configs.DlLinkFlagLine}
	for _, lib := range libs {
		// Each library stays needed even though nothing links against its
		// symbols, so the forwarders find it loaded.
		preamble = append(preamble, fmt.Sprintf(configs.LinkFlagFormat, lib))
	}
	preamble = append(preamble, includes(headers)...)
	if len(trampolines) > 0 {
		preamble = append(preamble, "", configs.ResolverSource)
	}
	for _, t := range trampolines {
		preamble = append(preamble, "", t.Forward)
	}

	var decls []dst.Decl
	if usesUnsafe {
		decls = append(decls, ast.NewImportDecl(configs.UnsafePackageName))
	}
	decls = append(decls, ast.NewCgoImportDecl(preamble))
	for _, t := range trampolines {
		decls = append(decls, t.Internal, t.Export)
	}
	return ast.NewFile(pkg, decls)
}

// Render prints the file NewFile assembles.
func Render(pkg string, headers []string, trampolines []*Trampoline) ([]byte, error) {
	return ast.Render(NewFile(pkg, headers, trampolines))
}

// Return the #include lines of the default headers followed by the given
// ones, without duplicates. Headers already quoted or bracketed are kept.
func includes(headers []string) []string {
	var lines []string
	seen := make(map[string]struct{})
	for _, header := range append(append([]string{}, configs.DefaultHeaders...), headers...) {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		if _, exists := seen[header]; exists {
			continue
		}
		seen[header] = struct{}{}
		if strings.HasPrefix(header, "<") || strings.HasPrefix(header, `"`) {
			lines = append(lines, "#include "+header)
		} else {
			lines = append(lines, fmt.Sprintf(configs.IncludeFormat, header))
		}
	}
	return lines
}
