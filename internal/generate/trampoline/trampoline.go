// Package trampoline turns a proxied function declaration into the Go source
// of its forwarding stub.
//
// Given the declaration
//
//	int foo(int a, char *b)   lib: bar   before: pre   after: post
//
// the generated code is
//
//	static inline int proxygen_forward_foo(int p0, char* p1) {   // cgo preamble, -lbar
//		static void *slot;
//		return ((int (*)(int, char*))proxygen_lookup(&slot, "bar", "foo_external"))(p0, p1);
//	}
//
//	func foo_internal(a C.int, b *C.char) C.int {
//		return C.proxygen_forward_foo(a, b)
//	}
//
//	//export foo
//	func foo(a C.int, b *C.char) C.int {
//		_input0 := a
//		_input1 := b
//		pre(&_input0, &_input1)
//		_output := foo_internal(_input0, _input1)
//		post(_output)
//		return _output
//	}
//
// The before hook may rewrite the arguments through the pointers it gets. The
// after hook only observes the result: its own results are dropped and the
// forwarded call's result is returned as is.
//
// The forwarder finds `foo` in libbar under the name `foo_external`. That name
// only resolves once the export rewriter truncated it in the built library,
// and the lookup is bound to libbar so it can never land on the proxy's own
// `foo`.
package trampoline

import (
	"go/token"
	"regexp"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/generate/ast"
	"github.com/ListenOcean/goProxyTool/internal/symbol"

	"github.com/dave/dst"
	"github.com/pkg/errors"
)

// Configuration errors. Generation is refused when one of them is returned.
var (
	ErrMissingLib      = errors.New("library name must be provided")
	ErrInvalidLib      = errors.New("invalid library name")
	ErrInvalidIdent    = errors.New("invalid identifier")
	ErrReceiver        = errors.New("only the first parameter can be a receiver")
	ErrDuplicateParam  = errors.New("duplicate parameter name")
	ErrShadowedIdent   = errors.New("parameter shadows an identifier of the trampoline")
	ErrUnsupportedType = ast.ErrUnsupportedType
)

var libNameRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.+\-]*$`)

type Param struct {
	Name     string
	Type     string
	Receiver bool
}

// Signature is the declared signature of a foreign function. A Returns value
// of "" or "void" declares a function without result.
type Signature struct {
	Name    string
	Params  []Param
	Returns string
}

// ProxyConfig tells where the real function lives and which hooks surround
// the forwarded call. An empty hook name means no hook.
type ProxyConfig struct {
	Lib    string
	Before string
	After  string
}

type Declaration struct {
	Signature Signature
	Config    ProxyConfig
}

// Trampoline is the generated code of one proxied function.
type Trampoline struct {
	Names symbol.Names
	Lib   string
	// C forwarder to the foreign entry point, for the cgo preamble.
	Forward    string
	UsesUnsafe bool
	Internal   *dst.FuncDecl
	Export     *dst.FuncDecl
}

func (c ProxyConfig) Validate() error {
	if c.Lib == "" {
		return ErrMissingLib
	}
	if !libNameRe.MatchString(c.Lib) {
		return errors.Wrapf(ErrInvalidLib, "`%s`", c.Lib)
	}
	for _, hook := range []string{c.Before, c.After} {
		if hook != "" && !token.IsIdentifier(hook) {
			return errors.Wrapf(ErrInvalidIdent, "hook `%s`", hook)
		}
	}
	return nil
}

// Generate returns the trampoline of the function declared by `sig`. The
// output only depends on the arguments.
func Generate(sig Signature, cfg ProxyConfig) (*Trampoline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, result, err := sig.resolve()
	if err != nil {
		return nil, errors.Wrapf(err, "function `%s`", sig.Name)
	}

	names := symbol.Derive(sig.Name)
	if err := checkShadowing(params, names, cfg); err != nil {
		return nil, errors.Wrapf(err, "function `%s`", sig.Name)
	}
	inputs := ast.InputIdents(params)
	hasResult := result != nil

	body := ast.NewInputAssignments(params)
	body = appendStmt(body, ast.NewBeforeHookStmt(cfg.Before, inputs))
	body = appendStmt(body, ast.NewForwardStmt(names.Internal, inputs, hasResult))
	body = appendStmt(body, ast.NewAfterHookStmt(cfg.After, hasResult))
	body = appendStmt(body, ast.NewReturnStmt(hasResult))

	usesUnsafe := hasResult && result.UsesUnsafe()
	for _, param := range params {
		usesUnsafe = usesUnsafe || param.Type.UsesUnsafe()
	}

	return &Trampoline{
		Names:      names,
		Lib:        cfg.Lib,
		Forward:    ast.NewForwardShim(names, cfg.Lib, params, result),
		UsesUnsafe: usesUnsafe,
		Internal:   ast.NewInternalFuncDecl(names, cfg.Lib, params, result),
		Export:     ast.NewExportFuncDecl(sig.Name, params, result, body),
	}, nil
}

func appendStmt(stmts []dst.Stmt, stmt dst.Stmt) []dst.Stmt {
	if stmt == nil {
		return stmts
	}
	return append(stmts, stmt)
}

// resolve checks the signature and returns its typed parameters and result.
// A nil result is a void function.
func (s Signature) resolve() (params []ast.Param, result *ast.CType, err error) {
	if err := checkIdent(s.Name); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{}, len(s.Params))
	for i, p := range s.Params {
		name := p.Name
		if p.Receiver {
			if i != 0 {
				return nil, nil, errors.Wrapf(ErrReceiver, "parameter %d", i)
			}
			if name == "" {
				name = configs.ReceiverParamIdent
			}
		}
		if name == "" || name == "_" {
			// Unnamed parameters still have to be forwarded.
			name = unnamedParamIdent(i)
		}
		if err := checkIdent(name); err != nil {
			return nil, nil, errors.Wrapf(err, "parameter %d", i)
		}
		if _, exists := seen[name]; exists {
			return nil, nil, errors.Wrapf(ErrDuplicateParam, "`%s`", name)
		}
		seen[name] = struct{}{}

		typ, err := ast.ParseCType(p.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parameter `%s`", name)
		}
		if typ.IsVoid() {
			return nil, nil, errors.Wrapf(ErrUnsupportedType, "parameter `%s` has type void", name)
		}
		params = append(params, ast.Param{Name: name, Type: typ})
	}

	if s.Returns == "" || strings.TrimSpace(s.Returns) == "void" {
		return params, nil, nil
	}
	typ, err := ast.ParseCType(s.Returns)
	if err != nil {
		return nil, nil, errors.Wrap(err, "result")
	}
	return params, &typ, nil
}

// C keywords that are valid Go identifiers. cgo copies the exported names
// and parameter names into a C header, so none of them may be used.
var cKeywords = map[string]struct{}{
	"auto": {}, "char": {}, "do": {}, "double": {}, "enum": {}, "extern": {},
	"float": {}, "inline": {}, "int": {}, "long": {}, "register": {},
	"restrict": {}, "short": {}, "signed": {}, "sizeof": {}, "static": {},
	"typedef": {}, "union": {}, "unsigned": {}, "void": {}, "volatile": {},
	"while": {}, "asm": {}, "typeof": {}, "bool": {}, "true": {}, "false": {},
	"alignas": {}, "alignof": {}, "nullptr": {}, "static_assert": {}, "thread_local": {},
	"_Alignas": {}, "_Alignof": {}, "_Atomic": {}, "_Bool": {}, "_Complex": {},
	"_Generic": {}, "_Imaginary": {}, "_Noreturn": {}, "_Static_assert": {}, "_Thread_local": {},
}

// checkIdent rejects what is not a Go identifier, C keywords, as well as
// names that would shadow the generated code's own identifiers.
func checkIdent(name string) error {
	if !token.IsIdentifier(name) || name == "_" {
		return errors.Wrapf(ErrInvalidIdent, "`%s`", name)
	}
	if _, ok := cKeywords[name]; ok {
		return errors.Wrapf(ErrInvalidIdent, "`%s` is a C keyword", name)
	}
	if name == configs.CgoPackageName || name == configs.UnsafePackageName ||
		name == configs.OutputVarIdent || strings.HasPrefix(name, configs.InputVarIdentPrefix) {
		return errors.Wrapf(ErrInvalidIdent, "`%s` is reserved", name)
	}
	return nil
}

// checkShadowing rejects parameters named after a function the trampoline
// body calls.
func checkShadowing(params []ast.Param, names symbol.Names, cfg ProxyConfig) error {
	for _, param := range params {
		switch param.Name {
		case names.Internal, cfg.Before, cfg.After:
			return errors.Wrapf(ErrShadowedIdent, "`%s`", param.Name)
		}
	}
	return nil
}
