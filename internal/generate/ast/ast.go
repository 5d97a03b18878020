package ast

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/symbol"

	"github.com/dave/dst"
)

// Param is a named and typed parameter of a proxied function.
type Param struct {
	Name string
	Type CType
}

// Return the input variable names of the given parameters: `_input0`, ...,
// `_inputN-1`, in declaration order.
func InputIdents(params []Param) []string {
	idents := make([]string, len(params))
	for i := range params {
		idents[i] = fmt.Sprintf(configs.InputVarIdentFormat, i)
	}
	return idents
}

// Return the statements binding a local copy of every parameter so that the
// before hook can rewrite them:
//
//	_input0 := a
//	_input1 := b
func NewInputAssignments(params []Param) []dst.Stmt {
	inputs := InputIdents(params)
	stmts := make([]dst.Stmt, len(params))
	for i, param := range params {
		stmts[i] = &dst.AssignStmt{
			Lhs: []dst.Expr{dst.NewIdent(inputs[i])},
			Tok: token.DEFINE,
			Rhs: []dst.Expr{dst.NewIdent(param.Name)},
		}
	}
	return stmts
}

// Return the before hook call `hook(&_input0, &_input1, ...)`, or nil when
// no hook is configured.
func NewBeforeHookStmt(hook string, inputs []string) dst.Stmt {
	if hook == "" {
		return nil
	}
	args := make([]dst.Expr, len(inputs))
	for i, input := range inputs {
		args[i] = newIdentAddressExpr(dst.NewIdent(input))
	}
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun:  dst.NewIdent(hook),
			Args: args,
		},
	}
}

// Return the after hook call `hook(_output)`, or nil when no hook is
// configured. Functions without result call the hook without argument.
func NewAfterHookStmt(hook string, hasResult bool) dst.Stmt {
	if hook == "" {
		return nil
	}
	args := []dst.Expr{}
	if hasResult {
		args = append(args, dst.NewIdent(configs.OutputVarIdent))
	}
	return &dst.ExprStmt{
		X: &dst.CallExpr{
			Fun:  dst.NewIdent(hook),
			Args: args,
		},
	}
}

// Return the forwarding call `_output := <internal>(_input0, ...)`.
func NewForwardStmt(internal string, inputs []string, hasResult bool) dst.Stmt {
	call := newCallExpr(dst.NewIdent(internal), inputs)
	if !hasResult {
		return &dst.ExprStmt{X: call}
	}
	return &dst.AssignStmt{
		Lhs: []dst.Expr{dst.NewIdent(configs.OutputVarIdent)},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{call},
	}
}

func NewReturnStmt(hasResult bool) dst.Stmt {
	if !hasResult {
		return nil
	}
	return &dst.ReturnStmt{Results: []dst.Expr{dst.NewIdent(configs.OutputVarIdent)}}
}

// Return the Go function type `func(<params>) <result>` using cgo types. A
// nil result is a void function.
func NewFuncType(params []Param, result *CType) *dst.FuncType {
	fields := make([]*dst.Field, len(params))
	for i, param := range params {
		fields[i] = &dst.Field{
			Names: []*dst.Ident{dst.NewIdent(param.Name)},
			Type:  param.Type.GoExpr(),
		}
	}
	results := &dst.FieldList{}
	if result != nil {
		results.List = []*dst.Field{{Type: result.GoExpr()}}
	}
	return &dst.FuncType{
		Func:    true,
		Params:  &dst.FieldList{List: fields},
		Results: results,
	}
}

// Return the exported trampoline declaration. The `//export` directive makes
// cgo emit the symbol under the function's own name.
func NewExportFuncDecl(name string, params []Param, result *CType, body []dst.Stmt) *dst.FuncDecl {
	return &dst.FuncDecl{
		Decs: dst.FuncDeclDecorations{
			NodeDecs: dst.NodeDecs{
				Before: dst.EmptyLine,
				Start:  dst.Decorations{fmt.Sprintf(configs.ExportDirectiveFormat, name)},
			},
		},
		Name: dst.NewIdent(name),
		Type: NewFuncType(params, result),
		Body: &dst.BlockStmt{List: body},
	}
}

// Return the internal call wrapper around the foreign entry point:
//
//	func foo_internal(a C.int) C.int {
//		return C.proxygen_forward_foo(a)
//	}
func NewInternalFuncDecl(names symbol.Names, lib string, params []Param, result *CType) *dst.FuncDecl {
	args := make([]string, len(params))
	for i, param := range params {
		args[i] = param.Name
	}
	call := newCallExpr(newCgoSelector(names.Forward), args)

	var stmt dst.Stmt = &dst.ExprStmt{X: call}
	if result != nil {
		stmt = &dst.ReturnStmt{Results: []dst.Expr{call}}
	}

	doc := fmt.Sprintf(configs.InternalDocFormat, names.Internal, names.External, lib)
	return &dst.FuncDecl{
		Decs: dst.FuncDeclDecorations{
			NodeDecs: dst.NodeDecs{
				Before: dst.EmptyLine,
				Start:  dst.Decorations(strings.Split(doc, "\n")),
			},
		},
		Name: dst.NewIdent(names.Internal),
		Type: NewFuncType(params, result),
		Body: &dst.BlockStmt{List: []dst.Stmt{stmt}},
	}
}

// Return the C forwarder of the foreign entry point. It resolves the function
// by its external name in the target library on first call:
//
//	static inline int proxygen_forward_foo(int p0) {
//		static void *slot;
//		return ((int (*)(int))proxygen_lookup(&slot, "bar", "foo_external"))(p0);
//	}
//
// Its parameters are positional so no Go name ever reaches the C side.
func NewForwardShim(names symbol.Names, lib string, params []Param, result *CType) string {
	ret := "void"
	if result != nil {
		ret = result.Decl
	}
	types := make([]string, len(params))
	decls := make([]string, len(params))
	args := make([]string, len(params))
	for i, param := range params {
		arg := fmt.Sprintf(configs.ForwardArgFormat, i)
		types[i] = param.Type.Decl
		decls[i] = param.Type.Decl + " " + arg
		args[i] = arg
	}
	typeList, declList := strings.Join(types, ", "), strings.Join(decls, ", ")
	if len(params) == 0 {
		typeList, declList = "void", "void"
	}

	call := fmt.Sprintf("((%s (*)(%s))proxygen_lookup(&slot, \"%s\", \"%s\"))(%s);",
		ret, typeList, lib, names.External, strings.Join(args, ", "))
	if result != nil {
		call = "return " + call
	}
	return strings.Join([]string{
		fmt.Sprintf("static inline %s %s(%s) {", ret, names.Forward, declList),
		"\tstatic void *slot;",
		"\t" + call,
		"}",
	}, "\n")
}

// Return the `import "C"` declaration carrying the given cgo preamble lines.
// The preamble comment must stick to the import for cgo to see it.
func NewCgoImportDecl(preamble []string) *dst.GenDecl {
	comment := "/*\n" + strings.Join(preamble, "\n") + "\n*/"
	decl := NewImportDecl(configs.CgoPackageName)
	decl.Decs.Before = dst.EmptyLine
	decl.Decs.Start = dst.Decorations{comment, "\n"}
	return decl
}

func NewImportDecl(path string) *dst.GenDecl {
	return &dst.GenDecl{
		Tok: token.IMPORT,
		Specs: []dst.Spec{
			&dst.ImportSpec{
				Path: &dst.BasicLit{Kind: token.STRING, Value: strconv.Quote(path)},
			},
		},
	}
}

func newCallExpr(fun dst.Expr, args []string) *dst.CallExpr {
	exprs := make([]dst.Expr, len(args))
	for i, arg := range args {
		exprs[i] = dst.NewIdent(arg)
	}
	return &dst.CallExpr{Fun: fun, Args: exprs}
}

func newIdentAddressExpr(ident *dst.Ident) dst.Expr {
	return &dst.UnaryExpr{
		Op: token.AND,
		X:  ident,
	}
}
