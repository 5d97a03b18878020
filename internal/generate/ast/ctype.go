package ast

import (
	"regexp"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"

	"github.com/dave/dst"
	"github.com/pkg/errors"
)

var ErrUnsupportedType = errors.New("unsupported C type")

// CType is a C type as written in the schema, split into the parts needed to
// emit both the C forwarder and the matching cgo type.
type CType struct {
	// Decl is the type as it appears in C.
	Decl string
	// Base is the unqualified base type, eg. `unsigned char` for `const unsigned char *`.
	Base     string
	Pointers int
}

// cgo names of the C scalar types.
var cgoScalarTypes = map[string]string{
	"char":                   "char",
	"signed char":            "schar",
	"unsigned char":          "uchar",
	"short":                  "short",
	"short int":              "short",
	"signed short":           "short",
	"unsigned short":         "ushort",
	"unsigned short int":     "ushort",
	"int":                    "int",
	"signed":                 "int",
	"signed int":             "int",
	"unsigned":               "uint",
	"unsigned int":           "uint",
	"long":                   "long",
	"long int":               "long",
	"signed long":            "long",
	"unsigned long":          "ulong",
	"unsigned long int":      "ulong",
	"long long":              "longlong",
	"long long int":          "longlong",
	"signed long long":       "longlong",
	"unsigned long long":     "ulonglong",
	"unsigned long long int": "ulonglong",
	"float":                  "float",
	"double":                 "double",
}

var (
	typedefNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	taggedTypeRe  = regexp.MustCompile(`^(struct|union|enum) ([A-Za-z_][A-Za-z0-9_]*)$`)
)

func isQualifier(word string) bool {
	return word == "const" || word == "volatile" || word == "restrict"
}

// ParseCType parses the schema spelling of a C type.
func ParseCType(s string) (CType, error) {
	words := strings.Fields(strings.ReplaceAll(s, "*", " * "))
	if len(words) == 0 {
		return CType{}, errors.Wrap(ErrUnsupportedType, "empty type")
	}
	if strings.ContainsAny(s, "[]()") || strings.Contains(s, "...") {
		return CType{}, errors.Wrapf(ErrUnsupportedType, "`%s`", s)
	}

	t := CType{Decl: strings.Join(strings.Fields(s), " ")}
	var base []string
	for _, word := range words {
		switch {
		case word == "*":
			t.Pointers++
		case isQualifier(word):
		case t.Pointers > 0:
			// Only qualifiers may follow a star.
			return CType{}, errors.Wrapf(ErrUnsupportedType, "`%s`", s)
		default:
			base = append(base, word)
		}
	}
	t.Base = strings.Join(base, " ")
	if t.Base == "" {
		return CType{}, errors.Wrapf(ErrUnsupportedType, "`%s` has no base type", s)
	}
	if _, err := t.cgoBaseName(); err != nil {
		return CType{}, err
	}
	return t, nil
}

func (t CType) IsVoid() bool {
	return t.Base == "void" && t.Pointers == 0
}

func (t CType) UsesUnsafe() bool {
	return t.Base == "void" && t.Pointers > 0
}

func (t CType) cgoBaseName() (string, error) {
	if name, ok := cgoScalarTypes[t.Base]; ok {
		return name, nil
	}
	if m := taggedTypeRe.FindStringSubmatch(t.Base); m != nil {
		return m[1] + "_" + m[2], nil
	}
	if typedefNameRe.MatchString(t.Base) {
		// void, size_t, int32_t and any other typedef keep their C name.
		return t.Base, nil
	}
	return "", errors.Wrapf(ErrUnsupportedType, "`%s`", t.Base)
}

// GoExpr returns the cgo type expression of the type: `char *` gives
// `*C.char`, `void *` gives `unsafe.Pointer`.
func (t CType) GoExpr() dst.Expr {
	var expr dst.Expr
	pointers := t.Pointers
	if t.UsesUnsafe() {
		expr = &dst.SelectorExpr{X: dst.NewIdent(configs.UnsafePackageName), Sel: dst.NewIdent("Pointer")}
		pointers--
	} else {
		name, _ := t.cgoBaseName()
		expr = newCgoSelector(name)
	}
	for i := 0; i < pointers; i++ {
		expr = &dst.StarExpr{X: expr}
	}
	return expr
}

func newCgoSelector(name string) *dst.SelectorExpr {
	return &dst.SelectorExpr{X: dst.NewIdent(configs.CgoPackageName), Sel: dst.NewIdent(name)}
}
