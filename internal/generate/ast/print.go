package ast

import (
	"bytes"
	"io"

	"github.com/ListenOcean/goProxyTool/configs"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
)

// Return a file of package `pkg` holding the given declarations, headed by the
// generated code notice.
func NewFile(pkg string, decls []dst.Decl) *dst.File {
	return &dst.File{
		Decs: dst.FileDecorations{
			NodeDecs: dst.NodeDecs{
				Start: dst.Decorations{configs.GeneratedHeader, "\n"},
			},
		},
		Name:  dst.NewIdent(pkg),
		Decls: decls,
	}
}

func WriteFile(file *dst.File, w io.Writer) error {
	return decorator.Fprint(w, file)
}

func Render(file *dst.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFile(file, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
