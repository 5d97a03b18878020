package generate

import (
	"bytes"
	"go/token"
	"io"
	"os"
	"strings"

	"github.com/ListenOcean/goProxyTool/configs"
	"github.com/ListenOcean/goProxyTool/internal/generate/trampoline"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidSchema = errors.New("invalid schema")
	ErrUnknownKey    = errors.New("unsupported property")
	ErrDuplicateFunc = errors.New("function declared twice")
)

// ReadSchema reads and decodes the schema file at `path`.
func ReadSchema(path string) (*configs.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema `%s`", path)
	}
	schema, err := DecodeSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema `%s`", path)
	}
	return schema, nil
}

// DecodeSchema decodes a YAML schema. Keys that are not part of the schema
// are rejected rather than ignored.
func DecodeSchema(data []byte) (*configs.Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var schema configs.Schema
	if err := dec.Decode(&schema); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(ErrInvalidSchema, "empty document")
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && isUnknownKeyError(typeErr) {
			return nil, errors.Wrapf(ErrUnknownKey, "%s", strings.Join(typeErr.Errors, "; "))
		}
		return nil, errors.Wrapf(ErrInvalidSchema, "%s", err)
	}

	if schema.Package == "" {
		schema.Package = configs.DefaultPackage
	}
	if !token.IsIdentifier(schema.Package) {
		return nil, errors.Wrapf(ErrInvalidSchema, "package name `%s`", schema.Package)
	}
	return &schema, nil
}

func isUnknownKeyError(err *yaml.TypeError) bool {
	for _, msg := range err.Errors {
		if strings.Contains(msg, "not found in type") {
			return true
		}
	}
	return false
}

// Declarations splits the schema functions into their signature and proxy
// configuration.
func Declarations(schema *configs.Schema) ([]trampoline.Declaration, error) {
	decls := make([]trampoline.Declaration, 0, len(schema.Functions))
	seen := make(map[string]struct{}, len(schema.Functions))
	for _, fn := range schema.Functions {
		if _, exists := seen[fn.Name]; exists {
			return nil, errors.Wrapf(ErrDuplicateFunc, "`%s`", fn.Name)
		}
		seen[fn.Name] = struct{}{}

		params := make([]trampoline.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = trampoline.Param{Name: p.Name, Type: p.Type, Receiver: p.Receiver}
		}
		decls = append(decls, trampoline.Declaration{
			Signature: trampoline.Signature{
				Name:    fn.Name,
				Params:  params,
				Returns: fn.Returns,
			},
			Config: trampoline.ProxyConfig{
				Lib:    fn.Lib,
				Before: fn.Before,
				After:  fn.After,
			},
		})
	}
	return decls, nil
}
