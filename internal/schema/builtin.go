package schema

import (
	"embed"
	"fmt"
	"path"
)

//go:embed defs/*.yaml
var builtinDefs embed.FS

// builtinFiles fixes the declaration order of the embedded types.
var builtinFiles = []string{
	"user.yaml",
	"product.yaml",
	"blogpost.yaml",
	"message.yaml",
}

// BuiltinTypes parses the embedded definitions.  Each call returns fresh
// values, so callers may hand them to NewRegistry with different options.
func BuiltinTypes() ([]*RecordType, error) {
	out := make([]*RecordType, 0, len(builtinFiles))
	for _, name := range builtinFiles {
		p := path.Join("defs", name)
		raw, err := builtinDefs.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read embedded schema %s: %w", p, err)
		}
		rt, err := ParseRecordType(raw, p)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

// Builtin returns a registry holding User, Product, BlogPost, and Message.
func Builtin(opts ...Option) (*Registry, error) {
	types, err := BuiltinTypes()
	if err != nil {
		return nil, err
	}
	return NewRegistry(types, opts...)
}

// Load returns the built-in types followed by every definition found in dir.
// An empty dir means built-ins only.
func Load(dir string, opts ...Option) (*Registry, error) {
	types, err := BuiltinTypes()
	if err != nil {
		return nil, err
	}
	if dir != "" {
		extra, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		types = append(types, extra...)
	}
	return NewRegistry(types, opts...)
}
