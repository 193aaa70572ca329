// internal/schema/definition.go
//
// docschema – Schema subsystem: YAML record-type definitions.
//
// Context
//   Every document collection is described by one YAML file.  The file names
//   the record type, its optional collection override, and an ordered list of
//   fields with kind, requiredness, default, bounds, and documentation.  The
//   four built-in types live under defs/ and are embedded into the binary;
//   operators may add more through a definitions directory.
//
// Workflow
//   •  Structs mirror the YAML schema: RecordType → FieldSpec.
//   •  ParseRecordType decodes one document and enforces structural rules.
//   •  LoadDir walks a directory and parses every “*.yaml” in name order.
//   •  Defaults are coerced once at load so validation can copy them blindly.
//
// Notes
//   Two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Kind is the value type a field accepts.
type Kind string

const (
	KindString     Kind = "string"
	KindInteger    Kind = "integer"
	KindFloat      Kind = "float"
	KindBoolean    Kind = "boolean"
	KindEmail      Kind = "email"
	KindStringList Kind = "string_list"
)

// Numeric reports whether min/max bounds apply to k.
func (k Kind) Numeric() bool { return k == KindInteger || k == KindFloat }

func (k Kind) known() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindBoolean, KindEmail, KindStringList:
		return true
	}
	return false
}

// RecordType is one named schema.  Fields are kept in declaration order, which
// is also the validation order and the key order of a marshalled Record.
type RecordType struct {
	Name        string      `yaml:"name"        json:"name"`
	Collection  string      `yaml:"collection"  json:"collection"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Fields      []FieldSpec `yaml:"fields"      json:"fields"`
}

// FieldSpec describes one field of a RecordType.
type FieldSpec struct {
	Name        string   `yaml:"name"        json:"name"`
	Type        Kind     `yaml:"type"        json:"type"`
	Required    bool     `yaml:"required"    json:"required"`
	Nullable    bool     `yaml:"nullable"    json:"nullable"`
	Default     any      `yaml:"default"     json:"default"`
	Min         *float64 `yaml:"min"         json:"min,omitempty"`
	Max         *float64 `yaml:"max"         json:"max,omitempty"`
	Unique      bool     `yaml:"unique"      json:"unique,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
}

// Field returns the FieldSpec named name.
func (rt *RecordType) Field(name string) (*FieldSpec, bool) {
	for i := range rt.Fields {
		if rt.Fields[i].Name == name {
			return &rt.Fields[i], true
		}
	}
	return nil, false
}

// clone deep-copies rt so the registry and its callers never share fields,
// bounds, or list defaults.
func (rt *RecordType) clone() *RecordType {
	c := *rt
	c.Fields = make([]FieldSpec, len(rt.Fields))
	for i, f := range rt.Fields {
		if f.Min != nil {
			m := *f.Min
			f.Min = &m
		}
		if f.Max != nil {
			m := *f.Max
			f.Max = &m
		}
		f.Default = cloneValue(f.Default)
		c.Fields[i] = f
	}
	return &c
}

// UniqueFields lists the names of fields flagged unique, in declaration order.
func (rt *RecordType) UniqueFields() []string {
	var out []string
	for _, f := range rt.Fields {
		if f.Unique {
			out = append(out, f.Name)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

var (
	typeNamePattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	fieldNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	collectionPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// reservedCollections are path segments the API serves itself under /api.
// A collection with one of these names could never be reached.
var reservedCollections = map[string]struct{}{
	"schemas": {},
}

// ValidCollection reports whether name is safe to use as a storage identifier.
func ValidCollection(name string) bool { return collectionPattern.MatchString(name) }

// ParseRecordType decodes one YAML document.  src names the origin in error
// messages.  Unknown YAML keys are rejected so typos surface at startup.
func ParseRecordType(raw []byte, src string) (*RecordType, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var rt RecordType
	if err := dec.Decode(&rt); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if rt.Collection == "" {
		rt.Collection = strings.ToLower(rt.Name)
	}
	if err := checkRecordType(&rt, src); err != nil {
		return nil, err
	}
	return &rt, nil
}

// LoadDir parses every “*.yaml” directly under dir.  A missing directory is
// not an error; it simply contributes nothing.
func LoadDir(dir string) ([]*RecordType, error) {
	return loadFS(os.DirFS(dir), ".", dir)
}

func loadFS(fsys fs.FS, dir, label string) ([]*RecordType, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema dir %s: %w", label, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*RecordType
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", e.Name(), err)
		}
		rt, err := ParseRecordType(raw, filepath.Join(label, e.Name()))
		if err != nil {
			return nil, err // fail fast so issues surface loudly.
		}
		out = append(out, rt)
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Structural checks
// -----------------------------------------------------------------------------

// checkRecordType enforces rules that YAML tags cannot express.  It also
// normalises defaults into their stored Go types.
func checkRecordType(rt *RecordType, src string) error {
	if !typeNamePattern.MatchString(rt.Name) {
		return fmt.Errorf("schema %s: invalid or missing 'name' %q", src, rt.Name)
	}
	if !collectionPattern.MatchString(rt.Collection) {
		return fmt.Errorf("schema %s: invalid collection %q", src, rt.Collection)
	}
	if _, reserved := reservedCollections[rt.Collection]; reserved {
		return fmt.Errorf("schema %s: %w %q", src, ErrReservedCollection, rt.Collection)
	}
	if len(rt.Fields) == 0 {
		return fmt.Errorf("schema %s: must declare 'fields'", src)
	}

	seen := make(map[string]struct{}, len(rt.Fields))
	for i := range rt.Fields {
		f := &rt.Fields[i]
		if err := checkField(f, src); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field name '%s'", src, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func checkField(f *FieldSpec, src string) error {
	if !fieldNamePattern.MatchString(f.Name) {
		return fmt.Errorf("schema %s: invalid or missing field name %q", src, f.Name)
	}
	if !f.Type.known() {
		return fmt.Errorf("schema %s: field '%s' has unknown type %q", src, f.Name, f.Type)
	}

	if (f.Min != nil || f.Max != nil) && !f.Type.Numeric() {
		return fmt.Errorf("schema %s: field '%s' bounds only apply to numeric types", src, f.Name)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("schema %s: field '%s' min greater than max", src, f.Name)
	}

	if f.Required {
		if f.Default != nil {
			return fmt.Errorf("schema %s: required field '%s' cannot carry a default", src, f.Name)
		}
		return nil
	}

	if f.Default == nil {
		if !f.Nullable {
			return fmt.Errorf("schema %s: optional field '%s' needs a default or nullable", src, f.Name)
		}
		return nil
	}

	v, reason := coerce(f, f.Default)
	if reason == "" {
		reason = checkValue(f, v)
	}
	if reason != "" {
		return fmt.Errorf("schema %s: field '%s' default %v: %s", src, f.Name, f.Default, reason)
	}
	f.Default = v
	return nil
}
