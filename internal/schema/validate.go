// internal/schema/validate.go
//
// docschema – Schema subsystem: record validation and coercion.
//
// Context
//   Request bodies arrive as untyped maps (usually decoded JSON).  Validate
//   interprets a RecordType against such a map: required fields, type
//   coercion, numeric bounds, email format, and defaults.  It returns a fully
//   populated Record that the persistence layer can trust, or a
//   ValidationError listing every failing field.
//
// Workflow
//   •  Look up the RecordType by name, else UnknownTypeError.
//   •  Walk declared fields in order.  Each field yields either a value or one
//      FieldError; the first failing check for a field wins.
//   •  Undeclared keys are dropped, or reported when the registry was built
//      with RejectUnknownFields.
//   •  Any FieldError fails the whole record.  No partial records.
//
// Notes
//   Validate never mutates the registry or the input map, so concurrent
//   callers need no locking.
//
//------------------------------------------------------------------------------

package schema

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field-level reasons.  They are surfaced verbatim to API clients.
const (
	MsgMissing       = "missing required field"
	MsgNotNull       = "must not be null"
	MsgInvalidFormat = "invalid format"
	MsgOutOfRange    = "out of range"
	MsgUnknownField  = "unknown field"

	msgString     = "must be a string"
	msgInteger    = "must be an integer"
	msgNumber     = "must be a number"
	msgBoolean    = "must be a boolean"
	msgStringList = "must be a list of strings"
)

// emailRules is only ever used through Var, which is safe for concurrent use.
var emailRules = validator.New()

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate checks raw against the record type registered as typeName.
//
// The error is *UnknownTypeError when typeName is not registered and
// *ValidationError when one or more fields are invalid.
func (r *Registry) Validate(typeName string, raw map[string]any) (Record, error) {
	rt, ok := r.types[typeName]
	if !ok {
		return Record{}, &UnknownTypeError{Name: typeName}
	}

	var errs []FieldError
	values := make(map[string]any, len(rt.Fields))

	for i := range rt.Fields {
		f := &rt.Fields[i]
		v, reason := validateField(f, raw)
		if reason != "" {
			errs = append(errs, FieldError{Field: f.Name, Reason: reason})
			continue
		}
		values[f.Name] = v
	}

	if r.rejectUnknown {
		var extra []string
		for k := range raw {
			if _, declared := rt.Field(k); !declared {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			errs = append(errs, FieldError{Field: k, Reason: MsgUnknownField})
		}
	}

	if len(errs) > 0 {
		return Record{}, &ValidationError{Type: rt.Name, Fields: errs}
	}
	return Record{rt: rt, values: values}, nil
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

// validateField resolves one field from raw.  An empty reason means success.
func validateField(f *FieldSpec, raw map[string]any) (any, string) {
	v, present := raw[f.Name]

	switch {
	case !present && f.Required:
		return nil, MsgMissing
	case !present:
		return cloneValue(f.Default), ""
	case v == nil && f.Nullable:
		return nil, ""
	case v == nil:
		return nil, MsgNotNull
	}

	out, reason := coerce(f, v)
	if reason != "" {
		return nil, reason
	}
	if reason := checkValue(f, out); reason != "" {
		return nil, reason
	}
	return out, ""
}

// coerce converts v into the stored Go type for f.Type.
func coerce(f *FieldSpec, v any) (any, string) {
	switch f.Type {
	case KindString, KindEmail:
		s, ok := v.(string)
		if !ok {
			return nil, msgString
		}
		return s, ""
	case KindInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, msgInteger
		}
		return n, ""
	case KindFloat:
		n, ok := toFloat(v)
		if !ok {
			return nil, msgNumber
		}
		return n, ""
	case KindBoolean:
		b, ok := toBool(v)
		if !ok {
			return nil, msgBoolean
		}
		return b, ""
	case KindStringList:
		l, ok := toStringList(v)
		if !ok {
			return nil, msgStringList
		}
		return l, ""
	default:
		return nil, "unsupported type " + strconv.Quote(string(f.Type))
	}
}

// checkValue applies bounds and format rules to an already coerced value.
func checkValue(f *FieldSpec, v any) string {
	switch f.Type {
	case KindInteger, KindFloat:
		var n float64
		if i, ok := v.(int64); ok {
			n = float64(i)
		} else {
			n = v.(float64)
		}
		return boundsCheck(f, n)
	case KindEmail:
		if !validEmail(v.(string)) {
			return MsgInvalidFormat
		}
	}
	return ""
}

// boundsCheck validates inclusive min / max rules.
func boundsCheck(f *FieldSpec, n float64) string {
	lowOK := f.Min == nil || n >= *f.Min
	highOK := f.Max == nil || n <= *f.Max
	switch {
	case lowOK && highOK:
		return ""
	case f.Min != nil && f.Max != nil:
		return MsgOutOfRange
	case f.Min != nil:
		return "must be ≥ " + formatBound(*f.Min)
	default:
		return "must be ≤ " + formatBound(*f.Max)
	}
}

func formatBound(b float64) string { return strconv.FormatFloat(b, 'g', -1, 64) }

// validEmail requires a parseable address whose domain contains a dot.
func validEmail(s string) bool {
	if err := emailRules.Var(s, "required,email"); err != nil {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// -----------------------------------------------------------------------------
// Coercion helpers
// -----------------------------------------------------------------------------

const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0 // exclusive
)

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func uintToInt(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// floatToInt accepts only integral, in-range values such as JSON's 42.0.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < minInt64Float || f >= maxInt64Float {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		i, ok := toInt(v)
		if !ok {
			return 0, false
		}
		return float64(i), true
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
		return false, false
	}

	// Numeric 0 / 1 only.
	i, ok := toInt(v)
	if !ok || (i != 0 && i != 1) {
		return false, false
	}
	return i == 1, true
}

func toStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// cloneValue copies defaults that are reference types so records never share
// backing arrays with the registry.
func cloneValue(v any) any {
	if l, ok := v.([]string); ok {
		out := make([]string, len(l))
		copy(out, l)
		return out
	}
	return v
}
