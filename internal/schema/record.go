package schema

import (
	"bytes"
	"encoding/json"
)

// Record is a validated instance of a RecordType.  Every declared field is
// present; optional fields that were absent from the input hold their
// default.  The zero Record has no type and no fields.
//
// Stored value types: string, int64, float64, bool, []string, or nil.
type Record struct {
	rt     *RecordType
	values map[string]any
}

// Type returns the record type name, or "" for the zero Record.
func (r Record) Type() string {
	if r.rt == nil {
		return ""
	}
	return r.rt.Name
}

// Collection returns the storage collection of the record type.
func (r Record) Collection() string {
	if r.rt == nil {
		return ""
	}
	return r.rt.Collection
}

// Fields returns field names in declaration order.
func (r Record) Fields() []string {
	if r.rt == nil {
		return nil
	}
	out := make([]string, len(r.rt.Fields))
	for i, f := range r.rt.Fields {
		out[i] = f.Name
	}
	return out
}

// Get returns one field value.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Map returns a copy of the record as a plain map.  Feeding it back into
// Validate yields an equal Record.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = cloneValue(v)
	}
	return out
}

// MarshalJSON writes the fields in declaration order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
