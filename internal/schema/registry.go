// internal/schema/registry.go
//
// docschema – Schema subsystem: the record-type registry.
//
// Context
//   A Registry is built once at process start from the embedded definitions
//   plus any operator-supplied directory, then shared by pointer.  It is never
//   mutated after NewRegistry returns, so readers take no locks.
//
// Workflow
//   •  NewRegistry re-checks each RecordType, rejects duplicate names, and
//      builds the explicit type → collection and collection → type tables.
//   •  Two types that resolve to the same collection are a construction error
//      rather than a silent overwrite.
//   •  Types are deep-copied on the way in and on the way out, so neither
//      the caller's values nor the returned ones alias registry state.
//
//------------------------------------------------------------------------------

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Registry holds immutable record types keyed by name.
type Registry struct {
	order         []*RecordType
	types         map[string]*RecordType
	collections   map[string]string // type name → collection
	byCollection  map[string]*RecordType
	rejectUnknown bool
}

// Option tunes registry behaviour.
type Option func(*Registry)

// RejectUnknownFields makes Validate report undeclared input keys instead of
// silently dropping them.
func RejectUnknownFields() Option {
	return func(r *Registry) { r.rejectUnknown = true }
}

// NewRegistry validates and indexes copies of types; the arguments are left
// untouched.  The slice order is kept as the registry's declaration order.
// An empty Collection is filled with the lower-cased type name.
func NewRegistry(types []*RecordType, opts ...Option) (*Registry, error) {
	if len(types) == 0 {
		return nil, errors.New("NewRegistry: no record types provided")
	}

	r := &Registry{
		types:        make(map[string]*RecordType, len(types)),
		collections:  make(map[string]string, len(types)),
		byCollection: make(map[string]*RecordType, len(types)),
	}
	for _, o := range opts {
		o(r)
	}

	for _, rt := range types {
		if rt == nil {
			return nil, errors.New("NewRegistry: nil record type")
		}
		rt = rt.clone()
		if rt.Collection == "" {
			rt.Collection = strings.ToLower(rt.Name)
		}
		if err := checkRecordType(rt, rt.Name); err != nil {
			return nil, err
		}
		if _, dup := r.types[rt.Name]; dup {
			return nil, fmt.Errorf("record type %q registered twice", rt.Name)
		}
		if prev, clash := r.byCollection[rt.Collection]; clash {
			return nil, fmt.Errorf("%w: %q and %q both map to %q",
				ErrCollectionCollision, prev.Name, rt.Name, rt.Collection)
		}

		r.order = append(r.order, rt)
		r.types[rt.Name] = rt
		r.collections[rt.Name] = rt.Collection
		r.byCollection[rt.Collection] = rt
	}
	return r, nil
}

// Lookup returns a copy of the record type registered as name.
func (r *Registry) Lookup(name string) (*RecordType, bool) {
	rt, ok := r.types[name]
	if !ok {
		return nil, false
	}
	return rt.clone(), true
}

// Types returns copies of all record types in declaration order.
func (r *Registry) Types() []*RecordType {
	out := make([]*RecordType, len(r.order))
	for i, rt := range r.order {
		out[i] = rt.clone()
	}
	return out
}

// CollectionName returns the storage collection for typeName.
func (r *Registry) CollectionName(typeName string) (string, error) {
	c, ok := r.collections[typeName]
	if !ok {
		return "", &UnknownTypeError{Name: typeName}
	}
	return c, nil
}

// TypeForCollection is the reverse of CollectionName.  It returns a copy.
func (r *Registry) TypeForCollection(collection string) (*RecordType, bool) {
	rt, ok := r.byCollection[collection]
	if !ok {
		return nil, false
	}
	return rt.clone(), true
}
