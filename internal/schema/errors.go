// internal/schema/errors.go
//
// Error types returned by the registry.
//
// UnknownTypeError is a programmer or configuration mistake: the caller asked
// for a record type that was never registered.  ValidationError is expected,
// caller-facing input failure and carries one FieldError per invalid field so
// a client can fix every problem in one round trip.

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCollectionCollision is wrapped when two record types resolve to the same
// collection name.
var ErrCollectionCollision = errors.New("collection name collision")

// ErrReservedCollection is wrapped when a record type claims a collection
// name the HTTP API uses for its own routes.
var ErrReservedCollection = errors.New("reserved collection name")

// UnknownTypeError reports a lookup of an unregistered record type.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown record type %q", e.Name)
}

// FieldError describes one failing field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (fe FieldError) String() string { return fe.Field + ": " + fe.Reason }

// ValidationError carries every FieldError for one record, in field
// declaration order followed by any unknown-field entries.
type ValidationError struct {
	Type   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.String()
	}
	return fmt.Sprintf("%s validation failed: %s", e.Type, strings.Join(parts, "; "))
}

// Has reports whether field has at least one entry.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Fields {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err came from a failed Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnknownType reports whether err came from an unregistered type lookup.
func IsUnknownType(err error) bool {
	var ue *UnknownTypeError
	return errors.As(err, &ue)
}
