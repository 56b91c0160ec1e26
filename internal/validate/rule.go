// Package validate checks loosely-typed request input against a per-operation
// schema. A schema is an ordered list of fields; each field has a type, one
// presence rule and any number of constraints. Validation stops at the first
// failing field.
package validate

import "github.com/carrierd/carrierd/internal/apierr"

// Type is the value type a field is coerced to.
type Type int

const (
	String Type = iota
	Int
	Bool
	Timestamp
	StringList
)

// Presence says what happens when a field is absent.
type Presence interface{ presence() }

// Required fields must be present unless the field's When condition is
// unmet, in which case the field is set to nil.
type Required struct{ Code apierr.Code }

// Optional fields are left out of the output when absent.
type Optional struct{}

// Default fields take Value when absent.
type Default struct{ Value interface{} }

func (Required) presence() {}
func (Optional) presence() {}
func (Default) presence()  {}

// Constraint restricts a present value.
type Constraint interface{ constraint() }

// OneOf restricts the value to Values. With FoldCase the comparison ignores
// case and the canonical spelling from Values is stored.
type OneOf struct {
	Values   []string
	Code     apierr.Code
	FoldCase bool
}

// When makes the field conditional on other fields currently holding the
// given values. An unmet condition exempts a Required field and skips
// OneOf; a value supplied while the condition is unmet is rejected with
// Code. With a zero Code such a value is accepted and passed through.
type When struct {
	Equals map[string]interface{}
	Code   apierr.Code
}

// Exists requires the value (or every element of a list) to match a row in
// Collection by Field. Failures are reported with Code, which should be a
// not-found code.
type Exists struct {
	Collection string
	Field      string
	Code       apierr.Code
}

// InRange bounds an Int field.
type InRange struct {
	Min, Max int64
	Code     apierr.Code
}

func (OneOf) constraint()   {}
func (When) constraint()    {}
func (Exists) constraint()  {}
func (InRange) constraint() {}

// Field is one entry in a Schema.
type Field struct {
	Name        string
	Type        Type
	Presence    Presence
	Invalid     apierr.Code // coercion failures; defaults to apierr.InvalidValue
	Constraints []Constraint
}

// Schema is an ordered list of fields, validated in order.
type Schema []Field

func (f Field) condition() *When {
	for _, c := range f.Constraints {
		if w, ok := c.(When); ok {
			return &w
		}
	}
	return nil
}

func (f Field) invalidCode() apierr.Code {
	if f.Invalid.Kind == 0 {
		return apierr.InvalidValue
	}
	return f.Invalid
}

// AlwaysRequired reports whether f must be supplied regardless of the other
// fields.
func (f Field) AlwaysRequired() bool {
	_, ok := f.Presence.(Required)
	return ok && f.condition() == nil
}
