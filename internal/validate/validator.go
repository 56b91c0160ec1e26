package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/carrierd/carrierd/internal/apierr"
)

// Lookup answers existence checks against persistent collections.
type Lookup interface {
	Exists(ctx context.Context, collection, field, value string) (bool, error)
}

// Validator interprets schemas.
type Validator struct {
	lookup Lookup
}

// New returns a Validator that resolves Exists constraints through lookup.
func New(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate checks input against schema. On success every schema field in
// input is replaced by its validated value (absent Optional fields are
// removed); keys not named by the schema are left alone. On failure input
// is untouched and the returned *apierr.Error identifies the first failing
// field's condition. Exists lookups run only once every field has passed its
// presence, type and choice checks, so a malformed request is reported as
// such before any not-found.
func (v *Validator) Validate(ctx context.Context, schema Schema, input map[string]interface{}) error {
	out := make(map[string]interface{}, len(schema))
	var lookups []pendingLookup
	current := func(name string) (interface{}, bool) {
		if val, ok := out[name]; ok {
			return val, true
		}
		val, ok := input[name]
		return val, ok
	}

	for _, f := range schema {
		cond := f.condition()
		applies := cond == nil || cond.holds(current)

		raw, present := input[f.Name]
		if present && isEmpty(raw) {
			present = false
		}

		if !present {
			switch p := f.Presence.(type) {
			case Required:
				if applies {
					return apierr.New(p.Code)
				}
				out[f.Name] = nil
			case Default:
				out[f.Name] = p.Value
			}
			continue
		}

		val, err := coerce(f.Type, raw)
		if err != nil {
			return apierr.Wrap(f.invalidCode(), fmt.Errorf("%s: %w", f.Name, err))
		}

		for _, c := range f.Constraints {
			switch c := c.(type) {
			case OneOf:
				if !applies {
					continue
				}
				canonical, ok := c.match(val)
				if !ok {
					return apierr.New(c.Code)
				}
				val = canonical
			case InRange:
				if n, ok := val.(int64); ok && (n < c.Min || n > c.Max) {
					return apierr.New(c.Code)
				}
			}
		}

		if !applies && cond.Code.Kind != 0 {
			return apierr.New(cond.Code)
		}

		for _, c := range f.Constraints {
			if c, ok := c.(Exists); ok {
				lookups = append(lookups, pendingLookup{c, val})
			}
		}

		out[f.Name] = val
	}

	for _, l := range lookups {
		if err := v.exists(ctx, l.check, l.val); err != nil {
			return err
		}
	}

	for _, f := range schema {
		if val, ok := out[f.Name]; ok {
			input[f.Name] = val
		} else {
			delete(input, f.Name)
		}
	}
	return nil
}

type pendingLookup struct {
	check Exists
	val   interface{}
}

func (v *Validator) exists(ctx context.Context, c Exists, val interface{}) error {
	var values []string
	switch t := val.(type) {
	case string:
		values = []string{t}
	case []string:
		values = t
	default:
		values = []string{fmt.Sprint(t)}
	}
	for _, s := range values {
		found, err := v.lookup.Exists(ctx, c.Collection, c.Field, s)
		if err != nil {
			return apierr.Wrap(apierr.Internal, err)
		}
		if !found {
			return apierr.New(c.Code)
		}
	}
	return nil
}

func (c OneOf) match(val interface{}) (interface{}, bool) {
	s, ok := val.(string)
	if !ok {
		return nil, false
	}
	for _, want := range c.Values {
		if s == want || (c.FoldCase && strings.EqualFold(s, want)) {
			return want, true
		}
	}
	return nil, false
}

func (w *When) holds(current func(string) (interface{}, bool)) bool {
	for name, want := range w.Equals {
		got, ok := current(name)
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

func sameValue(a, b interface{}) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as == bs
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
