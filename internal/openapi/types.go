package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/carrierd/carrierd/internal/validate"
)

// TypeMapping maps a validator field type to an OpenAPI type/format pair.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, boolean, array
	Format string // OpenAPI format: int64, date-time
}

var fieldTypeToOpenAPI = map[validate.Type]TypeMapping{
	validate.String:     {"string", ""},
	validate.Int:        {"integer", "int64"},
	validate.Bool:       {"boolean", ""},
	validate.Timestamp:  {"string", "date-time"},
	validate.StringList: {"array", ""},
}

// MapFieldType returns the OpenAPI mapping for t. Unknown types map to
// string.
func MapFieldType(t validate.Type) TypeMapping {
	if m, ok := fieldTypeToOpenAPI[t]; ok {
		return m
	}
	return TypeMapping{Type: "string"}
}

// fieldSchema describes one validated field: its type plus the enum and
// range its constraints impose.
func fieldSchema(f validate.Field) *openapi3.Schema {
	s := typeSchema(MapFieldType(f.Type))
	if f.Type == validate.Timestamp {
		s.Description = "Unix epoch seconds or an ISO-8601 date-time."
	}
	if d, ok := f.Presence.(validate.Default); ok {
		s.Default = d.Value
	}
	for _, c := range f.Constraints {
		switch c := c.(type) {
		case validate.OneOf:
			for _, v := range c.Values {
				s.Enum = append(s.Enum, v)
			}
		case validate.InRange:
			min, max := float64(c.Min), float64(c.Max)
			s.Min, s.Max = &min, &max
		case validate.When:
			s.Description = "Only applicable for some values of the other fields."
		}
	}
	return s
}

func typeSchema(m TypeMapping) *openapi3.Schema {
	s := &openapi3.Schema{
		Type: &openapi3.Types{m.Type},
	}
	if m.Format != "" {
		s.Format = m.Format
	}
	if m.Type == "array" {
		s.Items = &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	}
	return s
}
