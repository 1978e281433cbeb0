package providers

import (
	"github.com/desertthunder/skysync/internal/shared"
)

// FieldType enumerates the attribute value types a schema can require.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
)

// Field describes one attribute in a provider schema.
type Field struct {
	Name     string    `json:"property"`
	Title    string    `json:"title"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Secret   bool      `json:"secret,omitempty"`
}

// Schema is an ordered list of attribute fields.
type Schema []Field

// Validate checks attrs against the schema, accumulating field-scoped errors.
// When additional is true, keys outside the schema are allowed; otherwise they
// are rejected. Numeric values arriving as float64 (JSON decoding) are
// accepted for int fields when they carry an integral value.
func (s Schema) Validate(attrs map[string]any, additional bool) *shared.ValidationErrors {
	verrs := &shared.ValidationErrors{}

	known := make(map[string]Field, len(s))
	for _, f := range s {
		known[f.Name] = f
	}

	for _, f := range s {
		v, ok := attrs[f.Name]
		if !ok || v == nil || v == "" {
			if f.Required {
				verrs.Add(f.Name, "attribute required")
			}
			continue
		}
		if !typeMatches(f.Type, v) {
			verrs.Addf(f.Name, "expected %s value", f.Type)
		}
	}

	if !additional {
		for k := range attrs {
			if _, ok := known[k]; !ok {
				verrs.Add(k, "unknown attribute")
			}
		}
	}

	return verrs
}

func typeMatches(t FieldType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeInt:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	}
	return false
}
