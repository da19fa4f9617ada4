package schema

// JSON Schema property types
type PropertyType string

const (
	PropertyTypeString PropertyType = "string"
	PropertyTypeNumber PropertyType = "number"
)

type SchemaProperty struct {
	Type      PropertyType `json:"type"`
	Title     string       `json:"title,omitempty"`
	Format    string       `json:"format,omitempty"`
	MinLength *int         `json:"minLength,omitempty"`
	Default   any          `json:"default,omitempty"`
}

// JSONSchema renders the entity as a JSON Schema document suitable for
// gojsonschema. Required string fields must also be non-empty. Times are
// free-form since the console sends them as entered.
func (s *EntitySchema) JSONSchema() map[string]interface{} {
	properties := make(map[string]*SchemaProperty, len(s.fields))
	var required []string

	for _, f := range s.fields {
		prop := &SchemaProperty{Type: PropertyTypeString, Title: f.Label, Default: f.Default}
		switch f.Type {
		case FieldNumber:
			prop.Type = PropertyTypeNumber
		case FieldEmail:
			prop.Format = "email"
		case FieldDate:
			prop.Format = "date"
		}
		if f.Required {
			required = append(required, f.Name)
			if prop.Type == PropertyTypeString {
				one := 1
				prop.MinLength = &one
			}
		}
		properties[f.Name] = prop
	}

	return NewSchema(s.displayName, properties, required)
}

func NewSchema(title string, properties map[string]*SchemaProperty, required []string) map[string]interface{} {
	props := make(map[string]interface{})
	for k, v := range properties {
		props[k] = v
	}

	out := map[string]interface{}{
		"type":       "object",
		"title":      title,
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
