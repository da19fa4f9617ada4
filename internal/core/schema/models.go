package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSchema = errors.New("invalid entity schema")
	ErrUnknownSchema = errors.New("unknown resource")
)

// DefaultIDField is the identifier key used by the collection API.
const DefaultIDField = "_id"

type FieldType string

const (
	FieldString   FieldType = "string"
	FieldEmail    FieldType = "email"
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldNumber   FieldType = "number"
	FieldPassword FieldType = "password"
)

type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
	// WriteOnly fields are accepted on create/update but never returned.
	WriteOnly bool `json:"write_only,omitempty"`
}

// Definition is the mutable input used to build an EntitySchema.
type Definition struct {
	Resource         string
	DisplayName      string
	Endpoint         string
	IDField          string
	SearchableFields []string
	Fields           []Field
}

// EntitySchema is the static, immutable description of one resource type.
// Accessors hand out copies so callers cannot mutate shared configuration.
type EntitySchema struct {
	resource    string
	displayName string
	endpoint    string
	idField     string
	searchable  []string
	fields      []Field
}

func New(def Definition) (*EntitySchema, error) {
	if strings.TrimSpace(def.Resource) == "" {
		return nil, fmt.Errorf("%w: resource name is required", ErrInvalidSchema)
	}
	if !strings.HasPrefix(def.Endpoint, "/") {
		return nil, fmt.Errorf("%w: %s: endpoint must start with '/'", ErrInvalidSchema, def.Resource)
	}

	idField := def.IDField
	if idField == "" {
		idField = DefaultIDField
	}

	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field without name", ErrInvalidSchema, def.Resource)
		}
		if f.Name == idField {
			return nil, fmt.Errorf("%w: %s: field %q shadows the id field", ErrInvalidSchema, def.Resource, f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, def.Resource, f.Name)
		}
		seen[f.Name] = true
	}
	for _, name := range def.SearchableFields {
		if name == idField {
			return nil, fmt.Errorf("%w: %s: the id field %q is not searchable", ErrInvalidSchema, def.Resource, name)
		}
		if !seen[name] {
			return nil, fmt.Errorf("%w: %s: searchable field %q is not declared", ErrInvalidSchema, def.Resource, name)
		}
	}

	displayName := def.DisplayName
	if displayName == "" {
		displayName = def.Resource
	}

	return &EntitySchema{
		resource:    def.Resource,
		displayName: displayName,
		endpoint:    strings.TrimRight(def.Endpoint, "/"),
		idField:     idField,
		searchable:  append([]string(nil), def.SearchableFields...),
		fields:      append([]Field(nil), def.Fields...),
	}, nil
}

// MustNew is New for package-level schema tables.
func MustNew(def Definition) *EntitySchema {
	s, err := New(def)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *EntitySchema) Resource() string    { return s.resource }
func (s *EntitySchema) DisplayName() string { return s.displayName }
func (s *EntitySchema) Endpoint() string    { return s.endpoint }
func (s *EntitySchema) IDField() string     { return s.idField }

func (s *EntitySchema) SearchableFields() []string {
	return append([]string(nil), s.searchable...)
}

func (s *EntitySchema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *EntitySchema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns a blank draft: schema defaults where declared, empty
// strings otherwise.
func (s *EntitySchema) Defaults() map[string]any {
	draft := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if f.Default != nil {
			draft[f.Name] = f.Default
			continue
		}
		draft[f.Name] = ""
	}
	return draft
}

// MissingRequired lists required fields that are absent or blank in data,
// in schema order.
func (s *EntitySchema) MissingRequired(data map[string]any) []string {
	var missing []string
	for _, f := range s.fields {
		if !f.Required {
			continue
		}
		if isBlank(data[f.Name]) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Public strips write-only fields from a stored document.
func (s *EntitySchema) Public(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if f, ok := s.Field(k); ok && f.WriteOnly {
			continue
		}
		out[k] = v
	}
	return out
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
