package store

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingID = errors.New("record has no id")

// Record is one item of a managed collection. Fields never contains the id.
type Record struct {
	ID     string
	Fields map[string]any
}

// FromDocument splits a wire document into id and fields.
func FromDocument(idField string, doc map[string]any) (Record, error) {
	raw, ok := doc[idField]
	if !ok || raw == nil {
		return Record{}, ErrMissingID
	}
	id := strings.TrimSpace(fmt.Sprint(raw))
	if id == "" {
		return Record{}, ErrMissingID
	}

	fields := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == idField {
			continue
		}
		fields[k] = cloneValue(v)
	}
	return Record{ID: id, Fields: fields}, nil
}

// Document is the inverse of FromDocument.
func (r Record) Document(idField string) map[string]any {
	doc := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		doc[k] = cloneValue(v)
	}
	doc[idField] = r.ID
	return doc
}

// Clone returns a deep copy; edits to the copy never reach the original.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = cloneValue(v)
	}
	return Record{ID: r.ID, Fields: fields}
}

func (r Record) Value(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// CloneFields deep-copies a field map.
func CloneFields(fields map[string]any) map[string]any {
	out, _ := cloneValue(fields).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
