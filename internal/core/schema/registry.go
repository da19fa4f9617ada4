package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Registry indexes schemas by resource name and by endpoint.
type Registry struct {
	byResource map[string]*EntitySchema
	byEndpoint map[string]*EntitySchema
}

func NewRegistry(schemas ...*EntitySchema) (*Registry, error) {
	r := &Registry{
		byResource: make(map[string]*EntitySchema, len(schemas)),
		byEndpoint: make(map[string]*EntitySchema, len(schemas)),
	}
	for _, s := range schemas {
		if _, exists := r.byResource[s.Resource()]; exists {
			return nil, fmt.Errorf("%w: resource %q registered twice", ErrInvalidSchema, s.Resource())
		}
		if _, exists := r.byEndpoint[s.Endpoint()]; exists {
			return nil, fmt.Errorf("%w: endpoint %q registered twice", ErrInvalidSchema, s.Endpoint())
		}
		r.byResource[s.Resource()] = s
		r.byEndpoint[s.Endpoint()] = s
	}
	return r, nil
}

func (r *Registry) Lookup(resource string) (*EntitySchema, error) {
	s, ok := r.byResource[strings.TrimSpace(resource)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, resource)
	}
	return s, nil
}

func (r *Registry) ByEndpoint(endpoint string) (*EntitySchema, bool) {
	s, ok := r.byEndpoint[strings.TrimRight(endpoint, "/")]
	return s, ok
}

// All returns the registered schemas sorted by resource name.
func (r *Registry) All() []*EntitySchema {
	out := make([]*EntitySchema, 0, len(r.byResource))
	for _, s := range r.byResource {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource() < out[j].Resource() })
	return out
}

func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Resource()
	}
	return names
}
