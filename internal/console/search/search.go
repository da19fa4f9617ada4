// Package search narrows a collection to the records matching a free-text
// query over a schema's searchable fields.
package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/baseplate/console/internal/console/store"
	"github.com/baseplate/console/internal/core/schema"
)

// Filter returns the subsequence of items whose searchable fields contain
// query, compared case-insensitively. A blank query keeps every item.
func Filter(items []store.Record, query string, fields []string) []store.Record {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]store.Record, 0, len(items))
	for _, item := range items {
		if needle == "" || matches(item, needle, fields) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item store.Record, needle string, fields []string) bool {
	for _, field := range fields {
		v, ok := item.Value(field)
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

// Source is the part of a store a View reads from.
type Source interface {
	State() store.State
	Subscribe(fn store.Listener) func()
	Schema() *schema.EntitySchema
}

// View keeps the visible subsequence of a store current. Snapshots older
// than the one it last filtered are ignored.
type View struct {
	source Source
	fields []string

	mu          sync.RWMutex
	query       string
	version     uint64
	visible     []store.Record
	unsubscribe func()
}

func NewView(source Source) *View {
	v := &View{
		source: source,
		fields: source.Schema().SearchableFields(),
	}
	v.unsubscribe = source.Subscribe(func(state store.State) {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.applyLocked(state)
	})
	v.mu.Lock()
	v.applyLocked(source.State())
	v.mu.Unlock()
	return v
}

func (v *View) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = query
	state := v.source.State()
	v.version = state.Version
	v.visible = Filter(state.Items, query, v.fields)
}

func (v *View) applyLocked(state store.State) {
	if state.Version < v.version {
		return
	}
	v.version = state.Version
	v.visible = Filter(state.Items, v.query, v.fields)
}

func (v *View) Query() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.query
}

func (v *View) Visible() []store.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]store.Record, len(v.visible))
	for i, rec := range v.visible {
		out[i] = rec.Clone()
	}
	return out
}

// Close stops following the store.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
}
