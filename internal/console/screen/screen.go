// Package screen assembles the engine for one collection screen.
package screen

import (
	"context"
	"time"

	"github.com/baseplate/console/internal/console/coordinator"
	"github.com/baseplate/console/internal/console/dialog"
	"github.com/baseplate/console/internal/console/notify"
	"github.com/baseplate/console/internal/console/search"
	"github.com/baseplate/console/internal/console/store"
	"github.com/baseplate/console/internal/core/schema"
)

// Backend is the full request/response collaborator a screen talks to.
type Backend interface {
	store.Lister
	coordinator.Mutator
}

type Options struct {
	NotificationTTL time.Duration
}

// Screen owns one instance of every engine component for a schema.
type Screen struct {
	Schema      *schema.EntitySchema
	Store       *store.Store
	View        *search.View
	Coordinator *coordinator.Coordinator
	Dialog      *dialog.Controller
	Notices     *notify.Queue
}

func New(s *schema.EntitySchema, backend Backend, opts Options) *Screen {
	st := store.New(s, backend)
	coord := coordinator.New(backend, st)
	notices := notify.NewQueue(opts.NotificationTTL)
	return &Screen{
		Schema:      s,
		Store:       st,
		View:        search.NewView(st),
		Coordinator: coord,
		Dialog:      dialog.New(st, coord, notices),
		Notices:     notices,
	}
}

// Open performs the initial load of the collection.
func (s *Screen) Open(ctx context.Context) error {
	return s.Store.Load(ctx)
}

// Close cancels pending loads and stops notification timers.
func (s *Screen) Close() {
	s.View.Close()
	s.Store.Close()
	s.Notices.Close()
}
