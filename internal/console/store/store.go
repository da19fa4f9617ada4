// Package store holds the authoritative local copy of one remote collection
// together with its load status.
package store

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

var ErrClosed = errors.New("store closed")

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrorInfo is the page-level description of a failed load.
type ErrorInfo struct {
	Kind     transport.Kind
	Message  string
	FailedAt time.Time
	Err      error
}

// State is a snapshot of the collection. Version grows with every change,
// so of two snapshots the one with the higher Version is the current one.
type State struct {
	Items     []Record
	Status    Status
	LastError *ErrorInfo
	Version   uint64
}

// Lister fetches the full collection behind an endpoint.
type Lister interface {
	List(ctx context.Context, endpoint string) ([]map[string]any, error)
}

// Listener is called after every mutation with a fresh snapshot. Concurrent
// mutations may deliver their snapshots out of order; compare Version.
type Listener func(State)

type Store struct {
	schema  *schema.EntitySchema
	backend Lister

	mu        sync.RWMutex
	items     []Record
	index     map[string]int
	status    Status
	lastError *ErrorInfo
	version   uint64
	listeners map[int]Listener
	nextID    int
	closed    bool

	// loading is set while generation's fetch is unsettled.
	loading    bool
	generation uint64
	loads      singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func New(s *schema.EntitySchema, backend Lister) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		schema:    s,
		backend:   backend,
		index:     make(map[string]int),
		listeners: make(map[int]Listener),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Store) Schema() *schema.EntitySchema { return s.schema }

// Load fetches the collection. The status becomes Loading before Load
// returns control to the network; calls made while a fetch is in flight
// share its outcome instead of issuing another request. ctx only bounds how
// long this caller waits; the fetch itself lives as long as the store.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var snap *State
	if !s.loading {
		s.loading = true
		s.generation++
		s.status = StatusLoading
		s.version++
		st := s.snapshotLocked()
		snap = &st
	}
	gen := s.generation
	s.mu.Unlock()
	if snap != nil {
		s.notify(*snap)
	}

	ch := s.loads.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return nil, s.fetch(gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) fetch(gen uint64) error {
	s.mu.Lock()
	if gen != s.generation || !s.loading {
		// Generation already settled.
		err := s.settledErrLocked()
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	docs, err := s.backend.List(s.ctx, s.schema.Endpoint())

	s.mu.Lock()
	s.loading = false
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.version++
	if err != nil {
		s.status = StatusFailed
		s.lastError = &ErrorInfo{
			Kind:     kindOf(err),
			Message:  transport.Message(err),
			FailedAt: time.Now(),
			Err:      err,
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		log.Printf("store: %s: load failed: %v", s.schema.Resource(), err)
		s.notify(snap)
		return err
	}

	items := make([]Record, 0, len(docs))
	index := make(map[string]int, len(docs))
	for _, doc := range docs {
		rec, convErr := FromDocument(s.schema.IDField(), doc)
		if convErr != nil {
			log.Printf("store: %s: dropping document without %s", s.schema.Resource(), s.schema.IDField())
			continue
		}
		if i, dup := index[rec.ID]; dup {
			items[i] = rec
			continue
		}
		index[rec.ID] = len(items)
		items = append(items, rec)
	}
	s.items = items
	s.index = index
	s.status = StatusLoaded
	s.lastError = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Upsert replaces a known record in place or appends a new one.
func (s *Store) Upsert(rec Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	rec = rec.Clone()
	if i, ok := s.index[rec.ID]; ok {
		s.items[i] = rec
	} else {
		s.index[rec.ID] = len(s.items)
		s.items = append(s.items, rec)
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Remove deletes the record with id. Unknown ids are ignored.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if s.closed || !ok {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.items[i].Clone(), true
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Items() []Record {
	return s.State().Items
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close cancels any pending load and detaches listeners. Results that
// arrive afterwards are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.listeners = make(map[int]Listener)
}

func (s *Store) snapshotLocked() State {
	items := make([]Record, len(s.items))
	for i, rec := range s.items {
		items[i] = rec.Clone()
	}
	var lastError *ErrorInfo
	if s.lastError != nil {
		copied := *s.lastError
		lastError = &copied
	}
	return State{Items: items, Status: s.status, LastError: lastError, Version: s.version}
}

func (s *Store) settledErrLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.status == StatusFailed && s.lastError != nil {
		return s.lastError.Err
	}
	return nil
}

func (s *Store) notify(snap State) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func kindOf(err error) transport.Kind {
	var te *transport.Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return transport.KindServer
}
