// Package coordinator serializes mutations per record id and turns backend
// outcomes into store updates.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/baseplate/console/internal/console/store"
	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

// NewID is the lock key used for a create, which has no id yet.
const NewID = "new"

var ErrConcurrentOperation = errors.New("operation already in flight for this record")

type Operation int

const (
	Create Operation = iota
	Update
)

func (o Operation) String() string {
	if o == Update {
		return "update"
	}
	return "create"
}

// Mutator performs writes against the remote collection.
type Mutator interface {
	Create(ctx context.Context, endpoint string, fields map[string]any) (map[string]any, error)
	Update(ctx context.Context, endpoint, id string, fields map[string]any) (map[string]any, error)
	Delete(ctx context.Context, endpoint, id string) error
}

// Collection is the store surface the coordinator writes to.
type Collection interface {
	Schema() *schema.EntitySchema
	Remove(id string) bool
	Load(ctx context.Context) error
}

type Coordinator struct {
	backend    Mutator
	collection Collection

	mu     sync.Mutex
	locked map[string]struct{}
}

func New(backend Mutator, collection Collection) *Coordinator {
	return &Coordinator{
		backend:    backend,
		collection: collection,
		locked:     make(map[string]struct{}),
	}
}

// Locked reports whether a mutation for id is in flight.
func (c *Coordinator) Locked(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locked[id]
	return ok
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.locked[id]; busy {
		return false
	}
	c.locked[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locked, id)
}

// Submit creates or updates a record and returns the saved version. The
// caller decides when to upsert it into the store.
func (c *Coordinator) Submit(ctx context.Context, id string, payload map[string]any, op Operation) (store.Record, error) {
	key := id
	if op == Create {
		key = NewID
	}
	if !c.acquire(key) {
		return store.Record{}, ErrConcurrentOperation
	}
	defer c.release(key)

	s := c.collection.Schema()
	fields := store.CloneFields(payload)
	delete(fields, s.IDField())

	var doc map[string]any
	err := c.withRetry(ctx, op.String(), func() error {
		var callErr error
		if op == Update {
			doc, callErr = c.backend.Update(ctx, s.Endpoint(), id, fields)
		} else {
			doc, callErr = c.backend.Create(ctx, s.Endpoint(), fields)
		}
		return callErr
	})
	if err != nil {
		c.afterFailure(err)
		return store.Record{}, err
	}

	rec, err := store.FromDocument(s.IDField(), doc)
	if errors.Is(err, store.ErrMissingID) && op == Update {
		// Some backends echo only the fields; the id is already known.
		rec = store.Record{ID: id, Fields: store.CloneFields(doc)}
		err = nil
	}
	if err != nil {
		return store.Record{}, &transport.Error{
			Kind:    transport.KindServer,
			Message: "saved record has no id",
			Err:     err,
		}
	}
	return rec, nil
}

// Delete removes a record remotely and, on success, from the store.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if !c.acquire(id) {
		return ErrConcurrentOperation
	}
	defer c.release(id)

	s := c.collection.Schema()
	err := c.withRetry(ctx, "delete", func() error {
		return c.backend.Delete(ctx, s.Endpoint(), id)
	})
	if err != nil {
		c.afterFailure(err)
		return err
	}
	c.collection.Remove(id)
	return nil
}

// withRetry repeats call once when it failed before reaching the server.
func (c *Coordinator) withRetry(ctx context.Context, what string, call func() error) error {
	err := call()
	var te *transport.Error
	if err == nil || !errors.As(err, &te) || !te.Retryable() || ctx.Err() != nil {
		return err
	}
	log.Printf("coordinator: %s %s: retrying after network error: %v", c.collection.Schema().Resource(), what, err)
	if retryErr := call(); retryErr != nil {
		return fmt.Errorf("%s after retry: %w", what, retryErr)
	}
	return nil
}

func (c *Coordinator) afterFailure(err error) {
	if !transport.IsKind(err, transport.KindNotFound) {
		return
	}
	go func() {
		if loadErr := c.collection.Load(context.Background()); loadErr != nil {
			log.Printf("coordinator: %s: refresh after not found failed: %v", c.collection.Schema().Resource(), loadErr)
		}
	}()
}
