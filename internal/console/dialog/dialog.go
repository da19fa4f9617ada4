// Package dialog drives the modal form used to create, edit and delete
// records of one collection.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/baseplate/console/internal/console/coordinator"
	"github.com/baseplate/console/internal/console/notify"
	"github.com/baseplate/console/internal/console/store"
	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

var (
	ErrSubmitInFlight    = errors.New("a request for this form is still in flight")
	ErrInvalidTransition = errors.New("action not allowed in the current dialog mode")
	ErrUnknownRecord     = errors.New("record not found")
	ErrRequiredFields    = errors.New("required fields are missing")
)

type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
	Submitting
	ConfirmingDelete
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case ConfirmingDelete:
		return "confirming-delete"
	default:
		return "closed"
	}
}

// Session is a snapshot of the form.
type Session struct {
	Mode     Mode
	Draft    map[string]any
	TargetID string
	Error    string
}

// Submitter performs the mutations a dialog asks for.
type Submitter interface {
	Submit(ctx context.Context, id string, payload map[string]any, op coordinator.Operation) (store.Record, error)
	Delete(ctx context.Context, id string) error
}

// Records is the read/write part of the store the dialog needs.
type Records interface {
	Schema() *schema.EntitySchema
	Get(id string) (store.Record, bool)
	Upsert(rec store.Record)
}

type Notifier interface {
	Push(kind notify.Kind, message string) notify.Item
}

type Controller struct {
	records   Records
	submitter Submitter
	notices   Notifier

	mu        sync.Mutex
	session   Session
	resume    Mode
	listeners map[int]func(Session)
	nextID    int
}

func New(records Records, submitter Submitter, notices Notifier) *Controller {
	return &Controller{
		records:   records,
		submitter: submitter,
		notices:   notices,
		listeners: make(map[int]func(Session)),
	}
}

func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Subscribe(fn func(Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// OpenCreate starts a new draft filled with the schema defaults.
func (c *Controller) OpenCreate() error {
	return c.transition(func() error {
		if c.session.Mode != Closed {
			return c.busy()
		}
		c.session = Session{Mode: Creating, Draft: c.records.Schema().Defaults()}
		return nil
	})
}

// OpenEdit starts a draft from a copy of the stored record.
func (c *Controller) OpenEdit(id string) error {
	rec, ok := c.records.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	return c.transition(func() error {
		if c.session.Mode != Closed {
			return c.busy()
		}
		c.session = Session{
			Mode:     Editing,
			Draft:    c.records.Schema().Public(rec.Fields),
			TargetID: id,
		}
		return nil
	})
}

func (c *Controller) SetField(name string, value any) error {
	return c.transition(func() error {
		if c.session.Mode != Creating && c.session.Mode != Editing {
			return c.busy()
		}
		if c.session.Draft == nil {
			c.session.Draft = make(map[string]any)
		}
		c.session.Draft[name] = value
		return nil
	})
}

// RequestDelete asks the operator to confirm removal of id.
func (c *Controller) RequestDelete(id string) error {
	return c.transition(func() error {
		if c.session.Mode != Closed {
			return c.busy()
		}
		c.session = Session{Mode: ConfirmingDelete, TargetID: id}
		return nil
	})
}

// Cancel discards the form. It is refused while a request is in flight.
func (c *Controller) Cancel() error {
	return c.transition(func() error {
		if c.session.Mode == Submitting {
			return ErrSubmitInFlight
		}
		c.session = Session{Mode: Closed}
		return nil
	})
}

// Confirm submits the draft. Missing required fields fail locally without
// contacting the backend.
func (c *Controller) Confirm(ctx context.Context) error {
	var (
		op      coordinator.Operation
		id      string
		payload map[string]any
	)
	err := c.transition(func() error {
		switch c.session.Mode {
		case Creating:
			op = coordinator.Create
		case Editing:
			op = coordinator.Update
		default:
			return c.busy()
		}
		if missing := c.records.Schema().MissingRequired(c.session.Draft); len(missing) > 0 {
			c.session.Error = "Please fill in all required fields: " + strings.Join(c.labels(missing), ", ")
			return fmt.Errorf("%w: %s", ErrRequiredFields, strings.Join(missing, ", "))
		}
		id = c.session.TargetID
		payload = store.CloneFields(c.session.Draft)
		c.resume = c.session.Mode
		c.session.Mode = Submitting
		c.session.Error = ""
		return nil
	})
	if err != nil {
		return err
	}

	rec, err := c.submitter.Submit(ctx, id, payload, op)
	if err != nil {
		return c.fail(err)
	}

	c.records.Upsert(rec)
	verb := "added"
	if op == coordinator.Update {
		verb = "updated"
	}
	c.succeed(verb)
	return nil
}

// ConfirmDelete performs the delete the operator asked for.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	var id string
	err := c.transition(func() error {
		if c.session.Mode != ConfirmingDelete {
			return c.busy()
		}
		id = c.session.TargetID
		c.resume = ConfirmingDelete
		c.session.Mode = Submitting
		c.session.Error = ""
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.submitter.Delete(ctx, id); err != nil {
		return c.fail(err)
	}
	c.succeed("deleted")
	return nil
}

func (c *Controller) succeed(verb string) {
	_ = c.transition(func() error {
		c.session = Session{Mode: Closed}
		return nil
	})
	c.notices.Push(notify.Success, fmt.Sprintf("%s %s successfully", c.records.Schema().DisplayName(), verb))
}

// fail returns the session to the mode it was submitted from, keeping the
// draft so the operator can correct it.
func (c *Controller) fail(err error) error {
	if errors.Is(err, coordinator.ErrConcurrentOperation) {
		log.Printf("dialog: %s: ignoring submit: %v", c.records.Schema().Resource(), err)
		_ = c.transition(func() error {
			c.session.Mode = c.resume
			return nil
		})
		return nil
	}

	message := transport.Message(err)
	_ = c.transition(func() error {
		c.session.Mode = c.resume
		c.session.Error = message
		return nil
	})
	if transport.IsKind(err, transport.KindNotFound) {
		c.notices.Push(notify.Error, message)
	}
	return err
}

func (c *Controller) busy() error {
	if c.session.Mode == Submitting {
		return ErrSubmitInFlight
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, c.session.Mode)
}

func (c *Controller) labels(names []string) []string {
	s := c.records.Schema()
	out := make([]string, 0, len(names))
	for _, name := range names {
		if f, ok := s.Field(name); ok && f.Label != "" {
			out = append(out, f.Label)
			continue
		}
		out = append(out, name)
	}
	return out
}

// transition applies fn under the lock and notifies listeners when the
// session may have changed.
func (c *Controller) transition(fn func() error) error {
	c.mu.Lock()
	err := fn()
	snap := c.snapshotLocked()
	listeners := make([]func(Session), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return err
}

func (c *Controller) snapshotLocked() Session {
	snap := c.session
	if snap.Draft != nil {
		snap.Draft = store.CloneFields(snap.Draft)
	}
	return snap
}
