// Package notify holds transient success and error messages shown to the
// operator.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an item stays visible without being dismissed.
const DefaultTTL = 6 * time.Second

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

type Item struct {
	ID        string
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	items     []Item
	timers    map[string]*time.Timer
	listeners map[int]func([]Item)
	nextID    int
	closed    bool
}

// NewQueue returns a queue whose items expire after ttl. A non-positive ttl
// means DefaultTTL.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:       ttl,
		now:       time.Now,
		timers:    make(map[string]*time.Timer),
		listeners: make(map[int]func([]Item)),
	}
}

// Push appends a new item. Identical messages are never merged.
func (q *Queue) Push(kind Kind, message string) Item {
	item := Item{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return item
	}
	q.items = append(q.items, item)
	q.timers[item.ID] = time.AfterFunc(q.ttl, func() { q.Dismiss(item.ID) })
	snap := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snap)
	return item
}

// Dismiss removes an item before it expires. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	idx := -1
	for i, item := range q.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	snap := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snap)
}

func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) Subscribe(fn func([]Item)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

// Close stops every pending expiry timer and empties the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.listeners = make(map[int]func([]Item))
}

func (q *Queue) snapshotLocked() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) notify(items []Item) {
	q.mu.Lock()
	listeners := make([]func([]Item), 0, len(q.listeners))
	for _, fn := range q.listeners {
		listeners = append(listeners, fn)
	}
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(items)
	}
}
