package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

type fakeLister struct {
	calls   atomic.Int32
	release chan struct{}
	docs    []map[string]any
	err     error
}

func (f *fakeLister) List(ctx context.Context, endpoint string) ([]map[string]any, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.docs, f.err
}

func navigators() []map[string]any {
	return []map[string]any{
		{"_id": "1", "name": "John Doe", "email": "john@example.com"},
		{"_id": "2", "name": "Jane Smith", "email": "jane@example.com"},
	}
}

func TestStoreLoad(t *testing.T) {
	lister := &fakeLister{docs: navigators()}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	assert.Equal(t, StatusIdle, s.State().Status)
	require.NoError(t, s.Load(context.Background()))

	state := s.State()
	assert.Equal(t, StatusLoaded, state.Status)
	assert.Nil(t, state.LastError)
	require.Len(t, state.Items, 2)
	assert.Equal(t, "1", state.Items[0].ID)
	assert.Equal(t, "Jane Smith", state.Items[1].Fields["name"])
	_, hasID := state.Items[1].Fields["_id"]
	assert.False(t, hasID)
}

func TestStoreLoad_SetsLoadingBeforeFetchCompletes(t *testing.T) {
	lister := &fakeLister{docs: navigators(), release: make(chan struct{})}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()

	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusLoading, s.State().Status)

	close(lister.release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusLoaded, s.State().Status)
}

func TestStoreLoad_FailureKeepsItems(t *testing.T) {
	lister := &fakeLister{docs: navigators()}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	lister.docs = nil
	lister.err = &transport.Error{Kind: transport.KindNetwork, Message: "backend unreachable"}
	err := s.Load(context.Background())
	require.ErrorIs(t, err, transport.ErrNetwork)

	state := s.State()
	assert.Equal(t, StatusFailed, state.Status)
	require.NotNil(t, state.LastError)
	assert.Equal(t, transport.KindNetwork, state.LastError.Kind)
	assert.Equal(t, "backend unreachable", state.LastError.Message)
	assert.Len(t, state.Items, 2)
}

func TestStoreLoad_ConcurrentCallsShareOneRequest(t *testing.T) {
	lister := &fakeLister{docs: navigators(), release: make(chan struct{})}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = s.Load(context.Background())
	}()
	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = s.Load(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(lister.release)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, int32(1), lister.calls.Load())
	assert.Len(t, s.Items(), 2)
}

func TestStoreLoad_ReloadFromListenerSettles(t *testing.T) {
	lister := &fakeLister{docs: navigators()}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	var once sync.Once
	reloaded := make(chan error, 1)
	s.Subscribe(func(state State) {
		if state.Status != StatusLoaded {
			return
		}
		once.Do(func() {
			go func() { reloaded <- s.Load(context.Background()) }()
			// Hold the first fetch open while the reload starts.
			time.Sleep(20 * time.Millisecond)
		})
	})

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, <-reloaded)

	require.Eventually(t, func() bool { return s.State().Status == StatusLoaded }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), lister.calls.Load())
	assert.Len(t, s.Items(), 2)
}

func TestStoreState_VersionGrowsWithEveryChange(t *testing.T) {
	s := New(schema.CareNavigatorSchema, &fakeLister{docs: navigators()})
	defer s.Close()

	var mu sync.Mutex
	var versions []uint64
	s.Subscribe(func(state State) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, state.Version)
	})

	before := s.State().Version
	require.NoError(t, s.Load(context.Background()))
	s.Upsert(Record{ID: "9", Fields: map[string]any{}})
	s.Remove("9")
	s.Remove("missing")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 4)
	for i, v := range versions {
		if i == 0 {
			assert.Greater(t, v, before)
			continue
		}
		assert.Greater(t, v, versions[i-1])
	}
	assert.Equal(t, versions[3], s.State().Version)
}

func TestStoreLoad_CallerContextOnlyBoundsTheWait(t *testing.T) {
	lister := &fakeLister{docs: navigators(), release: make(chan struct{})}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Load(ctx) }()
	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(lister.release)
	require.Eventually(t, func() bool { return s.State().Status == StatusLoaded }, time.Second, 5*time.Millisecond)
}

func TestStoreLoad_DropsDocumentsWithoutID(t *testing.T) {
	lister := &fakeLister{docs: []map[string]any{{"name": "orphan"}, {"_id": "3", "name": "kept"}}}
	s := New(schema.CareNavigatorSchema, lister)
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "3", items[0].ID)
}

func TestStoreUpsert(t *testing.T) {
	s := New(schema.CareNavigatorSchema, &fakeLister{docs: navigators()})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.Upsert(Record{ID: "1", Fields: map[string]any{"name": "John Updated"}})
	s.Upsert(Record{ID: "7", Fields: map[string]any{"name": "New Person"}})

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "John Updated", items[0].Fields["name"])
	assert.Equal(t, "2", items[1].ID)
	assert.Equal(t, "7", items[2].ID)
}

func TestStoreRemove(t *testing.T) {
	s := New(schema.CareNavigatorSchema, &fakeLister{docs: navigators()})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))
	s.Upsert(Record{ID: "3", Fields: map[string]any{"name": "Third"}})

	assert.True(t, s.Remove("2"))
	assert.False(t, s.Remove("2"))
	assert.False(t, s.Remove("missing"))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "3", items[1].ID)

	got, ok := s.Get("3")
	require.True(t, ok)
	assert.Equal(t, "Third", got.Fields["name"])
}

func TestStoreGet_ReturnsCopy(t *testing.T) {
	s := New(schema.CareNavigatorSchema, &fakeLister{docs: navigators()})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	rec, ok := s.Get("1")
	require.True(t, ok)
	rec.Fields["name"] = "mutated"

	again, _ := s.Get("1")
	assert.Equal(t, "John Doe", again.Fields["name"])
}

func TestStoreSubscribe(t *testing.T) {
	s := New(schema.CareNavigatorSchema, &fakeLister{docs: navigators()})
	defer s.Close()

	var mu sync.Mutex
	var statuses []Status
	unsubscribe := s.Subscribe(func(state State) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, state.Status)
	})

	require.NoError(t, s.Load(context.Background()))
	s.Upsert(Record{ID: "9", Fields: map[string]any{}})
	unsubscribe()
	s.Remove("9")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusLoading, StatusLoaded, StatusLoaded}, statuses)
}

func TestStoreClose_DropsLateResults(t *testing.T) {
	lister := &fakeLister{docs: navigators(), release: make(chan struct{})}
	s := New(schema.CareNavigatorSchema, lister)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Close()
	err := <-done
	assert.True(t, errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled))
	assert.Empty(t, s.Items())

	s.Upsert(Record{ID: "1"})
	assert.Empty(t, s.Items())
	assert.ErrorIs(t, s.Load(context.Background()), ErrClosed)
}

func TestFromDocument(t *testing.T) {
	rec, err := FromDocument("_id", map[string]any{"_id": 42.0, "tags": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)

	_, err = FromDocument("_id", map[string]any{"_id": "  "})
	assert.ErrorIs(t, err, ErrMissingID)

	doc := rec.Document("_id")
	assert.Equal(t, "42", doc["_id"])
	assert.Equal(t, []any{"a"}, doc["tags"])
}
