package screen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseplate/console/internal/console/credential"
	"github.com/baseplate/console/internal/console/dialog"
	"github.com/baseplate/console/internal/console/store"
	"github.com/baseplate/console/internal/console/transport"
	"github.com/baseplate/console/internal/core/schema"
)

// fakeAPI serves /api/care-navigators with the collection envelope.
type fakeAPI struct {
	gets    atomic.Int32
	deletes atomic.Int32
	hold    chan struct{}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet:
		f.gets.Add(1)
		if f.hold != nil {
			<-f.hold
		}
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"_id":"1","name":"John Doe","email":"john@example.com","phone":"1"},
			{"_id":"2","name":"Jane Smith","email":"jane@example.com","phone":"2"}]}`)
	case r.Method == http.MethodPut:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.Contains(body["email"].(string), "@") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"errors":["Email invalid"]}`)
			return
		}
		body["_id"] = strings.TrimPrefix(r.URL.Path, "/api/care-navigators/")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": body})
	case r.Method == http.MethodDelete:
		f.deletes.Add(1)
		_, _ = io.WriteString(w, `{"success":true}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newScreen(t *testing.T, api *fakeAPI) *Screen {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := transport.NewWithClient(srv.URL, srv.Client()).
		WithUnaryTimeout(time.Second).
		WithCredentials(credential.Static("tok"))
	sc := New(schema.CareNavigatorSchema, client, Options{NotificationTTL: time.Minute})
	t.Cleanup(sc.Close)
	return sc
}

func visibleIDs(sc *Screen) []string {
	var ids []string
	for _, rec := range sc.View.Visible() {
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestScreen_LoadAndSearch(t *testing.T) {
	sc := newScreen(t, &fakeAPI{})
	require.NoError(t, sc.Open(context.Background()))

	sc.View.SetQuery("jane")
	assert.Equal(t, []string{"2"}, visibleIDs(sc))
	sc.View.SetQuery("")
	assert.Equal(t, []string{"1", "2"}, visibleIDs(sc))
}

func TestScreen_BackToBackLoadsIssueOneGet(t *testing.T) {
	api := &fakeAPI{hold: make(chan struct{})}
	sc := newScreen(t, api)

	errs := make(chan error, 2)
	go func() { errs <- sc.Store.Load(context.Background()) }()
	require.Eventually(t, func() bool { return api.gets.Load() == 1 }, time.Second, 5*time.Millisecond)
	go func() { errs <- sc.Store.Load(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(api.hold)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), api.gets.Load())
}

func TestScreen_EditValidationFailure(t *testing.T) {
	sc := newScreen(t, &fakeAPI{})
	require.NoError(t, sc.Open(context.Background()))

	require.NoError(t, sc.Dialog.OpenEdit("1"))
	require.NoError(t, sc.Dialog.SetField("email", "broken"))
	require.ErrorIs(t, sc.Dialog.Confirm(context.Background()), transport.ErrValidation)

	session := sc.Dialog.Session()
	assert.Equal(t, dialog.Editing, session.Mode)
	assert.Equal(t, "Email invalid", session.Error)
	rec, _ := sc.Store.Get("1")
	assert.Equal(t, "john@example.com", rec.Fields["email"])
}

func TestScreen_DeleteRemovesAndNotifies(t *testing.T) {
	api := &fakeAPI{}
	sc := newScreen(t, api)
	require.NoError(t, sc.Open(context.Background()))
	sc.View.SetQuery("jane")

	require.NoError(t, sc.Dialog.RequestDelete("2"))
	require.NoError(t, sc.Dialog.ConfirmDelete(context.Background()))

	assert.Equal(t, int32(1), api.deletes.Load())
	assert.Empty(t, visibleIDs(sc))
	assert.Len(t, sc.Store.Items(), 1)
	items := sc.Notices.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Care navigator deleted successfully", items[0].Message)
}

func TestScreen_LoadWithoutResponseFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := transport.NewWithClient(url, &http.Client{}).WithUnaryTimeout(time.Second)
	sc := New(schema.CareNavigatorSchema, client, Options{})
	defer sc.Close()
	sc.Store.Upsert(store.Record{ID: "kept", Fields: map[string]any{"name": "Local"}})

	require.ErrorIs(t, sc.Open(context.Background()), transport.ErrNetwork)
	state := sc.Store.State()
	assert.Equal(t, store.StatusFailed, state.Status)
	require.NotNil(t, state.LastError)
	assert.Equal(t, transport.KindNetwork, state.LastError.Kind)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "kept", state.Items[0].ID)
}
