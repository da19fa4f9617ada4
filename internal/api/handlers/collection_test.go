package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/baseplate/console/internal/core/auth"
	"github.com/baseplate/console/internal/core/record"
	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockCollection returns canned results for every call.
type mockCollection struct {
	docs []map[string]interface{}
	doc  map[string]interface{}
	err  error

	lastID   string
	lastData map[string]interface{}
}

func (m *mockCollection) List(ctx context.Context) ([]map[string]interface{}, error) {
	return m.docs, m.err
}

func (m *mockCollection) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	m.lastData = data
	return m.doc, m.err
}

func (m *mockCollection) Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error) {
	m.lastID, m.lastData = id, data
	return m.doc, m.err
}

func (m *mockCollection) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return m.err
}

func serve(h *CollectionHandler, method, path, body string) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.GET("/items", h.List)
	engine.POST("/items", h.Create)
	engine.PUT("/items/:id", h.Update)
	engine.DELETE("/items/:id", h.Delete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func TestCollectionHandler_ListEmptyIsArray(t *testing.T) {
	h := NewCollectionHandler(schema.PatientSchema, &mockCollection{})

	w := serve(h, http.MethodGet, "/items", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != `{"data":[],"success":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCollectionHandler_CreatePassesBody(t *testing.T) {
	m := &mockCollection{doc: map[string]interface{}{"_id": "1", "patientName": "Ann"}}
	h := NewCollectionHandler(schema.PatientSchema, m)

	w := serve(h, http.MethodPost, "/items", `{"patientName":"Ann"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if m.lastData["patientName"] != "Ann" {
		t.Errorf("collection received %v", m.lastData)
	}
	if w.Body.String() != `{"data":{"_id":"1","patientName":"Ann"},"success":true}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCollectionHandler_UpdateUsesPathID(t *testing.T) {
	m := &mockCollection{doc: map[string]interface{}{"_id": "abc"}}
	h := NewCollectionHandler(schema.PatientSchema, m)

	w := serve(h, http.MethodPut, "/items/abc", `{}`)
	if w.Code != http.StatusOK || m.lastID != "abc" {
		t.Errorf("status = %d, id = %q", w.Code, m.lastID)
	}
}

func TestCollectionHandler_MalformedBody(t *testing.T) {
	h := NewCollectionHandler(schema.PatientSchema, &mockCollection{})

	w := serve(h, http.MethodPost, "/items", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCollectionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "validation",
			err:      &validation.ValidationErrors{Errors: []validation.ValidationError{{Field: "email", Message: "Email invalid"}}},
			wantCode: http.StatusBadRequest,
			wantBody: `{"errors":["Email invalid"],"success":false}`,
		},
		{
			name:     "record not found",
			err:      record.ErrNotFound,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"Patient not found","success":false}`,
		},
		{
			name:     "admin not found",
			err:      auth.ErrNotFound,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"Patient not found","success":false}`,
		},
		{
			name:     "conflict",
			err:      auth.ErrAdminExists,
			wantCode: http.StatusConflict,
			wantBody: `{"message":"admin with this email already exists","success":false}`,
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"message":"Something went wrong","success":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCollectionHandler(schema.PatientSchema, &mockCollection{err: tt.err})
			w := serve(h, http.MethodDelete, "/items/1", "")
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}
