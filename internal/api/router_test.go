package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/baseplate/console/config"
	"github.com/baseplate/console/internal/api/handlers"
	"github.com/baseplate/console/internal/core/auth"
	"github.com/baseplate/console/internal/core/record"
	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
}

func newTestEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	validator := validation.NewValidator()
	authService := auth.NewService(auth.NewMemoryRepository(), &config.JWTConfig{Secret: "test", ExpirationHours: 1}, validator)
	if _, err := authService.EnsureSuperAdmin(context.Background(), "root@example.com", "rootpw"); err != nil {
		t.Fatalf("EnsureSuperAdmin() error = %v", err)
	}
	records := record.NewService(record.NewMemoryRepository(), validator)

	router := NewRouter(authService, handlers.NewAuthHandler(authService),
		handlers.NewCollectionHandler(schema.CareNavigatorSchema, records.Collection(schema.CareNavigatorSchema)),
		handlers.NewCollectionHandler(schema.AdminSchema, authService),
	)
	engine := router.Setup(gin.TestMode)

	resp := do(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "rootpw"})
	if resp.Token == "" {
		t.Fatalf("login returned no token: %+v", resp)
	}
	return engine, resp.Token
}

func do(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) envelope {
	t.Helper()
	resp, _ := doStatus(t, engine, method, path, token, body)
	return resp
}

func doStatus(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (envelope, int) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad body %q", method, path, w.Body.String())
	}
	return env, w.Code
}

func TestRouter_Health(t *testing.T) {
	engine, _ := newTestEngine(t)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRouter_CollectionLifecycle(t *testing.T) {
	engine, token := newTestEngine(t)
	const path = "/api/care-navigators"

	list, code := doStatus(t, engine, http.MethodGet, path, "", nil)
	if code != http.StatusOK || string(list.Data) != "[]" {
		t.Fatalf("initial list = %d %s", code, list.Data)
	}

	navigator := map[string]string{"name": "Jane Smith", "email": "jane@example.com", "phone": "555-0101"}
	if _, code := doStatus(t, engine, http.MethodPost, path, "", navigator); code != http.StatusUnauthorized {
		t.Errorf("create without token = %d, want 401", code)
	}

	created, code := doStatus(t, engine, http.MethodPost, path, token, navigator)
	if code != http.StatusCreated || !created.Success {
		t.Fatalf("create = %d %+v", code, created)
	}
	var doc map[string]interface{}
	_ = json.Unmarshal(created.Data, &doc)
	id, _ := doc["_id"].(string)
	if id == "" {
		t.Fatalf("created record has no _id: %s", created.Data)
	}

	bad, code := doStatus(t, engine, http.MethodPut, path+"/"+id, token, map[string]string{"email": "nope"})
	if code != http.StatusBadRequest || len(bad.Errors) != 1 || bad.Errors[0] != "Email invalid" {
		t.Errorf("invalid update = %d %+v", code, bad)
	}

	updated, code := doStatus(t, engine, http.MethodPut, path+"/"+id, token, map[string]string{"phone": "555-9999"})
	if code != http.StatusOK {
		t.Fatalf("update = %d %+v", code, updated)
	}
	_ = json.Unmarshal(updated.Data, &doc)
	if doc["phone"] != "555-9999" || doc["name"] != "Jane Smith" {
		t.Errorf("updated doc = %v", doc)
	}

	if _, code := doStatus(t, engine, http.MethodDelete, path+"/"+id, token, nil); code != http.StatusOK {
		t.Errorf("delete = %d", code)
	}
	if _, code := doStatus(t, engine, http.MethodDelete, path+"/"+id, token, nil); code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", code)
	}
}

func TestRouter_LoginRejectsBadPassword(t *testing.T) {
	engine, _ := newTestEngine(t)

	resp, code := doStatus(t, engine, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "wrong"})
	if code != http.StatusUnauthorized || resp.Success {
		t.Errorf("login = %d %+v", code, resp)
	}
	if resp.Message != "invalid email or password" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestRouter_AdminProfilesHidePasswords(t *testing.T) {
	engine, token := newTestEngine(t)

	created, code := doStatus(t, engine, http.MethodPost, "/api/admin", token, map[string]string{"email": "ops@example.com", "password": "pw", "contact": "555"})
	if code != http.StatusCreated {
		t.Fatalf("create admin = %d %+v", code, created)
	}
	if bytes.Contains(created.Data, []byte("password")) {
		t.Errorf("created admin leaks password: %s", created.Data)
	}

	dup, code := doStatus(t, engine, http.MethodPost, "/api/admin", token, map[string]string{"email": "ops@example.com", "password": "pw"})
	if code != http.StatusConflict || dup.Success {
		t.Errorf("duplicate admin = %d %+v", code, dup)
	}

	list := do(t, engine, http.MethodGet, "/api/admin", "", nil)
	var docs []map[string]interface{}
	_ = json.Unmarshal(list.Data, &docs)
	if len(docs) != 2 {
		t.Errorf("admins = %v", docs)
	}
}

func TestRouter_Me(t *testing.T) {
	engine, token := newTestEngine(t)

	me := do(t, engine, http.MethodGet, "/api/auth/me", token, nil)
	var doc map[string]interface{}
	_ = json.Unmarshal(me.Data, &doc)
	if doc["email"] != "root@example.com" || doc["isSuperAdmin"] != true {
		t.Errorf("me = %v", doc)
	}
}
