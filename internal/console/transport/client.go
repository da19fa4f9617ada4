// Package transport is the request/response collaborator between the
// console engine and the collection API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baseplate/console/internal/console/credential"
)

const (
	defaultUnaryTimeout = 10 * time.Second
	maxResponseBody     = 10 * 1024 * 1024
)

type Client struct {
	baseURL      string
	client       *http.Client
	credentials  credential.Provider
	unaryTimeout time.Duration
}

func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		unaryTimeout: defaultUnaryTimeout,
	}
}

func (c *Client) WithUnaryTimeout(timeout time.Duration) *Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.unaryTimeout = timeout
	return &clone
}

// WithCredentials attaches a bearer token provider. Mutating calls fail
// with an auth error, without reaching the network, when it has no token.
func (c *Client) WithCredentials(p credential.Provider) *Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.credentials = p
	return &clone
}

func (c *Client) List(ctx context.Context, endpoint string) ([]map[string]any, error) {
	env, err := c.request(ctx, http.MethodGet, endpoint, nil, false)
	if err != nil {
		return nil, err
	}
	var items []map[string]any
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, &Error{Kind: KindServer, Message: "malformed collection payload", Err: err}
		}
	}
	if items == nil {
		items = []map[string]any{}
	}
	return items, nil
}

func (c *Client) Create(ctx context.Context, endpoint string, fields map[string]any) (map[string]any, error) {
	env, err := c.request(ctx, http.MethodPost, endpoint, fields, true)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env)
}

func (c *Client) Update(ctx context.Context, endpoint, id string, fields map[string]any) (map[string]any, error) {
	env, err := c.request(ctx, http.MethodPut, endpoint+"/"+url.PathEscape(id), fields, true)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env)
}

func (c *Client) Delete(ctx context.Context, endpoint, id string) error {
	_, err := c.request(ctx, http.MethodDelete, endpoint+"/"+url.PathEscape(id), nil, true)
	return err
}

// LoginResponse is the body of POST /api/auth/login.
type LoginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	User    map[string]any `json:"user"`
	Message string         `json:"message,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	if classified := Classify(status, body); classified != nil {
		return nil, classified
	}
	var resp LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindServer, StatusCode: status, Message: "malformed login response", Err: err}
	}
	if resp.Token == "" {
		return nil, &Error{Kind: KindServer, StatusCode: status, Message: "login response carried no token"}
	}
	return &resp, nil
}

func (c *Client) request(ctx context.Context, method, path string, payload any, mutating bool) (*envelope, error) {
	token := ""
	if c.credentials != nil {
		if t, ok := c.credentials.Token(); ok {
			token = t
		}
	}
	if mutating && token == "" {
		return nil, &Error{Kind: KindAuth, Message: "missing or expired credential"}
	}

	body, status, err := c.do(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if classified := Classify(status, body); classified != nil {
		return nil, classified
	}

	env := &envelope{Success: true}
	if len(body) > 0 {
		if err := json.Unmarshal(body, env); err != nil {
			return nil, &Error{Kind: KindServer, StatusCode: status, Message: "malformed response body", Err: err}
		}
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, token string) ([]byte, int, error) {
	if c.unaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.unaryTimeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// A caller cancellation is not a connectivity failure.
		if errors.Is(err, context.Canceled) {
			return nil, 0, err
		}
		return nil, 0, &Error{Kind: KindNetwork, Message: "no response from server", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "response body interrupted", Err: err}
	}
	return body, resp.StatusCode, nil
}

func decodeRecord(env *envelope) (map[string]any, error) {
	var record map[string]any
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &record); err != nil {
			return nil, &Error{Kind: KindServer, Message: "malformed record payload", Err: err}
		}
	}
	if record == nil {
		record = map[string]any{}
	}
	return record, nil
}
