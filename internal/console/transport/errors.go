package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed collection call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication required")
	ErrNotFound   = errors.New("record not found")
	ErrNetwork    = errors.New("no response from server")
	ErrServer     = errors.New("server error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrAuth
	case KindNotFound:
		return ErrNotFound
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrServer
	}
}

// Error is a classified failure. errors.Is matches it against the sentinel
// of its Kind, so callers can write errors.Is(err, transport.ErrNotFound).
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Details holds the individual field errors of a validation failure.
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = e.Kind.sentinel().Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("http %d: %s", e.StatusCode, message)
	}
	return message
}

func (e *Error) Is(target error) bool {
	return e != nil && target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether a single silent retry may absorb the failure.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindNetwork
}

// Display is the operator-facing message for the failure.
func (e *Error) Display() string {
	if e == nil {
		return ""
	}
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	return e.Kind.sentinel().Error()
}

func IsKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// Message extracts the operator-facing text from any error.
func Message(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Display()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// envelope is the response body shared by every collection endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Classify derives a failure from the HTTP status and the body shape. It
// returns nil when the response is a success.
func Classify(status int, body []byte) *Error {
	var env envelope
	parsed := len(body) > 0 && json.Unmarshal(body, &env) == nil

	message := strings.TrimSpace(env.Message)
	if message == "" {
		message = strings.TrimSpace(env.Error)
	}

	switch {
	case status == http.StatusBadRequest:
		return validationError(status, env.Errors, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, StatusCode: status, Message: fallback(message, "missing or expired credential")}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: status, Message: fallback(message, "record no longer exists")}
	case status >= 200 && status < 300:
		if !parsed {
			if len(body) == 0 {
				return nil
			}
			return &Error{Kind: KindServer, StatusCode: status, Message: "malformed response body"}
		}
		if env.Success {
			return nil
		}
		if len(env.Errors) > 0 {
			return validationError(status, env.Errors, message)
		}
		return &Error{Kind: KindServer, StatusCode: status, Message: fallback(message, "request was not successful")}
	default:
		return &Error{Kind: KindServer, StatusCode: status, Message: fallback(message, http.StatusText(status))}
	}
}

func validationError(status int, details []string, message string) *Error {
	if len(details) > 0 {
		message = strings.Join(details, ", ")
	}
	return &Error{
		Kind:       KindValidation,
		StatusCode: status,
		Message:    fallback(message, "validation failed"),
		Details:    append([]string(nil), details...),
	}
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
