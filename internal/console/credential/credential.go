// Package credential supplies the bearer token attached to collection API
// calls. The engine only sees the Provider interface, so it never touches
// ambient storage directly.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider returns the current bearer token, or false when none is usable.
type Provider interface {
	Token() (string, bool)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() (string, bool)

func (f ProviderFunc) Token() (string, bool) { return f() }

// Static is a fixed token. The empty string means "no credential".
type Static string

func (s Static) Token() (string, bool) {
	token := strings.TrimSpace(string(s))
	return token, token != ""
}

// FileProvider keeps the token in a file written by the login command.
// Tokens whose exp claim has passed are reported as absent.
type FileProvider struct {
	Path string
	Now  func() time.Time
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path, Now: time.Now}
}

func (p *FileProvider) Token() (string, bool) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", false
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if Expired(token, now()) {
		return "", false
	}
	return token, true
}

func (p *FileProvider) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	return os.WriteFile(p.Path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

func (p *FileProvider) Clear() error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Expired reports whether a JWT's exp claim is at or before now. The
// signature is not checked; only the server can do that. Opaque (non-JWT)
// tokens and tokens without exp are never considered expired.
func Expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
