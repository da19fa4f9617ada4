package auth

import (
	"time"

	"github.com/google/uuid"
)

type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Contact      string    `json:"contact,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Document is the admin as served on the admin profile collection.
func (a *Admin) Document() map[string]interface{} {
	doc := map[string]interface{}{
		"_id":          a.ID.String(),
		"email":        a.Email,
		"isSuperAdmin": a.IsSuperAdmin,
	}
	if a.Contact != "" {
		doc["contact"] = a.Contact
	}
	if !a.CreatedAt.IsZero() {
		doc["createdAt"] = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !a.UpdatedAt.IsZero() {
		doc["updatedAt"] = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Success bool                   `json:"success"`
	Token   string                 `json:"token"`
	User    map[string]interface{} `json:"user"`
}
