package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/baseplate/console/config"
	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminExists        = errors.New("admin with this email already exists")
	ErrLastSuperAdmin     = errors.New("cannot remove the last super admin")
	ErrNotFound           = errors.New("admin not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Repository persists admin profiles. Lookups return nil, nil when nothing
// matches.
type Repository interface {
	CreateAdmin(ctx context.Context, admin *Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	ListAdmins(ctx context.Context) ([]*Admin, error)
	UpdateAdmin(ctx context.Context, admin *Admin) error
	DeleteAdmin(ctx context.Context, id uuid.UUID) error
	CountSuperAdmins(ctx context.Context) (int, error)
}

type Service struct {
	repo      Repository
	config    *config.JWTConfig
	validator *validation.Validator
}

func NewService(repo Repository, cfg *config.JWTConfig, validator *validation.Validator) *Service {
	return &Service{repo: repo, config: cfg, validator: validator}
}

type JWTClaims struct {
	AdminID      uuid.UUID `json:"admin_id"`
	Email        string    `json:"email"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	jwt.RegisteredClaims
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Success: true, Token: token, User: admin.Document()}, nil
}

func (s *Service) generateToken(admin *Admin) (string, error) {
	claims := JWTClaims{
		AdminID:      admin.ID,
		Email:        admin.Email,
		IsSuperAdmin: admin.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.ExpirationDuration())),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// EnsureSuperAdmin creates the first super admin, or promotes an existing
// admin with that email. It reports whether anything changed.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		return false, err
	}

	if existing != nil {
		if existing.IsSuperAdmin {
			return false, nil
		}
		existing.IsSuperAdmin = true
		return true, s.repo.UpdateAdmin(ctx, existing)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := &Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		IsSuperAdmin: true,
	}
	return true, s.repo.CreateAdmin(ctx, admin)
}

// Admin profile collection.

func (s *Service) List(ctx context.Context) ([]map[string]interface{}, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]interface{}, 0, len(admins))
	for _, a := range admins {
		docs = append(docs, a.Document())
	}
	return docs, nil
}

func (s *Service) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	email, password, contact := fields(data)
	if err := s.validate(email, contact); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, &validation.ValidationErrors{Errors: []validation.ValidationError{
			{Field: "password", Message: "Password is required"},
		}}
	}

	existing, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAdminExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Contact:      contact,
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin.Document(), nil
}

// Update changes an admin profile. A blank password keeps the current one.
func (s *Service) Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error) {
	admin, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	email, password, contact := fields(data)
	if _, ok := data["email"]; !ok {
		email = admin.Email
	}
	if _, ok := data["contact"]; !ok {
		contact = admin.Contact
	}
	if err := s.validate(email, contact); err != nil {
		return nil, err
	}

	if email != admin.Email {
		other, err := s.repo.GetAdminByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != admin.ID {
			return nil, ErrAdminExists
		}
	}

	admin.Email = email
	admin.Contact = contact
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin.Document(), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	admin, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if admin.IsSuperAdmin {
		count, err := s.repo.CountSuperAdmins(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastSuperAdmin
		}
	}
	return s.repo.DeleteAdmin(ctx, admin.ID)
}

func (s *Service) get(ctx context.Context, id string) (*Admin, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	admin, err := s.repo.GetAdminByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	return admin, nil
}

func (s *Service) validate(email, contact string) error {
	doc := map[string]interface{}{"email": email}
	if contact != "" {
		doc["contact"] = contact
	}
	return s.validator.Validate(doc, schema.AdminSchema.JSONSchema())
}

func fields(data map[string]interface{}) (email, password, contact string) {
	str := func(key string) string {
		if v, ok := data[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	password, _ = data["password"].(string)
	return normalizeEmail(str("email")), password, str("contact")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
