package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process admin store used with STORAGE=memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	admins []*Admin
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) CreateAdmin(ctx context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if strings.EqualFold(a.Email, admin.Email) {
			return ErrAdminExists
		}
	}
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	copied := *admin
	m.admins = append(m.admins, &copied)
	return nil
}

func (m *MemoryRepository) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.admins {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) ListAdmins(ctx context.Context) ([]*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Admin, 0, len(m.admins))
	for _, a := range m.admins {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MemoryRepository) UpdateAdmin(ctx context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.admins {
		if a.ID == admin.ID {
			admin.CreatedAt = a.CreatedAt
			admin.UpdatedAt = time.Now().UTC()
			copied := *admin
			m.admins[i] = &copied
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.admins {
		if a.ID == id {
			m.admins = append(m.admins[:i], m.admins[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) CountSuperAdmins(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, a := range m.admins {
		if a.IsSuperAdmin {
			count++
		}
	}
	return count, nil
}
