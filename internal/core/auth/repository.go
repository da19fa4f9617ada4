package auth

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/baseplate/console/internal/storage/postgres"
)

type PostgresRepository struct {
	db *postgres.Client
}

func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const adminColumns = `id, email, password_hash, contact, is_super_admin, created_at, updated_at`

func (r *PostgresRepository) CreateAdmin(ctx context.Context, admin *Admin) error {
	query := `
		INSERT INTO admins (id, email, password_hash, contact, is_super_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	return r.db.DB.QueryRowContext(ctx, query,
		admin.ID, admin.Email, admin.PasswordHash, admin.Contact, admin.IsSuperAdmin,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)
}

func (r *PostgresRepository) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	return scanAdmin(r.db.DB.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	return scanAdmin(r.db.DB.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListAdmins(ctx context.Context) ([]*Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at ASC, id ASC`
	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []*Admin
	for rows.Next() {
		a := &Admin{}
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Contact, &a.IsSuperAdmin, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *PostgresRepository) UpdateAdmin(ctx context.Context, admin *Admin) error {
	query := `
		UPDATE admins
		SET email = $2, password_hash = $3, contact = $4, is_super_admin = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.DB.QueryRowContext(ctx, query,
		admin.ID, admin.Email, admin.PasswordHash, admin.Contact, admin.IsSuperAdmin,
	).Scan(&admin.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepository) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CountSuperAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE is_super_admin = TRUE`).Scan(&count)
	return count, err
}

func scanAdmin(row *sql.Row) (*Admin, error) {
	a := &Admin{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Contact, &a.IsSuperAdmin, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
