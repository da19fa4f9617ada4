package record

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/baseplate/console/internal/storage/postgres"
)

type PostgresRepository struct {
	db *postgres.Client
}

func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (id, resource, data)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	return r.db.DB.QueryRowContext(ctx, query,
		rec.ID, rec.Resource, data,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *PostgresRepository) GetByID(ctx context.Context, resource string, id uuid.UUID) (*Record, error) {
	query := `
		SELECT id, resource, data, created_at, updated_at
		FROM records
		WHERE resource = $1 AND id = $2`

	rec := &Record{}
	var data []byte
	err := r.db.DB.QueryRowContext(ctx, query, resource, id).Scan(
		&rec.ID, &rec.Resource, &data, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, resource string) ([]*Record, error) {
	query := `
		SELECT id, resource, data, created_at, updated_at
		FROM records
		WHERE resource = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.DB.QueryContext(ctx, query, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.Resource, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}

	query := `
		UPDATE records
		SET data = $3, updated_at = CURRENT_TIMESTAMP
		WHERE resource = $1 AND id = $2
		RETURNING updated_at`

	err = r.db.DB.QueryRowContext(ctx, query, rec.Resource, rec.ID, data).Scan(&rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, resource string, id uuid.UUID) error {
	query := `DELETE FROM records WHERE resource = $1 AND id = $2`
	res, err := r.db.DB.ExecContext(ctx, query, resource, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
