package record

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
)

var ErrNotFound = errors.New("record not found")

// Repository persists records grouped by resource. GetByID returns nil, nil
// when nothing matches.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, resource string, id uuid.UUID) (*Record, error)
	List(ctx context.Context, resource string) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, resource string, id uuid.UUID) error
}

type Service struct {
	repo      Repository
	validator *validation.Validator
}

func NewService(repo Repository, validator *validation.Validator) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
	}
}

func (s *Service) List(ctx context.Context, sch *schema.EntitySchema) ([]map[string]interface{}, error) {
	records, err := s.repo.List(ctx, sch.Resource())
	if err != nil {
		return nil, err
	}

	docs := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		docs = append(docs, sch.Public(rec.Document(sch.IDField())))
	}
	return docs, nil
}

func (s *Service) Create(ctx context.Context, sch *schema.EntitySchema, data map[string]interface{}) (map[string]interface{}, error) {
	data = normalize(sch, data)
	if err := s.validator.Validate(data, sch.JSONSchema()); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:       uuid.New(),
		Resource: sch.Resource(),
		Data:     data,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return sch.Public(rec.Document(sch.IDField())), nil
}

// Update merges data into the stored record and validates the result.
func (s *Service) Update(ctx context.Context, sch *schema.EntitySchema, id string, data map[string]interface{}) (map[string]interface{}, error) {
	rec, err := s.get(ctx, sch, id)
	if err != nil {
		return nil, err
	}

	for k, v := range data {
		if isEmptyOptional(sch, k, v) {
			delete(rec.Data, k)
		}
	}
	for k, v := range normalize(sch, data) {
		rec.Data[k] = v
	}

	if err := s.validator.Validate(rec.Data, sch.JSONSchema()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return sch.Public(rec.Document(sch.IDField())), nil
}

func (s *Service) Delete(ctx context.Context, sch *schema.EntitySchema, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, sch.Resource(), parsed)
}

func (s *Service) get(ctx context.Context, sch *schema.EntitySchema, id string) (*Record, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	rec, err := s.repo.GetByID(ctx, sch.Resource(), parsed)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Data == nil {
		rec.Data = make(map[string]interface{})
	}
	return rec, nil
}

// Collection binds the service to one schema.
func (s *Service) Collection(sch *schema.EntitySchema) *Collection {
	return &Collection{svc: s, schema: sch}
}

type Collection struct {
	svc    *Service
	schema *schema.EntitySchema
}

func (c *Collection) List(ctx context.Context) ([]map[string]interface{}, error) {
	return c.svc.List(ctx, c.schema)
}

func (c *Collection) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	return c.svc.Create(ctx, c.schema, data)
}

func (c *Collection) Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error) {
	return c.svc.Update(ctx, c.schema, id, data)
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	return c.svc.Delete(ctx, c.schema, id)
}

// normalize drops server-maintained keys and blank optional values, and
// turns numeric strings into numbers for number fields.
func normalize(sch *schema.EntitySchema, data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if k == sch.IDField() || k == CreatedAtKey || k == UpdatedAtKey {
			continue
		}
		if isEmptyOptional(sch, k, v) {
			continue
		}
		if f, ok := sch.Field(k); ok && f.Type == schema.FieldNumber {
			if str, isStr := v.(string); isStr {
				if n, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
					v = n
				}
			}
		}
		out[k] = v
	}
	return out
}

func isEmptyOptional(sch *schema.EntitySchema, name string, v interface{}) bool {
	f, ok := sch.Field(name)
	if !ok || f.Required {
		return false
	}
	if v == nil {
		return true
	}
	str, isStr := v.(string)
	return isStr && strings.TrimSpace(str) == ""
}
