package record

import (
	"time"

	"github.com/google/uuid"
)

// Reserved document keys maintained by the server.
const (
	CreatedAtKey = "createdAt"
	UpdatedAtKey = "updatedAt"
)

type Record struct {
	ID        uuid.UUID              `json:"id"`
	Resource  string                 `json:"resource"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Document flattens the record into the wire shape the console expects.
func (r *Record) Document(idField string) map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Data)+3)
	for k, v := range r.Data {
		doc[k] = v
	}
	doc[idField] = r.ID.String()
	if !r.CreatedAt.IsZero() {
		doc[CreatedAtKey] = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !r.UpdatedAt.IsZero() {
		doc[UpdatedAtKey] = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

func (r *Record) clone() *Record {
	c := *r
	c.Data = make(map[string]interface{}, len(r.Data))
	for k, v := range r.Data {
		c.Data[k] = v
	}
	return &c
}
