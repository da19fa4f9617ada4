package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baseplate/console/internal/core/auth"
	"github.com/baseplate/console/internal/core/record"
	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
)

// Collection is a CRUD backend for one resource. Records travel as flat
// documents carrying their id under the schema's id field.
type Collection interface {
	List(ctx context.Context) ([]map[string]interface{}, error)
	Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error)
	Update(ctx context.Context, id string, data map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, id string) error
}

type CollectionHandler struct {
	schema     *schema.EntitySchema
	collection Collection
}

func NewCollectionHandler(s *schema.EntitySchema, collection Collection) *CollectionHandler {
	return &CollectionHandler{schema: s, collection: collection}
}

func (h *CollectionHandler) Schema() *schema.EntitySchema { return h.schema }

func (h *CollectionHandler) List(c *gin.Context) {
	docs, err := h.collection.List(c.Request.Context())
	if err != nil {
		h.handleError(c, "list", err)
		return
	}
	if docs == nil {
		docs = []map[string]interface{}{}
	}
	respondData(c, http.StatusOK, docs)
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.collection.Create(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, "create", err)
		return
	}
	respondData(c, http.StatusCreated, doc)
}

func (h *CollectionHandler) Update(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.collection.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.handleError(c, "update", err)
		return
	}
	respondData(c, http.StatusOK, doc)
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.collection.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, "delete", err)
		return
	}
	respondOK(c, http.StatusOK)
}

func (h *CollectionHandler) handleError(c *gin.Context, op string, err error) {
	switch {
	case validation.IsValidationError(err):
		respondErrors(c, http.StatusBadRequest, validation.GetValidationErrors(err).Messages())
	case errors.Is(err, record.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		respondError(c, http.StatusNotFound, h.schema.DisplayName()+" not found")
	case errors.Is(err, auth.ErrAdminExists), errors.Is(err, auth.ErrLastSuperAdmin):
		respondError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("handlers: %s %s failed: %v", h.schema.Resource(), op, err)
		respondError(c, http.StatusInternalServerError, "Something went wrong")
	}
}
