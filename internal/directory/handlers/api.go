package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gartstein/directory/internal/directory/auth"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/policy"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// Resource is the capability set the REST API needs from an entity.
type Resource[T any] interface {
	List(ctx context.Context, actor models.Identity) ([]T, error)
	Retrieve(ctx context.Context, actor models.Identity, id uuid.UUID) (*T, error)
	Create(ctx context.Context, actor models.Identity, in *T) (*T, error)
	Update(ctx context.Context, actor models.Identity, id uuid.UUID, in *T) (*T, error)
	Delete(ctx context.Context, actor models.Identity, id uuid.UUID) error
}

// ResourceHandler serves /api/<name> and /api/<name>/{id} for one entity.
// Reads need an authenticated caller, writes a superuser.
type ResourceHandler[T any] struct {
	name     string
	resource Resource[T]
	logger   *zap.Logger
}

func NewResourceHandler[T any](name string, resource Resource[T], logger *zap.Logger) *ResourceHandler[T] {
	return &ResourceHandler[T]{
		name:     name,
		resource: resource,
		logger:   logger.Named("api").With(zap.String("resource", name)),
	}
}

// Register mounts the collection and item routes.
func (h *ResourceHandler[T]) Register(mux *runtime.ServeMux) error {
	collection := "/api/" + h.name
	item := collection + "/{id}"

	routes := []struct {
		method  string
		pattern string
		handle  func(w http.ResponseWriter, r *http.Request, actor models.Identity, id uuid.UUID)
	}{
		{http.MethodGet, collection, h.list},
		{http.MethodPost, collection, h.create},
		{http.MethodGet, item, h.retrieve},
		{http.MethodPut, item, h.update},
		{http.MethodPatch, item, h.update},
		{http.MethodDelete, item, h.delete},
	}
	for _, route := range routes {
		handle := route.handle
		err := mux.HandlePath(route.method, route.pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			actor := auth.IdentityFromContext(r.Context())
			if err := policy.APIAccess(actor, r.Method); err != nil {
				writeError(w, h.logger, err)
				return
			}
			var id uuid.UUID
			if raw, ok := params["id"]; ok {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					writeError(w, h.logger, fmt.Errorf("%w: invalid id %q", e.ErrNotFound, raw))
					return
				}
				id = parsed
			}
			handle(w, r, actor, id)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}
	return nil
}

func (h *ResourceHandler[T]) list(w http.ResponseWriter, r *http.Request, actor models.Identity, _ uuid.UUID) {
	items, err := h.resource.List(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *ResourceHandler[T]) retrieve(w http.ResponseWriter, r *http.Request, actor models.Identity, id uuid.UUID) {
	item, err := h.resource.Retrieve(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler[T]) create(w http.ResponseWriter, r *http.Request, actor models.Identity, _ uuid.UUID) {
	in := new(T)
	if err := decodeJSON(r, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.resource.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// update serves PUT and PATCH alike: the body is overlaid on the stored
// record, so omitted keys keep their values and an explicit null clears a
// nullable field.
func (h *ResourceHandler[T]) update(w http.ResponseWriter, r *http.Request, actor models.Identity, id uuid.UUID) {
	existing, err := h.resource.Retrieve(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var changes map[string]json.RawMessage
	if err := decodeJSON(r, &changes); err != nil {
		writeError(w, h.logger, err)
		return
	}
	merged, err := overlay(existing, changes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.resource.Update(r.Context(), actor, id, merged)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler[T]) delete(w http.ResponseWriter, r *http.Request, actor models.Identity, id uuid.UUID) {
	if err := h.resource.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func overlay[T any](existing *T, changes map[string]json.RawMessage) (*T, error) {
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	for k, v := range changes {
		fields[k] = v
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	merged := new(T)
	if err := json.Unmarshal(raw, merged); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", e.ErrInvalidInput, err)
	}
	return merged, nil
}
