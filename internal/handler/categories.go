package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/franchise-pos/api/internal/authz"
	"github.com/franchise-pos/api/internal/middleware"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryStore defines the database methods needed by category
// handlers. Satisfied by *store.Queries.
type CategoryStore interface {
	GetCategory(ctx context.Context, id uuid.UUID) (store.Category, error)
	ListCategories(ctx context.Context, locationIDs []uuid.UUID) ([]store.Category, error)
	CreateCategory(ctx context.Context, arg store.CreateCategoryParams) (store.Category, error)
	UpdateCategory(ctx context.Context, arg store.UpdateCategoryParams) (store.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// CategoryHandler handles menu category CRUD.
type CategoryHandler struct {
	store CategoryStore
}

func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Put("/", h.Update)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type createCategoryRequest struct {
	LocationID   string `json:"location_id"`
	Name         string `json:"name"`
	DisplayOrder int32  `json:"display_order"`
}

type updateCategoryRequest struct {
	Name         string `json:"name"`
	DisplayOrder int32  `json:"display_order"`
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	LocationID   uuid.UUID `json:"location_id"`
	Name         string    `json:"name"`
	DisplayOrder int32     `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCategoryResponse(c store.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		LocationID:   c.LocationID,
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		CreatedAt:    c.CreatedAt,
	}
}

// --- Handlers ---

// Get returns one category when ?id= is given, otherwise the caller's
// scoped listing ordered by display_order.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	if idStr := r.URL.Query().Get("id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		category, err := h.store.GetCategory(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "category not found")
				return
			}
			log.Printf("ERROR: get category: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := authz.Authorize(p, authz.ActionRead, category.LocationID); err != nil {
			writeDenial(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCategoryResponse(category))
		return
	}

	categories, err := h.store.ListCategories(r.Context(), p.Scope.IDs())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a category to a location in the caller's scope.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.DisplayOrder < 0 {
		writeError(w, http.StatusBadRequest, "display_order must be >= 0")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location_id")
		return
	}

	if err := authz.Authorize(p, authz.ActionCreate, locationID); err != nil {
		writeDenial(w, err)
		return
	}

	category, err := h.store.CreateCategory(r.Context(), store.CreateCategoryParams{
		LocationID:   locationID,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update replaces the mutable fields of the category given by ?id=.
// The category stays at its location; moving a category between
// locations is not supported.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.DisplayOrder < 0 {
		writeError(w, http.StatusBadRequest, "display_order must be >= 0")
		return
	}

	current, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: get category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.Authorize(p, authz.ActionUpdate, current.LocationID); err != nil {
		writeDenial(w, err)
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), store.UpdateCategoryParams{
		ID:           id,
		LocationID:   current.LocationID,
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: update category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete removes the category given by ?id=. Menu items under it go
// with it (FK ON DELETE CASCADE).
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	current, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: get category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.Authorize(p, authz.ActionDelete, current.LocationID); err != nil {
		writeDenial(w, err)
		return
	}

	if _, err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: delete category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
