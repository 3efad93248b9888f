package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/franchise-pos/api/internal/authz"
	"github.com/franchise-pos/api/internal/enum"
	"github.com/franchise-pos/api/internal/middleware"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// LocationStore defines the database methods needed by location
// handlers. Satisfied by *store.Queries.
type LocationStore interface {
	GetLocation(ctx context.Context, id uuid.UUID) (store.Location, error)
	ListLocations(ctx context.Context, ids []uuid.UUID) ([]store.Location, error)
	CreateLocation(ctx context.Context, arg store.CreateLocationParams) (store.Location, error)
	UpdateLocation(ctx context.Context, arg store.UpdateLocationParams) (store.Location, error)
	DeleteLocation(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// LocationHandler handles location CRUD. Creation and deletion are
// super-admin operations; updates are allowed within scope.
type LocationHandler struct {
	store LocationStore
}

func NewLocationHandler(store LocationStore) *LocationHandler {
	return &LocationHandler{store: store}
}

func (h *LocationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Get("/names", h.Names)
	r.Post("/", h.Create)
	r.Patch("/", h.Update)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type createLocationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone"`
}

type updateLocationRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Phone   *string `json:"phone"`
}

type locationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type locationNameResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func toLocationResponse(l store.Location) locationResponse {
	resp := locationResponse{
		ID:        l.ID,
		Name:      l.Name,
		Address:   l.Address,
		City:      l.City,
		State:     l.State,
		CreatedAt: l.CreatedAt,
	}
	if l.Phone.Valid {
		resp.Phone = &l.Phone.String
	}
	return resp
}

// --- Handlers ---

// Get returns one location when ?id= is given, otherwise every
// location in the caller's scope.
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	if idStr := r.URL.Query().Get("id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		if err := authz.Authorize(p, authz.ActionRead, id); err != nil {
			writeDenial(w, err)
			return
		}
		location, err := h.store.GetLocation(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "location not found")
				return
			}
			log.Printf("ERROR: get location: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, toLocationResponse(location))
		return
	}

	locations, err := h.listScoped(r.Context(), p)
	if err != nil {
		log.Printf("ERROR: list locations: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]locationResponse, len(locations))
	for i, l := range locations {
		resp[i] = toLocationResponse(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Names returns id and name pairs for the caller's scope, for
// populating selection lists without the full record.
func (h *LocationHandler) Names(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	locations, err := h.listScoped(r.Context(), p)
	if err != nil {
		log.Printf("ERROR: list location names: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]locationNameResponse, len(locations))
	for i, l := range locations {
		resp[i] = locationNameResponse{ID: l.ID, Name: l.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LocationHandler) listScoped(ctx context.Context, p authz.Principal) ([]store.Location, error) {
	scopeIDs := p.Scope.IDs()
	if scopeIDs != nil && len(scopeIDs) == 0 {
		// Scoped to nothing; skip the query.
		return nil, nil
	}
	return h.store.ListLocations(ctx, scopeIDs)
}

// Create adds a location. Super admin only: locations define the scope
// franchise admins are granted, so admins cannot mint their own.
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := requireSuperAdmin(p); err != nil {
		writeDenial(w, err)
		return
	}

	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	phone := pgtype.Text{}
	if req.Phone != "" {
		phone = pgtype.Text{String: req.Phone, Valid: true}
	}

	location, err := h.store.CreateLocation(r.Context(), store.CreateLocationParams{
		Name:    req.Name,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Phone:   phone,
	})
	if err != nil {
		log.Printf("ERROR: create location: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toLocationResponse(location))
}

// Update applies a partial update to the location given by ?id=.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := authz.Authorize(p, authz.ActionUpdate, id); err != nil {
		writeDenial(w, err)
		return
	}

	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.GetLocation(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Printf("ERROR: get location: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	params := store.UpdateLocationParams{
		ID:      id,
		Name:    current.Name,
		Address: current.Address,
		City:    current.City,
		State:   current.State,
		Phone:   current.Phone,
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		params.Name = *req.Name
	}
	if req.Address != nil {
		params.Address = *req.Address
	}
	if req.City != nil {
		params.City = *req.City
	}
	if req.State != nil {
		params.State = *req.State
	}
	if req.Phone != nil {
		params.Phone = pgtype.Text{}
		if *req.Phone != "" {
			params.Phone = pgtype.Text{String: *req.Phone, Valid: true}
		}
	}

	location, err := h.store.UpdateLocation(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Printf("ERROR: update location: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toLocationResponse(location))
}

// Delete removes the location given by ?id= together with everything
// assigned to it. Super admin only.
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := requireSuperAdmin(p); err != nil {
		writeDenial(w, err)
		return
	}

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := h.store.DeleteLocation(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "location not found")
			return
		}
		log.Printf("ERROR: delete location: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func requireSuperAdmin(p authz.Principal) error {
	if !p.Authenticated() {
		return &authz.Denial{Reason: authz.ReasonNotAuthenticated}
	}
	if p.Role != enum.RoleSuperAdmin {
		return &authz.Denial{Reason: authz.ReasonRoleNotPermitted}
	}
	return nil
}
