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
	"github.com/franchise-pos/api/internal/service"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuItemStore defines the database methods needed by menu item
// handlers. Satisfied by *store.Queries.
type MenuItemStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (store.MenuItem, error)
	ListMenuItems(ctx context.Context, locationIDs []uuid.UUID) ([]store.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg store.CreateMenuItemParams) (store.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg store.UpdateMenuItemParams) (store.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetCategory(ctx context.Context, id uuid.UUID) (store.Category, error)
}

// MenuItemHandler handles menu item CRUD. Every write keeps the
// invariant that an item's category belongs to the item's location.
type MenuItemHandler struct {
	store MenuItemStore
}

func NewMenuItemHandler(store MenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store}
}

func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Create)
	r.Put("/", h.Replace)
	r.Patch("/", h.Update)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	LocationID  string `json:"location_id"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	IsAvailable *bool  `json:"is_available"`
}

// updateMenuItemRequest is a partial update: absent fields stay
// untouched.
type updateMenuItemRequest struct {
	CategoryID  *string `json:"category_id"`
	Name        *string `json:"name"`
	Price       *string `json:"price"`
	ImageURL    *string `json:"image_url"`
	IsAvailable *bool   `json:"is_available"`
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	LocationID  uuid.UUID `json:"location_id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMenuItemResponse(m store.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          m.ID,
		LocationID:  m.LocationID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Price:       service.NumericToDecimal(m.Price).StringFixed(2),
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
	}
	if m.ImageURL.Valid {
		resp.ImageURL = &m.ImageURL.String
	}
	return resp
}

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errors.New("price must be >= 0")
	}
	return service.DecimalToNumeric(d), nil
}

// --- Handlers ---

// Get returns one menu item when ?id= is given, otherwise the
// available items in the caller's scope.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	if idStr := r.URL.Query().Get("id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		item, err := h.store.GetMenuItem(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusNotFound, "menu item not found")
				return
			}
			log.Printf("ERROR: get menu item: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := authz.Authorize(p, authz.ActionRead, item.LocationID); err != nil {
			writeDenial(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMenuItemResponse(item))
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), p.Scope.IDs())
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a menu item to a location in the caller's scope. The
// category must belong to the same location.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location_id")
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	if err := authz.Authorize(p, authz.ActionCreate, locationID); err != nil {
		writeDenial(w, err)
		return
	}

	if err := h.checkCategoryLocation(r.Context(), w, categoryID, locationID); err != nil {
		return
	}

	imageURL := pgtype.Text{}
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), store.CreateMenuItemParams{
		LocationID:  locationID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Price:       price,
		ImageURL:    imageURL,
		IsAvailable: isAvailable,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Replace overwrites every mutable field of the menu item given by
// ?id=. The item stays at its location.
func (h *MenuItemHandler) Replace(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	current, ok := h.loadForWrite(w, r, p, id)
	if !ok {
		return
	}
	if err := h.checkCategoryLocation(r.Context(), w, categoryID, current.LocationID); err != nil {
		return
	}

	imageURL := pgtype.Text{}
	if req.ImageURL != "" {
		imageURL = pgtype.Text{String: req.ImageURL, Valid: true}
	}
	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	item, err := h.store.UpdateMenuItem(r.Context(), store.UpdateMenuItemParams{
		ID:          id,
		LocationID:  current.LocationID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Price:       price,
		ImageURL:    imageURL,
		IsAvailable: isAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Update applies a partial update to the menu item given by ?id=.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, ok := h.loadForWrite(w, r, p, id)
	if !ok {
		return
	}

	params := store.UpdateMenuItemParams{
		ID:          id,
		LocationID:  current.LocationID,
		CategoryID:  current.CategoryID,
		Name:        current.Name,
		Price:       current.Price,
		ImageURL:    current.ImageURL,
		IsAvailable: current.IsAvailable,
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		params.Name = *req.Name
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		params.Price = price
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		if err := h.checkCategoryLocation(r.Context(), w, categoryID, current.LocationID); err != nil {
			return
		}
		params.CategoryID = categoryID
	}
	if req.ImageURL != nil {
		params.ImageURL = pgtype.Text{}
		if *req.ImageURL != "" {
			params.ImageURL = pgtype.Text{String: *req.ImageURL, Valid: true}
		}
	}
	if req.IsAvailable != nil {
		params.IsAvailable = *req.IsAvailable
	}

	item, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete removes the menu item given by ?id=.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	current, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.Authorize(p, authz.ActionDelete, current.LocationID); err != nil {
		writeDenial(w, err)
		return
	}

	if _, err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadForWrite fetches the item and authorizes an update at its
// location, writing the error response itself on failure.
func (h *MenuItemHandler) loadForWrite(w http.ResponseWriter, r *http.Request, p authz.Principal, id uuid.UUID) (store.MenuItem, bool) {
	current, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return store.MenuItem{}, false
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return store.MenuItem{}, false
	}
	if err := authz.Authorize(p, authz.ActionUpdate, current.LocationID); err != nil {
		writeDenial(w, err)
		return store.MenuItem{}, false
	}
	return current, true
}

// checkCategoryLocation rejects a category that does not exist or
// belongs to a different location, writing the response on failure and
// returning a non-nil error to signal the caller to stop.
func (h *MenuItemHandler) checkCategoryLocation(ctx context.Context, w http.ResponseWriter, categoryID, locationID uuid.UUID) error {
	category, err := h.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "category does not exist")
			return err
		}
		log.Printf("ERROR: get category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return err
	}
	if category.LocationID != locationID {
		writeError(w, http.StatusBadRequest, "category belongs to a different location")
		return errors.New("category location mismatch")
	}
	return nil
}
