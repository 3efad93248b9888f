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
)

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *store.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.OrderSummary, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]store.OrderItemDetail, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
}

// OrderCreator creates orders transactionally. Satisfied by
// *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderHandler handles order creation and history.
type OrderHandler struct {
	store  OrderStore
	orders OrderCreator
	// allowAnonymous permits order creation without a token, for
	// self-service kiosks.
	allowAnonymous bool
}

func NewOrderHandler(store OrderStore, orders OrderCreator, allowAnonymous bool) *OrderHandler {
	return &OrderHandler{store: store, orders: orders, allowAnonymous: allowAnonymous}
}

// RegisterCreateRoute registers the order creation endpoint. Mounted
// with optional authentication so anonymous kiosk traffic reaches it.
func (h *OrderHandler) RegisterCreateRoute(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterHistoryRoutes registers the order history endpoints.
// Mounted behind authentication.
func (h *OrderHandler) RegisterHistoryRoutes(r chi.Router) {
	r.Get("/", h.Get)
}

// --- Request / Response types ---

type createOrderRequest struct {
	LocationID string                   `json:"location_id"`
	Items      []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name,omitempty"`
	Quantity     int32     `json:"quantity"`
	Price        string    `json:"price"`
	Notes        *string   `json:"notes"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	LocationID      uuid.UUID           `json:"location_id"`
	LocationName    string              `json:"location_name,omitempty"`
	OrderNumber     string              `json:"order_number"`
	OrderDate       time.Time           `json:"order_date"`
	TotalAmount     string              `json:"total_amount"`
	ProcessedBy     *uuid.UUID          `json:"processed_by"`
	ProcessedByName *string             `json:"processed_by_name,omitempty"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o store.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		LocationID:  o.LocationID,
		OrderNumber: o.OrderNumber,
		OrderDate:   o.OrderDate,
		TotalAmount: service.NumericToDecimal(o.TotalAmount).StringFixed(2),
	}
	if o.ProcessedBy.Valid {
		id := uuid.UUID(o.ProcessedBy.Bytes)
		resp.ProcessedBy = &id
	}
	return resp
}

func toOrderItemResponse(it store.OrderItem, menuItemName string) orderItemResponse {
	resp := orderItemResponse{
		ID:           it.ID,
		MenuItemID:   it.MenuItemID,
		MenuItemName: menuItemName,
		Quantity:     it.Quantity,
		Price:        service.NumericToDecimal(it.Price).StringFixed(2),
	}
	if it.Notes.Valid {
		resp.Notes = &it.Notes.String
	}
	return resp
}

// --- Handlers ---

// Create places an order. Anonymous when the kiosk flag allows it; an
// authenticated caller must be scoped to the order's location and is
// recorded as the processor.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if !p.Authenticated() && !h.allowAnonymous {
		writeError(w, http.StatusUnauthorized, string(authz.ReasonNotAuthenticated))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location_id")
		return
	}

	if p.Authenticated() && !p.Scope.Contains(locationID) {
		writeError(w, http.StatusForbidden, string(authz.ReasonLocationNotInScope))
		return
	}

	svcReq := service.CreateOrderRequest{
		LocationID:  locationID,
		ProcessedBy: p.ID,
	}
	for _, it := range req.Items {
		svcReq.Items = append(svcReq.Items, service.CreateOrderItemRequest{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		})
	}

	result, err := h.orders.CreateOrder(r.Context(), svcReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidMenuItemID),
			errors.Is(err, service.ErrMenuItemNotFound):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrLocationNotFound):
			// A payload referencing a nonexistent location is a bad
			// request, not a missing resource.
			writeError(w, http.StatusBadRequest, "location does not exist")
		default:
			log.Printf("ERROR: create order: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	resp := toOrderResponse(result.Order)
	for _, it := range result.Items {
		resp.Items = append(resp.Items, toOrderItemResponse(it, ""))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns one order with its items when ?order_id= is given,
// otherwise the caller's scoped order history, optionally filtered by
// location and date range.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	if idStr := r.URL.Query().Get("order_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order_id")
			return
		}
		h.getOne(w, r, p, id)
		return
	}

	params := store.ListOrdersParams{ScopeLocationIDs: p.Scope.IDs()}

	if locStr := r.URL.Query().Get("location_id"); locStr != "" {
		locationID, err := uuid.Parse(locStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid location_id")
			return
		}
		if err := authz.Authorize(p, authz.ActionRead, locationID); err != nil {
			writeDenial(w, err)
			return
		}
		params.LocationID = pgtype.UUID{Bytes: locationID, Valid: true}
	}

	var err error
	if params.DateFrom, err = parseDateFilter(r.URL.Query().Get("date_from"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_from")
		return
	}
	if params.DateTo, err = parseDateFilter(r.URL.Query().Get("date_to"), true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_to")
		return
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		r := toOrderResponse(o.Order)
		r.LocationName = o.LocationName
		resp[i] = r
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) getOne(w http.ResponseWriter, r *http.Request, p authz.Principal, id uuid.UUID) {
	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.Authorize(p, authz.ActionRead, order.LocationID); err != nil {
		writeDenial(w, err)
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := toOrderResponse(order)
	for _, it := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(it.OrderItem, it.MenuItemName))
	}

	if order.ProcessedBy.Valid {
		// Best effort; the processor may have been deleted since.
		if u, err := h.store.GetUserByID(r.Context(), uuid.UUID(order.ProcessedBy.Bytes)); err == nil {
			name := u.FirstName + " " + u.LastName
			resp.ProcessedByName = &name
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseDateFilter accepts RFC 3339 timestamps or bare dates. A bare
// date used as the upper bound covers the whole day.
func parseDateFilter(s string, endOfDay bool) (pgtype.Timestamptz, error) {
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return pgtype.Timestamptz{Time: t, Valid: true}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}
