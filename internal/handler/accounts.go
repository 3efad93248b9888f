package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/franchise-pos/api/internal/authz"
	"github.com/franchise-pos/api/internal/enum"
	"github.com/franchise-pos/api/internal/middleware"
	"github.com/franchise-pos/api/internal/service"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountStore defines the database methods needed by account handlers.
// Satisfied by *store.Queries; narrow interface for testability.
type AccountStore interface {
	GetUserByIDAndRole(ctx context.Context, id uuid.UUID, role string) (store.User, error)
	ListUsersByRole(ctx context.Context, role string, locationIDs []uuid.UUID) ([]store.User, error)
	GetUserLocationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// AccountManager creates and updates accounts transactionally.
// Satisfied by *service.AccountService.
type AccountManager interface {
	Create(ctx context.Context, arg service.CreateAccountParams) (*service.Account, error)
	Update(ctx context.Context, arg service.UpdateAccountParams) (*service.Account, error)
}

// AccountHandler manages accounts of a single role. The same handler
// serves /franchise-admin and /staff; only the role differs.
type AccountHandler struct {
	store    AccountStore
	accounts AccountManager
	role     string
	label    string
}

func NewFranchiseAdminHandler(store AccountStore, accounts AccountManager) *AccountHandler {
	return &AccountHandler{store: store, accounts: accounts, role: enum.RoleFranchiseAdmin, label: "franchise admin"}
}

func NewStaffHandler(store AccountStore, accounts AccountManager) *AccountHandler {
	return &AccountHandler{store: store, accounts: accounts, role: enum.RoleStaff, label: "staff"}
}

// RegisterRoutes registers account endpoints. Single-target operations
// address the account with the ?id= query parameter.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.Get)
	r.Patch("/", h.Update)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type createAccountRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	LocationIDs []string `json:"location_ids"`
}

// updateAccountRequest is a partial update: absent fields stay
// untouched, location_ids when present replaces the whole set.
type updateAccountRequest struct {
	Email       *string   `json:"email"`
	Password    *string   `json:"password"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	LocationIDs *[]string `json:"location_ids"`
}

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Role        string      `json:"role"`
	IsActive    bool        `json:"is_active"`
	LocationIDs []uuid.UUID `json:"location_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}

func toUserResponse(u store.User, locationIDs []uuid.UUID) userResponse {
	if locationIDs == nil {
		locationIDs = []uuid.UUID{}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LocationIDs: locationIDs,
		CreatedAt:   u.CreatedAt,
	}
}

func parseLocationIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// missingCreateFields lists the required create fields absent from the
// request. Franchise admins may be created without a password; they
// sign in with Google until one is set.
func missingCreateFields(req createAccountRequest, role string) []string {
	var missing []string
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" && role == enum.RoleStaff {
		missing = append(missing, "password")
	}
	if req.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if req.LastName == "" {
		missing = append(missing, "last_name")
	}
	return missing
}

// --- Handlers ---

// Create provisions a new account of the handler's role. The target
// location set must be a strict subset of the caller's scope.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if missing := missingCreateFields(req, h.role); len(missing) != 0 {
		writeError(w, http.StatusBadRequest, "missing fields: "+strings.Join(missing, ", "))
		return
	}

	locationIDs, err := parseLocationIDs(req.LocationIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location id")
		return
	}
	if err := authz.ValidateStaffLocations(locationIDs); err != nil {
		writeDenial(w, err)
		return
	}
	if err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(locationIDs...)); err != nil {
		writeDenial(w, err)
		return
	}

	acct, err := h.accounts.Create(r.Context(), service.CreateAccountParams{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        h.role,
		LocationIDs: locationIDs,
		CreatedBy:   p.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownLocations):
			writeError(w, http.StatusBadRequest, "one or more locations do not exist")
		case isUniqueViolation(err):
			writeError(w, http.StatusConflict, "email already in use")
		default:
			log.Printf("ERROR: create %s: %v", h.label, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(acct.User, acct.LocationIDs))
}

// Get returns one account when ?id= is given, otherwise all accounts
// of the handler's role visible to the caller. Visibility requires a
// location overlap with the caller's scope.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if err := requireAccountAccess(p); err != nil {
		writeDenial(w, err)
		return
	}

	if idStr := r.URL.Query().Get("id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		h.getOne(w, r, p, id)
		return
	}

	users, err := h.store.ListUsersByRole(r.Context(), h.role, p.Scope.IDs())
	if err != nil {
		log.Printf("ERROR: list %s accounts: %v", h.label, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		locs, err := h.store.GetUserLocationIDs(r.Context(), u.ID)
		if err != nil {
			log.Printf("ERROR: load locations for %s: %v", u.ID, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		resp = append(resp, toUserResponse(u, locs))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) getOne(w http.ResponseWriter, r *http.Request, p authz.Principal, id uuid.UUID) {
	user, err := h.store.GetUserByIDAndRole(r.Context(), id, h.role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		log.Printf("ERROR: get %s: %v", h.label, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	locs, err := h.store.GetUserLocationIDs(r.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR: load locations for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.AuthorizeAccountRead(p, authz.ScopeOf(locs...)); err != nil {
		writeDenial(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user, locs))
}

// Update applies a partial update to the account given by ?id=. The
// strict-subset rule is checked against both the current and, when
// location_ids is supplied, the new location set.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.store.GetUserByIDAndRole(r.Context(), id, h.role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		log.Printf("ERROR: get %s: %v", h.label, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	currentLocs, err := h.store.GetUserLocationIDs(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: load locations for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(currentLocs...)); err != nil {
		writeDenial(w, err)
		return
	}

	params := service.UpdateAccountParams{
		ID:        id,
		Role:      h.role,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.LocationIDs != nil {
		newLocs, err := parseLocationIDs(*req.LocationIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid location id")
			return
		}
		if err := authz.ValidateStaffLocations(newLocs); err != nil {
			writeDenial(w, err)
			return
		}
		if err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(newLocs...)); err != nil {
			writeDenial(w, err)
			return
		}
		params.LocationIDs = &newLocs
	}

	acct, err := h.accounts.Update(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, h.label+" not found")
		case errors.Is(err, service.ErrUnknownLocations):
			writeError(w, http.StatusBadRequest, "one or more locations do not exist")
		case isUniqueViolation(err):
			writeError(w, http.StatusConflict, "email already in use")
		default:
			log.Printf("ERROR: update %s: %v", h.label, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(acct.User, acct.LocationIDs))
}

// Delete removes the account given by ?id=.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := h.store.GetUserByIDAndRole(r.Context(), id, h.role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		log.Printf("ERROR: get %s: %v", h.label, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	locs, err := h.store.GetUserLocationIDs(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: load locations for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := authz.AuthorizeAccountMutation(p, authz.ScopeOf(locs...)); err != nil {
		writeDenial(w, err)
		return
	}

	if _, err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, h.label+" not found")
			return
		}
		log.Printf("ERROR: delete %s: %v", h.label, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireAccountAccess gates account listing to the admin roles.
// Single-target checks still apply per account.
func requireAccountAccess(p authz.Principal) error {
	if !p.Authenticated() {
		return &authz.Denial{Reason: authz.ReasonNotAuthenticated}
	}
	if p.Role != enum.RoleSuperAdmin && p.Role != enum.RoleFranchiseAdmin {
		return &authz.Denial{Reason: authz.ReasonRoleNotPermitted}
	}
	return nil
}
