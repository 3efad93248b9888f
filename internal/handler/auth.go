package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/franchise-pos/api/internal/auth"
	"github.com/franchise-pos/api/internal/enum"
	"github.com/franchise-pos/api/internal/service"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *store.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
	GetUserLocationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// AccountCreator provisions accounts. Satisfied by
// *service.AccountService.
type AccountCreator interface {
	Create(ctx context.Context, arg service.CreateAccountParams) (*service.Account, error)
}

// AuthHandler handles login, Google sign-in and token refresh.
type AuthHandler struct {
	store     AuthStore
	accounts  AccountCreator
	verifier  auth.GoogleVerifier
	jwtSecret string
	// allowedDomain is the email domain Google sign-ins must belong
	// to; empty disables Google sign-in entirely.
	allowedDomain string
}

func NewAuthHandler(store AuthStore, accounts AccountCreator, verifier auth.GoogleVerifier, jwtSecret, allowedDomain string) *AuthHandler {
	return &AuthHandler{
		store:         store,
		accounts:      accounts,
		verifier:      verifier,
		jwtSecret:     jwtSecret,
		allowedDomain: allowedDomain,
	}
}

// RegisterRoutes registers auth endpoints. Mounted at /auth, public.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/google", h.GoogleLogin)
	r.Post("/refresh", h.Refresh)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// --- Handlers ---

// Login authenticates by email and password. Accounts provisioned via
// Google sign-in have no stored password and cannot log in here.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("ERROR: login lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !user.IsActive || !user.HashedPassword.Valid {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword.String), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issueTokens(w, r, user)
}

// GoogleLogin verifies a Google ID token, applies the email-domain
// allow-list, and signs in the matching account. A first-time sign-in
// from an allow-listed address provisions a franchise admin with no
// password credential.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.allowedDomain == "" {
		writeError(w, http.StatusForbidden, "google sign-in is disabled")
		return
	}

	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	identity, err := h.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid google token")
		return
	}
	if !identity.EmailVerified {
		writeError(w, http.StatusUnauthorized, "email not verified")
		return
	}
	if auth.EmailDomain(identity.Email) != h.allowedDomain {
		writeError(w, http.StatusForbidden, "email domain not allowed")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), identity.Email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: google login lookup: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		acct, err := h.accounts.Create(r.Context(), service.CreateAccountParams{
			Email:     identity.Email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
			Role:      enum.RoleFranchiseAdmin,
		})
		if err != nil {
			log.Printf("ERROR: provision google account: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		user = acct.User
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "account is inactive")
		return
	}

	h.issueTokens(w, r, user)
}

// Refresh exchanges a refresh token for a new token pair. Scope is
// re-read from the database, so location reassignments take effect on
// the next refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		log.Printf("ERROR: refresh lookup: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "account is inactive")
		return
	}

	h.issueTokens(w, r, user)
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, user store.User) {
	locationIDs, err := h.store.GetUserLocationIDs(r.Context(), user.ID)
	if err != nil {
		log.Printf("ERROR: load user locations: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	access, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role, locationIDs)
	if err != nil {
		log.Printf("ERROR: generate access token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	refresh, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		log.Printf("ERROR: generate refresh token: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         toUserResponse(user, locationIDs),
	})
}
