package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleIdentity is the subset of a verified Google ID token the API
// cares about.
type GoogleIdentity struct {
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}

// GoogleVerifier validates a Google ID token and returns the identity
// it asserts. The handler layer applies the email-domain allow-list;
// the verifier only proves the token is genuine.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// TokenInfoVerifier verifies ID tokens against Google's tokeninfo
// endpoint.
type TokenInfoVerifier struct {
	ClientID string
	Client   *http.Client
}

func NewTokenInfoVerifier(clientID string) *TokenInfoVerifier {
	return &TokenInfoVerifier{
		ClientID: clientID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfoResponse struct {
	Aud           string `json:"aud"`
	Iss           string `json:"iss"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		googleTokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleIdentity{}, fmt.Errorf("invalid google token")
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleIdentity{}, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if info.Aud != v.ClientID {
		return GoogleIdentity{}, fmt.Errorf("token audience mismatch")
	}
	if info.Iss != "accounts.google.com" && info.Iss != "https://accounts.google.com" {
		return GoogleIdentity{}, fmt.Errorf("invalid token issuer")
	}

	return GoogleIdentity{
		Email:         strings.ToLower(info.Email),
		EmailVerified: info.EmailVerified == "true",
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
	}, nil
}

// EmailDomain returns the lowercased domain part of an email address,
// or "" if the address has no domain.
func EmailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}
