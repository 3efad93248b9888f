package auth_test

import (
	"testing"

	"github.com/franchise-pos/api/internal/auth"
)

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"admin@example.com", "example.com"},
		{"Admin@Example.COM", "example.com"},
		{"a@b@c.org", "c.org"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := auth.EmailDomain(tt.email); got != tt.want {
			t.Errorf("EmailDomain(%q): got %q, want %q", tt.email, got, tt.want)
		}
	}
}
