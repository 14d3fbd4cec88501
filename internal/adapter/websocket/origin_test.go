package websocket

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://hr.example.com", "http://localhost:28040/"}

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no allow list accepts anything", nil, "https://evil.com", true},
		{"no allow list accepts empty", nil, "", true},

		{"empty origin", allowed, "", true},
		{"listed origin", allowed, "https://hr.example.com", true},
		{"listed origin case", allowed, "https://HR.example.com", true},
		{"listed with trailing path", allowed, "http://localhost:28040", true},

		{"different host", allowed, "https://evil.com", false},
		{"different port", allowed, "https://hr.example.com:9090", false},
		{"http instead of https", allowed, "http://hr.example.com", false},
		{"subdomain", allowed, "https://sub.hr.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCheckOrigin(tt.allowed)
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/api/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/path", "https://example.com"},
		{" https://Example.com:8443 ", "https://example.com:8443"},
		{"", ""},
		{"mailto:user@example.com", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeOrigin(tt.raw), tt.raw)
	}
}
