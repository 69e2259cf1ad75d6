package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/fields"
)

func providerStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(fields.Config{ProviderURL: server.URL, ProviderKey: "svc-key"})
}

func TestResolveIdentity_Valid(t *testing.T) {
	client := providerStub(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_valid_abc" {
			t.Errorf("authorization header = %q", got)
		}
		if got := r.Header.Get("X-Service-Key"); got != "svc-key" {
			t.Errorf("service key header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":    "prov-1",
			"email": "Alum@Example.edu",
			"name":  "Alum Example",
		})
	})

	id, err := client.ResolveIdentity(context.Background(), "tok_valid_abc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Email != "alum@example.edu" {
		t.Errorf("email should be lowercased, got %q", id.Email)
	}
	if id.ProviderUserID != "prov-1" {
		t.Errorf("provider user id = %q", id.ProviderUserID)
	}
}

func TestResolveIdentity_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"expired", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"malformed", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := providerStub(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := client.ResolveIdentity(context.Background(), "tok_expired")
			if apperr.Code(err) != "invalid_token" {
				t.Errorf("code = %q, want invalid_token", apperr.Code(err))
			}
			if apperr.Status(err) != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", apperr.Status(err))
			}
		})
	}
}

func TestResolveIdentity_EmptyToken(t *testing.T) {
	client := providerStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called for an empty token")
	})
	_, err := client.ResolveIdentity(context.Background(), "  ")
	if apperr.Code(err) != "invalid_token" {
		t.Errorf("code = %q, want invalid_token", apperr.Code(err))
	}
}

func TestResolveIdentity_ProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on
	client := NewClient(fields.Config{ProviderURL: server.URL})

	_, err := client.ResolveIdentity(context.Background(), "tok_valid_abc")
	if apperr.Code(err) != "provider_unavailable" {
		t.Errorf("code = %q, want provider_unavailable", apperr.Code(err))
	}
	if apperr.Status(err) != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", apperr.Status(err))
	}
}

func TestResolveIdentity_ProviderError(t *testing.T) {
	client := providerStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.ResolveIdentity(context.Background(), "tok_valid_abc")
	if apperr.Code(err) != "provider_unavailable" {
		t.Errorf("code = %q, want provider_unavailable", apperr.Code(err))
	}
}

func TestResolveIdentity_MissingEmail(t *testing.T) {
	client := providerStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "prov-2"})
	})
	_, err := client.ResolveIdentity(context.Background(), "tok_valid_abc")
	if apperr.Code(err) != "invalid_token" {
		t.Errorf("code = %q, want invalid_token", apperr.Code(err))
	}
}
