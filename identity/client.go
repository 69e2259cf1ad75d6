// Package identity talks to the shared identity provider that the main
// AlumniHuddle application and this gateway federate through.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/fields"
)

const whoamiPath = "/api/v1/sessions/whoami"

// Identity is the provider's record for an authenticated user. TenantID is
// only set when the provider carries huddle membership metadata; when empty,
// tenant assignment falls back to the caller-supplied value.
type Identity struct {
	ProviderUserID string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	TenantID       string `json:"tenant_id"`
}

// Client resolves opaque bearer tokens into identities. Every token is
// validated fresh with a single synchronous round trip; there is no cache and
// no retry loop, transient failures are the caller's to handle.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient builds a provider client from configuration.
func NewClient(cfg fields.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.ProviderURL, "/"),
		serviceKey: cfg.ProviderKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ResolveIdentity validates a bearer token server-side and returns the
// identity it belongs to. The token is never parsed locally. Provider
// rejections map to apperr.ErrInvalidToken; transport failures and provider
// 5xx map to apperr.ErrProviderUnavailable.
func (c *Client) ResolveIdentity(ctx context.Context, bearerToken string) (*Identity, error) {
	start := time.Now()
	id, err := c.resolve(ctx, bearerToken)
	fields.RecordProviderCall(err, time.Since(start))
	return id, err
}

func (c *Client) resolve(ctx context.Context, bearerToken string) (*Identity, error) {
	if strings.TrimSpace(bearerToken) == "" {
		return nil, apperr.ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+whoamiPath, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrProviderUnavailable, "")
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	if c.serviceKey != "" {
		req.Header.Set("X-Service-Key", c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrProviderUnavailable, "")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, apperr.Wrap(fmt.Errorf("provider returned %d", resp.StatusCode), apperr.ErrProviderUnavailable, "")
	default:
		// 401/403/400: the provider examined the token and rejected it.
		return nil, apperr.ErrInvalidToken
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrProviderUnavailable, "malformed provider response")
	}
	if id.Email == "" {
		return nil, apperr.Wrap(fmt.Errorf("identity %q has no email", id.ProviderUserID), apperr.ErrInvalidToken, "")
	}
	id.Email = strings.ToLower(id.Email)
	return &id, nil
}
