// Package tenants resolves which huddle a request belongs to and serves the
// huddle context and branding endpoints. Resolution order is Host subdomain,
// then the X-Tenant-Subdomain header, then the configured default slug.
package tenants

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/store"
)

const (
	cacheTTL        = 5 * time.Minute
	missTTL         = time.Minute
	cacheMissMarker = "!"
)

// reservedSubdomains are never huddle slugs.
var reservedSubdomains = map[string]bool{
	"www":       true,
	"api":       true,
	"admin":     true,
	"app":       true,
	"localhost": true,
}

// Service resolves and serves huddle (tenant) context.
type Service struct {
	Store  *store.Store
	Redis  *redis.Client
	Config fields.Config
	Logger *logrus.Logger
}

// ExtractSubdomain pulls the huddle slug out of a request Host.
//
//	hoosiers-football.alumnihuddle.com -> "hoosiers-football"
//	www.alumnihuddle.com               -> ""  (reserved)
//	alumnihuddle.com                   -> ""  (no subdomain)
//	localhost:3000                     -> ""  (header or default instead)
func ExtractSubdomain(host, baseDomain string) string {
	if host == "" {
		return ""
	}
	host = strings.Split(host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}
	if !strings.HasSuffix(host, baseDomain) {
		return ""
	}
	sub := strings.TrimRight(strings.TrimSuffix(host, baseDomain), ".")
	if sub == "" {
		return ""
	}
	// Nested subdomains skip reserved parts from the left.
	for _, part := range strings.Split(sub, ".") {
		if !reservedSubdomains[strings.ToLower(part)] {
			return strings.ToLower(part)
		}
	}
	return ""
}

// Middleware attaches the resolved huddle to request locals. Unknown slugs
// and lookup failures log a warning and continue untenanted; whether the
// endpoint needs a tenant is each handler's call.
func (s *Service) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := ExtractSubdomain(c.Hostname(), s.Config.BaseDomain)
		source := "subdomain"
		if slug == "" {
			slug = strings.ToLower(strings.TrimSpace(c.Get("X-Tenant-Subdomain")))
			source = "header"
		}
		if slug == "" {
			slug = s.Config.DefaultTenantID
			source = "default"
		}
		if slug == "" {
			c.Locals("tenant_source", "none")
			return c.Next()
		}

		huddle, err := s.ResolveHuddle(c.UserContext(), slug)
		if err != nil {
			s.Logger.WithFields(logrus.Fields{"slug": slug, "error": err.Error()}).Warn("huddle lookup failed")
			c.Locals("tenant_source", source)
			return c.Next()
		}
		if huddle == nil {
			s.Logger.WithField("slug", slug).Warn("unknown huddle slug")
			c.Locals("tenant_source", source)
			return c.Next()
		}

		c.Locals("huddle", huddle)
		c.Locals("tenant_id", huddle.ID)
		c.Locals("tenant_slug", huddle.Slug)
		c.Locals("tenant_source", source)
		return c.Next()
	}
}

// ResolveHuddle looks up a slug through the redis cache. Known huddles are
// cached for five minutes, unknown slugs for one so a freshly created huddle
// is not invisible for long. A nil huddle with nil error means unknown slug.
func (s *Service) ResolveHuddle(ctx context.Context, slug string) (*store.Huddle, error) {
	slug = strings.ToLower(slug)
	key := "huddle:slug:" + slug

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			fields.RecordTenantCache("hit")
			if cached == cacheMissMarker {
				return nil, nil
			}
			var huddle store.Huddle
			if err := json.Unmarshal([]byte(cached), &huddle); err == nil {
				return &huddle, nil
			}
		}
	}
	fields.RecordTenantCache("miss")

	huddle, err := s.Store.GetHuddleBySlug(ctx, slug)
	if err != nil {
		if store.ErrNotFound(err) {
			if s.Redis != nil {
				s.Redis.Set(ctx, key, cacheMissMarker, missTTL)
			}
			return nil, nil
		}
		fields.RecordTenantCache("error")
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(huddle); err == nil {
			s.Redis.Set(ctx, key, payload, cacheTTL)
		}
	}
	return huddle, nil
}

// HuddleFromCtx returns the huddle the middleware resolved, or nil.
func HuddleFromCtx(c *fiber.Ctx) *store.Huddle {
	huddle, _ := c.Locals("huddle").(*store.Huddle)
	return huddle
}
