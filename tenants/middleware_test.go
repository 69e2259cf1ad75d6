package tenants

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/store"
)

func TestExtractSubdomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"hoosiers-football.alumnihuddle.com", "hoosiers-football"},
		{"Hoosiers-Football.alumnihuddle.com", "hoosiers-football"},
		{"www.alumnihuddle.com", ""},
		{"alumnihuddle.com", ""},
		{"localhost:3000", ""},
		{"127.0.0.1", ""},
		{"hoosiers.alumnihuddle.com:8443", "hoosiers"},
		{"www.hoosiers.alumnihuddle.com", "hoosiers"},
		{"other-site.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractSubdomain(tt.host, "alumnihuddle.com"); got != tt.want {
			t.Errorf("ExtractSubdomain(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	db, err := store.OpenFromConfig("", filepath.Join(t.TempDir(), "tenants.db"), "sqlite3")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &Service{
		Store:  store.New(db),
		Redis:  redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		Config: fields.Config{BaseDomain: "alumnihuddle.com"},
		Logger: logger,
	}
	return svc, mr
}

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	app.Use(svc.Middleware())
	app.Get("/api/v1/tenants/context", svc.Context)
	app.Get("/api/v1/tenants/branding", svc.Branding)
	app.Get("/api/v1/tenants/branding.css", svc.BrandingCSS)
	return app
}

func TestMiddleware_HeaderResolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.Store.EnsureHuddle(ctx, "engineering-huddle", "Engineering"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := newTestApp(svc)

	req := httptest.NewRequest("GET", "/api/v1/tenants/context", nil)
	req.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Huddle *struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		} `json:"huddle"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Huddle == nil || body.Huddle.Slug != "engineering-huddle" {
		t.Fatalf("huddle not resolved: %+v", body)
	}
	if body.Source != "header" {
		t.Errorf("source = %q, want header", body.Source)
	}
}

func TestMiddleware_UnknownSlugContinues(t *testing.T) {
	svc, _ := newTestService(t)
	app := newTestApp(svc)

	req := httptest.NewRequest("GET", "/api/v1/tenants/context", nil)
	req.Header.Set("X-Tenant-Subdomain", "ghost")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, unknown slug should not fail the request", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"huddle":null`) {
		t.Errorf("body = %s, want null huddle", body)
	}
}

func TestResolveHuddle_CachesLookups(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()
	if err := svc.Store.EnsureHuddle(ctx, "engineering-huddle", "Engineering"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	huddle, err := svc.ResolveHuddle(ctx, "engineering-huddle")
	if err != nil || huddle == nil {
		t.Fatalf("resolve: huddle=%v err=%v", huddle, err)
	}
	if !mr.Exists("huddle:slug:engineering-huddle") {
		t.Fatal("resolved huddle should be cached")
	}

	// Served from cache even after the row changes underneath.
	if _, err := svc.Store.DB.Exec("UPDATE huddles SET name = 'Renamed'"); err != nil {
		t.Fatalf("update: %v", err)
	}
	cached, err := svc.ResolveHuddle(ctx, "engineering-huddle")
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if cached.Name != "Engineering" {
		t.Errorf("name = %q, want cached value", cached.Name)
	}

	mr.FastForward(6 * time.Minute)
	fresh, err := svc.ResolveHuddle(ctx, "engineering-huddle")
	if err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if fresh.Name != "Renamed" {
		t.Errorf("name = %q, want fresh value after TTL", fresh.Name)
	}
}

func TestResolveHuddle_NegativeCache(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	huddle, err := svc.ResolveHuddle(ctx, "ghost")
	if err != nil || huddle != nil {
		t.Fatalf("unknown slug: huddle=%v err=%v", huddle, err)
	}
	got, err := mr.Get("huddle:slug:ghost")
	if err != nil {
		t.Fatalf("miss marker not cached: %v", err)
	}
	if got != cacheMissMarker {
		t.Errorf("cached value = %q, want miss marker", got)
	}
}

func TestBrandingCSS(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.Store.EnsureHuddle(ctx, "engineering-huddle", "Engineering"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Store.DB.Exec("UPDATE huddles SET primary_color = '#990000', secondary_color = '#EEEDEB'"); err != nil {
		t.Fatalf("update: %v", err)
	}
	app := newTestApp(svc)

	req := httptest.NewRequest("GET", "/api/v1/tenants/branding.css", nil)
	req.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "--huddle-primary: #990000") {
		t.Errorf("css missing primary color:\n%s", body)
	}

	// No branding without a tenant.
	resp2, err := app.Test(httptest.NewRequest("GET", "/api/v1/tenants/branding.css", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp2.Body.Close()
	body2, _ := io.ReadAll(resp2.Body)
	if !strings.Contains(string(body2), "No huddle branding") {
		t.Errorf("css for untenanted request:\n%s", body2)
	}
}
