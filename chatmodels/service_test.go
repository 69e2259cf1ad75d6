package chatmodels

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/mentors"
	"github.com/alumnihuddle/huddle-gateway/store"
	"github.com/alumnihuddle/huddle-gateway/tenants"
)

func newTestService(t *testing.T) (*Service, *fiber.App) {
	t.Helper()
	dir := t.TempDir()

	gormDB, err := gorm.Open(sqlite.Open(filepath.Join(dir, "gateway.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open gorm db: %v", err)
	}
	if err := gormDB.AutoMigrate(&fields.ChatModel{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	db, err := store.OpenFromConfig("", filepath.Join(dir, "shared.db"), "sqlite3")
	if err != nil {
		t.Fatalf("open store db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := fields.Config{BaseDomain: "alumnihuddle.com"}
	st := store.New(db)

	svc := &Service{
		Db:      gormDB,
		Store:   st,
		Mentors: &mentors.Service{Store: st, Redis: client, Config: cfg, Logger: logger},
		Config:  cfg,
		Logger:  logger,
	}
	tsvc := &tenants.Service{Store: st, Redis: client, Config: cfg, Logger: logger}

	app := fiber.New()
	app.Use(tsvc.Middleware())
	app.Get("/api/models", svc.List)
	app.Get("/api/models/:id/prompt", svc.SystemPrompt)
	return svc, app
}

func seedHuddle(t *testing.T, svc *Service, slug, name string) *store.Huddle {
	t.Helper()
	ctx := context.Background()
	if err := svc.Store.EnsureHuddle(ctx, slug, name); err != nil {
		t.Fatalf("seed huddle: %v", err)
	}
	huddle, err := svc.Store.GetHuddleBySlug(ctx, slug)
	if err != nil {
		t.Fatalf("get huddle: %v", err)
	}
	return huddle
}

func TestEnsureHuddleModel(t *testing.T) {
	svc, _ := newTestService(t)
	huddle := seedHuddle(t, svc, "engineering-huddle", "Engineering")

	if err := svc.EnsureHuddleModel(huddle); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Re-ensure refreshes rather than duplicating.
	if err := svc.EnsureHuddleModel(huddle); err != nil {
		t.Fatalf("ensure twice: %v", err)
	}

	m, err := fields.GetChatModelByModelID("alumnihuddle-engineering-huddle", svc.Db)
	if err != nil {
		t.Fatalf("get model: %v", err)
	}
	if m.Name != "Engineering Mentor Coach" {
		t.Errorf("name = %q", m.Name)
	}
	if m.BaseModelID != DefaultBaseModelID {
		t.Errorf("base model = %q", m.BaseModelID)
	}
	prompts, err := m.GetSuggestionPrompts()
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	if len(prompts) != 4 {
		t.Errorf("got %d suggestion prompts, want 4", len(prompts))
	}

	var count int64
	svc.Db.Model(&fields.ChatModel{}).Count(&count)
	if count != 1 {
		t.Errorf("got %d model rows, want 1", count)
	}
}

func TestEnsureAllHuddleModels(t *testing.T) {
	svc, _ := newTestService(t)
	seedHuddle(t, svc, "engineering-huddle", "Engineering")
	seedHuddle(t, svc, "business-huddle", "Business")

	n, err := svc.EnsureAllHuddleModels(context.Background())
	if err != nil {
		t.Fatalf("ensure all: %v", err)
	}
	if n != 2 {
		t.Errorf("ensured %d models, want 2", n)
	}
}

func TestListModels_OnlyCurrentHuddle(t *testing.T) {
	svc, app := newTestService(t)
	eng := seedHuddle(t, svc, "engineering-huddle", "Engineering")
	biz := seedHuddle(t, svc, "business-huddle", "Business")
	if err := svc.EnsureHuddleModel(eng); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.EnsureHuddleModel(biz); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/models", nil)
	req.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("got %d models, want 1", len(body.Data))
	}
	if body.Data[0].ID != "alumnihuddle-engineering-huddle" {
		t.Errorf("model id = %q", body.Data[0].ID)
	}
}

func TestListModels_NoTenantIsEmpty(t *testing.T) {
	svc, app := newTestService(t)
	eng := seedHuddle(t, svc, "engineering-huddle", "Engineering")
	if err := svc.EnsureHuddleModel(eng); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/models", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("body = %s, want empty data", body)
	}
}

func TestListModels_CreatesMissingRecord(t *testing.T) {
	// A fresh huddle with no model record yet still gets its coach.
	svc, app := newTestService(t)
	seedHuddle(t, svc, "new-huddle", "New Huddle")

	req := httptest.NewRequest("GET", "/api/models", nil)
	req.Header.Set("X-Tenant-Subdomain", "new-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "alumnihuddle-new-huddle") {
		t.Errorf("body = %s, want lazily created model", body)
	}
}

func TestListModels_CorruptPromptsDegrade(t *testing.T) {
	svc, app := newTestService(t)
	eng := seedHuddle(t, svc, "engineering-huddle", "Engineering")
	if err := svc.EnsureHuddleModel(eng); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.Db.Model(&fields.ChatModel{}).
		Where("model_id = ?", "alumnihuddle-engineering-huddle").
		Update("suggestion_prompts", "{not json").Error; err != nil {
		t.Fatalf("corrupt prompts: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/models", nil)
	req.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, corrupt prompts must not fail the listing", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "alumnihuddle-engineering-huddle") {
		t.Errorf("model missing from listing: %s", body)
	}
	if strings.Contains(string(body), "suggestion_prompts") {
		t.Errorf("corrupt prompts should be omitted, got: %s", body)
	}
}

func TestSystemPrompt(t *testing.T) {
	svc, app := newTestService(t)
	eng := seedHuddle(t, svc, "engineering-huddle", "Engineering")
	if err := svc.EnsureHuddleModel(eng); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	mentor := &store.MentorProfile{
		HuddleID:  eng.ID,
		FullName:  "Ada Lovelace",
		ClassYear: 2015,
		MetroArea: "London",
	}
	if err := svc.Store.CreateMentorProfile(context.Background(), mentor); err != nil {
		t.Fatalf("seed mentor: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/models/alumnihuddle-engineering-huddle/prompt", nil)
	req.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Ada Lovelace") {
		t.Errorf("prompt missing mentor directory")
	}

	// Another huddle's model id is not served.
	req2 := httptest.NewRequest("GET", "/api/models/alumnihuddle-other/prompt", nil)
	req2.Header.Set("X-Tenant-Subdomain", "engineering-huddle")
	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp2.StatusCode)
	}
}
