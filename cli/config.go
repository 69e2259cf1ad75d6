package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gateway "github.com/alumnihuddle/huddle-gateway/apigateway"
	"github.com/alumnihuddle/huddle-gateway/chatmodels"
	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/identity"
	"github.com/alumnihuddle/huddle-gateway/mentors"
	"github.com/alumnihuddle/huddle-gateway/sso"
	"github.com/alumnihuddle/huddle-gateway/store"
	"github.com/alumnihuddle/huddle-gateway/tenants"
	"github.com/alumnihuddle/huddle-gateway/utils"
)

var (
	cfg          fields.Config
	logrusLogger = logrus.New()
	gatewayDb    *gorm.DB
	sharedDb     *store.DB
	storeSvc     *store.Store
	redisClient  *redis.Client
	auth         gateway.JWTAuth
	ssoService   *sso.Service
	tenantSvc    *tenants.Service
	mentorSvc    *mentors.Service
	modelSvc     *chatmodels.Service
	logSampling  gateway.LogSamplingConfig
)

// setup wires config, storage and services. Configuration errors are fatal
// here, before the listener opens.
func setup() {
	cfg = fields.ConfigFromEnv()
	cfg.Defaults()
	configureLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logrusLogger.Fatalf("invalid configuration: %v", err)
	}

	fields.InitMetrics()

	// Gateway-owned tables (users, chat models) always live in local sqlite;
	// only the shared huddles/profiles tables may point at postgres.
	gatewayPath := cfg.DatabasePath
	if gatewayPath == "" {
		gatewayPath = "huddle.db"
	}
	var err error
	gatewayDb, err = gorm.Open(sqlite.Open(gatewayPath), &gorm.Config{})
	if err != nil {
		logrusLogger.Fatalf("error in connecting to gateway db: %v", err)
	}
	if err := gatewayDb.AutoMigrate(&fields.User{}, &fields.ChatModel{}); err != nil {
		logrusLogger.Fatalf("error migrating gateway db: %v", err)
	}

	sharedDb, err = store.OpenFromConfig(cfg.DatabaseURL, cfg.DatabasePath, cfg.DatabaseDriver)
	if err != nil {
		logrusLogger.Fatalf("error in connecting to shared db: %v", err)
	}
	storeSvc = store.New(sharedDb)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := store.Migrate(migrateCtx, sharedDb); err != nil {
		logrusLogger.Fatalf("error in migrations: %v", err)
	}
	if cfg.DefaultTenantID != "" {
		if err := storeSvc.EnsureHuddle(migrateCtx, cfg.DefaultTenantID, cfg.DefaultTenantID); err != nil {
			logrusLogger.Fatalf("error ensuring default huddle: %v", err)
		}
	}

	redisClient = utils.GetRedis(cfg.RedisAddr)

	auth = gateway.JWTAuth{Config: cfg}
	if err := auth.Init(); err != nil {
		logrusLogger.Fatalf("error initializing session auth: %v", err)
	}

	ssoService = &sso.Service{
		Db:       gatewayDb,
		Identity: identity.NewClient(cfg),
		Auth:     &auth,
		Config:   cfg,
		Logger:   logrusLogger,
	}
	tenantSvc = &tenants.Service{Store: storeSvc, Redis: redisClient, Config: cfg, Logger: logrusLogger}
	mentorSvc = &mentors.Service{Store: storeSvc, Redis: redisClient, Config: cfg, Logger: logrusLogger}
	modelSvc = &chatmodels.Service{
		Db:      gatewayDb,
		Store:   storeSvc,
		Mentors: mentorSvc,
		Config:  cfg,
		Logger:  logrusLogger,
	}

	if n, err := modelSvc.EnsureAllHuddleModels(migrateCtx); err != nil {
		logrusLogger.WithError(err).Warn("could not ensure huddle models at startup")
	} else {
		logrusLogger.WithField("count", n).Info("huddle models ensured")
	}
}

// GetMainEngine assembles the fiber app with all routes and middleware.
func GetMainEngine() *fiber.App {
	route := fiber.New(fiber.Config{AppName: "huddle-gateway"})

	route.Use(gateway.RequestID())
	route.Use(gateway.RequestLogger(logrusLogger, logSampling))
	route.Use(gateway.Cors(cfg.Cors))
	route.Use(tenantSvc.Middleware())

	route.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	route.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := route.Group("/auth")
	{
		authGroup.Get("/sso", ssoService.RedirectWithFederation)
		authGroup.Get("/me", auth.AuthMiddleware(), ssoService.Me)
		authGroup.Patch("/me", auth.AuthMiddleware(), ssoService.UpdateMe)
		authGroup.Post("/logout", auth.AuthMiddleware(), ssoService.Logout)
	}

	route.Get("/api/models", auth.AuthMiddleware(), modelSvc.List)
	route.Get("/api/models/:id/prompt", auth.AuthMiddleware(), modelSvc.SystemPrompt)

	tenantGroup := route.Group("/api/v1/tenants")
	{
		tenantGroup.Get("/context", tenantSvc.Context)
		tenantGroup.Get("/branding", tenantSvc.Branding)
		tenantGroup.Get("/branding.css", tenantSvc.BrandingCSS)
		tenantGroup.Get("/", gateway.RequireAdmin(cfg), tenantSvc.List)
		tenantGroup.Get("/:id", gateway.RequireAdmin(cfg), tenantSvc.Get)
	}

	mentorGroup := route.Group("/api/v1/mentors")
	{
		mentorGroup.Get("/", auth.AuthMiddleware(), mentorSvc.List)
		mentorGroup.Get("/stats", auth.AuthMiddleware(), mentorSvc.Stats)
		mentorGroup.Post("/reindex", gateway.RequireAdmin(cfg), mentorSvc.Reindex)
		mentorGroup.Get("/:id", auth.AuthMiddleware(), mentorSvc.Get)
	}

	return route
}
