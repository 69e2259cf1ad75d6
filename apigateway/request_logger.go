package gateway

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LogSamplingConfig throttles access logging. One request per Tick is logged
// in full; anything slower than After, any handler error and any 5xx is
// always logged.
type LogSamplingConfig struct {
	Tick  time.Duration
	After time.Duration
}

type logSampler struct {
	tick  time.Duration
	after time.Duration
	next  time.Time
	mu    sync.Mutex
}

func (s *logSampler) Allow(duration time.Duration) bool {
	if s.after > 0 && duration >= s.after {
		return true
	}
	if s.tick <= 0 {
		return true
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next.IsZero() || now.After(s.next) {
		s.next = now.Add(s.tick)
		return true
	}
	return false
}

// Probes and scrapes hit these constantly and carry no tenant context.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger emits one structured line per sampled request with the
// correlation id and whatever huddle and session context upstream middleware
// resolved. Query strings are omitted so federation bearer tokens never reach
// the logs.
func RequestLogger(logger *logrus.Logger, cfg LogSamplingConfig) fiber.Handler {
	sampler := &logSampler{tick: cfg.Tick, after: cfg.After}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		routePath := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			routePath = r.Path
		}

		failed := status >= fiber.StatusInternalServerError || err != nil
		if !failed {
			if quietPaths[routePath] {
				return err
			}
			if !sampler.Allow(duration) {
				return err
			}
		}

		entry := logger.WithFields(logrus.Fields{
			"request_id":  RequestIDFromCtx(c),
			"method":      c.Method(),
			"path":        routePath,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"ip":          c.IP(),
		})
		if tenantID, ok := c.Locals("tenant_id").(string); ok && tenantID != "" {
			entry = entry.WithField("tenant_id", tenantID)
		}
		if slug, ok := c.Locals("tenant_slug").(string); ok && slug != "" {
			entry = entry.WithField("tenant_slug", slug)
		}
		if userID, ok := c.Locals("user_id").(uint); ok {
			entry = entry.WithField("user_id", userID)
		}
		if err != nil {
			entry = entry.WithField("error", err.Error())
		}

		switch {
		case failed:
			entry.Error("http_request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("http_request")
		default:
			entry.Info("http_request")
		}

		return err
	}
}
