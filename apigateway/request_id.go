package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id between the main application,
// the gateway and its logs.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID trusts an inbound X-Request-ID when it looks sane, otherwise
// mints one. The id is stored in locals and echoed back on the response so
// federation redirects can be traced across services.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := sanitizeRequestID(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Locals("request_id", requestID)
		c.Set(RequestIDHeader, requestID)
		return c.Next()
	}
}

func sanitizeRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLen {
		return ""
	}
	for _, r := range raw {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return raw
}

// RequestIDFromCtx returns the correlation id set by RequestID, or "".
func RequestIDFromCtx(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return ""
}
