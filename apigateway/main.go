package gateway

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware guards endpoints that need an authenticated local session.
// The credential is read from the session cookie, falling back to the
// Authorization header for non-browser clients. On success the user id, email
// and tenant id claims are exposed through request locals.
func (j *JWTAuth) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(SessionCookie)
		if tokenString == "" {
			h := c.Get("Authorization")
			tokenString = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if tokenString == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"message": "missing session credential", "code": "unauthorized"})
		}

		claims, err := j.VerifyJWT(tokenString)
		if err != nil {
			if IsExpired(err) {
				return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
					"message": "session has expired", "code": "jwt_expired"})
			}
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"message": "malformed session credential", "code": "jwt_malformed"})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("session_tenant_id", claims.TenantID)
		return c.Next()
	}
}

// Cors returns a middleware restricting browser callers to the configured
// origin. An empty origin means same-origin only and keeps the headers off.
func Cors(allowedOrigin string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if allowedOrigin != "" {
			c.Set("Access-Control-Allow-Origin", allowedOrigin)
			c.Set("Access-Control-Allow-Credentials", "true")
			c.Set("Vary", "Origin")
		}
		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			c.Set("Access-Control-Allow-Headers", "authorization, origin, content-type, accept, X-Tenant-Subdomain")
			return c.SendStatus(http.StatusOK)
		}
		return c.Next()
	}
}
