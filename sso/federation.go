// Package sso implements the federation handshake with the main AlumniHuddle
// application: a bearer token arrives on a redirect, the identity provider
// vouches for it, a local user is provisioned on first sight, and the browser
// leaves with a signed session cookie bound for its huddle view.
package sso

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gateway "github.com/alumnihuddle/huddle-gateway/apigateway"
	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/identity"
)

// tenantSlugPattern is the shape every huddle slug has. The resolved tenant
// ends up in the Location header, so anything that is not a plain slug (a
// leading slash, dots, a host name) must be rejected before it can turn the
// redirect into an off-site one.
var tenantSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Service handles the SSO federation endpoints.
type Service struct {
	Db       *gorm.DB
	Identity *identity.Client
	Auth     *gateway.JWTAuth
	Config   fields.Config
	Logger   *logrus.Logger
}

// RedirectWithFederation handles GET /auth/sso?token=...&tenant=...
//
// The steps run in order and short-circuit: validate the token with the
// provider, lookup-or-create the local user by email, mint the session JWT,
// set the cookie and redirect to the tenant view. On any failure no cookie is
// set and no redirect happens. The raw bearer token is never logged.
func (s *Service) RedirectWithFederation(c *fiber.Ctx) error {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		fields.RecordFederation("invalid_token", false)
		return c.Status(apperr.Status(apperr.ErrInvalidToken)).JSON(apperr.Payload(apperr.ErrInvalidToken))
	}

	id, err := s.Identity.ResolveIdentity(c.UserContext(), token)
	if err != nil {
		fields.RecordFederation(apperr.Code(err), false)
		s.Logger.WithFields(logrus.Fields{
			"code":  apperr.Code(err),
			"error": err.Error(),
		}).Info("federation rejected")
		return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
	}

	// The provider's tenant assignment wins when present; the caller-supplied
	// query value is only a hint.
	tenantID := id.TenantID
	if tenantID == "" {
		tenantID = strings.TrimSpace(c.Query("tenant"))
	}
	if tenantID == "" {
		tenantID = s.Config.DefaultTenantID
	}
	if tenantID == "" {
		fields.RecordFederation("missing_tenant", false)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"code": "missing_tenant", "message": "tenant is required"})
	}
	tenantID = strings.ToLower(strings.TrimSpace(tenantID))
	if !tenantSlugPattern.MatchString(tenantID) {
		fields.RecordFederation("invalid_tenant", false)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"code": "invalid_tenant", "message": "tenant must be a huddle slug"})
	}

	user, created, err := fields.UpsertFederatedUser(fields.FederatedIdentity{
		ProviderUserID: id.ProviderUserID,
		Email:          id.Email,
		Name:           id.Name,
		TenantID:       id.TenantID,
	}, tenantID, s.Db)
	if err != nil {
		fields.RecordFederation("user_store_error", false)
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "resolving local user")
		s.Logger.WithFields(logrus.Fields{"email": id.Email, "error": err.Error()}).Error("user store failure during federation")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}

	session, err := s.Auth.GenerateJWT(user.ID, user.Email, tenantID)
	if err != nil {
		fields.RecordFederation("session_error", false)
		wrapped := apperr.Wrap(err, apperr.ErrInternal, "minting session")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}

	lifetime := s.Config.SessionLifetime
	if lifetime <= 0 {
		lifetime = fields.DefaultSessionLifetime
	}
	c.Cookie(&fiber.Cookie{
		Name:     gateway.SessionCookie,
		Value:    session,
		Path:     "/",
		Domain:   s.Config.CookieDomain,
		MaxAge:   lifetime,
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	fields.RecordFederation("success", created)
	s.Logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"tenant_id": tenantID,
		"new_user":  created,
	}).Info("federation completed")

	return c.Redirect(fmt.Sprintf("/%s", tenantID), http.StatusFound)
}

// Me returns the authenticated user's local record. Runs behind the session
// middleware.
func (s *Service) Me(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return c.Status(apperr.Status(apperr.ErrUnauthorized)).JSON(apperr.Payload(apperr.ErrUnauthorized))
	}
	user, err := fields.GetUserByID(userID, s.Db)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"code": "not_found", "message": "user not found"})
	}
	return c.JSON(user)
}

type updateMeRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=120"`
}

// UpdateMe lets the authenticated user change their display name. The rest
// of the record is provider-owned and read-only here.
func (s *Service) UpdateMe(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return c.Status(apperr.Status(apperr.ErrUnauthorized)).JSON(apperr.Payload(apperr.ErrUnauthorized))
	}
	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrBadRequest, "malformed request body")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	if err := fields.ValidateStruct(&req); err != nil {
		detail := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				detail[fe.Field()] = fe.Tag()
			}
		}
		failed := apperr.WithFields(apperr.ErrValidation, detail)
		return c.Status(apperr.Status(failed)).JSON(apperr.Payload(failed))
	}

	user, err := fields.GetUserByID(userID, s.Db)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"code": "not_found", "message": "user not found"})
	}
	if err := s.Db.Model(&user).Update("display_name", strings.TrimSpace(req.DisplayName)).Error; err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "updating profile")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	return c.JSON(user)
}

// Logout clears the session cookie.
func (s *Service) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     gateway.SessionCookie,
		Value:    "",
		Path:     "/",
		Domain:   s.Config.CookieDomain,
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"status": "logged_out"})
}
