package tenants

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/store"
)

type huddleSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	LogoURL  string `json:"logo_url,omitempty"`
	IsActive bool   `json:"is_active"`
}

func summarize(h *store.Huddle) huddleSummary {
	return huddleSummary{ID: h.ID, Name: h.Name, Slug: h.Slug, LogoURL: h.LogoURL, IsActive: true}
}

// Context reports which huddle the request resolved to and how. Useful for
// the frontend and for debugging subdomain detection.
func (s *Service) Context(c *fiber.Ctx) error {
	source, _ := c.Locals("tenant_source").(string)
	huddle := HuddleFromCtx(c)
	if huddle == nil {
		return c.JSON(fiber.Map{"huddle": nil, "source": source})
	}
	return c.JSON(fiber.Map{"huddle": summarize(huddle), "source": source})
}

// Branding returns logo, cover photo and colors for the current huddle.
// Public, the frontend styles itself before any login happens.
func (s *Service) Branding(c *fiber.Ctx) error {
	huddle := HuddleFromCtx(c)
	if huddle == nil {
		return c.JSON(nil)
	}
	return c.JSON(fiber.Map{
		"id":              huddle.ID,
		"name":            huddle.Name,
		"slug":            huddle.Slug,
		"logo_url":        huddle.LogoURL,
		"cover_photo_url": huddle.CoverPhotoURL,
		"primary_color":   huddle.PrimaryColor,
		"secondary_color": huddle.SecondaryColor,
		"description":     huddle.Description,
	})
}

// BrandingCSS renders a stylesheet from the huddle's theme colors.
func (s *Service) BrandingCSS(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/css; charset=utf-8")
	huddle := HuddleFromCtx(c)
	if huddle == nil || huddle.PrimaryColor == "" {
		return c.SendString("/* No huddle branding */\n")
	}
	secondary := huddle.SecondaryColor
	if secondary == "" {
		secondary = "#000000"
	}
	css := fmt.Sprintf(`/* Branding for %s */
:root {
    --huddle-primary: %s;
    --huddle-secondary: %s;
}

button.bg-black,
button[type="submit"].bg-black,
.chat-input button.bg-black {
    background-color: %s !important;
}
`, huddle.Name, huddle.PrimaryColor, secondary, huddle.PrimaryColor)
	return c.SendString(css)
}

// List returns all active huddles. Admin only, huddles are managed in the
// main application.
func (s *Service) List(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	huddles, err := s.Store.ListHuddles(c.UserContext(), false, skip, limit)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "listing huddles")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	out := make([]huddleSummary, 0, len(huddles))
	for i := range huddles {
		out = append(out, summarize(&huddles[i]))
	}
	return c.JSON(out)
}

// Get returns full huddle details by id. Admin only.
func (s *Service) Get(c *fiber.Ctx) error {
	huddle, err := s.Store.GetHuddleByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if store.ErrNotFound(err) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"code": "not_found", "message": "huddle not found"})
		}
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "fetching huddle")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	return c.JSON(huddle)
}
