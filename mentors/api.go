package mentors

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/store"
	"github.com/alumnihuddle/huddle-gateway/tenants"
)

const directoryCacheTTL = time.Hour

// Service serves the mentor directory for the current huddle.
type Service struct {
	Store  *store.Store
	Redis  *redis.Client
	Config fields.Config
	Logger *logrus.Logger
}

func directoryCacheKey(huddleID string) string {
	return "mentors:context:" + huddleID
}

func requireHuddle(c *fiber.Ctx) (*store.Huddle, error) {
	huddle := tenants.HuddleFromCtx(c)
	if huddle == nil {
		return nil, apperr.ErrTenantRequired
	}
	return huddle, nil
}

// List returns the current huddle's mentor directory.
func (s *Service) List(c *fiber.Ctx) error {
	huddle, err := requireHuddle(c)
	if err != nil {
		return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
	}
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	profiles, err := s.Store.ListMentorsByHuddle(c.UserContext(), huddle.ID, skip, limit)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "listing mentors")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	return c.JSON(profiles)
}

// Get returns one mentor. A mentor from another huddle reads as forbidden,
// not as missing, so directory links shared across huddles fail loudly.
func (s *Service) Get(c *fiber.Ctx) error {
	mentor, err := s.Store.GetMentorByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if store.ErrNotFound(err) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"code": "not_found", "message": "mentor not found"})
		}
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "fetching mentor")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	if huddle := tenants.HuddleFromCtx(c); huddle != nil && mentor.HuddleID != huddle.ID {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"code": "forbidden", "message": "mentor not accessible from this huddle"})
	}
	return c.JSON(mentor)
}

// Stats reports directory size and whether the rendered directory is cached.
func (s *Service) Stats(c *fiber.Ctx) error {
	huddle, err := requireHuddle(c)
	if err != nil {
		return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
	}
	total, err := s.Store.CountMentorsByHuddle(c.UserContext(), huddle.ID)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "counting mentors")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	cached := false
	if s.Redis != nil {
		if n, err := s.Redis.Exists(c.UserContext(), directoryCacheKey(huddle.ID)).Result(); err == nil {
			cached = n > 0
		}
	}
	return c.JSON(fiber.Map{
		"huddle_id":        huddle.ID,
		"huddle_name":      huddle.Name,
		"total_mentors":    total,
		"directory_cached": cached,
	})
}

// Reindex re-renders and caches the mentor directory for every huddle that
// has mentors. Admin only; also run for a single huddle when one is resolved.
func (s *Service) Reindex(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if huddle := tenants.HuddleFromCtx(c); huddle != nil {
		count, err := s.reindexHuddle(ctx, huddle.ID)
		if err != nil {
			wrapped := apperr.Wrap(err, apperr.ErrUserStore, "reindexing mentors")
			return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
		}
		return c.JSON(fiber.Map{"huddles": 1, "mentors": count})
	}

	ids, err := s.Store.HuddleIDsWithMentors(ctx)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "listing huddles with mentors")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	total := 0
	for _, id := range ids {
		count, err := s.reindexHuddle(ctx, id)
		if err != nil {
			s.Logger.WithFields(logrus.Fields{"huddle_id": id, "error": err.Error()}).Error("mentor reindex failed")
			continue
		}
		total += count
	}
	return c.JSON(fiber.Map{"huddles": len(ids), "mentors": total})
}

func (s *Service) reindexHuddle(ctx context.Context, huddleID string) (int, error) {
	huddle, err := s.Store.GetHuddleByID(ctx, huddleID)
	if err != nil {
		return 0, err
	}
	profiles, err := s.Store.ListMentorsByHuddle(ctx, huddleID, 0, 200)
	if err != nil {
		return 0, err
	}
	doc := DirectoryDocument(huddle, profiles, s.Config.BaseDomain)
	if s.Redis != nil {
		if err := s.Redis.Set(ctx, directoryCacheKey(huddleID), doc, directoryCacheTTL).Err(); err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}

// directoryEntryCount recovers the mentor count from a rendered directory.
// Entries are separated by blank lines.
func directoryEntryCount(doc string) int {
	if doc == "" {
		return 0
	}
	return strings.Count(doc, "\n\n") + 1
}

// Directory returns the rendered mentor directory for a huddle, from cache
// when fresh. Used by the chat model layer when it builds system prompts.
func (s *Service) Directory(ctx context.Context, huddle *store.Huddle) (string, int, error) {
	if s.Redis != nil {
		if doc, err := s.Redis.Get(ctx, directoryCacheKey(huddle.ID)).Result(); err == nil {
			return doc, directoryEntryCount(doc), nil
		}
	}
	profiles, err := s.Store.ListMentorsByHuddle(ctx, huddle.ID, 0, 200)
	if err != nil {
		return "", 0, err
	}
	doc := DirectoryDocument(huddle, profiles, s.Config.BaseDomain)
	if s.Redis != nil {
		s.Redis.Set(ctx, directoryCacheKey(huddle.ID), doc, directoryCacheTTL)
	}
	return doc, len(profiles), nil
}
