// Package chatmodels keeps each huddle's branded chat model record in sync
// and serves the model list the chat UI reads. Members only ever see their
// own huddle's mentor coach, never the raw upstream models.
package chatmodels

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/alumnihuddle/huddle-gateway/apperr"
	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/alumnihuddle/huddle-gateway/mentors"
	"github.com/alumnihuddle/huddle-gateway/store"
	"github.com/alumnihuddle/huddle-gateway/tenants"
)

// DefaultBaseModelID is the upstream model every huddle coach wraps.
const DefaultBaseModelID = "anthropic.claude-opus-4-1-20250805"

const defaultProfileImage = "/static/favicon.png"

var defaultSuggestionPrompts = []fields.SuggestionPrompt{
	{
		Title:   []string{"Help me find", "a mentor"},
		Content: "I'm looking for a mentor who can help me with my career. Can you help me find someone from the alumni network?",
	},
	{
		Title:   []string{"Help improve", "my resume"},
		Content: "Can you help me improve my resume? I'm looking for feedback and suggestions.",
	},
	{
		Title:   []string{"Help me prep", "for an interview"},
		Content: "I have an interview coming up. Can you help me prepare with practice questions and tips?",
	},
	{
		Title:   []string{"Help me explore", "career paths"},
		Content: "I'm not sure what career path to pursue. Can you help me explore my options based on my interests and skills?",
	},
}

// Service maintains and serves per-huddle chat model records.
type Service struct {
	Db      *gorm.DB
	Store   *store.Store
	Mentors *mentors.Service
	Config  fields.Config
	Logger  *logrus.Logger
}

// HuddleModelID derives the model id for a huddle slug.
func HuddleModelID(slug string) string {
	return "alumnihuddle-" + slug
}

// HuddleModelName derives the display name for a huddle's model.
func HuddleModelName(name string) string {
	return name + " Mentor Coach"
}

func huddleModelDescription(name string) string {
	return fmt.Sprintf("AI assistant for %s that helps students connect with alumni mentors and prepare for careers after graduation", name)
}

// EnsureHuddleModel creates or refreshes the branded model record for one
// huddle. Branding is re-applied on every call so logo or name changes in the
// main application propagate.
func (s *Service) EnsureHuddleModel(huddle *store.Huddle) error {
	image := huddle.LogoURL
	if image == "" {
		image = defaultProfileImage
	}
	m := fields.ChatModel{
		ModelID:         HuddleModelID(huddle.Slug),
		HuddleID:        huddle.ID,
		Name:            HuddleModelName(huddle.Name),
		Description:     huddleModelDescription(huddle.Name),
		BaseModelID:     DefaultBaseModelID,
		ProfileImageURL: image,
		IsActive:        true,
	}
	if err := m.SetSuggestionPrompts(defaultSuggestionPrompts); err != nil {
		return err
	}
	return fields.UpsertChatModel(&m, s.Db)
}

// EnsureAllHuddleModels runs EnsureHuddleModel over every active huddle.
// Called at startup.
func (s *Service) EnsureAllHuddleModels(ctx context.Context) (int, error) {
	huddles, err := s.Store.ListHuddles(ctx, false, 0, 100)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range huddles {
		if err := s.EnsureHuddleModel(&huddles[i]); err != nil {
			s.Logger.WithFields(logrus.Fields{"slug": huddles[i].Slug, "error": err.Error()}).Error("ensure huddle model failed")
			continue
		}
		count++
	}
	return count, nil
}

type modelResponse struct {
	ID                string                    `json:"id"`
	Name              string                    `json:"name"`
	Description       string                    `json:"description"`
	BaseModelID       string                    `json:"base_model_id"`
	ProfileImageURL   string                    `json:"profile_image_url"`
	SuggestionPrompts []fields.SuggestionPrompt `json:"suggestion_prompts,omitempty"`
}

func (s *Service) toResponse(m *fields.ChatModel) modelResponse {
	prompts, err := m.GetSuggestionPrompts()
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"model_id": m.ModelID, "error": err.Error()}).Warn("corrupt suggestion prompts, serving model without them")
	}
	return modelResponse{
		ID:                m.ModelID,
		Name:              m.Name,
		Description:       m.Description,
		BaseModelID:       m.BaseModelID,
		ProfileImageURL:   m.ProfileImageURL,
		SuggestionPrompts: prompts,
	}
}

// List serves GET /api/models. With a resolved huddle only that huddle's
// model is returned; the record is created on the fly if startup missed it.
// Without tenant context the list is empty rather than leaking other
// huddles' models.
func (s *Service) List(c *fiber.Ctx) error {
	huddle := tenants.HuddleFromCtx(c)
	if huddle == nil {
		return c.JSON(fiber.Map{"data": []modelResponse{}})
	}

	records, err := fields.GetChatModelsByHuddle(huddle.ID, s.Db)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "listing models")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	if len(records) == 0 {
		if err := s.EnsureHuddleModel(huddle); err != nil {
			wrapped := apperr.Wrap(err, apperr.ErrUserStore, "creating huddle model")
			return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
		}
		records, err = fields.GetChatModelsByHuddle(huddle.ID, s.Db)
		if err != nil {
			wrapped := apperr.Wrap(err, apperr.ErrUserStore, "listing models")
			return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
		}
	}

	out := make([]modelResponse, 0, len(records))
	for i := range records {
		out = append(out, s.toResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SystemPrompt serves the rendered mentor matcher prompt for the current
// huddle's model. The completion pipeline fetches this per conversation.
func (s *Service) SystemPrompt(c *fiber.Ctx) error {
	huddle := tenants.HuddleFromCtx(c)
	if huddle == nil {
		return c.Status(apperr.Status(apperr.ErrTenantRequired)).JSON(apperr.Payload(apperr.ErrTenantRequired))
	}
	if c.Params("id") != HuddleModelID(huddle.Slug) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"code": "not_found", "message": "model not found"})
	}

	directory, count, err := s.Mentors.Directory(c.UserContext(), huddle)
	if err != nil {
		wrapped := apperr.Wrap(err, apperr.ErrUserStore, "rendering mentor directory")
		return c.Status(apperr.Status(wrapped)).JSON(apperr.Payload(wrapped))
	}
	prompt := mentors.BuildSystemPrompt(huddle, directory, count, s.Config.BaseDomain)
	return c.JSON(fiber.Map{
		"model_id": HuddleModelID(huddle.Slug),
		"prompt":   prompt,
	})
}
