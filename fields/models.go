package fields

import (
	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatModel is a branded per-huddle chat model record. Each huddle gets
// exactly one, with id "alumnihuddle-<slug>", so members only ever see their
// own huddle's mentor coach.
type ChatModel struct {
	gorm.Model
	ModelID           string `json:"id" gorm:"index:idx_models_model_id,unique"`
	HuddleID          string `json:"huddle_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	BaseModelID       string `json:"base_model_id"`
	ProfileImageURL   string `json:"profile_image_url"`
	SuggestionPrompts string `json:"-"`
	IsActive          bool   `json:"is_active" gorm:"default:true"`
}

// SuggestionPrompt is one of the canned conversation starters shown in the
// chat UI for a huddle's model.
type SuggestionPrompt struct {
	Title   []string `json:"title"`
	Content string   `json:"content"`
}

// SetSuggestionPrompts serializes prompts into the record.
func (m *ChatModel) SetSuggestionPrompts(prompts []SuggestionPrompt) error {
	data, err := json.Marshal(prompts)
	if err != nil {
		return err
	}
	m.SuggestionPrompts = string(data)
	return nil
}

// GetSuggestionPrompts deserializes the stored prompts.
func (m *ChatModel) GetSuggestionPrompts() ([]SuggestionPrompt, error) {
	var prompts []SuggestionPrompt
	if m.SuggestionPrompts == "" {
		return prompts, nil
	}
	err := json.Unmarshal([]byte(m.SuggestionPrompts), &prompts)
	return prompts, err
}

// UpsertChatModel creates or refreshes a huddle's model record by model id.
func UpsertChatModel(m *ChatModel, db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "model_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "base_model_id", "profile_image_url",
			"suggestion_prompts", "is_active", "updated_at",
		}),
	}).Create(m).Error
}

// GetChatModelByModelID retrieves a model record by its external model id.
func GetChatModelByModelID(modelID string, db *gorm.DB) (ChatModel, error) {
	var m ChatModel
	err := db.First(&m, "model_id = ?", modelID).Error
	return m, err
}

// GetChatModelsByHuddle lists active model records for a huddle.
func GetChatModelsByHuddle(huddleID string, db *gorm.DB) ([]ChatModel, error) {
	var models []ChatModel
	err := db.Where("huddle_id = ? AND is_active = ?", huddleID, true).Find(&models).Error
	return models, err
}
