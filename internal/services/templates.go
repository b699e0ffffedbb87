package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
)

func CreatePromptTemplate(db *sqlx.DB, userID, name, mediaType, templateText string, variables *string) (*models.PromptTemplate, error) {
	if name == "" || templateText == "" {
		return nil, ErrBadRequest("Name and template text are required")
	}
	now := time.Now().UTC()
	tpl := models.PromptTemplate{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		MediaType:    mediaType,
		TemplateText: templateText,
		Variables:    variables,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.Exec(`
INSERT INTO prompt_templates (id, user_id, name, media_type, template_text, variables, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, tpl.ID, tpl.UserID, tpl.Name, tpl.MediaType, tpl.TemplateText, tpl.Variables, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return nil, WrapError(err, "insert prompt template")
	}
	return &tpl, nil
}

func GetPromptTemplate(db *sqlx.DB, userID, templateID string) (*models.PromptTemplate, error) {
	tpl := models.PromptTemplate{}
	err := db.Get(&tpl, `SELECT * FROM prompt_templates WHERE id = ? AND user_id = ?`, templateID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("Prompt template not found")
	}
	if err != nil {
		return nil, WrapError(err, "get prompt template")
	}
	return &tpl, nil
}

func ListPromptTemplates(db *sqlx.DB, userID, mediaType string) ([]models.PromptTemplate, error) {
	templates := []models.PromptTemplate{}
	query := `SELECT * FROM prompt_templates WHERE user_id = ?`
	args := []interface{}{userID}
	if mediaType != "" {
		query += ` AND media_type = ?`
		args = append(args, mediaType)
	}
	query += ` ORDER BY updated_at DESC`
	err := db.Select(&templates, query, args...)
	return templates, WrapError(err, "list prompt templates")
}

func UpdatePromptTemplate(db *sqlx.DB, userID, templateID string, name, templateText, variables *string) (*models.PromptTemplate, error) {
	tpl, err := GetPromptTemplate(db, userID, templateID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		tpl.Name = *name
	}
	if templateText != nil {
		tpl.TemplateText = *templateText
	}
	if variables != nil {
		tpl.Variables = variables
	}
	tpl.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(`
UPDATE prompt_templates SET name = ?, template_text = ?, variables = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`, tpl.Name, tpl.TemplateText, tpl.Variables, tpl.UpdatedAt, tpl.ID, userID)
	if err != nil {
		return nil, WrapError(err, "update prompt template")
	}
	return tpl, nil
}

func DeletePromptTemplate(db *sqlx.DB, userID, templateID string) error {
	res, err := db.Exec(`DELETE FROM prompt_templates WHERE id = ? AND user_id = ?`, templateID, userID)
	if err != nil {
		return WrapError(err, "delete prompt template")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound("Prompt template not found")
	}
	return nil
}

func CreateSystemPrompt(db *sqlx.DB, userID, name, mediaType, promptText string) (*models.SystemPrompt, error) {
	if name == "" || promptText == "" {
		return nil, ErrBadRequest("Name and prompt text are required")
	}
	now := time.Now().UTC()
	sp := models.SystemPrompt{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		MediaType:  mediaType,
		PromptText: promptText,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := db.Exec(`
INSERT INTO system_prompts (id, user_id, name, media_type, prompt_text, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, sp.ID, sp.UserID, sp.Name, sp.MediaType, sp.PromptText, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return nil, WrapError(err, "insert system prompt")
	}
	return &sp, nil
}

func GetSystemPrompt(db *sqlx.DB, userID, promptID string) (*models.SystemPrompt, error) {
	sp := models.SystemPrompt{}
	err := db.Get(&sp, `SELECT * FROM system_prompts WHERE id = ? AND user_id = ?`, promptID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("System prompt not found")
	}
	if err != nil {
		return nil, WrapError(err, "get system prompt")
	}
	return &sp, nil
}

func ListSystemPrompts(db *sqlx.DB, userID, mediaType string) ([]models.SystemPrompt, error) {
	prompts := []models.SystemPrompt{}
	query := `SELECT * FROM system_prompts WHERE user_id = ?`
	args := []interface{}{userID}
	if mediaType != "" {
		query += ` AND media_type = ?`
		args = append(args, mediaType)
	}
	query += ` ORDER BY updated_at DESC`
	err := db.Select(&prompts, query, args...)
	return prompts, WrapError(err, "list system prompts")
}

func UpdateSystemPrompt(db *sqlx.DB, userID, promptID string, name, promptText *string) (*models.SystemPrompt, error) {
	sp, err := GetSystemPrompt(db, userID, promptID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		sp.Name = *name
	}
	if promptText != nil {
		sp.PromptText = *promptText
	}
	sp.UpdatedAt = time.Now().UTC()
	_, err = db.Exec(`
UPDATE system_prompts SET name = ?, prompt_text = ?, updated_at = ? WHERE id = ? AND user_id = ?
`, sp.Name, sp.PromptText, sp.UpdatedAt, sp.ID, userID)
	if err != nil {
		return nil, WrapError(err, "update system prompt")
	}
	return sp, nil
}

func DeleteSystemPrompt(db *sqlx.DB, userID, promptID string) error {
	res, err := db.Exec(`DELETE FROM system_prompts WHERE id = ? AND user_id = ?`, promptID, userID)
	if err != nil {
		return WrapError(err, "delete system prompt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound("System prompt not found")
	}
	return nil
}
