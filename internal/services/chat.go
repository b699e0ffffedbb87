package services

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
)

// Chat message roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

func CreateChatSession(db *sqlx.DB, userID string, name, systemPrompt, systemPromptID *string) (*models.ChatSession, error) {
	now := time.Now().UTC()
	session := models.ChatSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		SystemPrompt:   systemPrompt,
		SystemPromptID: systemPromptID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := db.Exec(`
INSERT INTO chat_sessions (id, user_id, name, system_prompt, system_prompt_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, session.ID, session.UserID, session.Name, session.SystemPrompt, session.SystemPromptID,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, WrapError(err, "insert chat session")
	}
	return &session, nil
}

func GetChatSession(db *sqlx.DB, userID, sessionID string) (*models.ChatSession, error) {
	session := models.ChatSession{}
	err := db.Get(&session, `SELECT * FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("Chat session not found")
	}
	if err != nil {
		return nil, WrapError(err, "get chat session")
	}
	return &session, nil
}

func ListChatSessions(db *sqlx.DB, userID string) ([]models.ChatSession, error) {
	sessions := []models.ChatSession{}
	err := db.Select(&sessions, `SELECT * FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	return sessions, WrapError(err, "list chat sessions")
}

func DeleteChatSession(db *sqlx.DB, userID, sessionID string) error {
	res, err := db.Exec(`DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return WrapError(err, "delete chat session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound("Chat session not found")
	}
	return nil
}

// AppendChatMessage stores one turn and bumps the session's activity stamp.
func AppendChatMessage(db *sqlx.DB, sessionID, role, content string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(`
INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)
`, msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, WrapError(err, "insert chat message")
	}
	_, _ = db.Exec(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, msg.CreatedAt, sessionID)
	return &msg, nil
}

// ChatHistory returns a session's messages oldest first, the order the
// model consumes them.
func ChatHistory(db *sqlx.DB, sessionID string) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	err := db.Select(&messages, `SELECT * FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	return messages, WrapError(err, "chat history")
}

// RecordTextGeneration stores one completed text request for history and
// the admin generations view.
func RecordTextGeneration(db *sqlx.DB, gen *models.TextGeneration) (*models.TextGeneration, error) {
	gen.ID = uuid.NewString()
	gen.CreatedAt = time.Now().UTC()
	_, err := db.Exec(`
INSERT INTO text_generations (id, user_id, mode, system_prompt, system_prompt_id, user_message,
	template_id, model_response, model, ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, gen.ID, gen.UserID, gen.Mode, gen.SystemPrompt, gen.SystemPromptID, gen.UserMessage,
		gen.TemplateID, gen.ModelResponse, gen.Model, gen.IPAddress, gen.CreatedAt)
	if err != nil {
		return nil, WrapError(err, "insert text generation")
	}
	return gen, nil
}

func ListTextGenerations(db *sqlx.DB, userID string, limit int) ([]models.TextGeneration, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	gens := []models.TextGeneration{}
	err := db.Select(&gens, `SELECT * FROM text_generations WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	return gens, WrapError(err, "list text generations")
}
