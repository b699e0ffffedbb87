package httpapi

import (
	"time"

	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type UserDTO struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	IsActive             bool       `json:"isActive"`
	IsAdmin              bool       `json:"isAdmin"`
	RequirePasswordReset bool       `json:"requirePasswordReset"`
	Tags                 []string   `json:"tags"`
	CreatedAt            time.Time  `json:"createdAt"`
	LastLoginAt          *time.Time `json:"lastLoginAt,omitempty"`
}

func buildUserDTO(db *sqlx.DB, user *models.User) UserDTO {
	tags, err := services.UserTags(db, user.ID)
	if err != nil {
		tags = []string{}
	}
	return UserDTO{
		ID:                   user.ID,
		Email:                user.Email,
		IsActive:             user.IsActive,
		IsAdmin:              user.IsAdmin,
		RequirePasswordReset: user.RequirePasswordReset,
		Tags:                 tags,
		CreatedAt:            user.CreatedAt,
		LastLoginAt:          user.LastLoginAt,
	}
}

type QuotaDTO struct {
	GenerationType string `json:"generationType"`
	QuotaType      string `json:"quotaType"`
	Limit          *int   `json:"limit,omitempty"`
	Used           int    `json:"used"`
	Remaining      *int   `json:"remaining,omitempty"`
}

func buildQuotaDTO(q models.Quota) QuotaDTO {
	return QuotaDTO{
		GenerationType: q.GenerationType,
		QuotaType:      q.QuotaType,
		Limit:          q.QuotaLimit,
		Used:           q.QuotaUsed,
		Remaining:      q.Remaining(),
	}
}

type MediaDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Filename  string    `json:"filename"`
	Prompt    string    `json:"prompt"`
	Model     string    `json:"model"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	FileSize  int64     `json:"fileSize"`
	MimeType  string    `json:"mimeType"`
	Details   *string   `json:"details,omitempty"`
	URL       string    `json:"url"`
}

func buildMediaDTO(item models.MediaItem) MediaDTO {
	return MediaDTO{
		ID:        item.ID,
		Type:      item.Type,
		Filename:  item.Filename,
		Prompt:    item.Prompt,
		Model:     item.Model,
		UserID:    item.UserID,
		CreatedAt: item.CreatedAt,
		FileSize:  item.FileSize,
		MimeType:  item.MimeType,
		Details:   item.Details,
		URL:       "/api/media/" + item.ID,
	}
}

type PromptTemplateDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MediaType    string    `json:"mediaType"`
	TemplateText string    `json:"templateText"`
	Variables    *string   `json:"variables,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func buildPromptTemplateDTO(t models.PromptTemplate) PromptTemplateDTO {
	return PromptTemplateDTO{
		ID:           t.ID,
		Name:         t.Name,
		MediaType:    t.MediaType,
		TemplateText: t.TemplateText,
		Variables:    t.Variables,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type SystemPromptDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaType  string    `json:"mediaType"`
	PromptText string    `json:"promptText"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func buildSystemPromptDTO(p models.SystemPrompt) SystemPromptDTO {
	return SystemPromptDTO{
		ID:         p.ID,
		Name:       p.Name,
		MediaType:  p.MediaType,
		PromptText: p.PromptText,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

type ChatSessionDTO struct {
	ID             string    `json:"id"`
	Name           *string   `json:"name,omitempty"`
	SystemPrompt   *string   `json:"systemPrompt,omitempty"`
	SystemPromptID *string   `json:"systemPromptId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func buildChatSessionDTO(c models.ChatSession) ChatSessionDTO {
	return ChatSessionDTO{
		ID:             c.ID,
		Name:           c.Name,
		SystemPrompt:   c.SystemPrompt,
		SystemPromptID: c.SystemPromptID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type ChatMessageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func buildChatMessageDTO(m models.ChatMessage) ChatMessageDTO {
	return ChatMessageDTO{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

type TextGenerationDTO struct {
	ID             string    `json:"id"`
	Mode           string    `json:"mode"`
	SystemPrompt   *string   `json:"systemPrompt,omitempty"`
	SystemPromptID *string   `json:"systemPromptId,omitempty"`
	UserMessage    *string   `json:"userMessage,omitempty"`
	TemplateID     *string   `json:"templateId,omitempty"`
	ModelResponse  *string   `json:"modelResponse,omitempty"`
	Model          *string   `json:"model,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func buildTextGenerationDTO(g models.TextGeneration) TextGenerationDTO {
	return TextGenerationDTO{
		ID:             g.ID,
		Mode:           g.Mode,
		SystemPrompt:   g.SystemPrompt,
		SystemPromptID: g.SystemPromptID,
		UserMessage:    g.UserMessage,
		TemplateID:     g.TemplateID,
		ModelResponse:  g.ModelResponse,
		Model:          g.Model,
		CreatedAt:      g.CreatedAt,
	}
}

type VideoJobDTO struct {
	ID          string     `json:"id"`
	JobID       *string    `json:"jobId,omitempty"`
	OperationID *string    `json:"operationId,omitempty"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Prompt      string     `json:"prompt"`
	Model       string     `json:"model"`
	Mode        string     `json:"mode"`
	Error       *string    `json:"error,omitempty"`
	VideoURL    *string    `json:"videoUrl,omitempty"`
	MediaID     *string    `json:"mediaId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func buildVideoJobDTO(job models.VideoJob) VideoJobDTO {
	return VideoJobDTO{
		ID:          job.ID,
		JobID:       job.JobID,
		OperationID: job.OperationID,
		Status:      job.Status,
		Progress:    job.Progress,
		Prompt:      job.Prompt,
		Model:       job.Model,
		Mode:        job.Mode,
		Error:       job.Error,
		VideoURL:    job.VideoURL,
		MediaID:     job.MediaID,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		CompletedAt: job.CompletedAt,
	}
}
