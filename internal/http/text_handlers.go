package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"genmedia-backend-go/internal/genai"
	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type GenerateTextRequest struct {
	Message        string            `json:"message" validate:"required"`
	Model          string            `json:"model"`
	SystemPrompt   string            `json:"systemPrompt"`
	SystemPromptID string            `json:"systemPromptId"`
	TemplateID     string            `json:"templateId"`
	Variables      map[string]string `json:"variables"`
	ChatSessionID  string            `json:"chatSessionId"`
}

type GenerateTextResponse struct {
	Response      string  `json:"response"`
	Model         string  `json:"model"`
	ChatSessionID *string `json:"chatSessionId,omitempty"`
}

// fillTemplate substitutes {{name}} placeholders.
func fillTemplate(text string, variables map[string]string) string {
	for name, value := range variables {
		text = strings.ReplaceAll(text, "{{"+name+"}}", value)
	}
	return text
}

func (s *Server) GenerateText(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req GenerateTextRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	message := req.Message
	var templateID *string
	if req.TemplateID != "" {
		tpl, err := services.GetPromptTemplate(s.DB, user.ID, req.TemplateID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		message = fillTemplate(tpl.TemplateText, req.Variables)
		if req.Message != "" {
			message += "\n\n" + req.Message
		}
		templateID = &tpl.ID
	}

	systemPrompt := req.SystemPrompt
	var systemPromptID *string
	if req.SystemPromptID != "" {
		sp, err := services.GetSystemPrompt(s.DB, user.ID, req.SystemPromptID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		systemPrompt = sp.PromptText
		systemPromptID = &sp.ID
	}

	mode := "single"
	history := []genai.TextMessage{}
	var chat *models.ChatSession
	if req.ChatSessionID != "" {
		mode = "chat"
		var err error
		chat, err = services.GetChatSession(s.DB, user.ID, req.ChatSessionID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if systemPromptID == nil && chat.SystemPrompt != nil {
			systemPrompt = *chat.SystemPrompt
		}
		messages, err := services.ChatHistory(s.DB, chat.ID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		for _, msg := range messages {
			history = append(history, genai.TextMessage{Role: msg.Role, Text: msg.Content})
		}
	}

	if err := services.ConsumeQuota(s.DB, user.ID, models.GenText); err != nil {
		WriteServiceError(w, err)
		return
	}
	model := req.Model
	if model == "" {
		model = genai.DefaultTextModel
	}
	response, err := s.Genai.GenerateText(r.Context(), genai.TextRequest{
		Model:        model,
		SystemPrompt: systemPrompt,
		History:      history,
		Message:      message,
	})
	if err != nil {
		_ = services.ReleaseQuota(s.DB, user.ID, models.GenText)
		WriteServiceError(w, services.WrapError(err, "text generation failed"))
		return
	}

	if chat != nil {
		if _, err := services.AppendChatMessage(s.DB, chat.ID, services.RoleUser, message); err != nil {
			WriteServiceError(w, err)
			return
		}
		if _, err := services.AppendChatMessage(s.DB, chat.ID, services.RoleModel, response); err != nil {
			WriteServiceError(w, err)
			return
		}
	}
	record := models.TextGeneration{
		UserID:         user.ID,
		Mode:           mode,
		UserMessage:    &message,
		ModelResponse:  &response,
		Model:          &model,
		TemplateID:     templateID,
		SystemPromptID: systemPromptID,
		IPAddress:      clientIP(r),
	}
	if systemPrompt != "" {
		record.SystemPrompt = &systemPrompt
	}
	if _, err := services.RecordTextGeneration(s.DB, &record); err != nil {
		WriteServiceError(w, err)
		return
	}

	resp := GenerateTextResponse{Response: response, Model: model}
	if chat != nil {
		resp.ChatSessionID = &chat.ID
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) TextHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	gens, err := services.ListTextGenerations(s.DB, CurrentUser(r).ID, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]TextGenerationDTO, 0, len(gens))
	for _, gen := range gens {
		items = append(items, buildTextGenerationDTO(gen))
	}
	WriteJSON(w, http.StatusOK, items)
}

type PromptTemplateRequest struct {
	Name         string  `json:"name" validate:"required"`
	MediaType    string  `json:"mediaType" validate:"required,oneof=text image video"`
	TemplateText string  `json:"templateText" validate:"required"`
	Variables    *string `json:"variables"`
}

func (s *Server) CreatePromptTemplate(w http.ResponseWriter, r *http.Request) {
	var req PromptTemplateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Name, media type and template text are required")
		return
	}
	tpl, err := services.CreatePromptTemplate(s.DB, CurrentUser(r).ID, req.Name, req.MediaType, req.TemplateText, req.Variables)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildPromptTemplateDTO(*tpl))
}

func (s *Server) ListPromptTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := services.ListPromptTemplates(s.DB, CurrentUser(r).ID, r.URL.Query().Get("mediaType"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]PromptTemplateDTO, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, buildPromptTemplateDTO(tpl))
	}
	WriteJSON(w, http.StatusOK, items)
}

type UpdatePromptTemplateRequest struct {
	Name         *string `json:"name"`
	TemplateText *string `json:"templateText"`
	Variables    *string `json:"variables"`
}

func (s *Server) UpdatePromptTemplate(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptTemplateRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	tpl, err := services.UpdatePromptTemplate(s.DB, CurrentUser(r).ID, chi.URLParam(r, "templateId"),
		req.Name, req.TemplateText, req.Variables)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPromptTemplateDTO(*tpl))
}

func (s *Server) DeletePromptTemplate(w http.ResponseWriter, r *http.Request) {
	if err := services.DeletePromptTemplate(s.DB, CurrentUser(r).ID, chi.URLParam(r, "templateId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type SystemPromptRequest struct {
	Name       string `json:"name" validate:"required"`
	MediaType  string `json:"mediaType" validate:"required,oneof=text image video"`
	PromptText string `json:"promptText" validate:"required"`
}

func (s *Server) CreateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req SystemPromptRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Name, media type and prompt text are required")
		return
	}
	sp, err := services.CreateSystemPrompt(s.DB, CurrentUser(r).ID, req.Name, req.MediaType, req.PromptText)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildSystemPromptDTO(*sp))
}

func (s *Server) ListSystemPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := services.ListSystemPrompts(s.DB, CurrentUser(r).ID, r.URL.Query().Get("mediaType"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]SystemPromptDTO, 0, len(prompts))
	for _, sp := range prompts {
		items = append(items, buildSystemPromptDTO(sp))
	}
	WriteJSON(w, http.StatusOK, items)
}

type UpdateSystemPromptRequest struct {
	Name       *string `json:"name"`
	PromptText *string `json:"promptText"`
}

func (s *Server) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdateSystemPromptRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	sp, err := services.UpdateSystemPrompt(s.DB, CurrentUser(r).ID, chi.URLParam(r, "promptId"), req.Name, req.PromptText)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildSystemPromptDTO(*sp))
}

func (s *Server) DeleteSystemPrompt(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteSystemPrompt(s.DB, CurrentUser(r).ID, chi.URLParam(r, "promptId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type CreateChatSessionRequest struct {
	Name           *string `json:"name"`
	SystemPrompt   *string `json:"systemPrompt"`
	SystemPromptID *string `json:"systemPromptId"`
}

func (s *Server) CreateChatSession(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req CreateChatSessionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	systemPrompt := req.SystemPrompt
	if req.SystemPromptID != nil {
		sp, err := services.GetSystemPrompt(s.DB, user.ID, *req.SystemPromptID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		systemPrompt = &sp.PromptText
	}
	session, err := services.CreateChatSession(s.DB, user.ID, req.Name, systemPrompt, req.SystemPromptID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildChatSessionDTO(*session))
}

func (s *Server) ListChatSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := services.ListChatSessions(s.DB, CurrentUser(r).ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]ChatSessionDTO, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, buildChatSessionDTO(session))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) GetChatSession(w http.ResponseWriter, r *http.Request) {
	session, err := services.GetChatSession(s.DB, CurrentUser(r).ID, chi.URLParam(r, "sessionId"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	messages, err := services.ChatHistory(s.DB, session.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	history := make([]ChatMessageDTO, 0, len(messages))
	for _, msg := range messages {
		history = append(history, buildChatMessageDTO(msg))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session":  buildChatSessionDTO(*session),
		"messages": history,
	})
}

func (s *Server) DeleteChatSession(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteChatSession(s.DB, CurrentUser(r).ID, chi.URLParam(r, "sessionId")); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
