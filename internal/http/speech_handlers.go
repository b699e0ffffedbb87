package httpapi

import (
	"net/http"

	"genmedia-backend-go/internal/genai"
	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type GenerateSpeechRequest struct {
	Text  string `json:"text" validate:"required"`
	Model string `json:"model"`
	Voice string `json:"voice"`
}

func (s *Server) GenerateSpeech(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req GenerateSpeechRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if err := services.ConsumeQuota(s.DB, user.ID, models.GenSpeech); err != nil {
		WriteServiceError(w, err)
		return
	}
	model := req.Model
	if model == "" {
		model = genai.DefaultSpeechModel
	}
	voice := req.Voice
	if voice == "" {
		voice = genai.DefaultVoice
	}
	audio, err := s.Genai.GenerateSpeech(r.Context(), genai.SpeechRequest{Model: model, Text: req.Text, Voice: voice})
	if err != nil {
		_ = services.ReleaseQuota(s.DB, user.ID, models.GenSpeech)
		WriteServiceError(w, services.WrapError(err, "speech generation failed"))
		return
	}
	item, err := services.SaveMedia(s.DB, s.Config.MediaStoragePath, user.ID, models.MediaAudio,
		audio.MimeType, req.Text, model, &models.MediaDetails{Voice: voice}, clientIP(r), audio.Data)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"media": buildMediaDTO(*item)})
}
