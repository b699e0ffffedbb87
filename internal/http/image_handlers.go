package httpapi

import (
	"encoding/base64"
	"net/http"

	"genmedia-backend-go/internal/genai"
	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type GenerateImageRequest struct {
	Prompt         string   `json:"prompt" validate:"required"`
	Model          string   `json:"model"`
	NegativePrompt string   `json:"negativePrompt"`
	AspectRatio    string   `json:"aspectRatio"`
	Images         []string `json:"images"` // base64, reference or source
	ImageMimeType  string   `json:"imageMimeType"`
}

func decodeInlineImages(encoded []string, mimeType string) ([]genai.Blob, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	blobs := make([]genai.Blob, 0, len(encoded))
	for _, img := range encoded {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return nil, services.ErrBadRequest("Invalid base64 image payload")
		}
		blobs = append(blobs, genai.Blob{MimeType: mimeType, Data: data})
	}
	return blobs, nil
}

func (s *Server) generateImage(w http.ResponseWriter, r *http.Request, mode string) {
	user := CurrentUser(r)
	var req GenerateImageRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	refs, err := decodeInlineImages(req.Images, req.ImageMimeType)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if mode == "edit" && len(refs) == 0 {
		WriteError(w, http.StatusBadRequest, "Editing requires at least one source image")
		return
	}
	if err := services.ConsumeQuota(s.DB, user.ID, models.GenImage); err != nil {
		WriteServiceError(w, err)
		return
	}
	model := req.Model
	if model == "" {
		model = genai.DefaultImageModel
	}
	images, err := s.Genai.GenerateImage(r.Context(), genai.ImageRequest{
		Model:           model,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		AspectRatio:     req.AspectRatio,
		ReferenceImages: refs,
	})
	if err != nil {
		_ = services.ReleaseQuota(s.DB, user.ID, models.GenImage)
		WriteServiceError(w, services.WrapError(err, "image generation failed"))
		return
	}
	details := &models.MediaDetails{
		Mode:           mode,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
	}
	if mode == "edit" {
		details.SourceImages = len(refs)
	} else {
		details.ReferenceImages = len(refs)
	}
	saved := make([]MediaDTO, 0, len(images))
	for _, img := range images {
		item, err := services.SaveMedia(s.DB, s.Config.MediaStoragePath, user.ID, models.MediaImage,
			img.MimeType, req.Prompt, model, details, clientIP(r), img.Data)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		saved = append(saved, buildMediaDTO(*item))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"media": saved})
}

func (s *Server) GenerateImage(w http.ResponseWriter, r *http.Request) {
	s.generateImage(w, r, "generate")
}

func (s *Server) EditImage(w http.ResponseWriter, r *http.Request) {
	s.generateImage(w, r, "edit")
}
