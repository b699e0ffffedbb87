package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"genmedia-backend-go/internal/genai"
	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type GenerateVideoRequest struct {
	Prompt         string `json:"prompt" validate:"required"`
	Model          string `json:"model"`
	NegativePrompt string `json:"negativePrompt"`
	AspectRatio    string `json:"aspectRatio"`
	Image          string `json:"image"` // base64, animate mode only
	ImageMimeType  string `json:"imageMimeType"`
}

func (s *Server) startVideo(w http.ResponseWriter, r *http.Request, mode string) {
	user := CurrentUser(r)
	var req GenerateVideoRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	var source *genai.Blob
	if mode == "animate" {
		if req.Image == "" {
			WriteError(w, http.StatusBadRequest, "Animation requires a source image")
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid base64 image payload")
			return
		}
		mimeType := req.ImageMimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		source = &genai.Blob{MimeType: mimeType, Data: data}
	}
	// The quota is checked up front but only charged when the operation
	// completes; video generations that never finish cost nothing.
	if err := services.CheckQuota(s.DB, user.ID, models.GenVideo); err != nil {
		WriteServiceError(w, err)
		return
	}
	model := req.Model
	if model == "" {
		model = genai.DefaultVideoModel
	}
	op, err := s.Genai.StartVideo(r.Context(), genai.VideoRequest{
		Model:          model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		SourceImage:    source,
	})
	if err != nil {
		WriteServiceError(w, services.WrapError(err, "video generation failed"))
		return
	}
	details, _ := json.Marshal(models.MediaDetails{
		Mode:           mode,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
	})
	detailsJSON := string(details)
	job, err := services.CreateVideoJob(s.DB, &models.VideoJob{
		ID:          uuid.NewString(),
		JobID:       &op.Name,
		OperationID: &op.Name,
		UserID:      user.ID,
		Prompt:      req.Prompt,
		Model:       model,
		Mode:        mode,
		Status:      models.JobProcessing,
		Details:     &detailsJSON,
		IPAddress:   clientIP(r),
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildVideoJobDTO(*job))
}

func (s *Server) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	s.startVideo(w, r, "generate")
}

func (s *Server) AnimateImage(w http.ResponseWriter, r *http.Request) {
	s.startVideo(w, r, "animate")
}

func (s *Server) ownedVideoJob(r *http.Request, ref string) (*models.VideoJob, error) {
	job, err := services.GetVideoJob(s.DB, ref)
	if err != nil {
		return nil, err
	}
	allowed, err := canAccessUserMedia(s.DB, CurrentUser(r), job.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, services.ErrForbidden("You do not have access to this job")
	}
	return job, nil
}

// VideoStatus polls the provider for a tracked job and advances its state.
// Completion downloads the video, stores it and charges the quota.
func (s *Server) VideoStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("id")
	if ref == "" {
		ref = r.URL.Query().Get("jobId")
	}
	if ref == "" {
		WriteError(w, http.StatusBadRequest, "Job id is required")
		return
	}
	job, err := s.ownedVideoJob(r, ref)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if job.Terminal() || job.OperationID == nil {
		WriteJSON(w, http.StatusOK, buildVideoJobDTO(*job))
		return
	}

	op, err := s.Genai.PollVideoOperation(r.Context(), *job.OperationID)
	if err != nil {
		WriteServiceError(w, services.WrapError(err, "poll video operation"))
		return
	}
	switch {
	case !op.Done:
		progress := job.Progress
		if progress < 90 {
			progress += 10
		}
		job, err = services.UpdateVideoJob(s.DB, job.ID, services.VideoJobUpdate{Progress: &progress})
	case op.Error != "":
		status := models.JobFailed
		job, err = services.UpdateVideoJob(s.DB, job.ID, services.VideoJobUpdate{
			Status: &status,
			Error:  &op.Error,
		})
	default:
		job, err = s.completeVideoJob(r, job, op)
	}
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildVideoJobDTO(*job))
}

func (s *Server) completeVideoJob(r *http.Request, job *models.VideoJob, op *genai.VideoOperation) (*models.VideoJob, error) {
	if op.VideoURI == "" {
		status := models.JobFailed
		msg := "Operation finished without a video"
		return services.UpdateVideoJob(s.DB, job.ID, services.VideoJobUpdate{Status: &status, Error: &msg})
	}
	video, err := s.Genai.DownloadVideo(r.Context(), op.VideoURI)
	if err != nil {
		return nil, services.WrapError(err, "download video")
	}
	var details *models.MediaDetails
	if job.Details != nil {
		details = &models.MediaDetails{}
		if err := json.Unmarshal([]byte(*job.Details), details); err != nil {
			details = nil
		}
	}
	item, err := services.SaveMedia(s.DB, s.Config.MediaStoragePath, job.UserID, models.MediaVideo,
		video.MimeType, job.Prompt, job.Model, details, job.IPAddress, video.Data)
	if err != nil {
		return nil, err
	}
	if err := services.IncrementQuota(s.DB, job.UserID, models.GenVideo); err != nil {
		log.Error().Err(err).Str("user_id", job.UserID).Msg("charge video quota")
	}
	status := models.JobCompleted
	progress := 100
	url := "/api/media/" + item.ID
	return services.UpdateVideoJob(s.DB, job.ID, services.VideoJobUpdate{
		Status:   &status,
		Progress: &progress,
		MediaID:  &item.ID,
		VideoURL: &url,
	})
}

func (s *Server) ListVideoJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := services.ListVideoJobs(s.DB, CurrentUser(r).ID, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]VideoJobDTO, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, buildVideoJobDTO(job))
	}
	WriteJSON(w, http.StatusOK, items)
}

func (s *Server) GetVideoJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedVideoJob(r, chi.URLParam(r, "jobId"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildVideoJobDTO(*job))
}
