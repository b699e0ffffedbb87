package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

// accessibleMedia loads a media item and enforces owner-or-delegated-admin.
func (s *Server) accessibleMedia(r *http.Request) (*models.MediaItem, error) {
	item, err := services.GetMedia(s.DB, chi.URLParam(r, "mediaId"))
	if err != nil {
		return nil, err
	}
	allowed, err := canAccessUserMedia(s.DB, CurrentUser(r), item.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, services.ErrForbidden("You do not have access to this media")
	}
	return item, nil
}

func (s *Server) ListMedia(w http.ResponseWriter, r *http.Request) {
	owners, err := visibleOwnerIDs(s.DB, CurrentUser(r))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	items, total, err := services.ListMedia(s.DB, services.MediaFilter{
		OwnerIDs: owners,
		Type:     r.URL.Query().Get("type"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	dtos := make([]MediaDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, buildMediaDTO(item))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	WriteJSON(w, http.StatusOK, PagedResponse{Items: dtos, Total: total, Page: page, PageSize: pageSize})
}

func (s *Server) MediaStats(w http.ResponseWriter, r *http.Request) {
	owners, err := visibleOwnerIDs(s.DB, CurrentUser(r))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	stats, err := services.GetMediaStats(s.DB, owners)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) MediaInfo(w http.ResponseWriter, r *http.Request) {
	item, err := s.accessibleMedia(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMediaDTO(*item))
}

func (s *Server) MediaContent(w http.ResponseWriter, r *http.Request) {
	item, err := s.accessibleMedia(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	path, err := services.OpenMediaFile(s.Config.MediaStoragePath, item)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", item.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, path)
}

func (s *Server) MediaThumbnail(w http.ResponseWriter, r *http.Request) {
	item, err := s.accessibleMedia(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	path, err := services.Thumbnail(r.Context(), s.Config.MediaStoragePath, item)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, path)
}

func (s *Server) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	item, err := s.accessibleMedia(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.DeleteMedia(s.DB, s.Config.MediaStoragePath, item.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
