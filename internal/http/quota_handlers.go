package httpapi

import (
	"net/http"

	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

func (s *Server) AdminGetQuotas(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	quotas, err := services.UserQuotas(s.DB, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]QuotaDTO, 0, len(quotas))
	for _, q := range quotas {
		items = append(items, buildQuotaDTO(q))
	}
	WriteJSON(w, http.StatusOK, items)
}

type UpdateQuotaRequest struct {
	GenerationType string  `json:"generationType" validate:"required,oneof=image video text speech"`
	QuotaType      *string `json:"quotaType" validate:"omitempty,oneof=limited unlimited"`
	Limit          *int    `json:"limit" validate:"omitempty,min=0"`
	ResetUsed      bool    `json:"resetUsed"`
}

// AdminUpdateQuota upserts a managed user's quota policy. A limit of zero
// is valid and fully blocks the category.
func (s *Server) AdminUpdateQuota(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	var req UpdateQuotaRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid quota update")
		return
	}
	_, err = services.GetQuota(s.DB, user.ID, req.GenerationType)
	if err != nil {
		quotaType := models.QuotaLimited
		if req.QuotaType != nil {
			quotaType = *req.QuotaType
		}
		quota, err := services.CreateQuota(s.DB, user.ID, req.GenerationType, quotaType, req.Limit)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, buildQuotaDTO(*quota))
		return
	}
	quota, err := services.UpdateQuota(s.DB, user.ID, req.GenerationType, services.QuotaUpdate{
		QuotaType:  req.QuotaType,
		QuotaLimit: req.Limit,
		ResetUsed:  req.ResetUsed,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuotaDTO(*quota))
}

type ResetQuotaRequest struct {
	GenerationType string `json:"generationType" validate:"required,oneof=image video text speech"`
}

func (s *Server) AdminResetQuota(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	var req ResetQuotaRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid generation type")
		return
	}
	quota, err := services.ResetQuotaUsage(s.DB, user.ID, req.GenerationType)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildQuotaDTO(*quota))
}
