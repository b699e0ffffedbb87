package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type BulkCreateUsersRequest struct {
	Emails []string          `json:"emails" validate:"required,min=1,dive,email"`
	Tags   []string          `json:"tags"`
	Quotas []BulkQuotaPolicy `json:"quotas"`
}

type BulkQuotaPolicy struct {
	GenerationType string `json:"generationType" validate:"required,oneof=image video text speech"`
	QuotaType      string `json:"quotaType" validate:"required,oneof=limited unlimited"`
	Limit          *int   `json:"limit"`
}

type BulkCreateUsersResponse struct {
	Created []UserDTO `json:"created"`
	Skipped []string  `json:"skipped"`
}

// AdminBulkCreateUsers creates accounts for a list of emails. New users get
// no password (first-login setup), the supplied tags, and either the given
// quota policies or the defaults. Each new user is delegated to the calling
// admin. Emails that already exist are reported as skipped.
func (s *Server) AdminBulkCreateUsers(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	var req BulkCreateUsersRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "At least one valid email is required")
		return
	}
	resp := BulkCreateUsersResponse{Created: []UserDTO{}, Skipped: []string{}}
	for _, email := range req.Emails {
		if _, err := services.GetUserByEmail(s.DB, email); err == nil {
			resp.Skipped = append(resp.Skipped, services.NormalizeEmail(email))
			continue
		}
		user, err := services.CreateUser(s.DB, email, nil, false, true)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if err := services.CreateAdminRelationship(s.DB, admin.ID, user.ID); err != nil {
			WriteServiceError(w, err)
			return
		}
		if len(req.Quotas) > 0 {
			for _, policy := range req.Quotas {
				if _, err := services.CreateQuota(s.DB, user.ID, policy.GenerationType, policy.QuotaType, policy.Limit); err != nil {
					WriteServiceError(w, err)
					return
				}
			}
		} else if err := services.SetDefaultQuotas(s.DB, user.ID); err != nil {
			WriteServiceError(w, err)
			return
		}
		for _, tag := range req.Tags {
			if err := services.AddUserTag(s.DB, user.ID, tag); err != nil {
				WriteServiceError(w, err)
				return
			}
		}
		resp.Created = append(resp.Created, buildUserDTO(s.DB, user))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	admin := CurrentUser(r)
	users, err := services.AdminManagedUsers(s.DB, admin.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	items := make([]UserDTO, 0, len(users))
	for i := range users {
		items = append(items, buildUserDTO(s.DB, &users[i]))
	}
	WriteJSON(w, http.StatusOK, items)
}

// managedUser loads the path user and enforces the delegation check.
func (s *Server) managedUser(r *http.Request) (*models.User, error) {
	admin := CurrentUser(r)
	userID := chi.URLParam(r, "userId")
	user, err := services.GetUserByID(s.DB, userID)
	if err != nil {
		return nil, err
	}
	if user.ID == admin.ID {
		return user, nil
	}
	allowed, err := services.CanAdminManage(s.DB, admin.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, services.ErrForbidden("You do not manage this user")
	}
	return user, nil
}

func (s *Server) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildUserDTO(s.DB, user))
}

type AdminUpdateUserRequest struct {
	IsActive *bool `json:"isActive"`
}

func (s *Server) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	var req AdminUpdateUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	updated, err := services.UpdateUser(s.DB, user.ID, services.UserUpdate{IsActive: req.IsActive})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		_ = services.InvalidateUserSessions(s.DB, user.ID)
	}
	WriteJSON(w, http.StatusOK, buildUserDTO(s.DB, updated))
}

func (s *Server) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if user.ID == CurrentUser(r).ID {
		WriteError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := services.DeleteAllMediaForUser(s.DB, s.Config.MediaStoragePath, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.DeleteUser(s.DB, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminResetPassword clears the user's credential and forces the
// set-password flow on next login.
func (s *Server) AdminResetPassword(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	reset := true
	if _, err := services.UpdateUser(s.DB, user.ID, services.UserUpdate{RequirePasswordReset: &reset}); err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = services.InvalidateUserSessions(s.DB, user.ID)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password reset required"})
}

// AdminUserGenerations lists a managed user's media for the admin view.
func (s *Server) AdminUserGenerations(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	items, total, err := services.ListMedia(s.DB, services.MediaFilter{
		OwnerIDs: []string{user.ID},
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

type SetTagsRequest struct {
	Tags []string `json:"tags"`
}

func (s *Server) AdminSetUserTags(w http.ResponseWriter, r *http.Request) {
	user, err := s.managedUser(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	var req SetTagsRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.SetUserTags(s.DB, user.ID, req.Tags); err != nil {
		WriteServiceError(w, err)
		return
	}
	tags, err := services.UserTags(s.DB, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

func (s *Server) AdminAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := services.AllTags(s.DB)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}
