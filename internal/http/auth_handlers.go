package httpapi

import (
	"net/http"
	"time"

	"genmedia-backend-go/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionResponse struct {
	Token                string  `json:"token"`
	ExpiresAt            int64   `json:"expiresAt"`
	RequirePasswordReset bool    `json:"requirePasswordReset"`
	User                 UserDTO `json:"user"`
}

func (s *Server) sessionTTL() time.Duration {
	return time.Duration(s.Config.SessionTTLHours) * time.Hour
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, err := services.GetUserByEmail(s.DB, req.Email)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !user.IsActive {
		WriteError(w, http.StatusForbidden, "Account is deactivated")
		return
	}
	if user.PasswordHash == nil {
		// Account created without a credential: the user must pick one
		// through the set-password flow before logging in.
		WriteJSON(w, http.StatusForbidden, map[string]interface{}{
			"message":              "Password setup required",
			"requirePasswordSetup": true,
		})
		return
	}
	if !services.VerifyPassword(req.Password, *user.PasswordHash) {
		WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	session, err := services.CreateSession(s.DB, user.ID, s.sessionTTL())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = services.UpdateLastLogin(s.DB, user.ID)
	WriteJSON(w, http.StatusOK, SessionResponse{
		Token:                session.Token,
		ExpiresAt:            session.ExpiresAt.Unix(),
		RequirePasswordReset: user.RequirePasswordReset,
		User:                 buildUserDTO(s.DB, user),
	})
}

type SetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetPassword completes first-login setup for accounts created without a
// credential, or an admin-forced reset. It is unauthenticated but only
// works while the account is flagged for setup.
func (s *Server) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	user, err := services.GetUserByEmail(s.DB, req.Email)
	if err != nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	if !user.IsActive {
		WriteError(w, http.StatusForbidden, "Account is deactivated")
		return
	}
	if user.PasswordHash != nil && !user.RequirePasswordReset {
		WriteError(w, http.StatusForbidden, "Password is already set")
		return
	}
	if err := services.ValidatePassword(req.Password); err != nil {
		WriteServiceError(w, err)
		return
	}
	user, err = services.UpdateUser(s.DB, user.ID, services.UserUpdate{Password: &req.Password})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := services.SetDefaultQuotas(s.DB, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	session, err := services.CreateSession(s.DB, user.ID, s.sessionTTL())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	_ = services.UpdateLastLogin(s.DB, user.ID)
	WriteJSON(w, http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
		User:      buildUserDTO(s.DB, user),
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	var req ChangePasswordRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteServiceError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "Current and new passwords are required")
		return
	}
	if user.PasswordHash == nil || !services.VerifyPassword(req.CurrentPassword, *user.PasswordHash) {
		WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if err := services.ValidatePassword(req.NewPassword); err != nil {
		WriteServiceError(w, err)
		return
	}
	if _, err := services.UpdateUser(s.DB, user.ID, services.UserUpdate{Password: &req.NewPassword}); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if err := services.InvalidateSession(s.DB, CurrentToken(r)); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, buildUserDTO(s.DB, CurrentUser(r)))
}

func (s *Server) MyQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := services.UserQuotas(s.DB, CurrentUser(r).ID)
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
