package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
	"genmedia-backend-go/internal/services"
)

type contextKey string

const (
	ctxUser  contextKey = "user"
	ctxToken contextKey = "sessionToken"
)

// bearerToken pulls the session token from the Authorization header, or
// from the token query parameter for websocket clients that cannot set
// headers.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// WithAuth resolves the bearer token to a user through the session store.
func WithAuth(db *sqlx.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			user, err := services.SessionUser(db, token)
			if err != nil {
				WriteServiceError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUser, user)
			ctx = context.WithValue(ctx, ctxToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentUser(r *http.Request) *models.User {
	if user, ok := r.Context().Value(ctxUser).(*models.User); ok {
		return user
	}
	return nil
}

func CurrentToken(r *http.Request) string {
	if token, ok := r.Context().Value(ctxToken).(string); ok {
		return token
	}
	return ""
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil || !user.IsAdmin {
			WriteError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the request origin behind proxies.
func clientIP(r *http.Request) *string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip != "" {
			return &ip
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		ip := strings.TrimSpace(real)
		return &ip
	}
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		addr = addr[:i]
	}
	if addr == "" {
		return nil
	}
	return &addr
}

// visibleOwnerIDs is the set of user ids whose media the requester may see:
// themselves, plus delegated users for an admin.
func visibleOwnerIDs(db *sqlx.DB, user *models.User) ([]string, error) {
	owners := []string{user.ID}
	if !user.IsAdmin {
		return owners, nil
	}
	managed, err := services.AdminManagedUsers(db, user.ID)
	if err != nil {
		return nil, err
	}
	for _, u := range managed {
		if u.ID != user.ID {
			owners = append(owners, u.ID)
		}
	}
	return owners, nil
}

// canAccessUserMedia reports whether the requester owns the item or is a
// delegated admin over its owner.
func canAccessUserMedia(db *sqlx.DB, requester *models.User, ownerID string) (bool, error) {
	if requester.ID == ownerID {
		return true, nil
	}
	if !requester.IsAdmin {
		return false, nil
	}
	return services.CanAdminManage(db, requester.ID, ownerID)
}
