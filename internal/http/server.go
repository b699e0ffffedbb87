package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/config"
	"genmedia-backend-go/internal/genai"
	"genmedia-backend-go/internal/services"
)

type Server struct {
	DB         *sqlx.DB
	Config     config.Config
	Genai      genai.Client
	MetricsHub *services.MetricsHub
	validate   *validator.Validate
}

func NewServer(db *sqlx.DB, cfg config.Config, client genai.Client, hub *services.MetricsHub) *Server {
	return &Server{
		DB:         db,
		Config:     cfg,
		Genai:      client,
		MetricsHub: hub,
		validate:   validator.New(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.Health)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.Login)
		api.Post("/auth/set-password", s.SetPassword)

		api.Group(func(authed chi.Router) {
			authed.Use(WithAuth(s.DB))
			authed.Post("/auth/change-password", s.ChangePassword)
			authed.Post("/auth/logout", s.Logout)
			authed.Get("/auth/me", s.Me)

			authed.Get("/quotas/me", s.MyQuotas)

			authed.Route("/media", func(media chi.Router) {
				media.Get("/", s.ListMedia)
				media.Get("/stats", s.MediaStats)
				media.Get("/{mediaId}", s.MediaContent)
				media.Get("/{mediaId}/info", s.MediaInfo)
				media.Get("/{mediaId}/thumbnail", s.MediaThumbnail)
				media.Delete("/{mediaId}", s.DeleteMedia)
			})

			authed.Route("/image", func(image chi.Router) {
				image.Post("/generate", s.GenerateImage)
				image.Post("/edit", s.EditImage)
			})

			authed.Route("/video", func(video chi.Router) {
				video.Post("/generate", s.GenerateVideo)
				video.Post("/animate", s.AnimateImage)
				video.Get("/status", s.VideoStatus)
				video.Get("/jobs", s.ListVideoJobs)
				video.Get("/jobs/{jobId}", s.GetVideoJob)
			})

			authed.Post("/speech/generate", s.GenerateSpeech)

			authed.Route("/text", func(text chi.Router) {
				text.Post("/generate", s.GenerateText)
				text.Get("/history", s.TextHistory)

				text.Route("/templates", func(templates chi.Router) {
					templates.Get("/", s.ListPromptTemplates)
					templates.Post("/", s.CreatePromptTemplate)
					templates.Put("/{templateId}", s.UpdatePromptTemplate)
					templates.Delete("/{templateId}", s.DeletePromptTemplate)
				})
				text.Route("/system-prompts", func(prompts chi.Router) {
					prompts.Get("/", s.ListSystemPrompts)
					prompts.Post("/", s.CreateSystemPrompt)
					prompts.Put("/{promptId}", s.UpdateSystemPrompt)
					prompts.Delete("/{promptId}", s.DeleteSystemPrompt)
				})
				text.Route("/chats", func(chats chi.Router) {
					chats.Get("/", s.ListChatSessions)
					chats.Post("/", s.CreateChatSession)
					chats.Get("/{sessionId}", s.GetChatSession)
					chats.Delete("/{sessionId}", s.DeleteChatSession)
				})
			})
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.DB))
			admin.Use(RequireAdmin)
			admin.Get("/metrics/history", s.MetricsHistory)
			admin.Route("/users", func(users chi.Router) {
				users.Get("/", s.AdminListUsers)
				users.Post("/", s.AdminBulkCreateUsers)
				users.Get("/tags/all", s.AdminAllTags)
				users.Get("/{userId}", s.AdminGetUser)
				users.Put("/{userId}", s.AdminUpdateUser)
				users.Delete("/{userId}", s.AdminDeleteUser)
				users.Post("/{userId}/reset-password", s.AdminResetPassword)
				users.Get("/{userId}/generations", s.AdminUserGenerations)
				users.Put("/{userId}/tags", s.AdminSetUserTags)
			})
			admin.Route("/quotas", func(quotas chi.Router) {
				quotas.Get("/{userId}", s.AdminGetQuotas)
				quotas.Put("/{userId}", s.AdminUpdateQuota)
				quotas.Post("/{userId}/reset", s.AdminResetQuota)
			})
		})
	})

	r.Get("/ws/metrics", s.MetricsSocket)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.Ping(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
