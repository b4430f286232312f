package server

import (
	"net/http"

	"github.com/dobbyjj/codeme/internal/api"
	"github.com/dobbyjj/codeme/internal/api/handlers"
	"github.com/dobbyjj/codeme/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator    middleware.AuthValidator
	AuthHandler      *handlers.AuthHandler
	ChatHandler      *handlers.ChatHandler
	DocumentHandler  *handlers.DocumentHandler
	GroupHandler     *handlers.GroupHandler
	LinkHandler      *handlers.LinkHandler
	QALogHandler     *handlers.QALogHandler
	DashboardHandler *handlers.DashboardHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/register", cfg.AuthHandler.Register)
	r.Post("/auth/login", cfg.AuthHandler.Login)

	// Anonymous visitors ask questions through a share link; the link ID is
	// the only credential.
	r.Post("/links/{id}/chat", cfg.ChatHandler.AskViaLink)

	// Indexing pipeline callback, guarded by a shared token.
	r.Post("/internal/index-callback", cfg.DocumentHandler.IndexCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.AuthValidator))

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Get("/auth/me", cfg.AuthHandler.Me)

		r.Post("/chat/rag", cfg.ChatHandler.Ask)
		r.Get("/chat/logs", cfg.QALogHandler.List)
		r.Delete("/chat/logs", cfg.QALogHandler.Purge)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/init", cfg.DocumentHandler.InitUpload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Post("/{id}/complete", cfg.DocumentHandler.CompleteUpload)
			r.Get("/{id}/download", cfg.DocumentHandler.GetDownloadURL)
			r.Put("/{id}/group", cfg.DocumentHandler.AssignGroup)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", cfg.GroupHandler.Create)
			r.Get("/", cfg.GroupHandler.List)
			r.Get("/{id}", cfg.GroupHandler.Get)
			r.Put("/{id}", cfg.GroupHandler.Update)
			r.Delete("/{id}", cfg.GroupHandler.Delete)
			r.Get("/{id}/documents", cfg.GroupHandler.ListDocuments)
		})

		r.Route("/links", func(r chi.Router) {
			r.Post("/", cfg.LinkHandler.Create)
			r.Get("/", cfg.LinkHandler.List)
			r.Get("/{id}", cfg.LinkHandler.Get)
			r.Delete("/{id}", cfg.LinkHandler.Deactivate)
		})

		r.Get("/dashboard/overview", cfg.DashboardHandler.Overview)
	})

	return r
}
