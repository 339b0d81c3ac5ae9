package main

import (
	"net/http"
	"strings"

	"github.com/colloquyhq/colloquy-api/internal/api"
	apiMiddleware "github.com/colloquyhq/colloquy-api/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(app.metrics.Middleware)

	authHandler := api.NewAuthHandler(app.accounts, app.logger)
	profileHandler := api.NewProfileHandler(app.accounts, app.accounts, app.avatars.MaxBytes(), app.logger)
	notificationHandler := api.NewNotificationHandler(app.notifications, app.logger)
	chatHandler := api.NewChatHandler(app.chat, app.feedback, app.logger)
	analyticsHandler := api.NewAnalyticsHandler(app.analytics)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	sessionKey := apiMiddleware.SessionKey(strings.HasPrefix(app.config.Server.PublicURL, "https://"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Post("/password-reset", authHandler.RequestPasswordReset)
			r.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)
			r.With(authMiddleware.Authenticate).Post("/logout", authHandler.Logout)
		})

		// Authenticated account routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Post("/profile/avatar", profileHandler.UploadAvatar)
			r.Get("/notifications", notificationHandler.List)
			r.Post("/notifications/{id}/read", notificationHandler.MarkRead)
		})

		// Chat is open to anonymous visitors, identified by a session key cookie.
		r.Route("/chat", func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuthenticate)
			r.Use(sessionKey)
			r.With(app.limiter.Limit).Post("/query", chatHandler.Query)
			r.Get("/responses/{message_id}", chatHandler.GetResponse)
			r.Get("/history", chatHandler.History)
			r.Get("/sessions/{session_id}", chatHandler.GetSession)
			r.Post("/feedback/message", chatHandler.MessageFeedback)
			r.Post("/feedback/session", chatHandler.SessionFeedback)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(sessionKey)
			r.With(authMiddleware.OptionalAuthenticate).Post("/page-view", analyticsHandler.PageView)
			r.With(authMiddleware.Authenticate).Post("/action", analyticsHandler.UserAction)
		})
	})

	// Avatars are served from disk when the base URL is a local path.
	if base := strings.TrimRight(app.config.Storage.AvatarBaseURL, "/"); strings.HasPrefix(base, "/") {
		r.Handle(base+"/*", http.StripPrefix(base, http.FileServer(http.Dir(app.avatars.Dir()))))
	}

	r.Handle("/metrics", app.metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
