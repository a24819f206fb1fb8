package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/go-blog-auth/internal/application/auth"
	"github.com/go-blog-auth/internal/config"
	"github.com/go-blog-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-blog-auth/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. The session middleware
// wraps every route, so any handler can resolve or establish the caller's
// identity through the session package.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sessionMw := appmiddleware.NewSession(deps.SessionRepo, cfg.SessionCookieName, cfg.SessionTTL)
	r.Use(sessionMw.Handler)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authSvc := auth.NewService(deps.UserRepo, deps.VerificationRepo, deps.Mailer, cfg.VerificationTTL, cfg.PublicBaseURL)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(authSvc)
	userH := handler.NewUserHandler(authSvc)
	emailH := handler.NewEmailConfirmHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/sign-in", sessionH.SignIn)
		r.Post("/sessions/sign-out", sessionH.SignOut)
		r.Get("/sessions", sessionH.GetCurrent)

		r.Post("/email-confirmations", emailH.Request)
		r.With(sensitiveRL.Limit).Post("/email-confirmations/confirm", emailH.Confirm)
		r.With(sensitiveRL.Limit).Get("/email-confirmations/confirm", emailH.Confirm)
	})

	return r
}
