package handlers

import (
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
)

type RouterDeps struct {
	Log         *zap.Logger
	CORSOrigins []string
	Sentry      bool

	Authenticator middleware.Authenticator
	Cookies       middleware.SessionCookies
	LoginLimiter  *middleware.RateLimiter
	ClientIPs     *middleware.IPResolver

	Health       *HealthHandler
	Auth         *AuthHandler
	Institutions *InstitutionHandler
	Tasks        *TaskHandler
	Alerts       *AlertHandler
	Campaigns    *CampaignHandler
	Dashboard    *DashboardHandler
	Users        *UserHandler
	Assistant    *AssistantHandler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(d.ClientIPs))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if d.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true, Timeout: 2 * time.Second}).Handle)
	}
	r.Use(middleware.Metrics)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "HX-Request"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Health != nil {
		r.Get("/health", d.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	admin := middleware.RequireRole(entity.RoleAdmin)
	sellers := middleware.RequireRole(entity.RoleAdmin, entity.RoleSales)
	staff := middleware.RequireRole(entity.RoleAdmin, entity.RoleSales, entity.RoleSupport)

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(d.LoginLimiter, d.ClientIPs)).Post("/login", d.Auth.Login)
		r.Post("/register", d.Auth.Register)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Authenticator, d.Cookies, d.Log))
			r.Post("/logout", d.Auth.Logout)
			r.Get("/me", d.Auth.Me)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(d.Authenticator, d.Cookies, d.Log))

		r.Route("/institutions", func(r chi.Router) {
			r.Get("/", d.Institutions.List)
			r.With(sellers).Post("/", d.Institutions.Create)
			r.Get("/board", d.Institutions.Board)
			r.With(sellers).Post("/import", d.Institutions.Import)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.Institutions.Get)
				r.With(sellers).Put("/", d.Institutions.Update)
				r.With(admin).Delete("/", d.Institutions.Delete)
				r.With(sellers).Post("/stage", d.Institutions.Move)
				r.Get("/interactions", d.Institutions.ListInteractions)
				r.With(staff).Post("/interactions", d.Institutions.LogInteraction)
				r.With(sellers).Post("/contact", d.Institutions.Contact)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", d.Tasks.List)
			r.With(sellers).Post("/", d.Tasks.Create)
			r.Patch("/{id}/done", d.Tasks.SetDone)
			r.With(admin).Delete("/{id}", d.Tasks.Delete)
			r.With(sellers).Post("/{id}/notify", d.Tasks.Notify)
		})

		r.Get("/alerts/stale", d.Alerts.ListStale)
		r.With(sellers).Post("/alerts/stale/{id}/follow-up", d.Alerts.FollowUp)

		r.With(sellers).Post("/campaigns/email", d.Campaigns.SendEmail)

		r.Get("/dashboard/metrics", d.Dashboard.Metrics)
		r.With(sellers).Get("/dashboard/sales", d.Dashboard.Sales)

		r.Route("/users", func(r chi.Router) {
			r.Get("/assignable", d.Users.Assignable)
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", d.Users.List)
				r.Post("/", d.Users.Create)
				r.Get("/metrics", d.Users.Metrics)
				r.Put("/{id}", d.Users.Update)
				r.Delete("/{id}", d.Users.Delete)
				r.Patch("/{id}/active", d.Users.SetActive)
			})
		})

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/documents", d.Assistant.UploadDocument)
			r.Post("/documents/{id}/ask", d.Assistant.AskDocument)
			r.Post("/tables/ask", d.Assistant.AskTable)
		})
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
