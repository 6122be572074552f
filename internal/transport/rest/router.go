package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/reimbursement-management/internal/application"
	"github.com/frahmantamala/reimbursement-management/internal/auth"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	"github.com/frahmantamala/reimbursement-management/internal/transport/middleware"
	"github.com/frahmantamala/reimbursement-management/internal/transport/swagger"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes unregistered.
type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	User        *user.Handler
	Category    *category.Handler
	Application *application.Handler
	Payment     *payment.Handler
	Metrics     http.Handler
	OpenAPIPath string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if h.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, h.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth != nil {
			r.Post("/auth/login", h.Auth.Login)
		}

		if h.Category != nil {
			r.Get("/categories", h.Category.GetCategories)
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.IdentityLogger)

			if h.User != nil {
				pr.Get("/members/me", h.User.GetCurrentUser)
				pr.Put("/members/me/bank-account", h.User.UpdateBankAccount)
			}

			if h.Application != nil {
				pr.Route("/applications", func(ar chi.Router) {
					ar.Post("/", h.Application.CreateApplication)
					ar.Get("/", h.Application.ListMyApplications)
					ar.Get("/{id}", h.Application.GetApplication)
					ar.Put("/{id}", h.Application.UpdateApplication)
					ar.Delete("/{id}", h.Application.DeleteApplication)
					ar.Post("/{id}/submit", h.Application.SubmitApplication)
					ar.Post("/{id}/comments", h.Application.AddComment)
				})
			}

			pr.Route("/admin", func(adm chi.Router) {
				adm.Use(middleware.RequireAdmin)

				if h.Application != nil {
					adm.Get("/applications", h.Application.ListApplications)
					adm.Post("/applications/{id}/approve", h.Application.ApproveApplication)
					adm.Post("/applications/{id}/return", h.Application.ReturnApplication)
					adm.Post("/applications/{id}/reject", h.Application.RejectApplication)
				}

				if h.Payment != nil {
					adm.Get("/payments/ready", h.Payment.ListReady)
					adm.Post("/payments/generate", h.Payment.GenerateBatch)
					adm.Get("/payments/{batchId}", h.Payment.GetBatch)
					adm.Get("/payments/{batchId}/download", h.Payment.DownloadBatch)
					adm.Get("/payments/{batchId}/summary.xlsx", h.Payment.DownloadSummary)
				}
			})
		})
	})
}
