// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// @title Fieldbook API
// @version 1.0
// @description Multi-tenant project management: projects, daily reports and files.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fieldbook/fieldbook/internal/auth"
	"github.com/fieldbook/fieldbook/internal/file"
	"github.com/fieldbook/fieldbook/internal/identity"
	"github.com/fieldbook/fieldbook/internal/observability/logger"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/fieldbook/fieldbook/internal/report"
	"github.com/fieldbook/fieldbook/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	tenantService   *tenant.Service
	projectService  *project.Service
	reportService   *report.Service
	fileService     *file.Service
	db              Pinger
	tokens          *auth.Issuer
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the domain services the API exposes.
type Services struct {
	Identity *identity.Service
	Tenant   *tenant.Service
	Project  *project.Service
	Report   *report.Service
	File     *file.Service
	DB       Pinger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, tokens *auth.Issuer) *Handler {
	return &Handler{
		identityService: svc.Identity,
		tenantService:   svc.Tenant,
		projectService:  svc.Project,
		reportService:   svc.Report,
		fileService:     svc.File,
		db:              svc.DB,
		tokens:          tokens,
	}
}

// NewRouter creates a new HTTP router. ips decides which proxies may set
// the client address used for rate limiting; nil trusts none.
func NewRouter(h *Handler, limiter Limiter, ips *ClientIPResolver) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(limiter, ips))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return "HTTP " + r.Method
			}),
		)
	})
	r.Use(RouteSpanMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadinessCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.tokens))

			r.Get("/auth/me", h.GetCurrentUser)

			r.Get("/company", h.GetCompany)
			r.Put("/company", h.RenameCompany)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", h.ProvisionUser)
				r.Get("/", h.ListUsers)
				r.Get("/{userID}", h.GetUser)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", h.CreateProject)
				r.Get("/", h.ListProjects)
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", h.GetProject)
					r.Post("/archive", h.ArchiveProject)
					r.Post("/members", h.AddMember)
					r.Get("/members", h.ListMembers)
					r.Post("/reports", h.CreateOrGetDraft)
				})
			})

			r.Route("/reports/{reportID}", func(r chi.Router) {
				r.Get("/", h.GetReport)
				r.Patch("/", h.UpdateReport)
				r.Post("/submit", h.SubmitReport)
				r.Post("/approve", h.ApproveReport)
			})

			r.Route("/files", func(r chi.Router) {
				r.Post("/presign", h.PresignUpload)
				r.Post("/", h.FinalizeUpload)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "fieldbook",
	})
}

// ReadinessCheck reports whether the database is reachable
// @Summary Readiness Check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "readiness check failed", logger.Component("database"), logger.Error(err))
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// createdStatus is 201 for the call that created a record and 200 for a
// replay that converged on an existing one.
func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
