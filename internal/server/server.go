// Package server implements the institutional HTTP server of spec
// §4.9: auth, share CRUD, team CRUD, job submission/status/cancel/
// download, fire-and-forget audit logging, and a Prometheus metrics
// endpoint.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sdraeger/ddalab-core/internal/config"
	"github.com/sdraeger/ddalab-core/internal/httpapi"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
	"github.com/sdraeger/ddalab-core/internal/session"
	"github.com/sdraeger/ddalab-core/internal/share"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

// Server wires the institutional HTTP surface to its storage,
// session, and job-queue dependencies.
type Server struct {
	cfg    config.ServerConfig
	log    *zap.Logger
	valid  *validator.Validate
	tokens *AuthTokens

	users     *postgres.UserRepo
	teams     *postgres.TeamRepo
	jobsTable *postgres.JobRepo
	audit     *postgres.AuditRepo
	shares    share.Store
	directory share.Directory

	sessions *session.Store
	jobs     *jobqueue.Queue
	metrics  *Metrics
}

// New builds a Server from its dependencies. shares may be backed by
// postgres.ShareRepo in production or share.MemStore in tests — both
// satisfy share.Store.
func New(
	cfg config.ServerConfig,
	log *zap.Logger,
	users *postgres.UserRepo,
	teams *postgres.TeamRepo,
	jobsTable *postgres.JobRepo,
	audit *postgres.AuditRepo,
	shares share.Store,
	directory share.Directory,
	sessions *session.Store,
	jobs *jobqueue.Queue,
) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		valid:     validator.New(),
		tokens:    NewAuthTokens(time.Duration(cfg.SessionTimeoutSeconds) * time.Second),
		users:     users,
		teams:     teams,
		jobsTable: jobsTable,
		audit:     audit,
		shares:    shares,
		directory: directory,
		sessions:  sessions,
		jobs:      jobs,
		metrics:   NewMetrics(),
	}
}

// Router builds the chi router for the whole institutional HTTP API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httpapi.RequestLogger(s.log))
	r.Use(httpapi.Recoverer(s.log))
	r.Use(s.auditMiddleware)
	if s.cfg.EnableEncryption {
		r.Use(session.Middleware(s.sessions))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/key_exchange", s.handleKeyExchange)
		r.With(httpapi.RequireBearerAuth(s.tokens)).Post("/logout", s.handleLogout)
		r.With(httpapi.RequireBearerAuth(s.tokens)).Get("/validate", s.handleValidate)
	})

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RequireAuth {
			r.Use(httpapi.RequireBearerAuth(s.tokens))
		}

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/submit", s.handleJobSubmit)
			r.Get("/{id}", s.handleJobStatus)
			r.Post("/{id}/cancel", s.handleJobCancel)
			r.Get("/{id}/download", s.handleJobDownload)
		})

		r.Route("/shares", func(r chi.Router) {
			r.Post("/", s.handleSharePublish)
			r.Get("/{token}", s.handleShareGet)
			r.Delete("/{token}", s.handleShareRevoke)
			r.Get("/user/{user_id}", s.handleShareListForUser)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", s.handleTeamCreate)
			r.Get("/{id}", s.handleTeamGet)
			r.Post("/{id}/members", s.handleTeamAddMember)
			r.Delete("/{id}/members/{user_id}", s.handleTeamRemoveMember)
		})
	})

	return r
}
