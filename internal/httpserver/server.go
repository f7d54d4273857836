package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"forum/backend/internal/config"
	"forum/backend/internal/usecase/access"
	authusecase "forum/backend/internal/usecase/auth"
	categoryusecase "forum/backend/internal/usecase/category"
	userusecase "forum/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies groups the services the HTTP layer dispatches to.
type Dependencies struct {
	Auth       *authusecase.Service
	Users      *userusecase.Service
	Categories *categoryusecase.Service
	Tokens     authusecase.TokenCodec
	Logger     *slog.Logger
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	auth       *authusecase.Service
	users      *userusecase.Service
	categories *categoryusecase.Service
	log        *slog.Logger
	unifyLogin bool
	addr       string

	authenticated     access.Gate
	adminOnly         access.Gate
	adminOrInstructor access.Gate
	selfOrAdmin       access.Gate
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, deps Dependencies) *Server {
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	srv := &Server{
		auth:       deps.Auth,
		users:      deps.Users,
		categories: deps.Categories,
		log:        log,
		unifyLogin: cfg.UnifyLoginErrors,
		addr:       addr,

		authenticated:     access.Authenticated(deps.Tokens),
		adminOnly:         access.AdminOnly(deps.Tokens, deps.Users.Get),
		adminOrInstructor: access.AdminOrInstructor(deps.Tokens, deps.Users.Get),
		selfOrAdmin:       access.SelfOrAdmin(deps.Tokens, deps.Users.Get, "id"),
	}
	srv.router = srv.routes(cfg.AllowedOrigins)

	read, write, idle := cfg.Timeouts()
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}
	return srv
}

func (s *Server) routes(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(allowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", s.handleLogin)
			ar.Post("/register", s.handleRegister)
			ar.Get("/check-email/{email}", s.handleCheckEmail)

			ar.Group(func(p chi.Router) {
				p.Use(s.gate(s.authenticated))
				p.Get("/verify", s.handleVerify)
				p.Post("/renew", s.handleRenew)
				p.Post("/logout", s.handleLogout)
				p.Get("/me", s.handleMe)
			})
		})

		api.Route("/users", func(ur chi.Router) {
			admin := ur.With(s.gate(s.adminOnly))
			admin.Get("/", s.handleListUsers)
			admin.Post("/", s.handleCreateUser)
			admin.Get("/active", s.handleListActiveUsers)
			admin.Get("/instructors/pending", s.handlePendingInstructors)
			admin.Get("/type/{type}", s.handleListUsersByType)
			admin.Put("/{id}/status", s.handleSetUserStatus)
			admin.Post("/{id}/validation", s.handleValidateInstructor)
			admin.Delete("/{id}", s.handleDeactivateUser)

			self := ur.With(s.gate(s.selfOrAdmin))
			self.Get("/{id}", s.handleGetUser)
			self.Put("/{id}", s.handleUpdateUser)
			self.Put("/{id}/password", s.handleChangeUserPassword)
		})

		api.Route("/categories", func(cr chi.Router) {
			cr.Get("/", s.handleListCategories)
			cr.Get("/{id}", s.handleGetCategory)
			cr.With(s.gate(s.adminOrInstructor)).Post("/", s.handleCreateCategory)
			cr.With(s.gate(s.adminOnly)).Put("/{id}", s.handleUpdateCategory)
			cr.With(s.gate(s.adminOnly)).Delete("/{id}", s.handleDeleteCategory)
		})
	})

	return r
}

func corsOptions(allowedOrigins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}
	// credentials cannot be combined with a wildcard origin
	if len(allowedOrigins) > 0 && allowedOrigins[0] != "*" {
		opts.AllowCredentials = true
	}
	return opts
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
