// Package httpapi exposes the account operations over JSON/HTTP with echo.
// Every /api and /internal route passes through the trust gate before its
// handler runs.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/gate"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"
	"github.com/labstack/echo/v4"
)

const shutdownTimeout = 10 * time.Second

// Accounts is the account service as seen by the handlers.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	GetSelf(ctx context.Context, caller *auth.Identity) (*models.AccountView, error)
	GetByID(ctx context.Context, caller *auth.Identity, id string) (*models.AccountView, error)
	GetForService(ctx context.Context, caller *auth.CallerInfo, id string) (*models.AccountView, error)
	UpdateSelf(ctx context.Context, caller *auth.Identity, in services.UpdateInput) (*services.AuthResult, error)
	UpdateByID(ctx context.Context, caller *auth.Identity, id string, in services.UpdateInput) (*models.AccountView, error)
	DeleteSelf(ctx context.Context, caller *auth.Identity) error
	DeleteByID(ctx context.Context, caller *auth.Identity, id string) error
	List(ctx context.Context, caller *auth.Identity, in services.ListInput) (*services.ListResult, error)
	Stats(ctx context.Context, caller *auth.Identity) (*services.Stats, error)
}

// Server is the HTTP front of the identity service.
type Server struct {
	address    string
	echo       *echo.Echo
	accounts   Accounts
	chain      *gate.Chain
	logger     logging.Logger
	production bool
}

// NewServer wires routes and middleware. production suppresses dependency
// details in error bodies.
func NewServer(address string, l logging.Logger, accounts Accounts, chain *gate.Chain, production bool) *Server {
	s := &Server{
		address:    address,
		echo:       echo.New(),
		accounts:   accounts,
		chain:      chain,
		logger:     l.With("module", "http_server"),
		production: production,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	e := s.echo
	e.Use(s.requestID(), s.requestLogger(), s.recoverer())

	e.GET("/healthz", s.healthz)

	api := e.Group("/api/v1")
	api.POST("/auth/register", s.register, s.guard(gate.RequireNone))
	api.POST("/auth/login", s.login, s.guard(gate.RequireNone))

	api.GET("/accounts/me", s.getSelf, s.guard(gate.RequireIdentity))
	api.PATCH("/accounts/me", s.updateSelf, s.guard(gate.RequireIdentity))
	api.DELETE("/accounts/me", s.deleteSelf, s.guard(gate.RequireIdentity))

	api.GET("/accounts/stats", s.stats, s.guard(gate.RequireAdmin))
	api.GET("/accounts", s.list, s.guard(gate.RequireAdmin))
	api.GET("/accounts/:id", s.getByID, s.guard(gate.RequireSelfOrAdmin))
	api.PATCH("/accounts/:id", s.updateByID, s.guard(gate.RequireAdmin))
	api.DELETE("/accounts/:id", s.deleteByID, s.guard(gate.RequireAdmin))

	internal := e.Group("/internal/v1")
	internal.GET("/accounts/:id", s.getForService, s.guard(gate.RequireService))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
