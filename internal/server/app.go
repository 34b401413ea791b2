// Package server assembles the identity service: it opens the credential
// store, builds the token issuer and verifier, the trust gate and the
// account service, then runs the HTTP API and the gRPC health endpoint
// until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/gate"
	"github.com/dmitrijs2005/gophidentity/internal/server/httpapi"
	"github.com/dmitrijs2005/gophidentity/internal/server/password"
	"github.com/dmitrijs2005/gophidentity/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"

	gs "github.com/dmitrijs2005/gophidentity/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	store        repomanager.RepositoryManager
	closeLimiter func() error
	accounts     *services.AccountService
	chain        *gate.Chain
}

// NewApp wires every component from c. Migrations are applied before it
// returns. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.New(w, c.LogLevel, c.IsProduction())

	store, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	hasher, err := password.NewBcrypt(c.BcryptCost, c.HashWorkers)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	limiter, closeLimiter := ratelimit.FromConfig(c)

	as := services.NewAccountService(
		store.Accounts(),
		hasher,
		auth.NewIssuer(c),
		services.WithLoginLimiter(limiter),
		services.WithStoreTimeout(c.StoreTimeout),
		services.WithLogger(logger),
	)

	if c.TrustGateBypass {
		logger.Warn(ctx, "trust gate bypass enabled: requests without a service token are admitted")
	}

	return &App{
		config:       c,
		logger:       logger,
		store:        store,
		closeLimiter: closeLimiter,
		accounts:     as,
		chain:        gate.New(auth.NewVerifier(c), c.TrustGateBypass),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.accounts, app.chain, app.config.IsProduction())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.store.Accounts())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the listeners fails. Either listener failing stops the other.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var (
		wg      sync.WaitGroup
		httpErr error
		grpcErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		httpErr = app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		grpcErr = app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(httpErr, grpcErr)
}

// Close releases the store and the limiter backend.
func (app *App) Close() error {
	return errors.Join(app.closeLimiter(), app.store.Close())
}
