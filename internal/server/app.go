// Package server initializes and runs the access-control server. It opens
// the database, applies migrations, wires the services, starts the
// operational HTTP endpoint, and drives the background rotation and cleanup
// tickers until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/config"
	"github.com/centavo-app/centavo/internal/server/cursor"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
	"github.com/centavo-app/centavo/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics

	Keyring *services.KeyringService
	Tokens  *services.TokenService
	Csrf    *services.CsrfService
	Authz   *services.AuthzService
	Session *services.SessionService
	Users   *services.UsersService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	mx := metrics.New()

	keyring := services.NewKeyringService(db, manager, cfg, logger, mx)
	tokens := services.NewTokenService(db, manager, cfg, logger, mx)
	csrf := services.NewCsrfService(db, manager, cfg, logger, mx)
	authz := services.NewAuthzService(db, manager, logger, mx)
	codec := cursor.NewCodec(keyring)
	session := services.NewSessionService(tokens, csrf, authz, codec, logger, mx)
	users := services.NewUsersService(db, manager, tokens, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: mx,
		Keyring: keyring,
		Tokens:  tokens,
		Csrf:    csrf,
		Authz:   authz,
		Session: session,
		Users:   users,
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

// startOpsServer serves /metrics and /healthz until the context is
// cancelled.
func (app *App) startOpsServer(ctx context.Context, cancelFunc context.CancelFunc) {

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: app.config.OpsEndpointAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "ops endpoint listening", "addr", app.config.OpsEndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runTicker invokes fn every interval until the context is cancelled.
// Errors are logged and the ticker keeps going.
func (app *App) runTicker(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "background task failed", "task", name, "error", err.Error())
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startOpsServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runTicker(ctx, "cursor key rotation", app.config.CursorKeyRotationInterval, app.Keyring.Rotate)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runTicker(ctx, "cleanup", app.config.PurgeInterval, func(ctx context.Context) error {
			if err := app.Keyring.PurgeExpired(ctx); err != nil {
				return err
			}
			return app.Csrf.PurgeExpired(ctx)
		})
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
