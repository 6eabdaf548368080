// Package server initializes and runs the identity provider server.
// It opens the database, applies migrations, connects the session store,
// wires the services and serves the HTTP API until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/config"
	"github.com/elegance/identity-provider/internal/server/httpapi"
	"github.com/elegance/identity-provider/internal/server/repositories/users"
	"github.com/elegance/identity-provider/internal/server/services"
	"github.com/elegance/identity-provider/internal/server/session"
	"github.com/elegance/identity-provider/internal/server/shared/db"
	"github.com/elegance/identity-provider/internal/uuidx"
)

const shutdownTimeout = 10 * time.Second

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	identity *services.Identity
	sessions session.Store
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(c.LogLevel)}))
	logger := logging.NewSlogLogger(sl)

	conn, err := db.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session store init error: %w", err)
	}

	repo := users.NewPostgresRepository(
		users.NewEngine(conn, logger),
		uuidx.NewV4(),
	)
	identity := services.NewIdentity(repo, logger, c.BcryptCost)
	sessions := session.NewRedisStore(rdb, c.SessionTTL)

	return &App{config: c, logger: logger, identity: identity, sessions: sessions}, nil
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

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	router := httpapi.NewRouter(app.identity, app.sessions, app.config.SessionCookie, app.config.SessionTTL, app.logger)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: router,
	}

	go func() {
		app.logger.Info(ctx, "HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	<-ctx.Done()

	app.logger.Info(ctx, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}
}
