package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-ecotrack/internal/config"
	"backend-ecotrack/internal/db"
	"backend-ecotrack/internal/logger"
	"backend-ecotrack/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(level string) (*zap.Logger, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	migrate         func(context.Context, db.Querier) error
	connectRedis    func(config.Config) *redis.Client
	pingRedis       func(context.Context, *redis.Client) error
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *zap.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       logger.New,
		connectPostgres: db.ConnectPostgres,
		migrate:         db.Migrate,
		connectRedis:    db.ConnectRedis,
		pingRedis:       db.PingRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	log, err := deps.newLogger(cfg.LogLevel)
	if err != nil {
		log = logger.Nop()
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Warn("postgres connection failed, event ledger disabled", zap.Error(err))
		pg = nil
	}
	if pg != nil {
		if err := deps.migrate(ctx, pg); err != nil {
			log.Warn("ledger migration failed", zap.Error(err))
		}
	}

	rdb := deps.connectRedis(cfg)
	if rdb != nil {
		if err := deps.pingRedis(ctx, rdb); err != nil {
			log.Warn("redis unreachable, events stay on this instance", zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, log, signals, nil); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *zap.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	if log == nil {
		log = logger.Nop()
	}
	srv := server.NewServer(cfg, pg, rdb, log)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ServerPort))
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Stream.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if err := srv.Stream.Close(); err != nil {
		log.Warn("close event stream", zap.Error(err))
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info("server stopped")
	return nil
}
