// Command taskflowd is the TaskFlow server daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/GoCodeAlone/taskflow/comms"
	"github.com/GoCodeAlone/taskflow/config"
	"github.com/GoCodeAlone/taskflow/internal/version"
	"github.com/GoCodeAlone/taskflow/server"
	"github.com/GoCodeAlone/taskflow/task"
)

var configPath = flag.String("config", "taskflow.yaml", "path to YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	logger.Info("starting taskflowd",
		"version", version.Version,
		"commit", version.Commit,
		"store", cfg.Store.Driver,
	)

	store, err := openStore(context.Background(), cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	bus := comms.NewInMemoryBus(cfg.Events.History)
	svc := task.NewService(store, bus, logger)
	srv := server.New(*cfg, version.Version, logger, svc, bus)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

// openStore builds the task store selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig) (task.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return task.NewMemoryStore(), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		return task.NewSQLiteStore(cfg.SQLite.Path)
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		return task.NewRedisStore(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
