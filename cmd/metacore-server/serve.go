package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/tracmeta/metacore/internal/config"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/dal/mysql"
	"github.com/tracmeta/metacore/internal/dal/postgres"
	"github.com/tracmeta/metacore/internal/dal/sqlite"
	"github.com/tracmeta/metacore/internal/readsvc"
	"github.com/tracmeta/metacore/internal/rpc"
	"github.com/tracmeta/metacore/internal/search"
	"github.com/tracmeta/metacore/internal/telemetry"
	"github.com/tracmeta/metacore/internal/writesvc"
)

const serviceName = "metacore-server"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalogue's gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	shutdownTelemetry := telemetry.Setup(serviceName)
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("metacore-server: telemetry shutdown", "error", err)
		}
	}()

	dialect, err := dialectFor(cfg.Dialect)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := verifySchema(ctx, dialect, cfg); err != nil {
		return fmt.Errorf("refusing to start against an unreachable schema: %w", err)
	}

	db, err := dal.Open(ctx, dialect, dal.Config{
		ConnectionString: cfg.ConnectionString,
		PoolSize:         cfg.PoolSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening %s catalogue store: %w", cfg.Dialect, err)
	}
	defer db.Close()

	server := &rpc.Server{
		Write:  &writesvc.Service{DB: db},
		Read:   &readsvc.Service{DB: db},
		Search: &search.Service{DB: db},
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GRPCAddress, err)
	}

	grpcServer := grpc.NewServer()
	rpc.RegisterCatalogServer(grpcServer, server)

	logger.Info("metacore-server: listening", "address", cfg.GRPCAddress, "dialect", cfg.Dialect)

	errCh := make(chan error, 1)
	go func() { errCh <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		logger.Info("metacore-server: shutting down")
		grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// verifySchema opens a throwaway connection to confirm the configured store
// already has the expected tables, the same check migrate-check runs
// on demand, run automatically here so serve fails fast instead of on the
// first request.
func verifySchema(ctx context.Context, dialect dal.Dialect, cfg config.Config) error {
	sqlDB, err := dialect.Open(ctx, dal.Config{ConnectionString: cfg.ConnectionString, PoolSize: cfg.PoolSize})
	if err != nil {
		return fmt.Errorf("opening %s connection: %w", cfg.Dialect, err)
	}
	defer sqlDB.Close()
	return checkSchemaReachable(ctx, sqlDB)
}

func dialectFor(name string) (dal.Dialect, error) {
	switch name {
	case "postgres":
		return &postgres.Dialect{}, nil
	case "mysql":
		return &mysql.Dialect{}, nil
	case "sqlite":
		return &sqlite.Dialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}
