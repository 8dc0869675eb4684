package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apache/age-viewer/backend/internal/config"
	"github.com/apache/age-viewer/backend/internal/logging"
	"github.com/apache/age-viewer/backend/internal/metrics"
	"github.com/apache/age-viewer/backend/internal/repository"
	"github.com/apache/age-viewer/backend/internal/server"
	"github.com/apache/age-viewer/backend/internal/service"
	"github.com/apache/age-viewer/backend/internal/session"
	"github.com/apache/age-viewer/backend/internal/upload"
)

var version = "dev"

type flags struct {
	host      string
	port      int
	logDir    string
	staticDir string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "age-viewer",
		Short:         "Backend for the AGE graph viewer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				return err
			}
			applyFlags(cmd, &cfg, f)
			return serve(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVar(&f.host, "host", "", "listen host (overrides SERVER_HOST)")
	root.Flags().IntVar(&f.port, "port", 0, "listen port (overrides SERVER_PORT)")
	root.Flags().StringVar(&f.logDir, "log-dir", "", "log directory (overrides LOG_DIR)")
	root.Flags().StringVar(&f.staticDir, "static-dir", "", "built frontend directory (overrides STATIC_DIR)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, f flags) {
	if cmd.Flags().Changed("host") {
		cfg.HTTP.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTP.Port = f.port
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.Logging.Dir = f.logDir
	}
	if cmd.Flags().Changed("static-dir") {
		cfg.HTTP.StaticDir = f.staticDir
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	store, err := buildUploadStore(cfg)
	if err != nil {
		logger.Error("failed to create upload store", "error", err)
		return err
	}
	logger.Info("certificate uploads enabled", "dir", store.Dir(), "max_bytes", cfg.Upload.MaxBytes)

	var m *metrics.Metrics
	if cfg.HTTP.MetricsEnabled {
		m = metrics.New()
	}

	sessions := session.NewManager(logger, cfg.Session.IdleTimeout, session.WithActiveGauge(m.SetActiveSessions))
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.Session.SweepInterval)

	connector := service.NewConnector(repository.PoolOptions{
		MaxConns:       int32(cfg.Pool.MaxConns),
		IdleTimeout:    cfg.Pool.IdleTimeout,
		ConnectTimeout: cfg.Pool.ConnectTimeout,
	})
	databaseService := service.NewDatabaseService(logger, sessions, connector, store, m)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.SessionHealthService{Sessions: databaseService},
		API:              server.NewAPIHandlers(logger, databaseService, store),
		Metrics:          m,
		SessionCookie:    cfg.Session.CookieName,
		StaticDir:        cfg.HTTP.StaticDir,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	stopSweep()
	sessions.CloseAll(shutdownCtx)
	return runErr
}

func buildUploadStore(cfg config.Config) (*upload.Store, error) {
	dir := cfg.Upload.Dir
	if dir == "" {
		logDir, err := logging.Dir(cfg.Logging)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(logDir, "uploads")
	}
	return upload.NewStore(dir, cfg.Upload.MaxBytes)
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
