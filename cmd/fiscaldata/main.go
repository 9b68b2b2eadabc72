package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rstenmark/fiscaldata/internal/app"
	"github.com/rstenmark/fiscaldata/internal/cache"
	"github.com/rstenmark/fiscaldata/internal/chart"
	"github.com/rstenmark/fiscaldata/internal/database"
	"github.com/rstenmark/fiscaldata/internal/fetch"
	"github.com/rstenmark/fiscaldata/internal/services"
	"github.com/rstenmark/fiscaldata/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fiscaldata", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithComponent("main")

	issuedSince, err := cfg.Fetch.IssuedSinceTime()
	if err != nil {
		return fmt.Errorf("parse issued_since: %w", err)
	}

	terms, err := cfg.Fetch.TermList()
	if err != nil {
		return fmt.Errorf("resolve terms: %w", err)
	}

	var store *cache.Store
	var db *gorm.DB
	if cfg.Cache.Enabled {
		db, err = database.Open(database.Config{Path: cfg.Cache.Path})
		if err != nil {
			return fmt.Errorf("open cache database: %w", err)
		}
		defer closeDatabase(db, log)

		store, err = cache.NewStore(db, cache.Config{TTL: cfg.Cache.TTL})
		if err != nil {
			return fmt.Errorf("construct cache store: %w", err)
		}
		if err := store.Initialize(); err != nil {
			return fmt.Errorf("initialise cache store: %w", err)
		}

		log.Info("cache ready", zap.String("path", cfg.Cache.Path), zap.Duration("ttl", cfg.Cache.TTL))
	} else {
		log.Info("cache disabled; fetching everything from upstream")
	}

	client := fetch.NewClient(fetch.Config{
		BaseURL: cfg.Fetch.BaseURL,
		Timeout: cfg.Fetch.Timeout,
	})

	var seriesCache services.SeriesCache
	if store != nil {
		seriesCache = store
	}

	svc, err := services.NewAuctionService(client, seriesCache, cfg.Fetch.SecurityType, issuedSince)
	if err != nil {
		return fmt.Errorf("construct auction service: %w", err)
	}

	series, err := svc.AllSeries(ctx, terms)
	if err != nil {
		return err
	}

	png, err := chart.Render(series, cfg.Fetch.IssuedSince)
	if err != nil {
		return err
	}

	return serveChart(ctx, cfg.Viewer.Port, png, log)
}

// serveChart exposes the rendered chart on a local endpoint and blocks until
// the run is interrupted, standing in for a blocking chart window.
func serveChart(ctx context.Context, port int, png []byte, log *zap.Logger) error {
	server := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: newViewerRouter(png),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("chart ready", zap.String("url", fmt.Sprintf("http://%s/", server.Addr)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("viewer error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("viewer error: %w", err)
	}

	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close cache database", zap.Error(err))
	}
}
