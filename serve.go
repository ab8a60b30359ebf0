package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"photo-indexer/internal/database"
	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/handlers"
	"photo-indexer/internal/indexer"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/metrics"
	"photo-indexer/internal/middleware"
	"photo-indexer/internal/startup"
)

const (
	shutdownTimeout   = 30 * time.Second
	metricsInterval   = 30 * time.Second
	statsQueryTimeout = 10 * time.Second
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Reconcile recent months, then watch the library and serve the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}
}

// openDatabase wires the filesystem instrumentation and opens the index.
func openDatabase(ctx context.Context, config *startup.Config) (*database.Database, error) {
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library":  config.LibraryPath,
		"database": config.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	startup.LogDatabaseInit(config.DatabasePath, time.Since(dbStart))
	return db, nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	startTime := time.Now()

	config, err := loadConfig(v)
	if err != nil {
		return err
	}
	defer func() {
		if err := logging.Close(); err != nil {
			logging.Warn("failed to close log file: %v", err)
		}
	}()

	db, err := openDatabase(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("failed to close database: %v", err)
		}
	}()

	idx := indexer.New(db, indexer.Config{
		Layout: indexer.Layout{Root: config.LibraryPath, Lookback: config.Lookback},
		Settle: config.WatchSettle,
	})

	router := handlers.NewRouter(handlers.New(db, idx), middleware.BasicAuth(config.AdminPasswordHash))
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var (
		metricsSrv *http.Server
		collector  *metrics.Collector
	)
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", handlers.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		collector = metrics.NewCollector(dbStats{db: db}, config.DatabasePath, metricsInterval)
		collector.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		startup.LogIndexerInit(config.Lookback, config.WatchSettle)
		indexStart := time.Now()
		if err := idx.Start(gctx); err != nil {
			if gctx.Err() == nil {
				logging.Error("Failed to start indexer: %v", err)
			}
			return nil
		}
		startup.LogIndexerStarted(time.Since(indexStart))
		return nil
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		reason := "signal received"
		if ctx.Err() == nil {
			reason = "server error"
		}
		shutdown(reason, srv, metricsSrv, collector, idx)
		return nil
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	err = g.Wait()
	startup.LogShutdownComplete()
	return err
}

func shutdown(reason string, srv, metricsSrv *http.Server, collector *metrics.Collector, idx *indexer.Indexer) {
	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if collector != nil {
		collector.Stop()
	}
	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}
}

// dbStats adapts the database to the metrics collector.
type dbStats struct {
	db *database.Database
}

func (s dbStats) GetStats() (metrics.Stats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), statsQueryTimeout)
	defer cancel()

	stats, err := s.db.CalculateStats(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{
		ActiveImages:     stats.ActiveImages,
		DeletedImages:    stats.DeletedImages,
		MonthDirectories: stats.MonthDirectories,
	}, nil
}

func (s dbStats) UpdateDBMetrics() {
	s.db.UpdateDBMetrics()
}
