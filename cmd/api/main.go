package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/dejobratic/bookstore/internal/bookstore/adapters"
	httpadapter "github.com/dejobratic/bookstore/internal/bookstore/adapters/http"
	"github.com/dejobratic/bookstore/internal/bookstore/adapters/memory"
	"github.com/dejobratic/bookstore/internal/bookstore/adapters/postgres"
	"github.com/dejobratic/bookstore/internal/bookstore/adapters/sqlite"
	"github.com/dejobratic/bookstore/internal/bookstore/app"
	bookstoremetrics "github.com/dejobratic/bookstore/internal/bookstore/metrics"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
	"github.com/dejobratic/bookstore/internal/config"
	"github.com/dejobratic/bookstore/internal/cron"
	"github.com/dejobratic/bookstore/internal/database"
	"github.com/dejobratic/bookstore/internal/events"
	"github.com/dejobratic/bookstore/internal/telemetry"
)

const meterName = "github.com/dejobratic/bookstore"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
}

// closers are released in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) close() error {
	var errs error
	for i := len(c) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, c[i]())
	}
	return errs
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	var cleanup closers
	defer func() {
		err = multierr.Append(err, cleanup.close())
	}()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	cleanup.add(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tel.Shutdown(shutdownCtx)
	})
	meter := tel.Meter(meterName)

	catalog, pinger, err := buildCatalog(ctx, cfg, logger, &cleanup)
	if err != nil {
		return err
	}
	dbMetrics, err := database.NewMetrics(meter, cfg.Catalog.Driver)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}

	bus, err := buildEventBus(cfg, logger, &cleanup)
	if err != nil {
		return err
	}
	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create event metrics: %w", err)
	}

	metrics, err := bookstoremetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create bookstore metrics: %w", err)
	}
	service := app.NewService(
		adapters.NewObservableCatalog(catalog, dbMetrics),
		adapters.NewObservableEventBus(bus, eventMetrics),
		logger,
		metrics,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	scheduler, err := buildScheduler(cfg, logger, service, registry)
	if err != nil {
		return err
	}
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("maintenance scheduler stopped", "error", err)
		}
	}()

	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := database.CheckHealth(r.Context(), pinger); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET "+cfg.HTTP.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	httpadapter.NewHandler(service).Register(mux)

	handler := httpadapter.WithRecovery(
		httpadapter.WithMetrics(httpadapter.WithLogging(mux, logger), httpMetrics),
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "catalog", cfg.Catalog.Driver, "events", cfg.Events.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-schedulerDone
	logger.Info("http server stopped")
	return nil
}

func buildCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger, cleanup *closers) (ports.Catalog, database.Pinger, error) {
	switch cfg.Catalog.Driver {
	case config.CatalogDriverPostgres:
		if cfg.Database.AutoMigrate {
			logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
			if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		pool, err := database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		cleanup.add(func() error { pool.Close(); return nil })

		catalog := postgres.NewCatalog(pool)
		if cfg.Catalog.Seed {
			if err := catalog.Seed(ctx, memory.SeedBooks()); err != nil {
				return nil, nil, fmt.Errorf("seed catalog: %w", err)
			}
		}
		return catalog, pool, nil

	case config.CatalogDriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Catalog.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		catalog, err := sqlite.Open(ctx, cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup.add(catalog.Close)

		if cfg.Catalog.Seed {
			if err := catalog.Seed(ctx, memory.SeedBooks()); err != nil {
				return nil, nil, fmt.Errorf("seed catalog: %w", err)
			}
		}
		return catalog, catalog, nil

	default:
		if cfg.Catalog.Seed {
			return memory.NewSeededCatalog(), nil, nil
		}
		return memory.NewCatalog(), nil, nil
	}
}

func buildEventBus(cfg *config.Config, logger *slog.Logger, cleanup *closers) (ports.EventBus, error) {
	if cfg.Events.Driver != config.EventsDriverAMQP {
		return events.NewNoopEventBus(logger), nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connect event broker: %w", err)
	}
	cleanup.add(publisher.Close)
	return publisher, nil
}

func buildScheduler(cfg *config.Config, logger *slog.Logger, service *app.Service, registry prometheus.Registerer) (*cron.Service, error) {
	job, err := cron.NewMaintenanceJob(service)
	if err != nil {
		return nil, fmt.Errorf("create maintenance job: %w", err)
	}

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logger.With("component", "cron"),
		Registry: cron.NewRegistry(job),
		Metrics:  cron.NewJobMetrics(registry),
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("create maintenance scheduler: %w", err)
	}
	return scheduler, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
