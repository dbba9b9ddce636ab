package main

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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/skyguard/fleet-backend/internal/config"
	"github.com/skyguard/fleet-backend/internal/db"
	"github.com/skyguard/fleet-backend/internal/fleet"
	"github.com/skyguard/fleet-backend/internal/freshness"
	"github.com/skyguard/fleet-backend/internal/geofence"
	"github.com/skyguard/fleet-backend/internal/metrics"
	"github.com/skyguard/fleet-backend/internal/middleware"
	"github.com/skyguard/fleet-backend/internal/pilot"
	"github.com/skyguard/fleet-backend/internal/position"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	cfg := config.LoadFromEnv()

	lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(lg)

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, lg *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbOpts := db.DefaultOptions()
	dbOpts.LogLevel = cfg.DBLogLevel
	dbOpts.Logger = lg
	gdb, err := db.Open(cfg.DatabaseURL, dbOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			lg.Warn("close database", "error", err)
		}
	}()

	ctx := context.Background()
	positions := position.NewStore(gdb, cfg.QueryTimeout)
	pilots := pilot.NewRegistry(gdb, cfg.QueryTimeout)
	if err := pilots.Migrate(ctx); err != nil {
		return err
	}
	if err := positions.Migrate(ctx); err != nil {
		return err
	}

	zones, err := geofence.LoadFile(cfg.ZonesFile)
	if err != nil {
		return err
	}
	lg.Info("zone catalog loaded", "zones", zones.Len(), "file", cfg.ZonesFile)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	svc := fleet.NewService(positions, pilots, zones, freshness.New(freshness.WithObserver(m)),
		fleet.WithTTL(cfg.CacheTTL),
		fleet.WithLogger(lg),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RequestLogger(lg, m))
	r.Get("/", RootHandler)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Mount("/fleet", fleet.SetupRoutes(fleet.NewHandler(svc, lg)))
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		lg.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
