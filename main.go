package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/serroba/acdocs/internal/acl"
	"github.com/serroba/acdocs/internal/api"
	"github.com/serroba/acdocs/internal/audit"
	"github.com/serroba/acdocs/internal/config"
	"github.com/serroba/acdocs/internal/metrics"
	"github.com/serroba/acdocs/internal/notify"
	"github.com/serroba/acdocs/internal/session"
	"github.com/serroba/acdocs/internal/storage"
	"github.com/serroba/acdocs/internal/ws"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("ACDOCS_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := cfg.Log.Logger(os.Stderr)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, closeStore, err := openStore(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Store.Seed {
		seeded, err := storage.Seed(ctx, store, bytes.NewReader(storage.DemoSeed), cfg.Store.BcryptCost)
		if err != nil {
			return err
		}

		log.WithField("seeded", seeded).Info("Checked demo data")
	}

	matrix, err := cfg.Matrix()
	if err != nil {
		return err
	}

	checker := acl.NewChecker(matrix)
	recorder := audit.NewRecorder(store, log)
	sessions := session.NewService(store, checker, recorder, log, session.WithTTL(cfg.Session.TTL))
	hub := ws.NewHub()
	notifier := notify.NewChecker(log,
		notify.WithSender(notify.NewHubSender(hub)),
		notify.WithMetrics(m),
	)

	if cfg.Notifications.Enabled {
		scheduler, err := notify.NewScheduler(store, sessions, notifier, cfg.Notifications.Schedule, log, m)
		if err != nil {
			return err
		}

		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()

		log.WithField("schedule", cfg.Notifications.Schedule).Info("Expiration alerts scheduled")
	}

	server := api.NewServer(api.ServerConfig{
		Store:          store,
		Sessions:       sessions,
		Recorder:       recorder,
		Notifier:       notifier,
		Hub:            hub,
		Metrics:        m,
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Seed:           resetSeed(cfg),
		BcryptCost:     cfg.Store.BcryptCost,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Starting server")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

// openStore builds the configured store, wrapped in the read cache when
// enabled. The returned func releases it.
func openStore(
	ctx context.Context, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger,
) (storage.Store, func(), error) {
	var (
		store     storage.Store
		closeFunc = func() {}
	)

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}

		store = db
		closeFunc = func() {
			if err := db.Close(); err != nil {
				log.WithError(err).Warn("Failed to close store")
			}
		}
	default:
		store = storage.NewMemoryStore()
	}

	log.WithField("driver", cfg.Store.Driver).Info("Opened store")

	if cfg.Cache.Enabled {
		store = storage.NewCachedStore(store, cfg.StoreCache(), m)
	}

	return store, closeFunc, nil
}

// resetSeed returns the data set POST /admin/reset reloads, or nil when the
// demo data is disabled.
func resetSeed(cfg *config.Config) []byte {
	if !cfg.Store.Seed {
		return nil
	}

	return storage.DemoSeed
}
