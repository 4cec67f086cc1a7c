package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/config"
	"github.com/ukydev/fleet-compliance/internal/db"
	"github.com/ukydev/fleet-compliance/internal/handlers"
	"github.com/ukydev/fleet-compliance/internal/intake"
	"github.com/ukydev/fleet-compliance/internal/logging"
	"github.com/ukydev/fleet-compliance/internal/orchestrator"
	"github.com/ukydev/fleet-compliance/internal/reporting"
	"github.com/ukydev/fleet-compliance/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Service stopped with error")
	}
	log.Info("Service stopped")
}

// storeBundle holds the opened stores and how to release them.
type storeBundle struct {
	stores orchestrator.Stores
	close  func(ctx context.Context) error
}

// openStores builds the configured store backend. The work order collection is
// always wrapped in a circuit breaker.
func openStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*storeBundle, error) {
	breaker := db.BreakerSettings{
		Name:        "work_orders",
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
	}

	if cfg.Store == "memory" {
		log.Warn("Using the in-memory store; data is lost on restart")
		mem := db.NewMemoryStore()
		return &storeBundle{
			stores: orchestrator.Stores{
				Orders:      db.NewBreakerCollection(mem, breaker),
				Templates:   mem,
				Usage:       mem,
				Inspections: mem,
			},
			close: func(context.Context) error { return nil },
		}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	orders := db.NewMongoCollection(database, db.WorkOrdersCollection)
	if err := orders.EnsureWorkOrderIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create work order indexes: %w", err)
	}

	return &storeBundle{
		stores: orchestrator.Stores{
			Orders:      db.NewBreakerCollection(orders, breaker),
			Templates:   db.NewMongoCollection(database, db.TemplatesCollection),
			Usage:       db.NewMongoCollection(database, db.UsageCollectionName),
			Inspections: db.NewMongoCollection(database, db.InspectionsCollection),
		},
		close: client.Disconnect,
	}, nil
}

func newService(cfg *config.Config, stores orchestrator.Stores, log logrus.FieldLogger) *orchestrator.Service {
	return orchestrator.NewService(stores, log, orchestrator.Options{
		EscalationRatio: cfg.EscalationRatio,
		Retry: orchestrator.RetryPolicy{
			MaxRetries:      uint64(cfg.RetryMaxRetries),
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		},
	})
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newServer(cfg *config.Config, svc handlers.Service, reg prometheus.Gatherer, log logrus.FieldLogger) *http.Server {
	router := handlers.NewRouter(handlers.NewHandler(svc, log), log, handlers.RouterOptions{
		Gatherer:   reg,
		RateLimit:  cfg.RateLimitRequests,
		RateWindow: cfg.RateLimitWindow,
	})
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func newSubscriber(ctx context.Context, cfg *config.Config, svc intake.Handler, log logrus.FieldLogger) *intake.Subscriber {
	return intake.NewSubscriber(ctx, intake.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topics:   cfg.MQTTTopics,
		QoS:      byte(cfg.MQTTQoS),
	}, intake.NewDispatcher(svc, log), log)
}

// run wires the service together and blocks until ctx ends or the HTTP server fails.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"env":   cfg.AppEnv,
		"store": cfg.Store,
		"addr":  cfg.HTTPAddr,
	}).Info("Starting fleet compliance service")

	bundle, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := bundle.close(closeCtx); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	svc := newService(cfg, bundle.stores, log)
	reg := newRegistry()
	exporter := reporting.NewExporter(reg)

	sched := scheduler.New(svc, exporter, log, scheduler.Options{WindowDays: cfg.ReportWindowDays})
	if err := sched.Start(ctx, cfg.CronSchedule); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.MQTTBroker != "" {
		sub := newSubscriber(ctx, cfg, svc, log)
		if err := sub.Connect(); err != nil {
			return err
		}
		defer sub.Close()
	}

	srv := newServer(cfg, svc, reg, log)
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
