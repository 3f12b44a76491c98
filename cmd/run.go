package cmd

import (
	"context"
	"fmt"
	"time"

	"lending/application"
	"lending/config"
	"lending/database"
	"lending/domain/interfaces"
	"lending/domain/utils"
	"lending/infrastructure"
	"lending/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus level and formatter
func ConfigureLogging(level, format string) {
	if level == "" {
		level = "info"
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// services bundles what every entry point needs
type services struct {
	db      *database.DB
	engine  *application.LedgerEngine
	nats    *infrastructure.NATSClient
	metrics *observability.MetricsProvider
}

func (s *services) close(ctx context.Context) {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	if err := observability.ShutdownGlobalMetrics(ctx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	s.db.Close()
}

// buildServices connects the store and, when enabled, the event bus, then
// assembles the ledger engine on top of them
func buildServices(ctx context.Context, cfg *config.Config, withBus bool) (*services, error) {
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.PoolOptions{
		Tracer: metrics.QueryTracer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	svc := &services{db: db, metrics: metrics}

	var publisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	if withBus && cfg.NATSEnabled {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if err := natsClient.EnsureLedgerStream(); err != nil {
			_ = natsClient.Close()
			db.Close()
			return nil, fmt.Errorf("failed to ensure ledger stream: %w", err)
		}
		svc.nats = natsClient
		publisher = infrastructure.NewNATSEventPublisher(natsClient, metrics)
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	svc.engine = application.NewLedgerEngine(uowFactory, publisher, utils.SystemClock{}, metrics, application.EngineConfig{
		ShortfallPolicy:        cfg.WithdrawalShortfallPolicy,
		DefaultAnnualYieldRate: cfg.DefaultAnnualYieldRate,
		RebuildAfterImport:     cfg.RebuildAfterImport,
	})

	return svc, nil
}

// Run starts the long-running service: the daily yield worker and the
// import request consumer
func Run(ctx context.Context) error {
	cfg := config.Get()
	log.WithField("environment", cfg.Environment).Info("Starting lending ledger service...")

	svc, err := buildServices(ctx, cfg, true)
	if err != nil {
		return err
	}

	stopWorker := func() {}
	if cfg.DailyYieldEnabled {
		worker := application.NewDailyYieldWorker(svc.engine, utils.SystemClock{})
		stopWorker = worker.Start(ctx, cfg.DailyYieldHour)
	} else {
		log.Info("Daily yield worker disabled")
	}

	if svc.nats != nil {
		consumer := infrastructure.NewMessageConsumer(svc.nats, svc.metrics)
		consumer.RegisterHandler(application.ImportRequestSubject, application.NewImportRequestHandler(svc.engine).HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			stopWorker()
			svc.close(context.Background())
			return err
		}
	} else {
		log.Info("NATS disabled, import requests are not consumed")
	}

	log.Info("Service is running")
	<-ctx.Done()

	log.Info("Shutting down...")
	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	svc.close(shutdownCtx)

	log.Info("Shutdown completed")
	return nil
}
