package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tabsplit/internal/api_gateway"
	"github.com/tabsplit/internal/api_gateway/service"
	"github.com/tabsplit/internal/config"
	"github.com/tabsplit/internal/data/mongo"
	"github.com/tabsplit/internal/data/postgres"
	"github.com/tabsplit/internal/logger"
	"github.com/tabsplit/internal/metrics"
	"github.com/tabsplit/internal/notification"
	"github.com/tabsplit/internal/platform/messaging/consumers"
	"github.com/tabsplit/internal/platform/messaging/producers"
	"github.com/tabsplit/internal/platform/persistence"
	"github.com/tabsplit/internal/reconciliation/components"
	"github.com/tabsplit/internal/reconciliation/outbox_poller"
	"github.com/tabsplit/internal/reconciliation/processor"
	"github.com/tabsplit/internal/reconciliation/sweeper"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("split_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Split Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"port", cfg.Server.Port,
		"config_source", cfg.Application.Source,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	splitStateRepo := postgres.NewSplitStateRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	billRepo := mongo.NewBillRepository(log, mongoDB.Database())
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())
	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to prepare journal collection", "error", err)
		os.Exit(1)
	}

	hub, err := notification.NewHub(notification.Config{
		DispatchPoolSize: cfg.Fanout.DispatchPoolSize,
		SubscriberBuffer: cfg.Fanout.SubscriberBuffer,
	}, m, log.With("component", "notification_hub"))
	if err != nil {
		log.Error("Failed to initialize notification hub", "error", err)
		os.Exit(1)
	}

	reconciliationStore := components.CreateStore(postgresDB, splitStateRepo, outboxRepo, hub, m, cfg, log)
	paymentProcessor := processor.NewProcessor(reconciliationStore, log.With("component", "payment_processor"))
	processingService := components.CreateProcessingService(reconciliationStore, log, cfg)

	// dlqProducer is nil when no DLQ topic is configured; the handler copes with that
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	integrationProducer, err := producers.NewIntegrationEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize integration Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	paymentEventHandler := processor.NewPaymentEventHandler(log, processingService, dlqProducer)

	journalPublisher := outbox_poller.NewJournalPublisher(outboxRepo, journalRepo, integrationProducer, log.With("component", "journal_publisher"))
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, journalPublisher, m, log.With("component", "outbox_poller"))

	reconcilerSweep, err := sweeper.New(reconciliationStore, cfg.Reconciler.SweepInterval, log.With("component", "sweeper"))
	if err != nil {
		log.Error("Failed to initialize reconciler sweep", "error", err)
		os.Exit(1)
	}

	server := api_gateway.NewServer(log, cfg, api_gateway.Dependencies{
		SplitService:   service.NewSplitService(log, billRepo, journalRepo, reconciliationStore),
		PaymentService: service.NewPaymentService(log, paymentProcessor),
		Rooms:          hub,
		Gatherer:       registry,
		HealthChecks: map[string]api_gateway.HealthCheck{
			"postgres": postgresDB.Ping,
			"mongodb":  mongoDB.Ping,
		},
	})

	errChan := make(chan error, 3)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.PaymentEventTopic, cfg.Kafka.ConsumerGroup, paymentEventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to payment events", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	if err := reconcilerSweep.Start(appCtx); err != nil {
		log.Error("Failed to start reconciler sweep", "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop intake first: HTTP requests, then the consumer and the poller
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}
	cancelAppCtx()

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Consumer and poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if wpService, ok := processingService.(*processor.WorkerPoolProcessingService); ok {
		wpService.Shutdown()
	}

	if err := reconcilerSweep.Stop(); err != nil {
		log.Error("Error stopping reconciler sweep", "error", err)
	}

	// One last pass retries snapshots whose persistence failed earlier
	report := reconciliationStore.Sweep(shutdownCtx)
	log.Info("Final reconciler sweep done", "retried", report.Retried)

	hub.Close()

	if err := integrationProducer.Close(); err != nil {
		log.Error("Error closing integration Kafka producer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Split Service shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Split Service shutdown completed successfully")
}
