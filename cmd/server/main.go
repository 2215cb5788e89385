package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"delivery/internal/app"
	"delivery/internal/config"
	"delivery/internal/events"
	"delivery/internal/gateway"
	"delivery/internal/handler"
	"delivery/internal/logging"
	"delivery/internal/metrics"
	internalRedis "delivery/internal/redis"
	"delivery/internal/repository/postgres"
	"delivery/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("Connected to Redis")

	publisher, err := app.NewEventPublisher(cfg.Kafka, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create event publisher")
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}

	server, notifier := wireServer(db, redisClient, nrApp, publisher, m, reg, log, cfg)

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	// In-flight notifications are best-effort; give them the remaining budget.
	if err := notifier.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("notifications still pending at shutdown")
	}

	if nrApp != nil {
		nrApp.Shutdown(2 * time.Second)
	}

	log.Info("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// notifier to drain on shutdown.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher events.Publisher,
	m *metrics.Metrics,
	reg *prometheus.Registry,
	log *logrus.Logger,
	cfg *config.Config,
) (*http.Server, *service.NotificationService) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	responseCache := internalRedis.NewResponseCacheStore(redisClient)

	// Initialize repositories.
	driverRepo := postgres.NewDriverRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)

	// Collaborator clients.
	httpClient := gateway.NewHTTPClient(cfg.Services.RequestTimeout)
	authClient := gateway.NewAuthClient(cfg.Services.AuthURL, httpClient)
	restaurantClient := gateway.NewRestaurantClient(cfg.Services.RestaurantURL, httpClient)
	notifyClient := gateway.NewNotifyClient(cfg.Services.NotificationURL, httpClient)

	// Initialize services.
	registry := service.NewDriverRegistry(locationStore, driverRepo)
	notifier := service.NewNotificationService(notifyClient, cfg.Notification, log, m)
	assignmentService := service.NewAssignmentService(service.AssignmentDeps{
		Registry:     registry,
		DeliveryRepo: deliveryRepo,
		LockStore:    lockStore,
		Restaurants:  restaurantClient,
		Notifier:     notifier,
		Publisher:    publisher,
		Metrics:      m,
		Log:          log,
		Config:       cfg.Delivery,
	})

	router := app.NewRouter(app.RouterDeps{
		DeliveryHandler:  handler.NewDeliveryHandler(assignmentService),
		DriverHandler:    handler.NewDriverHandler(registry),
		Verifier:         authClient,
		ResponseCache:    responseCache,
		NewRelicApp:      nrApp,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:              log,
		OperationTimeout: cfg.Delivery.OperationTimeout,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, notifier
}
