package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hookline/hookline/internal/common/config"
	"github.com/hookline/hookline/internal/common/logger"
	"github.com/hookline/hookline/internal/configstore"
	"github.com/hookline/hookline/internal/db"
	"github.com/hookline/hookline/internal/events/bus"
	"github.com/hookline/hookline/internal/flow"
	"github.com/hookline/hookline/internal/notification"
	notificationapi "github.com/hookline/hookline/internal/notification/api"
	notificationstore "github.com/hookline/hookline/internal/notification/store"
	"github.com/hookline/hookline/internal/trigger/api"
	"github.com/hookline/hookline/internal/trigger/converter"
	"github.com/hookline/hookline/internal/trigger/service"
	"github.com/hookline/hookline/internal/trigger/store"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting hookline service...")

	// 3. Open database
	pool, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to database", zap.String("driver", pool.DriverName()))

	// 4. Connect to the event bus; an empty NATS URL selects the in-memory bus
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		eventBus, err = bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewMemoryEventBus(log)
		log.Info("Using in-memory event bus")
	}
	defer eventBus.Close()

	// 5. Initialize stores
	ledger, err := store.NewSQLLedger(pool)
	if err != nil {
		log.Fatal("Failed to initialize delivery ledger", zap.Error(err))
	}
	configs, err := configstore.NewSQLStore(pool)
	if err != nil {
		log.Fatal("Failed to initialize config store", zap.Error(err))
	}
	flows, err := flow.NewSQLUsers(pool)
	if err != nil {
		log.Fatal("Failed to initialize flow users store", zap.Error(err))
	}
	registry, err := notificationstore.NewSQLStore(pool)
	if err != nil {
		log.Fatal("Failed to initialize notification store", zap.Error(err))
	}

	// 6. Wire the ingestion pipeline
	dispatcher := converter.NewDispatcher(log)
	ingestion := service.NewService(dispatcher, ledger, eventBus, log)

	// 7. Wire the notification dispatch engine
	emailSender, err := notification.NewEmailSender(configs, flows, eventBus, notification.NewSMTPTransport(), log)
	if err != nil {
		log.Fatal("Failed to initialize email sender", zap.Error(err))
	}
	webhookSender := notification.NewWebhookSender(log)
	notifications := notification.NewService(registry, configs, eventBus, emailSender, webhookSender, cfg.Notify, log)

	if err := notifications.Start(); err != nil {
		log.Fatal("Failed to subscribe notification dispatch", zap.Error(err))
	}
	log.Info("Notification dispatch engine started")

	// 8. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, ingestion, log)
	notificationapi.RegisterRoutes(router, notifications, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "bus_connected": eventBus.IsConnected()})
	})

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// 9. Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down hookline service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Stop accepting new fan-out work and drain in-flight sends.
	notifications.Stop()

	log.Info("hookline service stopped")
}

func openDatabase(cfg config.DatabaseConfig) (*db.Pool, error) {
	switch cfg.Driver {
	case "postgres":
		return db.OpenPostgres(cfg.DSN(), cfg.MaxConns, cfg.MinConns)
	default:
		return db.OpenSQLite(cfg.Path)
	}
}
