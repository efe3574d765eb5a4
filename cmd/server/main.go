package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-ledger/config"
	"sales-ledger/internal/api"
	"sales-ledger/internal/broker"
	"sales-ledger/internal/redisclient"
	"sales-ledger/internal/service"
	"sales-ledger/internal/store"
	"sales-ledger/internal/util"
	"sales-ledger/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ledgerStore is a service.LedgerStore that can be health-checked and closed
type ledgerStore interface {
	service.LedgerStore
	api.Pinger
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting sales ledger", zap.String("store", cfg.Database.Driver))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	st, closeStore, err := openStore(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Business.SaleCacheTTL())
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	var publisher service.ChangePublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	notifier := service.NewNotifier(st, redisClient, publisher, "")
	salesService := service.NewSalesService(st, notifier, redisClient)
	paymentService := service.NewPaymentService(st, notifier)
	inventoryService := service.NewInventoryService(st, notifier)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var changeWorker *worker.ChangeWorker
	if cfg.Kafka.Enabled {
		// every instance refreshes its own view, so each gets its own group
		groupID := fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroup, notifier.SourceID())
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicChanges, groupID)
		changeWorker = worker.NewChangeWorker(consumer, notifier)
		go func() {
			if err := changeWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				log.Printf("Change worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(salesService, paymentService, inventoryService, cfg.Business.DefaultOwnerID)
	handler.AddReadinessCheck("store", st)
	handler.AddReadinessCheck("redis", redisClient)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if changeWorker != nil {
		if err := changeWorker.Stop(); err != nil {
			log.Printf("Error stopping change worker: %v", err)
		}
	}

	log.Println("Server exited")
}

func openStore(cfg config.DatabaseConfig) (ledgerStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Println("Using in-memory store")
		return store.NewMemory(), func() {}, nil
	case "postgres", "":
		db, err := store.NewStore(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("Database connected")

		if cfg.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to migrate schema: %w", err)
			}
			log.Println("Schema migrated")
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
