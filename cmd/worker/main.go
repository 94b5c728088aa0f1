package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wttt-sync-worker/internal/cache"
	"wttt-sync-worker/internal/config"
	"wttt-sync-worker/internal/handler"
	"wttt-sync-worker/internal/middleware"
	"wttt-sync-worker/internal/repository"
	"wttt-sync-worker/internal/router"
	"wttt-sync-worker/internal/scheduler"
	"wttt-sync-worker/internal/service"
	"wttt-sync-worker/internal/spapi"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting WTTT sync worker...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize sync store based on config
	var store repository.SyncStore
	switch cfg.Store.Type {
	case "mysql":
		mysqlDB, err := sql.Open("mysql", cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)
		if err := mysqlDB.Ping(); err != nil {
			log.Fatalf("MySQL ping failed: %v", err)
		}
		defer mysqlDB.Close()

		mysqlStore, err := repository.NewMySQLSyncStore(mysqlDB)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL sync store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteSyncStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		log.Println("SQLite sync store initialized")
	}

	// Initialize Redis client (optional - status bookkeeping only)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		redisClient = nil
	} else {
		log.Println("Redis client initialized")
	}
	cancel()

	var statusCache *cache.StatusCache
	if redisClient != nil {
		statusCache = cache.NewStatusCache(redisClient)
	}

	// Initialize SP-API access
	tokens := spapi.NewTokenManager(spapi.TokenConfig{
		Endpoint:     cfg.Amazon.TokenEndpoint,
		ClientID:     cfg.Amazon.LWAClientID,
		ClientSecret: cfg.Amazon.LWAClientSecret,
		RefreshToken: cfg.Amazon.RefreshToken,
	})
	client := spapi.NewClient(spapi.ClientConfig{
		Region:         cfg.Amazon.Region,
		Endpoint:       cfg.Amazon.Endpoint,
		RequestTimeout: cfg.Amazon.RequestTimeout,
		MaxRetries:     cfg.Amazon.MaxRetries,
	}, tokens)

	// Initialize sync engines
	marketplaceIDs := cfg.Amazon.MarketplaceIDList()
	orderEngine := service.NewOrderSyncEngine(client, store, statusCache, marketplaceIDs)
	inventoryEngine := service.NewInventorySyncEngine(client, store, statusCache, marketplaceIDs)
	reportEngine := service.NewReportEngine(client, store, marketplaceIDs)

	// Initialize scheduler with the recurring sync jobs
	sched := scheduler.New(cfg.Sync.RunTimeout)
	sched.Register(service.JobOrders, cfg.Sync.Interval(), func(ctx context.Context) {
		res := orderEngine.SyncOrders(ctx, nil, nil)
		if res.Failed {
			log.Printf("[main] Scheduled order sync failed: %s", res.Err)
		}
	})
	sched.Register(service.JobInventory, cfg.Sync.Interval(), func(ctx context.Context) {
		res := inventoryEngine.SyncInventory(ctx)
		if res.Failed {
			log.Printf("[main] Scheduled inventory sync failed: %s", res.Err)
		}
	})
	sched.Start()

	// Initialize handlers
	healthHandler := handler.New(store, redisClient, cfg.App.Version)
	syncHandler := handler.NewSyncHandler(orderEngine, inventoryEngine, reportEngine, statusCache, sched)

	// Create auth middleware for the manual trigger endpoints
	authMiddleware := middleware.NewWorkerAuth(cfg.Sync.WorkerSecret)

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		SyncHandler:    syncHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	// Stop future fires first; in-flight runs finish on their own.
	sched.Stop()

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Worker stopped")
}
