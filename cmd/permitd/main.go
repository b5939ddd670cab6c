package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"park-permit-backend/config"
	"park-permit-backend/internal/api"
	"park-permit-backend/internal/cachefile"
	"park-permit-backend/internal/db"
	"park-permit-backend/internal/notification"
	"park-permit-backend/internal/refresh"
	"park-permit-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "permit-backend ", log.LstdFlags)

	// Optional .env for local development; config values may reference env vars.
	if err := godotenv.Load(); err == nil {
		logger.Println("loaded environment from .env")
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// The database opens lazily on first use; concurrent first callers share
	// one connection.
	dbHandle := db.NewHandle(&cfg.Database)
	appStore := store.NewGormStore(dbHandle)
	logger.Println("data store initialized")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push notifications are optional; without VAPID keys the refresh service
	// simply runs without a worker pool.
	var workerPool *notification.WorkerPool
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool = notification.NewWorkerPool(cfg.WorkerPool.Size, dbHandle, webpushOptions)
		// Workers run regardless of the background refresh loop so manual
		// refresh triggers can always dispatch.
		workerPool.Start(ctx)
	} else {
		logger.Println("VAPID keys are not configured; push notifications disabled")
	}

	// Initialize and run the background refresh loop
	cacheStore := cachefile.NewStore(&cfg.Refresh)
	refreshSvc := refresh.NewService(cfg, cacheStore, appStore, workerPool)
	go refreshSvc.Run(ctx)

	// Initialize router
	router := api.NewRouter(&cfg.Server, appStore, refreshSvc, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
