package main

import (
	"alcyxob/course-app/internal/api"
	"alcyxob/course-app/internal/app"
	"alcyxob/course-app/internal/config"
	"alcyxob/course-app/internal/logger"
	"alcyxob/course-app/internal/observability"
	"alcyxob/course-app/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting Course Server...", "driver", cfg.Database.Driver, "sequencing", cfg.Sequencing.Strategy)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracing, err := observability.InitOTel(ctx, log, cfg.OTel, cfg.Server.Mode)
	if err != nil {
		log.Fatal("Could not initialize tracing", "error", err)
	}

	// --- Database Connection ---
	repos, err := app.OpenRepositories(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Could not open repositories", "error", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		if err := repos.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	// --- Redis (optional) ---
	redisClient, err := app.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Could not connect to redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// --- Initialize Storage (optional) ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage", "error", err)
		}
		fileStorage = s3Storage
	} else {
		log.Warn("s3.bucket_name not set, course materials disabled")
	}

	// --- Initialize Services ---
	svcs, err := app.NewServices(cfg, repos, app.HierarchyCache(redisClient, cfg.Redis, log), fileStorage, log)
	if err != nil {
		log.Fatal("Could not initialize services", "error", err)
	}

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OTel.Enabled {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(api.RequestID(), api.RequestLogger(log))

	// --- Setup Routes ---
	api.SetupRoutes(router, api.RouterConfig{
		JWTSecret:         cfg.JWT.Secret,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateCounter:       app.RateCounter(redisClient),
		ProgressPerMinute: cfg.RateLimit.ProgressPerMinute,
		HealthCheck:       repos.Ping,
	}, api.Services{
		Content:   svcs.Content,
		Sequencer: svcs.Sequencer,
		Progress:  svcs.Progress,
		Stats:     svcs.Stats,
		Materials: svcs.Materials,
	}, log)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info("Server starting", "address", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe Error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(ctxShutdown); err != nil {
		log.Warn("Tracer shutdown failed", "error", err)
	}

	log.Info("Server exiting.")
}
