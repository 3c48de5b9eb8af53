package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/username/idxflow/backend/src/config"
	"github.com/username/idxflow/backend/src/database"
	"github.com/username/idxflow/backend/src/handlers"
	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/processors"
	"github.com/username/idxflow/backend/src/security"
	"github.com/username/idxflow/backend/src/services"
	"github.com/username/idxflow/backend/src/storage"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("IDXFlow aggregation backend starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	runStore := database.NewRunStore()
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing blob storage...", "bucket", config.Cfg.GCSBucket)
	gcs, err := storage.NewGCSStorage(context.Background(), config.Cfg.GCSBucket)
	if err != nil {
		logger.L.Error("Failed to initialize GCS storage", "error", err)
		stdlog.Fatalf("Failed to initialize GCS storage: %v", err)
	}
	defer gcs.Close()
	store := storage.NewCachedStorage(gcs, config.Cfg.DownloadCacheTTL, config.Cfg.CacheCleanupEvery)
	logger.L.Info("Blob storage initialized.")

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	priceService := services.NewPriceService()

	calculators := processors.NewCalculators(config.Cfg.OutputRoot)
	pipelineService := services.NewPipelineService(store, calculators, runStore, emailService,
		services.PipelineOptions{
			RawRoot:         config.Cfg.RawRoot,
			FilePrefix:      config.Cfg.FilePrefix,
			BatchSize:       config.Cfg.BatchSize,
			MaxConcurrent:   config.Cfg.MaxConcurrent,
			SampleLines:     config.Cfg.SampleLines,
			FileTimeout:     config.Cfg.FileTimeout,
			HeapSoftLimitMB: config.Cfg.HeapSoftLimitMB,
			MemoryPause:     config.Cfg.MemoryPause,
		})

	aggregationHandler := handlers.NewAggregationHandler(pipelineService, runStore)
	priceHandler := handlers.NewPriceHandler(priceService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	requireServiceAuth := handlers.ServiceAuthMiddleware(authService)

	apiRouter.HandleFunc("POST /api/aggregations/run", requireServiceAuth(aggregationHandler.HandleRunAggregation))
	apiRouter.HandleFunc("GET /api/aggregations/kinds", aggregationHandler.HandleListKinds)
	apiRouter.HandleFunc("GET /api/aggregations/runs", aggregationHandler.HandleListRuns)
	apiRouter.HandleFunc("GET /api/prices/{ticker}", priceHandler.HandleGetDailyHistory)

	rootMux.Handle("/api/", apiRouter)
	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "IDXFlow backend is running"})
			return
		}
		http.NotFound(w, r)
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := rateLimitMiddleware(rootMux)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // runs are synchronous and can exceed any sane write timeout
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
