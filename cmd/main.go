package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"opsbooks/internal/caching"
	"opsbooks/internal/config"
	"opsbooks/internal/handlers"
	"opsbooks/internal/jobs"
	"opsbooks/internal/jobs/background"
	"opsbooks/internal/middleware"
	"opsbooks/internal/repositories"
	"opsbooks/internal/services"
	"opsbooks/pkg/database"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	// Provisioning configuration (optional TOML file, defaults otherwise)
	cfg := config.Default()
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}
	jwksURL := os.Getenv("JWKS_URL")

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379" // Default Redis address
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDBStr := os.Getenv("REDIS_DB")
	redisDB := 0 // Default DB
	if redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration (optional; tenant document buckets)
	var storageSvc services.StorageService
	if minioEndpoint := os.Getenv("MINIO_ENDPOINT"); minioEndpoint != "" {
		minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
		if minioAccessKey == "" {
			minioAccessKey = "minioadmin" // Default for development
		}
		minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
		if minioSecretKey == "" {
			minioSecretKey = "minioadmin" // Default for development
		}
		useSSL := os.Getenv("MINIO_USE_SSL") == "true"

		storageSvc, err = services.NewMinioStorage(minioEndpoint, minioAccessKey, minioSecretKey, useSSL)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO storage: %v", err)
		}
	}

	// User directory (identity provider lookup for name resolution)
	var directory services.UserDirectory
	if directoryURL := os.Getenv("DIRECTORY_URL"); directoryURL != "" {
		directory = services.NewRESTDirectory(directoryURL, os.Getenv("DIRECTORY_TOKEN"))
	}

	// Create repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	auxRepo := repositories.NewAuxiliaryRepo(pool, cfg.Defaults.BusinessType, cfg.Defaults.Country)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Create services
	resolver := services.NewNameResolver(directory)

	var policy services.AvailabilityPolicy
	if cfg.Provisioning.FailOpen {
		policy = &services.FailOpenPolicy{Queue: cacheSvc}
	} else {
		policy = &services.FailClosedPolicy{}
	}

	acquireTimeout := time.Duration(cfg.Provisioning.AcquireTimeoutSeconds) * time.Second
	bootstrapSvc := services.NewBootstrapService(pool, tenantRepo, auxRepo, resolver, policy, storageSvc, acquireTimeout)

	// Background retry of deferred bootstraps
	retrier := jobs.NewProvisionRetrier(cacheSvc, bootstrapSvc, cfg.Retry.BatchSize)
	scheduler, err := background.NewJobScheduler(retrier, time.Duration(cfg.Retry.IntervalSeconds)*time.Second)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("WARN: scheduler shutdown failed: %v", err)
		}
	}()

	// Create handlers
	bootstrapHandlers := handlers.NewBootstrapHandlers(bootstrapSvc, tenantRepo, cacheSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(jwtSecret, jwksURL)
	if err != nil {
		log.Fatalf("Failed to initialize auth middleware: %v", err)
	}

	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())

	// Health routes
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/ready", healthHandlers.ReadinessCheck)
	e.GET("/live", healthHandlers.LivenessCheck)

	// Protected routes
	protected := e.Group("/api/v1")
	protected.Use(authMiddleware.Handler())

	protected.POST("/tenants/bootstrap", bootstrapHandlers.Bootstrap)
	protected.GET("/tenants/:id", bootstrapHandlers.GetTenant)

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Opsbooks provisioning service v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
