package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/car-marketplace/configs"
	"github.com/avatarctic/car-marketplace/internal/application/services"
	"github.com/avatarctic/car-marketplace/internal/core/ports"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/cache"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/db"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/health"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/httpserver"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/logging"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/redis"
	"github.com/avatarctic/car-marketplace/internal/infrastructure/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.NewLogger(cfg.Log)
	logger.WithField("environment", cfg.Server.Environment).Info("Starting car marketplace...")

	ctx := context.Background()

	database, err := db.Open(ctx, &cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.WithError(err).Warn("Failed to run migrations")
	}

	// The remote store is optional: without a URL, or with one that does not
	// parse, the accessor serves from its in-memory map only.
	var remote ports.RemoteCache
	if cfg.Cache.URL != "" {
		client, err := redis.NewRedisClient(&cfg.Cache)
		if err != nil {
			logger.WithError(err).Error("Invalid REDIS_URL, continuing without remote cache")
		} else {
			remote = redis.NewRedisCache(client, cfg.Cache.KeyPrefix)
		}
	}

	accessor := cache.NewAccessor(remote, cache.Config{
		TTL:               cfg.Cache.TTL,
		ConnectTimeout:    cfg.Cache.ConnectTimeout,
		RetryBase:         cfg.Cache.RetryBase,
		RetryCeiling:      cfg.Cache.RetryCeiling,
		MaxRetries:        cfg.Cache.MaxRetries,
		ReconnectInterval: cfg.Cache.ReconnectInterval,
		SweepInterval:     cfg.Cache.SweepInterval,
	}, logger)
	accessor.Initialize(ctx)
	logger.WithFields(logrus.Fields{"state": accessor.State().String(), "ttl": cfg.Cache.TTL}).Info("Cache initialized")

	listingRepo := repositories.NewCachingListingRepository(
		repositories.NewListingRepository(database, logger),
		accessor,
		logger,
	)
	listingService := services.NewListingService(listingRepo, logger)

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		ListingService: listingService,
		Cache:          accessor,
		HealthCheckers: []ports.HealthChecker{
			health.NewDBHealthChecker(database),
			health.NewCacheHealthChecker(accessor),
		},
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := accessor.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close cache")
	}
	if err := database.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}

	logger.Info("Server exited")
}
