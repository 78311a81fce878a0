package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/config"
	"github.com/MarkRaffy28/MicroBits/internal/delivery"
	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/middleware"
	"github.com/MarkRaffy28/MicroBits/internal/repository/memory"
	"github.com/MarkRaffy28/MicroBits/internal/repository/postgres"
	"github.com/MarkRaffy28/MicroBits/internal/usecase"
	"github.com/MarkRaffy28/MicroBits/pkg/db"
	"github.com/MarkRaffy28/MicroBits/pkg/imagestore"
	"github.com/MarkRaffy28/MicroBits/pkg/metrics"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting MicroBits...")

	var (
		productRepo domain.ProductRepository
		orderRepo   domain.OrderRepository
		userRepo    domain.UserRepository
	)
	switch cfg.StorageBackend {
	case "postgres":
		database, err := db.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		logger.Info("Database connection established.")
		productRepo = postgres.NewProductRepository(database, logger)
		orderRepo = postgres.NewOrderRepository(database, logger)
		userRepo = postgres.NewUserRepository(database, logger)
	case "memory":
		var store *memory.Store
		if cfg.SnapshotFile != "" {
			store, err = memory.NewStoreFromSnapshot(cfg.SnapshotFile, logger)
			if err != nil {
				logger.Fatalf("Failed to load snapshot: %v", err)
			}
		} else {
			store = memory.NewStore(logger)
		}
		productRepo, orderRepo, userRepo = store, store, store
	default:
		logger.Fatalf("Unknown STORAGE_BACKEND: %s", cfg.StorageBackend)
	}
	logger.Info("Repositories initialized.")

	images, err := imagestore.New(cfg.ImageDir, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize image store: %v", err)
	}

	catalogUseCase := usecase.NewCatalogUseCase(productRepo, images, logger)
	cartUseCase := usecase.NewCartUseCase(userRepo, productRepo, logger)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, productRepo, logger)
	userUseCase := usecase.NewUserUseCase(userRepo, images, logger)
	logger.Info("Use cases initialized.")

	serverMetrics := metrics.NewServerMetrics("storefront")

	auth := middleware.Auth(userUseCase, logger)
	admin := middleware.RequireAdmin(logger)
	selfOrAdmin := middleware.RequireSelfOrAdmin("userId", logger)
	selfOrAdminByID := middleware.RequireSelfOrAdmin("id", logger)

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), serverMetrics.Middleware())

	api := router.Group("/api")
	delivery.NewAuthHandler(userUseCase, logger).RegisterRoutes(api)
	delivery.NewUserHandler(userUseCase, images, logger).RegisterRoutes(api, auth, admin, selfOrAdminByID)
	delivery.NewProductHandler(catalogUseCase, images, logger).RegisterRoutes(api, auth, admin)
	delivery.NewCartHandler(cartUseCase, logger).RegisterRoutes(api, auth, selfOrAdmin)
	delivery.NewOrderHandler(orderUseCase, cartUseCase, logger).RegisterRoutes(api, auth, admin)

	router.Static("/data/images", cfg.ImageDir)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	logger.Info("Routes registered.")

	logger.Infof("Starting server on port %s", cfg.HTTPPort)
	if err := router.Run(cfg.HTTPPort); err != nil {
		logger.Errorf("Failed to start server on port %s: %v", cfg.HTTPPort, err)
		os.Exit(1)
	}
}
