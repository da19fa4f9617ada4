package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/baseplate/console/config"
	"github.com/baseplate/console/internal/api"
	"github.com/baseplate/console/internal/api/handlers"
	"github.com/baseplate/console/internal/core/auth"
	"github.com/baseplate/console/internal/core/record"
	"github.com/baseplate/console/internal/core/schema"
	"github.com/baseplate/console/internal/core/validation"
	"github.com/baseplate/console/internal/storage/postgres"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate critical configuration
	if cfg.JWT.Secret == "" {
		log.Fatalf("JWT_SECRET environment variable is required")
	}

	var (
		recordRepo record.Repository
		adminRepo  auth.Repository
		closeDB    = func() {}
	)

	switch cfg.Server.Storage {
	case config.StorageMemory:
		log.Println("Using in-memory storage; data is lost on exit")
		recordRepo = record.NewMemoryRepository()
		adminRepo = auth.NewMemoryRepository()
	default:
		db, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		closeDB = func() { db.Close() }
		defer closeDB()

		if err := db.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Connected to database")

		recordRepo = record.NewPostgresRepository(db)
		adminRepo = auth.NewPostgresRepository(db)
	}

	// Initialize services
	validator := validation.NewValidator()
	authService := auth.NewService(adminRepo, &cfg.JWT, validator)
	recordService := record.NewService(recordRepo, validator)

	// Memory storage starts empty, so seed the operator account if given.
	if email, password := os.Getenv("SUPER_ADMIN_EMAIL"), os.Getenv("SUPER_ADMIN_PASSWORD"); email != "" && password != "" {
		if _, err := authService.EnsureSuperAdmin(context.Background(), email, password); err != nil {
			log.Fatalf("Failed to seed super admin: %v", err)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	var collections []*handlers.CollectionHandler
	for _, s := range schema.Builtins().All() {
		if s.Resource() == schema.Admins {
			collections = append(collections, handlers.NewCollectionHandler(s, authService))
			continue
		}
		collections = append(collections, handlers.NewCollectionHandler(s, recordService.Collection(s)))
	}

	// Setup router
	router := api.NewRouter(authService, authHandler, collections...)
	engine := router.Setup(cfg.Server.Mode)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		closeDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := engine.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
