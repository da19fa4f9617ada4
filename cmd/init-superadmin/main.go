package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/baseplate/console/config"
	"github.com/baseplate/console/internal/core/auth"
	"github.com/baseplate/console/internal/core/validation"
	"github.com/baseplate/console/internal/storage/postgres"
)

func main() {
	// Read environment variables
	superAdminEmail := os.Getenv("SUPER_ADMIN_EMAIL")
	superAdminPassword := os.Getenv("SUPER_ADMIN_PASSWORD")

	if superAdminEmail == "" || superAdminPassword == "" {
		log.Fatal("SUPER_ADMIN_EMAIL and SUPER_ADMIN_PASSWORD environment variables are required")
	}

	// Load database configuration
	cfg := config.Load()

	// Connect to database
	db, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	authService := auth.NewService(auth.NewPostgresRepository(db), &cfg.JWT, validation.NewValidator())

	changed, err := authService.EnsureSuperAdmin(ctx, superAdminEmail, superAdminPassword)
	if err != nil {
		log.Fatalf("Failed to create super admin: %v", err)
	}
	if !changed {
		fmt.Printf("Super admin '%s' already exists\n", superAdminEmail)
		return
	}

	fmt.Printf("Super admin '%s' is ready\n", superAdminEmail)
}
