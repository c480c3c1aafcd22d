// Command create-admin provisions an administrator account. Admins cannot be
// created through the API (registration is itself admin-gated), so the first
// one has to come from here.
//
// Usage:
//
//	go run ./scripts/create-admin -email admin@example.com -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/cardiolab/ecg-engine/pkg/apperrors"
	"github.com/cardiolab/ecg-engine/pkg/config"
	"github.com/cardiolab/ecg-engine/pkg/crypto"
	"github.com/cardiolab/ecg-engine/pkg/database"
	"github.com/cardiolab/ecg-engine/pkg/models"
	"github.com/cardiolab/ecg-engine/pkg/repositories"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load("dev")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: 2,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := crypto.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        *email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	}

	if err := repositories.NewUserRepository(db).Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			log.Fatalf("A user with email %s already exists", *email)
		}
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID)
}
