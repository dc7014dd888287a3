package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/logger"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
)

func main() {
	email := flag.String("email", "", "user email (required)")
	password := flag.String("password", "", "user password (required)")
	name := flag.String("name", "", "display name")
	role := flag.String("role", auth.RoleSDR, "role: admin or sdr")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *role != auth.RoleAdmin && *role != auth.RoleSDR {
		log.Fatalf("Invalid role %q: must be admin or sdr", *role)
	}

	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	existingUser, _ := mongoClient.NewQuery("users").
		Select("id", "email").
		Eq("email", *email).
		FindOne(ctx)

	if existingUser != nil {
		fmt.Printf("User with email %s already exists\n", *email)
		os.Exit(1)
	}

	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	userID := uuid.New().String()

	userData := map[string]interface{}{
		"id":            userID,
		"email":         *email,
		"name":          *name,
		"password_hash": passwordHash,
		"role":          *role,
		"is_active":     true,
		"created_at":    time.Now().Format(time.RFC3339),
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	if _, err = mongoClient.NewQuery("users").Insert(ctx2, userData); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User created\n")
	fmt.Printf("   Email: %s\n", *email)
	fmt.Printf("   Role:  %s\n", *role)
	fmt.Printf("   ID:    %s\n", userID)
}
