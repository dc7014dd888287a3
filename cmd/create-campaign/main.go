package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/logger"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
)

func main() {
	name := flag.String("name", "", "campaign name (required)")
	channel := flag.String("channel", "whatsapp", "channel: whatsapp or email")
	template := flag.String("template", "", "message template")
	subject := flag.String("subject", "", "email subject (email channel)")
	segment := flag.String("segment", "", "target segment label")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *channel != "whatsapp" && *channel != "email" {
		log.Fatalf("Invalid channel %q: must be whatsapp or email", *channel)
	}

	// Load environment variables
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := loadEnvFile(envFile); err == nil {
				log.Printf("Loaded environment from: %s", envFile)
			}
		}
	}

	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "temp-secret-for-script-only")
	}

	cfg, err := env.Load("")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existingCampaign, _ := mongoClient.NewQuery("campaigns").
		Eq("name", *name).
		FindOne(ctx)

	if existingCampaign != nil {
		fmt.Printf("Campaign %q already exists (id: %v)\n", *name, existingCampaign["id"])
		os.Exit(1)
	}

	campaignID := uuid.New().String()
	campaignData := map[string]interface{}{
		"id":               campaignID,
		"name":             *name,
		"channel":          *channel,
		"message_template": *template,
		"subject":          *subject,
		"segment":          *segment,
		"status":           "active",
		"created_at":       time.Now().Format(time.RFC3339),
		"updated_at":       time.Now().Format(time.RFC3339),
	}

	if _, err := mongoClient.NewQuery("campaigns").Insert(ctx, campaignData); err != nil {
		log.Fatalf("Failed to create campaign: %v", err)
	}

	fmt.Printf("Campaign created\n")
	fmt.Printf("   ID:      %s\n", campaignID)
	fmt.Printf("   Name:    %s\n", *name)
	fmt.Printf("   Channel: %s\n", *channel)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Import leads: POST /api/leads/import or the import-leads command")
	fmt.Println("  2. Assign messages: POST /api/messages/assign")
}

// loadEnvFile manually loads .env file handling BOM
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Remove BOM if present
		if len(line) > 0 {
			r, size := utf8.DecodeRuneInString(line)
			if r == '\ufeff' {
				line = line[size:]
			}
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
