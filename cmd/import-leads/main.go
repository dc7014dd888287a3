package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/leadpilot/outreach-backend/internal/sending"
	"github.com/leadpilot/outreach-backend/pkg/env"
	"github.com/leadpilot/outreach-backend/pkg/logger"
	"github.com/leadpilot/outreach-backend/pkg/mongo"
	"github.com/leadpilot/outreach-backend/pkg/validation"
)

// Imports leads from a CSV with columns: phone,email,name,company.
// Rows with neither a valid phone nor an email are skipped.
func main() {
	csvPath := flag.String("csv", "", "path to CSV file (required)")
	campaignID := flag.String("campaign", "", "campaign id (required)")
	sdrID := flag.String("sdr", "", "assigned SDR id")
	flag.Parse()

	if *csvPath == "" || *campaignID == "" {
		flag.Usage()
		os.Exit(1)
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	campaign, _ := mongoClient.NewQuery("campaigns").
		Select("id", "name").
		Eq("id", *campaignID).
		FindOne(ctx)
	if campaign == nil {
		log.Fatalf("Campaign %s not found", *campaignID)
	}
	fmt.Printf("Importing into campaign: %v\n", campaign["name"])

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	imported := 0
	skipped := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read CSV line %d: %v", line+1, err)
		}
		line++

		// Skip a header row
		if line == 1 && record[0] == "phone" {
			continue
		}

		var rawPhone, email, name, company string
		if len(record) > 0 {
			rawPhone = record[0]
		}
		if len(record) > 1 {
			email = record[1]
		}
		if len(record) > 2 {
			name = record[2]
		}
		if len(record) > 3 {
			company = record[3]
		}

		phone := ""
		if rawPhone != "" {
			if normalized, err := validation.NormalizeE164(rawPhone); err == nil {
				phone = normalized
			} else {
				log.Printf("Line %d: invalid phone %q: %v", line, rawPhone, err)
			}
		}
		if phone == "" && email == "" {
			skipped++
			continue
		}

		channel := "whatsapp"
		if phone == "" {
			channel = "email"
		}

		lead := map[string]interface{}{
			"id":              uuid.New().String(),
			"phone":           phone,
			"email":           email,
			"name":            name,
			"company":         company,
			"channel":         channel,
			"status":          sending.StatusPending,
			"assigned_sdr_id": *sdrID,
			"campaign_id":     *campaignID,
			"created_at":      time.Now().Format(time.RFC3339),
		}

		filter := map[string]interface{}{"campaign_id": *campaignID}
		if phone != "" {
			filter["phone"] = phone
		} else {
			filter["email"] = email
		}

		if _, err := mongoClient.NewQuery("leads").Upsert(ctx, filter, lead); err != nil {
			log.Printf("Line %d: failed to upsert lead: %v", line, err)
			skipped++
			continue
		}
		imported++
	}

	fmt.Printf("Done: %d imported, %d skipped\n", imported, skipped)
}
