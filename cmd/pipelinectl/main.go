package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"podium/config"
	"podium/db"
	"podium/internal/realtime"
	"podium/services"
	"podium/store"
)

// pipelinectl re-runs the failed steps of a debate's post-debate pipeline.
// Completed steps are left untouched; only failed ones execute again.
func main() {
	// Parse command line flags
	debateID := flag.String("debate", "", "Debate ID to retry (required)")
	configPath := flag.String("config", "config/config.prod.yml", "Path to config file")
	flag.Parse()

	// Validate required fields
	if *debateID == "" {
		fmt.Println("Error: debate is required")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.MongoClient.Disconnect(context.Background())

	dataStore := store.NewMongo(db.MongoDatabase)

	rooms := services.NewDailyClient(cfg.Daily.ApiKey)
	transcriber := services.NewDeepgramClient(cfg.Deepgram.ApiKey)
	analyst, err := services.NewGeminiAnalyst(cfg.Gemini.ApiKey)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}

	// Operator runs do not push realtime events; participants were already
	// notified (or will be by the notifications step itself).
	orchestrator := services.NewOrchestrator(dataStore, rooms, transcriber, analyst, realtime.NopPublisher{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := orchestrator.RetryFailedSteps(ctx, *debateID)
	if err != nil {
		log.Fatalf("Retry failed: %v", err)
	}

	if len(result.FailedSteps) == 0 {
		fmt.Printf("Pipeline completed for debate %s\n", *debateID)
	} else {
		fmt.Printf("Pipeline still has failed steps for debate %s:\n", *debateID)
		for _, step := range result.FailedSteps {
			fmt.Printf("   %s\n", step)
		}
		os.Exit(1)
	}
}
