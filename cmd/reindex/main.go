// Command reindex rebuilds the local vector index from the documents
// directory.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Rrens/rag-assistant/internal/api"
	"github.com/Rrens/rag-assistant/internal/config"
	"github.com/Rrens/rag-assistant/internal/logger"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		panic(fmt.Sprintf("Failed to set up logging: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	deps, err := api.NewDeps(ctx, cfg, nil)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize: %v", err))
	}
	defer deps.Close()

	fmt.Printf("Rebuilding index from %s...\n", cfg.Search.Local.DocumentsPath)

	start := time.Now()
	if err := deps.Retrieval.Rebuild(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}

	for _, level := range deps.Retrieval.Status() {
		fmt.Printf("  %-14s available=%v\n", level.Name, level.Available)
	}
	fmt.Printf("Index rebuilt in %s\n", time.Since(start).Round(time.Millisecond))
}
