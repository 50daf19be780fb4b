package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swarmoffice/orchestrator/internal/agents"
	"github.com/swarmoffice/orchestrator/internal/config"
	"github.com/swarmoffice/orchestrator/internal/llm"
	"github.com/swarmoffice/orchestrator/internal/policy"
	"github.com/swarmoffice/orchestrator/internal/service"
	"github.com/swarmoffice/orchestrator/internal/store"
	handler "github.com/swarmoffice/orchestrator/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Gateway URL: %s", cfg.GatewayURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize model gateway client
	llmClient := llm.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.LLMTimeout)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize agent registry, from the roster file when configured
	registry := agents.Default()
	if cfg.AgentsFile != "" {
		profiles, err := agents.LoadRoster(cfg.AgentsFile)
		if err != nil {
			log.Fatalf("Failed to load agent roster: %v", err)
		}
		registry, err = agents.NewRegistry(profiles, nil)
		if err != nil {
			log.Fatalf("Failed to build agent registry: %v", err)
		}
		log.Printf("Loaded %d agents from %s", len(profiles), cfg.AgentsFile)
	}

	// Initialize service
	svc := service.New(db, llmClient, registry, policyEngine, cfg)

	// Create HTTP server
	server := handler.NewServer(svc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestrator...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestrator stopped")
}
