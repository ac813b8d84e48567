package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gangu/backend/config"
	"github.com/gangu/backend/internal/app"
	httpDelivery "github.com/gangu/backend/internal/delivery/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Gangu Backend v%s", httpDelivery.Version)
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)
	log.Printf("Store: %s", cfg.Store.Driver)
	log.Printf("Purchase mode: %s", cfg.Purchase.Mode)
	log.Printf("Decision: elderly_protection=%v, high_value_threshold=₹%.0f",
		cfg.Decision.ElderlyProtection, cfg.Decision.HighValueThreshold)

	// Initialize services
	services, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	if len(services.Grocery.Platforms()) == 0 {
		log.Printf("WARNING: no platforms configured - order requests will fail until search.platforms or search.catalog_path is set")
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(services.Comparison, services.Grocery, services.Purchases)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
