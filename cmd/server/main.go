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

	"github.com/fuomag9/accounts-kabomba/internal/api"
	"github.com/fuomag9/accounts-kabomba/internal/config"
	"github.com/fuomag9/accounts-kabomba/internal/database"
	"github.com/fuomag9/accounts-kabomba/internal/oauth"
	"github.com/fuomag9/accounts-kabomba/internal/token"
	"github.com/fuomag9/accounts-kabomba/internal/users"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Get underlying SQL database for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Probe OAuth provider credentials so misconfiguration shows up at
	// startup instead of on the first login attempt
	for _, id := range oauth.ProviderIDs() {
		if _, err := oauth.ResolveProvider(string(id)); err != nil {
			if errors.Is(err, oauth.ErrMissingCredentials) {
				log.Printf("WARNING: OAuth provider %s disabled: %v", id, err)
				continue
			}
			log.Fatalf("Failed to resolve OAuth provider %s: %v", id, err)
		}
		log.Printf("OAuth provider %s enabled", id)
	}

	// Select OAuth session store
	sessions, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}

	store := users.NewGormStore(db)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	// Setup API router
	router := api.NewRouter(cfg, store, sessions, issuer)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newSessionStore picks the OAuth session backend: Redis when
// REDIS_URL is set (required for multi-instance deployments so
// callbacks can land on any replica), an in-memory store otherwise.
func newSessionStore(cfg *config.Config) (oauth.SessionStore, error) {
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("OAuth sessions: using Redis store")
		return oauth.NewRedisSessionStore(ctx, cfg.RedisURL)
	}

	log.Println("OAuth sessions: using in-memory store (single instance only)")
	memStore := oauth.NewMemorySessionStore()
	memStore.StartCleanupJob()
	return memStore, nil
}
