package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/fieldserve/authgate/credstore"
	"github.com/fieldserve/authgate/internal/config"
	"github.com/fieldserve/authgate/router"
	"github.com/fieldserve/authgate/services"
	"github.com/fieldserve/authgate/workers"
)

func main() {
	log.Println("Starting authgate...")

	// Load Config
	configPath := os.Getenv("AUTHGATE_CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := newStore()
	if err != nil {
		log.Fatalf("Failed to initialize credential store: %v", err)
	}

	backend := services.NewBackendClient(config.App.BackendURL)
	log.Printf("Upstream backend: %s", config.App.BackendURL)

	// One session manager shared by handlers and workers: the
	// single-writer discipline lives in it.
	sessions := credstore.NewSessions(store)

	r := router.New(sessions, backend)

	// Permission re-sync worker
	syncWorker := workers.NewPermissionSyncWorker(sessions, services.NewAuthService(backend), config.App.PermissionSyncInterval)
	go syncWorker.Start()

	srv := &http.Server{
		Addr:    ":" + config.App.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Listening on :%s", config.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down...")
	syncWorker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Stopped.")
}

// newStore picks the credential store backend from config.
func newStore() (credstore.Store, error) {
	switch config.App.StoreBackend {
	case "redis":
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		log.Println("Credential store: redis")
		return credstore.NewRedisStore(client), nil

	case "postgres":
		db, err := sql.Open("postgres", config.App.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			return nil, err
		}
		store := credstore.NewPostgresStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		log.Println("Credential store: postgres")
		return store, nil

	case "file":
		store, err := credstore.NewFileStore(config.App.CredentialFile, config.App.CredentialPassphrase)
		if err != nil {
			return nil, err
		}
		log.Println("Credential store: file")
		return store, nil

	default:
		log.Println("Credential store: memory")
		return credstore.NewMemoryStore(), nil
	}
}
