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

	"github.com/joho/godotenv"

	"github.com/go-blog-auth/internal/config"
	"github.com/go-blog-auth/internal/infrastructure/postgres"
	redisinfra "github.com/go-blog-auth/internal/infrastructure/redis"
	"github.com/go-blog-auth/internal/infrastructure/smtp"
	transporthttp "github.com/go-blog-auth/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Session/verification store. The client is constructed once here and
	// handed to the repositories; nothing else owns its lifecycle.
	redisClient, err := redisinfra.NewClient(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	pool, err := postgres.NewPool(context.Background(), cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("postgres: %v", err)
	}

	deps := &transporthttp.Deps{
		SessionRepo:      redisinfra.NewSessionRepo(redisClient, cfg.SessionTTL),
		UserRepo:         postgres.NewUserRepo(pool),
		VerificationRepo: redisinfra.NewVerificationRepo(redisClient),
		Mailer:           smtp.NewMailer(cfg),
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
