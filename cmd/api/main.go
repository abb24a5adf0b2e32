package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"idcards/internal/api"
	"idcards/internal/app"
	"idcards/internal/cardtemplate"
	"idcards/internal/config"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.ServeQueue(ctx, logger) {
		log.Println("QUEUE_BACKEND=memory: export jobs run inside the api process")
	}

	if cfg.OperatorHash == "" {
		log.Println("warning: OPERATOR_SECRET_HASH not set, operator tokens cannot be issued")
	}

	checks := map[string]func(context.Context) bool{}
	if cfg.QueueBackend != "memory" || cfg.LockBackend == "redis" {
		checks["redis"] = c.Redis.Healthy
	}
	if c.DB != nil {
		checks["db"] = c.DB.Healthy
	}

	h := api.New(api.Deps{
		Employees:       c.Employees,
		Templates:       c.Templates,
		Photos:          c.Photos,
		Exports:         c.Exports,
		DefaultTemplate: cardtemplate.Default().ID,
		DefaultScale:    cfg.CaptureScale,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Auth: api.AuthConfig{
			Issuer:       cfg.JWTIssuer,
			SigningKey:   cfg.JWTSigningKey,
			OperatorHash: cfg.OperatorHash,
			AccessTTL:    cfg.AccessTTL,
			RefreshTTL:   cfg.RefreshTTL,
		},
		Checks: checks,
		Log:    logger,
	})

	// Synchronous bulk exports can take minutes.
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
