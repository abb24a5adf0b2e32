package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"idcards/internal/app"
	"idcards/internal/config"
)

// Worker consumes queued export requests and runs them one at a time.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is served by the api process; the worker needs the redis queue")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("worker init failed: %v", err)
	}
	defer c.Close()

	// Check face service health on startup
	if !cfg.FaceSkip {
		if err := c.Face.Health(ctx); err != nil {
			log.Printf("WARNING: Face service not available: %v", err)
			log.Println("Photos will use the centre crop until it recovers")
		} else {
			log.Println("Face service connected")
		}
	}

	log.Println("worker started, waiting for messages...")
	if err := c.Exports.Work(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker stopped: %v", err)
	}
	log.Println("worker stopped")
}
