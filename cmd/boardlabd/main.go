package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/boardlab/boardlab/internal/infrastructure/config"
	"github.com/boardlab/boardlab/internal/infrastructure/server"
)

func main() {
	envFile := flag.String("environment", "", "Lab environment file (overrides BOARDLAB_ENVIRONMENT_FILE)")
	port := flag.String("port", "", "Listen port (overrides BOARDLAB_PORT)")
	captureDir := flag.String("captures", "", "Capture directory (overrides BOARDLAB_CAPTURE_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *envFile != "" {
		cfg.Lab.EnvironmentFile = *envFile
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *captureDir != "" {
		cfg.Capture.Dir = *captureDir
	}

	// Two daemons fighting over the same serial ports corrupt every
	// console; the lockfile keeps the lab single-owner.
	lock := flock.New(cfg.Lab.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("Failed to acquire lock %s: %v", cfg.Lab.LockFile, err)
	}
	if !locked {
		log.Fatalf("Another boardlabd already owns %s", cfg.Lab.LockFile)
	}
	defer lock.Unlock()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
