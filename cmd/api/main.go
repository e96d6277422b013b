package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gilda/internal/app"
	"gilda/internal/config"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about uploaded PDF documents and serves branded share links.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Gilda API
//   description: |
//     Question answering over the owner's PDF documents.
//     Answers carry deep links that can be expanded with a lookup.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	app.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Shares: true})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	// Validate embedding client (fail-fast)
	if err := a.ValidateEmbeddings(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Serve(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
