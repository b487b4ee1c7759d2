package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-api/config"
	"todo-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("backend", cfg.Backend).Info("storage init starting")

	backend, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := backend.Provision(ctx); err != nil {
		log.Fatalf("provision: %v", err)
	}

	log.Info("storage init complete")
}
