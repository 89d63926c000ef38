package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"internlink/internal/config"
	"internlink/internal/devserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	store, err := devserver.OpenStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.ApplyMigrationFile("migrations/001_init.sql"); err != nil {
		log.Fatalf("migration: %v", err)
	}

	if cfg.BootstrapAdminEmail != "" && cfg.BootstrapAdminPassword != "" {
		if err := devserver.EnsureAdmin(context.Background(), store, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	hsrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      devserver.NewRouter(cfg, store),
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}
	log.Printf("listening on %s (driver=%s)", cfg.ListenAddr, cfg.DBDriver)
	if err := hsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
}
