package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sendbox/internal/db"
	"sendbox/internal/server"
)

func main() {
	// Local .env loading is a development convenience only.
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Printf("service=sendbox msg=%q err=%v", "config_invalid", err)
		os.Exit(1)
	}

	dbConn, err := server.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("service=sendbox msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()
	log.Printf("service=sendbox msg=%q", "database_connected")

	log.Printf("service=sendbox msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=sendbox msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=sendbox msg=%q", "migrations_complete")

	blobs, err := server.NewMinioBlobStore(context.Background(), cfg)
	if err != nil {
		log.Printf("service=sendbox msg=%q err=%v", "object_store_failed", err)
		os.Exit(1)
	}

	sessionStore := server.NewPostgresSessionStore(dbConn)

	srv, err := server.New(server.Deps{
		Config:   cfg,
		Users:    server.NewPostgresUserStore(dbConn),
		Files:    server.NewPostgresFileStore(dbConn),
		Sessions: sessionStore,
		Blobs:    blobs,
	})
	if err != nil {
		log.Printf("service=sendbox msg=%q err=%v", "server_setup_failed", err)
		os.Exit(1)
	}

	// Expired-session sweeper runs until shutdown.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go server.StartSessionSweeper(sweepCtx, server.SweeperConfig{
		Interval: time.Minute,
		Store:    sessionStore,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=sendbox msg=%q addr=%s", "starting", cfg.Addr)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=sendbox msg=%q signal=%s", "shutting_down", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=sendbox msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=sendbox msg=%q", "shutdown_complete")
	case err := <-errCh:
		log.Printf("service=sendbox msg=%q err=%v", "server_failed", err)
		os.Exit(1)
	}
}
