package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"whatsapp-notifier/internal/config"
	"whatsapp-notifier/internal/db"
	"whatsapp-notifier/internal/httpserver"
	"whatsapp-notifier/internal/notify"
	"whatsapp-notifier/internal/recon"
	"whatsapp-notifier/internal/settings"
	"whatsapp-notifier/internal/store"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.WebhookSecret == "" {
		logger.Println("warning: SHOPIFY_API_SECRET is empty, every webhook will be rejected")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	documents := store.NewPostgres(dbpool)
	settingsRepo := settings.NewStoreRepo(documents)
	enqueuer := notify.New(documents)
	engine := recon.New(documents, settingsRepo, enqueuer, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Engine:         engine,
		WebhookSecret:  cfg.WebhookSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
