package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beliefpad/api/internal/app"
	"beliefpad/api/internal/bootstrap"
	"beliefpad/api/internal/config"
	"beliefpad/api/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogFilePath, cfg.IsProduction())
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	components, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer components.Close()
	components.Reindex(ctx)

	deps := app.Dependencies{
		Catalogue: components.Catalogue,
		Exporter:  components.Exporter,
		Search:    components.Search,
		Mailer:    components.Mailer,
		PIN:       components.PIN,
		Logger:    logger,
	}
	if components.History != nil {
		deps.History = components.History
	}
	if components.Backup != nil {
		deps.Backup = components.Backup
	}
	service := app.New(cfg, deps)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("main", "beliefpad API listening", map[string]any{"addr": cfg.Addr, "store": cfg.StoreBackend})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("main", "shutdown error", map[string]any{"error": err.Error()})
	}
}
