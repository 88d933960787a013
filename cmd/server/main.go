package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/specgest/internal/api"
	"github.com/dgallion1/specgest/internal/compare"
	"github.com/dgallion1/specgest/internal/config"
	"github.com/dgallion1/specgest/internal/infer"
	"github.com/dgallion1/specgest/internal/layout"
	"github.com/dgallion1/specgest/internal/pipeline"
	"github.com/dgallion1/specgest/internal/specdb"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	lc := layout.NewClient(cfg.LayoutURL, cfg.LayoutAPIKey)

	var engine infer.Engine
	var closeEngine func()
	switch cfg.InferProvider {
	case "gemini":
		engine = infer.NewGeminiEngine(cfg.GeminiAPIKey, cfg.GeminiModel)
		closeEngine = func() {}
	default:
		oa := infer.NewOpenAIEngine(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		engine = oa
		closeEngine = oa.Close
	}
	log.Info("inference engine ready", "provider", engine.Name())

	// Load the specification database, if configured.
	var db map[string]compare.SpecEntry
	if cfg.SpecDBPath != "" {
		var err error
		db, err = specdb.Load(cfg.SpecDBPath)
		if err != nil {
			log.Error("spec database load failed", "path", cfg.SpecDBPath, "error", err)
			os.Exit(1)
		}
		log.Info("spec database loaded", "path", cfg.SpecDBPath, "entries", len(db))
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, engine, lc, db, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		closeEngine()
		lc.Close()
	}()

	log.Info("starting specgest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
