package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidgen-orchestrator/internal/assets"
	"vidgen-orchestrator/internal/encode"
	"vidgen-orchestrator/internal/generate"
	"vidgen-orchestrator/internal/orchestrator"
	"vidgen-orchestrator/internal/platform/config"
	"vidgen-orchestrator/internal/platform/logger"
	"vidgen-orchestrator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	windowSize := config.GetEnvInt("WINDOW_SIZE", generate.DefaultWindowSize)
	overlap := config.GetEnvInt("WINDOW_OVERLAP", generate.DefaultOverlap)
	dataDir := config.GetEnv("DATA_DIR", "data")
	outputDir := config.GetEnv("OUTPUT_DIR", "output")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	repo := orchestrator.NewInMemoryRepository()
	met := metrics.New()

	// The synthetic engine stands in until a real diffusion backend is
	// attached; it produces deterministic flat-shaded frames.
	engine := generate.SyntheticEngine{}
	coord := generate.NewCoordinator(engine, log, windowSize, overlap)

	svc := orchestrator.NewService(orchestrator.ServiceConfig{
		Repo:          repo,
		Coordinator:   coord,
		Encoders:      encode.NewSelector(nil),
		Preprocessors: assets.NewPreprocessorCache(),
		Logger:        log,
		Metrics:       met,
		DataDir:       dataDir,
		OutputDir:     outputDir,
	})
	h := orchestrator.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRuns(svc.ActiveRunCount()) }).ServeHTTP(w, r)
	})
	r.Post("/runs", h.StartRun)
	r.Get("/runs/{run_id}", h.GetRun)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"window_size", windowSize,
		"window_overlap", overlap,
		"data_dir", dataDir,
		"output_dir", outputDir,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
