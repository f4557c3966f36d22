package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/happykoalaa/koala-counseling-server/internal/config"
	"github.com/happykoalaa/koala-counseling-server/internal/metrics"
	"github.com/happykoalaa/koala-counseling-server/internal/pipeline"
	"github.com/happykoalaa/koala-counseling-server/internal/quota"
	"github.com/happykoalaa/koala-counseling-server/internal/server"
	"github.com/happykoalaa/koala-counseling-server/internal/speech"
	"github.com/happykoalaa/koala-counseling-server/internal/store"
	"github.com/happykoalaa/koala-counseling-server/internal/translate"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "koala-counseling-server"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("ai_configured", cfg.AI.Configured()),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	logger.Info("Prometheus metrics initialized")

	// Open the record store
	records, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Error("Failed to open record store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer records.Close()
	logger.Info("Record store opened", slog.String("path", cfg.Storage.Path))

	// Initialize the daily usage tracker
	usage := quota.NewTracker()

	// Build the AI backend when both providers are credentialed; otherwise
	// every request is served by the simulation generator.
	var backend *pipeline.Backend
	if cfg.AI.Configured() {
		speechClient, err := speech.NewClient(speech.Config{
			Endpoint: cfg.AI.Speech.Endpoint,
			APIKey:   cfg.AI.Speech.APIKey,
			Timeout:  cfg.AI.Speech.GetTimeoutDuration(),
		}, usage, logger)
		if err != nil {
			logger.Error("Failed to create speech client", slog.String("error", err.Error()))
			os.Exit(1)
		}

		translateClient, err := translate.NewClient(translate.Config{
			Endpoint: cfg.AI.Translate.Endpoint,
			APIKey:   cfg.AI.Translate.APIKey,
			Timeout:  cfg.AI.Translate.GetTimeoutDuration(),
		}, usage, logger)
		if err != nil {
			logger.Error("Failed to create translation client", slog.String("error", err.Error()))
			os.Exit(1)
		}

		backend = &pipeline.Backend{Speech: speechClient, Translate: translateClient}
		logger.Info("AI backend initialized",
			slog.String("speech_endpoint", cfg.AI.Speech.Endpoint),
			slog.String("translate_endpoint", cfg.AI.Translate.Endpoint),
		)
	} else {
		logger.Warn("AI providers not configured, running in simulation mode")
	}

	// Initialize the processing pipeline
	orchestrator := pipeline.New(pipeline.Config{
		CallTimeout: cfg.AI.GetCallTimeoutDuration(),
	}, logger, usage, backend, records, appMetrics)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:    cfg.HTTP.Port,
		Address: cfg.HTTP.Address,
	}, logger, orchestrator, records, usage, appMetrics)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Log final usage before exit
	snap := usage.Snapshot()
	logger.Info("Final usage",
		slog.Float64("speech_minutes_used", snap.SpeechMinutesUsed),
		slog.Int("translate_chars_used", snap.TranslateCharsUsed),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
