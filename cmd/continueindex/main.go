package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/continuedev/continueindex/internal/config"
	"github.com/continuedev/continueindex/internal/indexer"
	"github.com/continuedev/continueindex/internal/observability"
)

const Version = "0.1.0"

func main() {
	ctx := context.Background()

	dir := flag.String("dir", "", "directory to sync (required)")
	branch := flag.String("branch", "main", "branch label for the sync tag")
	provider := flag.String("provider", "", "provider id override (defaults to configured provider.id)")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "continueindex: -dir is required")
		os.Exit(2)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Output:        os.Stderr,
		AddSource:     true,
		SentryEnabled: cfg.Observability.Sentry.Enabled,
	})

	logger.Info("continueindex starting",
		"version", Version,
		"index_root", cfg.Home.IndexRoot,
		"metrics_enabled", cfg.Observability.Metrics.Enabled,
		"tracing_enabled", cfg.Observability.Tracing.Enabled,
	)

	var metrics *observability.MetricsCollector
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetricsCollector("continueindex")
		logger.Info("Metrics collection enabled", "port", cfg.Observability.Metrics.Port, "path", cfg.Observability.Metrics.Path)
		go startMetricsServer(cfg.Observability.Metrics, logger)
	} else {
		logger.Info("Metrics collection disabled")
	}

	var tracerProvider *observability.TracerProvider
	if cfg.Observability.Tracing.Enabled {
		tracerProvider, err = observability.NewTracerProvider(observability.TracerConfig{
			ServiceName:    "continueindex",
			ServiceVersion: Version,
			Environment:    cfg.Observability.Sentry.Environment,
			OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
			SamplingRate:   cfg.Observability.Tracing.SampleRate,
			Enabled:        true,
		})
		if err != nil {
			logger.Error("Failed to initialize tracing provider", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	} else {
		logger.Info("Tracing disabled")
	}

	if cfg.Observability.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Observability.Sentry.DSN,
			Environment:      cfg.Observability.Sentry.Environment,
			Release:          cfg.Observability.Sentry.Release,
			TracesSampleRate: cfg.Observability.Sentry.SampleRate,
		}); err != nil {
			logger.Error("Failed to initialize Sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	providerID := cfg.Provider.ID
	if *provider != "" {
		providerID = *provider
	}
	tag := indexer.Tag{Dir: *dir, Branch: *branch, ProviderID: providerID}

	var tracer trace.Tracer
	if tracerProvider != nil {
		tracer = tracerProvider.Tracer()
	}
	syncer := indexer.NewSyncer(cfg.Home.IndexRoot, logger, metrics, tracer)

	errorHandler := observability.NewErrorHandler(logger, metrics, cfg.Observability.Sentry.Enabled)

	result, err := syncer.Sync(ctx, tag)
	if err != nil {
		errorHandler.HandleError(ctx, err, observability.ErrorContext{
			Tag:       tag.String(),
			Provider:  providerID,
			ErrorType: "io_failure",
		})
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		os.Exit(1)
	}

	printResult(tag, result)
}

func printResult(tag indexer.Tag, result *indexer.SyncResult) {
	out := struct {
		Tag         string                    `json:"tag"`
		Compute     []indexer.ObjDescription `json:"compute"`
		Delete      []indexer.ObjDescription `json:"delete"`
		AddLabel    []indexer.ObjDescription `json:"add_label"`
		RemoveLabel []indexer.ObjDescription `json:"remove_label"`
	}{
		Tag:         tag.String(),
		Compute:     result.Compute,
		Delete:      result.Delete,
		AddLabel:    result.AddLabel,
		RemoveLabel: result.RemoveLabel,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func startMetricsServer(cfg config.MetricsConfig, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","component":"metrics"}`)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("Starting metrics server", "addr", addr, "path", cfg.Path)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server failed", "error", err)
	}
}
