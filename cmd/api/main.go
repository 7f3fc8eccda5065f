package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/vsconsole/internal/api"
	"github.com/your-org/vsconsole/internal/api/handlers"
	"github.com/your-org/vsconsole/internal/api/ws"
	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/config"
	"github.com/your-org/vsconsole/internal/incidents"
	"github.com/your-org/vsconsole/internal/observability"
	"github.com/your-org/vsconsole/internal/poller"
	"github.com/your-org/vsconsole/internal/queue"
	"github.com/your-org/vsconsole/internal/routes"
	"github.com/your-org/vsconsole/internal/schema"
	"github.com/your-org/vsconsole/internal/storage"
	"github.com/your-org/vsconsole/internal/streams"
	"github.com/your-org/vsconsole/pkg/dto"
)

// eventPublisher is satisfied by both the NATS producer and the in-process queue.
type eventPublisher interface {
	PublishEvent(ctx context.Context, evt dto.Event) error
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting console API service", "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracer(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			slog.Error("init tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	validator, err := schema.NewCameraValidator()
	if err != nil {
		slog.Error("camera schema", "error", err)
		os.Exit(1)
	}

	client := backend.New(backend.Options{
		QueryURL:      cfg.Backends.QueryURL,
		StorageURL:    cfg.Backends.StorageURL,
		CameraURL:     cfg.Backends.CameraURL,
		ViolenceURL:   cfg.Backends.ViolenceURL,
		HTTPClient:    &http.Client{Timeout: cfg.Backends.Timeout},
		UploadTimeout: cfg.Upload.Timeout,
		Validator:     validator,
	})

	checks := map[string]handlers.Pinger{}

	// Audit log: Postgres when configured, otherwise an in-memory ring.
	var audit handlers.Auditor = storage.NewMemoryAudit(1000)
	if cfg.Database.Enabled() {
		db, err := storage.NewAuditStore(ctx, cfg.Database)
		if err != nil {
			slog.Error("connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("ensure audit schema", "error", err)
			os.Exit(1)
		}
		audit = db
		checks["postgres"] = db
	}

	// Evidence: MinIO read-through cache when configured.
	var evidence handlers.EvidenceSource = storage.NewDirectEvidence(client.Violence.FetchEvidence)
	if cfg.MinIO.Endpoint != "" {
		cache, err := storage.NewEvidenceCache(cfg.MinIO, client.Violence.FetchEvidence)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := cache.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		evidence = cache
		checks["minio"] = cache
	}

	// WebSocket hub
	hub := ws.NewHub(poller.New(client.Query.GetJob, cfg.Polling.Interval))
	go hub.Run(ctx)

	// Console events: NATS fan-out across instances, or straight to the hub.
	var events eventPublisher = queue.NewLocal(hub.HandleEvent)
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}

		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create event consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		if err := consumer.ConsumeEvents(ctx, consumerName(), hub.HandleEvent); err != nil {
			slog.Warn("start event consumer", "error", err)
		}
		events = producer
		checks["nats"] = producer
	}

	registry := streams.NewRegistry(client.Cameras, events, cfg.Polling.StreamRefresh)
	go registry.Run(ctx)

	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		Backend:   client,
		Registry:  registry,
		Incidents: incidents.NewService(client.Violence, client.Query, events),
		Evidence:  evidence,
		Audit:     audit,
		Routes:    routes.Default(),
		Hub:       hub,
		Checks:    checks,
	})

	// Start HTTP server. Uploads can be slow, so the write timeout follows them.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Upload.Timeout,
		WriteTimeout: cfg.Upload.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// consumerName gives each server instance its own durable consumer so every
// instance sees every event.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "console-api"
	}
	return "console-api-" + host
}
