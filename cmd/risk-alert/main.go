package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-risk-alerts/internal/alerting"
	"github.com/mr1hm/go-risk-alerts/internal/api"
	"github.com/mr1hm/go-risk-alerts/internal/assess"
	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/escalation"
	"github.com/mr1hm/go-risk-alerts/internal/ingestion"
	"github.com/mr1hm/go-risk-alerts/internal/logging"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
	"github.com/mr1hm/go-risk-alerts/internal/notify/email"
	"github.com/mr1hm/go-risk-alerts/internal/notify/sms"
	"github.com/mr1hm/go-risk-alerts/internal/notify/webhook"
	"github.com/mr1hm/go-risk-alerts/internal/registry"
	"github.com/mr1hm/go-risk-alerts/internal/repository"
	"github.com/mr1hm/go-risk-alerts/internal/routing"
	"github.com/mr1hm/go-risk-alerts/internal/stream"
	"github.com/mr1hm/go-risk-alerts/internal/triggers"
)

func main() {
	_ = godotenv.Load()

	path := os.Getenv("EWS_CONFIG")
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "config", path)

	if dir := filepath.Dir(cfg.Snapshot.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Fatalf("Failed to create data directory: %v", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.Snapshot.DBPath)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	reg := registry.New()
	if err := restore(context.Background(), reg, db, cfg.Snapshot.Path); err != nil {
		logging.Fatalf("Failed to restore alerts: %v", err)
	}

	// Notification channels
	channels := notify.NewRegistry()
	channels.Register(webhook.Type, webhook.Factory)
	channels.Register(email.Type, email.Factory)
	channels.Register(sms.Type, sms.Factory)
	entries, err := channels.Build(cfg.Channels)
	if err != nil {
		logging.Fatalf("Failed to build notification channels: %v", err)
	}
	dispatcher := notify.NewDispatcher(entries...)
	slog.Info("notification channels ready", "channels", dispatcher.Channels(), "types", channels.Types())

	trs, err := triggers.FromConfig(cfg.Triggers)
	if err != nil {
		logging.Fatalf("Failed to load triggers: %v", err)
	}

	evaluator := triggers.NewEvaluator(trs)
	slog.Info("triggers loaded", "count", evaluator.Len())

	router := routing.NewRouter(routing.Options{
		Directory:    cfg.StakeholderDirectory(),
		Categories:   cfg.RoutingTable(),
		TopExecutive: models.Role(cfg.StakeholderRouting.TopExecutive),
		Oversight:    models.Role(cfg.StakeholderRouting.Oversight),
	})

	broadcaster := stream.NewBroadcaster()

	factory := alerting.NewFactory(assess.NewCalculator(cfg.BaseSeverities()), assess.NewActionPlanner(), router, nil)
	service := alerting.NewService(alerting.Options{
		Evaluator:  evaluator,
		Factory:    factory,
		Registry:   reg,
		Dispatcher: dispatcher,
		Publisher:  broadcaster,
		EventLog:   db,
	})

	escalator := escalation.NewSupervisor(escalation.Options{
		Registry:   reg,
		Dispatcher: dispatcher,
		Publisher:  broadcaster,
		Oversight:  router,
		Interval:   cfg.EscalationEvery(),
		RedSLA:     cfg.RedSLA(),
	})

	sources, err := ingestion.SourcesFromConfig(cfg)
	if err != nil {
		logging.Fatalf("Failed to build sources: %v", err)
	}

	sup := ingestion.NewSupervisor(ingestion.Options{
		Config:    cfg,
		Sources:   sources,
		Processor: service,
		Escalator: escalator,
		Registry:  reg,
		Store:     db,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		logging.Fatalf("Failed to start supervisor: %v", err)
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // must stay false with wildcard origins
	}))
	engine.Use(api.MetricsMiddleware())
	engine.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(service, reg, sup, broadcaster)
	handler.RegisterRoutes(engine)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	broadcaster.Close() // ends open event streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := sup.Stop(context.Background()); err != nil {
		slog.Error("supervisor shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// restore loads the latest stored snapshot, falling back to the snapshot file.
func restore(ctx context.Context, reg *registry.Registry, db *repository.SQLiteDB, path string) error {
	snap, err := db.LatestSnapshot(ctx)
	switch {
	case err == nil:
		n, err := reg.Import(bytes.NewReader(snap.Data))
		if err != nil {
			return fmt.Errorf("import snapshot %d: %w", snap.ID, err)
		}
		slog.Info("alerts restored", "from", "store", "snapshot", snap.ID, "alerts", n)
		return nil
	case !errors.Is(err, repository.ErrNoSnapshot):
		return err
	}

	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := reg.Import(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	slog.Info("alerts restored", "from", path, "alerts", n)
	return nil
}
