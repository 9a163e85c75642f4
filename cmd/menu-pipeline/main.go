package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/aws"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/config"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/database"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/observability"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/content"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/pipeline"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/ratelimit"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/repository/postgres"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/review"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/scheduler"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/scoring"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/server"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/tastegraph"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "menu-pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting menu pipeline", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStartup()
	if err := pg.Ping(startupCtx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if err := rdb.Ping(startupCtx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	restaurantRepo := postgres.NewRestaurantRepository(pg.GetDB())
	itemRepo := postgres.NewMenuItemRepository(pg.GetDB())
	optimizationRepo := postgres.NewOptimizationRepository(pg.GetDB())
	suggestionRepo := postgres.NewSuggestionRepository(pg.GetDB())
	scoreRepo := postgres.NewScoreRepository(pg.GetDB())

	httpClient := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxInFlight:       int64(cfg.RateLimit.MaxInFlight),
		MaxRetries:        cfg.RateLimit.MaxRetries,
		RetryBaseDelay:    config.GetDuration(cfg.RateLimit.RetryBaseDelay),
		CallTimeout:       config.GetDuration(cfg.RateLimit.CallTimeout),
	}, log)

	snapshotCache := tastegraph.NewSnapshotCache(rdb,
		time.Duration(cfg.TasteAPI.SnapshotTTL)*time.Second, log)
	taste := tastegraph.New(cfg.TasteAPI, httpClient, snapshotCache, log)

	providers := make([]content.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		providers = append(providers, content.NewHTTPProvider(pc, httpClient))
	}
	orchestrator := content.NewOrchestrator(providers, log)

	engine := scoring.New(cfg.Scoring, restaurantRepo, itemRepo, scoreRepo,
		taste, cfg.TasteAPI.MinRating, log)

	notifier := buildNotifier(cfg, log)
	workflow := review.NewWorkflow(optimizationRepo, suggestionRepo, itemRepo, log)

	coordinator := pipeline.New(pipeline.Config{
		Concurrency:         cfg.Pipeline.Concurrency,
		SuggestionCount:     cfg.Pipeline.SuggestionCount,
		OperationTimeout:    config.GetDuration(cfg.Pipeline.OperationTimeout),
		MinRating:           cfg.TasteAPI.MinRating,
		DominantShareCutoff: cfg.Scoring.DominantShareCutoff,
	}, restaurantRepo, itemRepo, optimizationRepo, suggestionRepo,
		taste, orchestrator, engine, notifier, obs, log)

	srv := server.New(coordinator, workflow, engine, map[string]server.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		recompute := scheduler.New(
			time.Duration(cfg.Scheduler.RecomputeInterval)*time.Second, engine, log)
		go recompute.Run(rootCtx)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"port": cfg.Server.Port})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-rootCtx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("shutdown complete", nil)
	return nil
}

// buildNotifier wires SES/SNS only when notifications are switched on;
// otherwise reviewer notification stays a no-op.
func buildNotifier(cfg *config.Config, log logger.Logger) *review.Notifier {
	if !cfg.Notifications.Email.Enabled && !cfg.Notifications.SMS.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var email review.EmailSender
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.Warn("ses unavailable, email notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			email = ses
		}
	}

	var sms review.SMSSender
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.Warn("sns unavailable, sms notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sms = sns
		}
	}

	if email == nil && sms == nil {
		return nil
	}
	return review.NewNotifier(cfg.Notifications, email, sms, log)
}
