// api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"erpsite/api/attribution"
	"erpsite/api/campaign"
	"erpsite/api/config"
	"erpsite/api/database"
	"erpsite/api/handlers"
	"erpsite/api/logger"
	"erpsite/api/metrics"
	"erpsite/api/store"
	"erpsite/api/tracker"
	"erpsite/api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.App.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	metrics.Init()

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	marketing := campaign.Default()
	if path := cfg.App.MarketingConfigPath; path != "" {
		marketing, err = campaign.LoadFile(path)
		if err != nil {
			logger.Fatal("Failed to load marketing config", "path", path, "error", err)
		}
		logger.Info("Loaded marketing config", "path", path,
			"templates", len(marketing.Templates), "events", len(marketing.Events), "funnels", len(marketing.Funnels))
	}

	// --- PostgreSQL (dashboard users) ---
	dbClient, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		logger.Fatal("Failed to initialize PostgreSQL database", "error", err)
	}
	defer dbClient.Close()

	// --- ClickHouse (tracked events) ---
	chClient, err := database.NewClickHouseDB(cfg.ClickHouse, cfg.App.Name, cfg.App.Version)
	if err != nil {
		logger.Fatal("Failed to initialize ClickHouse database", "error", err)
	}
	defer chClient.Close()

	// --- Redis (visitor attribution) ---
	var scopes attribution.Scopes
	redisClient, err := database.NewRedisClient(cfg.Redis)
	switch {
	case err == nil:
		defer database.CloseRedisClient(redisClient)
		scopes = attribution.RedisScopes{
			Client:     redisClient,
			VisitorTTL: cfg.Redis.VisitorTTL,
			SessionTTL: cfg.Redis.SessionTTL,
		}
	case cfg.IsProduction():
		logger.Fatal("Failed to initialize Redis", "error", err)
	default:
		logger.Warn("Redis unavailable, keeping attribution in memory", "error", err)
		scopes = attribution.NewMemoryScopes()
	}

	userStore := store.NewUserStore(dbClient.DB)
	analyticsStore := store.NewAnalyticsStore(chClient)

	sink := tracker.MultiSink{analyticsStore}
	if cfg.Tracker.WebhookURL != "" {
		sink = append(sink, tracker.NewWebhookSink(cfg.Tracker.WebhookURL, cfg.Tracker.WebhookSecret, 10*time.Second))
	}
	if !cfg.IsProduction() {
		sink = append(sink, tracker.LogSink{})
	}
	eventTracker := tracker.New(marketing, sink, tracker.Options{
		QueueSize:     cfg.Tracker.QueueSize,
		BatchSize:     cfg.Tracker.BatchSize,
		FlushInterval: cfg.Tracker.FlushInterval,
	})

	r := handlers.NewRouter(handlers.RouterDeps{
		Users:         userStore,
		Stats:         analyticsStore,
		Tracker:       eventTracker,
		Scopes:        scopes,
		Marketing:     marketing,
		Tokens:        utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		APIKey:        cfg.Auth.DefaultAPIKey,
		FEOrigin:      cfg.Server.FEOrigin,
		VisitorTTL:    cfg.Redis.VisitorTTL,
		SecureCookies: cfg.IsProduction(),
		Ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := dbClient.DB.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := chClient.Conn.Ping(ctx); err != nil {
				return fmt.Errorf("clickhouse: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API server starting", "addr", srv.Addr, "env", cfg.App.Environment, "version", cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		// after the server so in-flight requests can still enqueue
		if err := eventTracker.Close(shutdownCtx); err != nil {
			return fmt.Errorf("tracker did not flush before shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
	}
	logger.Info("Server exiting")
}
