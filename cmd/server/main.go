package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"genmedia-backend-go/internal/config"
	"genmedia-backend-go/internal/db"
	"genmedia-backend-go/internal/genai"
	httpapi "genmedia-backend-go/internal/http"
	"genmedia-backend-go/internal/migrations"
	"genmedia-backend-go/internal/services"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	for _, dir := range []string{cfg.DataPath, cfg.MediaStoragePath, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("create data directory")
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrations.Apply(database); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	if admin, err := services.EnsureEnvAdmin(database, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin")
	} else if admin != nil {
		log.Info().Str("email", admin.Email).Msg("admin account ready")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if active, err := services.ListActiveVideoJobs(database); err != nil {
		log.Error().Err(err).Msg("list active video jobs")
	} else if len(active) > 0 {
		log.Info().Int("count", len(active)).Msg("video jobs still in flight")
	}

	hub := services.NewMetricsHub()
	go hub.Run(ctx)
	go metricsLoop(ctx, database, cfg, hub)
	go sessionCleanupLoop(ctx, database)

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, generation endpoints will fail")
	}
	server := httpapi.NewServer(database, cfg, genai.NewGeminiClient(cfg.GeminiAPIKey), hub)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	log.Info().Msg("shutdown complete")
}

func setupLogger(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	zerolog.TimeFieldFormat = time.RFC3339
}

func metricsLoop(ctx context.Context, database *sqlx.DB, cfg config.Config, hub *services.MetricsHub) {
	ticker := time.NewTicker(time.Duration(cfg.MetricsSampleSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sample, err := services.CaptureMetrics(database, cfg.MediaStoragePath)
			if err != nil {
				log.Error().Err(err).Msg("metrics capture")
				continue
			}
			hub.Broadcast(sample)
			if err := services.PruneMetrics(database, 7*24*time.Hour); err != nil {
				log.Error().Err(err).Msg("metrics prune")
			}
		case <-ctx.Done():
			return
		}
	}
}

func sessionCleanupLoop(ctx context.Context, database *sqlx.DB) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed, err := services.CleanupExpiredSessions(database)
			if err != nil {
				log.Error().Err(err).Msg("session cleanup")
				continue
			}
			if removed > 0 {
				log.Info().Int64("removed", removed).Msg("expired sessions cleaned")
			}
		case <-ctx.Done():
			return
		}
	}
}
