package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sonoralabs/sonora/config"
	"github.com/sonoralabs/sonora/internal/email"
	"github.com/sonoralabs/sonora/internal/health"
	"github.com/sonoralabs/sonora/internal/infrastructure/postgres"
	ctxlog "github.com/sonoralabs/sonora/internal/log"
	"github.com/sonoralabs/sonora/internal/maintenance"
	"github.com/sonoralabs/sonora/internal/metrics"
	"github.com/sonoralabs/sonora/internal/oauth"
	"github.com/sonoralabs/sonora/internal/password"
	"github.com/sonoralabs/sonora/internal/token"
	httptransport "github.com/sonoralabs/sonora/internal/transport/http"
	"github.com/sonoralabs/sonora/internal/transport/http/handler"
	"github.com/sonoralabs/sonora/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	// Identity & tokens
	userRepo := postgres.NewUserRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	codec := token.NewCodec([]byte(cfg.JWTSecret))
	hasher := password.BcryptHasher{}
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	mailer := email.NewMailer(sender, cfg.AppBaseURL)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, codec, hasher, mailer, logger)
	sessions := usecase.NewSessionBridge(userRepo, []byte(cfg.JWTSecret))
	google := oauth.NewGoogleVerifier(cfg.GoogleClientID)
	authHandler := handler.NewAuthHandler(authUsecase, sessions, google, logger)

	// Catalog
	artistRepo := postgres.NewArtistRepository(pool)
	albumRepo := postgres.NewAlbumRepository(pool)
	trackRepo := postgres.NewTrackRepository(pool)
	catalogUsecase := usecase.NewCatalogUsecase(artistRepo, albumRepo, trackRepo)
	catalogHandler := handler.NewCatalogHandler(catalogUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	pruner := maintenance.NewPruner(tokenRepo, logger)
	if err := pruner.Start(); err != nil {
		stop()
		log.Fatalf("pruner: %v", err)
	}

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, authHandler, catalogHandler, sessions),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	pruner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
