package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/psipractice/booking-api/internal/api/router"
	"github.com/psipractice/booking-api/internal/availability"
	appconfig "github.com/psipractice/booking-api/internal/config"
	"github.com/psipractice/booking-api/internal/contact"
	"github.com/psipractice/booking-api/internal/events"
	httpmiddleware "github.com/psipractice/booking-api/internal/http/middleware"
	"github.com/psipractice/booking-api/internal/identity"
	"github.com/psipractice/booking-api/internal/notify"
	"github.com/psipractice/booking-api/internal/observability/metrics"
	"github.com/psipractice/booking-api/internal/sessions"
	"github.com/psipractice/booking-api/internal/users"
	"github.com/psipractice/booking-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server", "env", cfg.Env, "port", cfg.Port)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		logger.Error("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.PracticeTZ)
	if err != nil {
		logger.Error("invalid PRACTICE_TZ", "error", err, "tz", cfg.PracticeTZ)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	tokens := identity.NewTokenManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	bookingMetrics := metrics.NewBookingMetrics(nil)

	userRepo := users.NewPostgresRepository(pool)
	windowRepo := availability.NewPostgresRepository(pool)
	sessionRepo := sessions.NewPostgresRepository(pool)

	outboxStore := events.NewOutboxStore(pool)
	notifier := events.NewOutboxNotifier(outboxStore)

	sessionSvc := sessions.NewService(sessionRepo, notifier, userRepo, bookingMetrics, logger, cfg.SessionDuration)
	materializer := availability.NewMaterializer(windowRepo, sessions.NewBusyAdapter(sessionRepo), loc, cfg.HorizonDays)

	sender := buildEmailSender(ctx, cfg, logger)
	notifySvc := notify.NewService(sender, bookingMetrics, logger, cfg.PracticeName, cfg.AdminEmail, loc)
	deliverer := events.NewDeliverer(outboxStore, notifySvc, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	r := router.New(&router.Config{
		Logger:              logger,
		Tokens:              tokens,
		UsersHandler:        users.NewHandler(userRepo, tokens, logger),
		SessionsHandler:     sessions.NewHandler(sessionSvc, logger),
		AvailabilityHandler: availability.NewHandler(windowRepo, materializer, logger),
		ContactHandler:      contact.NewHandler(sender, logger, cfg.AdminEmail),
		MetricsHandler:      promhttp.Handler(),
		RateLimiter:         buildRateLimiter(cfg, logger),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but not configured, using stub sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, using stub sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

func buildRateLimiter(cfg *appconfig.Config, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		limit := int(cfg.RateLimitRPS * 60)
		return httpmiddleware.NewRedisLimiter(redis.NewClient(opts), limit, time.Minute, logger)
	}
	return httpmiddleware.NewTokenBucketLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}
