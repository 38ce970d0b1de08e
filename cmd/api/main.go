package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/salonhq/booking-agent/internal/api/router"
	"github.com/salonhq/booking-agent/internal/bookings"
	appconfig "github.com/salonhq/booking-agent/internal/config"
	"github.com/salonhq/booking-agent/internal/conversation"
	"github.com/salonhq/booking-agent/internal/http/handlers"
	"github.com/salonhq/booking-agent/internal/messaging"
	"github.com/salonhq/booking-agent/internal/observability/metrics"
	"github.com/salonhq/booking-agent/internal/reminders"
	"github.com/salonhq/booking-agent/internal/users"
	"github.com/salonhq/booking-agent/pkg/logging"
)

func main() {
	// Load .env when present; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

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

	// Repositories and domain services
	usersRepo := users.NewRepository(pool)
	bookingsRepo := bookings.NewRepository(pool)
	engine := bookings.NewService(bookingsRepo, usersRepo, logger)
	convStore := conversation.NewStore(pool)

	// Conversation queue: Redis in deployments, in-process channel for
	// local development and tests.
	var queue conversation.Queue
	if cfg.UseMemoryQueue {
		logger.Info("using in-memory conversation queue")
		queue = conversation.NewMemoryQueue(64)
	} else {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to reach redis", "error", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		queue = conversation.NewRedisQueue(redisClient, cfg.QueueKey)
	}
	publisher := conversation.NewPublisher(queue, logger)

	advisor, err := conversation.NewGeminiAdvisor(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create advisor client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = advisor.Close() }()
	resolver := conversation.NewResolver(advisor, cfg.AdvisorTimeout, logger)

	sender := messaging.NewTwilioSender(
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioWhatsAppFrom,
		cfg.TwilioVoiceFrom,
		logger,
	)

	voiceURL := cfg.PublicBaseURL + "/voice"
	pipeline := conversation.NewPipeline(convStore, usersRepo, resolver, engine, sender, voiceURL, logger)

	worker := conversation.NewWorker(pipeline, queue, logger,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithJobTimeout(cfg.JobTimeout),
	)
	worker.Start(ctx)

	// Daily appointment reminders
	loc, err := time.LoadLocation(cfg.ReminderTimezone)
	if err != nil {
		logger.Error("invalid reminder timezone", "error", err, "tz", cfg.ReminderTimezone)
		os.Exit(1)
	}
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	reminderWorker := reminders.NewWorker(bookingsRepo, reminders.NewStore(pool), sender, logger)
	reminderWorker.SetMetrics(pipelineMetrics)
	scheduler := reminders.NewScheduler(reminderWorker, cfg.ReminderHour, loc, logger)
	scheduler.Start(ctx)

	webhookHandler := handlers.NewWebhookHandler(cfg.TwilioWebhookSecret, cfg.PublicBaseURL, publisher, pipelineMetrics, logger)
	appointmentsHandler := handlers.NewAppointmentsHandler(engine, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(engine, logger)
	healthHandler := handlers.NewHealthHandler(pool, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		WebhookHandler:      webhookHandler,
		AppointmentsHandler: appointmentsHandler,
		AvailabilityHandler: availabilityHandler,
		HealthHandler:       healthHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
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
			os.Exit(1)
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

	worker.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
