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

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/bobintern/bountybot/internal/ingest"
	"github.com/bobintern/bountybot/internal/matching"
	"github.com/bobintern/bountybot/internal/notify"
	"github.com/bobintern/bountybot/internal/orchestrator"
	"github.com/bobintern/bountybot/internal/platform/config"
	"github.com/bobintern/bountybot/internal/platform/database"
	"github.com/bobintern/bountybot/internal/platform/logger"
	"github.com/bobintern/bountybot/internal/platform/messagebroker"
	"github.com/bobintern/bountybot/internal/queue"
	"github.com/bobintern/bountybot/internal/remind"
	"github.com/bobintern/bountybot/internal/render"
	pgrepo "github.com/bobintern/bountybot/internal/repository/postgres"
	"github.com/bobintern/bountybot/internal/telegram"
	httptransport "github.com/bobintern/bountybot/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bot exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("./configs")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("starting bounty bot", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbPool.Close()
	appLogger.Info("connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis only backs the cutoff guard and ingest cache, both fail-open.
		appLogger.Warn("redis unavailable, cutoff guard and ingest cache disabled", "addr", cfg.RedisAddr, "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var events queue.EventPublisher
	if cfg.NATSEnabled {
		natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, "bountybot", appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable, delivery events disabled", "url", cfg.NATSUrl, "error", err)
		} else {
			defer natsClient.Close()
			events = natsClient
		}
	}

	userRepo := pgrepo.NewPgUserRepository(dbPool)
	listingRepo := pgrepo.NewPgListingRepository(dbPool)
	matchRepo := pgrepo.NewPgMatchRepository(dbPool)
	notificationRepo := pgrepo.NewPgNotificationRepository(dbPool)
	reminderRepo := pgrepo.NewPgReminderRepository(dbPool)

	tgClient := telegram.NewClient(appLogger, cfg.TelegramBotToken, cfg.TelegramAPIBaseURL, nil)

	deliveryQueue := queue.New(appLogger, tgClient, events, queue.Options{
		BatchSize:            cfg.QueueBatchSize,
		RetryDelay:           cfg.QueueRetryDelay,
		MaxRetries:           cfg.QueueMaxRetries,
		BatchProcessingDelay: cfg.QueueBatchProcessingDelay,
	})

	renderer := render.NewThumbnailRenderer(appLogger, cfg.AssetsDir, cfg.RenderOutputDir)
	cutoff := notify.NewCutoffGuard(appLogger, redisClient, cfg.NotificationCutoff)

	fetcher := ingest.NewFetcher(appLogger, cfg.ListingsAPIBaseURL, nil)
	ingestSvc := ingest.NewService(appLogger, fetcher, listingRepo, redisClient, cfg.ScanTickInterval*3)
	matchingSvc := matching.NewService(appLogger, userRepo, listingRepo, matchRepo)
	notifySvc := notify.NewService(appLogger, matchRepo, notificationRepo, renderer, deliveryQueue, cutoff, cfg.ListingsAPIBaseURL)
	remindSvc := remind.NewService(appLogger, reminderRepo, deliveryQueue, cfg.ListingsAPIBaseURL)

	orch := orchestrator.New(
		appLogger,
		ingestSvc, matchingSvc, notifySvc, remindSvc,
		listingRepo, matchRepo, reminderRepo,
		cfg.ScanTickInterval, cfg.MatchingTickInterval,
	)
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	httpServer := httptransport.NewServer(appLogger, cfg.HTTPPort, deliveryQueue)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("shutdown signal received")

		orch.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown error", "error", err)
		}

		if pending := deliveryQueue.Clear(); pending > 0 {
			appLogger.Warn("discarded pending queue messages on shutdown", "count", pending)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	appLogger.Info("bot stopped")
	return nil
}
