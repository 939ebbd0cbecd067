package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"leadinbox_backend/internal/adapters"
	"leadinbox_backend/internal/customers"
	"leadinbox_backend/internal/events"
	"leadinbox_backend/internal/messaging"
	"leadinbox_backend/internal/outbound"
	responderrepo "leadinbox_backend/internal/responder/repository"
	responderservice "leadinbox_backend/internal/responder/service"
	"leadinbox_backend/internal/scheduler"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/db"
	"leadinbox_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Responder Wiring
	// ========================================================================

	customersModule := customers.NewModule(pool, cfg, nil)
	messagingModule := messaging.NewModule(pool)
	outboundClient := outbound.NewClient(cfg, log)

	responderDeps := responderservice.Deps{
		Directory:     adapters.NewResponderCustomerDirectory(customersModule.Service()),
		Conversations: adapters.NewResponderConversationReader(messagingModule.Service()),
		Generator:     adapters.NewCannedReplyGenerator(cfg.AutoResponseText),
		Sender:        adapters.NewResponderSinkSender(outboundClient),
		Recorder:      adapters.NewResponderOutboundRecorder(pool, messagingModule.Service(), cfg),
	}
	responderRepo := responderrepo.New(pool)
	responderSvc := responderservice.New(responderRepo, responderDeps, cfg, eventBus, log)

	// ========================================================================
	// Scheduler Components
	// ========================================================================

	dispatcher, err := scheduler.NewResponseOutboxDispatcher(cfg, responderSvc, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	cleanupInterval := getDurationEnv("RESPONSE_OUTBOX_CLEANUP_INTERVAL", time.Hour)
	succeededRetention := time.Duration(getPositiveIntEnv("RESPONSE_OUTBOX_SUCCEEDED_RETENTION_DAYS", 7)) * 24 * time.Hour
	failedRetention := time.Duration(getPositiveIntEnv("RESPONSE_OUTBOX_FAILED_RETENTION_DAYS", 30)) * 24 * time.Hour
	cleanup := scheduler.NewResponseOutboxCleanup(responderRepo, log, cleanupInterval, succeededRetention, failedRetention)

	worker, err := scheduler.NewWorker(cfg, responderSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cleanup.Run(gctx)
		return nil
	})

	_ = g.Wait()
	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
