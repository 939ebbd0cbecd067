package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadinbox_backend/internal/adapters"
	"leadinbox_backend/internal/customers"
	"leadinbox_backend/internal/events"
	"leadinbox_backend/internal/exports"
	apphttp "leadinbox_backend/internal/http"
	"leadinbox_backend/internal/http/router"
	"leadinbox_backend/internal/ingest"
	"leadinbox_backend/internal/leadstate"
	"leadinbox_backend/internal/messaging"
	"leadinbox_backend/internal/notify"
	"leadinbox_backend/internal/outbound"
	responderrepo "leadinbox_backend/internal/responder/repository"
	responderservice "leadinbox_backend/internal/responder/service"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/db"
	"leadinbox_backend/platform/logger"
	"leadinbox_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	customersModule := customers.NewModule(pool, cfg, val)
	messagingModule := messaging.NewModule(pool)

	// Nil policy selects the default qualification rule table.
	leadstateModule := leadstate.NewModule(pool, nil)

	// ========================================================================
	// Automated Responder
	// ========================================================================

	outboundClient := outbound.NewClient(cfg, log)

	responderDeps := responderservice.Deps{
		Directory:     adapters.NewResponderCustomerDirectory(customersModule.Service()),
		Conversations: adapters.NewResponderConversationReader(messagingModule.Service()),
		Generator:     adapters.NewCannedReplyGenerator(cfg.AutoResponseText),
		Sender:        adapters.NewResponderSinkSender(outboundClient),
		Recorder:      adapters.NewResponderOutboundRecorder(pool, messagingModule.Service(), cfg),
	}
	responderSvc := responderservice.New(responderrepo.New(pool), responderDeps, cfg, eventBus, log)

	// ========================================================================
	// Ingest Pipeline
	// ========================================================================

	// Anti-Corruption Layer: the pipeline talks to the other contexts
	// through its own ports, implemented by adapters.
	ingestDeps := ingest.Deps{
		Resolver: adapters.NewIngestCustomerResolver(customersModule.Service()),
		Recorder: adapters.NewIngestConversationRecorder(messagingModule.Service()),
		Lead:     adapters.NewIngestLeadTransitioner(leadstateModule.Service()),
		Outbox:   adapters.NewIngestResponseOutbox(responderSvc),
	}
	ingestModule := ingest.NewModule(pool, ingestDeps, cfg, cfg, eventBus, log, val)

	// ========================================================================
	// Event Subscribers
	// ========================================================================

	notifyModule := notify.New(notify.NewWebhookSender(cfg, log), cfg, log)
	notifyModule.RegisterHandlers(eventBus)

	exportsModule := exports.NewModule(pool, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			customersModule,
			messagingModule,
			leadstateModule,
			ingestModule,
			exportsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
