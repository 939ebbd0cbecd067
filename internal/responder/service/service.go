package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadinbox_backend/internal/events"
	"leadinbox_backend/internal/responder/ports"
	"leadinbox_backend/internal/responder/repository"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"
)

const (
	defaultMaxAttempts = 5
	historyLimit       = 10
	baseRetryDelay     = 30 * time.Second
	maxRetryDelay      = 10 * time.Minute
)

// Deps bundles the ports the responder needs to turn an outbox row into a
// delivered, recorded reply. Implementations live in internal/adapters.
type Deps struct {
	Directory     ports.CustomerDirectory
	Conversations ports.ConversationReader
	Generator     ports.Generator
	Sender        ports.Sender
	Recorder      ports.OutboundRecorder
}

type Service struct {
	repo        repository.OutboxStore
	deps        Deps
	bus         events.Bus
	log         *logger.Logger
	maxAttempts int
}

func New(repo repository.OutboxStore, deps Deps, cfg config.ResponderConfig, bus events.Bus, log *logger.Logger) *Service {
	maxAttempts := defaultMaxAttempts
	if cfg != nil && cfg.GetResponseMaxAttempts() > 0 {
		maxAttempts = cfg.GetResponseMaxAttempts()
	}

	return &Service{
		repo:        repo,
		deps:        deps,
		bus:         bus,
		log:         log,
		maxAttempts: maxAttempts,
	}
}

type EnqueueParams struct {
	CustomerID       uuid.UUID
	TriggerMessageID uuid.UUID
	Channel          string
	RunAt            time.Time
}

// EnqueueIn inserts a pending outbox row inside the caller's transaction.
// The ingest pipeline calls this while recording the inbound message, so
// reply and message commit atomically.
func (s *Service) EnqueueIn(ctx context.Context, q repository.DBTX, p EnqueueParams) (uuid.UUID, error) {
	return s.repo.InsertIn(ctx, q, repository.InsertParams{
		CustomerID:       p.CustomerID,
		TriggerMessageID: p.TriggerMessageID,
		Channel:          p.Channel,
		RunAt:            p.RunAt,
	})
}

// ClaimDue hands due pending rows to the dispatcher, marking them enqueued.
func (s *Service) ClaimDue(ctx context.Context, limit int) ([]repository.Record, error) {
	return s.repo.ClaimDue(ctx, limit)
}

// Release puts a claimed row back to pending, used when handing it to the
// task queue failed.
func (s *Service) Release(ctx context.Context, id uuid.UUID, reason string) error {
	return s.repo.MarkPending(ctx, id, &reason)
}

type replyOutcome struct {
	messageID uuid.UUID
	modelID   string
	latencyMs int64
}

// HandleRecord runs one outbox row end to end: load conversation context,
// generate, send, record the outbound message, mark the row. Failures under
// the attempt cap re-pend the row with backoff; at the cap the row fails.
// Retries are driven by the outbox itself, so the task queue never needs to
// redeliver.
func (s *Service) HandleRecord(ctx context.Context, outboxID uuid.UUID) error {
	rec, err := s.repo.GetByID(ctx, outboxID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("responder: outbox row vanished", "outboxId", outboxID)
			return nil
		}
		return err
	}
	if rec.Status == repository.StatusSucceeded || rec.Status == repository.StatusFailed {
		return nil
	}

	if err := s.repo.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}
	attempt := rec.Attempts + 1

	out, err := s.respond(ctx, rec)
	if err != nil {
		return s.recordFailure(ctx, rec, attempt, err)
	}

	if err := s.repo.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}

	s.log.Info("responder: reply delivered",
		"outboxId", rec.ID,
		"customerId", rec.CustomerID,
		"messageId", out.messageID,
		"modelId", out.modelID,
		"latencyMs", out.latencyMs,
	)

	if s.bus != nil {
		s.bus.Publish(ctx, events.ResponseRecorded{
			BaseEvent:  events.NewBaseEvent(),
			CustomerID: rec.CustomerID,
			MessageID:  out.messageID,
			OutboxID:   rec.ID,
			ModelID:    out.modelID,
			LatencyMs:  out.latencyMs,
		})
	}

	return nil
}

func (s *Service) respond(ctx context.Context, rec repository.Record) (replyOutcome, error) {
	contact, err := s.deps.Directory.Contact(ctx, rec.CustomerID, rec.Channel)
	if err != nil {
		return replyOutcome{}, fmt.Errorf("resolve contact: %w", err)
	}

	turns, err := s.deps.Conversations.RecentTurns(ctx, rec.CustomerID, historyLimit)
	if err != nil {
		return replyOutcome{}, fmt.Errorf("load conversation: %w", err)
	}

	started := time.Now()
	reply, err := s.deps.Generator.Generate(ctx, ports.GenerateRequest{
		CustomerName: contact.Name,
		Channel:      rec.Channel,
		History:      turns,
	})
	if err != nil {
		return replyOutcome{}, fmt.Errorf("generate reply: %w", err)
	}
	latency := time.Since(started).Milliseconds()

	if strings.TrimSpace(reply.Text) == "" {
		return replyOutcome{}, errors.New("generator returned an empty reply")
	}

	if err := s.deps.Sender.Send(ctx, ports.Outbound{
		Channel: rec.Channel,
		To:      contact.Address,
		Text:    reply.Text,
	}); err != nil {
		return replyOutcome{}, fmt.Errorf("send reply: %w", err)
	}

	messageID, err := s.deps.Recorder.RecordAutomated(ctx, ports.AutomatedReply{
		CustomerID: rec.CustomerID,
		Channel:    rec.Channel,
		Body:       reply.Text,
		ModelID:    reply.ModelID,
		LatencyMs:  latency,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return replyOutcome{}, fmt.Errorf("record reply: %w", err)
	}

	return replyOutcome{messageID: messageID, modelID: reply.ModelID, latencyMs: latency}, nil
}

func (s *Service) recordFailure(ctx context.Context, rec repository.Record, attempt int, cause error) error {
	reason := cause.Error()

	if attempt >= s.maxAttempts {
		s.log.Error("responder: giving up on reply",
			"outboxId", rec.ID,
			"customerId", rec.CustomerID,
			"attempts", attempt,
			"error", cause,
		)
		return s.repo.MarkFailed(ctx, rec.ID, reason)
	}

	delay := retryDelay(attempt)
	s.log.Warn("responder: reply attempt failed, rescheduling",
		"outboxId", rec.ID,
		"customerId", rec.CustomerID,
		"attempt", attempt,
		"retryIn", delay.String(),
		"error", cause,
	)
	return s.repo.Reschedule(ctx, rec.ID, time.Now().UTC().Add(delay), reason)
}

// retryDelay doubles per attempt, capped so a stuck gateway does not push
// retries out indefinitely.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
