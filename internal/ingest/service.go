package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadinbox_backend/internal/events"
	"leadinbox_backend/internal/ingest/ports"
	msgdomain "leadinbox_backend/internal/messaging/domain"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/db"
	"leadinbox_backend/platform/logger"
)

// Deps bundles the context ports the pipeline composes. Outbox may be nil
// when auto-response is disabled.
type Deps struct {
	Resolver ports.CustomerResolver
	Recorder ports.ConversationRecorder
	Lead     ports.LeadTransitioner
	Outbox   ports.ResponseOutbox
}

// Service runs normalized events through the engine: resolve the customer,
// record the message, fold the conversation rollup and apply the lead-state
// transition, all inside one serializable transaction per event.
type Service struct {
	deps          Deps
	bus           events.Bus
	log           *logger.Logger
	autoRespond   bool
	responseDelay time.Duration

	runTx func(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// NewService creates the pipeline service. The engine config bounds the
// transaction retry loop for serialization conflicts on the same customer
// aggregate.
func NewService(pool *pgxpool.Pool, deps Deps, engineCfg config.EngineConfig, respCfg config.ResponderConfig, bus events.Bus, log *logger.Logger) *Service {
	s := &Service{
		deps: deps,
		bus:  bus,
		log:  log,
	}
	if respCfg != nil {
		s.autoRespond = respCfg.IsAutoResponseEnabled()
		s.responseDelay = respCfg.GetResponseDelay()
	}

	attempts := 1
	if engineCfg != nil {
		attempts = engineCfg.GetTxAttempts()
	}
	s.runTx = func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return db.InTx(ctx, pool, attempts, fn)
	}
	return s
}

// EventInput is one normalized cross-channel event. The engine never
// branches on channel-specific payload shapes; adapters map their payloads
// to this before calling in.
type EventInput struct {
	Channel          string
	ExternalUserID   string
	ChannelMessageID *string
	Direction        string
	Status           string
	Body             string
	Automated        bool
	OccurredAt       time.Time

	Name   *string
	Locale *string
	Region *string
	Phone  *string
}

// RecordResult is the outcome of recording one message. On a redelivered
// message Transition is empty and OutboxID nil; the original delivery
// already moved the lead state.
type RecordResult struct {
	Message    ports.RecordedMessage
	Transition ports.TransitionOutcome
	OutboxID   *uuid.UUID
}

// EventResult is the outcome of one normalized event.
type EventResult struct {
	Customer ports.ResolvedCustomer
	RecordResult
}

// ProcessEvent runs the full pipeline for one normalized event. Redelivery
// of an already processed event returns the stored message with
// Duplicate=true and changes nothing else.
func (s *Service) ProcessEvent(ctx context.Context, in EventInput) (EventResult, error) {
	var res EventResult

	run := func(tx pgx.Tx) error {
		res = EventResult{}

		customer, err := s.deps.Resolver.ResolveIn(ctx, tx, ports.ResolveParams{
			Channel:    in.Channel,
			ExternalID: in.ExternalUserID,
			Name:       in.Name,
			Locale:     in.Locale,
			Region:     in.Region,
			Phone:      in.Phone,
		})
		if err != nil {
			return err
		}
		res.Customer = customer

		recorded, err := s.recordAndTransition(ctx, tx, customer.ID, ports.RecordParams{
			CustomerID:       customer.ID,
			Channel:          in.Channel,
			ChannelMessageID: in.ChannelMessageID,
			Direction:        in.Direction,
			Status:           in.Status,
			Body:             in.Body,
			Automated:        in.Automated,
			OccurredAt:       in.OccurredAt,
		})
		if err != nil {
			return err
		}
		res.RecordResult = recorded
		return nil
	}

	if err := s.inTx(ctx, run); err != nil {
		s.log.Error("ingest: failed to process event",
			"channel", in.Channel,
			"direction", in.Direction,
			"error", err,
		)
		return EventResult{}, err
	}

	s.publishResolved(ctx, res.Customer, res.Message.Channel, in.ExternalUserID)
	s.publishRecorded(ctx, res.RecordResult)
	return res, nil
}

type ResolveCustomerInput struct {
	Channel        string
	ExternalUserID string
	Name           *string
	Locale         *string
	Region         *string
	Phone          *string
}

// ResolveCustomer maps a channel identity to a customer, creating one on
// first contact.
func (s *Service) ResolveCustomer(ctx context.Context, in ResolveCustomerInput) (ports.ResolvedCustomer, error) {
	var customer ports.ResolvedCustomer

	run := func(tx pgx.Tx) error {
		var err error
		customer, err = s.deps.Resolver.ResolveIn(ctx, tx, ports.ResolveParams{
			Channel:    in.Channel,
			ExternalID: in.ExternalUserID,
			Name:       in.Name,
			Locale:     in.Locale,
			Region:     in.Region,
			Phone:      in.Phone,
		})
		return err
	}

	if err := s.inTx(ctx, run); err != nil {
		return ports.ResolvedCustomer{}, err
	}

	if customer.Created && s.bus != nil {
		s.bus.Publish(ctx, events.CustomerCreated{
			BaseEvent:  events.NewBaseEvent(),
			CustomerID: customer.ID,
			Channel:    in.Channel,
			ExternalID: in.ExternalUserID,
		})
	}
	return customer, nil
}

type RecordMessageInput struct {
	CustomerID       uuid.UUID
	Channel          string
	ChannelMessageID *string
	Direction        string
	Status           string
	Body             string
	Automated        bool
	ModelID          *string
	LatencyMs        *int64
	OccurredAt       time.Time
}

// RecordMessage records a message for an already resolved customer and
// applies the resulting lead-state transition. Idempotent per
// (channel, channel message id).
func (s *Service) RecordMessage(ctx context.Context, in RecordMessageInput) (RecordResult, error) {
	var res RecordResult

	run := func(tx pgx.Tx) error {
		var err error
		res, err = s.recordAndTransition(ctx, tx, in.CustomerID, ports.RecordParams{
			CustomerID:       in.CustomerID,
			Channel:          in.Channel,
			ChannelMessageID: in.ChannelMessageID,
			Direction:        in.Direction,
			Status:           in.Status,
			Body:             in.Body,
			Automated:        in.Automated,
			ModelID:          in.ModelID,
			LatencyMs:        in.LatencyMs,
			OccurredAt:       in.OccurredAt,
		})
		return err
	}

	if err := s.inTx(ctx, run); err != nil {
		return RecordResult{}, err
	}

	s.publishRecorded(ctx, res)
	return res, nil
}

type StatusInput struct {
	Channel          string
	ChannelMessageID string
	Status           string
	At               time.Time
}

// UpdateMessageStatus applies a delivery receipt to the message identified
// by its dedup key. A receipt repeating the current status is an absorbed
// no-op with Applied=false.
func (s *Service) UpdateMessageStatus(ctx context.Context, in StatusInput) (ports.StatusOutcome, error) {
	var outcome ports.StatusOutcome

	run := func(tx pgx.Tx) error {
		var err error
		outcome, err = s.deps.Recorder.UpdateStatusIn(ctx, tx, ports.StatusParams{
			Channel:          in.Channel,
			ChannelMessageID: in.ChannelMessageID,
			Status:           in.Status,
			At:               in.At,
		})
		return err
	}

	if err := s.inTx(ctx, run); err != nil {
		return ports.StatusOutcome{}, err
	}

	if outcome.Applied && s.bus != nil {
		s.bus.Publish(ctx, events.MessageStatusChanged{
			BaseEvent:  events.NewBaseEvent(),
			CustomerID: outcome.CustomerID,
			MessageID:  outcome.MessageID,
			Channel:    in.Channel,
			Status:     outcome.Status,
		})
	}
	return outcome, nil
}

// ApplyTransition applies a manual stage/label/score edit to a customer's
// lead state. An edit that changes nothing appends no activity and returns
// Applied=false.
func (s *Service) ApplyTransition(ctx context.Context, customerID uuid.UUID, edit ports.ManualEdit) (ports.TransitionOutcome, error) {
	var outcome ports.TransitionOutcome

	run := func(tx pgx.Tx) error {
		var err error
		outcome, err = s.deps.Lead.ApplyManualIn(ctx, tx, customerID, edit)
		return err
	}

	if err := s.inTx(ctx, run); err != nil {
		return ports.TransitionOutcome{}, err
	}

	s.publishTransition(ctx, customerID, outcome)
	return outcome, nil
}

// recordAndTransition is the shared record half of the pipeline: store the
// message, then fold it into the lead state, then queue an automated reply
// when the message calls for one. Duplicates stop after the store step.
func (s *Service) recordAndTransition(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, p ports.RecordParams) (RecordResult, error) {
	var res RecordResult

	recorded, err := s.deps.Recorder.RecordIn(ctx, tx, p)
	if err != nil {
		return RecordResult{}, err
	}
	res.Message = recorded
	if recorded.Duplicate {
		return res, nil
	}

	outcome, err := s.deps.Lead.ApplyMessageIn(ctx, tx, customerID, ports.MessageSignal{
		Channel:    recorded.Channel,
		Inbound:    recorded.Direction == msgdomain.DirectionInbound,
		Automated:  recorded.Automated,
		OccurredAt: recorded.OccurredAt,
	})
	if err != nil {
		return RecordResult{}, err
	}
	res.Transition = outcome

	if s.shouldQueueResponse(recorded) {
		outboxID, err := s.deps.Outbox.EnqueueIn(ctx, tx, customerID, recorded.ID, recorded.Channel, time.Now().UTC().Add(s.responseDelay))
		if err != nil {
			return RecordResult{}, err
		}
		res.OutboxID = &outboxID
	}

	return res, nil
}

func (s *Service) shouldQueueResponse(msg ports.RecordedMessage) bool {
	if !s.autoRespond || s.deps.Outbox == nil {
		return false
	}
	if msg.Direction != msgdomain.DirectionInbound || msg.Automated {
		return false
	}
	return msgdomain.SupportsAutomatedReplies(msg.Channel)
}

// inTx runs fn through the serializable-retry helper. A unique violation
// means a concurrent transaction won the race to create the same identity
// or message; one rerun finds the committed winner through the normal read
// paths.
func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	err := s.runTx(ctx, fn)
	if err != nil && db.IsUniqueViolation(err) {
		err = s.runTx(ctx, fn)
	}
	return err
}

func (s *Service) publishResolved(ctx context.Context, customer ports.ResolvedCustomer, channel, externalID string) {
	if s.bus == nil || !customer.Created {
		return
	}
	s.bus.Publish(ctx, events.CustomerCreated{
		BaseEvent:  events.NewBaseEvent(),
		CustomerID: customer.ID,
		Channel:    channel,
		ExternalID: externalID,
	})
}

func (s *Service) publishRecorded(ctx context.Context, res RecordResult) {
	if s.bus == nil || res.Message.Duplicate {
		return
	}
	s.bus.Publish(ctx, events.MessageRecorded{
		BaseEvent:  events.NewBaseEvent(),
		CustomerID: res.Message.CustomerID,
		MessageID:  res.Message.ID,
		Channel:    res.Message.Channel,
		Direction:  res.Message.Direction,
		Automated:  res.Message.Automated,
	})
	s.publishTransition(ctx, res.Message.CustomerID, res.Transition)
}

func (s *Service) publishTransition(ctx context.Context, customerID uuid.UUID, outcome ports.TransitionOutcome) {
	if s.bus == nil || !outcome.Applied {
		return
	}
	s.bus.Publish(ctx, events.LeadStateChanged{
		BaseEvent:   events.NewBaseEvent(),
		CustomerID:  customerID,
		ActivityID:  outcome.ActivityID,
		Trigger:     outcome.Trigger,
		StageBefore: outcome.StageBefore,
		StageAfter:  outcome.Stage,
		LabelBefore: outcome.LabelBefore,
		LabelAfter:  outcome.Label,
		ScoreDelta:  outcome.ScoreDelta,
		Score:       outcome.Score,
	})
}
