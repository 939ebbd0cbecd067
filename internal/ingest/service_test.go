package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leadinbox_backend/internal/events"
	"leadinbox_backend/internal/ingest/ports"
	"leadinbox_backend/platform/logger"
)

type testEngineConfig struct {
	attempts int
}

func (c testEngineConfig) GetDefaultRegion() string { return "NL" }
func (c testEngineConfig) GetTxAttempts() int       { return c.attempts }

type testResponderConfig struct {
	enabled bool
	delay   time.Duration
}

func (c testResponderConfig) IsAutoResponseEnabled() bool     { return c.enabled }
func (c testResponderConfig) GetResponseDelay() time.Duration { return c.delay }
func (c testResponderConfig) GetResponseMaxAttempts() int     { return 3 }

type fakeResolver struct {
	result ports.ResolvedCustomer
	err    error
	calls  int
	last   ports.ResolveParams
}

func (f *fakeResolver) ResolveIn(_ context.Context, _ pgx.Tx, p ports.ResolveParams) (ports.ResolvedCustomer, error) {
	f.calls++
	f.last = p
	if f.err != nil {
		return ports.ResolvedCustomer{}, f.err
	}
	return f.result, nil
}

// fakeConversation echoes record params back the way the messaging adapter
// does, so the pipeline sees the channel and direction it stored.
type fakeConversation struct {
	messageID uuid.UUID
	duplicate bool
	recordErr error

	recordCalls int
	lastRecord  ports.RecordParams

	statusOut   ports.StatusOutcome
	statusErr   error
	statusCalls int
	lastStatus  ports.StatusParams
}

func (f *fakeConversation) RecordIn(_ context.Context, _ pgx.Tx, p ports.RecordParams) (ports.RecordedMessage, error) {
	f.recordCalls++
	f.lastRecord = p
	if f.recordErr != nil {
		return ports.RecordedMessage{}, f.recordErr
	}
	return ports.RecordedMessage{
		ID:               f.messageID,
		CustomerID:       p.CustomerID,
		Channel:          p.Channel,
		ChannelMessageID: p.ChannelMessageID,
		Direction:        p.Direction,
		Status:           p.Status,
		Body:             p.Body,
		Automated:        p.Automated,
		OccurredAt:       p.OccurredAt,
		CreatedAt:        time.Now().UTC(),
		Duplicate:        f.duplicate,
	}, nil
}

func (f *fakeConversation) UpdateStatusIn(_ context.Context, _ pgx.Tx, p ports.StatusParams) (ports.StatusOutcome, error) {
	f.statusCalls++
	f.lastStatus = p
	return f.statusOut, f.statusErr
}

type fakeLead struct {
	outcome ports.TransitionOutcome
	err     error

	messageCalls int
	lastSignal   ports.MessageSignal
	manualCalls  int
	lastEdit     ports.ManualEdit
}

func (f *fakeLead) ApplyMessageIn(_ context.Context, _ pgx.Tx, _ uuid.UUID, sig ports.MessageSignal) (ports.TransitionOutcome, error) {
	f.messageCalls++
	f.lastSignal = sig
	return f.outcome, f.err
}

func (f *fakeLead) ApplyManualIn(_ context.Context, _ pgx.Tx, _ uuid.UUID, edit ports.ManualEdit) (ports.TransitionOutcome, error) {
	f.manualCalls++
	f.lastEdit = edit
	return f.outcome, f.err
}

type fakeOutbox struct {
	id  uuid.UUID
	err error

	calls         int
	lastMessageID uuid.UUID
	lastChannel   string
	lastRunAt     time.Time
}

func (f *fakeOutbox) EnqueueIn(_ context.Context, _ pgx.Tx, _ uuid.UUID, messageID uuid.UUID, channel string, runAt time.Time) (uuid.UUID, error) {
	f.calls++
	f.lastMessageID = messageID
	f.lastChannel = channel
	f.lastRunAt = runAt
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.id, nil
}

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) names() []string {
	names := make([]string, len(b.published))
	for i, e := range b.published {
		names[i] = e.EventName()
	}
	return names
}

func newTestService(deps Deps, bus events.Bus, autoRespond bool) *Service {
	svc := NewService(nil, deps, testEngineConfig{attempts: 3}, testResponderConfig{enabled: autoRespond, delay: 2 * time.Minute}, bus, logger.New("development"))
	svc.runTx = func(_ context.Context, fn func(tx pgx.Tx) error) error {
		return fn(nil)
	}
	return svc
}

func appliedOutcome(trigger string) ports.TransitionOutcome {
	return ports.TransitionOutcome{
		Applied:     true,
		ActivityID:  uuid.New(),
		Trigger:     trigger,
		StageBefore: "NEW",
		Stage:       "CONTACTED",
		LabelBefore: "COLD",
		Label:       "WARM",
		Score:       10,
		ScoreDelta:  10,
	}
}

func strPtr(s string) *string { return &s }

func inboundEvent() EventInput {
	return EventInput{
		Channel:          "CHANNEL_A",
		ExternalUserID:   "usr-900",
		ChannelMessageID: strPtr("msg-attr-1"),
		Direction:        "INBOUND",
		Status:           "DELIVERED",
		Body:             "Is the apartment still available?",
		OccurredAt:       time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
		Name:             strPtr("Noor"),
		Locale:           strPtr("nl-NL"),
	}
}

func TestProcessEventRunsFullPipeline(t *testing.T) {
	customerID := uuid.New()
	resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: customerID, Created: true}}
	conv := &fakeConversation{messageID: uuid.New()}
	lead := &fakeLead{outcome: appliedOutcome("INBOUND_MESSAGE")}
	outbox := &fakeOutbox{id: uuid.New()}
	bus := &captureBus{}

	svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: lead, Outbox: outbox}, bus, true)

	in := inboundEvent()
	before := time.Now().UTC()
	res, err := svc.ProcessEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if res.Customer.ID != customerID || !res.Customer.Created {
		t.Errorf("customer = %+v, want created %s", res.Customer, customerID)
	}
	if resolver.last.Channel != "CHANNEL_A" || resolver.last.ExternalID != "usr-900" {
		t.Errorf("resolver params = %+v", resolver.last)
	}
	if resolver.last.Name == nil || *resolver.last.Name != "Noor" {
		t.Errorf("resolver name hint = %v, want Noor", resolver.last.Name)
	}

	if conv.recordCalls != 1 {
		t.Fatalf("record calls = %d, want 1", conv.recordCalls)
	}
	if conv.lastRecord.CustomerID != customerID || conv.lastRecord.Body != in.Body {
		t.Errorf("record params = %+v", conv.lastRecord)
	}
	if res.Message.ID != conv.messageID || res.Message.Duplicate {
		t.Errorf("message = %+v", res.Message)
	}

	if lead.messageCalls != 1 {
		t.Fatalf("lead calls = %d, want 1", lead.messageCalls)
	}
	sig := lead.lastSignal
	if sig.Channel != "CHANNEL_A" || !sig.Inbound || sig.Automated || !sig.OccurredAt.Equal(in.OccurredAt) {
		t.Errorf("lead signal = %+v", sig)
	}
	if !res.Transition.Applied || res.Transition.Stage != "CONTACTED" {
		t.Errorf("transition = %+v", res.Transition)
	}

	if outbox.calls != 1 {
		t.Fatalf("outbox calls = %d, want 1", outbox.calls)
	}
	if outbox.lastMessageID != conv.messageID || outbox.lastChannel != "CHANNEL_A" {
		t.Errorf("outbox enqueue = message %s channel %s", outbox.lastMessageID, outbox.lastChannel)
	}
	wantRunAt := before.Add(2 * time.Minute)
	if outbox.lastRunAt.Before(wantRunAt) || outbox.lastRunAt.After(wantRunAt.Add(5*time.Second)) {
		t.Errorf("outbox runAt = %s, want about %s", outbox.lastRunAt, wantRunAt)
	}
	if res.OutboxID == nil || *res.OutboxID != outbox.id {
		t.Errorf("outbox id = %v, want %s", res.OutboxID, outbox.id)
	}

	wantEvents := []string{"customers.created", "messages.recorded", "leadstate.changed"}
	got := bus.names()
	if len(got) != len(wantEvents) {
		t.Fatalf("published %v, want %v", got, wantEvents)
	}
	for i, name := range wantEvents {
		if got[i] != name {
			t.Errorf("event[%d] = %s, want %s", i, got[i], name)
		}
	}
}

func TestProcessEventRedeliveryShortCircuits(t *testing.T) {
	resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New(), Created: false}}
	conv := &fakeConversation{messageID: uuid.New(), duplicate: true}
	lead := &fakeLead{outcome: appliedOutcome("INBOUND_MESSAGE")}
	outbox := &fakeOutbox{id: uuid.New()}
	bus := &captureBus{}

	svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: lead, Outbox: outbox}, bus, true)

	res, err := svc.ProcessEvent(context.Background(), inboundEvent())
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if !res.Message.Duplicate {
		t.Fatal("expected duplicate message")
	}
	if lead.messageCalls != 0 {
		t.Errorf("lead calls = %d, want 0", lead.messageCalls)
	}
	if outbox.calls != 0 {
		t.Errorf("outbox calls = %d, want 0", outbox.calls)
	}
	if res.Transition.Applied || res.OutboxID != nil {
		t.Errorf("redelivery carried side effects: %+v", res.RecordResult)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %v, want none", bus.names())
	}
}

func TestProcessEventResponseQueueGating(t *testing.T) {
	tests := []struct {
		name        string
		channel     string
		direction   string
		automated   bool
		autoRespond bool
		wantQueued  bool
	}{
		{name: "inbound on live channel", channel: "CHANNEL_A", direction: "INBOUND", autoRespond: true, wantQueued: true},
		{name: "outbound", channel: "CHANNEL_A", direction: "OUTBOUND", autoRespond: true, wantQueued: false},
		{name: "automated inbound", channel: "CHANNEL_B", direction: "INBOUND", automated: true, autoRespond: true, wantQueued: false},
		{name: "lead feed", channel: "LEAD_FEED", direction: "INBOUND", autoRespond: true, wantQueued: false},
		{name: "auto-response disabled", channel: "CHANNEL_A", direction: "INBOUND", autoRespond: false, wantQueued: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New()}}
			conv := &fakeConversation{messageID: uuid.New()}
			lead := &fakeLead{}
			outbox := &fakeOutbox{id: uuid.New()}

			svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: lead, Outbox: outbox}, nil, tc.autoRespond)

			in := inboundEvent()
			in.Channel = tc.channel
			in.Direction = tc.direction
			in.Automated = tc.automated

			res, err := svc.ProcessEvent(context.Background(), in)
			if err != nil {
				t.Fatalf("ProcessEvent: %v", err)
			}

			queued := outbox.calls > 0
			if queued != tc.wantQueued {
				t.Errorf("queued = %v, want %v", queued, tc.wantQueued)
			}
			if tc.wantQueued && res.OutboxID == nil {
				t.Error("expected outbox id in result")
			}
		})
	}
}

func TestProcessEventRetriesUniqueViolationOnce(t *testing.T) {
	resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New(), Created: false}}
	conv := &fakeConversation{messageID: uuid.New(), duplicate: true}
	bus := &captureBus{}

	svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: &fakeLead{}}, bus, false)

	runs := 0
	svc.runTx = func(_ context.Context, fn func(tx pgx.Tx) error) error {
		runs++
		if err := fn(nil); err != nil {
			return err
		}
		if runs == 1 {
			return &pgconn.PgError{Code: "23505"}
		}
		return nil
	}

	res, err := svc.ProcessEvent(context.Background(), inboundEvent())
	if err != nil {
		t.Fatalf("ProcessEvent after rerun: %v", err)
	}
	if runs != 2 {
		t.Errorf("tx runs = %d, want 2", runs)
	}
	if resolver.calls != 2 {
		t.Errorf("resolver calls = %d, want 2", resolver.calls)
	}
	if !res.Message.Duplicate {
		t.Error("rerun should surface the committed winner as a duplicate")
	}
	if len(bus.published) != 0 {
		t.Errorf("published %v, want none", bus.names())
	}
}

func TestProcessEventGivesUpAfterOneRerun(t *testing.T) {
	resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New()}}
	conv := &fakeConversation{messageID: uuid.New()}
	bus := &captureBus{}

	svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: &fakeLead{}}, bus, false)

	runs := 0
	svc.runTx = func(_ context.Context, fn func(tx pgx.Tx) error) error {
		runs++
		if err := fn(nil); err != nil {
			return err
		}
		return &pgconn.PgError{Code: "23505"}
	}

	_, err := svc.ProcessEvent(context.Background(), inboundEvent())
	if err == nil {
		t.Fatal("expected error when the violation persists")
	}
	if runs != 2 {
		t.Errorf("tx runs = %d, want 2", runs)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %v, want none", bus.names())
	}
}

func TestProcessEventTransitionErrorPropagates(t *testing.T) {
	resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New(), Created: true}}
	conv := &fakeConversation{messageID: uuid.New()}
	lead := &fakeLead{err: errors.New("activity insert failed")}
	outbox := &fakeOutbox{id: uuid.New()}
	bus := &captureBus{}

	svc := newTestService(Deps{Resolver: resolver, Recorder: conv, Lead: lead, Outbox: outbox}, bus, true)

	_, err := svc.ProcessEvent(context.Background(), inboundEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if outbox.calls != 0 {
		t.Errorf("outbox calls = %d, want 0", outbox.calls)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %v, want none after a failed transaction", bus.names())
	}
}

func TestResolveCustomerPublishesOnlyOnCreate(t *testing.T) {
	tests := []struct {
		name       string
		created    bool
		wantEvents int
	}{
		{name: "first contact", created: true, wantEvents: 1},
		{name: "known identity", created: false, wantEvents: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &fakeResolver{result: ports.ResolvedCustomer{ID: uuid.New(), Created: tc.created}}
			bus := &captureBus{}

			svc := newTestService(Deps{Resolver: resolver}, bus, false)

			customer, err := svc.ResolveCustomer(context.Background(), ResolveCustomerInput{
				Channel:        "CHANNEL_B",
				ExternalUserID: "usr-17",
				Phone:          strPtr("+31612345678"),
			})
			if err != nil {
				t.Fatalf("ResolveCustomer: %v", err)
			}
			if customer.Created != tc.created {
				t.Errorf("created = %v, want %v", customer.Created, tc.created)
			}
			if resolver.last.Phone == nil || *resolver.last.Phone != "+31612345678" {
				t.Errorf("phone hint = %v", resolver.last.Phone)
			}
			if len(bus.published) != tc.wantEvents {
				t.Errorf("published %v, want %d events", bus.names(), tc.wantEvents)
			}
			if tc.wantEvents == 1 {
				created, ok := bus.published[0].(events.CustomerCreated)
				if !ok || created.CustomerID != customer.ID || created.Channel != "CHANNEL_B" {
					t.Errorf("event = %+v", bus.published[0])
				}
			}
		})
	}
}

func TestRecordMessageManualNoteSkipsResponseQueue(t *testing.T) {
	customerID := uuid.New()
	conv := &fakeConversation{messageID: uuid.New()}
	lead := &fakeLead{outcome: appliedOutcome("INBOUND_MESSAGE")}
	outbox := &fakeOutbox{id: uuid.New()}
	bus := &captureBus{}

	svc := newTestService(Deps{Recorder: conv, Lead: lead, Outbox: outbox}, bus, true)

	res, err := svc.RecordMessage(context.Background(), RecordMessageInput{
		CustomerID: customerID,
		Channel:    "MANUAL",
		Direction:  "INBOUND",
		Status:     "READ",
		Body:       "Called the customer, wants a viewing on Friday.",
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}

	if res.Message.Duplicate {
		t.Fatal("manual entries always insert")
	}
	if lead.messageCalls != 1 {
		t.Errorf("lead calls = %d, want 1", lead.messageCalls)
	}
	if outbox.calls != 0 {
		t.Errorf("outbox calls = %d, want 0 for manual channel", outbox.calls)
	}

	wantEvents := []string{"messages.recorded", "leadstate.changed"}
	got := bus.names()
	if len(got) != 2 || got[0] != wantEvents[0] || got[1] != wantEvents[1] {
		t.Errorf("published %v, want %v", got, wantEvents)
	}
}

func TestRecordMessagePassesResponseMetadata(t *testing.T) {
	latency := int64(840)
	conv := &fakeConversation{messageID: uuid.New()}
	lead := &fakeLead{}
	outbox := &fakeOutbox{id: uuid.New()}

	svc := newTestService(Deps{Recorder: conv, Lead: lead, Outbox: outbox}, nil, true)

	_, err := svc.RecordMessage(context.Background(), RecordMessageInput{
		CustomerID: uuid.New(),
		Channel:    "CHANNEL_A",
		Direction:  "OUTBOUND",
		Status:     "SENT",
		Body:       "Thanks for reaching out!",
		Automated:  true,
		ModelID:    strPtr("canned-v1"),
		LatencyMs:  &latency,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}

	if conv.lastRecord.ModelID == nil || *conv.lastRecord.ModelID != "canned-v1" {
		t.Errorf("model id = %v", conv.lastRecord.ModelID)
	}
	if conv.lastRecord.LatencyMs == nil || *conv.lastRecord.LatencyMs != 840 {
		t.Errorf("latency = %v", conv.lastRecord.LatencyMs)
	}
	if lead.lastSignal.Inbound || !lead.lastSignal.Automated {
		t.Errorf("lead signal = %+v", lead.lastSignal)
	}
	if outbox.calls != 0 {
		t.Errorf("outbox calls = %d, automated outbound must not queue a reply", outbox.calls)
	}
}

func TestUpdateMessageStatusPublishesOnlyWhenApplied(t *testing.T) {
	tests := []struct {
		name       string
		applied    bool
		wantEvents int
	}{
		{name: "advanced", applied: true, wantEvents: 1},
		{name: "absorbed repeat", applied: false, wantEvents: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := &fakeConversation{statusOut: ports.StatusOutcome{
				MessageID:  uuid.New(),
				CustomerID: uuid.New(),
				Status:     "READ",
				Applied:    tc.applied,
			}}
			bus := &captureBus{}

			svc := newTestService(Deps{Recorder: conv}, bus, false)

			outcome, err := svc.UpdateMessageStatus(context.Background(), StatusInput{
				Channel:          "CHANNEL_B",
				ChannelMessageID: "msg-77",
				Status:           "READ",
			})
			if err != nil {
				t.Fatalf("UpdateMessageStatus: %v", err)
			}
			if outcome.Applied != tc.applied {
				t.Errorf("applied = %v, want %v", outcome.Applied, tc.applied)
			}
			if conv.lastStatus.Channel != "CHANNEL_B" || conv.lastStatus.ChannelMessageID != "msg-77" {
				t.Errorf("status params = %+v", conv.lastStatus)
			}
			if len(bus.published) != tc.wantEvents {
				t.Errorf("published %v, want %d events", bus.names(), tc.wantEvents)
			}
		})
	}
}

func TestApplyTransitionPublishesOnlyWhenApplied(t *testing.T) {
	customerID := uuid.New()

	t.Run("manual edit applied", func(t *testing.T) {
		lead := &fakeLead{outcome: appliedOutcome("MANUAL_EDIT")}
		bus := &captureBus{}

		svc := newTestService(Deps{Lead: lead}, bus, false)

		outcome, err := svc.ApplyTransition(context.Background(), customerID, ports.ManualEdit{
			Stage: strPtr("QUALIFIED"),
			Note:  "verified budget on the phone",
		})
		if err != nil {
			t.Fatalf("ApplyTransition: %v", err)
		}
		if !outcome.Applied {
			t.Fatal("expected applied outcome")
		}
		if lead.manualCalls != 1 || lead.lastEdit.Stage == nil || *lead.lastEdit.Stage != "QUALIFIED" {
			t.Errorf("manual edit = %+v", lead.lastEdit)
		}
		if len(bus.published) != 1 {
			t.Fatalf("published %v, want one event", bus.names())
		}
		changed, ok := bus.published[0].(events.LeadStateChanged)
		if !ok || changed.CustomerID != customerID || changed.Trigger != "MANUAL_EDIT" {
			t.Errorf("event = %+v", bus.published[0])
		}
	})

	t.Run("no-op edit", func(t *testing.T) {
		lead := &fakeLead{outcome: ports.TransitionOutcome{
			Applied: false,
			Stage:   "QUALIFIED",
			Label:   "HOT",
			Score:   40,
		}}
		bus := &captureBus{}

		svc := newTestService(Deps{Lead: lead}, bus, false)

		outcome, err := svc.ApplyTransition(context.Background(), customerID, ports.ManualEdit{Stage: strPtr("QUALIFIED")})
		if err != nil {
			t.Fatalf("ApplyTransition: %v", err)
		}
		if outcome.Applied {
			t.Error("expected no-op outcome")
		}
		if len(bus.published) != 0 {
			t.Errorf("published %v, want none", bus.names())
		}
	})
}
