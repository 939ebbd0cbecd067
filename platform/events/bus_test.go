package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestInMemoryBusPublishSync(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var calls []string
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		calls = append(calls, "first")
		return nil
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		calls = append(calls, "second")
		return nil
	}))
	bus.Subscribe("other.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		calls = append(calls, "other")
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("handlers called = %v, want [first second]", calls)
	}
}

func TestInMemoryBusPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)

	wantErr := errors.New("handler broke")
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		return wantErr
	}))
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"})
	if !errors.Is(err, wantErr) {
		t.Errorf("PublishSync error = %v, want to wrap %v", err, wantErr)
	}
}

func TestInMemoryBusPublishAsync(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		defer wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler was never invoked")
	}
}

func TestInMemoryBusPublishSurvivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(nil)

	got := make(chan error, 1)
	bus.Subscribe("thing.happened", HandlerFunc(func(ctx context.Context, ev Event) error {
		got <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent(), name: "thing.happened"})

	select {
	case err := <-got:
		if err != nil {
			t.Errorf("handler context error = %v, want nil after detach", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async handler was never invoked")
	}
}
