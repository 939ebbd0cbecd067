package scheduler

import (
	"context"
	"errors"
	"testing"

	"leadinbox_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeReplyRunner struct {
	err    error
	calls  int
	lastID uuid.UUID
}

func (f *fakeReplyRunner) HandleRecord(ctx context.Context, outboxID uuid.UUID) error {
	f.calls++
	f.lastID = outboxID
	return f.err
}

func TestWorkerHandleResponseOutboxDue(t *testing.T) {
	outboxID := uuid.New()

	validTask, err := NewResponseOutboxDueTask(ResponseOutboxDuePayload{OutboxID: outboxID.String()})
	if err != nil {
		t.Fatalf("NewResponseOutboxDueTask: %v", err)
	}

	tests := []struct {
		name      string
		task      *asynq.Task
		runnerErr error
		wantErr   bool
		wantCalls int
	}{
		{"valid payload", validTask, nil, false, 1},
		{"runner failure propagates", validTask, errors.New("sink down"), true, 1},
		{"malformed payload", asynq.NewTask(TaskResponseOutboxDue, []byte("{")), nil, true, 0},
		{"bad outbox id", asynq.NewTask(TaskResponseOutboxDue, []byte(`{"outboxId":"nope"}`)), nil, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeReplyRunner{err: tt.runnerErr}
			w := &Worker{runner: runner, log: logger.New("development")}

			err := w.handleResponseOutboxDue(context.Background(), tt.task)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if runner.calls != tt.wantCalls {
				t.Errorf("runner calls = %d, want %d", runner.calls, tt.wantCalls)
			}
			if tt.wantCalls == 1 && runner.lastID != outboxID {
				t.Errorf("runner got id %s, want %s", runner.lastID, outboxID)
			}
		})
	}
}
