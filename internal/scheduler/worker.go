package scheduler

import (
	"context"
	"fmt"

	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReplyRunner is the slice of the responder service the worker drives.
type ReplyRunner interface {
	HandleRecord(ctx context.Context, outboxID uuid.UUID) error
}

// Worker consumes response-outbox tasks off the queue and runs them through
// the responder. Reply retries are driven by the outbox row, not the queue;
// a handler error only surfaces when the store itself is unreachable.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner ReplyRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner ReplyRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskResponseOutboxDue, w.handleResponseOutboxDue)

	return w, nil
}

func (w *Worker) handleResponseOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseResponseOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.runner.HandleRecord(ctx, outboxID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
