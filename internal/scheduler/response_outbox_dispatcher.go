package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"leadinbox_backend/internal/responder/repository"
	"leadinbox_backend/platform/config"
	"leadinbox_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultClaimInterval = 2 * time.Second
	defaultClaimBatch    = 50
)

// OutboxSource is the slice of the responder service the dispatcher drives:
// claim due rows, and release a claim whose task never made the queue.
type OutboxSource interface {
	ClaimDue(ctx context.Context, limit int) ([]repository.Record, error)
	Release(ctx context.Context, id uuid.UUID, reason string) error
}

// ResponseOutboxDispatcher moves due response_outbox rows onto the task
// queue. The outbox table is the source of truth; the queue only carries
// row ids.
type ResponseOutboxDispatcher struct {
	client   *asynq.Client
	queue    string
	source   OutboxSource
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewResponseOutboxDispatcher(cfg config.SchedulerConfig, source OutboxSource, log *logger.Logger) (*ResponseOutboxDispatcher, error) {
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

	return &ResponseOutboxDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		source:   source,
		log:      log,
		interval: defaultClaimInterval,
		batch:    defaultClaimBatch,
	}, nil
}

func (d *ResponseOutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run claims due rows on a fixed cadence until ctx is cancelled. A row whose
// task fails to enqueue goes back to pending for the next sweep.
func (d *ResponseOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.source == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.sweep(ctx)
	}
}

func (d *ResponseOutboxDispatcher) sweep(ctx context.Context) {
	records, err := d.source.ClaimDue(ctx, d.batch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return
	}

	for _, rec := range records {
		task, err := NewResponseOutboxDueTask(ResponseOutboxDuePayload{
			OutboxID: rec.ID.String(),
		})
		if err != nil {
			_ = d.source.Release(ctx, rec.ID, err.Error())
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID, "error", err)
			_ = d.source.Release(ctx, rec.ID, err.Error())
		}
	}
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
