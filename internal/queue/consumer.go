package queue

import (
	"context"
	"log/slog"
	"time"
)

// Handler processes one job's payload. Returning an error triggers Fail
// (retry with backoff, or terminal failure once attempts are exhausted);
// returning nil triggers Ack.
type Handler func(ctx context.Context, job Job) error

// Consumer drains a single queue with bounded worker concurrency, polling
// for ready jobs and promoting delayed/stalled ones in the background. It
// plays the role the teacher's RabbitMQ Consumer played, rebuilt on top of
// the Redis-backed Client.
type Consumer struct {
	client      *Client
	queue       Name
	handler     Handler
	concurrency int
	pollEvery   time.Duration
	baseBackoff time.Duration
	log         *slog.Logger
}

// NewConsumer builds a Consumer for one queue. concurrency bounds how many
// jobs this process handles for this queue at once.
func NewConsumer(client *Client, queue Name, handler Handler, concurrency int, baseBackoff time.Duration, log *slog.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		client:      client,
		queue:       queue,
		handler:     handler,
		concurrency: concurrency,
		pollEvery:   500 * time.Millisecond,
		baseBackoff: baseBackoff,
		log:         log,
	}
}

// Run blocks, dispatching jobs to the handler until ctx is cancelled, and
// then waits for in-flight jobs to return before it returns. It also
// promotes due delayed jobs and reclaims stalled ones on every tick, so a
// single Consumer per queue is sufficient — no separate poller process is
// required.
func (c *Consumer) Run(ctx context.Context) {
	sem := make(chan struct{}, c.concurrency)
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for i := 0; i < c.concurrency; i++ {
				sem <- struct{}{}
			}
			return
		case <-ticker.C:
			if err := c.client.PromoteDue(ctx, c.queue); err != nil {
				c.log.Error("queue: promote due jobs failed", "queue", c.queue, "error", err)
			}
			if reclaimed, err := c.client.ReclaimStalled(ctx, c.queue); err != nil {
				c.log.Error("queue: reclaim stalled jobs failed", "queue", c.queue, "error", err)
			} else if len(reclaimed) > 0 {
				c.log.Warn("queue: reclaimed stalled jobs", "queue", c.queue, "count", len(reclaimed))
			}

		drain:
			for {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					break drain
				}
				job, err := c.client.Pop(ctx, c.queue)
				if err == ErrEmpty {
					<-sem
					break drain
				}
				if err != nil {
					c.log.Error("queue: pop failed", "queue", c.queue, "error", err)
					<-sem
					break drain
				}
				go func(job Job) {
					defer func() { <-sem }()
					c.dispatch(ctx, job)
				}(job)
			}
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, job Job) {
	if err := c.handler(ctx, job); err != nil {
		c.log.Warn("queue: job failed", "queue", job.Queue, "job_id", job.ID, "job_name", job.JobName, "attempt", job.Attempts+1, "error", err)
		if ferr := c.client.Fail(ctx, job, c.baseBackoff); ferr != nil {
			c.log.Error("queue: failed to record job failure", "queue", job.Queue, "job_id", job.ID, "error", ferr)
		}
		return
	}
	if err := c.client.Ack(ctx, job); err != nil {
		c.log.Error("queue: failed to ack job", "queue", job.Queue, "job_id", job.ID, "error", err)
	}
}
