// Package queue implements the durable multi-queue described in spec.md
// §4.6 on top of Redis: four logical queues, each with attempts, exponential
// backoff, priority, dedup by job name, and capped retention of recent
// completions and failures.
//
// Layout per queue name Q:
//   - queue:Q:ready       sorted set, score = priority*2^40 + enqueue_unix_ms, ZPOPMIN is "next job"
//   - queue:Q:delayed     sorted set, score = next-retry unix_ms, moved to ready once due
//   - queue:Q:processing  sorted set, score = visibility deadline unix_ms, for stalled detection
//   - queue:Q:job:ID      hash, the job's fields
//   - queue:Q:dedup:NAME  string, SET NX with TTL, enforces enqueue-time dedup
//   - queue:Q:completed   capped list of recently completed job ids
//   - queue:Q:failed      capped list of recently exhausted job ids
//
// This is the idiomatic-Go equivalent of BullMQ's Redis primitives, grounded
// in the teacher's own redis.Client wrapper style (internal/cache.Client).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopee-ingest/internal/metrics"
)

const (
	dedupTTL            = 24 * time.Hour
	visibilityTimeout   = 2 * time.Minute
	retentionCap        = 1000
	priorityScoreFactor = int64(1) << 40
)

// Client owns the Redis connection shared by every queue.
type Client struct {
	rdb *redis.Client
}

// New creates a Redis client and verifies the connection with a PING.
func New(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: connect: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Close shuts down the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// Enqueue durably stores a job and makes it eligible for dequeue. Dedup
// skips the enqueue (returning ErrDuplicate) if a job with the same name
// is already pending.
func (c *Client) Enqueue(ctx context.Context, queue Name, jobName string, payload any, opts EnqueueOptions) (string, error) {
	opts = opts.withDefaults()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: marshal payload: %w", err)
	}

	if opts.Dedup {
		ok, err := c.rdb.SetNX(ctx, dedupKey(queue, jobName), "1", dedupTTL).Result()
		if err != nil {
			return "", fmt.Errorf("queue: dedup check: %w", err)
		}
		if !ok {
			return "", ErrDuplicate
		}
	}

	id := uuid.New().String()
	now := time.Now()

	fields := map[string]any{
		"job_name":            jobName,
		"payload":             string(body),
		"priority":            opts.Priority,
		"attempts":            0,
		"max_attempts":        opts.MaxAttempts,
		"base_backoff_ms":     opts.BaseBackoff.Milliseconds(),
		"enqueued_at_unix_ms": now.UnixMilli(),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(queue, id), fields)
	pipe.ZAdd(ctx, readyKey(queue), redis.Z{Score: float64(readyScore(opts.Priority, now)), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}

	metrics.QueueDepth.WithLabelValues(string(queue)).Inc()
	return id, nil
}

func readyScore(priority int, t time.Time) int64 {
	return int64(priority)*priorityScoreFactor + t.UnixMilli()
}

// PromoteDue moves delayed jobs whose retry time has arrived into the ready
// set. Callers run this on a short interval (Consumer does this
// automatically).
func (c *Client) PromoteDue(ctx context.Context, queue Name) error {
	now := float64(time.Now().UnixMilli())
	ids, err := c.rdb.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: strconv.FormatFloat(now, 'f', 0, 64),
	}).Result()
	if err != nil || len(ids) == 0 {
		return err
	}
	for _, id := range ids {
		priority, _ := c.rdb.HGet(ctx, jobKey(queue, id), "priority").Int()
		pipe := c.rdb.TxPipeline()
		pipe.ZRem(ctx, delayedKey(queue), id)
		pipe.ZAdd(ctx, readyKey(queue), redis.Z{Score: float64(readyScore(priority, time.Now())), Member: id})
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ReclaimStalled requeues jobs whose processing visibility deadline has
// passed without an Ack/Fail — the stalled event from spec.md §4.6.
func (c *Client) ReclaimStalled(ctx context.Context, queue Name) ([]string, error) {
	now := float64(time.Now().UnixMilli())
	ids, err := c.rdb.ZRangeByScore(ctx, processingKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: strconv.FormatFloat(now, 'f', 0, 64),
	}).Result()
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	for _, id := range ids {
		priority, _ := c.rdb.HGet(ctx, jobKey(queue, id), "priority").Int()
		pipe := c.rdb.TxPipeline()
		pipe.ZRem(ctx, processingKey(queue), id)
		pipe.ZAdd(ctx, readyKey(queue), redis.Z{Score: float64(readyScore(priority, time.Now())), Member: id})
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Pop removes and returns the highest-priority ready job, moving it into
// the processing set with a visibility deadline. Returns ErrEmpty if no
// job is ready.
func (c *Client) Pop(ctx context.Context, queue Name) (Job, error) {
	results, err := c.rdb.ZPopMin(ctx, readyKey(queue), 1).Result()
	if err != nil {
		return Job{}, fmt.Errorf("queue: pop: %w", err)
	}
	if len(results) == 0 {
		return Job{}, ErrEmpty
	}
	id, _ := results[0].Member.(string)

	deadline := time.Now().Add(visibilityTimeout).UnixMilli()
	if err := c.rdb.ZAdd(ctx, processingKey(queue), redis.Z{Score: float64(deadline), Member: id}).Err(); err != nil {
		return Job{}, fmt.Errorf("queue: mark processing: %w", err)
	}

	job, err := c.loadJob(ctx, queue, id)
	if err != nil {
		return Job{}, err
	}
	metrics.QueueDepth.WithLabelValues(string(queue)).Dec()
	return job, nil
}

func (c *Client) loadJob(ctx context.Context, queue Name, id string) (Job, error) {
	fields, err := c.rdb.HGetAll(ctx, jobKey(queue, id)).Result()
	if err != nil {
		return Job{}, fmt.Errorf("queue: load job: %w", err)
	}
	if len(fields) == 0 {
		return Job{}, ErrEmpty
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	maxAttempts, _ := strconv.Atoi(fields["max_attempts"])
	priority, _ := strconv.Atoi(fields["priority"])
	enqueuedMs, _ := strconv.ParseInt(fields["enqueued_at_unix_ms"], 10, 64)

	return Job{
		ID:          id,
		Queue:       queue,
		JobName:     fields["job_name"],
		Payload:     json.RawMessage(fields["payload"]),
		Priority:    priority,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.UnixMilli(enqueuedMs),
	}, nil
}

// Ack marks a job completed: removes it from processing, deletes its hash
// and dedup key, and records it (capped) in the completed list.
func (c *Client) Ack(ctx context.Context, job Job) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, processingKey(job.Queue), job.ID)
	pipe.Del(ctx, jobKey(job.Queue, job.ID))
	pipe.Del(ctx, dedupKey(job.Queue, job.JobName))
	pipe.LPush(ctx, completedKey(job.Queue), job.ID)
	pipe.LTrim(ctx, completedKey(job.Queue), 0, retentionCap-1)
	_, err := pipe.Exec(ctx)
	metrics.QueueJobsCompleted.WithLabelValues(string(job.Queue), "completed").Inc()
	return err
}

// Fail records a failed attempt. If attempts remain, the job is
// re-scheduled with exponential backoff (spec.md §4.6): the first retry
// waits baseBackoff, each later one twice the previous. Otherwise it is
// moved to the capped failed list for operator inspection and its dedup
// key is released.
func (c *Client) Fail(ctx context.Context, job Job, baseBackoff time.Duration) error {
	job.Attempts++

	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, processingKey(job.Queue), job.ID)

	if job.Attempts < job.MaxAttempts {
		pipe.HSet(ctx, jobKey(job.Queue, job.ID), "attempts", job.Attempts)
		delay := backoffDelay(baseBackoff, job.Attempts-1)
		pipe.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: float64(time.Now().Add(delay).UnixMilli()), Member: job.ID})
		_, err := pipe.Exec(ctx)
		metrics.QueueJobsCompleted.WithLabelValues(string(job.Queue), "retry_scheduled").Inc()
		return err
	}

	pipe.Del(ctx, jobKey(job.Queue, job.ID))
	pipe.Del(ctx, dedupKey(job.Queue, job.JobName))
	pipe.LPush(ctx, failedKey(job.Queue), job.ID)
	pipe.LTrim(ctx, failedKey(job.Queue), 0, retentionCap-1)
	_, err := pipe.Exec(ctx)
	metrics.QueueJobsCompleted.WithLabelValues(string(job.Queue), "failed").Inc()
	return err
}

// Depth returns the number of ready jobs waiting in queue — backs the
// operator HTTP surface's queue-status endpoint.
func (c *Client) Depth(ctx context.Context, queue Name) (int64, error) {
	return c.rdb.ZCard(ctx, readyKey(queue)).Result()
}
