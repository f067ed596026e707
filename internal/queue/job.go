package queue

import (
	"encoding/json"
	"time"
)

// Name identifies one of the four logical queues from spec.md §4.6.
type Name string

const (
	OrderCollection Name = "orderCollection"
	OrderDetail     Name = "orderDetail"
	ShipmentInfo    Name = "shipmentInfo"
	Inventory       Name = "inventory"
)

// Job is one unit of work durably stored in Redis.
type Job struct {
	ID          string
	Queue       Name
	JobName     string // dedup key; consumers do not route on it (one handler per queue)
	Payload     json.RawMessage
	Priority    int
	Attempts    int
	MaxAttempts int
	EnqueuedAt  time.Time
}

// EnqueueOptions configures one Enqueue call (spec.md §4.6).
type EnqueueOptions struct {
	// Priority: lower number sorts first. Zero is the default priority.
	Priority int
	// MaxAttempts caps retry attempts; defaults to 3.
	MaxAttempts int
	// BaseBackoff defaults to 1000ms and is stored on the job hash. Retry
	// delays are not computed from it: Consumer uses its own base backoff
	// (first retry waits that base, doubled per subsequent attempt and
	// clamped to [1000ms, 5000ms]).
	BaseBackoff time.Duration
	// Dedup, when true, skips the enqueue if a job with the same JobName
	// is already pending in this queue.
	Dedup bool
}

func (o EnqueueOptions) withDefaults() EnqueueOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = time.Second
	}
	return o
}

// backoffDelay implements the exponential backoff policy from spec.md §4.6:
// base delay doubled per attempt, clamped to [1s, 5s].
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d < time.Second {
		d = time.Second
	}
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
