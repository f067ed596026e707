package queue

import "errors"

// ErrEmpty is returned by Pop when no job is currently ready.
var ErrEmpty = errors.New("queue: no ready job")

// ErrDuplicate is returned by Enqueue when dedup is enabled and a job with
// the same name is already pending.
var ErrDuplicate = errors.New("queue: duplicate job")
