package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaults(t *testing.T) {
	o := EnqueueOptions{}.withDefaults()
	assert.Equal(t, 3, o.MaxAttempts)
	assert.Equal(t, time.Second, o.BaseBackoff)

	custom := EnqueueOptions{MaxAttempts: 5, BaseBackoff: 2 * time.Second}.withDefaults()
	assert.Equal(t, 5, custom.MaxAttempts)
	assert.Equal(t, 2*time.Second, custom.BaseBackoff)
}

func TestBackoffDelayDoublesAndClamps(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, backoffDelay(base, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(base, 3), "clamped to the 5s ceiling")
	assert.Equal(t, 5*time.Second, backoffDelay(base, 10), "stays clamped for larger attempt counts")
}

func TestBackoffDelayClampsSmallBase(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(100*time.Millisecond, 0), "clamped to the 1s floor")
}
