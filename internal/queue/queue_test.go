package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadyScoreOrdersByPriorityThenTime(t *testing.T) {
	t0 := time.UnixMilli(1_700_000_000_000)
	t1 := t0.Add(time.Second)

	higherPriorityLater := readyScore(0, t1)  // lower Priority number == higher priority
	lowerPriorityEarlier := readyScore(1, t0)

	assert.Less(t, higherPriorityLater, lowerPriorityEarlier, "priority dominates enqueue time in the sort order")

	samePriorityEarlier := readyScore(0, t0)
	samePriorityLater := readyScore(0, t1)
	assert.Less(t, samePriorityEarlier, samePriorityLater, "within a priority tier, FIFO by enqueue time")
}

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "queue:orderCollection:ready", readyKey(OrderCollection))
	assert.Equal(t, "queue:orderCollection:delayed", delayedKey(OrderCollection))
	assert.Equal(t, "queue:orderCollection:processing", processingKey(OrderCollection))
	assert.Equal(t, "queue:orderCollection:job:abc", jobKey(OrderCollection, "abc"))
	assert.Equal(t, "queue:orderCollection:dedup:collect-shop-orders", dedupKey(OrderCollection, "collect-shop-orders"))
	assert.Equal(t, "queue:orderCollection:completed", completedKey(OrderCollection))
	assert.Equal(t, "queue:orderCollection:failed", failedKey(OrderCollection))

	// Every queue name gets its own namespace.
	assert.NotEqual(t, readyKey(OrderCollection), readyKey(OrderDetail))
}
