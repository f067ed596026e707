package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveActionStatus(t *testing.T) {
	cases := map[string]ActionStatus{
		StatusReadyToShip: ActionReadyToPrint,
		StatusShipped:     ActionExported,
		StatusCancelled:   ActionRequestCancel,
		StatusProcessed:   ActionOrder,
		StatusCompleted:   ActionOrder,
		"UNKNOWN_STATUS":  ActionOrder,
	}
	for status, want := range cases {
		assert.Equal(t, want, DeriveActionStatus(status), "status=%s", status)
	}
}

func TestEligibleForTrackingReconciliation(t *testing.T) {
	assert.True(t, EligibleForTrackingReconciliation(StatusProcessed))
	assert.True(t, EligibleForTrackingReconciliation(StatusShipped))
	assert.True(t, EligibleForTrackingReconciliation(StatusCompleted))
	assert.False(t, EligibleForTrackingReconciliation(StatusReadyToShip))
	assert.False(t, EligibleForTrackingReconciliation(StatusCancelled))
}

func TestNormalizeFulfillmentFlag(t *testing.T) {
	assert.Equal(t, FulfillmentShopee, NormalizeFulfillmentFlag("fulfilled_by_shopee"))
	assert.Equal(t, FulfillmentSeller, NormalizeFulfillmentFlag("fulfilled_by_cb_seller"))
	assert.Equal(t, FulfillmentSeller, NormalizeFulfillmentFlag("unknown"))
	assert.Equal(t, FulfillmentSeller, NormalizeFulfillmentFlag(""))
}

func TestEpochSecondsToTimeRoundTrip(t *testing.T) {
	assert.True(t, EpochSecondsToTime(0).IsZero())
	assert.Equal(t, int64(0), TimeToEpochSeconds(time.Time{}))

	const epoch = int64(1700000000)
	got := EpochSecondsToTime(epoch)
	assert.False(t, got.IsZero())
	assert.Equal(t, epoch, TimeToEpochSeconds(got))
}
