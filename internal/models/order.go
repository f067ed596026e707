package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Platform is a constant tag distinguishing this marketplace from future ones.
const Platform = "shopee"

// FulfillmentFlag is whether a shop fulfills directly or via the marketplace.
type FulfillmentFlag string

const (
	FulfillmentSeller FulfillmentFlag = "SELLER"
	FulfillmentShopee FulfillmentFlag = "SHOPEE"
)

// NormalizeFulfillmentFlag maps the wire value to the internal enum.
// Unrecognized values default to FulfillmentSeller.
func NormalizeFulfillmentFlag(wire string) FulfillmentFlag {
	switch wire {
	case "fulfilled_by_shopee":
		return FulfillmentShopee
	case "fulfilled_by_cb_seller":
		return FulfillmentSeller
	default:
		return FulfillmentSeller
	}
}

// ActionStatus is the internal workflow state derived from OrderStatus.
type ActionStatus string

const (
	ActionReadyToPrint  ActionStatus = "READY_TO_PRINT"
	ActionExported      ActionStatus = "EXPORTED"
	ActionRequestCancel ActionStatus = "REQUEST_CANCEL"
	ActionOrder         ActionStatus = "ORDER"
)

// OtherStatusNone is the default other_status value.
const OtherStatusNone = "NONE"

// Marketplace order statuses relevant to action-status mapping and to
// tracking reconciliation eligibility (spec.md §4.4 step E).
const (
	StatusReadyToShip = "READY_TO_SHIP"
	StatusShipped     = "SHIPPED"
	StatusCancelled   = "CANCELLED"
	StatusProcessed   = "PROCESSED"
	StatusCompleted   = "COMPLETED"
)

// DeriveActionStatus implements the order_status -> action_status mapping
// table from spec.md §4.4. Unknown statuses fall back to ActionOrder.
func DeriveActionStatus(orderStatus string) ActionStatus {
	switch orderStatus {
	case StatusReadyToShip:
		return ActionReadyToPrint
	case StatusShipped:
		return ActionExported
	case StatusCancelled:
		return ActionRequestCancel
	default:
		return ActionOrder
	}
}

// EligibleForTrackingReconciliation reports whether an order's current
// status means the marketplace may now carry a tracking number worth
// polling for (spec.md §4.4 step E).
func EligibleForTrackingReconciliation(status string) bool {
	switch status {
	case StatusProcessed, StatusShipped, StatusCompleted:
		return true
	default:
		return false
	}
}

// Order is the normalized, persisted representation of a marketplace order.
// (Platform, OrderNum) is the functional key; ID is the surrogate primary key.
type Order struct {
	ID                uuid.UUID
	Platform          string
	OrderNum          string
	Status            string
	ActionStatus      ActionStatus
	OtherStatus       string
	Country           string
	Currency          string
	OrderTime         time.Time
	PayTime           time.Time
	ShipByTime        time.Time
	TotalAmount       decimal.Decimal
	CompanyID         string
	MarketplaceShopID int64
	FulfillmentFlag   FulfillmentFlag
	CancelBy          string
	CancelReason      string
	MessageToSeller   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Logistic is the 1:1 shipping record for an order. A synthetic empty row
// is created alongside every order so OrderItem foreign keys resolve even
// before shipping data exists.
type Logistic struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	CarrierName           string
	TrackingNo            string
	EstimatedShippingCost decimal.Decimal
	ActualShippingCost    decimal.Decimal
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// LogisticHistory is one tracking event, N:1 with Logistic. Identity is
// (LogisticID, TrackingNumber, EventTime, Status).
type LogisticHistory struct {
	ID             uuid.UUID
	LogisticID     uuid.UUID
	TrackingNumber string
	EventTime      time.Time
	Location       string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem is one line of an order. The full set of items for an order is
// replaced wholesale on every upsert; Index preserves marketplace ordering.
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	LogisticID        uuid.UUID
	MarketplaceItemID int64
	SKU               string
	PromoSKU          string
	DisplayName       string
	OptionVariation   string
	UnitPrice         decimal.Decimal
	OriginalPrice     decimal.Decimal
	Quantity          int
	Weight            float64
	Index             int
	TrackingNo        string
	ImageURL          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EpochSecondsToTime converts a marketplace UNIX-seconds timestamp to wall
// clock. Zero maps to the zero Time so callers can distinguish "absent".
func EpochSecondsToTime(epochSeconds int64) time.Time {
	if epochSeconds == 0 {
		return time.Time{}
	}
	return time.Unix(epochSeconds, 0).UTC()
}

// TimeToEpochSeconds is the inverse of EpochSecondsToTime.
func TimeToEpochSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
