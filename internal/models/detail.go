package models

import "github.com/shopspring/decimal"

// OrderDetailItem is one projected line item from getOrderDetail's item_list,
// ready to hand to the Order Repository (spec.md §4.4 step D.3).
type OrderDetailItem struct {
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
	ImageURL          string
}

// OrderDetail is the normalized shape the orchestrator builds from a single
// getOrderDetail record before handing it to the Order Repository's
// UpsertOrder (spec.md §4.5).
type OrderDetail struct {
	OrderSN           string
	Status            string
	Country           string
	Currency          string
	OrderTime         int64 // epoch seconds
	PayTime           int64
	ShipByTime        int64
	TotalAmount       decimal.Decimal
	FulfillmentFlag   FulfillmentFlag
	CancelBy          string
	CancelReason      string
	MessageToSeller   string
	ShippingCarrier   string // derived per spec.md §4.4 step D.2 priority
	EstimatedShipCost decimal.Decimal
	ActualShipCost    decimal.Decimal
	TrackingNo        string // usually absent at detail time; filled in by Step E
	Items             []OrderDetailItem
}

// TrackingEvent is one entry of a getTrackingInfo response, used to build
// LogisticHistory rows.
type TrackingEvent struct {
	EventTime int64 // epoch seconds
	Location  string
	Status    string
}

// TrackingResult is the reconciled tracking/carrier pair plus history
// produced from getTrackingInfo / getDetailedTrackingInfo (spec.md §4.4
// step E).
type TrackingResult struct {
	TrackingNumber string
	CarrierName    string
	History        []TrackingEvent
}
