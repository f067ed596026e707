package shopeeclient

// Wire-shape types mirror the marketplace JSON exactly (snake_case via json
// tags); the orchestrator maps these into internal/models shapes. Keeping
// them separate means a marketplace field rename never leaks into the
// persisted schema.

type AccessTokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}

type OrderListEntry struct {
	OrderSN string `json:"order_sn"`
}

type OrderListPage struct {
	OrderList  []OrderListEntry `json:"order_list"`
	More       bool             `json:"more"`
	NextCursor string           `json:"next_cursor"`
}

type PackageEntry struct {
	PackageNumber   string `json:"package_number"`
	ShippingCarrier string `json:"shipping_carrier"`
}

type ItemEntry struct {
	ItemID      int64   `json:"item_id"`
	ModelSKU    string  `json:"model_sku"`
	ItemSKU     string  `json:"item_sku"`
	ModelName   string  `json:"model_name"`
	ItemName    string  `json:"item_name"`
	ModelQty    int     `json:"model_quantity_purchased"`
	ModelPrice  float64 `json:"model_discounted_price"`
	OrigPrice   float64 `json:"model_original_price"`
	Weight      float64 `json:"weight"`
	ImageInfo   struct {
		ImageURL string `json:"image_url"`
	} `json:"image_info"`
}

type OrderDetailEntry struct {
	OrderSN                string       `json:"order_sn"`
	OrderStatus            string       `json:"order_status"`
	Region                 string       `json:"region"`
	Currency               string       `json:"currency"`
	CreateTime             int64        `json:"create_time"`
	PayTime                int64        `json:"pay_time"`
	ShipByDate             int64        `json:"ship_by_date"`
	TotalAmount            float64      `json:"total_amount"`
	FulfillmentFlag        string       `json:"fulfillment_flag"`
	CancelBy               string       `json:"cancel_by"`
	CancelReason           string       `json:"cancel_reason"`
	MessageToSeller        string       `json:"message_to_seller"`
	ShippingCarrier        string       `json:"shipping_carrier"`
	CheckoutShippingCarrier string      `json:"checkout_shipping_carrier"`
	PackageList            []PackageEntry `json:"package_list"`
	ItemList               []ItemEntry  `json:"item_list"`
	ActualShippingFee      float64      `json:"actual_shipping_fee"`
	EstimatedShippingFee   float64      `json:"estimated_shipping_fee"`
}

type OrderDetailPage struct {
	OrderList []OrderDetailEntry `json:"order_list"`
}

// ResolveShippingCarrier applies the priority from spec.md §4.4 step D.2:
// package_list[0].shipping_carrier ∥ shipping_carrier ∥ checkout_shipping_carrier.
// package_number in PackageList is a package identifier, never a tracking number.
func (e OrderDetailEntry) ResolveShippingCarrier() string {
	if len(e.PackageList) > 0 && e.PackageList[0].ShippingCarrier != "" {
		return e.PackageList[0].ShippingCarrier
	}
	if e.ShippingCarrier != "" {
		return e.ShippingCarrier
	}
	return e.CheckoutShippingCarrier
}

type ShipmentEntry struct {
	OrderSN string `json:"order_sn"`
}

type ShipmentListPage struct {
	OrderList  []ShipmentEntry `json:"order_list"`
	More       bool            `json:"more"`
	NextCursor string          `json:"next_cursor"`
}

// TrackingNumberResult is the response shape of
// GET /api/v2/logistics/get_tracking_number.
type TrackingNumberResult struct {
	TrackingNumber         string `json:"tracking_number"`
	FirstMileTrackingNumber string `json:"first_mile_tracking_number"`
	LastMileTrackingNumber  string `json:"last_mile_tracking_number"`
	PLPNumber               string `json:"plp_number"`
}

// ResolveTrackingNumber applies the priority from spec.md §4.4 step E:
// tracking_number ∥ first_mile_tracking_number ∥ last_mile_tracking_number ∥ plp_number.
func (r TrackingNumberResult) ResolveTrackingNumber() string {
	switch {
	case r.TrackingNumber != "":
		return r.TrackingNumber
	case r.FirstMileTrackingNumber != "":
		return r.FirstMileTrackingNumber
	case r.LastMileTrackingNumber != "":
		return r.LastMileTrackingNumber
	default:
		return r.PLPNumber
	}
}

type TrackingLogisticsStatusEntry struct {
	UpdateTime int64  `json:"update_time"`
	Description string `json:"description"`
	LogisticsStatus string `json:"logistics_status"`
}

// DetailedTrackingInfoResult is the response shape of
// GET /api/v2/logistics/get_tracking_info.
type DetailedTrackingInfoResult struct {
	ShippingProviderName string                         `json:"shipping_provider_name"`
	LogisticName         string                         `json:"logistic_name"`
	CarrierName          string                         `json:"carrier_name"`
	ShippingProvider     string                         `json:"shipping_provider"`
	Carrier              string                         `json:"carrier"`
	LogisticsChannel     string                         `json:"logistics_channel"`
	TrackingInfo         []TrackingLogisticsStatusEntry `json:"tracking_info"`
}

// ResolveCarrierName applies the priority from spec.md §4.4 step E:
// shipping_provider_name ∥ logistic_name ∥ carrier_name ∥ shipping_provider ∥ carrier ∥ logistics_channel.
func (r DetailedTrackingInfoResult) ResolveCarrierName() string {
	switch {
	case r.ShippingProviderName != "":
		return r.ShippingProviderName
	case r.LogisticName != "":
		return r.LogisticName
	case r.CarrierName != "":
		return r.CarrierName
	case r.ShippingProvider != "":
		return r.ShippingProvider
	case r.Carrier != "":
		return r.Carrier
	default:
		return r.LogisticsChannel
	}
}
