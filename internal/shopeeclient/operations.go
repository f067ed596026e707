package shopeeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shopee-ingest/internal/tokenmanager"
)

// orderDetailOptionalFields is the fixed list of optional response fields
// requested on every getOrderDetail call (spec.md §4.2).
var orderDetailOptionalFields = strings.Join([]string{
	"item_list",
	"package_list",
	"shipping_carrier",
	"fulfillment_flag",
	"recipient_address",
	"buyer_username",
	"total_amount",
	"pay_time",
	"actual_shipping_fee",
	"cancel_by",
	"cancel_reason",
}, ",")

// GetAccessToken exchanges an auth code for the first access/refresh token
// pair (POST /api/v2/auth/token/get).
func (c *Client) GetAccessToken(ctx context.Context, code string, shopID int64) (AccessTokenResult, error) {
	var out AccessTokenResult
	body := map[string]any{
		"code":       code,
		"partner_id": c.signer.PartnerID(),
		"shop_id":    shopID,
	}
	raw, err := c.call(ctx, http.MethodPost, "/auth/token/get", nil, body, "", 0)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// RefreshAccessToken exchanges a refresh token for a new access/refresh
// token pair (POST /api/v2/auth/access_token/get).
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string, shopID int64) (AccessTokenResult, error) {
	var out AccessTokenResult
	body := map[string]any{
		"refresh_token": refreshToken,
		"partner_id":    c.signer.PartnerID(),
		"shop_id":       shopID,
	}
	raw, err := c.call(ctx, http.MethodPost, "/auth/access_token/get", nil, body, "", 0)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// Refresh adapts RefreshAccessToken's AccessTokenResult to the narrower
// shape tokenmanager.Manager depends on, so Client satisfies
// tokenmanager.Refresher without that package reaching back into wire types.
func (c *Client) Refresh(ctx context.Context, refreshToken string, shopID int64) (tokenmanager.RefreshResult, error) {
	out, err := c.RefreshAccessToken(ctx, refreshToken, shopID)
	if err != nil {
		return tokenmanager.RefreshResult{}, err
	}
	return tokenmanager.RefreshResult{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpireIn:     out.ExpireIn,
	}, nil
}

// OrderListParams configures a single getOrderList call.
type OrderListParams struct {
	TimeRangeField string // "create_time" or "update_time"
	TimeFrom       int64
	TimeTo         int64
	PageSize       int
	Cursor         string
	OrderStatus    string // optional
}

// GetOrderList lists order numbers updated/created within a time window
// (GET /api/v2/order/get_order_list).
func (c *Client) GetOrderList(ctx context.Context, accessToken string, shopID int64, p OrderListParams) (OrderListPage, error) {
	var out OrderListPage
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("time_range_field", p.TimeRangeField)
	q.Set("time_from", strconv.FormatInt(p.TimeFrom, 10))
	q.Set("time_to", strconv.FormatInt(p.TimeTo, 10))
	q.Set("page_size", strconv.Itoa(pageSize))
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.OrderStatus != "" {
		q.Set("order_status", p.OrderStatus)
	}

	raw, err := c.call(ctx, http.MethodGet, "/order/get_order_list", q, nil, accessToken, shopID)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// GetOrderDetail fetches full detail for up to 50 order numbers at a time
// (GET /api/v2/order/get_order_detail).
func (c *Client) GetOrderDetail(ctx context.Context, accessToken string, shopID int64, orderSNs []string) (OrderDetailPage, error) {
	var out OrderDetailPage
	q := url.Values{}
	q.Set("order_sn_list", strings.Join(orderSNs, ","))
	q.Set("response_optional_fields", orderDetailOptionalFields)

	raw, err := c.call(ctx, http.MethodGet, "/order/get_order_detail", q, nil, accessToken, shopID)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// GetShipmentList lists orders ready for shipment processing
// (GET /api/v2/order/get_shipment_list).
func (c *Client) GetShipmentList(ctx context.Context, accessToken string, shopID int64, pageSize int, cursor string) (ShipmentListPage, error) {
	var out ShipmentListPage
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	raw, err := c.call(ctx, http.MethodGet, "/order/get_shipment_list", q, nil, accessToken, shopID)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// GetTrackingInfo resolves the tracking number for an order
// (GET /api/v2/logistics/get_tracking_number).
func (c *Client) GetTrackingInfo(ctx context.Context, accessToken string, shopID int64, orderSN, packageNumber string) (TrackingNumberResult, error) {
	var out TrackingNumberResult
	q := url.Values{}
	q.Set("order_sn", orderSN)
	if packageNumber != "" {
		q.Set("package_number", packageNumber)
	}
	q.Set("response_optional_fields", "plp_number,first_mile_tracking_number,last_mile_tracking_number")

	raw, err := c.call(ctx, http.MethodGet, "/logistics/get_tracking_number", q, nil, accessToken, shopID)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// GetDetailedTrackingInfo resolves the carrier name and tracking history for
// a tracking number (GET /api/v2/logistics/get_tracking_info).
func (c *Client) GetDetailedTrackingInfo(ctx context.Context, accessToken string, shopID int64, trackingNumber string) (DetailedTrackingInfoResult, error) {
	var out DetailedTrackingInfoResult
	q := url.Values{}
	q.Set("tracking_number", trackingNumber)

	raw, err := c.call(ctx, http.MethodGet, "/logistics/get_tracking_info", q, nil, accessToken, shopID)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}
