// Package orchestrator drives one shop's ingestion cycle end to end: list
// orders, fan out detail and shipment processing, reconcile tracking
// numbers, and fix up rows left incomplete by a partial previous run
// (spec.md §4.4).
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"shopee-ingest/internal/cache"
	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/metrics"
	"shopee-ingest/internal/models"
	"shopee-ingest/internal/orderrepo"
	"shopee-ingest/internal/search"
	"shopee-ingest/internal/shopeeclient"
	"shopee-ingest/internal/shoprepo"
	"shopee-ingest/internal/tokenmanager"
)

const (
	orderListPageSize  = 100
	detailBatchSize    = 50
	trackingSubBatch   = 10
	interBatchDelay    = 500 * time.Millisecond
	trackingCallBudget = 15 * time.Second
	fixupRowLimit      = 20
	listRetryInitial   = 1 * time.Second
)

// Stats summarizes one orchestrator invocation — the shape spec.md §4.4
// returns to the caller (the worker runtime's collect-shop-orders handler).
type Stats struct {
	Total     int
	Success   int
	Failed    int
	OrderSNs  []string
}

// Orchestrator wires together every dependency one ingestion cycle touches.
type Orchestrator struct {
	shops    *shoprepo.Repository
	orders   *orderrepo.Repository
	client   *shopeeclient.Client
	tokens   *tokenmanager.Manager
	search   *search.Client // optional, nil disables indexing
	cache    *cache.Client  // optional, nil disables cache invalidation
	maxRetry int
	log      *slog.Logger
}

// New constructs an Orchestrator. searchClient and cacheClient may be nil.
func New(shops *shoprepo.Repository, orders *orderrepo.Repository, client *shopeeclient.Client, tokens *tokenmanager.Manager, searchClient *search.Client, cacheClient *cache.Client, maxRetry int, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &Orchestrator{shops: shops, orders: orders, client: client, tokens: tokens, search: searchClient, cache: cacheClient, maxRetry: maxRetry, log: log}
}

// Run executes the full ingestion cycle for one shop key (spec.md §4.4,
// Steps A-F).
func (o *Orchestrator) Run(ctx context.Context, shopKey string) (Stats, error) {
	stats := Stats{}

	// Step A — validate shop.
	shop, err := o.shops.GetByKey(ctx, shopKey)
	if err != nil {
		metrics.OrchestratorRuns.WithLabelValues("shop_not_found").Inc()
		return stats, err
	}
	if shop.Deleted || !shop.Active {
		metrics.OrchestratorRuns.WithLabelValues("shop_inactive").Inc()
		return stats, &ingesterr.ConfigError{Field: "shop.active"}
	}

	shop, err = o.tokens.Ensure(ctx, shop)
	if err != nil {
		metrics.OrchestratorRuns.WithLabelValues("token_error").Inc()
		return stats, err
	}
	if shop.AccessToken == "" {
		metrics.OrchestratorRuns.WithLabelValues("no_access_token").Inc()
		return stats, &ingesterr.ConfigError{Field: "shop.access_token"}
	}

	// Step B — compute time window.
	now := time.Now().UTC()
	windowMinutes := shop.OrderPollWindowMinutes
	from := now.Add(-1 * time.Hour)
	to := now.Add(24 * time.Hour)
	if windowMinutes > 0 {
		from = now.Add(-time.Duration(windowMinutes) * time.Minute)
	}

	// Step C — list orders, with retry.
	orderSNs, err := o.listOrders(ctx, shop, from, to)
	if err != nil {
		metrics.OrchestratorRuns.WithLabelValues("list_orders_failed").Inc()
		return stats, err
	}
	stats.Total = len(orderSNs)
	if len(orderSNs) == 0 {
		metrics.OrchestratorRuns.WithLabelValues("success").Inc()
		return stats, nil
	}

	// Step D — fan out detail/shipment processing.
	o.processOrderDetails(ctx, shop, orderSNs, &stats)

	// Step E — reconcile tracking numbers.
	o.reconcileTracking(ctx, shop)

	// Step F — fix incomplete rows left by a previous partial run.
	o.fixIncompleteRows(ctx, shop)

	metrics.OrchestratorRuns.WithLabelValues("success").Inc()
	metrics.OrchestratorOrdersProcessed.WithLabelValues("success").Add(float64(stats.Success))
	metrics.OrchestratorOrdersProcessed.WithLabelValues("failed").Add(float64(stats.Failed))
	return stats, nil
}

// listOrders implements Step C: page through getOrderList with exponential
// backoff on transient failure, scoped to this step's own retry budget.
func (o *Orchestrator) listOrders(ctx context.Context, shop models.Shop, from, to time.Time) ([]string, error) {
	var orderSNs []string

	err := shopeeclient.PaginateAll(ctx, func(ctx context.Context, cursor string) (shopeeclient.OrderListPage, shopeeclient.Page, error) {
		page, err := o.listOrdersPageWithRetry(ctx, shop, from, to, cursor)
		if err != nil {
			return shopeeclient.OrderListPage{}, shopeeclient.Page{}, err
		}
		return page, shopeeclient.Page{More: page.More, NextCursor: page.NextCursor}, nil
	}, func(page shopeeclient.OrderListPage) error {
		for _, entry := range page.OrderList {
			orderSNs = append(orderSNs, entry.OrderSN)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orderSNs, nil
}

func (o *Orchestrator) listOrdersPageWithRetry(ctx context.Context, shop models.Shop, from, to time.Time, cursor string) (shopeeclient.OrderListPage, error) {
	var lastErr error
	delay := listRetryInitial

	for attempt := 0; attempt <= o.maxRetry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return shopeeclient.OrderListPage{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		page, err := o.client.GetOrderList(ctx, shop.AccessToken, shop.MarketplaceShopID, shopeeclient.OrderListParams{
			TimeRangeField: "update_time",
			TimeFrom:       from.Unix(),
			TimeTo:         to.Unix(),
			PageSize:       orderListPageSize,
			Cursor:         cursor,
		})
		if err == nil {
			return page, nil
		}
		lastErr = err

		if !isRetriable(err) {
			return shopeeclient.OrderListPage{}, err
		}
	}
	return shopeeclient.OrderListPage{}, lastErr
}

// isRetriable reports whether a failed getOrderList call is worth retrying
// within Step C's own backoff budget: transport errors always are; API
// errors are unless the marketplace flagged them Fatal (spec.md §7 —
// authentication-class errors, not transient ones).
func isRetriable(err error) bool {
	var transportErr *ingesterr.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var apiErr *ingesterr.ApiError
	if errors.As(err, &apiErr) {
		return !apiErr.Fatal
	}
	return false
}

// processOrderDetails implements Step D: split into fixed-size batches,
// fetch detail for each, project into models.OrderDetail, and upsert one
// order at a time so a single bad record never aborts its batch.
func (o *Orchestrator) processOrderDetails(ctx context.Context, shop models.Shop, orderSNs []string, stats *Stats) {
	for start := 0; start < len(orderSNs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(orderSNs) {
			end = len(orderSNs)
		}
		batch := orderSNs[start:end]

		page, err := o.client.GetOrderDetail(ctx, shop.AccessToken, shop.MarketplaceShopID, batch)
		if err != nil {
			o.log.Warn("orchestrator: get order detail batch failed", "shop_key", shop.Key, "error", err)
			stats.Failed += len(batch)
			o.sleepBetweenBatches(ctx)
			continue
		}

		for _, entry := range page.OrderList {
			detail := projectOrderDetail(entry)
			if err := o.upsertOneOrder(ctx, shop, detail); err != nil {
				o.log.Warn("orchestrator: upsert order failed", "shop_key", shop.Key, "order_sn", detail.OrderSN, "error", err)
				stats.Failed++
				continue
			}
			stats.Success++
			stats.OrderSNs = append(stats.OrderSNs, detail.OrderSN)
		}

		o.sleepBetweenBatches(ctx)
	}
}

func (o *Orchestrator) sleepBetweenBatches(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(interBatchDelay):
	}
}

// upsertOneOrder runs one order's upsert inside its own transaction (Step
// D.5-D.6) and best-effort refreshes the search index and read cache
// afterward — neither failure rolls back the committed write.
func (o *Orchestrator) upsertOneOrder(ctx context.Context, shop models.Shop, detail models.OrderDetail) error {
	var result orderrepo.UpsertResult
	err := o.orders.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := o.orders.UpsertOrder(ctx, tx, detail, shop.CompanyID, shop.MarketplaceShopID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}

	if o.cache != nil {
		if err := o.cache.Invalidate(ctx, result.OrderID.String()); err != nil {
			o.log.Warn("orchestrator: cache invalidate failed", "order_id", result.OrderID, "error", err)
		}
	}
	if o.search != nil {
		order, err := o.orders.GetOrder(ctx, result.OrderID.String())
		if err != nil {
			o.log.Warn("orchestrator: reload order for indexing failed", "order_id", result.OrderID, "error", err)
			return nil
		}
		items, err := o.orders.ListOrderItems(ctx, result.OrderID)
		if err != nil {
			o.log.Warn("orchestrator: reload items for indexing failed", "order_id", result.OrderID, "error", err)
		}
		if err := o.search.IndexOrder(ctx, order, models.Logistic{TrackingNo: detail.TrackingNo}, items); err != nil {
			o.log.Warn("orchestrator: search index failed", "order_id", result.OrderID, "error", err)
		}
	}
	return nil
}

// projectOrderDetail implements Step D.2-D.4: shipping-carrier priority,
// item projection with synthetic SKU fallback, and fulfillment_flag
// normalization.
func projectOrderDetail(entry shopeeclient.OrderDetailEntry) models.OrderDetail {
	items := make([]models.OrderDetailItem, 0, len(entry.ItemList))
	for i, item := range entry.ItemList {
		items = append(items, models.OrderDetailItem{
			MarketplaceItemID: item.ItemID,
			SKU:               item.ModelSKU,
			DisplayName:       item.ItemName,
			OptionVariation:   item.ModelName,
			UnitPrice:         decimal.NewFromFloat(item.ModelPrice),
			OriginalPrice:     decimal.NewFromFloat(item.OrigPrice),
			Quantity:          item.ModelQty,
			Weight:            item.Weight,
			Index:             i,
			ImageURL:          item.ImageInfo.ImageURL,
		})
	}

	return models.OrderDetail{
		OrderSN:           entry.OrderSN,
		Status:            entry.OrderStatus,
		Country:           entry.Region,
		Currency:          entry.Currency,
		OrderTime:         entry.CreateTime,
		PayTime:           entry.PayTime,
		ShipByTime:        entry.ShipByDate,
		TotalAmount:       decimal.NewFromFloat(entry.TotalAmount),
		FulfillmentFlag:   models.NormalizeFulfillmentFlag(entry.FulfillmentFlag),
		CancelBy:          entry.CancelBy,
		CancelReason:      entry.CancelReason,
		MessageToSeller:   entry.MessageToSeller,
		ShippingCarrier:   entry.ResolveShippingCarrier(),
		EstimatedShipCost: decimal.NewFromFloat(entry.EstimatedShippingFee),
		ActualShipCost:    decimal.NewFromFloat(entry.ActualShippingFee),
		Items:             items,
	}
}

// reconcileTracking implements Step E.
func (o *Orchestrator) reconcileTracking(ctx context.Context, shop models.Shop) {
	candidates, err := o.orders.ListTrackingCandidates(ctx, shop.MarketplaceShopID)
	if err != nil {
		o.log.Warn("orchestrator: list tracking candidates failed", "shop_key", shop.Key, "error", err)
		return
	}

	for start := 0; start < len(candidates); start += trackingSubBatch {
		end := start + trackingSubBatch
		if end > len(candidates) {
			end = len(candidates)
		}
		for _, candidate := range candidates[start:end] {
			o.reconcileOne(ctx, shop, candidate)
			o.sleepBetweenBatches(ctx)
		}
	}
}

func (o *Orchestrator) reconcileOne(ctx context.Context, shop models.Shop, candidate orderrepo.TrackingCandidate) {
	reqCtx, cancel := context.WithTimeout(ctx, trackingCallBudget)
	defer cancel()

	result, err := o.client.GetTrackingInfo(reqCtx, shop.AccessToken, shop.MarketplaceShopID, candidate.OrderSN, "")
	if err != nil {
		o.log.Warn("orchestrator: get tracking info failed", "shop_key", shop.Key, "order_sn", candidate.OrderSN, "error", err)
		return
	}

	trackingNo := result.ResolveTrackingNumber()
	if trackingNo == "" || trackingNo == candidate.CurrentTrackingNo {
		return
	}

	carrierName := ""
	var history []models.TrackingEvent
	if detailed, err := o.client.GetDetailedTrackingInfo(reqCtx, shop.AccessToken, shop.MarketplaceShopID, trackingNo); err == nil {
		carrierName = detailed.ResolveCarrierName()
		for _, event := range detailed.TrackingInfo {
			history = append(history, models.TrackingEvent{
				EventTime: event.UpdateTime,
				Location:  event.Description,
				Status:    event.LogisticsStatus,
			})
		}
	}

	if err := o.orders.ApplyTrackingUpdate(ctx, candidate.OrderID, trackingNo, carrierName, history); err != nil {
		o.log.Warn("orchestrator: apply tracking update failed", "shop_key", shop.Key, "order_sn", candidate.OrderSN, "error", err)
	}
}

// fixIncompleteRows implements Step F.
func (o *Orchestrator) fixIncompleteRows(ctx context.Context, shop models.Shop) {
	missingCarrier, err := o.orders.ListTrackingWithoutCarrier(ctx, shop.MarketplaceShopID, fixupRowLimit)
	if err != nil {
		o.log.Warn("orchestrator: list tracking-without-carrier failed", "shop_key", shop.Key, "error", err)
	}
	for _, row := range missingCarrier {
		reqCtx, cancel := context.WithTimeout(ctx, trackingCallBudget)
		page, err := o.client.GetOrderDetail(reqCtx, shop.AccessToken, shop.MarketplaceShopID, []string{row.OrderSN})
		cancel()
		if err != nil || len(page.OrderList) == 0 {
			continue
		}
		carrier := page.OrderList[0].ResolveShippingCarrier()
		if carrier == "" {
			continue
		}
		if err := o.orders.ApplyTrackingUpdate(ctx, row.OrderID, row.TrackingNo, carrier, nil); err != nil {
			o.log.Warn("orchestrator: fixup carrier write failed", "shop_key", shop.Key, "order_sn", row.OrderSN, "error", err)
		}
	}

	missingTracking, err := o.orders.ListCarrierWithoutTracking(ctx, shop.MarketplaceShopID, fixupRowLimit)
	if err != nil {
		o.log.Warn("orchestrator: list carrier-without-tracking failed", "shop_key", shop.Key, "error", err)
	}
	for _, row := range missingTracking {
		reqCtx, cancel := context.WithTimeout(ctx, trackingCallBudget)
		result, err := o.client.GetTrackingInfo(reqCtx, shop.AccessToken, shop.MarketplaceShopID, row.OrderSN, "")
		cancel()
		if err != nil {
			continue
		}
		trackingNo := result.ResolveTrackingNumber()
		if trackingNo == "" {
			continue
		}
		if err := o.orders.ApplyTrackingUpdate(ctx, row.OrderID, trackingNo, row.CarrierName, nil); err != nil {
			o.log.Warn("orchestrator: fixup tracking write failed", "shop_key", shop.Key, "order_sn", row.OrderSN, "error", err)
		}
	}
}

// GetOrder looks up an order by surrogate id or marketplace order number,
// used by the operator HTTP surface. It is cache-aside: a hit in the read
// cache skips Postgres entirely; a miss falls back to the repository and
// backfills the cache keyed by the order's surrogate id.
func (o *Orchestrator) GetOrder(ctx context.Context, idOrNumber string) (models.Order, error) {
	if o.cache != nil {
		if order, _, err := o.cache.GetOrder(ctx, idOrNumber); err == nil {
			return order, nil
		}
	}

	order, logistic, err := o.orders.GetOrderWithLogistic(ctx, idOrNumber)
	if err != nil {
		return models.Order{}, err
	}

	if o.cache != nil {
		if err := o.cache.SetOrder(ctx, order, logistic); err != nil {
			o.log.Warn("orchestrator: cache backfill failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}
