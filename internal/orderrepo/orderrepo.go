// Package orderrepo implements the transactional upsert protocol across
// order / logistic / logistic-history / order-item described in spec.md
// §4.5. Every exported operation either runs inside a caller-supplied
// transaction or opens and commits/rolls back its own.
package orderrepo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/models"
)

const statementTimeout = 5 * time.Second

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository { return &Repository{db: db} }

// WithTx opens a transaction, runs fn, and commits on success or rolls back
// on any error or panic from fn — the scoped transactional work pattern
// from spec.md §9. A failed Commit is returned as a StorageError without a
// separate Rollback call.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &ingesterr.StorageError{Op: "begin_tx", Err: err}
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ingesterr.StorageError{Op: "commit_tx", Err: err}
	}
	return nil
}

// UpsertResult is the return shape of UpsertOrder.
type UpsertResult struct {
	OrderID uuid.UUID
}

// UpsertOrder executes the full upsert protocol for one order detail
// strictly inside tx: resolve-or-mint the order id, upsert the order row,
// upsert the logistic row (creating a synthetic empty one if needed), and
// rewrite the item set wholesale (spec.md §4.5 steps 1-3, 5-6). Logistic
// histories are not written here; ApplyTrackingUpdate writes them.
func (r *Repository) UpsertOrder(ctx context.Context, tx *sql.Tx, detail models.OrderDetail, companyID string, marketplaceShopID int64) (UpsertResult, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	orderID, err := resolveOrderID(ctx, tx, detail.OrderSN)
	if err != nil {
		return UpsertResult{}, &ingesterr.StorageError{Op: "resolve_order_id", Err: err}
	}

	actionStatus := models.DeriveActionStatus(detail.Status)

	if err := upsertOrderRow(ctx, tx, orderID, detail, actionStatus, companyID, marketplaceShopID); err != nil {
		return UpsertResult{}, &ingesterr.StorageError{Op: "upsert_order", Err: err}
	}

	logisticID, err := upsertLogisticRow(ctx, tx, orderID, detail.ShippingCarrier, detail.TrackingNo, detail.EstimatedShipCost, detail.ActualShipCost)
	if err != nil {
		return UpsertResult{}, &ingesterr.StorageError{Op: "upsert_logistic", Err: err}
	}

	if err := rewriteItems(ctx, tx, orderID, logisticID, detail.Items, detail.TrackingNo); err != nil {
		return UpsertResult{}, &ingesterr.StorageError{Op: "rewrite_items", Err: err}
	}

	return UpsertResult{OrderID: orderID}, nil
}

// resolveOrderID looks up the surrogate id by the (platform, order_num)
// functional key, minting a new UUID on miss (spec.md §4.5 step 1).
func resolveOrderID(ctx context.Context, tx *sql.Tx, orderSN string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM "order" WHERE platform = $1 AND order_num = $2
	`, models.Platform, orderSN).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.New(), nil
	}
	if err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

func upsertOrderRow(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, d models.OrderDetail, actionStatus models.ActionStatus, companyID string, marketplaceShopID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO "order" (
			id, platform, order_num, status, action_status, other_status,
			country, currency, order_time, pay_time, ship_by_time, total_amount,
			company_id, marketplace_shop_id, fulfillment_flag,
			cancel_by, cancel_reason, message_to_seller, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15,
			$16, $17, $18, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			action_status = EXCLUDED.action_status,
			other_status = EXCLUDED.other_status,
			ship_by_time = EXCLUDED.ship_by_time,
			total_amount = EXCLUDED.total_amount,
			cancel_by = EXCLUDED.cancel_by,
			cancel_reason = EXCLUDED.cancel_reason,
			fulfillment_flag = EXCLUDED.fulfillment_flag,
			message_to_seller = EXCLUDED.message_to_seller,
			updated_at = NOW()
	`,
		orderID, models.Platform, d.OrderSN, d.Status, string(actionStatus), models.OtherStatusNone,
		d.Country, d.Currency,
		models.EpochSecondsToTime(d.OrderTime), models.EpochSecondsToTime(d.PayTime), models.EpochSecondsToTime(d.ShipByTime),
		d.TotalAmount,
		companyID, marketplaceShopID, string(d.FulfillmentFlag),
		d.CancelBy, d.CancelReason, d.MessageToSeller,
	)
	return err
}

// upsertLogisticRow keeps at most one logistic row per order by looking the
// row up by toms_order_id before inserting one. A non-empty existing carrier name is preserved
// when the new value is empty (spec.md §4.4 step E / §4.5 step 3).
func upsertLogisticRow(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, carrierName, trackingNo string, estimated, actual decimal.Decimal) (uuid.UUID, error) {
	var existingID uuid.UUID
	var existingName string
	err := tx.QueryRowContext(ctx, `
		SELECT id, COALESCE(carrier_name, '') FROM logistic WHERE toms_order_id = $1
	`, orderID).Scan(&existingID, &existingName)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		newID := uuid.New()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO logistic (id, toms_order_id, carrier_name, tracking_no, estimated_shipping_cost, actual_shipping_cost, created_at, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NOW(), NOW())
		`, newID, orderID, carrierName, trackingNo, estimated, actual)
		return newID, err
	case err != nil:
		return uuid.UUID{}, err
	default:
		nameToWrite := carrierName
		if nameToWrite == "" {
			nameToWrite = existingName
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE logistic
			SET carrier_name = NULLIF($1, ''), tracking_no = COALESCE(NULLIF($2, ''), tracking_no),
			    estimated_shipping_cost = $3, actual_shipping_cost = $4, updated_at = NOW()
			WHERE id = $5
		`, nameToWrite, trackingNo, estimated, actual, existingID)
		return existingID, err
	}
}

// rewriteItems deletes and re-inserts the full item set for an order inside
// the same transaction, so no partial rewrite is ever visible
// (spec.md §4.5 step 5, invariant 4).
func rewriteItems(ctx context.Context, tx *sql.Tx, orderID, logisticID uuid.UUID, items []models.OrderDetailItem, trackingNo string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_item WHERE toms_order_id = $1`, orderID); err != nil {
		return err
	}

	for _, item := range items {
		sku := item.SKU
		if sku == "" {
			sku = "shopee-" + strconv.FormatInt(item.MarketplaceItemID, 10)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_item (
				id, toms_order_id, toms_logistic_id, marketplace_item_id, sku, promo_sku,
				display_name, option_variation, unit_price, original_price, quantity, weight,
				"index", tracking_no, image_url, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12,
				$13, $14, $15, NOW(), NOW()
			)
		`,
			uuid.New(), orderID, logisticID, item.MarketplaceItemID, sku, item.PromoSKU,
			item.DisplayName, item.OptionVariation, item.UnitPrice, item.OriginalPrice, item.Quantity, item.Weight,
			item.Index, trackingNo, item.ImageURL,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
