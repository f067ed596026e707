package orderrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/models"
)

// TrackingCandidate is one order eligible for tracking reconciliation
// (spec.md §4.4 step E): its status suggests the marketplace may now carry
// a tracking number.
type TrackingCandidate struct {
	OrderID           uuid.UUID
	OrderSN           string
	CurrentTrackingNo string
	CurrentStatus     string
}

// ListTrackingCandidates returns orders for marketplaceShopID whose status
// makes them eligible for tracking reconciliation (models.
// EligibleForTrackingReconciliation) — the reconciliation sweep's input set.
func (r *Repository) ListTrackingCandidates(ctx context.Context, marketplaceShopID int64) ([]TrackingCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.order_num, COALESCE(l.tracking_no, ''), o.status
		FROM "order" o
		LEFT JOIN logistic l ON l.toms_order_id = o.id
		WHERE o.platform = $1 AND o.marketplace_shop_id = $2
	`, models.Platform, marketplaceShopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingCandidate
	for rows.Next() {
		var c TrackingCandidate
		if err := rows.Scan(&c.OrderID, &c.OrderSN, &c.CurrentTrackingNo, &c.CurrentStatus); err != nil {
			return nil, err
		}
		if !models.EligibleForTrackingReconciliation(c.CurrentStatus) {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApplyTrackingUpdate writes a reconciled tracking number + carrier to the
// logistic row, mirrors the tracking number onto every order item, and
// upserts any tracking history events (spec.md §4.5 step 4). It transitions
// the order to SHIPPED when it is not already SHIPPED/COMPLETED. Carrier
// names are never overwritten with an empty value (spec.md §4.4 step E,
// invariant 7). Runs inside its own transaction — one order at a time, per
// the sub-batch-of-10 save cadence the orchestrator drives.
func (r *Repository) ApplyTrackingUpdate(ctx context.Context, orderID uuid.UUID, trackingNo, carrierName string, history []models.TrackingEvent) error {
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		var logisticID uuid.UUID
		var existingName string
		err := tx.QueryRowContext(ctx, `
			SELECT id, COALESCE(carrier_name, '') FROM logistic WHERE toms_order_id = $1
		`, orderID).Scan(&logisticID, &existingName)
		if errors.Is(err, sql.ErrNoRows) {
			return &ingesterr.StorageError{Op: "apply_tracking_update_missing_logistic", Err: err}
		}
		if err != nil {
			return &ingesterr.StorageError{Op: "apply_tracking_update_lookup", Err: err}
		}

		nameToWrite := carrierName
		if nameToWrite == "" {
			nameToWrite = existingName
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE logistic SET carrier_name = NULLIF($1, ''), tracking_no = $2, updated_at = NOW() WHERE id = $3
		`, nameToWrite, trackingNo, logisticID); err != nil {
			return &ingesterr.StorageError{Op: "apply_tracking_update_logistic", Err: err}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE order_item SET tracking_no = $1, updated_at = NOW() WHERE toms_order_id = $2
		`, trackingNo, orderID); err != nil {
			return &ingesterr.StorageError{Op: "apply_tracking_update_items", Err: err}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE "order"
			SET status = $1, action_status = $2, updated_at = NOW()
			WHERE id = $3 AND status NOT IN ($4, $5)
		`, models.StatusShipped, string(models.DeriveActionStatus(models.StatusShipped)), orderID, models.StatusShipped, models.StatusCompleted); err != nil {
			return &ingesterr.StorageError{Op: "apply_tracking_update_order_status", Err: err}
		}

		for _, event := range history {
			if err := r.UpsertLogisticHistory(ctx, tx, logisticID, trackingNo, time.Unix(event.EventTime, 0).UTC(), event.Location, event.Status); err != nil {
				return &ingesterr.StorageError{Op: "apply_tracking_update_history", Err: err}
			}
		}

		return nil
	})
}

// UpsertLogisticHistory inserts a tracking event when absent, keyed by
// (logistic id, tracking number, event time, status); re-observation
// updates only location and updated_at (spec.md §4.5 step 4).
func (r *Repository) UpsertLogisticHistory(ctx context.Context, tx *sql.Tx, logisticID uuid.UUID, trackingNumber string, eventTime time.Time, location, status string) error {
	var existingID uuid.UUID
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM logistic_history
		WHERE toms_logistic_id = $1 AND tracking_number = $2 AND event_time = $3 AND status = $4
	`, logisticID, trackingNumber, eventTime, status).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := tx.ExecContext(ctx, `
			INSERT INTO logistic_history (id, toms_logistic_id, tracking_number, event_time, location, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		`, uuid.New(), logisticID, trackingNumber, eventTime, location, status)
		return err
	case err != nil:
		return err
	default:
		_, err := tx.ExecContext(ctx, `
			UPDATE logistic_history SET location = $1, updated_at = NOW() WHERE id = $2
		`, location, existingID)
		return err
	}
}

// IncompleteRow is one row missing either tracking or carrier, surfaced by
// the Step F cleanup sweep.
type IncompleteRow struct {
	OrderID     uuid.UUID
	OrderSN     string
	TrackingNo  string
	CarrierName string
}

// ListTrackingWithoutCarrier returns up to limit rows with a tracking
// number but no carrier name (spec.md §4.4 step F).
func (r *Repository) ListTrackingWithoutCarrier(ctx context.Context, marketplaceShopID int64, limit int) ([]IncompleteRow, error) {
	return r.listIncomplete(ctx, marketplaceShopID, limit, "l.tracking_no IS NOT NULL AND l.tracking_no != '' AND (l.carrier_name IS NULL OR l.carrier_name = '')")
}

// ListCarrierWithoutTracking returns up to limit rows with a carrier name
// but no tracking number (spec.md §4.4 step F).
func (r *Repository) ListCarrierWithoutTracking(ctx context.Context, marketplaceShopID int64, limit int) ([]IncompleteRow, error) {
	return r.listIncomplete(ctx, marketplaceShopID, limit, "l.carrier_name IS NOT NULL AND l.carrier_name != '' AND (l.tracking_no IS NULL OR l.tracking_no = '')")
}

func (r *Repository) listIncomplete(ctx context.Context, marketplaceShopID int64, limit int, predicate string) ([]IncompleteRow, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	query := `
		SELECT o.id, o.order_num, COALESCE(l.tracking_no, ''), COALESCE(l.carrier_name, '')
		FROM "order" o
		JOIN logistic l ON l.toms_order_id = o.id
		WHERE o.marketplace_shop_id = $1 AND (` + predicate + `)
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, marketplaceShopID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IncompleteRow
	for rows.Next() {
		var row IncompleteRow
		if err := rows.Scan(&row.OrderID, &row.OrderSN, &row.TrackingNo, &row.CarrierName); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetOrder looks up an order by its surrogate UUID (as a string) or, if
// idOrNumber does not parse as a UUID, by its marketplace order number —
// the operator HTTP surface's GetOrder contract (spec.md §6).
func (r *Repository) GetOrder(ctx context.Context, idOrNumber string) (models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	where := "order_num = $1"
	arg := idOrNumber
	if id, err := uuid.Parse(idOrNumber); err == nil {
		where = "id = $1"
		arg = id.String()
	}

	var (
		o          models.Order
		orderTime  sql.NullTime
		payTime    sql.NullTime
		shipByTime sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, platform, order_num, status, action_status, other_status, country, currency,
		       order_time, pay_time, ship_by_time, total_amount, company_id, marketplace_shop_id,
		       fulfillment_flag, cancel_by, cancel_reason, message_to_seller, created_at, updated_at
		FROM "order" WHERE `+where,
		arg,
	).Scan(
		&o.ID, &o.Platform, &o.OrderNum, &o.Status, &o.ActionStatus, &o.OtherStatus, &o.Country, &o.Currency,
		&orderTime, &payTime, &shipByTime, &o.TotalAmount, &o.CompanyID, &o.MarketplaceShopID,
		&o.FulfillmentFlag, &o.CancelBy, &o.CancelReason, &o.MessageToSeller, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, &ingesterr.DataError{Field: "order", Ctx: idOrNumber}
	}
	if err != nil {
		return models.Order{}, err
	}
	o.OrderTime = orderTime.Time
	o.PayTime = payTime.Time
	o.ShipByTime = shipByTime.Time
	return o, nil
}

// GetOrderWithLogistic is GetOrder plus its current logistic row (if any) —
// the shape the operator lookup endpoint's cache backfills on a miss.
func (r *Repository) GetOrderWithLogistic(ctx context.Context, idOrNumber string) (models.Order, models.Logistic, error) {
	order, err := r.GetOrder(ctx, idOrNumber)
	if err != nil {
		return models.Order{}, models.Logistic{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	var l models.Logistic
	err = r.db.QueryRowContext(ctx, `
		SELECT id, toms_order_id, COALESCE(carrier_name, ''), COALESCE(tracking_no, ''),
		       estimated_shipping_cost, actual_shipping_cost, created_at, updated_at
		FROM logistic WHERE toms_order_id = $1
	`, order.ID).Scan(
		&l.ID, &l.OrderID, &l.CarrierName, &l.TrackingNo,
		&l.EstimatedShippingCost, &l.ActualShippingCost, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return order, models.Logistic{}, nil
	}
	if err != nil {
		return models.Order{}, models.Logistic{}, err
	}
	return order, l, nil
}

// ListOrderItems returns every item row for an order, ordered the way they
// were last written by rewriteItems — used to rebuild the search index's
// SKU list after an upsert.
func (r *Repository) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, toms_order_id, toms_logistic_id, marketplace_item_id, sku, promo_sku,
		       display_name, option_variation, unit_price, original_price, quantity, weight,
		       "index", tracking_no, image_url, created_at, updated_at
		FROM order_item WHERE toms_order_id = $1 ORDER BY "index"
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.LogisticID, &item.MarketplaceItemID, &item.SKU, &item.PromoSKU,
			&item.DisplayName, &item.OptionVariation, &item.UnitPrice, &item.OriginalPrice, &item.Quantity, &item.Weight,
			&item.Index, &item.TrackingNo, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
