// Package shoprepo loads active shops and persists refreshed tokens.
// Raw SQL over database/sql + lib/pq, no ORM — the same style as the
// teacher's internal/database package.
package shoprepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"shopee-ingest/internal/models"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// ErrShopNotFound is returned when a shop lookup misses.
var ErrShopNotFound = errors.New("shoprepo: shop not found")

type Repository struct {
	db *sql.DB
}

// Connect opens and verifies a Postgres connection.
func Connect(dsn string, poolSize int) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// New wraps an already-open *sql.DB — used by tests with a fake/real pool.
func New(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) DB() *sql.DB { return r.db }

// ListActiveShops returns every non-deleted, active shop whose effective
// sandbox setting (company column, falling back to the process-level
// runtimeSandbox flag when the shop has no company row) matches
// runtimeSandbox — the scheduler's fan-out filter (spec.md §4.7).
func (r *Repository) ListActiveShops(ctx context.Context, runtimeSandbox bool) ([]models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.shop_key, s.marketplace_shop_id, s.partner_id, s.partner_key,
		       s.access_token, s.refresh_token, s.expire_at, s.active, s.deleted,
		       s.order_poll_window_minutes, s.sandbox, s.company_id,
		       c.issandbox, (c.id IS NOT NULL) AS company_known
		FROM shop s
		LEFT JOIN company c ON c.id = s.company_id
		WHERE s.active = true AND s.deleted = false
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Shop
	for rows.Next() {
		var (
			shop          models.Shop
			expireAt      sql.NullTime
			companySandbox sql.NullBool
			companyKnown  bool
		)
		if err := rows.Scan(
			&shop.Key, &shop.MarketplaceShopID, &shop.PartnerID, &shop.PartnerKey,
			&shop.AccessToken, &shop.RefreshToken, &expireAt, &shop.Active, &shop.Deleted,
			&shop.OrderPollWindowMinutes, &shop.Sandbox, &shop.CompanyID,
			&companySandbox, &companyKnown,
		); err != nil {
			return nil, err
		}
		if expireAt.Valid {
			shop.ExpireAt = expireAt.Time
		}

		effective := models.EffectiveSandbox(models.Company{IsSandbox: companySandbox.Bool}, runtimeSandbox, companyKnown)
		if effective != runtimeSandbox {
			continue
		}
		out = append(out, shop)
	}
	return out, rows.Err()
}

// GetByKey loads one shop by its internal key.
func (r *Repository) GetByKey(ctx context.Context, key string) (models.Shop, error) {
	return r.get(ctx, "s.shop_key = $1", key)
}

// GetByMarketplaceShopID loads one shop by its marketplace shop id —
// used by the worker runtime's fallback lookup (spec.md §4.8).
func (r *Repository) GetByMarketplaceShopID(ctx context.Context, marketplaceShopID int64) (models.Shop, error) {
	return r.get(ctx, "s.marketplace_shop_id = $1", marketplaceShopID)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	var (
		shop     models.Shop
		expireAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT s.shop_key, s.marketplace_shop_id, s.partner_id, s.partner_key,
		       s.access_token, s.refresh_token, s.expire_at, s.active, s.deleted,
		       s.order_poll_window_minutes, s.sandbox, s.company_id
		FROM shop s
		WHERE `+where+` AND s.deleted = false
	`, arg).Scan(
		&shop.Key, &shop.MarketplaceShopID, &shop.PartnerID, &shop.PartnerKey,
		&shop.AccessToken, &shop.RefreshToken, &expireAt, &shop.Active, &shop.Deleted,
		&shop.OrderPollWindowMinutes, &shop.Sandbox, &shop.CompanyID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Shop{}, ErrShopNotFound
	}
	if err != nil {
		return models.Shop{}, err
	}
	if expireAt.Valid {
		shop.ExpireAt = expireAt.Time
	}
	return shop, nil
}

// UpdateTokens atomically persists a refreshed access/refresh token pair —
// the only writer of shop credentials (spec.md §4.3).
func (r *Repository) UpdateTokens(ctx context.Context, shopKey, accessToken, refreshToken string, expireAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE shop
		SET access_token = $1, refresh_token = $2, expire_at = $3, updated_at = NOW()
		WHERE shop_key = $4
	`, accessToken, refreshToken, expireAt, shopKey)
	return err
}
