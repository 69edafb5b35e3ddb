package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

// InventoryStore implements domain.InventoryStore.
type InventoryStore struct {
	pool *pgxpool.Pool
}

var _ domain.InventoryStore = (*InventoryStore)(nil)

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool}
}

const variantColumns = `sku, title, price::text, gst::text, qty, z_index, image_primary, image_alt`

func scanVariant(row pgx.Row) (*domain.ProductVariant, error) {
	var (
		v          domain.ProductVariant
		price, gst string
	)
	if err := row.Scan(&v.SKU, &v.Title, &price, &gst, &v.Qty, &v.ZIndex, &v.ImagePrimary, &v.ImageAlt); err != nil {
		return nil, err
	}
	if err := parseDecimals([]*decimal.Decimal{&v.Price, &v.GST}, []string{price, gst}); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *InventoryStore) GetVariant(ctx context.Context, sku string) (*domain.ProductVariant, error) {
	v, err := scanVariant(s.pool.QueryRow(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE sku = $1`, sku))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithOp(domain.ErrVariantNotFound, "inventory.get_variant")
		}
		return nil, domain.Internal(err, "inventory.get_variant", "failed to load variant")
	}
	return v, nil
}

func (s *InventoryStore) Available(ctx context.Context, sku string) (int, error) {
	var qty int
	err := s.pool.QueryRow(ctx, `SELECT qty FROM product_variants WHERE sku = $1`, sku).Scan(&qty)
	if err != nil {
		if isNoRows(err) {
			return 0, domain.WithOp(domain.ErrVariantNotFound, "inventory.available")
		}
		return 0, domain.Internal(err, "inventory.available", "failed to read stock")
	}
	return qty, nil
}

// Reserve takes qty out of stock with a conditional decrement and records
// the hold in the same statement.
func (s *InventoryStore) Reserve(ctx context.Context, sku string, qty int, sessionID string) (bool, error) {
	var reserved bool
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		var held bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM reservations WHERE sku = $1 AND session_id = $2)`,
			sku, sessionID).Scan(&held); err != nil {
			return err
		}
		if held {
			reserved = true
			return nil
		}

		tag, err := tx.Exec(ctx, `
			WITH taken AS (
				UPDATE product_variants
				SET qty = qty - $2, updated_at = now()
				WHERE sku = $1 AND qty >= $2
				RETURNING sku
			)
			INSERT INTO reservations (sku, session_id, qty)
			SELECT sku, $3, $2 FROM taken`,
			sku, qty, sessionID)
		if err != nil {
			return err
		}
		reserved = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, domain.Internal(err, "inventory.reserve", fmt.Sprintf("failed to reserve %s", sku))
	}
	return reserved, nil
}

// Release deletes the session's hold on sku and returns its quantity to
// stock atomically.
func (s *InventoryStore) Release(ctx context.Context, sku, sessionID string) (bool, error) {
	return release(ctx, s.pool, sku, sessionID)
}

func release(ctx context.Context, db DBTX, sku, sessionID string) (bool, error) {
	tag, err := db.Exec(ctx, `
		WITH freed AS (
			DELETE FROM reservations
			WHERE sku = $1 AND session_id = $2
			RETURNING sku, qty
		)
		UPDATE product_variants p
		SET qty = p.qty + freed.qty, updated_at = now()
		FROM freed
		WHERE p.sku = freed.sku`,
		sku, sessionID)
	if err != nil {
		return false, domain.Internal(err, "inventory.release", fmt.Sprintf("failed to release %s", sku))
	}
	return tag.RowsAffected() == 1, nil
}

func (s *InventoryStore) ReservationsFor(ctx context.Context, sessionID string) ([]domain.Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sku, session_id, qty, created_at
		FROM reservations
		WHERE session_id = $1
		ORDER BY sku`, sessionID)
	if err != nil {
		return nil, domain.Internal(err, "inventory.reservations_for", "failed to list reservations")
	}
	return collectReservations(rows, "inventory.reservations_for")
}

func (s *InventoryStore) StaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.sku, r.session_id, r.qty, r.created_at
		FROM reservations r
		LEFT JOIN sessions s ON s.id = r.session_id
		WHERE r.created_at < $1
		  AND (s.id IS NULL OR s.expires_at < now())
		ORDER BY r.created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, domain.Internal(err, "inventory.stale_reservations", "failed to list stale reservations")
	}
	return collectReservations(rows, "inventory.stale_reservations")
}

func collectReservations(rows pgx.Rows, op string) ([]domain.Reservation, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Reservation, error) {
		var r domain.Reservation
		err := row.Scan(&r.SKU, &r.SessionID, &r.Qty, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to scan reservations")
	}
	return out, nil
}

// RebalanceDisplayOrder hides sold out variants and, when any were hidden,
// promotes the first in-stock sibling of each sold sku.
func (s *InventoryStore) RebalanceDisplayOrder(ctx context.Context, skus []string) (int, error) {
	if len(skus) == 0 {
		return 0, nil
	}

	var demoted int
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE product_variants
			SET z_index = 0, updated_at = now()
			WHERE sku = ANY($1) AND qty = 0 AND z_index <> 0`, skus)
		if err != nil {
			return err
		}
		demoted = int(tag.RowsAffected())
		if demoted == 0 {
			return nil
		}

		for _, sku := range skus {
			if len(sku) < domain.SiblingPrefixLength {
				continue
			}
			if _, err := tx.Exec(ctx, `
				UPDATE product_variants
				SET z_index = 1, updated_at = now()
				WHERE sku = (
					SELECT sku FROM product_variants
					WHERE left(sku, $2) = left($1, $2) AND qty > 0
					ORDER BY sku
					LIMIT 1
				)`, sku, domain.SiblingPrefixLength); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.Internal(err, "inventory.rebalance", "failed to rebalance display order")
	}
	return demoted, nil
}
