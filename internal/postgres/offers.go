package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

// OfferStore implements domain.OfferStore.
type OfferStore struct {
	pool *pgxpool.Pool
}

var _ domain.OfferStore = (*OfferStore)(nil)

func NewOfferStore(pool *pgxpool.Pool) *OfferStore {
	return &OfferStore{pool: pool}
}

// ListActive returns offers whose window strictly contains now.
func (s *OfferStore) ListActive(ctx context.Context, now time.Time) ([]domain.Offer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, type, mode, value::text, min_amt::text, min_qty, skus, start_at, expiry_at
		FROM offers
		WHERE start_at < $1 AND expiry_at > $1
		ORDER BY code`, now)
	if err != nil {
		return nil, domain.Internal(err, "offer.list_active", "failed to list offers")
	}

	offers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Offer, error) {
		var (
			o             domain.Offer
			value, minAmt string
		)
		if err := row.Scan(&o.Code, &o.Type, &o.Mode, &value, &minAmt, &o.MinQty, &o.SKUs, &o.StartAt, &o.ExpiryAt); err != nil {
			return o, err
		}
		err := parseDecimals([]*decimal.Decimal{&o.Value, &o.MinAmt}, []string{value, minAmt})
		return o, err
	})
	if err != nil {
		return nil, domain.Internal(err, "offer.list_active", "failed to scan offers")
	}
	return offers, nil
}
