package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

// UserCartStore implements domain.UserCartStore.
type UserCartStore struct {
	pool *pgxpool.Pool
}

var _ domain.UserCartStore = (*UserCartStore)(nil)

func NewUserCartStore(pool *pgxpool.Pool) *UserCartStore {
	return &UserCartStore{pool: pool}
}

// Items returns the cart lines joined with current variant data, oldest
// first.
func (s *UserCartStore) Items(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.sku, v.title, v.price::text, v.gst::text, c.qty, v.image_primary, v.image_alt
		FROM user_cart_items c
		JOIN product_variants v ON v.sku = c.sku
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.sku`, userID)
	if err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to load cart")
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartItem, error) {
		var (
			it         domain.CartItem
			price, gst string
		)
		if err := row.Scan(&it.SKU, &it.Title, &price, &gst, &it.Qty, &it.ImagePrimary, &it.ImageAlt); err != nil {
			return it, err
		}
		err := parseDecimals([]*decimal.Decimal{&it.Price, &it.GST}, []string{price, gst})
		return it, err
	})
	if err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to scan cart")
	}
	return items, nil
}

func (s *UserCartStore) Upsert(ctx context.Context, userID uuid.UUID, sku string, qty int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_cart_items (user_id, sku, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, sku) DO UPDATE SET qty = EXCLUDED.qty`,
		userID, sku, qty)
	if err != nil {
		return domain.Internal(err, "cart.upsert", "failed to save cart item")
	}
	return nil
}

func (s *UserCartStore) Remove(ctx context.Context, userID uuid.UUID, sku string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_cart_items WHERE user_id = $1 AND sku = $2`, userID, sku)
	if err != nil {
		return domain.Internal(err, "cart.remove", "failed to remove cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrCartItemNotFound, "cart.remove")
	}
	return nil
}

func (s *UserCartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return clearUserCart(ctx, s.pool, userID)
}

func clearUserCart(ctx context.Context, db DBTX, userID uuid.UUID) error {
	if _, err := db.Exec(ctx, `DELETE FROM user_cart_items WHERE user_id = $1`, userID); err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}
