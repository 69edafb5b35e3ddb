package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fusionx/internal/domain"
)

// UserStore implements domain.UserStore.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ domain.UserStore = (*UserStore)(nil)

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u   domain.User
		tel *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, fname, lname, tel, type, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FName, &u.LName, &tel, &u.Type, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("user.get", "user", id.String())
		}
		return nil, domain.Internal(err, "user.get", "failed to load user")
	}
	u.Tel = textOrEmpty(tel)
	return &u, nil
}

// ListAddresses returns the address book with the default entry first.
func (s *UserStore) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at`, userID)
	if err != nil {
		return nil, domain.Internal(err, "user.list_addresses", "failed to list addresses")
	}
	addrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Address, error) {
		return scanAddress(row)
	})
	if err != nil {
		return nil, domain.Internal(err, "user.list_addresses", "failed to scan addresses")
	}
	return addrs, nil
}

// SetDefaultAddress makes addressID the user's only default address.
func (s *UserStore) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		return setDefaultBillingAddress(ctx, tx, userID, addressID, "user.set_default_address")
	})
}

// =============================================================================
// Address helpers shared with the order transactions
// =============================================================================

const addressColumns = `id, user_id, name, street_address, postal_code, region, state, is_default, hash`

func scanAddress(row pgx.Row) (domain.Address, error) {
	var a domain.Address
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.StreetAddress, &a.PostalCode, &a.Region, &a.State, &a.IsDefault, &a.Hash)
	return a, err
}

// setDefaultBillingAddress clears every default of userID then marks
// addressID. Either step touching no rows aborts the transaction.
func setDefaultBillingAddress(ctx context.Context, db DBTX, userID, addressID uuid.UUID, op string) error {
	tag, err := db.Exec(ctx, `UPDATE addresses SET is_default = false WHERE user_id = $1`, userID)
	if err != nil {
		return domain.Internal(err, op, "failed to reset default address")
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrResetDefaultFailed, op)
	}

	tag, err = db.Exec(ctx, `UPDATE addresses SET is_default = true WHERE id = $1 AND user_id = $2`, addressID, userID)
	if err != nil {
		return domain.Internal(err, op, "failed to set default address")
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrSetDefaultFailed, op)
	}
	return nil
}

// findAddressByHash returns uuid.Nil when the user has no address with hash.
func findAddressByHash(ctx context.Context, db DBTX, userID uuid.UUID, hash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.QueryRow(ctx,
		`SELECT id FROM addresses WHERE user_id = $1 AND hash = $2 ORDER BY created_at LIMIT 1`,
		userID, hash).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return id, nil
}

func insertAddress(ctx context.Context, db DBTX, userID uuid.UUID, a *domain.Address, isDefault bool, op string) (uuid.UUID, error) {
	id := uuid.New()
	tag, err := db.Exec(ctx, `
		INSERT INTO addresses (id, user_id, name, street_address, postal_code, region, state, is_default, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, userID, a.Name, a.StreetAddress, a.PostalCode, a.Region, a.State, isDefault, a.ContentHash())
	if err != nil {
		return uuid.Nil, domain.Internal(err, op, "failed to insert address")
	}
	if tag.RowsAffected() != 1 {
		return uuid.Nil, domain.WithOp(domain.ErrAddressInsert, op)
	}
	return id, nil
}

// findOrInsertAddress reuses the user's address with the same content.
func findOrInsertAddress(ctx context.Context, db DBTX, userID uuid.UUID, a *domain.Address, isDefault bool, op string) (uuid.UUID, error) {
	id, err := findAddressByHash(ctx, db, userID, a.ContentHash())
	if err != nil {
		return uuid.Nil, domain.Internal(err, op, "failed to look up address")
	}
	if id != uuid.Nil {
		return id, nil
	}
	return insertAddress(ctx, db, userID, a, isDefault, op)
}
