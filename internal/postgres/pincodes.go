package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fusionx/internal/domain"
)

// PincodeStore implements domain.PincodeStore.
type PincodeStore struct {
	pool *pgxpool.Pool
}

var _ domain.PincodeStore = (*PincodeStore)(nil)

func NewPincodeStore(pool *pgxpool.Pool) *PincodeStore {
	return &PincodeStore{pool: pool}
}

func (s *PincodeStore) GetPincode(ctx context.Context, code string) (*domain.PostalRecord, error) {
	var rec domain.PostalRecord
	err := s.pool.QueryRow(ctx,
		`SELECT postal_code, district, state FROM pincodes WHERE postal_code = $1`, code).
		Scan(&rec.PostalCode, &rec.District, &rec.State)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithOp(domain.ErrPostalCodeNotFound, "pincode.get")
		}
		return nil, domain.Internal(err, "pincode.get", "failed to read pincode")
	}
	return &rec, nil
}

// PutPincode keeps the first record stored for a code.
func (s *PincodeStore) PutPincode(ctx context.Context, rec domain.PostalRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pincodes (postal_code, district, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (postal_code) DO NOTHING`,
		rec.PostalCode, rec.District, rec.State)
	if err != nil {
		return domain.Internal(err, "pincode.put", "failed to store pincode")
	}
	return nil
}
