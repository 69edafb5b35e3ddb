package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/domain"
)

type addressService struct {
	users domain.UserStore
}

var _ domain.AddressService = (*addressService)(nil)

// NewAddressService creates the address book service.
func NewAddressService(users domain.UserStore) domain.AddressService {
	return &addressService{users: users}
}

// List returns the user's addresses, default first.
func (s *addressService) List(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	if userID == uuid.Nil {
		return nil, domain.Unauthorized("address.list", "Please sign in")
	}
	return s.users.ListAddresses(ctx, userID)
}

// SetDefault makes addressID the billing default. The address must belong
// to the user.
func (s *addressService) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	const op = "address.set_default"

	if userID == uuid.Nil {
		return domain.Unauthorized(op, "Please sign in")
	}

	addrs, err := s.users.ListAddresses(ctx, userID)
	if err != nil {
		return err
	}
	if domain.FindAddress(addrs, addressID) == nil {
		return domain.WithOp(domain.ErrAddressNotFound, op)
	}

	return s.users.SetDefaultAddress(ctx, userID, addressID)
}
