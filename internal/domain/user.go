package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserType records whether a customer registered or only checked out.
type UserType string

const (
	UserTypeGuest UserType = "GUEST"
	UserTypeUser  UserType = "USER"
)

// User is a customer record. Guests are found or created by email when
// they place an order.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FName     string    `json:"fname"`
	LName     string    `json:"lname"`
	Tel       string    `json:"tel,omitempty"`
	Type      UserType  `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contact returns the user's contact block.
func (u User) Contact() Contact {
	return Contact{FName: u.FName, LName: u.LName, Email: u.Email, Tel: u.Tel}
}

// DefaultAddress returns the default entry of an address book, or nil.
func DefaultAddress(addrs []Address) *Address {
	for i := range addrs {
		if addrs[i].IsDefault {
			a := addrs[i]
			return &a
		}
	}
	return nil
}

// FindAddress returns the address with id, or nil.
func FindAddress(addrs []Address, id uuid.UUID) *Address {
	for i := range addrs {
		if addrs[i].ID == id {
			a := addrs[i]
			return &a
		}
	}
	return nil
}

// UserStore reads customer records.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error)

	// SetDefaultAddress makes addressID the user's only default address.
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error
}

// AddressService manages a logged-in customer's address book.
type AddressService interface {
	List(ctx context.Context, userID uuid.UUID) ([]Address, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
}
