package domain

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PostalCodeLength is the length of an Indian PIN code.
const PostalCodeLength = 6

var (
	ErrPostalCodeNotFound = &Error{Code: ENOTFOUND, Message: "Postal code not found"}
	ErrPostalMismatch     = &Error{Code: EINVALID, Message: "Region and state do not match the postal code"}
	ErrAddressNotFound    = &Error{Code: ENOTFOUND, Message: "Address not found"}
)

// Address is a billing or shipping address. ID is uuid.Nil until the
// address has been stored in a customer's address book.
type Address struct {
	ID            uuid.UUID `json:"id,omitempty"`
	UserID        uuid.UUID `json:"userId,omitempty"`
	Name          string    `json:"name"`
	StreetAddress string    `json:"address"`
	PostalCode    string    `json:"postalCode"`
	Region        string    `json:"region"`
	State         string    `json:"state"`
	IsDefault     bool      `json:"isDefault"`
	Hash          string    `json:"hash,omitempty"`
}

// Stored reports whether the address came from an address book.
func (a *Address) Stored() bool {
	return a != nil && a.ID != uuid.Nil
}

// ContentHash identifies an address by name, street and postal code so the
// same address entered twice is stored once per customer.
func (a Address) ContentHash() string {
	return sha1Hex(fmt.Sprintf("%s,%s,%s", a.Name, a.StreetAddress, a.PostalCode))
}

// hashText is the address fragment used in the checkout content hash.
func (a *Address) hashText() string {
	if a == nil {
		return "null"
	}
	if a.Stored() {
		return a.ID.String()
	}
	return fmt.Sprintf("%s %s %s", a.Name, a.StreetAddress, a.PostalCode)
}

// Contact is the customer contact block of a checkout.
type Contact struct {
	FName string `json:"fname"`
	LName string `json:"lname"`
	Email string `json:"email"`
	Tel   string `json:"tel"`
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FName + " " + c.LName)
}

// PostalRecord is what the postal lookup knows about a PIN code.
type PostalRecord struct {
	PostalCode string `json:"Pincode"`
	District   string `json:"District"`
	State      string `json:"State"`
}

// Matches reports whether region and state agree with the record.
func (p PostalRecord) Matches(region, state string) bool {
	return p.District == region && p.State == state
}

// PincodeStore is the local copy of postal data.
type PincodeStore interface {
	GetPincode(ctx context.Context, code string) (*PostalRecord, error)
	PutPincode(ctx context.Context, rec PostalRecord) error
}

// PostalLookup resolves PIN codes, consulting local data before the
// remote service.
type PostalLookup interface {
	Lookup(ctx context.Context, code string) (*PostalRecord, error)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
