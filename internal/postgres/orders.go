package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fusionx/internal/domain"
)

// OrderStore implements domain.OrderStore. Every write runs in one
// transaction together with the customer and address records it needs.
type OrderStore struct {
	pool *pgxpool.Pool
}

var _ domain.OrderStore = (*OrderStore)(nil)

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateOrder stores a pending order. Guests are matched to an existing
// customer by email or created.
func (s *OrderStore) CreateOrder(ctx context.Context, p domain.CreateOrderParams) (*domain.OrderRefs, error) {
	const op = "order.create"

	c := p.Checkout
	if c == nil || c.BillTo == nil {
		return nil, domain.Invalid(op, "checkout has no billing address")
	}

	var refs domain.OrderRefs
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		var err error
		if p.Type == domain.OrderTypeUser {
			refs, err = userOrderRefs(ctx, tx, p.UserID, p.UpdateTel, c, op)
		} else {
			refs, err = guestOrderRefs(ctx, tx, c, op)
		}
		if err != nil {
			return err
		}

		refs.OrderID = uuid.New()
		return insertOrder(ctx, tx, refs, p.Type, p.PaymentProvider, c, op)
	})
	if err != nil {
		return nil, asDomainError(err, op, "failed to create order")
	}
	return &refs, nil
}

// UpdateOrder rewrites a pending order after the customer changed their
// details.
func (s *OrderStore) UpdateOrder(ctx context.Context, p domain.UpdateOrderParams) (*domain.OrderRefs, error) {
	const op = "order.update"

	c := p.Checkout
	if c == nil || c.BillTo == nil {
		return nil, domain.Invalid(op, "checkout has no billing address")
	}

	var refs domain.OrderRefs
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		var err error
		if p.Type == domain.OrderTypeUser {
			refs, err = userOrderRefs(ctx, tx, p.Refs.UserID, p.UpdateTel, c, op)
		} else {
			// Stored addresses are never rewritten: an earlier order of the
			// same customer may point at the same row. A changed email moves
			// the order to that email's customer.
			refs, err = guestOrderRefs(ctx, tx, c, op)
		}
		if err != nil {
			return err
		}

		refs.OrderID = p.Refs.OrderID
		return rewriteOrder(ctx, tx, refs, c, op)
	})
	if err != nil {
		return nil, asDomainError(err, op, "failed to update order")
	}
	return &refs, nil
}

// Finalize consumes the session's reservations and marks the order paid.
func (s *OrderStore) Finalize(ctx context.Context, p domain.FinalizeParams) error {
	const op = "order.finalize"

	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		if len(p.SKUs) > 0 {
			tag, err := tx.Exec(ctx,
				`DELETE FROM reservations WHERE session_id = $1 AND sku = ANY($2)`,
				p.SessionID, p.SKUs)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return domain.WithOp(domain.ErrUnreserveFailed, op)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET payment_status = 'paid',
			    payment_id = $2,
			    payment_order_id = $3,
			    shipment_status = 'processing',
			    updated_at = now()
			WHERE id = $1 AND payment_status = 'pending'`,
			p.OrderID, p.PaymentID, nullText(p.ProviderOrderID))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.WithOp(domain.ErrUpdateOrderFailed, op)
		}
		return nil
	})
	if err != nil {
		return asDomainError(err, op, "failed to finalize order")
	}
	return nil
}

func (s *OrderStore) SetDeliveryDate(ctx context.Context, orderID uuid.UUID, date time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET delivery_date = $2, updated_at = now() WHERE id = $1`,
		orderID, date)
	if err != nil {
		return domain.Internal(err, "order.set_delivery_date", "failed to set delivery date")
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrOrderNotFound, "order.set_delivery_date")
	}
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	const op = "order.get"

	var (
		o                                           domain.Order
		items, billTo                               []byte
		subtotal, shipping, shipDisc, itemDisc, tot string
		paymentID, paymentOrderID                   *string
		ship                                        domain.Address
	)
	err := s.pool.QueryRow(ctx, `
		SELECT o.id, o.created_at, o.updated_at, o.type, o.user_id, o.items,
		       o.subtotal::text, o.shipping::text, o.shipping_discount::text,
		       o.item_discount::text, o.total::text, o.applied_offers,
		       o.payment_provider, o.payment_status, o.payment_id, o.payment_order_id,
		       o.bill_to, o.bill_to_id, o.ship_to_id, o.shipment_status, o.delivery_date,
		       a.id, a.user_id, a.name, a.street_address, a.postal_code, a.region, a.state, a.is_default, a.hash
		FROM orders o
		JOIN addresses a ON a.id = o.ship_to_id
		WHERE o.id = $1`, orderID).Scan(
		&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Type, &o.UserID, &items,
		&subtotal, &shipping, &shipDisc,
		&itemDisc, &tot, &o.AppliedOffers,
		&o.Payment.Provider, &o.Payment.Status, &paymentID, &paymentOrderID,
		&billTo, &o.BillToID, &o.Shipment.AddressID, &o.Shipment.Status, &o.Shipment.DeliveryDate,
		&ship.ID, &ship.UserID, &ship.Name, &ship.StreetAddress, &ship.PostalCode, &ship.Region, &ship.State, &ship.IsDefault, &ship.Hash,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.WithOp(domain.ErrOrderNotFound, op)
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}

	if err := parseDecimals(
		[]*decimal.Decimal{&o.Subtotal, &o.Shipping, &o.ShippingDiscount, &o.ItemDiscount, &o.Total},
		[]string{subtotal, shipping, shipDisc, itemDisc, tot},
	); err != nil {
		return nil, domain.Internal(err, op, "failed to decode order totals")
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, domain.Internal(err, op, "failed to decode order items")
	}
	if err := json.Unmarshal(billTo, &o.BillTo); err != nil {
		return nil, domain.Internal(err, op, "failed to decode billing address")
	}
	o.Payment.ID = textOrEmpty(paymentID)
	o.Payment.ProviderOrderID = textOrEmpty(paymentOrderID)
	o.Shipment.Address = &ship
	return &o, nil
}

// =============================================================================
// Transaction steps
// =============================================================================

// guestOrderRefs finds or creates the guest customer and stores both
// addresses under it. The billing address becomes the only default.
func guestOrderRefs(ctx context.Context, tx pgx.Tx, c *domain.CheckoutState, op string) (domain.OrderRefs, error) {
	userID, err := resolveGuest(ctx, tx, c.User, op)
	if err != nil {
		return domain.OrderRefs{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default = false WHERE user_id = $1`, userID); err != nil {
		return domain.OrderRefs{}, err
	}

	billToID, err := findAddressByHash(ctx, tx, userID, c.BillTo.ContentHash())
	if err != nil {
		return domain.OrderRefs{}, err
	}
	if billToID != uuid.Nil {
		tag, err := tx.Exec(ctx, `UPDATE addresses SET is_default = true WHERE id = $1`, billToID)
		if err != nil {
			return domain.OrderRefs{}, err
		}
		if tag.RowsAffected() == 0 {
			return domain.OrderRefs{}, domain.WithOp(domain.ErrSetDefaultFailed, op)
		}
	} else {
		billToID, err = insertAddress(ctx, tx, userID, c.BillTo, true, op)
		if err != nil {
			return domain.OrderRefs{}, err
		}
	}

	shipToID := billToID
	if c.ShipTo != nil {
		shipToID, err = findOrInsertAddress(ctx, tx, userID, c.ShipTo, false, op)
		if err != nil {
			return domain.OrderRefs{}, err
		}
	}

	return domain.OrderRefs{UserID: userID, BillToID: billToID, ShipToID: shipToID}, nil
}

// resolveGuest returns the customer with the contact's email, updating the
// stored phone number when it changed, or inserts a new guest customer.
func resolveGuest(ctx context.Context, tx pgx.Tx, contact domain.Contact, op string) (uuid.UUID, error) {
	var (
		id  uuid.UUID
		tel *string
	)
	err := tx.QueryRow(ctx, `SELECT id, tel FROM users WHERE email = $1 FOR UPDATE`, contact.Email).Scan(&id, &tel)
	switch {
	case err == nil:
		if textOrEmpty(tel) != contact.Tel {
			if err := updateTel(ctx, tx, id, contact.Tel, op); err != nil {
				return uuid.Nil, err
			}
		}
		return id, nil
	case isNoRows(err):
		id = uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, fname, lname, tel, type)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, contact.Email, contact.FName, contact.LName, nullText(contact.Tel), domain.UserTypeGuest)
		if err != nil {
			return uuid.Nil, err
		}
		return id, nil
	default:
		return uuid.Nil, err
	}
}

func updateTel(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tel, op string) error {
	tag, err := tx.Exec(ctx, `UPDATE users SET tel = $2 WHERE id = $1`, userID, nullText(tel))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrUserUpdateFailed, op)
	}
	return nil
}

// userOrderRefs resolves the addresses of a logged-in customer. A newly
// entered billing address is stored and becomes the default.
func userOrderRefs(ctx context.Context, tx pgx.Tx, userID uuid.UUID, setTel bool, c *domain.CheckoutState, op string) (domain.OrderRefs, error) {
	if setTel {
		if err := updateTel(ctx, tx, userID, c.User.Tel, op); err != nil {
			return domain.OrderRefs{}, err
		}
	}

	billToID := c.BillTo.ID
	if !c.BillTo.Stored() {
		var err error
		billToID, err = findOrInsertAddress(ctx, tx, userID, c.BillTo, false, op)
		if err != nil {
			return domain.OrderRefs{}, err
		}
		if err := setDefaultBillingAddress(ctx, tx, userID, billToID, op); err != nil {
			return domain.OrderRefs{}, err
		}
	}

	shipToID := billToID
	switch {
	case c.ShipTo == nil:
	case c.ShipTo.Stored():
		shipToID = c.ShipTo.ID
	default:
		var err error
		shipToID, err = findOrInsertAddress(ctx, tx, userID, c.ShipTo, false, op)
		if err != nil {
			return domain.OrderRefs{}, err
		}
	}

	return domain.OrderRefs{UserID: userID, BillToID: billToID, ShipToID: shipToID}, nil
}

type orderColumns struct {
	items    []byte
	billTo   []byte
	offers   []string
	subtotal string
	shipping string
	shipDisc string
	itemDisc string
	total    string
}

func encodeOrder(refs domain.OrderRefs, c *domain.CheckoutState) (orderColumns, error) {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return orderColumns{}, err
	}
	billTo := *c.BillTo
	billTo.ID = refs.BillToID
	billTo.UserID = refs.UserID
	billToJSON, err := json.Marshal(billTo)
	if err != nil {
		return orderColumns{}, err
	}
	offers := c.AppliedOffers
	if offers == nil {
		offers = []string{}
	}
	return orderColumns{
		items:    items,
		billTo:   billToJSON,
		offers:   offers,
		subtotal: c.Subtotal.String(),
		shipping: c.Shipping.String(),
		shipDisc: c.ShippingDiscount.String(),
		itemDisc: c.ItemDiscount.String(),
		total:    c.Total.String(),
	}, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, refs domain.OrderRefs, typ domain.OrderType, provider string, c *domain.CheckoutState, op string) error {
	cols, err := encodeOrder(refs, c)
	if err != nil {
		return domain.Internal(err, op, "failed to encode order")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, type, user_id, items,
			subtotal, shipping, shipping_discount, item_discount, total,
			applied_offers, payment_provider, bill_to, bill_to_id, ship_to_id
		) VALUES (
			$1, $2, $3, $4,
			$5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric,
			$10, $11, $12, $13, $14
		)`,
		refs.OrderID, typ, refs.UserID, cols.items,
		cols.subtotal, cols.shipping, cols.shipDisc, cols.itemDisc, cols.total,
		cols.offers, provider, cols.billTo, refs.BillToID, refs.ShipToID)
	return err
}

func rewriteOrder(ctx context.Context, tx pgx.Tx, refs domain.OrderRefs, c *domain.CheckoutState, op string) error {
	cols, err := encodeOrder(refs, c)
	if err != nil {
		return domain.Internal(err, op, "failed to encode order")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET user_id = $2, items = $3,
		    subtotal = $4::numeric, shipping = $5::numeric, shipping_discount = $6::numeric,
		    item_discount = $7::numeric, total = $8::numeric,
		    applied_offers = $9, bill_to = $10, bill_to_id = $11, ship_to_id = $12,
		    updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'`,
		refs.OrderID, refs.UserID, cols.items,
		cols.subtotal, cols.shipping, cols.shipDisc,
		cols.itemDisc, cols.total,
		cols.offers, cols.billTo, refs.BillToID, refs.ShipToID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.WithOp(domain.ErrUpdateOrderFailed, op)
	}
	return nil
}

// asDomainError keeps domain errors raised inside a transaction and wraps
// driver errors.
func asDomainError(err error, op, message string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Internal(err, op, message)
}
