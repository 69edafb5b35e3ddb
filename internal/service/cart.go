package service

import (
	"context"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

type cartService struct {
	inventory domain.InventoryStore
	userCarts domain.UserCartStore
}

var _ domain.CartService = (*cartService)(nil)

// NewCartService creates a CartService. Guest carts are kept on the
// session, carts of logged-in users in userCarts.
func NewCartService(inventory domain.InventoryStore, userCarts domain.UserCartStore) domain.CartService {
	return &cartService{inventory: inventory, userCarts: userCarts}
}

// GetCart returns the cart items for the session.
func (s *cartService) GetCart(ctx context.Context, sess *domain.SessionContext) ([]domain.CartItem, error) {
	if !sess.IsLoggedIn() {
		return domain.CloneItems(sess.Cart), nil
	}

	items, err := s.userCarts.Items(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem adds qty units of sku. The resulting line quantity never exceeds
// the current stock.
func (s *cartService) AddItem(ctx context.Context, sess *domain.SessionContext, sku string, qty int) ([]domain.CartItem, error) {
	const op = "cart.add"

	if err := s.checkUnlocked(sess, op); err != nil {
		return nil, err
	}
	if len(sku) != domain.SKULength {
		return nil, domain.WithOp(domain.ErrInvalidSKU, op)
	}
	if qty < 1 {
		return nil, domain.WithOp(domain.ErrInvalidQuantity, op)
	}

	variant, err := s.inventory.GetVariant(ctx, sku)
	if err != nil {
		return nil, err
	}
	if variant.Qty <= 0 {
		return nil, domain.WithOp(domain.ErrOutOfStock, op)
	}

	items, err := s.GetCart(ctx, sess)
	if err != nil {
		return nil, err
	}

	newQty := qty
	if i := domain.FindItem(items, sku); i >= 0 {
		newQty += items[i].Qty
	}
	if newQty > variant.Qty {
		newQty = variant.Qty
	}

	items, err = s.setQty(ctx, sess, items, *variant, newQty)
	if err != nil {
		return nil, err
	}

	countCart("add")
	return items, nil
}

// UpdateItem sets the quantity of a line already in the cart.
func (s *cartService) UpdateItem(ctx context.Context, sess *domain.SessionContext, sku string, qty int) ([]domain.CartItem, error) {
	const op = "cart.update"

	if err := s.checkUnlocked(sess, op); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, domain.WithOp(domain.ErrInvalidQuantity, op)
	}

	items, err := s.GetCart(ctx, sess)
	if err != nil {
		return nil, err
	}
	if domain.FindItem(items, sku) < 0 {
		return nil, domain.WithOp(domain.ErrCartItemNotFound, op)
	}

	variant, err := s.inventory.GetVariant(ctx, sku)
	if err != nil {
		return nil, err
	}
	if qty > variant.Qty {
		return nil, domain.WithOp(domain.ErrNotEnoughStock, op)
	}

	items, err = s.setQty(ctx, sess, items, *variant, qty)
	if err != nil {
		return nil, err
	}

	countCart("update")
	return items, nil
}

// RemoveItem deletes a line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, sess *domain.SessionContext, sku string) ([]domain.CartItem, error) {
	const op = "cart.remove"

	if err := s.checkUnlocked(sess, op); err != nil {
		return nil, err
	}

	if sess.IsLoggedIn() {
		if err := s.userCarts.Remove(ctx, sess.UserID, sku); err != nil {
			return nil, err
		}
		countCart("remove")
		return s.GetCart(ctx, sess)
	}

	i := domain.FindItem(sess.Cart, sku)
	if i < 0 {
		return nil, domain.WithOp(domain.ErrCartItemNotFound, op)
	}
	sess.Cart = append(sess.Cart[:i:i], sess.Cart[i+1:]...)

	countCart("remove")
	return domain.CloneItems(sess.Cart), nil
}

// ClearCart empties the cart.
func (s *cartService) ClearCart(ctx context.Context, sess *domain.SessionContext) error {
	if err := s.checkUnlocked(sess, "cart.clear"); err != nil {
		return err
	}

	sess.Cart = nil
	if sess.IsLoggedIn() {
		if err := s.userCarts.Clear(ctx, sess.UserID); err != nil {
			return err
		}
	}

	countCart("clear")
	return nil
}

// checkUnlocked rejects cart changes while stock is reserved for an open
// checkout.
func (s *cartService) checkUnlocked(sess *domain.SessionContext, op string) error {
	if sess.CartReserved {
		return domain.WithOp(domain.ErrCartLocked, op)
	}
	return nil
}

// setQty writes the line for variant with qty and returns the new cart.
func (s *cartService) setQty(ctx context.Context, sess *domain.SessionContext, items []domain.CartItem, variant domain.ProductVariant, qty int) ([]domain.CartItem, error) {
	if sess.IsLoggedIn() {
		if err := s.userCarts.Upsert(ctx, sess.UserID, variant.SKU, qty); err != nil {
			return nil, err
		}
		return s.GetCart(ctx, sess)
	}

	if i := domain.FindItem(items, variant.SKU); i >= 0 {
		items[i].Qty = qty
	} else {
		items = append(items, variant.CartItem(qty))
	}
	sess.Cart = items
	return domain.CloneItems(items), nil
}

func countCart(action string) {
	if telemetry.Business != nil {
		telemetry.Business.CartUpdated.WithLabelValues(action).Inc()
	}
}
