package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/cache"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/postal"
	"github.com/dukerupert/fusionx/internal/pricing"
	"github.com/dukerupert/fusionx/internal/shipping"
	"github.com/dukerupert/fusionx/internal/validate"
)

// ============================================================================
// In-memory stores
// ============================================================================

// memInventory implements domain.InventoryStore. Stock and reservations
// live behind one mutex so Reserve is a single conditional decrement.
type memInventory struct {
	mu           sync.Mutex
	variants     map[string]*domain.ProductVariant
	reservations map[string]map[string]domain.Reservation // sku -> session -> reservation
	liveSessions map[string]bool
	now          func() time.Time

	reserveErr   error
	rebalanceErr error
	rebalanced   [][]string
}

func newMemInventory() *memInventory {
	return &memInventory{
		variants:     make(map[string]*domain.ProductVariant),
		reservations: make(map[string]map[string]domain.Reservation),
		liveSessions: make(map[string]bool),
		now:          time.Now,
	}
}

func (m *memInventory) add(sku string, price, gst string, qty int) {
	m.variants[sku] = &domain.ProductVariant{
		SKU:   sku,
		Title: "Variant " + sku,
		Price: decimal.RequireFromString(price),
		GST:   decimal.RequireFromString(gst),
		Qty:   qty,
	}
}

func (m *memInventory) GetVariant(ctx context.Context, sku string) (*domain.ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[sku]
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memInventory) Available(ctx context.Context, sku string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[sku]
	if !ok {
		return 0, domain.ErrVariantNotFound
	}
	return v.Qty, nil
}

func (m *memInventory) Reserve(ctx context.Context, sku string, qty int, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return false, m.reserveErr
	}
	if _, held := m.reservations[sku][sessionID]; held {
		return true, nil
	}
	v, ok := m.variants[sku]
	if !ok || v.Qty < qty {
		return false, nil
	}
	v.Qty -= qty
	if m.reservations[sku] == nil {
		m.reservations[sku] = make(map[string]domain.Reservation)
	}
	m.reservations[sku][sessionID] = domain.Reservation{SKU: sku, SessionID: sessionID, Qty: qty, CreatedAt: m.now()}
	return true, nil
}

func (m *memInventory) Release(ctx context.Context, sku, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[sku][sessionID]
	if !ok {
		return false, nil
	}
	delete(m.reservations[sku], sessionID)
	m.variants[sku].Qty += r.Qty
	return true, nil
}

// consume deletes the session's reservations for skus without returning
// stock, reporting how many were deleted.
func (m *memInventory) consume(sessionID string, skus []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sku := range skus {
		if _, ok := m.reservations[sku][sessionID]; ok {
			delete(m.reservations[sku], sessionID)
			n++
		}
	}
	return n
}

func (m *memInventory) reservedQty(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reservations[sku] {
		n += r.Qty
	}
	return n
}

func (m *memInventory) stock(sku string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.variants[sku].Qty
}

func (m *memInventory) ReservationsFor(ctx context.Context, sessionID string) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, bySession := range m.reservations {
		if r, ok := bySession[sessionID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memInventory) StaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, bySession := range m.reservations {
		for _, r := range bySession {
			if r.CreatedAt.Before(cutoff) && !m.liveSessions[r.SessionID] {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memInventory) RebalanceDisplayOrder(ctx context.Context, skus []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebalanced = append(m.rebalanced, skus)
	if m.rebalanceErr != nil {
		return 0, m.rebalanceErr
	}
	n := 0
	for _, sku := range skus {
		if v := m.variants[sku]; v != nil && v.Qty == 0 {
			v.ZIndex = 0
			n++
		}
	}
	return n, nil
}

// memUserCarts implements domain.UserCartStore.
type memUserCarts struct {
	inventory *memInventory
	lines     map[uuid.UUID][]domain.CartItem
	cleared   []uuid.UUID
}

func newMemUserCarts(inv *memInventory) *memUserCarts {
	return &memUserCarts{inventory: inv, lines: make(map[uuid.UUID][]domain.CartItem)}
}

func (m *memUserCarts) Items(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	return domain.CloneItems(m.lines[userID]), nil
}

func (m *memUserCarts) Upsert(ctx context.Context, userID uuid.UUID, sku string, qty int) error {
	items := m.lines[userID]
	if i := domain.FindItem(items, sku); i >= 0 {
		items[i].Qty = qty
		return nil
	}
	v, err := m.inventory.GetVariant(ctx, sku)
	if err != nil {
		return err
	}
	m.lines[userID] = append(items, v.CartItem(qty))
	return nil
}

func (m *memUserCarts) Remove(ctx context.Context, userID uuid.UUID, sku string) error {
	items := m.lines[userID]
	i := domain.FindItem(items, sku)
	if i < 0 {
		return domain.ErrCartItemNotFound
	}
	m.lines[userID] = append(items[:i:i], items[i+1:]...)
	return nil
}

func (m *memUserCarts) Clear(ctx context.Context, userID uuid.UUID) error {
	delete(m.lines, userID)
	m.cleared = append(m.cleared, userID)
	return nil
}

// memUsers implements domain.UserStore.
type memUsers struct {
	users     map[uuid.UUID]*domain.User
	addresses map[uuid.UUID][]domain.Address
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*domain.User), addresses: make(map[uuid.UUID][]domain.Address)}
}

func (m *memUsers) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFound("user.get", "user", id.String())
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	return append([]domain.Address(nil), m.addresses[userID]...), nil
}

func (m *memUsers) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) error {
	addrs := m.addresses[userID]
	for i := range addrs {
		addrs[i].IsDefault = addrs[i].ID == addressID
	}
	return nil
}

// memOffers implements domain.OfferStore.
type memOffers struct {
	offers []domain.Offer
	calls  int
}

func (m *memOffers) ListActive(ctx context.Context, now time.Time) ([]domain.Offer, error) {
	m.calls++
	var out []domain.Offer
	for _, o := range m.offers {
		if o.ActiveAt(now) {
			out = append(out, o)
		}
	}
	return out, nil
}

// memOrders implements domain.OrderStore on top of memInventory so that
// Finalize consumes the reservations it finds there.
type memOrders struct {
	inventory *memInventory
	orders    map[uuid.UUID]*domain.Order

	createErr  error
	updateErr  error
	creates    int
	updates    int
	lastCreate domain.CreateOrderParams
}

func newMemOrders(inv *memInventory) *memOrders {
	return &memOrders{inventory: inv, orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *memOrders) CreateOrder(ctx context.Context, p domain.CreateOrderParams) (*domain.OrderRefs, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.creates++
	m.lastCreate = p
	refs := domain.OrderRefs{UserID: p.UserID, OrderID: uuid.New(), BillToID: uuid.New()}
	if refs.UserID == uuid.Nil {
		refs.UserID = uuid.New()
	}
	refs.ShipToID = refs.BillToID
	if p.Checkout.ShipTo != nil {
		refs.ShipToID = uuid.New()
	}
	m.orders[refs.OrderID] = orderFrom(refs, p.Type, p.Checkout)
	return &refs, nil
}

func (m *memOrders) UpdateOrder(ctx context.Context, p domain.UpdateOrderParams) (*domain.OrderRefs, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	existing, ok := m.orders[p.Refs.OrderID]
	if !ok || existing.Payment.Status != domain.PaymentPending {
		return nil, domain.ErrUpdateOrderFailed
	}
	m.updates++
	m.orders[p.Refs.OrderID] = orderFrom(p.Refs, p.Type, p.Checkout)
	return &p.Refs, nil
}

func (m *memOrders) Finalize(ctx context.Context, p domain.FinalizeParams) error {
	o, ok := m.orders[p.OrderID]
	if !ok || o.Payment.Status != domain.PaymentPending {
		return domain.ErrUpdateOrderFailed
	}
	if m.inventory.consume(p.SessionID, p.SKUs) == 0 {
		return domain.ErrUnreserveFailed
	}
	o.Payment.Status = domain.PaymentPaid
	o.Payment.ID = p.PaymentID
	o.Payment.ProviderOrderID = p.ProviderOrderID
	o.Shipment.Status = domain.ShipmentProcessing
	return nil
}

func (m *memOrders) SetDeliveryDate(ctx context.Context, orderID uuid.UUID, date time.Time) error {
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Shipment.DeliveryDate = &date
	return nil
}

func (m *memOrders) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func orderFrom(refs domain.OrderRefs, typ domain.OrderType, c *domain.CheckoutState) *domain.Order {
	return &domain.Order{
		ID:               refs.OrderID,
		Type:             typ,
		UserID:           refs.UserID,
		Items:            domain.CloneItems(c.Items),
		Subtotal:         c.Subtotal,
		Shipping:         c.Shipping,
		ShippingDiscount: c.ShippingDiscount,
		ItemDiscount:     c.ItemDiscount,
		Total:            c.Total,
		AppliedOffers:    append([]string(nil), c.AppliedOffers...),
		Payment:          domain.Payment{Status: domain.PaymentPending},
		BillTo:           *c.BillTo,
		BillToID:         refs.BillToID,
		Shipment:         domain.Shipment{Status: domain.ShipmentPaymentPending, AddressID: refs.ShipToID},
	}
}

// memNotifier records paid orders.
type memNotifier struct {
	paid []uuid.UUID
}

func (m *memNotifier) OrderPaid(ctx context.Context, orderID uuid.UUID) error {
	m.paid = append(m.paid, orderID)
	return nil
}

// ============================================================================
// Test harness
// ============================================================================

const (
	skuShirt = "SHIRTBLUE000001"
	skuMug   = "MUGWHITE0000001"
	skuCap   = "CAPBLACK0000001"
)

type harness struct {
	inventory *memInventory
	userCarts *memUserCarts
	users     *memUsers
	offers    *memOffers
	orders    *memOrders
	postal    *postal.MockFetcher
	payments  *billing.MockProvider
	notifier  *memNotifier

	cart        domain.CartService
	reservation domain.InventoryService
	order       domain.OrderService
	checkout    domain.CheckoutService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		inventory: newMemInventory(),
		users:     newMemUsers(),
		offers:    &memOffers{},
		postal:    postal.NewMockFetcher(),
		payments:  billing.NewMockProvider(),
		notifier:  &memNotifier{},
	}
	h.userCarts = newMemUserCarts(h.inventory)
	h.orders = newMemOrders(h.inventory)

	h.inventory.add(skuShirt, "100", "18", 10)
	h.inventory.add(skuMug, "250", "12", 3)
	h.inventory.add(skuCap, "400", "12", 0)

	h.postal.Records["400020"] = domain.PostalRecord{PostalCode: "400020", District: "Mumbai", State: "Maharashtra"}
	h.postal.Records["560001"] = domain.PostalRecord{PostalCode: "560001", District: "Bangalore", State: "Karnataka"}
	h.postal.Records["682001"] = domain.PostalRecord{PostalCode: "682001", District: "Ernakulam", State: "Kerala"}

	table, err := shipping.NewTable("MAHARASHTRA", shipping.NeighbourStates, shipping.DefaultRates)
	require.NoError(t, err)

	logger := discardLogger()
	lookup := postal.NewService(cache.New(), nil, h.postal, logger)

	h.cart = NewCartService(h.inventory, h.userCarts)
	h.reservation = NewInventoryService(h.inventory, logger)
	h.order = NewOrderService(h.orders, h.inventory, h.payments, table, h.notifier, "INR", logger)
	h.checkout = NewCheckoutService(
		h.cart,
		h.reservation,
		h.order,
		h.users,
		NewOfferCatalog(h.offers, cache.New(), time.Minute),
		lookup,
		pricing.NewEngine(table),
		validate.New(),
		h.payments,
		logger,
	)
	return h
}

func (h *harness) addOffer(o domain.Offer) {
	o.StartAt = time.Now().Add(-time.Hour)
	o.ExpiryAt = time.Now().Add(time.Hour)
	h.offers.offers = append(h.offers.offers, o)
}

func guestSession(items ...domain.CartItem) *domain.SessionContext {
	return &domain.SessionContext{ID: "sess-" + uuid.NewString(), Cart: items}
}

func (h *harness) line(sku string, qty int) domain.CartItem {
	v := h.inventory.variants[sku]
	return v.CartItem(qty)
}

func guestDetails(state string) domain.DetailsInput {
	in := domain.DetailsInput{
		FName:      "Asha",
		LName:      "Rao",
		Email:      "asha@example.com",
		Tel:        "9876543210",
		SameShipTo: true,
	}
	switch state {
	case "Karnataka":
		in.BillTo = domain.Address{Name: "Asha Rao", StreetAddress: "14 MG Road, Shivajinagar", PostalCode: "560001", Region: "Bangalore", State: "Karnataka"}
	case "Kerala":
		in.BillTo = domain.Address{Name: "Asha Rao", StreetAddress: "7 Broadway, Marine Drive", PostalCode: "682001", Region: "Ernakulam", State: "Kerala"}
	default:
		in.BillTo = domain.Address{Name: "Asha Rao", StreetAddress: "12 Marine Drive, Churchgate", PostalCode: "400020", Region: "Mumbai", State: "Maharashtra"}
	}
	return in
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
