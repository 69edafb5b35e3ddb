//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/migrations"
)

// testPool connects to TEST_DATABASE_URL from .env.test and brings the
// schema up to date. Every test works on its own skus and emails so runs
// can share one database.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if err := godotenv.Load("../../.env.test"); err != nil {
		t.Skipf("Skipping integration test: .env.test not found (%v)", err)
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set in .env.test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.MigrationsFS)
	require.NoError(t, err)
	_, err = provider.Up(ctx)
	require.NoError(t, err)

	return pool
}

func newSKU() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:15]
}

func seedVariant(t *testing.T, pool *pgxpool.Pool, qty int) string {
	t.Helper()
	sku := newSKU()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO product_variants (sku, title, price, gst, qty) VALUES ($1, 'Test tee', 499, 12, $2)`,
		sku, qty)
	require.NoError(t, err)
	return sku
}

func stockOf(t *testing.T, pool *pgxpool.Pool, sku string) int {
	t.Helper()
	var qty int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT qty FROM product_variants WHERE sku = $1`, sku).Scan(&qty))
	return qty
}

func guestCheckout(email, sku string, billTo *domain.Address) *domain.CheckoutState {
	price := decimal.NewFromInt(499)
	return &domain.CheckoutState{
		Items:    []domain.CartItem{{SKU: sku, Title: "Test tee", Price: price, GST: decimal.NewFromInt(12), Qty: 1, Total: price}},
		BillTo:   billTo,
		User:     domain.Contact{FName: "Asha", LName: "Rao", Email: email, Tel: "9876543210"},
		Subtotal: price,
		Shipping: decimal.NewFromInt(70),
		Total:    price.Add(decimal.NewFromInt(70)),
		Stage:    domain.StageDetailsEntered,
	}
}

func address(street string) *domain.Address {
	return &domain.Address{
		Name:          "Asha Rao",
		StreetAddress: street,
		PostalCode:    "400020",
		Region:        "Mumbai",
		State:         "Maharashtra",
	}
}

func TestInventoryStore_ReserveLastUnit(t *testing.T) {
	pool := testPool(t)
	store := NewInventoryStore(pool)
	sku := seedVariant(t, pool, 1)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, session := range []string{"race-a-" + sku, "race-b-" + sku} {
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			ok, err := store.Reserve(context.Background(), sku, 1, session)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(session)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, stockOf(t, pool, sku))

	var held int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM reservations WHERE sku = $1`, sku).Scan(&held))
	assert.Equal(t, 1, held)
}

func TestInventoryStore_ReleaseRestoresStock(t *testing.T) {
	pool := testPool(t)
	store := NewInventoryStore(pool)
	sku := seedVariant(t, pool, 5)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, sku, 3, "release-"+sku)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, stockOf(t, pool, sku))

	released, err := store.Release(ctx, sku, "release-"+sku)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, 5, stockOf(t, pool, sku))

	released, err = store.Release(ctx, sku, "release-"+sku)
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, 5, stockOf(t, pool, sku))
}

func TestInventoryStore_StaleReservationsSkipsLiveSessions(t *testing.T) {
	pool := testPool(t)
	store := NewInventoryStore(pool)
	sessions := NewSessionStore(pool)
	sku := seedVariant(t, pool, 4)
	ctx := context.Background()

	live := "live-" + sku
	require.NoError(t, sessions.Save(ctx, &domain.SessionContext{ID: live, ExpiresAt: time.Now().Add(time.Hour)}))
	expired := "expired-" + sku
	require.NoError(t, sessions.Save(ctx, &domain.SessionContext{ID: expired, ExpiresAt: time.Now().Add(-time.Minute)}))
	gone := "gone-" + sku

	for _, session := range []string{live, expired, gone} {
		ok, err := store.Reserve(ctx, sku, 1, session)
		require.NoError(t, err)
		require.True(t, ok)
	}

	stale, err := store.StaleReservations(ctx, time.Now().Add(time.Minute), 1000)
	require.NoError(t, err)

	var swept []string
	for _, r := range stale {
		if r.SKU == sku {
			swept = append(swept, r.SessionID)
		}
	}
	assert.ElementsMatch(t, []string{expired, gone}, swept)
}

func TestOrderStore_FinalizeWithoutReservation(t *testing.T) {
	pool := testPool(t)
	orders := NewOrderStore(pool)
	sku := seedVariant(t, pool, 2)
	ctx := context.Background()

	email := "finalize-" + sku + "@example.com"
	refs, err := orders.CreateOrder(ctx, domain.CreateOrderParams{
		Checkout:        guestCheckout(email, sku, address("12 Marine Drive")),
		Type:            domain.OrderTypeGuest,
		PaymentProvider: "fakepay",
	})
	require.NoError(t, err)

	err = orders.Finalize(ctx, domain.FinalizeParams{
		SessionID: "no-holds-" + sku,
		SKUs:      []string{sku},
		OrderID:   refs.OrderID,
		PaymentID: "pay_test",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreserveFailed)

	order, err := orders.GetOrder(ctx, refs.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, order.Payment.Status)
	assert.Empty(t, order.Payment.ID)
	assert.Equal(t, 2, stockOf(t, pool, sku))
}

func TestOrderStore_FinalizeConsumesReservation(t *testing.T) {
	pool := testPool(t)
	inventory := NewInventoryStore(pool)
	orders := NewOrderStore(pool)
	sku := seedVariant(t, pool, 2)
	ctx := context.Background()
	session := "pay-" + sku

	ok, err := inventory.Reserve(ctx, sku, 1, session)
	require.NoError(t, err)
	require.True(t, ok)

	refs, err := orders.CreateOrder(ctx, domain.CreateOrderParams{
		Checkout:        guestCheckout("pay-"+sku+"@example.com", sku, address("12 Marine Drive")),
		Type:            domain.OrderTypeGuest,
		PaymentProvider: "fakepay",
	})
	require.NoError(t, err)

	require.NoError(t, orders.Finalize(ctx, domain.FinalizeParams{
		SessionID: session,
		SKUs:      []string{sku},
		OrderID:   refs.OrderID,
		PaymentID: "pay_test",
	}))

	order, err := orders.GetOrder(ctx, refs.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, order.Payment.Status)
	assert.Equal(t, domain.ShipmentProcessing, order.Shipment.Status)

	held, err := inventory.ReservationsFor(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, held)
	// Sold units do not come back.
	assert.Equal(t, 1, stockOf(t, pool, sku))
}

func TestOrderStore_UpdateKeepsEarlierOrderAddress(t *testing.T) {
	pool := testPool(t)
	inventory := NewInventoryStore(pool)
	orders := NewOrderStore(pool)
	sku := seedVariant(t, pool, 5)
	ctx := context.Background()
	email := "shared-" + sku + "@example.com"

	first := "first-" + sku
	ok, err := inventory.Reserve(ctx, sku, 1, first)
	require.NoError(t, err)
	require.True(t, ok)

	paid, err := orders.CreateOrder(ctx, domain.CreateOrderParams{
		Checkout:        guestCheckout(email, sku, address("12 Marine Drive")),
		Type:            domain.OrderTypeGuest,
		PaymentProvider: "fakepay",
	})
	require.NoError(t, err)
	require.NoError(t, orders.Finalize(ctx, domain.FinalizeParams{
		SessionID: first, SKUs: []string{sku}, OrderID: paid.OrderID, PaymentID: "pay_first",
	}))

	pending, err := orders.CreateOrder(ctx, domain.CreateOrderParams{
		Checkout:        guestCheckout(email, sku, address("12 Marine Drive")),
		Type:            domain.OrderTypeGuest,
		PaymentProvider: "fakepay",
	})
	require.NoError(t, err)
	require.Equal(t, paid.ShipToID, pending.ShipToID, "same customer and address share one row")

	updated, err := orders.UpdateOrder(ctx, domain.UpdateOrderParams{
		Checkout: guestCheckout(email, sku, address("7 Carter Road")),
		Type:     domain.OrderTypeGuest,
		Refs:     *pending,
	})
	require.NoError(t, err)
	assert.NotEqual(t, paid.ShipToID, updated.ShipToID)

	earlier, err := orders.GetOrder(ctx, paid.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "12 Marine Drive", earlier.Shipment.Address.StreetAddress)
	assert.Equal(t, "12 Marine Drive", earlier.BillTo.StreetAddress)

	later, err := orders.GetOrder(ctx, pending.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "7 Carter Road", later.Shipment.Address.StreetAddress)

	// Switching back reuses the original row instead of inserting a copy.
	reverted, err := orders.UpdateOrder(ctx, domain.UpdateOrderParams{
		Checkout: guestCheckout(email, sku, address("12 Marine Drive")),
		Type:     domain.OrderTypeGuest,
		Refs:     *updated,
	})
	require.NoError(t, err)
	assert.Equal(t, paid.ShipToID, reverted.ShipToID)
}
