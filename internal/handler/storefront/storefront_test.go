package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/middleware"
)

const skuShirt = "SHIRTBLUE000001"

type fakeCart struct {
	domain.CartService
	added struct {
		sku string
		qty int
	}
	err error
}

func (f *fakeCart) AddItem(ctx context.Context, sess *domain.SessionContext, sku string, qty int) ([]domain.CartItem, error) {
	f.added.sku, f.added.qty = sku, qty
	if f.err != nil {
		return nil, f.err
	}
	sess.Cart = append(sess.Cart, domain.CartItem{SKU: sku, Qty: qty})
	return sess.Cart, nil
}

func (f *fakeCart) GetCart(ctx context.Context, sess *domain.SessionContext) ([]domain.CartItem, error) {
	return sess.Cart, nil
}

type fakeCheckout struct {
	domain.CheckoutService
	details  domain.DetailsInput
	finalize domain.FinalizeInput
	offer    string
	err      error
}

func (f *fakeCheckout) SubmitDetails(ctx context.Context, sess *domain.SessionContext, in domain.DetailsInput) (*domain.PricedCheckout, error) {
	f.details = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PricedCheckout{
		Checkout: &domain.CheckoutState{Stage: domain.StageDetailsEntered, Total: decimal.NewFromInt(240)},
		Offers:   []domain.Offer{},
		Repriced: true,
	}, nil
}

func (f *fakeCheckout) ApplyOffer(ctx context.Context, sess *domain.SessionContext, code string) (*domain.CheckoutState, error) {
	f.offer = code
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CheckoutState{AppliedOffers: []string{code}}, nil
}

func (f *fakeCheckout) Finalize(ctx context.Context, sess *domain.SessionContext, in domain.FinalizeInput) (*domain.FinalizeResult, error) {
	f.finalize = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FinalizeResult{Success: true, OrderID: in.OrderID, DeliveryDate: "Tue, 14 May 2024"}, nil
}

type fakeOrders struct {
	domain.OrderService
	order *domain.Order
}

func (f *fakeOrders) GetOrder(ctx context.Context, sess *domain.SessionContext, id uuid.UUID) (*domain.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, domain.ErrOrderNotFound
	}
	return f.order, nil
}

type fakeAddresses struct {
	domain.AddressService
	setFor, setAddr uuid.UUID
}

func (f *fakeAddresses) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	f.setFor, f.setAddr = userID, addressID
	return nil
}

func jsonRequest(method, target, body string, sess *domain.SessionContext) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.SessionContextKey, sess))
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error.Code
}

func TestCartHandler_Add(t *testing.T) {
	cart := &fakeCart{}
	h := NewCartHandler(cart)
	sess := &domain.SessionContext{ID: "s1"}

	rec := httptest.NewRecorder()
	h.Add(rec, jsonRequest(http.MethodPost, "/cart/add", `{"sku":"`+skuShirt+`","qty":2}`, sess))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, skuShirt, cart.added.sku)
	assert.Equal(t, 2, cart.added.qty)

	var body cartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Items, 1)
}

func TestCartHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		sess       *domain.SessionContext
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no session", nil, `{}`, nil, http.StatusInternalServerError, domain.EINTERNAL},
		{"bad json", &domain.SessionContext{ID: "s1"}, `{"sku":`, nil, http.StatusBadRequest, domain.EINVALID},
		{"out of stock", &domain.SessionContext{ID: "s1"}, `{"sku":"` + skuShirt + `","qty":1}`, domain.ErrOutOfStock, http.StatusConflict, domain.ECONFLICT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCartHandler(&fakeCart{err: tt.err})
			rec := httptest.NewRecorder()
			h.Add(rec, jsonRequest(http.MethodPost, "/cart/add", tt.body, tt.sess))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

func TestCheckoutHandler_SubmitDetails(t *testing.T) {
	checkout := &fakeCheckout{}
	h := NewCheckoutHandler(checkout, nil)
	shipTo := uuid.New()

	body := `{
		"given-name": "Asha", "family-name": "Rao", "email": "asha@example.com", "tel-local": "9876543210",
		"billto": {"name": "Asha Rao", "street-address": "12 Marine Drive, Churchgate", "postal-code": "400020",
		           "address-level2": "Mumbai", "address-level1": "Maharashtra"},
		"same-shipto": false,
		"shipto-id": "` + shipTo.String() + `"
	}`

	rec := httptest.NewRecorder()
	h.SubmitDetails(rec, jsonRequest(http.MethodPost, "/checkout", body, &domain.SessionContext{ID: "s1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	in := checkout.details
	assert.Equal(t, "Asha", in.FName)
	assert.Equal(t, "9876543210", in.Tel)
	assert.Equal(t, "12 Marine Drive, Churchgate", in.BillTo.StreetAddress)
	assert.Equal(t, "Mumbai", in.BillTo.Region)
	assert.Equal(t, "Maharashtra", in.BillTo.State)
	assert.Equal(t, shipTo, in.ShipToID)
	assert.Contains(t, rec.Body.String(), `"stage":"DETAILS_ENTERED"`)
}

func TestCheckoutHandler_SubmitDetails_ValidationFields(t *testing.T) {
	checkout := &fakeCheckout{err: domain.NewValidationError("checkout.details", "billto-postal-code", "Not a valid Pincode")}
	h := NewCheckoutHandler(checkout, nil)

	rec := httptest.NewRecorder()
	h.SubmitDetails(rec, jsonRequest(http.MethodPost, "/checkout", `{"given-name":"Asha"}`, &domain.SessionContext{ID: "s1"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"invalid","message":"Please correct the highlighted fields.","fields":{"billto-postal-code":"Not a valid Pincode"}}}`, rec.Body.String())
}

func TestCheckoutHandler_SubmitDetails_BadShipToID(t *testing.T) {
	checkout := &fakeCheckout{}
	h := NewCheckoutHandler(checkout, nil)

	rec := httptest.NewRecorder()
	h.SubmitDetails(rec, jsonRequest(http.MethodPost, "/checkout", `{"shipto-id":"office"}`, &domain.SessionContext{ID: "s1"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, checkout.details.FName, "service not called")
}

func TestCheckoutHandler_ApplyOffer(t *testing.T) {
	checkout := &fakeCheckout{}
	h := NewCheckoutHandler(checkout, nil)

	rec := httptest.NewRecorder()
	h.ApplyOffer(rec, jsonRequest(http.MethodPost, "/checkout/offer", `{"code":"shirt10"}`, &domain.SessionContext{ID: "s1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shirt10", checkout.offer)
}

func TestCheckoutHandler_Finalize(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name       string
		pathID     string
		err        error
		wantStatus int
	}{
		{"paid", orderID.String(), nil, http.StatusOK},
		{"malformed order id", "not-a-uuid", nil, http.StatusBadRequest},
		{"bad signature", orderID.String(), &domain.Error{Code: domain.EPAYMENT, Message: "Payment could not be verified"}, http.StatusPaymentRequired},
		{"pipeline failure", orderID.String(), domain.ErrOrderProcessing, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := &fakeCheckout{err: tt.err}
			h := NewCheckoutHandler(checkout, nil)

			req := jsonRequest(http.MethodPost, "/checkout/"+tt.pathID,
				`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"abc"}`,
				&domain.SessionContext{ID: "s1"})
			req.SetPathValue("orderId", tt.pathID)
			rec := httptest.NewRecorder()
			h.Finalize(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, domain.FinalizeInput{
					OrderID:         orderID,
					PaymentID:       "pay_1",
					ProviderOrderID: "order_1",
					Signature:       "abc",
				}, checkout.finalize)
				assert.Contains(t, rec.Body.String(), `"deliveryDate":"Tue, 14 May 2024"`)
			}
		})
	}
}

func TestOrderHandler_Show(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), Total: decimal.NewFromInt(240), Payment: domain.Payment{Status: domain.PaymentPaid}}
	h := NewOrderHandler(&fakeOrders{order: order})

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", order.ID.String(), http.StatusOK},
		{"someone else's", uuid.NewString(), http.StatusNotFound},
		{"malformed", "42", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(http.MethodGet, "/orders/"+tt.id, "", &domain.SessionContext{ID: "s1"})
			req.SetPathValue("orderId", tt.id)
			rec := httptest.NewRecorder()
			h.Show(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAddressHandler_SetDefault(t *testing.T) {
	addresses := &fakeAddresses{}
	h := NewAddressHandler(addresses)
	userID := uuid.New()
	addrID := uuid.New()
	sess := &domain.SessionContext{
		ID:        "s1",
		UserID:    userID,
		User:      &domain.User{ID: userID},
		Addresses: []domain.Address{{ID: addrID}},
	}

	req := jsonRequest(http.MethodPost, "/account/addresses/"+addrID.String()+"/default", "", sess)
	req.SetPathValue("id", addrID.String())
	rec := httptest.NewRecorder()
	h.SetDefault(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, addresses.setFor)
	assert.Equal(t, addrID, addresses.setAddr)
	assert.Nil(t, sess.User, "cached customer is dropped")
	assert.Nil(t, sess.Addresses)
}

func TestFakePayHandler_Pay(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewFakeProvider("fake_key", "fake_secret")
	po, err := provider.CreateOrder(ctx, billing.CreateOrderParams{Amount: decimal.NewFromInt(240), Currency: "INR"})
	require.NoError(t, err)

	h := NewFakePayHandler(provider)
	sess := &domain.SessionContext{ID: "s1", Order: &domain.SessionOrder{PaymentOrderID: po.ID}}

	rec := httptest.NewRecorder()
	h.Pay(rec, jsonRequest(http.MethodPost, "/fakepay/pay", "", sess))
	require.Equal(t, http.StatusOK, rec.Code)

	// The body is exactly what the finalize route accepts.
	var callback finalizeRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&callback))
	assert.Equal(t, po.ID, callback.ProviderOrderID)
	assert.NoError(t, provider.VerifyPayment(ctx, billing.VerifyPaymentParams{
		ProviderOrderID: callback.ProviderOrderID,
		PaymentID:       callback.PaymentID,
		Signature:       callback.Signature,
	}))

	rec = httptest.NewRecorder()
	h.Pay(rec, jsonRequest(http.MethodPost, "/fakepay/pay", "", sess))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Pay(rec, jsonRequest(http.MethodPost, "/fakepay/pay", "", &domain.SessionContext{ID: "s2"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid", errorCode(t, rec))
}
