package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fusionx/internal/domain"
)

func TestOrderService_GetOrder_Visibility(t *testing.T) {
	h := newHarness(t)
	sess := guestSession(h.line(skuShirt, 2))
	po := h.toPending(t, sess, "Maharashtra")
	owner := h.orders.orders[po.OrderID].UserID
	ctx := context.Background()

	tests := []struct {
		name    string
		sess    *domain.SessionContext
		orderID uuid.UUID
		wantErr error
	}{
		{"session that placed it", sess, po.OrderID, nil},
		{"owning account", &domain.SessionContext{ID: "other", UserID: owner}, po.OrderID, nil},
		{"another guest", guestSession(), po.OrderID, domain.ErrOrderNotFound},
		{"another account", &domain.SessionContext{ID: "other", UserID: uuid.New()}, po.OrderID, domain.ErrOrderNotFound},
		{"missing order", sess, uuid.New(), domain.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := h.order.GetOrder(ctx, tt.sess, tt.orderID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, po.OrderID, order.ID)
			assertDec(t, "240", order.Total, "total")
		})
	}
}

func TestOrderService_UpdateOrder_NothingPending(t *testing.T) {
	h := newHarness(t)
	sess := guestSession(h.line(skuShirt, 2))
	h.toDetails(t, sess, "Maharashtra")

	_, err := h.order.UpdateOrder(context.Background(), sess)

	assert.ErrorIs(t, err, ErrNoPendingOrder)
}

func TestOrderService_Finalize_NothingPending(t *testing.T) {
	h := newHarness(t)
	sess := guestSession(h.line(skuShirt, 2))
	h.toDetails(t, sess, "Maharashtra")

	res, err := h.order.Finalize(context.Background(), sess, domain.FinalizeInput{OrderID: uuid.New(), PaymentID: "pay_1", Signature: "sig"})

	assert.ErrorIs(t, err, ErrNoPendingOrder)
	assert.False(t, res.Success)
}

func TestOrderService_StoreFailuresAreHidden(t *testing.T) {
	storeErr := errors.New("tx aborted")

	tests := []struct {
		name string
		run  func(h *harness, sess *domain.SessionContext) error
	}{
		{
			name: "create",
			run: func(h *harness, sess *domain.SessionContext) error {
				h.orders.createErr = storeErr
				_, err := h.order.CreateOrder(context.Background(), sess)
				return err
			},
		},
		{
			name: "update",
			run: func(h *harness, sess *domain.SessionContext) error {
				_, err := h.order.CreateOrder(context.Background(), sess)
				if err != nil {
					return err
				}
				h.orders.updateErr = storeErr
				_, err = h.order.UpdateOrder(context.Background(), sess)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			sess := guestSession(h.line(skuShirt, 2))
			h.toDetails(t, sess, "Maharashtra")

			err := tt.run(h, sess)

			assert.ErrorIs(t, err, storeErr)
			assert.ErrorIs(t, err, ErrOrderProcessing)
			assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
			assert.Equal(t, domain.OrderErrorMessage, domain.ErrorMessage(err))
		})
	}
}

func TestOrderService_Finalize_SideEffectFailuresKeepPayment(t *testing.T) {
	h := newHarness(t)
	h.inventory.rebalanceErr = errors.New("deadlock detected")
	sess := guestSession(h.line(skuShirt, 2))
	po := h.toPending(t, sess, "Maharashtra")

	res, err := h.order.Finalize(context.Background(), sess, domain.FinalizeInput{OrderID: po.OrderID, PaymentID: "pay_9", Signature: "sig"})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.PaymentPaid, h.orders.orders[po.OrderID].Payment.Status)
	assert.Equal(t, []uuid.UUID{po.OrderID}, h.notifier.paid)
}
