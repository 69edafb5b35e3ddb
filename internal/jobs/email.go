package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/email"
	"github.com/dukerupert/fusionx/internal/shipping"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// Job type constants for email jobs
const (
	JobTypeOrderConfirmation = "email:order_confirmation"
)

// OrderConfirmationPayload represents the payload for an order confirmation email job.
// The order is loaded when the job runs so the mail shows the committed state.
type OrderConfirmationPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

// EnqueueOrderConfirmationEmail enqueues an order confirmation email job
func EnqueueOrderConfirmationEmail(ctx context.Context, q domain.JobStore, payload OrderConfirmationPayload) error {
	return enqueue(ctx, q, domain.EnqueueJobParams{
		Type:           JobTypeOrderConfirmation,
		Queue:          QueueEmail,
		MaxAttempts:    3,
		TimeoutSeconds: 30,
	}, payload)
}

// OrderNotifier enqueues the confirmation mail of paid orders.
type OrderNotifier struct {
	jobs domain.JobStore
}

// NewOrderNotifier creates a notifier backed by the job queue.
func NewOrderNotifier(q domain.JobStore) *OrderNotifier {
	return &OrderNotifier{jobs: q}
}

// OrderPaid schedules the order confirmation email.
func (n *OrderNotifier) OrderPaid(ctx context.Context, orderID uuid.UUID) error {
	return EnqueueOrderConfirmationEmail(ctx, n.jobs, OrderConfirmationPayload{OrderID: orderID})
}

// ProcessEmailJob processes an email job based on its type
func ProcessEmailJob(ctx context.Context, job *domain.Job, emailService *email.Service, orders domain.OrderStore, users domain.UserStore) error {
	if emailService == nil {
		return fmt.Errorf("email is disabled, dropping %s job", job.Type)
	}

	switch job.Type {
	case JobTypeOrderConfirmation:
		payload, err := decode[OrderConfirmationPayload](job)
		if err != nil {
			return err
		}

		order, err := orders.GetOrder(ctx, payload.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load order %s: %w", payload.OrderID, err)
		}
		if order.Payment.Status != domain.PaymentPaid {
			return fmt.Errorf("order %s is not paid", order.ID)
		}

		user, err := users.GetUser(ctx, order.UserID)
		if err != nil {
			return fmt.Errorf("failed to load customer of order %s: %w", order.ID, err)
		}

		err = emailService.SendOrderConfirmation(ctx, orderConfirmation(order, user))
		countEmail("order_confirmation", err)
		return err

	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func orderConfirmation(order *domain.Order, user *domain.User) email.OrderConfirmationEmail {
	name := order.BillTo.Name
	if name == "" {
		name = user.Contact().FullName()
	}

	items := make([]email.OrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, email.OrderItem{SKU: it.SKU, Title: it.Title, Qty: it.Qty, Total: it.Total})
	}

	shipTo := order.BillTo
	if order.Shipment.Address != nil {
		shipTo = *order.Shipment.Address
	}

	var delivery string
	if order.Shipment.DeliveryDate != nil {
		delivery = shipping.FormatDate(*order.Shipment.DeliveryDate)
	}

	return email.OrderConfirmationEmail{
		To:               user.Email,
		OrderNumber:      order.ID.String(),
		CustomerName:     name,
		OrderDate:        order.CreatedAt,
		DeliveryDate:     delivery,
		Items:            items,
		Subtotal:         order.Subtotal,
		Shipping:         order.Shipping,
		ShippingDiscount: order.ShippingDiscount,
		ItemDiscount:     order.ItemDiscount,
		Total:            order.Total,
		ShippingAddr: email.Address{
			Name:       shipTo.Name,
			Street:     shipTo.StreetAddress,
			Region:     shipTo.Region,
			State:      shipTo.State,
			PostalCode: shipTo.PostalCode,
		},
	}
}

func countEmail(template string, err error) {
	if telemetry.Business == nil {
		return
	}
	if err != nil {
		telemetry.Business.EmailFailed.WithLabelValues(template).Inc()
		return
	}
	telemetry.Business.EmailSent.WithLabelValues(template).Inc()
}

// IsEmailJob checks if a job type is an email job
func IsEmailJob(jobType string) bool {
	return jobType == JobTypeOrderConfirmation
}
