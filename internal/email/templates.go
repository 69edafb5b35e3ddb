package email

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// OrderConfirmationEmail is sent once a payment has been verified.
type OrderConfirmationEmail struct {
	To               string
	OrderNumber      string
	CustomerName     string
	OrderDate        time.Time
	DeliveryDate     string
	Items            []OrderItem
	Subtotal         decimal.Decimal
	Shipping         decimal.Decimal
	ShippingDiscount decimal.Decimal
	ItemDiscount     decimal.Decimal
	Total            decimal.Decimal
	ShippingAddr     Address
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + e.OrderNumber
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation"
}

// OrderItem is one line of an order email.
type OrderItem struct {
	SKU   string
	Title string
	Qty   int
	Total decimal.Decimal
}

// Address is a postal address as printed in emails.
type Address struct {
	Name       string
	Street     string
	Region     string
	State      string
	PostalCode string
}
