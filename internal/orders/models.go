package orders

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Address struct {
	Street  string `json:"street" validate:"notblank,max=200"`
	City    string `json:"city" validate:"notblank,max=100"`
	State   string `json:"state" validate:"notblank,max=100"`
	ZipCode string `json:"zipCode" validate:"notblank,max=20"`
	Country string `json:"country" validate:"notblank,max=100"`
}

type CustomerInfo struct {
	Name            string  `json:"name" validate:"notblank,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	Phone           string  `json:"phone" validate:"notblank,min=10,max=20"`
	ShippingAddress Address `json:"shippingAddress"`
}

// OrderItem is a line of an order. Price is the unit price captured when the
// order was placed; Subtotal is always Quantity * Price.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewOrderItem(productID string, qty int, price decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID: productID,
		Quantity:  qty,
		Price:     price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

type Order struct {
	ID             string          `json:"id"`
	CustomerInfo   CustomerInfo    `json:"customerInfo"`
	Items          []OrderItem     `json:"items"`
	Status         Status          `json:"status"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TrackingNumber string          `json:"trackingNumber"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`

	// Version counts committed mutations; the status cache uses it to drop
	// stale writes.
	Version int `json:"-"`
}

// ItemRequest is a requested order line before reservation.
type ItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=2147483647"`
}

// StatusView is the read-only status projection of an order.
type StatusView struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	TrackingNumber string    `json:"trackingNumber"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (o Order) StatusView() StatusView {
	return StatusView{
		ID:             o.ID,
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (o Order) clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func calculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}
