package model

import (
	"time"
)

// User is a customer account record.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderItem is one line of an order.
type OrderItem struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Order is a purchase record.
type Order struct {
	ID                string      `json:"id"`
	UserID            string      `json:"userId"`
	OrderNumber       string      `json:"orderNumber"`
	Status            OrderStatus `json:"status"`
	TotalAmount       float64     `json:"totalAmount"`
	ShippingAddress   string      `json:"shippingAddress"`
	TrackingNumber    string      `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	Items             []OrderItem `json:"items,omitempty"`
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// RefundStatus tracks a refund request attached to a payment. The empty
// string means no refund has ever been requested.
type RefundStatus string

const (
	RefundRequested  RefundStatus = "requested"
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
	RefundRejected   RefundStatus = "rejected"
)

// Payment is an invoice/payment record.
type Payment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	PaymentMethod string        `json:"paymentMethod"`
	RefundStatus  RefundStatus  `json:"refundStatus,omitempty"`
	RefundAmount  *float64      `json:"refundAmount,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// FAQ is a knowledge-base entry searched by the support agent.
type FAQ struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}
