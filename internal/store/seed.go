package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swadesai/support-agents/internal/model"
)

// DemoUserID is the fixed id the web client uses before sign-in.
const DemoUserID = "demo-user-001"

// Seed populates an empty database with the demo dataset: users, orders,
// payments and FAQs. It is a no-op when users already exist.
func (s *Store) Seed(ctx context.Context) error {
	var users int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if users > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())

	type seedUser struct{ id, email, name string }
	seedUsers := []seedUser{
		{DemoUserID, "demo@swadesai.com", "Demo User"},
		{newID(), "john.doe@example.com", "John Doe"},
		{newID(), "jane.smith@example.com", "Jane Smith"},
		{newID(), "bob.wilson@example.com", "Bob Wilson"},
		{newID(), "alice.johnson@example.com", "Alice Johnson"},
		{newID(), "charlie.brown@example.com", "Charlie Brown"},
	}
	for _, u := range seedUsers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)
		`, u.id, u.email, u.name, now); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.email, err)
		}
	}

	// seedUsers[1..5] correspond to users[0..4] of the demo dataset.
	john, jane, bob, alice, charlie := seedUsers[1].id, seedUsers[2].id, seedUsers[3].id, seedUsers[4].id, seedUsers[5].id

	type seedOrder struct {
		userID      string
		number      string
		status      model.OrderStatus
		total       float64
		address     string
		tracking    string
		delivery    string
		items       []model.OrderItem
	}
	seedOrders := []seedOrder{
		{john, "ORD-2024-001", model.OrderDelivered, 299.99, "123 Main St, New York, NY 10001",
			"TRK123456789", "2024-01-15", []model.OrderItem{
				{ProductName: "Wireless Headphones", Quantity: 1, Price: 199.99},
				{ProductName: "Phone Case", Quantity: 2, Price: 50.00},
			}},
		{john, "ORD-2024-002", model.OrderShipped, 549.99, "123 Main St, New York, NY 10001",
			"TRK987654321", "2024-02-20", []model.OrderItem{
				{ProductName: "Smart Watch", Quantity: 1, Price: 449.99},
				{ProductName: "Watch Band", Quantity: 1, Price: 100.00},
			}},
		{jane, "ORD-2024-003", model.OrderProcessing, 129.99, "456 Oak Ave, Los Angeles, CA 90001",
			"", "", []model.OrderItem{
				{ProductName: "Bluetooth Speaker", Quantity: 1, Price: 129.99},
			}},
		{jane, "ORD-2024-004", model.OrderPending, 89.99, "456 Oak Ave, Los Angeles, CA 90001",
			"", "", []model.OrderItem{
				{ProductName: "USB-C Cable Pack", Quantity: 3, Price: 29.99},
			}},
		{bob, "ORD-2024-005", model.OrderCancelled, 999.99, "789 Pine Rd, Chicago, IL 60601",
			"", "", []model.OrderItem{
				{ProductName: "Laptop Stand", Quantity: 1, Price: 149.99},
				{ProductName: "Mechanical Keyboard", Quantity: 1, Price: 850.00},
			}},
		{bob, "ORD-2024-006", model.OrderDelivered, 79.99, "789 Pine Rd, Chicago, IL 60601",
			"TRK456789123", "2024-01-10", []model.OrderItem{
				{ProductName: "Mouse Pad XL", Quantity: 1, Price: 39.99},
				{ProductName: "Webcam Cover", Quantity: 2, Price: 20.00},
			}},
		{alice, "ORD-2024-007", model.OrderShipped, 199.99, "321 Elm St, Houston, TX 77001",
			"TRK321654987", "2024-02-25", []model.OrderItem{
				{ProductName: "Wireless Mouse", Quantity: 1, Price: 79.99},
				{ProductName: "Desk Organizer", Quantity: 1, Price: 120.00},
			}},
		{charlie, "ORD-2024-008", model.OrderProcessing, 349.99, "654 Maple Dr, Phoenix, AZ 85001",
			"", "", []model.OrderItem{
				{ProductName: "Monitor Light Bar", Quantity: 1, Price: 149.99},
				{ProductName: "Ergonomic Chair Cushion", Quantity: 1, Price: 200.00},
			}},
	}
	for _, o := range seedOrders {
		orderID := newID()
		var tracking, delivery any
		if o.tracking != "" {
			tracking = o.tracking
		}
		if o.delivery != "" {
			t, err := time.Parse("2006-01-02", o.delivery)
			if err != nil {
				return fmt.Errorf("bad seed delivery date %q: %w", o.delivery, err)
			}
			delivery = formatTime(t)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, order_number, status, total_amount,
				shipping_address, tracking_number, estimated_delivery, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, orderID, o.userID, o.number, o.status, o.total, o.address, tracking, delivery, now, now); err != nil {
			return fmt.Errorf("failed to seed order %s: %w", o.number, err)
		}
		for _, item := range o.items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_name, quantity, price)
				VALUES (?, ?, ?, ?)
			`, orderID, item.ProductName, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("failed to seed order item: %w", err)
			}
		}
	}

	type seedPayment struct {
		userID       string
		invoice      string
		amount       float64
		status       model.PaymentStatus
		method       string
		refundStatus model.RefundStatus
		refundAmount float64
	}
	seedPayments := []seedPayment{
		{john, "INV-2024-001", 299.99, model.PaymentPaid, "credit_card", "", 0},
		{john, "INV-2024-002", 549.99, model.PaymentPaid, "paypal", "", 0},
		{jane, "INV-2024-003", 129.99, model.PaymentPending, "credit_card", "", 0},
		{jane, "INV-2024-004", 89.99, model.PaymentPending, "bank_transfer", "", 0},
		{bob, "INV-2024-005", 999.99, model.PaymentRefunded, "credit_card", model.RefundCompleted, 999.99},
		{bob, "INV-2024-006", 79.99, model.PaymentPaid, "paypal", "", 0},
		{alice, "INV-2024-007", 199.99, model.PaymentPaid, "credit_card", "", 0},
		{alice, "INV-2024-008", 450.00, model.PaymentPaid, "credit_card", model.RefundRequested, 150.00},
		{charlie, "INV-2024-009", 349.99, model.PaymentPending, "bank_transfer", "", 0},
		{charlie, "INV-2024-010", 599.99, model.PaymentFailed, "credit_card", "", 0},
	}
	for _, p := range seedPayments {
		var refundStatus, refundAmount any
		if p.refundStatus != "" {
			refundStatus = string(p.refundStatus)
			refundAmount = p.refundAmount
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, user_id, invoice_number, amount, status,
				payment_method, refund_status, refund_amount, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, newID(), p.userID, p.invoice, p.amount, p.status, p.method, refundStatus, refundAmount, now, now); err != nil {
			return fmt.Errorf("failed to seed payment %s: %w", p.invoice, err)
		}
	}

	type seedFAQ struct {
		category, question, answer string
		keywords                   []string
	}
	seedFAQs := []seedFAQ{
		{"account", "How do I reset my password?",
			`To reset your password, click on "Forgot Password" on the login page. Enter your email address, and we'll send you a password reset link. The link expires in 24 hours.`,
			[]string{"password", "reset", "forgot", "login", "access"}},
		{"orders", "How can I track my order?",
			`You can track your order by going to "My Orders" in your account dashboard. Click on the order you want to track and you'll see the tracking number and current status.`,
			[]string{"track", "order", "shipping", "delivery", "status"}},
		{"returns", "What is your return policy?",
			`We offer a 30-day return policy for most items. Products must be unused and in original packaging. To initiate a return, go to "My Orders", select the order, and click "Return Item".`,
			[]string{"return", "refund", "policy", "exchange", "money back"}},
		{"shipping", "How long does shipping take?",
			"Standard shipping takes 5-7 business days. Express shipping takes 2-3 business days. Same-day delivery is available in select cities.",
			[]string{"shipping", "delivery", "time", "days", "fast", "express"}},
		{"orders", "How do I cancel my order?",
			`You can cancel your order within 1 hour of placing it by going to "My Orders" and clicking "Cancel Order". If the order has already been processed, you'll need to wait for delivery and then request a return.`,
			[]string{"cancel", "order", "stop", "remove"}},
		{"payment", "What payment methods do you accept?",
			"We accept all major credit cards (Visa, MasterCard, American Express), PayPal, Apple Pay, Google Pay, and bank transfers. All payments are securely processed.",
			[]string{"payment", "credit card", "paypal", "pay", "checkout"}},
		{"support", "How do I contact customer support?",
			"You can reach our customer support team through this chat, by email at support@example.com, or by phone at 1-800-123-4567. Our support hours are Monday-Friday 9 AM - 6 PM EST.",
			[]string{"contact", "support", "help", "phone", "email", "customer service"}},
		{"account", "How do I update my shipping address?",
			`Go to "Account Settings" and click on "Addresses". You can add, edit, or remove shipping addresses. Note that you cannot change the address for orders that have already been shipped.`,
			[]string{"address", "shipping", "change", "update", "edit"}},
		{"payment", "How do I apply a promo code?",
			`Enter your promo code in the "Promo Code" field during checkout and click "Apply". The discount will be reflected in your order total.`,
			[]string{"promo", "code", "discount", "coupon", "deal"}},
		{"returns", "How do I request a refund?",
			`To request a refund, first initiate a return from "My Orders". Once we receive and inspect the returned item, the refund will be processed within 5-7 business days.`,
			[]string{"refund", "money", "return", "reimburse"}},
		{"returns", "What if my item arrives damaged?",
			`If your item arrives damaged, please contact us within 48 hours of delivery. Take photos of the damage and packaging, then go to "My Orders" and select "Report Issue".`,
			[]string{"damaged", "broken", "defective", "issue", "problem"}},
	}
	for _, f := range seedFAQs {
		keywords, err := json.Marshal(f.keywords)
		if err != nil {
			return fmt.Errorf("failed to encode faq keywords: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO faqs (id, category, question, answer, keywords)
			VALUES (?, ?, ?, ?, ?)
		`, newID(), f.category, f.question, f.answer, string(keywords)); err != nil {
			return fmt.Errorf("failed to seed faq: %w", err)
		}
	}

	return tx.Commit()
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
