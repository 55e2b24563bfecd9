package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swadesai/support-agents/internal/model"
)

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at FROM users WHERE id = ?
	`, userID)

	var user model.User
	var createdAt string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.CreatedAt = parseTime(createdAt)
	return &user, nil
}

// ListUsers returns all users, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, created_at FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var user model.User
		var createdAt string
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.CreatedAt = parseTime(createdAt)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUserActivity returns the number of orders and conversations for a
// user, used by the support agent's getUserInfo tool.
func (s *Store) CountUserActivity(ctx context.Context, userID string) (orders, conversations int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE user_id = ?),
			(SELECT COUNT(*) FROM conversations WHERE user_id = ?)
	`, userID, userID).Scan(&orders, &conversations)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count user activity: %w", err)
	}
	return orders, conversations, nil
}

const orderColumns = `id, user_id, order_number, status, total_amount,
	shipping_address, tracking_number, estimated_delivery, created_at, updated_at`

// GetOrder retrieves an order by id, including its items.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	return s.scanOrderWithItems(ctx, row)
}

// GetOrderByNumber retrieves an order by its order number, including items.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, orderNumber)
	return s.scanOrderWithItems(ctx, row)
}

// ListOrdersByUser returns the user's most recent orders with items.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	for i := range orders {
		items, err := s.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// UpdateOrderStatus transitions an order's status.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderNumber string, status model.OrderStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE order_number = ?
	`, status, formatTime(time.Now()), orderNumber)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanOrderWithItems(ctx context.Context, row rowScanner) (*model.Order, error) {
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := s.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_name, quantity, price FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var order model.Order
	var trackingNumber, estimatedDelivery sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.Status,
		&order.TotalAmount, &order.ShippingAddress, &trackingNumber,
		&estimatedDelivery, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	order.TrackingNumber = trackingNumber.String
	if estimatedDelivery.Valid && estimatedDelivery.String != "" {
		t := parseTime(estimatedDelivery.String)
		order.EstimatedDelivery = &t
	}
	order.CreatedAt = parseTime(createdAt)
	order.UpdatedAt = parseTime(updatedAt)
	return &order, nil
}

const paymentColumns = `id, user_id, invoice_number, amount, status,
	payment_method, refund_status, refund_amount, created_at, updated_at`

// GetPayment retrieves a payment by id.
func (s *Store) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID)
	return scanPayment(row)
}

// GetPaymentByInvoice retrieves a payment by its invoice number.
func (s *Store) GetPaymentByInvoice(ctx context.Context, invoiceNumber string) (*model.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_number = ?`, invoiceNumber)
	return scanPayment(row)
}

// ListPaymentsByUser returns the user's most recent payments.
func (s *Store) ListPaymentsByUser(ctx context.Context, userID string, limit int) ([]model.Payment, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

// SetRefund records a refund request against a payment.
func (s *Store) SetRefund(ctx context.Context, invoiceNumber string, status model.RefundStatus, amount float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET refund_status = ?, refund_amount = ?, updated_at = ?
		WHERE invoice_number = ?
	`, status, amount, formatTime(time.Now()), invoiceNumber)
	if err != nil {
		return fmt.Errorf("failed to set refund: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	var payment model.Payment
	var refundStatus sql.NullString
	var refundAmount sql.NullFloat64
	var createdAt, updatedAt string
	err := row.Scan(&payment.ID, &payment.UserID, &payment.InvoiceNumber,
		&payment.Amount, &payment.Status, &payment.PaymentMethod,
		&refundStatus, &refundAmount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	payment.RefundStatus = model.RefundStatus(refundStatus.String)
	if refundAmount.Valid {
		payment.RefundAmount = &refundAmount.Float64
	}
	payment.CreatedAt = parseTime(createdAt)
	payment.UpdatedAt = parseTime(updatedAt)
	return &payment, nil
}

// FAQSearchLimit caps FAQ search results.
const FAQSearchLimit = 5

// SearchFAQs matches FAQs whose question or answer contains the query as a
// substring (case-insensitive) or whose keywords overlap the query's tokens
// longer than two characters. Results are capped at FAQSearchLimit.
func (s *Store) SearchFAQs(ctx context.Context, query, category string) ([]model.FAQ, error) {
	q := `SELECT id, category, question, answer, keywords FROM faqs`
	args := []any{}
	if category != "" {
		q += ` WHERE category = ?`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query faqs: %w", err)
	}
	defer rows.Close()

	lowered := strings.ToLower(query)
	var terms []string
	for _, term := range strings.Fields(lowered) {
		if len(term) > 2 {
			terms = append(terms, term)
		}
	}

	var results []model.FAQ
	for rows.Next() {
		var faq model.FAQ
		var keywords string
		if err := rows.Scan(&faq.ID, &faq.Category, &faq.Question, &faq.Answer, &keywords); err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &faq.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode faq keywords: %w", err)
		}

		if faqMatches(&faq, lowered, terms) {
			results = append(results, faq)
			if len(results) == FAQSearchLimit {
				break
			}
		}
	}
	return results, rows.Err()
}

func faqMatches(faq *model.FAQ, lowered string, terms []string) bool {
	if strings.Contains(strings.ToLower(faq.Question), lowered) ||
		strings.Contains(strings.ToLower(faq.Answer), lowered) {
		return true
	}
	for _, keyword := range faq.Keywords {
		lk := strings.ToLower(keyword)
		for _, term := range terms {
			if lk == term {
				return true
			}
		}
	}
	return false
}
