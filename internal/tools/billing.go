package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/store"
)

var refundStatusMessages = map[model.RefundStatus]string{
	model.RefundRequested:  "Your refund request is being reviewed.",
	model.RefundProcessing: "Your refund is being processed.",
	model.RefundCompleted:  "Your refund has been completed.",
	model.RefundRejected:   "Your refund request was rejected.",
}

type invoiceArgs struct {
	InvoiceNumber string `json:"invoiceNumber"`
}

type paymentHistoryArgs struct {
	Limit int `json:"limit"`
}

type refundArgs struct {
	InvoiceNumber string   `json:"invoiceNumber"`
	Amount        *float64 `json:"amount"`
	Reason        string   `json:"reason"`
}

// BillingToolset binds the billing-domain tools for one request.
func BillingToolset(st *store.Store, userID string) []Binding {
	return []Binding{
		{
			Def: llm.ToolDefinition{
				Name:        "getInvoiceDetails",
				Description: "Get details for a specific invoice including amount, status, and payment method",
				Parameters: objectSchema(map[string]any{
					"invoiceNumber": stringProp("The invoice number (e.g., INV-2024-001)"),
				}, "invoiceNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[invoiceArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return getInvoiceDetails(ctx, st, decoded.InvoiceNumber)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "checkRefundStatus",
				Description: "Check the refund status for an invoice",
				Parameters: objectSchema(map[string]any{
					"invoiceNumber": stringProp("The invoice number to check refund status for"),
				}, "invoiceNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[invoiceArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return checkRefundStatus(ctx, st, decoded.InvoiceNumber)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "getPaymentHistory",
				Description: "Get recent payment history for the current user",
				Parameters: objectSchema(map[string]any{
					"limit": numberProp("Number of recent payments to retrieve (default 10)"),
				}),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[paymentHistoryArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return getPaymentHistory(ctx, st, userID, decoded.Limit)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "requestRefund",
				Description: "Request a refund for a paid invoice; omit amount for a full refund",
				Parameters: objectSchema(map[string]any{
					"invoiceNumber": stringProp("The invoice number to refund"),
					"amount":        numberProp("Partial refund amount; omit for a full refund"),
					"reason":        stringProp("Reason for the refund request"),
				}, "invoiceNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[refundArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return requestRefund(ctx, st, decoded)
			},
		},
	}
}

func getInvoiceDetails(ctx context.Context, st *store.Store, invoiceNumber string) Result {
	payment, err := st.GetPaymentByInvoice(ctx, invoiceNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"found":   false,
			"message": fmt.Sprintf("Invoice %s not found. Please check the invoice number and try again.", invoiceNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	customerName, customerEmail := "", ""
	if user, err := st.GetUser(ctx, payment.UserID); err == nil {
		customerName, customerEmail = user.Name, user.Email
	}

	result := Result{
		"found":         true,
		"invoiceNumber": payment.InvoiceNumber,
		"amount":        fmt.Sprintf("%.2f", payment.Amount),
		"status":        payment.Status,
		"paymentMethod": payment.PaymentMethod,
		"createdAt":     dateOnly(payment.CreatedAt),
		"customerName":  customerName,
		"customerEmail": customerEmail,
	}
	if payment.RefundStatus != "" {
		result["refundStatus"] = payment.RefundStatus
	}
	if payment.RefundAmount != nil {
		result["refundAmount"] = fmt.Sprintf("%.2f", *payment.RefundAmount)
	}
	return result
}

func checkRefundStatus(ctx context.Context, st *store.Store, invoiceNumber string) Result {
	payment, err := st.GetPaymentByInvoice(ctx, invoiceNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"found":   false,
			"message": fmt.Sprintf("Invoice %s not found.", invoiceNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	if payment.RefundStatus == "" {
		return Result{
			"found":         true,
			"invoiceNumber": payment.InvoiceNumber,
			"hasRefund":     false,
			"message":       "No refund has been requested for this invoice.",
			"currentStatus": payment.Status,
		}
	}

	refundMessage, ok := refundStatusMessages[payment.RefundStatus]
	if !ok {
		refundMessage = "Status unknown"
	}
	refundAmount := ""
	if payment.RefundAmount != nil {
		refundAmount = fmt.Sprintf("%.2f", *payment.RefundAmount)
	}

	return Result{
		"found":          true,
		"invoiceNumber":  payment.InvoiceNumber,
		"hasRefund":      true,
		"originalAmount": fmt.Sprintf("%.2f", payment.Amount),
		"refundAmount":   refundAmount,
		"refundStatus":   payment.RefundStatus,
		"refundMessage":  refundMessage,
		"lastUpdated":    payment.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func getPaymentHistory(ctx context.Context, st *store.Store, userID string, limit int) Result {
	if limit <= 0 {
		limit = 10
	}
	payments, err := st.ListPaymentsByUser(ctx, userID, limit)
	if err != nil {
		return storeFailure(err)
	}
	if len(payments) == 0 {
		return Result{
			"found":   false,
			"message": "No payment history found for this user.",
		}
	}

	var totalPaid, totalRefunded float64
	summaries := make([]map[string]any, 0, len(payments))
	for _, payment := range payments {
		if payment.Status == model.PaymentPaid {
			totalPaid += payment.Amount
		}
		if payment.RefundStatus == model.RefundCompleted && payment.RefundAmount != nil {
			totalRefunded += *payment.RefundAmount
		}
		summary := map[string]any{
			"invoiceNumber": payment.InvoiceNumber,
			"amount":        fmt.Sprintf("%.2f", payment.Amount),
			"status":        payment.Status,
			"paymentMethod": payment.PaymentMethod,
			"createdAt":     dateOnly(payment.CreatedAt),
		}
		if payment.RefundStatus != "" {
			summary["refundStatus"] = payment.RefundStatus
		}
		summaries = append(summaries, summary)
	}

	return Result{
		"found":               true,
		"totalPayments":       len(payments),
		"totalPaidAmount":     fmt.Sprintf("%.2f", totalPaid),
		"totalRefundedAmount": fmt.Sprintf("%.2f", totalRefunded),
		"payments":            summaries,
	}
}

func requestRefund(ctx context.Context, st *store.Store, args refundArgs) Result {
	payment, err := st.GetPaymentByInvoice(ctx, args.InvoiceNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"success": false,
			"message": fmt.Sprintf("Invoice %s not found.", args.InvoiceNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	if payment.Status != model.PaymentPaid {
		return Result{
			"success": false,
			"message": fmt.Sprintf("Cannot request refund. Invoice status: %s", payment.Status),
		}
	}

	if payment.RefundStatus != "" {
		return Result{
			"success":             false,
			"message":             fmt.Sprintf("A refund has already been %s for this invoice.", payment.RefundStatus),
			"currentRefundStatus": payment.RefundStatus,
		}
	}

	refundAmount := payment.Amount
	if args.Amount != nil {
		refundAmount = *args.Amount
	}
	if refundAmount > payment.Amount {
		return Result{
			"success": false,
			"message": "Refund amount cannot exceed the original payment amount.",
		}
	}

	if err := st.SetRefund(ctx, args.InvoiceNumber, model.RefundRequested, refundAmount); err != nil {
		return storeFailure(err)
	}

	return Result{
		"success":                 true,
		"message":                 "Refund request submitted successfully.",
		"invoiceNumber":           args.InvoiceNumber,
		"refundAmount":            fmt.Sprintf("%.2f", refundAmount),
		"estimatedProcessingTime": "5-7 business days",
	}
}
