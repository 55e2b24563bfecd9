package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/store"
)

var deliveryStatusMessages = map[model.OrderStatus]string{
	model.OrderPending:    "Your order is pending and will be processed soon.",
	model.OrderProcessing: "Your order is being prepared for shipment.",
	model.OrderShipped:    "Your order has been shipped and is on its way.",
	model.OrderDelivered:  "Your order has been delivered.",
	model.OrderCancelled:  "This order has been cancelled.",
}

type orderNumberArgs struct {
	OrderNumber string `json:"orderNumber"`
}

type orderHistoryArgs struct {
	Limit int `json:"limit"`
}

// OrderToolset binds the order-domain tools for one request. The user id is
// closed over so the model cannot read another customer's history.
func OrderToolset(st *store.Store, userID string) []Binding {
	return []Binding{
		{
			Def: llm.ToolDefinition{
				Name:        "fetchOrderDetails",
				Description: "Get complete details for a specific order including items, status, and shipping info",
				Parameters: objectSchema(map[string]any{
					"orderNumber": stringProp("The order number (e.g., ORD-2024-001)"),
				}, "orderNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[orderNumberArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return fetchOrderDetails(ctx, st, decoded.OrderNumber)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "checkDeliveryStatus",
				Description: "Check the current shipping and delivery status of an order",
				Parameters: objectSchema(map[string]any{
					"orderNumber": stringProp("The order number to check status for"),
				}, "orderNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[orderNumberArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return checkDeliveryStatus(ctx, st, decoded.OrderNumber)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "getOrderHistory",
				Description: "Get a list of recent orders for the current user",
				Parameters: objectSchema(map[string]any{
					"limit": numberProp("Number of recent orders to retrieve (default 5)"),
				}),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[orderHistoryArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return getOrderHistory(ctx, st, userID, decoded.Limit)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "cancelOrder",
				Description: "Cancel an order if it has not been shipped yet",
				Parameters: objectSchema(map[string]any{
					"orderNumber": stringProp("The order number to cancel"),
				}, "orderNumber"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[orderNumberArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return cancelOrder(ctx, st, decoded.OrderNumber)
			},
		},
	}
}

func fetchOrderDetails(ctx context.Context, st *store.Store, orderNumber string) Result {
	order, err := st.GetOrderByNumber(ctx, orderNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"found":   false,
			"message": fmt.Sprintf("Order %s not found. Please check the order number and try again.", orderNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	customerName := ""
	if user, err := st.GetUser(ctx, order.UserID); err == nil {
		customerName = user.Name
	}

	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"productName": item.ProductName,
			"quantity":    item.Quantity,
			"price":       fmt.Sprintf("%.2f", item.Price),
		})
	}

	result := Result{
		"found":           true,
		"orderNumber":     order.OrderNumber,
		"status":          order.Status,
		"totalAmount":     fmt.Sprintf("%.2f", order.TotalAmount),
		"shippingAddress": order.ShippingAddress,
		"trackingNumber":  order.TrackingNumber,
		"createdAt":       dateOnly(order.CreatedAt),
		"items":           items,
		"customerName":    customerName,
	}
	if order.EstimatedDelivery != nil {
		result["estimatedDelivery"] = dateOnly(*order.EstimatedDelivery)
	}
	return result
}

func checkDeliveryStatus(ctx context.Context, st *store.Store, orderNumber string) Result {
	order, err := st.GetOrderByNumber(ctx, orderNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"found":   false,
			"message": fmt.Sprintf("Order %s not found.", orderNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	statusMessage, ok := deliveryStatusMessages[order.Status]
	if !ok {
		statusMessage = "Status unknown"
	}

	trackingNumber := order.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = "Not yet assigned"
	}
	estimatedDelivery := "To be determined"
	if order.EstimatedDelivery != nil {
		estimatedDelivery = dateOnly(*order.EstimatedDelivery)
	}

	return Result{
		"found":             true,
		"orderNumber":       order.OrderNumber,
		"status":            order.Status,
		"statusMessage":     statusMessage,
		"trackingNumber":    trackingNumber,
		"estimatedDelivery": estimatedDelivery,
		"shippingAddress":   order.ShippingAddress,
		"lastUpdated":       order.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func getOrderHistory(ctx context.Context, st *store.Store, userID string, limit int) Result {
	if limit <= 0 {
		limit = 5
	}
	orders, err := st.ListOrdersByUser(ctx, userID, limit)
	if err != nil {
		return storeFailure(err)
	}
	if len(orders) == 0 {
		return Result{
			"found":   false,
			"message": "No orders found for this user.",
		}
	}

	summaries := make([]map[string]any, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, map[string]any{
			"orderNumber":    order.OrderNumber,
			"status":         order.Status,
			"totalAmount":    fmt.Sprintf("%.2f", order.TotalAmount),
			"itemCount":      len(order.Items),
			"createdAt":      dateOnly(order.CreatedAt),
			"trackingNumber": order.TrackingNumber,
		})
	}

	return Result{
		"found":       true,
		"totalOrders": len(orders),
		"orders":      summaries,
	}
}

func cancelOrder(ctx context.Context, st *store.Store, orderNumber string) Result {
	order, err := st.GetOrderByNumber(ctx, orderNumber)
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			"success": false,
			"message": fmt.Sprintf("Order %s not found.", orderNumber),
		}
	}
	if err != nil {
		return storeFailure(err)
	}

	switch order.Status {
	case model.OrderDelivered, model.OrderCancelled:
		return Result{
			"success":       false,
			"message":       fmt.Sprintf("Order %s cannot be cancelled. Current status: %s", orderNumber, order.Status),
			"currentStatus": order.Status,
		}
	case model.OrderShipped:
		return Result{
			"success": false,
			"message": fmt.Sprintf("Order %s has already been shipped and cannot be cancelled. You can return it after delivery.", orderNumber),
		}
	}

	if err := st.UpdateOrderStatus(ctx, orderNumber, model.OrderCancelled); err != nil {
		return storeFailure(err)
	}

	return Result{
		"success":        true,
		"message":        fmt.Sprintf("Order %s has been cancelled successfully. A refund will be processed within 5-7 business days.", orderNumber),
		"previousStatus": order.Status,
		"newStatus":      model.OrderCancelled,
	}
}
