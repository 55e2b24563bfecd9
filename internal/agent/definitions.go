package agent

import (
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/internal/tools"
)

const supportSystemPrompt = `You are a friendly and helpful customer support agent for an e-commerce company.

Your responsibilities:
1. Answer general support questions clearly and concisely
2. Search FAQs to find relevant information for user queries
3. Use conversation history to maintain context
4. Provide accurate troubleshooting assistance

Guidelines:
- Be friendly, professional, and empathetic
- Keep responses concise but complete
- If you use a tool to find information, summarize the relevant parts for the user
- If you can't help with something, let the user know politely
- Never make up information. Use the tools to find accurate data.

Available tools:
- searchFAQs: Search the FAQ database for relevant answers
- getConversationHistory: Get previous messages for context
- getUserInfo: Get user account information`

const orderSystemPrompt = `You are an order management specialist for an e-commerce company. Your role is to:

1. Help customers check their order status
2. Provide tracking information and delivery updates
3. Assist with order modifications and cancellations
4. Look up order history

Guidelines:
- **IMPORTANT**: Always extract order numbers from the user's message (format: ORD-YYYY-NNN)
- When a user mentions an order number in their query, use it directly in tool calls
- Always verify order numbers before providing information
- Be precise with dates, tracking numbers, and amounts
- Explain order statuses clearly (pending, processing, shipped, delivered, cancelled)
- If an order can't be found, ask the user to double-check the order number
- For cancellations, explain the policy (orders can only be cancelled before shipping)

You have access to tools:
- fetchOrderDetails: Get complete details for a specific order (requires orderNumber)
- checkDeliveryStatus: Get current shipping/delivery status (requires orderNumber)
- getOrderHistory: View recent orders for the user (no orderNumber needed)
- cancelOrder: Cancel an order if eligible (requires orderNumber)

Example interaction:
User: "Track my order ORD-2024-002"
You should: Call checkDeliveryStatus with orderNumber: "ORD-2024-002"`

const billingSystemPrompt = `You are a billing specialist for an e-commerce company.

Your responsibilities:
1. Help customers with invoice and payment inquiries
2. Check and explain refund statuses
3. Provide payment history information
4. Assist with refund requests

Guidelines:
- Be accurate with all financial information (amounts, dates, statuses)
- Always verify invoice numbers before providing details
- Explain payment statuses clearly (paid, pending, failed, refunded)
- For refunds, explain the process and typical processing times (5-7 business days)
- Be empathetic when dealing with payment issues or refund requests

Payment Methods: credit_card, paypal, bank_transfer
Refund Statuses: requested, processing, completed, rejected

Available tools:
- getInvoiceDetails: Get details for a specific invoice
- checkRefundStatus: Check the status of a refund
- getPaymentHistory: View payment history for the user
- requestRefund: Submit a refund request for an invoice`

// Registry holds the specialized agents keyed by domain.
type Registry struct {
	agents map[model.AgentType]*Agent
}

// NewRegistry builds the support, order and billing agents over the given
// store.
func NewRegistry(st *store.Store) *Registry {
	r := &Registry{agents: make(map[model.AgentType]*Agent, 3)}

	r.agents[model.AgentSupport] = &Agent{
		Name:        "Support Agent",
		Type:        model.AgentSupport,
		Description: "Handles general support inquiries, FAQs, and troubleshooting",
		Capabilities: []string{
			"Answer general support questions",
			"Search FAQs for relevant information",
			"Access conversation history for context",
			"Troubleshoot common issues",
			"Provide account information",
		},
		SystemPrompt: supportSystemPrompt,
		bindTools: func(userID, conversationID string) []tools.Binding {
			return tools.SupportToolset(st, userID, conversationID)
		},
	}

	r.agents[model.AgentOrder] = &Agent{
		Name:        "Order Agent",
		Type:        model.AgentOrder,
		Description: "Handles order status, tracking, modifications, and cancellations",
		Capabilities: []string{
			"Fetch order details by order number",
			"Check real-time delivery status",
			"View order history for a user",
			"Provide tracking information",
			"Process order cancellations",
		},
		SystemPrompt: orderSystemPrompt,
		bindTools: func(userID, _ string) []tools.Binding {
			return tools.OrderToolset(st, userID)
		},
	}

	r.agents[model.AgentBilling] = &Agent{
		Name:        "Billing Agent",
		Type:        model.AgentBilling,
		Description: "Handles payment issues, refunds, invoices, and billing inquiries",
		Capabilities: []string{
			"Retrieve invoice details",
			"Check refund status",
			"View payment history",
			"Explain billing charges",
			"Process refund requests",
		},
		SystemPrompt: billingSystemPrompt,
		bindTools: func(userID, _ string) []tools.Binding {
			return tools.BillingToolset(st, userID)
		},
	}

	return r
}

// Select returns the agent for the classified domain. Unknown labels fall
// back to the support agent so dispatch is total.
func (r *Registry) Select(t model.AgentType) *Agent {
	if a, ok := r.agents[t]; ok {
		return a
	}
	return r.agents[model.AgentSupport]
}

// Descriptor is the public description of an agent, served on the agent
// listing endpoint.
type Descriptor struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// Describe lists every agent in the system, router included.
func (r *Registry) Describe() []Descriptor {
	out := []Descriptor{
		{
			Type:        "router",
			Name:        "Router Agent",
			Description: "Analyzes incoming queries and delegates to specialized agents",
			Capabilities: []string{
				"Intent classification",
				"Query routing",
				"Context analysis",
				"Fallback handling",
			},
		},
	}
	for _, t := range []model.AgentType{model.AgentSupport, model.AgentOrder, model.AgentBilling} {
		a := r.agents[t]
		out = append(out, Descriptor{
			Type:         string(a.Type),
			Name:         a.Name,
			Description:  a.Description,
			Capabilities: a.Capabilities,
		})
	}
	return out
}
