package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// AgentType identifies which specialized agent handles a query.
type AgentType string

const (
	AgentSupport AgentType = "support"
	AgentOrder   AgentType = "order"
	AgentBilling AgentType = "billing"
)

// ClassificationResult is the router's verdict for a single user message.
// It is ephemeral; the only persisted copy lives in Message.Metadata.
type ClassificationResult struct {
	AgentType  AgentType `json:"agentType"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// MessageMetadata holds optional structured data attached to a message.
type MessageMetadata struct {
	Classification *ClassificationResult `json:"classification,omitempty"`
}

// Message represents a single conversation message. Messages are immutable
// once created.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversationId"`
	Role           Role             `json:"role"`
	Content        string           `json:"content"`
	AgentType      AgentType        `json:"agentType,omitempty"`
	Metadata       *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// SendMessageRequest is the body of POST /api/chat/messages.
type SendMessageRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId,omitempty"`
}
