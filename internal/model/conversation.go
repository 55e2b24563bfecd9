// Package model defines data structures for the support chat platform.
package model

import (
	"time"
)

// ConversationStatus represents the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationResolved ConversationStatus = "resolved"
	ConversationArchived ConversationStatus = "archived"
)

// TitleMaxLen is the number of characters of the first user message kept as
// the conversation title before the ellipsis is appended.
const TitleMaxLen = 50

// Conversation represents a persisted thread of messages owned by one user.
type Conversation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Title     string             `json:"title,omitempty"`
	Status    ConversationStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`

	// Messages is populated only by reads that request the full thread,
	// ordered by creation time ascending.
	Messages []Message `json:"messages,omitempty"`
}

// ConversationListItem is the compact shape returned by the list endpoint.
type ConversationListItem struct {
	ID           string             `json:"id"`
	Title        string             `json:"title,omitempty"`
	Status       ConversationStatus `json:"status"`
	MessageCount int                `json:"messageCount"`
	LastMessage  string             `json:"lastMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// TruncateTitle derives a conversation title from the first user message.
func TruncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleMaxLen {
		return content
	}
	return string(runes[:TitleMaxLen]) + "..."
}
