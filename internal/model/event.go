package model

// StreamEventType discriminates the SSE payloads emitted during a chat turn.
type StreamEventType string

const (
	EventTyping  StreamEventType = "typing"
	EventAgent   StreamEventType = "agent"
	EventContent StreamEventType = "content"
	EventDone    StreamEventType = "done"
	EventError   StreamEventType = "error"
)

// StreamEvent is one unit of the server-to-client SSE protocol. It is a
// tagged union: which fields are set depends on Type. Events are wire-only
// and never persisted.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// typing, agent
	Agent string `json:"agent,omitempty"`

	// typing, error
	Message string `json:"message,omitempty"`

	// agent
	Reasoning  string   `json:"reasoning,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// content
	Text string `json:"text,omitempty"`

	// done
	ConversationID string    `json:"conversationId,omitempty"`
	AgentType      AgentType `json:"agentType,omitempty"`
}

// TypingEvent signals that an agent is working on the request.
func TypingEvent(agent, message string) StreamEvent {
	return StreamEvent{Type: EventTyping, Agent: agent, Message: message}
}

// AgentEvent announces which agent was selected and why.
func AgentEvent(c ClassificationResult) StreamEvent {
	confidence := c.Confidence
	return StreamEvent{
		Type:       EventAgent,
		Agent:      string(c.AgentType),
		Reasoning:  c.Reasoning,
		Confidence: &confidence,
	}
}

// ContentEvent carries one text delta of the agent's reply.
func ContentEvent(text string) StreamEvent {
	return StreamEvent{Type: EventContent, Text: text}
}

// DoneEvent terminates a successful turn.
func DoneEvent(conversationID string, agentType AgentType) StreamEvent {
	return StreamEvent{Type: EventDone, ConversationID: conversationID, AgentType: agentType}
}

// ErrorEvent terminates a failed turn.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}
