// Package events publishes chat turn events to NATS so downstream
// consumers (analytics, audit) can observe agent activity without
// touching the request path.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/pkg/logger"
)

// subjectPrefix is completed with the agent type that handled the turn.
const subjectPrefix = "support.chat.turns"

// TurnEvent describes one completed (or failed) chat turn.
type TurnEvent struct {
	ConversationID string                     `json:"conversationId"`
	UserID         string                     `json:"userId"`
	AgentType      model.AgentType            `json:"agentType"`
	Classification model.ClassificationResult `json:"classification"`
	Outcome        string                     `json:"outcome"`
	Timestamp      time.Time                  `json:"timestamp"`
}

// Publisher emits turn events. A nil Publisher is valid and drops every
// event, so callers never have to branch on whether NATS is configured.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Connect dials the NATS server. Reconnects are unbounded; the publisher
// is fire-and-forget, so a flapping broker only costs events, not turns.
func Connect(url string, log *logger.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Publisher{conn: conn, logger: log}, nil
}

// PublishTurn emits one turn event on support.chat.turns.<agentType>.
// Failures are logged and swallowed.
func (p *Publisher) PublishTurn(ev TurnEvent) {
	if p == nil || p.conn == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("failed to encode turn event", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", subjectPrefix, ev.AgentType)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish turn event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
