// Package orchestrator coordinates a chat turn end to end: conversation
// setup, intent classification, agent dispatch and event streaming.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/agent"
	"github.com/swadesai/support-agents/internal/events"
	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/pkg/logger"
	"github.com/swadesai/support-agents/pkg/metrics"
)

// historyWindow is how many stored messages feed classification and agent
// context.
const historyWindow = 10

// eventBuffer decouples the producer from a slow SSE writer without letting
// an abandoned stream pile up unbounded.
const eventBuffer = 32

// Orchestrator runs the router-then-specialist pipeline for each turn.
type Orchestrator struct {
	store     *store.Store
	client    llm.Client
	chatModel string
	router    *agent.Router
	agents    *agent.Registry
	publisher *events.Publisher
	logger    *logger.Logger
	tracer    trace.Tracer
}

// New wires the pipeline. publisher may be nil when NATS is not configured.
func New(
	st *store.Store,
	client llm.Client,
	chatModel string,
	router *agent.Router,
	registry *agent.Registry,
	publisher *events.Publisher,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		client:    client,
		chatModel: chatModel,
		router:    router,
		agents:    registry,
		publisher: publisher,
		logger:    log,
		tracer:    otel.Tracer("orchestrator"),
	}
}

// Begin resolves the target conversation and persists the user message.
// It runs before any stream output so the caller can still map failures to
// proper HTTP status codes: store.ErrNotFound means the supplied
// conversation ID does not exist.
func (o *Orchestrator) Begin(ctx context.Context, req *model.SendMessageRequest) (string, error) {
	conversationID := req.ConversationID
	if conversationID != "" {
		if _, err := o.store.GetConversation(ctx, conversationID); err != nil {
			return "", err
		}
	} else {
		if err := o.store.UpsertUser(ctx, req.UserID); err != nil {
			return "", fmt.Errorf("failed to ensure user: %w", err)
		}
		conv, err := o.store.CreateConversation(ctx, req.UserID)
		if err != nil {
			return "", fmt.Errorf("failed to create conversation: %w", err)
		}
		conversationID = conv.ID
	}

	err := o.store.SaveMessage(ctx, &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        req.Message,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save user message: %w", err)
	}
	return conversationID, nil
}

// Stream processes one turn and emits the event sequence on the returned
// channel: typing(router), agent, typing(specialist), content deltas, then
// done or error. The channel is closed when the turn finishes or ctx is
// cancelled.
func (o *Orchestrator) Stream(ctx context.Context, message, userID, conversationID string) <-chan model.StreamEvent {
	ch := make(chan model.StreamEvent, eventBuffer)
	go func() {
		defer close(ch)
		o.run(ctx, ch, message, userID, conversationID)
	}()
	return ch
}

func (o *Orchestrator) run(ctx context.Context, ch chan<- model.StreamEvent, message, userID, conversationID string) {
	ctx, span := o.tracer.Start(ctx, "chat.turn",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		))
	defer span.End()

	start := time.Now()
	emit := func(ev model.StreamEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		o.logger.Error("chat turn failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		span.RecordError(err)
		emit(model.ErrorEvent(err.Error()))
	}

	if !emit(model.TypingEvent("router", "Analyzing your request...")) {
		return
	}

	history, err := o.store.RecentMessages(ctx, conversationID, historyWindow)
	if err != nil {
		fail(fmt.Errorf("failed to load history: %w", err))
		return
	}
	historyLines, chatHistory := convertHistory(history, message)

	classification := o.router.Classify(ctx, message, historyLines)
	ag := o.agents.Select(classification.AgentType)
	span.SetAttributes(attribute.String("agent.type", string(ag.Type)))

	if !emit(model.AgentEvent(classification)) {
		return
	}
	if !emit(model.TypingEvent(string(ag.Type), "Thinking...")) {
		return
	}

	full, err := ag.Run(ctx, o.client, o.chatModel, message, userID, conversationID, chatHistory, o.logger,
		func(delta string) error {
			if !emit(model.ContentEvent(delta)) {
				return ctx.Err()
			}
			return nil
		})
	if err != nil {
		fail(err)
		o.publishTurn(conversationID, userID, ag.Type, classification, "error")
		return
	}

	err = o.store.SaveMessage(ctx, &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        full,
		AgentType:      ag.Type,
		Metadata:       &model.MessageMetadata{Classification: &classification},
	})
	if err != nil {
		fail(fmt.Errorf("failed to save assistant message: %w", err))
		o.publishTurn(conversationID, userID, ag.Type, classification, "error")
		return
	}

	emit(model.DoneEvent(conversationID, ag.Type))
	metrics.TurnDuration.WithLabelValues(string(ag.Type)).Observe(time.Since(start).Seconds())
	o.publishTurn(conversationID, userID, ag.Type, classification, "done")

	o.logger.Info("chat turn completed",
		zap.String("conversation_id", conversationID),
		zap.String("agent", string(ag.Type)),
		zap.Float64("confidence", classification.Confidence),
		zap.Duration("duration", time.Since(start)),
	)
}

func (o *Orchestrator) publishTurn(conversationID, userID string, agentType model.AgentType, cls model.ClassificationResult, outcome string) {
	o.publisher.PublishTurn(events.TurnEvent{
		ConversationID: conversationID,
		UserID:         userID,
		AgentType:      agentType,
		Classification: cls,
		Outcome:        outcome,
		Timestamp:      time.Now().UTC(),
	})
}

// convertHistory shapes stored messages for the router (plain lines) and the
// agent (chat messages). The user message saved for the current turn is
// excluded from the agent history since the agent appends the query itself.
func convertHistory(history []model.Message, current string) ([]string, []llm.ChatMessage) {
	if n := len(history); n > 0 && history[n-1].Role == model.RoleUser && history[n-1].Content == current {
		history = history[:n-1]
	}
	lines := make([]string, 0, len(history))
	msgs := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return lines, msgs
}
