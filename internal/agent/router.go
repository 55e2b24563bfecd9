// Package agent implements intent classification and the specialized
// support, order and billing agents.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/pkg/logger"
	"github.com/swadesai/support-agents/pkg/metrics"
)

const classificationSystemPrompt = `You are a customer support router. Analyze the user's query and classify it into one of these categories:

1. SUPPORT - General inquiries, FAQs, troubleshooting, how-to questions, account issues, password resets, general help
2. ORDER - Order status, tracking, modifications, cancellations, delivery inquiries, shipping questions, order history
3. BILLING - Payment issues, refunds, invoices, subscription queries, pricing, charges, payment methods

Consider the conversation context when making your decision. If the user follows up on a previous topic, maintain context.

Respond with ONLY a JSON object, no surrounding text:
{"agentType": "support" | "order" | "billing", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`

// historyContextLines caps how much conversation context the router sees.
const historyContextLines = 5

// Router classifies user messages into agent domains with a single
// non-streaming LLM call.
type Router struct {
	client llm.Client
	model  string
	logger *logger.Logger
}

// NewRouter creates a new intent router.
func NewRouter(client llm.Client, modelName string, log *logger.Logger) *Router {
	return &Router{client: client, model: modelName, logger: log}
}

// FallbackClassification is the deterministic result used whenever
// classification fails for any reason.
func FallbackClassification() model.ClassificationResult {
	return model.ClassificationResult{
		AgentType:  model.AgentSupport,
		Confidence: 0.5,
		Reasoning:  "Classification failed, defaulting to support agent",
	}
}

// Classify labels a user message with the agent domain it belongs to. It
// never fails: any error from the inference call or an unusable reply
// collapses into the deterministic fallback.
func (r *Router) Classify(ctx context.Context, message string, historyLines []string) model.ClassificationResult {
	result, err := r.classify(ctx, message, historyLines)
	if err != nil {
		r.logger.Warn("classification failed, using fallback", zap.Error(err))
		metrics.ClassificationsTotal.WithLabelValues(string(model.AgentSupport), "fallback").Inc()
		return FallbackClassification()
	}
	metrics.ClassificationsTotal.WithLabelValues(string(result.AgentType), "ok").Inc()
	return result
}

func (r *Router) classify(ctx context.Context, message string, historyLines []string) (model.ClassificationResult, error) {
	var prompt strings.Builder
	if len(historyLines) > 0 {
		if len(historyLines) > historyContextLines {
			historyLines = historyLines[len(historyLines)-historyContextLines:]
		}
		prompt.WriteString("Previous conversation context:\n")
		prompt.WriteString(strings.Join(historyLines, "\n"))
		prompt.WriteString("\n\n")
	}
	fmt.Fprintf(&prompt, "Current user query: %q", message)

	resp, err := r.client.Complete(ctx, &llm.Request{
		Model:     r.model,
		System:    classificationSystemPrompt,
		Messages:  []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt.String()}},
		MaxTokens: 512,
	})
	if err != nil {
		return model.ClassificationResult{}, err
	}

	return parseClassification(resp.Content)
}

func parseClassification(raw string) (model.ClassificationResult, error) {
	// Models occasionally wrap the object in a code fence or prose;
	// extract the first JSON object.
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return model.ClassificationResult{}, fmt.Errorf("no JSON object in classification reply")
	}

	var result model.ClassificationResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to parse classification: %w", err)
	}

	switch result.AgentType {
	case model.AgentSupport, model.AgentOrder, model.AgentBilling:
	default:
		return model.ClassificationResult{}, fmt.Errorf("unknown agent label %q", result.AgentType)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return result, nil
}
