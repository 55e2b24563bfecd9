package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/tools"
	"github.com/swadesai/support-agents/pkg/logger"
	"github.com/swadesai/support-agents/pkg/metrics"
)

// MaxToolSteps bounds the generate/execute loop for a single turn. When the
// cap is reached the text produced so far is returned as the final answer.
const MaxToolSteps = 5

// ToolBinder produces the tool bindings for one turn, scoped to the
// requesting user and conversation.
type ToolBinder func(userID, conversationID string) []tools.Binding

// Agent is a specialized assistant: a system prompt plus the tools it may
// call. Agents are stateless; all per-turn state lives in the request.
type Agent struct {
	Name         string
	Type         model.AgentType
	Description  string
	Capabilities []string
	SystemPrompt string
	bindTools    ToolBinder
}

// Run answers a single user turn. Text deltas are forwarded to onDelta as
// they arrive; the accumulated text across all steps is returned. Tool
// failures are reported back to the model as results rather than aborting
// the turn.
func (a *Agent) Run(
	ctx context.Context,
	client llm.Client,
	modelName string,
	query, userID, conversationID string,
	history []llm.ChatMessage,
	log *logger.Logger,
	onDelta llm.StreamCallback,
) (string, error) {
	bindings := a.bindTools(userID, conversationID)
	defs := make([]llm.ToolDefinition, 0, len(bindings))
	byName := make(map[string]tools.Binding, len(bindings))
	for _, b := range bindings {
		defs = append(defs, b.Def)
		byName[b.Def.Name] = b
	}

	messages := make([]llm.ChatMessage, 0, len(history)+1+2*MaxToolSteps)
	messages = append(messages, history...)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: query})

	var full strings.Builder
	collect := func(delta string) error {
		full.WriteString(delta)
		if onDelta != nil {
			return onDelta(delta)
		}
		return nil
	}

	for step := 0; step < MaxToolSteps; step++ {
		resp, err := client.Stream(ctx, &llm.Request{
			Model:    modelName,
			System:   a.SystemPrompt,
			Messages: messages,
			Tools:    defs,
		}, collect)
		if err != nil {
			metrics.RecordLLMStream(modelName, "error", 0, 0, 0)
			return full.String(), fmt.Errorf("%s agent generation failed: %w", a.Type, err)
		}
		metrics.RecordLLMStream(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

		if len(resp.ToolCalls) == 0 {
			return full.String(), nil
		}

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			binding, ok := byName[call.Name]
			var result tools.Result
			if !ok {
				result = tools.Result{
					"success": false,
					"message": fmt.Sprintf("Unknown tool: %s", call.Name),
				}
			} else {
				result = binding.Invoke(ctx, call.Arguments)
			}
			metrics.ToolInvocationsTotal.WithLabelValues(string(a.Type), call.Name).Inc()
			log.Debug("tool executed",
				zap.String("agent", string(a.Type)),
				zap.String("tool", call.Name),
				zap.Int("step", step),
			)
			results = append(results, llm.ToolResult{
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    result.JSON(),
			})
		}

		messages = append(messages,
			llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls},
			llm.ChatMessage{Role: llm.RoleUser, ToolResults: results},
		)
	}

	log.Warn("tool step limit reached", zap.String("agent", string(a.Type)))
	return full.String(), nil
}
