// Package tools implements the capability tools agents may invoke during
// generation. Handlers always return a structured result and never an
// error: failures are reported inside the payload (found:false or
// success:false plus a human-readable message) so the model can decide how
// to incorporate them into its reply.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swadesai/support-agents/internal/llm"
)

// Result is the structured payload a tool returns to the model.
type Result map[string]any

// Handler executes one tool invocation. The args map holds the
// schema-validated arguments supplied by the model.
type Handler func(ctx context.Context, args map[string]any) Result

// Binding pairs a tool definition with its handler. Caller identity
// (user id, conversation id) is injected by the binding constructors, never
// taken from model output.
type Binding struct {
	Def    llm.ToolDefinition
	Handle Handler
}

// Invoke runs the handler, converting a panic into a failure result so a
// misbehaving tool can never tear down the stream.
func (b Binding) Invoke(ctx context.Context, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				"success": false,
				"message": fmt.Sprintf("tool %s failed: %v", b.Def.Name, r),
			}
		}
	}()
	return b.Handle(ctx, args)
}

// JSON renders the result as the payload handed back to the model. A result
// that cannot be encoded is reported as a failure rather than dropped.
func (r Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"message":"failed to encode tool result: %s"}`, err)
	}
	return string(raw)
}

// decodeArgs converts the raw argument map into a typed argument struct.
func decodeArgs[T any](args map[string]any) (T, error) {
	var decoded T
	raw, err := json.Marshal(args)
	if err != nil {
		return decoded, fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return decoded, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return decoded, nil
}

func badArgs(err error) Result {
	return Result{"success": false, "message": err.Error()}
}

func storeFailure(err error) Result {
	return Result{"success": false, "message": "Lookup failed: " + err.Error()}
}

func dateOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}
