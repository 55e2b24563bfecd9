package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIClient{client: openai.NewClient(apiKey)}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a non-streaming generation request.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	chatReq, err := buildOpenAIRequest(req, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	choice := resp.Choices[0]
	toolCalls, err := convertOpenAIToolCalls(choice.Message.ToolCalls)
	if err != nil {
		return nil, err
	}

	return &Response{
		Model:      chatReq.Model,
		Content:    choice.Message.Content,
		ToolCalls:  toolCalls,
		StopReason: string(choice.FinishReason),
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream sends a streaming generation request.
func (c *OpenAIClient) Stream(ctx context.Context, req *Request, onDelta StreamCallback) (*Response, error) {
	start := time.Now()

	chatReq, err := buildOpenAIRequest(req, true)
	if err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	var content string
	var stopReason string
	// Tool call fragments arrive keyed by index and must be accumulated.
	pending := map[int]*openai.ToolCall{}

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai stream failed: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}

		choice := response.Choices[0]
		if choice.Delta.Content != "" {
			content += choice.Delta.Content
			if err := onDelta(choice.Delta.Content); err != nil {
				return nil, err
			}
		}
		for i := range choice.Delta.ToolCalls {
			fragment := &choice.Delta.ToolCalls[i]
			index := 0
			if fragment.Index != nil {
				index = *fragment.Index
			}
			call, ok := pending[index]
			if !ok {
				call = &openai.ToolCall{Type: openai.ToolTypeFunction}
				pending[index] = call
			}
			if fragment.ID != "" {
				call.ID = fragment.ID
			}
			if fragment.Function.Name != "" {
				call.Function.Name = fragment.Function.Name
			}
			call.Function.Arguments += fragment.Function.Arguments
		}
		if choice.FinishReason != "" {
			stopReason = string(choice.FinishReason)
		}
	}

	accumulated := make([]openai.ToolCall, 0, len(pending))
	for i := 0; i < len(pending); i++ {
		if call, ok := pending[i]; ok {
			accumulated = append(accumulated, *call)
		}
	}
	toolCalls, err := convertOpenAIToolCalls(accumulated)
	if err != nil {
		return nil, err
	}

	return &Response{
		Model:      chatReq.Model,
		Content:    content,
		ToolCalls:  toolCalls,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func buildOpenAIRequest(req *Request, stream bool) (openai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for i := range req.Messages {
		msg := &req.Messages[i]

		converted := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil {
				return openai.ChatCompletionRequest{}, fmt.Errorf("failed to encode tool arguments: %w", err)
			}
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		// A turn carrying only tool results has no message of its own in
		// the OpenAI protocol.
		if converted.Content != "" || len(converted.ToolCalls) > 0 {
			messages = append(messages, converted)
		}

		// Tool results are separate role=tool messages in the OpenAI protocol.
		for _, result := range msg.ToolResults {
			encoded, err := json.Marshal(result.Content)
			if err != nil {
				return openai.ChatCompletionRequest{}, fmt.Errorf("failed to encode tool result: %w", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(encoded),
				ToolCallID: result.ToolCallID,
			})
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		Stream:      stream,
	}

	for i := range req.Tools {
		tool := &req.Tools[i]
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return chatReq, nil
}

func convertOpenAIToolCalls(calls []openai.ToolCall) ([]ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	converted := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		var args map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
			}
		}
		converted = append(converted, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return converted, nil
}
