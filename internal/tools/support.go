package tools

import (
	"context"
	"errors"

	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/store"
)

type faqSearchArgs struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

type historyArgs struct {
	Limit int `json:"limit"`
}

// SupportToolset binds the support-domain tools for one request. Both the
// user id and the conversation id are closed over.
func SupportToolset(st *store.Store, userID, conversationID string) []Binding {
	return []Binding{
		{
			Def: llm.ToolDefinition{
				Name:        "searchFAQs",
				Description: "Search the FAQ database for answers to common questions",
				Parameters: objectSchema(map[string]any{
					"query":    stringProp("The search query to find relevant FAQs"),
					"category": stringProp("Optional category filter: account, orders, returns, shipping, payment, support"),
				}, "query"),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[faqSearchArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return searchFAQs(ctx, st, decoded.Query, decoded.Category)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "getConversationHistory",
				Description: "Get previous messages from the current conversation for context",
				Parameters: objectSchema(map[string]any{
					"limit": numberProp("Number of recent messages to retrieve (default 10)"),
				}),
			},
			Handle: func(ctx context.Context, args map[string]any) Result {
				decoded, err := decodeArgs[historyArgs](args)
				if err != nil {
					return badArgs(err)
				}
				return getConversationHistory(ctx, st, conversationID, decoded.Limit)
			},
		},
		{
			Def: llm.ToolDefinition{
				Name:        "getUserInfo",
				Description: "Get information about the current user account",
				Parameters:  objectSchema(map[string]any{}),
			},
			Handle: func(ctx context.Context, _ map[string]any) Result {
				return getUserInfo(ctx, st, userID)
			},
		},
	}
}

func searchFAQs(ctx context.Context, st *store.Store, query, category string) Result {
	faqs, err := st.SearchFAQs(ctx, query, category)
	if err != nil {
		return storeFailure(err)
	}
	if len(faqs) == 0 {
		return Result{
			"found":       false,
			"message":     "No FAQs found matching your query.",
			"suggestions": "Try rephrasing your question or ask for general help.",
		}
	}

	results := make([]map[string]any, 0, len(faqs))
	for _, faq := range faqs {
		results = append(results, map[string]any{
			"question": faq.Question,
			"answer":   faq.Answer,
			"category": faq.Category,
		})
	}

	return Result{
		"found":   true,
		"count":   len(faqs),
		"results": results,
	}
}

func getConversationHistory(ctx context.Context, st *store.Store, conversationID string, limit int) Result {
	if limit <= 0 {
		limit = 10
	}
	messages, err := st.RecentMessages(ctx, conversationID, limit)
	if err != nil {
		return storeFailure(err)
	}

	history := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		entry := map[string]any{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if msg.AgentType != "" {
			entry["agentType"] = msg.AgentType
		}
		history = append(history, entry)
	}

	return Result{
		"conversationId": conversationID,
		"messageCount":   len(messages),
		"messages":       history,
	}
}

func getUserInfo(ctx context.Context, st *store.Store, userID string) Result {
	user, err := st.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Result{"found": false, "message": "User not found"}
	}
	if err != nil {
		return storeFailure(err)
	}

	orders, conversations, err := st.CountUserActivity(ctx, userID)
	if err != nil {
		return storeFailure(err)
	}

	return Result{
		"found":              true,
		"name":               user.Name,
		"email":              user.Email,
		"memberSince":        user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		"totalOrders":        orders,
		"totalConversations": conversations,
	}
}
