package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swadesai/support-agents/internal/agent"
	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/middleware"
	"github.com/swadesai/support-agents/internal/model"
	"github.com/swadesai/support-agents/internal/orchestrator"
	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/pkg/logger"
)

// scriptedClient replays canned responses in order.
type scriptedClient struct {
	responses []*llm.Response
	calls     int
}

func (c *scriptedClient) next() (*llm.Response, error) {
	if c.calls > len(c.responses) {
		return nil, errors.New("scripted client exhausted")
	}
	return c.responses[c.calls-1], nil
}

func (c *scriptedClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	c.calls++
	return c.next()
}

func (c *scriptedClient) Stream(ctx context.Context, req *llm.Request, onDelta llm.StreamCallback) (*llm.Response, error) {
	c.calls++
	resp, err := c.next()
	if err != nil {
		return nil, err
	}
	if resp.Content != "" && onDelta != nil {
		if err := onDelta(resp.Content); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *scriptedClient) Name() string { return "scripted" }

func newTestRouter(t *testing.T, client llm.Client) (chi.Router, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Seed(context.Background()))

	log := logger.NewNop()
	registry := agent.NewRegistry(st)
	router := agent.NewRouter(client, "", log)
	orch := orchestrator.New(st, client, "", router, registry, nil, log)

	chatHandler := NewChatHandler(st, orch, log)
	agentsHandler := NewAgentsHandler(registry)
	recordsHandler := NewRecordsHandler(st, log)
	healthHandler := NewHealthHandler(st)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Post("/chat/messages", chatHandler.SendMessage)
		r.Get("/chat/conversations", chatHandler.ListConversations)
		r.Get("/chat/conversations/{id}", chatHandler.GetConversation)
		r.Delete("/chat/conversations/{id}", chatHandler.DeleteConversation)
		r.Get("/agents", agentsHandler.List)
		r.Get("/agents/{type}/capabilities", agentsHandler.Capabilities)
		r.Get("/users", recordsHandler.ListUsers)
		r.Get("/users/{id}", recordsHandler.GetUser)
		r.Get("/orders", recordsHandler.ListOrders)
	})
	return r, st
}

func decodeSSE(t *testing.T, body string) []model.StreamEvent {
	t.Helper()
	var events []model.StreamEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestSendMessageValidation(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	cases := map[string]string{
		"missing message": `{"userId":"u1"}`,
		"missing userId":  `{"message":"hi"}`,
		"bad JSON":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	// A malformed id and a well-formed id that matches nothing both 404.
	for name, id := range map[string]string{
		"malformed": "missing",
		"unknown":   uuid.NewString(),
	} {
		t.Run(name, func(t *testing.T) {
			body := fmt.Sprintf(`{"message":"hi","userId":"u1","conversationId":"%s"}`, id)
			req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "Conversation not found")
		})
	}
}

func TestSendMessageUsesAuthenticatedSubject(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: `{"agentType":"support","confidence":0.8,"reasoning":"general question"}`},
		{Content: "Happy to help."},
	}}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := logger.NewNop()
	registry := agent.NewRegistry(st)
	router := agent.NewRouter(client, "", log)
	orch := orchestrator.New(st, client, "", router, registry, nil, log)
	chatHandler := NewChatHandler(st, orch, log)

	const secret = "test-secret"
	r := chi.NewRouter()
	r.With(middleware.Auth(secret)).Post("/api/chat/messages", chatHandler.SendMessage)

	// No token is a 401.
	body := `{"message":"hello","userId":"imposter"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{Subject: "jwt-user"}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeSSE(t, rec.Body.String())
	require.NotEmpty(t, events)
	done := events[len(events)-1]
	require.Equal(t, model.EventDone, done.Type)

	// The conversation belongs to the token subject, not the body's userId.
	conv, err := st.GetConversation(context.Background(), done.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "jwt-user", conv.UserID)
}

func TestSendMessageStreamsSSE(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: `{"agentType":"support","confidence":0.8,"reasoning":"general question"}`},
		{Content: "Here is how returns work."},
	}}
	r, st := newTestRouter(t, client)

	body := `{"message":"What is your return policy?","userId":"web-user"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "event:")

	events := decodeSSE(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, model.EventTyping, events[0].Type)
	assert.Equal(t, model.EventAgent, events[1].Type)
	assert.Equal(t, model.EventTyping, events[2].Type)
	assert.Equal(t, model.EventContent, events[3].Type)
	assert.Equal(t, "Here is how returns work.", events[3].Text)
	assert.Equal(t, model.EventDone, events[4].Type)
	require.NotEmpty(t, events[4].ConversationID)

	// The turn is persisted under the conversation id announced in done.
	conv, err := st.GetConversationWithMessages(context.Background(), events[4].ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestGetConversationNotFound(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversations/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversationsRequiresUserID(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversations", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	r, st := newTestRouter(t, &scriptedClient{})
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/conversations/"+conv.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	// Deleting again is a 404.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/conversations/"+conv.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAgents(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Agents []agent.Descriptor `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Agents, 4)
}

func TestAgentCapabilities(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedClient{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agents/billing/capabilities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Billing Agent")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agents/sales/capabilities", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsEndpoints(t *testing.T) {
	r, st := newTestRouter(t, &scriptedClient{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var users struct {
		Data []model.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users.Data, 6)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/"+store.DemoUserID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Any seeded user with orders works for the list endpoint.
	var withOrders string
	for _, u := range users.Data {
		orders, err := st.ListOrdersByUser(context.Background(), u.ID, 10)
		require.NoError(t, err)
		if len(orders) > 0 {
			withOrders = u.ID
			break
		}
	}
	require.NotEmpty(t, withOrders)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders?userId="+withOrders, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}
