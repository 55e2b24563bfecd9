package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swadesai/support-agents/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestConversationTitleSetOnce(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "Where is my order?",
	}))
	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        "Let me check.",
		AgentType:      model.AgentOrder,
	}))
	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "A completely different second question",
	}))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Where is my order?", got.Title)
}

func TestConversationTitleTruncated(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	long := strings.Repeat("x", 80)
	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        long,
	}))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 50)+"...", got.Title)
	assert.Len(t, got.Title, 53)
}

func TestListUserConversationsCapAndOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	var last string
	for i := 0; i < 25; i++ {
		conv, err := st.CreateConversation(ctx, "u1")
		require.NoError(t, err)
		require.NoError(t, st.SaveMessage(ctx, &model.Message{
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        fmt.Sprintf("question %d", i),
		}))
		last = conv.ID
	}

	items, err := st.ListUserConversations(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, items, DefaultConversationLimit)

	// Most recently updated first.
	assert.Equal(t, last, items[0].ID)
	assert.Equal(t, "question 24", items[0].LastMessage)
	assert.Equal(t, 1, items[0].MessageCount)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].UpdatedAt.After(items[i-1].UpdatedAt))
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "hello",
	}))

	require.NoError(t, st.DeleteConversation(ctx, conv.ID))

	_, err = st.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	msgs, err := st.RecentMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, st.DeleteConversation(ctx, conv.ID), ErrNotFound)
}

func TestUpdateConversationStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, st.UpdateConversationStatus(ctx, conv.ID, model.ConversationResolved))

	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationResolved, got.Status)

	assert.ErrorIs(t, st.UpdateConversationStatus(ctx, "missing", model.ConversationArchived), ErrNotFound)
}

func TestSaveMessageBumpsUpdatedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	before, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)

	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "bump",
	}))

	after, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestRecentMessagesWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		require.NoError(t, st.SaveMessage(ctx, &model.Message{
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        fmt.Sprintf("m%d", i),
		}))
	}

	msgs, err := st.RecentMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	// Chronological order, last ten.
	assert.Equal(t, "m5", msgs[0].Content)
	assert.Equal(t, "m14", msgs[9].Content)
}

func TestMessageMetadataRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertUser(ctx, "u1"))
	conv, err := st.CreateConversation(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, st.SaveMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        "answer",
		AgentType:      model.AgentBilling,
		Metadata: &model.MessageMetadata{
			Classification: &model.ClassificationResult{
				AgentType:  model.AgentBilling,
				Confidence: 0.92,
				Reasoning:  "refund request",
			},
		},
	}))

	got, err := st.GetConversationWithMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, model.AgentBilling, msg.AgentType)
	require.NotNil(t, msg.Metadata)
	require.NotNil(t, msg.Metadata.Classification)
	assert.Equal(t, 0.92, msg.Metadata.Classification.Confidence)
}
