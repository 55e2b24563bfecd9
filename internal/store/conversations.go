package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swadesai/support-agents/internal/model"
)

// DefaultConversationLimit caps the conversation list endpoint.
const DefaultConversationLimit = 20

// UpsertUser creates the user if it does not exist. Unknown user ids arriving
// from the client become guest accounts, mirroring lazy conversation creation.
func (s *Store) UpsertUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at)
		VALUES (?, ?, 'Guest User', ?)
		ON CONFLICT(id) DO NOTHING
	`, userID, userID+"@guest.local", formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// CreateConversation creates a new active conversation for a user.
func (s *Store) CreateConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Status:    model.ConversationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, status, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?, ?)
	`, conv.ID, conv.UserID, conv.Status, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// GetConversation retrieves a conversation without its messages.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, status, created_at, updated_at
		FROM conversations WHERE id = ?
	`, conversationID)
	return scanConversation(row)
}

// GetConversationWithMessages retrieves a conversation and its full thread,
// messages ascending by creation time.
func (s *Store) GetConversationWithMessages(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, agent_type, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return conv, nil
}

// ListUserConversations returns the user's conversations most recently
// updated first, capped at limit (default and maximum 20).
func (s *Store) ListUserConversations(ctx context.Context, userID string, limit int) ([]model.ConversationListItem, error) {
	if limit <= 0 || limit > DefaultConversationLimit {
		limit = DefaultConversationLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.status, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
			(SELECT m.content FROM messages m WHERE m.conversation_id = c.id
				ORDER BY m.created_at DESC LIMIT 1)
		FROM conversations c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	items := []model.ConversationListItem{}
	for rows.Next() {
		var item model.ConversationListItem
		var title, lastMessage sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&item.ID, &title, &item.Status, &createdAt, &updatedAt,
			&item.MessageCount, &lastMessage); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		item.Title = title.String
		item.LastMessage = lastMessage.String
		item.CreatedAt = parseTime(createdAt)
		item.UpdatedAt = parseTime(updatedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}

	return items, nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// UpdateConversationStatus transitions a conversation between
// active/resolved/archived.
func (s *Store) UpdateConversationStatus(ctx context.Context, conversationID string, status model.ConversationStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?
	`, status, formatTime(time.Now()), conversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMessage appends a message to a conversation, sets the title from the
// first user message and bumps the conversation's updated_at. The updated_at
// guard keeps the timestamp non-decreasing even if the wall clock steps back.
func (s *Store) SaveMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var metadata sql.NullString
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}
	var agentType sql.NullString
	if msg.AgentType != "" {
		agentType = sql.NullString{String: string(msg.AgentType), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, agent_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.Role, msg.Content, agentType, metadata, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if msg.Role == model.RoleUser {
		var userMessages int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND role = 'user'
		`, msg.ConversationID).Scan(&userMessages)
		if err != nil {
			return fmt.Errorf("failed to count user messages: %w", err)
		}
		if userMessages == 1 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE conversations SET title = ? WHERE id = ?
			`, model.TruncateTitle(msg.Content), msg.ConversationID); err != nil {
				return fmt.Errorf("failed to set conversation title: %w", err)
			}
		}
	}

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ? AND updated_at <= ?
	`, now, msg.ConversationID, now); err != nil {
		return fmt.Errorf("failed to bump conversation: %w", err)
	}

	return tx.Commit()
}

// RecentMessages returns the most recent limit messages of a conversation in
// chronological order (a descending fetch, reversed).
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, agent_type, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent messages: %w", err)
	}

	// Restore chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var conv model.Conversation
	var title sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&conv.ID, &conv.UserID, &title, &conv.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	conv.Title = title.String
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	return &conv, nil
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var msg model.Message
	var agentType, metadata sql.NullString
	var createdAt string
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
		&agentType, &metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.AgentType = model.AgentType(agentType.String)
	if metadata.Valid && metadata.String != "" {
		var meta model.MessageMetadata
		if err := json.Unmarshal([]byte(metadata.String), &meta); err == nil {
			msg.Metadata = &meta
		}
	}
	msg.CreatedAt = parseTime(createdAt)
	return &msg, nil
}
