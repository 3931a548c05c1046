package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// CreateConversation starts a new conversation between a user and an agent.
func (s *Store) CreateConversation(conv *Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	conv.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO conversations (id, user_id, agent_id, title, last_message_at, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, conv.ID, conv.UserID, conv.AgentID, conv.Title, conv.LastMessageAt, conv.CreatedAt)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to create conversation", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID. Soft-deleted conversations
// behave as if they never existed.
func (s *Store) GetConversation(id string) (*Conversation, error) {
	var conv Conversation
	var title sql.NullString
	var lastMessageAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, user_id, agent_id, title, last_message_at, created_at
		FROM conversations WHERE id = ? AND deleted = 0
	`, id).Scan(&conv.ID, &conv.UserID, &conv.AgentID, &title, &lastMessageAt, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("conversation not found: %s", id))
	}
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to get conversation", err)
	}
	if title.Valid {
		conv.Title = &title.String
	}
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		conv.LastMessageAt = &t
	}
	return &conv, nil
}

// ListConversations returns a user's live conversations, most recent activity first.
func (s *Store) ListConversations(userID string) ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, agent_id, title, last_message_at, created_at
		FROM conversations
		WHERE user_id = ? AND deleted = 0
		ORDER BY COALESCE(last_message_at, created_at) DESC, id
	`, userID)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list conversations", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		var conv Conversation
		var title sql.NullString
		var lastMessageAt sql.NullTime
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.AgentID, &title, &lastMessageAt, &conv.CreatedAt); err != nil {
			return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to scan conversation", err)
		}
		if title.Valid {
			conv.Title = &title.String
		}
		if lastMessageAt.Valid {
			t := lastMessageAt.Time
			conv.LastMessageAt = &t
		}
		convs = append(convs, &conv)
	}
	return convs, rows.Err()
}

// DeleteConversation soft-deletes a conversation. Its messages remain on disk
// but the conversation disappears from reads.
func (s *Store) DeleteConversation(id string) error {
	res, err := s.db.Exec(`UPDATE conversations SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to delete conversation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("conversation not found: %s", id))
	}
	return nil
}

// SetConversationTitle sets the title if it is still unset. Returns true when
// this call won the write.
func (s *Store) SetConversationTitle(id, title string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE conversations SET title = ? WHERE id = ? AND title IS NULL AND deleted = 0
	`, title, id)
	if err != nil {
		return false, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to set conversation title", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// TouchConversation records the latest message activity time.
func (s *Store) TouchConversation(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE conversations SET last_message_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to touch conversation", err)
	}
	return nil
}
