package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	attuneErrors "github.com/attune-oss/attune/internal/errors"
)

// AppendMessage appends a message to a conversation's transcript.
func (s *Store) AppendMessage(msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to append message", err)
	}
	return nil
}

// ListMessages returns the full transcript in (created_at, id) order.
func (s *Store) ListMessages(conversationID string) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at, id
	`, conversationID)
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list messages", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListMessagesPage returns up to limit messages strictly before the cursor
// message, in ascending (created_at, id) order. An empty cursor returns the
// latest page.
func (s *Store) ListMessagesPage(conversationID string, limit int, beforeMessageID string) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error

	if beforeMessageID == "" {
		rows, err = s.db.Query(`
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, conversationID, limit)
	} else {
		var cursorAt time.Time
		var cursorID string
		err = s.db.QueryRow(`
			SELECT created_at, id FROM messages WHERE id = ? AND conversation_id = ?
		`, beforeMessageID, conversationID).Scan(&cursorAt, &cursorID)
		if err == sql.ErrNoRows {
			return nil, attuneErrors.New(attuneErrors.CodeNotFound, fmt.Sprintf("message not found: %s", beforeMessageID))
		}
		if err != nil {
			return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to resolve cursor", err)
		}

		rows, err = s.db.Query(`
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = ?
			  AND (created_at < ? OR (created_at = ? AND id < ?))
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		`, conversationID, cursorAt, cursorAt, cursorID, limit)
	}
	if err != nil {
		return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to list messages", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Pages are fetched newest-first; callers read transcripts oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var msgs []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, attuneErrors.Wrap(attuneErrors.CodeStoreError, "failed to scan message", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}
