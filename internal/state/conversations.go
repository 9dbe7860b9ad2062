package state

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/convobridge/convobridge/internal/conversation"
)

// ConversationStore is a durable conversation.Store.
type ConversationStore struct {
	db *sql.DB
}

var _ conversation.Store = (*ConversationStore)(nil)

// Create implements conversation.Store.
func (s *ConversationStore) Create(ctx context.Context, opts conversation.CreateOptions) (conversation.Conversation, error) {
	id, err := newID("conv")
	if err != nil {
		return conversation.Conversation{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, title, created_at) VALUES (?, ?, ?)",
		id, opts.Title, time.Now().UnixMilli())
	if err != nil {
		return conversation.Conversation{}, fmt.Errorf("state: create conversation: %w", err)
	}
	return conversation.Conversation{ID: id, Title: opts.Title}, nil
}

// AddMessage implements conversation.Store.
func (s *ConversationStore) AddMessage(ctx context.Context, conversationID string, msg conversation.NewMessage) (conversation.Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("state: check conversation: %w", err)
	}
	if exists == 0 {
		return conversation.Message{}, fmt.Errorf("%w: %s", conversation.ErrNotFound, conversationID)
	}

	id, err := newID("msg")
	if err != nil {
		return conversation.Message{}, err
	}
	meta, err := json.Marshal(msg.Metadata)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("state: marshal metadata: %w", err)
	}
	now := time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, status, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, conversationID, string(msg.Role), msg.Content, msg.Status, string(meta), now.UnixMilli())
	if err != nil {
		return conversation.Message{}, fmt.Errorf("state: insert message: %w", err)
	}

	return conversation.Message{
		ID:        id,
		Role:      msg.Role,
		Content:   msg.Content,
		Status:    msg.Status,
		CreatedAt: now,
		Metadata:  msg.Metadata,
	}, nil
}

// History implements conversation.Store. Messages are returned oldest first;
// a positive limit keeps only the most recent entries.
func (s *ConversationStore) History(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("state: check conversation: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", conversation.ErrNotFound, conversationID)
	}

	query := `SELECT id, role, content, status, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY rowid DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("state: query history: %w", err)
	}
	defer rows.Close()

	var msgs []conversation.Message
	for rows.Next() {
		var (
			m       conversation.Message
			role    string
			meta    string
			created int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Status, &meta, &created); err != nil {
			return nil, fmt.Errorf("state: scan message: %w", err)
		}
		m.Role = conversation.Role(role)
		m.CreatedAt = time.UnixMilli(created)
		if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
			return nil, fmt.Errorf("state: decode metadata: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterate history: %w", err)
	}

	// Rows came newest first; flip to oldest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func newID(prefix string) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("state: crypto/rand unavailable: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(buf[:]), nil
}
