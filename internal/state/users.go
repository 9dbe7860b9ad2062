package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convobridge/convobridge/internal/bridge"
)

// UserLinkStore is a durable bridge.UserLinkStore.
type UserLinkStore struct {
	db *sql.DB
}

var _ bridge.UserLinkStore = (*UserLinkStore)(nil)

// Bind implements bridge.UserLinkStore.
func (s *UserLinkStore) Bind(ctx context.Context, userKey, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_links (user_key, conversation_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			updated_at      = excluded.updated_at`,
		userKey, conversationID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("state: bind user link: %w", err)
	}
	return nil
}

// ConversationFor implements bridge.UserLinkStore.
func (s *UserLinkStore) ConversationFor(ctx context.Context, userKey string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT conversation_id FROM user_links WHERE user_key = ?", userKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state: read user link: %w", err)
	}
	return id, true, nil
}
