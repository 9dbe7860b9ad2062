package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/convobridge/convobridge/internal/router"
	"github.com/convobridge/convobridge/pkg/message"
)

// RouteStore is a durable router.RouteStore.
type RouteStore struct {
	db *sql.DB
}

var _ router.RouteStore = (*RouteStore)(nil)

// SetConversationRoute implements router.RouteStore.
func (s *RouteStore) SetConversationRoute(ctx context.Context, conversationID string, route router.Route) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_routes (conversation_id, source_channel_id, source_platform, destination_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(conversation_id) DO UPDATE SET
			source_channel_id = excluded.source_channel_id,
			source_platform   = excluded.source_platform,
			destination_id    = excluded.destination_id,
			updated_at        = excluded.updated_at`,
		conversationID, route.Source.ChannelID, string(route.Source.Platform),
		route.DestinationID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("state: set conversation route: %w", err)
	}
	return nil
}

// ConversationRoute implements router.RouteStore.
func (s *RouteStore) ConversationRoute(ctx context.Context, conversationID string) (router.Route, bool, error) {
	var (
		route    router.Route
		platform string
		updated  int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_channel_id, source_platform, destination_id, updated_at
		 FROM conversation_routes WHERE conversation_id = ?`, conversationID).
		Scan(&route.Source.ChannelID, &platform, &route.DestinationID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return router.Route{}, false, nil
	}
	if err != nil {
		return router.Route{}, false, fmt.Errorf("state: read conversation route: %w", err)
	}
	route.Source.Platform = message.Platform(platform)
	route.UpdatedAt = time.UnixMilli(updated)
	return route, true, nil
}

// SetChannelDestination implements router.RouteStore.
func (s *RouteStore) SetChannelDestination(ctx context.Context, channelID, destinationID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channel_destinations (channel_id, destination_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
			destination_id = excluded.destination_id,
			updated_at     = excluded.updated_at`,
		channelID, destinationID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("state: set channel destination: %w", err)
	}
	return nil
}

// ChannelDestination implements router.RouteStore.
func (s *RouteStore) ChannelDestination(ctx context.Context, channelID string) (string, bool, error) {
	var dest string
	err := s.db.QueryRowContext(ctx,
		"SELECT destination_id FROM channel_destinations WHERE channel_id = ?", channelID).Scan(&dest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state: read channel destination: %w", err)
	}
	return dest, true, nil
}

// Prune implements router.RouteStore.
func (s *RouteStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	total := 0
	for _, table := range []string{"conversation_routes", "channel_destinations"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE updated_at < ?", table), cutoff.UnixMilli())
		if err != nil {
			return total, fmt.Errorf("state: prune %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += int(n)
		}
	}
	return total, nil
}
