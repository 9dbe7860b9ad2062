package discord

import (
	"testing"
	"time"

	"github.com/convobridge/convobridge/pkg/message"
)

func TestConvertInbound(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"id": "111",
		"channel_id": "222",
		"guild_id": "333",
		"content": "hello there",
		"timestamp": "2026-03-01T12:00:00+00:00",
		"author": {"id": "u1", "username": "alice", "global_name": "Alice", "bot": false},
		"attachments": [{"url": "https://cdn.example/a.png", "filename": "a.png", "content_type": "image/png", "size": 1234}]
	}`)

	msg, err := convertInbound(raw)
	if err != nil {
		t.Fatalf("convertInbound: %v", err)
	}
	if msg.ID != "111" || msg.ChannelID != "222" || msg.Text != "hello there" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Platform != message.PlatformDiscord {
		t.Errorf("platform = %q", msg.Platform)
	}
	if msg.Sender.ID != "u1" || msg.Sender.Username != "alice" || msg.Sender.DisplayName != "Alice" {
		t.Errorf("sender = %+v", msg.Sender)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !msg.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, want)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].URL != "https://cdn.example/a.png" {
		t.Errorf("attachments = %+v", msg.Attachments)
	}
	if msg.Attachments[0].MimeType != "image/png" || msg.Attachments[0].Size != 1234 {
		t.Errorf("attachment meta = %+v", msg.Attachments[0])
	}
	if len(msg.PlatformData) == 0 {
		t.Error("raw event not preserved in PlatformData")
	}
}

func TestConvertInbound_MissingIdentity(t *testing.T) {
	t.Parallel()

	if _, err := convertInbound([]byte(`{"content":"x"}`)); err == nil {
		t.Error("expected error for event without id and channel_id")
	}
	if _, err := convertInbound([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed event")
	}
}

func TestConvertInbound_BadTimestampFallsBack(t *testing.T) {
	t.Parallel()

	msg, err := convertInbound([]byte(`{"id":"1","channel_id":"2","content":"x","timestamp":"garbage","author":{"id":"u1"}}`))
	if err != nil {
		t.Fatalf("convertInbound: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should fall back to now, not zero")
	}
}
