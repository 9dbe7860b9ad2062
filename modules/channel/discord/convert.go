package discord

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/convobridge/convobridge/pkg/message"
)

// User is a Discord user object, as far as the bridge needs it.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

// messageCreateEvent is the subset of a MESSAGE_CREATE dispatch the bridge
// consumes.
type messageCreateEvent struct {
	ID          string            `json:"id"`
	ChannelID   string            `json:"channel_id"`
	GuildID     string            `json:"guild_id"`
	Content     string            `json:"content"`
	Timestamp   string            `json:"timestamp"`
	Author      User              `json:"author"`
	Attachments []eventAttachment `json:"attachments"`
}

type eventAttachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// convertInbound normalizes a raw MESSAGE_CREATE payload. The raw event is
// preserved in PlatformData for downstream consumers.
func convertInbound(raw json.RawMessage) (message.ChannelMessage, error) {
	var ev messageCreateEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return message.ChannelMessage{}, fmt.Errorf("discord: decode message event: %w", err)
	}
	if ev.ID == "" || ev.ChannelID == "" {
		return message.ChannelMessage{}, fmt.Errorf("discord: message event missing id or channel_id")
	}

	ts := time.Now()
	if ev.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
			ts = parsed
		}
	}

	msg := message.ChannelMessage{
		ID:        ev.ID,
		Platform:  message.PlatformDiscord,
		ChannelID: ev.ChannelID,
		Sender: message.Sender{
			ID:          ev.Author.ID,
			Username:    ev.Author.Username,
			DisplayName: ev.Author.GlobalName,
			IsBot:       ev.Author.Bot,
		},
		Timestamp:    ts,
		Text:         ev.Content,
		PlatformData: raw,
	}
	for _, a := range ev.Attachments {
		msg.Attachments = append(msg.Attachments, message.Attachment{
			URL:      a.URL,
			MimeType: a.ContentType,
			Filename: a.Filename,
			Size:     a.Size,
		})
	}
	return msg, nil
}
