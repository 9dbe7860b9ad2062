package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal Discord REST client covering message delivery. The
// realtime side goes through the gateway; only outbound sends use REST.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a REST client for the given bot token.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type createMessageRequest struct {
	Content string `json:"content"`
}

type createMessageResponse struct {
	ID string `json:"id"`
}

// CreateMessage posts a message to a Discord channel and returns the created
// message id.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (string, error) {
	body, err := json.Marshal(createMessageRequest{Content: content})
	if err != nil {
		return "", fmt.Errorf("discord: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("discord: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("discord: send message: status %d: %s", resp.StatusCode, snippet)
	}

	var created createMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("discord: decode response: %w", err)
	}
	return created.ID, nil
}

// Me fetches the bot's own user, validating the token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: get current user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord: get current user: status %d (check token)", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("discord: decode user: %w", err)
	}
	return &user, nil
}
