package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendMessageRequest carries one outgoing message. Exactly one of Text or
// MediaURL must be set; both may be set for a captioned attachment.
type SendMessageRequest struct {
	ChatID      string `json:"-"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	ReplyToID   string `json:"reply_to_id,omitempty"`
	ReplyToName string `json:"reply_to_name,omitempty"`
	ReplyToText string `json:"reply_to_text,omitempty"`

	// ID and Timestamp are assigned client-side so retried sends stay
	// idempotent on the backend.
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// SendMessage creates a message in a chat and returns the stored copy.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if req.ChatID == "" {
		return nil, errors.New("chat ID is required")
	}
	if req.SenderID == "" {
		return nil, errors.New("sender ID is required")
	}
	if req.Text == "" && req.MediaURL == "" {
		return nil, errors.New("message needs text or media")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().UnixMilli()
	}

	var message Message
	path := fmt.Sprintf("/v1/chats/%s/messages", req.ChatID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead acknowledges every unread message in a chat for one user.
func (c *Client) MarkRead(ctx context.Context, chatID, userID string) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}
	if userID == "" {
		return errors.New("user ID is required")
	}

	path := fmt.Sprintf("/v1/chats/%s/read", chatID)
	body := map[string]string{"user_id": userID}
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}

// UnreadMessages returns the messages not yet acknowledged by one user.
func (c *Client) UnreadMessages(ctx context.Context, chatID, userID string) ([]Message, error) {
	if chatID == "" {
		return nil, errors.New("chat ID is required")
	}
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	var out struct {
		Messages []Message `json:"messages"`
	}
	path := fmt.Sprintf("/v1/chats/%s/unread?user_id=%s", chatID, userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// DeleteForEveryone removes a message from the shared backend record.
func (c *Client) DeleteForEveryone(ctx context.Context, chatID, messageID string) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}
	if messageID == "" {
		return errors.New("message ID is required")
	}

	path := fmt.Sprintf("/v1/chats/%s/messages/%s", chatID, messageID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// UpdateTranslationSettings stores one participant's translation
// preference on the chat for cross-device consistency.
func (c *Client) UpdateTranslationSettings(ctx context.Context, chatID, userID string, settings TranslationSettings) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}
	if userID == "" {
		return errors.New("user ID is required")
	}
	if settings.TargetLanguage == "" {
		return errors.New("target language is required")
	}

	path := fmt.Sprintf("/v1/chats/%s/translation/%s", chatID, userID)
	return c.doJSON(ctx, http.MethodPut, path, settings, nil)
}
