package stoat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"stoat-client/internal/validator"
	"stoat-client/models"
	"stoat-client/rest"
)

type Reply struct {
	ID      string `json:"id" validate:"id"`
	Mention bool   `json:"mention"`
}

type SendableEmbed struct {
	IconURL     string `json:"icon_url,omitempty" validate:"omitempty,max=128"`
	URL         string `json:"url,omitempty" validate:"omitempty,max=256"`
	Title       string `json:"title,omitempty" validate:"omitempty,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Media       string `json:"media,omitempty" validate:"omitempty,id"`
	Colour      string `json:"colour,omitempty" validate:"omitempty,max=128"`
}

type SendMessage struct {
	Content     string             `json:"content,omitempty" validate:"max=2000"`
	Attachments []string           `json:"attachments,omitempty" validate:"max=128,dive,id"`
	Replies     []Reply            `json:"replies,omitempty" validate:"max=5,dive"`
	Embeds      []SendableEmbed    `json:"embeds,omitempty" validate:"max=10,dive"`
	Masquerade  *models.Masquerade `json:"masquerade,omitempty"`
	// Nonce deduplicates retried sends. A fresh one is generated when empty.
	Nonce string `json:"nonce,omitempty"`
}

// SendMessage posts a message. The nonce doubles as the idempotency key, so resending the
// same SendMessage after a network failure can't post it twice.
func (c *Client) SendMessage(ctx context.Context, channelID string, message SendMessage) (models.Message, error) {
	const op = "send message"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	if err := validator.Content(op, message.Content, len(message.Attachments) > 0 || len(message.Embeds) > 0); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, message); err != nil {
		return nil, err
	}

	if message.Nonce == "" {
		nonce, err := newNonce()
		if err != nil {
			return nil, err
		}
		message.Nonce = nonce
	}

	var raw json.RawMessage
	path := fmt.Sprintf("channels/%s/messages", channelID)
	if err := c.rest.Post(ctx, path, message, &raw, rest.WithIdempotencyKey(message.Nonce)); err != nil {
		return nil, err
	}
	return models.DecodeMessage(raw)
}

// newNonce returns a time-ordered UUID, so nonces of one client sort by send time.
func newNonce() (string, error) {
	nonce, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("stoat: generate nonce: %w", err)
	}
	return nonce.String(), nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (models.Message, error) {
	const op = "fetch message"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	if err := validator.ID(op, "message_id", messageID); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.rest.Get(ctx, fmt.Sprintf("channels/%s/messages/%s", channelID, messageID), &raw); err != nil {
		return nil, err
	}
	return models.DecodeMessage(raw)
}

type MessageSort string

const (
	SortLatest    MessageSort = "Latest"
	SortOldest    MessageSort = "Oldest"
	SortRelevance MessageSort = "Relevance"
)

// MessageQuery selects a page of a channel's history. Nearby can't be combined with Before
// or After.
type MessageQuery struct {
	Limit  int         `json:"limit"`
	Before string      `json:"before" validate:"omitempty,id"`
	After  string      `json:"after" validate:"omitempty,id"`
	Sort   MessageSort `json:"sort" validate:"omitempty,oneof=Latest Oldest Relevance"`
	Nearby string      `json:"nearby" validate:"omitempty,id,excluded_with=Before After"`
}

func (q MessageQuery) values() url.Values {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(q.Limit))
	if q.Before != "" {
		values.Set("before", q.Before)
	}
	if q.After != "" {
		values.Set("after", q.After)
	}
	if q.Sort != "" {
		values.Set("sort", string(q.Sort))
	}
	if q.Nearby != "" {
		values.Set("nearby", q.Nearby)
	}
	return values
}

// FetchMessages returns a page of a channel's history. A zero Limit asks for 50 messages.
func (c *Client) FetchMessages(ctx context.Context, channelID string, query MessageQuery) ([]models.Message, error) {
	const op = "fetch messages"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	if query.Limit == 0 {
		query.Limit = 50
	}
	if err := validator.Limit(op, query.Limit); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, query); err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	path := fmt.Sprintf("channels/%s/messages?%s", channelID, query.values().Encode())
	if err := c.rest.Get(ctx, path, &raws); err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		message, err := models.DecodeMessage(raw)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

type EditMessage struct {
	Content *string         `json:"content,omitempty" validate:"omitempty,max=2000"`
	Embeds  []SendableEmbed `json:"embeds,omitempty" validate:"max=10,dive"`
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, edit EditMessage) (models.Message, error) {
	const op = "edit message"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	if err := validator.ID(op, "message_id", messageID); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.rest.Patch(ctx, fmt.Sprintf("channels/%s/messages/%s", channelID, messageID), edit, &raw); err != nil {
		return nil, err
	}
	return models.DecodeMessage(raw)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	const op = "delete message"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return err
	}
	if err := validator.ID(op, "message_id", messageID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("channels/%s/messages/%s", channelID, messageID), nil)
}

type bulkDelete struct {
	IDs []string `json:"ids" validate:"min=1,max=100,dive,id"`
}

// DeleteMessages removes up to 100 messages from a channel in one call.
func (c *Client) DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	const op = "delete messages"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return err
	}
	request := bulkDelete{IDs: messageIDs}
	if err := validator.Struct(op, request); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("channels/%s/messages/bulk", channelID), request)
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emojiID string) error {
	path, err := reactionPath("add reaction", channelID, messageID, emojiID)
	if err != nil {
		return err
	}
	return c.rest.Put(ctx, path, nil, nil)
}

// RemoveReaction removes the self user's reaction, or userID's when it is not empty.
func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID, emojiID, userID string) error {
	path, err := reactionPath("remove reaction", channelID, messageID, emojiID)
	if err != nil {
		return err
	}
	if userID != "" {
		if err := validator.ID("remove reaction", "user_id", userID); err != nil {
			return err
		}
		path += "?user_id=" + url.QueryEscape(userID)
	}
	return c.rest.Delete(ctx, path, nil)
}

func (c *Client) ClearReactions(ctx context.Context, channelID, messageID string) error {
	const op = "clear reactions"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return err
	}
	if err := validator.ID(op, "message_id", messageID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("channels/%s/messages/%s/reactions", channelID, messageID), nil)
}

func reactionPath(op, channelID, messageID, emojiID string) (string, error) {
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return "", err
	}
	if err := validator.ID(op, "message_id", messageID); err != nil {
		return "", err
	}
	// Unicode emoji are sent as-is, so they are not checked as ids.
	if err := validator.NotEmpty(op, "emoji_id", emojiID); err != nil {
		return "", err
	}
	return fmt.Sprintf("channels/%s/messages/%s/reactions/%s", channelID, messageID, url.PathEscape(emojiID)), nil
}
