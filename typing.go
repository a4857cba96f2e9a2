package stoat

import (
	"context"
	"fmt"

	"stoat-client/internal/validator"
	"stoat-client/typing"
)

func (c *Client) BeginTyping(ctx context.Context, channelID string) error {
	return c.rest.Put(ctx, fmt.Sprintf("channels/%s/typing", channelID), nil, nil)
}

func (c *Client) EndTyping(ctx context.Context, channelID string) error {
	return c.rest.Delete(ctx, fmt.Sprintf("channels/%s/typing", channelID), nil)
}

// StartTyping shows the self user as typing in channelID until the returned notifier is
// stopped or ctx ends. Stop the client or the notifier to release it.
func (c *Client) StartTyping(ctx context.Context, channelID string) (*typing.Notifier, error) {
	if err := validator.ID("start typing", "channel_id", channelID); err != nil {
		return nil, err
	}
	return c.typing.Start(ctx, channelID), nil
}

// Typing returns the latest notifier started for channelID, if it is still running.
func (c *Client) Typing(channelID string) (*typing.Notifier, bool) {
	return c.typing.Get(channelID)
}
