package stoat

import (
	"context"
	"fmt"

	"stoat-client/internal/cache"
	"stoat-client/internal/validator"
	"stoat-client/models"
)

// FetchEmoji returns the cached emoji or asks the platform for it.
func (c *Client) FetchEmoji(ctx context.Context, emojiID string) (*models.Emoji, error) {
	if err := validator.ID("fetch emoji", "emoji_id", emojiID); err != nil {
		return nil, err
	}
	if emoji, ok := c.cache.Emojis.Get(emojiID); ok {
		return emoji, nil
	}

	emoji := &models.Emoji{}
	if err := c.rest.Get(ctx, "custom/emoji/"+emojiID, emoji); err != nil {
		return nil, err
	}
	c.storeEmojis(emoji)
	return emoji, nil
}

func (c *Client) FetchServerEmojis(ctx context.Context, serverID string) ([]*models.Emoji, error) {
	if err := validator.ID("fetch server emojis", "server_id", serverID); err != nil {
		return nil, err
	}

	var emojis []*models.Emoji
	if err := c.rest.Get(ctx, fmt.Sprintf("servers/%s/emojis", serverID), &emojis); err != nil {
		return nil, err
	}
	c.storeEmojis(emojis...)
	return emojis, nil
}

type createEmoji struct {
	Name   string             `json:"name" validate:"required,emoji_name"`
	Parent models.EmojiParent `json:"parent"`
	NSFW   bool               `json:"nsfw"`
}

// CreateEmoji turns an upload from the "emojis" tag into a server emoji. Names are 1 to
// 32 lowercase letters, digits or underscores.
func (c *Client) CreateEmoji(ctx context.Context, serverID, uploadID, name string, nsfw bool) (*models.Emoji, error) {
	const op = "create emoji"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return nil, err
	}
	if err := validator.ID(op, "upload_id", uploadID); err != nil {
		return nil, err
	}
	request := createEmoji{
		Name:   name,
		Parent: models.EmojiParent{Type: "Server", ID: serverID},
		NSFW:   nsfw,
	}
	if err := validator.Struct(op, request); err != nil {
		return nil, err
	}

	emoji := &models.Emoji{}
	if err := c.rest.Put(ctx, "custom/emoji/"+uploadID, request, emoji); err != nil {
		return nil, err
	}
	c.storeEmojis(emoji)
	return emoji, nil
}

// storeEmojis caches copies of emojis in HTTP mode.
func (c *Client) storeEmojis(emojis ...*models.Emoji) {
	if !c.writesCache() {
		return
	}
	c.dispatcher.Store(func(cached *cache.Cache) {
		for _, emoji := range emojis {
			stored := *emoji
			cached.Emojis.Set(emoji.ID, &stored)
		}
	})
}

func (c *Client) DeleteEmoji(ctx context.Context, emojiID string) error {
	if err := validator.ID("delete emoji", "emoji_id", emojiID); err != nil {
		return err
	}
	if err := c.rest.Delete(ctx, "custom/emoji/"+emojiID, nil); err != nil {
		return err
	}
	if c.writesCache() {
		c.dispatcher.Store(func(cached *cache.Cache) { cached.Emojis.Delete(emojiID) })
	}
	return nil
}
