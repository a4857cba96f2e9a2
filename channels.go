package stoat

import (
	"context"
	"encoding/json"
	"fmt"

	"stoat-client/internal/validator"
	"stoat-client/models"
)

// FetchChannel loads a channel and replaces the cached copy with it.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (models.Channel, error) {
	if err := validator.ID("fetch channel", "channel_id", channelID); err != nil {
		return nil, err
	}
	return c.fetchChannel(ctx, "channels/"+channelID)
}

func (c *Client) fetchChannel(ctx context.Context, path string) (models.Channel, error) {
	var raw json.RawMessage
	if err := c.rest.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return c.decodeChannel(raw, true)
}

// decodeChannel decodes a channel returned by the API, storing it in the cache when store
// is set. A cached channel keeps its server.
func (c *Client) decodeChannel(raw json.RawMessage, store bool) (models.Channel, error) {
	channel, err := models.DecodeChannel(raw)
	if err != nil {
		return nil, err
	}
	if !store {
		return channel, nil
	}
	return c.dispatcher.StoreChannel(channel), nil
}

type CreateChannel struct {
	// Type is Text or Voice.
	Type        string `json:"type" validate:"omitempty,oneof=Text Voice"`
	Name        string `json:"name" validate:"required,max=32"`
	Description string `json:"description,omitempty" validate:"max=1024"`
	NSFW        bool   `json:"nsfw,omitempty"`
}

func (c *Client) CreateChannel(ctx context.Context, serverID string, create CreateChannel) (models.Channel, error) {
	const op = "create channel"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, create); err != nil {
		return nil, err
	}
	if create.Type == "" {
		create.Type = "Text"
	}

	var raw json.RawMessage
	if err := c.rest.Post(ctx, fmt.Sprintf("servers/%s/channels", serverID), create, &raw); err != nil {
		return nil, err
	}
	return c.decodeChannel(raw, c.writesCache())
}

type CreateGroup struct {
	Name        string   `json:"name" validate:"required,max=32"`
	Description string   `json:"description,omitempty" validate:"max=1024"`
	Users       []string `json:"users" validate:"max=49,dive,id"`
	NSFW        bool     `json:"nsfw,omitempty"`
}

func (c *Client) CreateGroup(ctx context.Context, create CreateGroup) (*models.GroupChannel, error) {
	if err := validator.Struct("create group", create); err != nil {
		return nil, err
	}
	if create.Users == nil {
		create.Users = []string{}
	}

	var raw json.RawMessage
	if err := c.rest.Post(ctx, "channels/create", create, &raw); err != nil {
		return nil, err
	}
	channel, err := c.decodeChannel(raw, c.writesCache())
	if err != nil {
		return nil, err
	}
	group, ok := channel.(*models.GroupChannel)
	if !ok {
		return nil, fmt.Errorf("stoat: expected a group channel, got %s", channel.Type())
	}
	return group, nil
}

// EditChannel changes a channel. Remove lists the properties to clear: Description, Icon
// or DefaultPermissions.
type EditChannel struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=32"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1024"`
	Owner       *string  `json:"owner,omitempty" validate:"omitempty,id"`
	Icon        *string  `json:"icon,omitempty" validate:"omitempty,id"`
	NSFW        *bool    `json:"nsfw,omitempty"`
	Archived    *bool    `json:"archived,omitempty"`
	Remove      []string `json:"remove,omitempty" validate:"dive,oneof=Description Icon DefaultPermissions"`
}

func (c *Client) EditChannel(ctx context.Context, channelID string, edit EditChannel) (models.Channel, error) {
	const op = "edit channel"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.rest.Patch(ctx, "channels/"+channelID, edit, &raw); err != nil {
		return nil, err
	}
	return c.decodeChannel(raw, c.writesCache())
}

// DeleteChannel deletes a server channel, closes a DM or leaves a group.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := validator.ID("delete channel", "channel_id", channelID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, "channels/"+channelID, nil)
}

func (c *Client) AddGroupMember(ctx context.Context, groupID, userID string) error {
	const op = "add group member"
	if err := validator.ID(op, "group_id", groupID); err != nil {
		return err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return err
	}
	return c.rest.Put(ctx, fmt.Sprintf("channels/%s/recipients/%s", groupID, userID), nil, nil)
}

func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	const op = "remove group member"
	if err := validator.ID(op, "group_id", groupID); err != nil {
		return err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("channels/%s/recipients/%s", groupID, userID), nil)
}
