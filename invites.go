package stoat

import (
	"context"
	"encoding/json"
	"fmt"

	"stoat-client/internal/validator"
	"stoat-client/models"
)

// InvitePreview describes where an invite leads, as shown before joining.
type InvitePreview struct {
	Type        string             `json:"type"`
	Code        string             `json:"code"`
	ServerID    string             `json:"server_id,omitempty"`
	ServerName  string             `json:"server_name,omitempty"`
	ServerIcon  *models.Attachment `json:"server_icon,omitempty"`
	ChannelID   string             `json:"channel_id"`
	ChannelName string             `json:"channel_name"`
	UserName    string             `json:"user_name"`
	MemberCount int64              `json:"member_count,omitempty"`
}

func (c *Client) FetchInvite(ctx context.Context, code string) (*InvitePreview, error) {
	if err := validator.ID("fetch invite", "code", code); err != nil {
		return nil, err
	}

	preview := &InvitePreview{}
	if err := c.rest.Get(ctx, "invites/"+code, preview); err != nil {
		return nil, err
	}
	return preview, nil
}

type joinedServer struct {
	Type     string            `json:"type"`
	Server   *models.Server    `json:"server"`
	Channels []json.RawMessage `json:"channels"`
}

// JoinInvite accepts a server invite and returns the joined server.
func (c *Client) JoinInvite(ctx context.Context, code string) (*models.Server, error) {
	if err := validator.ID("join invite", "code", code); err != nil {
		return nil, err
	}

	var joined joinedServer
	if err := c.rest.Post(ctx, "invites/"+code, nil, &joined); err != nil {
		return nil, err
	}
	if joined.Server == nil {
		return nil, fmt.Errorf("stoat: invite [%s] did not lead to a server", code)
	}

	if !c.writesCache() {
		return joined.Server, nil
	}

	server := c.dispatcher.StoreServer(joined.Server)
	for _, raw := range joined.Channels {
		if _, err := c.decodeChannel(raw, true); err != nil {
			c.log.Warnf("Skipping channel of joined server [%s]: %v", joined.Server.ID, err)
		}
	}
	return server, nil
}

func (c *Client) CreateInvite(ctx context.Context, channelID string) (*models.Invite, error) {
	if err := validator.ID("create invite", "channel_id", channelID); err != nil {
		return nil, err
	}

	invite := &models.Invite{}
	if err := c.rest.Post(ctx, fmt.Sprintf("channels/%s/invites", channelID), nil, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

func (c *Client) DeleteInvite(ctx context.Context, code string) error {
	if err := validator.ID("delete invite", "code", code); err != nil {
		return err
	}
	return c.rest.Delete(ctx, "invites/"+code, nil)
}
