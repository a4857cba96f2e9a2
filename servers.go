package stoat

import (
	"context"
	"fmt"

	"stoat-client/internal/cache"
	"stoat-client/internal/validator"
	"stoat-client/models"
)

// FetchServer loads a server and replaces the cached copy. A member list fetched earlier
// with FetchMembers is kept.
func (c *Client) FetchServer(ctx context.Context, serverID string) (*models.Server, error) {
	if err := validator.ID("fetch server", "server_id", serverID); err != nil {
		return nil, err
	}

	server := &models.Server{}
	if err := c.rest.Get(ctx, "servers/"+serverID, server); err != nil {
		return nil, err
	}

	return c.dispatcher.StoreServer(server), nil
}

// EditServer changes a server. Remove lists the properties to clear: Description,
// Categories, SystemMessages, Icon or Banner.
type EditServer struct {
	Name           *string                       `json:"name,omitempty" validate:"omitempty,min=1,max=32"`
	Description    *string                       `json:"description,omitempty" validate:"omitempty,max=1024"`
	Icon           *string                       `json:"icon,omitempty" validate:"omitempty,id"`
	Banner         *string                       `json:"banner,omitempty" validate:"omitempty,id"`
	Categories     []models.Category             `json:"categories,omitempty" validate:"max=50"`
	SystemMessages *models.SystemMessageChannels `json:"system_messages,omitempty"`
	NSFW           *bool                         `json:"nsfw,omitempty"`
	Discoverable   *bool                         `json:"discoverable,omitempty"`
	Analytics      *bool                         `json:"analytics,omitempty"`
	Remove         []string                      `json:"remove,omitempty" validate:"dive,oneof=Description Categories SystemMessages Icon Banner"`
}

func (c *Client) EditServer(ctx context.Context, serverID string, edit EditServer) (*models.Server, error) {
	const op = "edit server"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return nil, err
	}

	server := &models.Server{}
	if err := c.rest.Patch(ctx, "servers/"+serverID, edit, server); err != nil {
		return nil, err
	}
	if c.writesCache() {
		return c.dispatcher.StoreServer(server), nil
	}
	return server, nil
}

// LeaveServer leaves a server, or deletes it when the self user owns it.
func (c *Client) LeaveServer(ctx context.Context, serverID string) error {
	if err := validator.ID("leave server", "server_id", serverID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, "servers/"+serverID, nil)
}

func (c *Client) FetchMember(ctx context.Context, serverID, userID string) (*models.Member, error) {
	const op = "fetch member"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return nil, err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return nil, err
	}

	member := &models.Member{}
	if err := c.rest.Get(ctx, fmt.Sprintf("servers/%s/members/%s", serverID, userID), member); err != nil {
		return nil, err
	}
	return member, nil
}

// MemberList is a server's members with their users.
type MemberList struct {
	Members []models.Member `json:"members"`
	Users   []*models.User  `json:"users"`
}

// FetchMembers loads every member of a server. The cached server keeps the list in
// Members, and later member events patch it.
func (c *Client) FetchMembers(ctx context.Context, serverID string) (*MemberList, error) {
	if err := validator.ID("fetch members", "server_id", serverID); err != nil {
		return nil, err
	}

	list := &MemberList{}
	if err := c.rest.Get(ctx, fmt.Sprintf("servers/%s/members", serverID), list); err != nil {
		return nil, err
	}

	members := make(map[string]models.Member, len(list.Members))
	for _, member := range list.Members {
		members[member.ID.User] = member
	}
	c.dispatcher.Store(func(cached *cache.Cache) {
		cached.Servers.Update(serverID, func(current *models.Server) (*models.Server, bool) {
			next := current.Clone()
			next.Members = members
			return next, true
		})
	})
	return list, nil
}

// EditMember changes a member. Remove lists the properties to clear: Nickname, Avatar,
// Roles or Timeout.
type EditMember struct {
	Nickname *string   `json:"nickname,omitempty" validate:"omitempty,min=1,max=32"`
	Avatar   *string   `json:"avatar,omitempty" validate:"omitempty,id"`
	Roles    *[]string `json:"roles,omitempty" validate:"omitempty,dive,id"`
	Timeout  *string   `json:"timeout,omitempty"`
	Remove   []string  `json:"remove,omitempty" validate:"dive,oneof=Nickname Avatar Roles Timeout"`
}

func (c *Client) EditMember(ctx context.Context, serverID, userID string, edit EditMember) (*models.Member, error) {
	const op = "edit member"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return nil, err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return nil, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return nil, err
	}

	member := &models.Member{}
	if err := c.rest.Patch(ctx, fmt.Sprintf("servers/%s/members/%s", serverID, userID), edit, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (c *Client) KickMember(ctx context.Context, serverID, userID string) error {
	const op = "kick member"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("servers/%s/members/%s", serverID, userID), nil)
}

type banRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1024"`
}

func (c *Client) BanMember(ctx context.Context, serverID, userID, reason string) error {
	const op = "ban member"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return err
	}
	request := banRequest{Reason: reason}
	if err := validator.Struct(op, request); err != nil {
		return err
	}
	return c.rest.Put(ctx, fmt.Sprintf("servers/%s/bans/%s", serverID, userID), request, nil)
}

func (c *Client) UnbanMember(ctx context.Context, serverID, userID string) error {
	const op = "unban member"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return err
	}
	if err := validator.ID(op, "user_id", userID); err != nil {
		return err
	}
	return c.rest.Delete(ctx, fmt.Sprintf("servers/%s/bans/%s", serverID, userID), nil)
}
