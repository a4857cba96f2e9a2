package stoat

import (
	"context"
	"fmt"

	"stoat-client/internal/cache"
	"stoat-client/internal/validator"
	"stoat-client/models"
)

type CreateRole struct {
	Name string `json:"name" validate:"required,max=32"`
	Rank *int64 `json:"rank,omitempty"`
}

// CreateRole adds a role to a server and returns it with its id filled.
func (c *Client) CreateRole(ctx context.Context, serverID string, create CreateRole) (models.Role, error) {
	const op = "create role"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return models.Role{}, err
	}
	if err := validator.Struct(op, create); err != nil {
		return models.Role{}, err
	}

	var created struct {
		ID   string      `json:"id"`
		Role models.Role `json:"role"`
	}
	if err := c.rest.Post(ctx, fmt.Sprintf("servers/%s/roles", serverID), create, &created); err != nil {
		return models.Role{}, err
	}
	role := created.Role
	role.ID = created.ID

	if c.writesCache() {
		c.storeRole(serverID, role)
	}
	return role, nil
}

// EditRole changes a role. Remove may only name Colour.
type EditRole struct {
	Name   *string  `json:"name,omitempty" validate:"omitempty,min=1,max=32"`
	Colour *string  `json:"colour,omitempty" validate:"omitempty,max=128"`
	Hoist  *bool    `json:"hoist,omitempty"`
	Rank   *int64   `json:"rank,omitempty"`
	Remove []string `json:"remove,omitempty" validate:"dive,oneof=Colour"`
}

func (c *Client) EditRole(ctx context.Context, serverID, roleID string, edit EditRole) (models.Role, error) {
	const op = "edit role"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return models.Role{}, err
	}
	if err := validator.ID(op, "role_id", roleID); err != nil {
		return models.Role{}, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return models.Role{}, err
	}

	var role models.Role
	if err := c.rest.Patch(ctx, fmt.Sprintf("servers/%s/roles/%s", serverID, roleID), edit, &role); err != nil {
		return models.Role{}, err
	}
	role.ID = roleID

	if c.writesCache() {
		c.storeRole(serverID, role)
	}
	return role, nil
}

func (c *Client) DeleteRole(ctx context.Context, serverID, roleID string) error {
	const op = "delete role"
	if err := validator.ID(op, "server_id", serverID); err != nil {
		return err
	}
	if err := validator.ID(op, "role_id", roleID); err != nil {
		return err
	}
	if err := c.rest.Delete(ctx, fmt.Sprintf("servers/%s/roles/%s", serverID, roleID), nil); err != nil {
		return err
	}

	if c.writesCache() {
		c.dispatcher.Store(func(cached *cache.Cache) {
			cached.Servers.Update(serverID, func(current *models.Server) (*models.Server, bool) {
				if _, ok := current.Roles[roleID]; !ok {
					return current, false
				}
				next := current.Clone()
				delete(next.Roles, roleID)
				return next, true
			})
		})
	}
	return nil
}

func (c *Client) storeRole(serverID string, role models.Role) {
	c.dispatcher.Store(func(cached *cache.Cache) {
		cached.Servers.Update(serverID, func(current *models.Server) (*models.Server, bool) {
			next := current.Clone()
			if next.Roles == nil {
				next.Roles = make(map[string]models.Role)
			}
			next.Roles[role.ID] = role
			return next, true
		})
	})
}
