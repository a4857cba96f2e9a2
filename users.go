package stoat

import (
	"context"
	"fmt"

	"stoat-client/events"
	"stoat-client/internal/validator"
	"stoat-client/models"
)

// FetchUser returns the cached user or asks the platform for it. Fetched users are not
// cached because the event stream only reports changes to users it already announced.
func (c *Client) FetchUser(ctx context.Context, userID string) (*models.User, error) {
	if err := validator.ID("fetch user", "user_id", userID); err != nil {
		return nil, err
	}
	if user, ok := c.cache.Users.Get(userID); ok {
		return user, nil
	}

	user := &models.User{}
	if err := c.rest.Get(ctx, "users/"+userID, user); err != nil {
		return nil, err
	}
	return user, nil
}

// FetchSelf reloads the self user, including its profile.
func (c *Client) FetchSelf(ctx context.Context) (*models.SelfUser, error) {
	self := &models.SelfUser{}
	if err := c.rest.Get(ctx, "users/@me", self); err != nil {
		return nil, err
	}

	profile := &models.Profile{}
	if err := c.rest.Get(ctx, fmt.Sprintf("users/%s/profile", self.ID), profile); err != nil {
		c.log.Debugf("Failed to load profile of [%s]: %v", self.ID, err)
	} else {
		self.Profile = profile
	}

	c.cache.SetSelf(self)
	return self.Clone(), nil
}

type EditSelf struct {
	DisplayName *string            `json:"display_name,omitempty" validate:"omitempty,min=2,max=32"`
	Avatar      *string            `json:"avatar,omitempty" validate:"omitempty,id"`
	Status      *models.UserStatus `json:"status,omitempty"`
	Profile     *EditProfile       `json:"profile,omitempty"`
	Remove      []string           `json:"remove,omitempty" validate:"dive,oneof=Avatar StatusText StatusPresence ProfileContent ProfileBackground DisplayName"`
}

type EditProfile struct {
	Content    *string `json:"content,omitempty" validate:"omitempty,max=2000"`
	Background *string `json:"background,omitempty" validate:"omitempty,id"`
}

// EditSelf changes the self user. Without an event stream the cache and the Self user are
// updated from the response and SelfUserUpdated is published.
func (c *Client) EditSelf(ctx context.Context, edit EditSelf) (*models.SelfUser, error) {
	if err := validator.Struct("edit self", edit); err != nil {
		return nil, err
	}

	user := &models.User{}
	if err := c.rest.Patch(ctx, "users/@me", edit, user); err != nil {
		return nil, err
	}

	before := c.cache.Self()
	self := &models.SelfUser{User: *user}
	if before != nil {
		self.Profile = before.Clone().Profile
	}
	if !c.writesCache() {
		return self, nil
	}

	c.cache.SetSelf(self)
	c.cache.Users.Set(user.ID, user.Clone())

	event := events.SelfUserUpdated{After: self.Clone()}
	if before != nil {
		event.Before = before.Clone()
	}
	c.bus.Publish(event)
	return self.Clone(), nil
}

// OpenDM returns the direct message channel with userID, creating it if needed. Opening
// a DM with the self user returns the saved messages channel.
func (c *Client) OpenDM(ctx context.Context, userID string) (models.Channel, error) {
	if err := validator.ID("open dm", "user_id", userID); err != nil {
		return nil, err
	}
	return c.fetchChannel(ctx, fmt.Sprintf("users/%s/dm", userID))
}

func (c *Client) SavedMessages(ctx context.Context) (*models.SavedMessagesChannel, error) {
	self := c.cache.Self()
	if self == nil {
		return nil, ErrNoToken
	}
	channel, err := c.OpenDM(ctx, self.ID)
	if err != nil {
		return nil, err
	}
	saved, ok := channel.(*models.SavedMessagesChannel)
	if !ok {
		return nil, fmt.Errorf("stoat: expected a saved messages channel, got %s", channel.Type())
	}
	return saved, nil
}
