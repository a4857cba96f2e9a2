package stoat

import (
	"context"
	"encoding/json"
	"fmt"

	"stoat-client/internal/validator"
	"stoat-client/models"
	"stoat-client/rest"
)

type createWebhook struct {
	Name   string `json:"name" validate:"required,max=32"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,id"`
}

// CreateWebhook adds a webhook to a channel. avatar is an upload id and may be empty.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name, avatar string) (*models.Webhook, error) {
	const op = "create webhook"
	if err := validator.ID(op, "channel_id", channelID); err != nil {
		return nil, err
	}
	request := createWebhook{Name: name, Avatar: avatar}
	if err := validator.Struct(op, request); err != nil {
		return nil, err
	}

	webhook := &models.Webhook{}
	if err := c.rest.Post(ctx, fmt.Sprintf("channels/%s/webhooks", channelID), request, webhook); err != nil {
		return nil, err
	}
	return webhook, nil
}

func (c *Client) FetchWebhook(ctx context.Context, webhookID, token string) (*models.Webhook, error) {
	path, err := webhookPath("fetch webhook", webhookID, token)
	if err != nil {
		return nil, err
	}

	webhook := &models.Webhook{}
	if err := c.rest.Get(ctx, path, webhook, rest.WithoutAuth()); err != nil {
		return nil, err
	}
	return webhook, nil
}

// EditWebhook changes a webhook. Remove may only name Avatar.
type EditWebhook struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=32"`
	Avatar      *string  `json:"avatar,omitempty" validate:"omitempty,id"`
	Permissions *uint64  `json:"permissions,omitempty"`
	Remove      []string `json:"remove,omitempty" validate:"dive,oneof=Avatar"`
}

func (c *Client) EditWebhook(ctx context.Context, webhookID, token string, edit EditWebhook) (*models.Webhook, error) {
	const op = "edit webhook"
	path, err := webhookPath(op, webhookID, token)
	if err != nil {
		return nil, err
	}
	if err := validator.Struct(op, edit); err != nil {
		return nil, err
	}

	webhook := &models.Webhook{}
	if err := c.rest.Patch(ctx, path, edit, webhook, rest.WithoutAuth()); err != nil {
		return nil, err
	}
	return webhook, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID, token string) error {
	path, err := webhookPath("delete webhook", webhookID, token)
	if err != nil {
		return err
	}
	return c.rest.Delete(ctx, path, nil, rest.WithoutAuth())
}

// ExecuteWebhook posts a message as the webhook. The session token is not sent.
func (c *Client) ExecuteWebhook(ctx context.Context, webhookID, token string, message SendMessage) (models.Message, error) {
	const op = "execute webhook"
	path, err := webhookPath(op, webhookID, token)
	if err != nil {
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
	if err := c.rest.Post(ctx, path, message, &raw, rest.WithoutAuth(), rest.WithIdempotencyKey(message.Nonce)); err != nil {
		return nil, err
	}
	return models.DecodeMessage(raw)
}

func webhookPath(op, webhookID, token string) (string, error) {
	if err := validator.ID(op, "webhook_id", webhookID); err != nil {
		return "", err
	}
	if err := validator.NotEmpty(op, "token", token); err != nil {
		return "", err
	}
	return fmt.Sprintf("webhooks/%s/%s", webhookID, token), nil
}
