package stoat

import (
	"context"
	"io"

	"stoat-client/internal/validator"
)

// Upload tags accepted by the file server.
const (
	TagAttachments = "attachments"
	TagAvatars     = "avatars"
	TagBackgrounds = "backgrounds"
	TagIcons       = "icons"
	TagBanners     = "banners"
	TagEmojis      = "emojis"
)

type uploadRequest struct {
	Tag      string `json:"tag" validate:"oneof=attachments avatars backgrounds icons banners emojis"`
	Filename string `json:"filename" validate:"required,max=128"`
}

// Upload stores a file and returns the id to reference it with, for example in
// SendMessage.Attachments. The file server address is learnt by Start.
func (c *Client) Upload(ctx context.Context, tag, filename string, data io.Reader) (string, error) {
	if err := validator.Struct("upload", uploadRequest{Tag: tag, Filename: filename}); err != nil {
		return "", err
	}
	return c.rest.Upload(ctx, tag, filename, data)
}
