package models

import "strings"

type AttachmentMetadata struct {
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Attachment is a file stored on the upload server.
type Attachment struct {
	ID          string             `json:"_id"`
	Tag         string             `json:"tag"`
	Filename    string             `json:"filename"`
	Metadata    AttachmentMetadata `json:"metadata"`
	ContentType string             `json:"content_type"`
	Size        int64              `json:"size"`
	Deleted     bool               `json:"deleted,omitempty"`
	Reported    bool               `json:"reported,omitempty"`
}

// URL returns the download address of the attachment on the given upload server.
func (a Attachment) URL(uploadURL string) string {
	return strings.TrimRight(uploadURL, "/") + "/" + a.Tag + "/" + a.ID
}

// PermissionOverride is an allow/deny pair of permission bitsets.
type PermissionOverride struct {
	Allow uint64 `json:"a"`
	Deny  uint64 `json:"d"`
}

type Masquerade struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Colour string `json:"colour,omitempty"`
}
