package models

import (
	"time"

	"stoat-client/internal/ids"
)

type Invite struct {
	Code    string `json:"_id"`
	Type    string `json:"type"`
	Server  string `json:"server,omitempty"`
	Creator string `json:"creator"`
	Channel string `json:"channel"`
}

type Webhook struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Avatar      *Attachment `json:"avatar,omitempty"`
	ChannelID   string      `json:"channel_id"`
	CreatorID   string      `json:"creator_id,omitempty"`
	Permissions uint64      `json:"permissions"`
	Token       string      `json:"token,omitempty"`
}

func (w *Webhook) CreatedAt() time.Time { return ids.CreatedAt(w.ID) }

type Feature struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type CaptchaFeature struct {
	Enabled bool   `json:"enabled"`
	Key     string `json:"key"`
}

type QueryFeatures struct {
	Captcha    CaptchaFeature `json:"captcha"`
	Email      bool           `json:"email"`
	InviteOnly bool           `json:"invite_only"`
	Autumn     Feature        `json:"autumn"`
	January    Feature        `json:"january"`
}

// Query is the API root document: versions and the addresses of the other services.
type Query struct {
	Version      string        `json:"revolt"`
	Features     QueryFeatures `json:"features"`
	WebsocketURL string        `json:"ws"`
	AppURL       string        `json:"app"`
	VapidKey     string        `json:"vapid"`
}

type LoginKind int

const (
	LoginFailed LoginKind = iota
	LoginSuccess
	LoginOnboardingRequired
	LoginMFARequired
)

func (k LoginKind) String() string {
	switch k {
	case LoginSuccess:
		return "Success"
	case LoginOnboardingRequired:
		return "OnboardingRequired"
	case LoginMFARequired:
		return "MFARequired"
	}
	return "Failed"
}

type LoginResult struct {
	Kind LoginKind
	// Token and UserID are filled on success and when onboarding is required.
	Token  string
	UserID string
	// Ticket and AllowedMethods are filled when a second factor is required.
	Ticket         string
	AllowedMethods []string
}
