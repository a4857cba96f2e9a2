package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"stoat-client/internal/ids"
)

type ChannelType string

const (
	ChannelTypeText          ChannelType = "TextChannel"
	ChannelTypeVoice         ChannelType = "VoiceChannel"
	ChannelTypeGroup         ChannelType = "Group"
	ChannelTypeDM            ChannelType = "DirectMessage"
	ChannelTypeSavedMessages ChannelType = "SavedMessages"
)

// Channel is one of *TextChannel, *VoiceChannel, *GroupChannel, *DMChannel or
// *SavedMessagesChannel.
type Channel interface {
	ChannelID() string
	Type() ChannelType
	CreatedAt() time.Time
	Clone() Channel
	channel()
}

// ServerChannel holds what text and voice channels have in common. Server never changes
// once the channel exists.
type ServerChannel struct {
	ID                 string                        `json:"_id"`
	Server             string                        `json:"server"`
	Name               string                        `json:"name"`
	Description        *string                       `json:"description,omitempty"`
	Icon               *Attachment                   `json:"icon,omitempty"`
	LastMessageID      *string                       `json:"last_message_id,omitempty"`
	DefaultPermissions *PermissionOverride           `json:"default_permissions,omitempty"`
	RolePermissions    map[string]PermissionOverride `json:"role_permissions,omitempty"`
	NSFW               bool                          `json:"nsfw,omitempty"`
}

func (c *ServerChannel) ChannelID() string    { return c.ID }
func (c *ServerChannel) ServerID() string     { return c.Server }
func (c *ServerChannel) CreatedAt() time.Time { return ids.CreatedAt(c.ID) }

func (c *ServerChannel) clone() ServerChannel {
	out := *c
	out.RolePermissions = maps.Clone(c.RolePermissions)
	return out
}

type TextChannel struct {
	ServerChannel
}

type VoiceChannel struct {
	ServerChannel
}

type GroupChannel struct {
	ID            string      `json:"_id"`
	Name          string      `json:"name"`
	Owner         string      `json:"owner"`
	Description   *string     `json:"description,omitempty"`
	Recipients    []string    `json:"recipients"`
	Icon          *Attachment `json:"icon,omitempty"`
	LastMessageID *string     `json:"last_message_id,omitempty"`
	Permissions   uint64      `json:"permissions,omitempty"`
	NSFW          bool        `json:"nsfw,omitempty"`
}

type DMChannel struct {
	ID            string   `json:"_id"`
	Active        bool     `json:"active"`
	Recipients    []string `json:"recipients"`
	LastMessageID *string  `json:"last_message_id,omitempty"`
}

type SavedMessagesChannel struct {
	ID   string `json:"_id"`
	User string `json:"user"`
}

func (*TextChannel) Type() ChannelType          { return ChannelTypeText }
func (*VoiceChannel) Type() ChannelType         { return ChannelTypeVoice }
func (*GroupChannel) Type() ChannelType         { return ChannelTypeGroup }
func (*DMChannel) Type() ChannelType            { return ChannelTypeDM }
func (*SavedMessagesChannel) Type() ChannelType { return ChannelTypeSavedMessages }

func (*TextChannel) channel()          {}
func (*VoiceChannel) channel()         {}
func (*GroupChannel) channel()         {}
func (*DMChannel) channel()            {}
func (*SavedMessagesChannel) channel() {}

func (c *GroupChannel) ChannelID() string         { return c.ID }
func (c *DMChannel) ChannelID() string            { return c.ID }
func (c *SavedMessagesChannel) ChannelID() string { return c.ID }

func (c *GroupChannel) CreatedAt() time.Time         { return ids.CreatedAt(c.ID) }
func (c *DMChannel) CreatedAt() time.Time            { return ids.CreatedAt(c.ID) }
func (c *SavedMessagesChannel) CreatedAt() time.Time { return ids.CreatedAt(c.ID) }

func (c *TextChannel) Clone() Channel  { return &TextChannel{c.ServerChannel.clone()} }
func (c *VoiceChannel) Clone() Channel { return &VoiceChannel{c.ServerChannel.clone()} }

func (c *GroupChannel) Clone() Channel {
	out := *c
	out.Recipients = slices.Clone(c.Recipients)
	return &out
}

func (c *DMChannel) Clone() Channel {
	out := *c
	out.Recipients = slices.Clone(c.Recipients)
	return &out
}

func (c *SavedMessagesChannel) Clone() Channel {
	out := *c
	return &out
}

func (c *GroupChannel) HasRecipient(userID string) bool {
	return slices.Contains(c.Recipients, userID)
}

// ChannelServerID returns the server a channel belongs to, or "" for channels outside
// servers.
func ChannelServerID(c Channel) string {
	switch ch := c.(type) {
	case *TextChannel:
		return ch.Server
	case *VoiceChannel:
		return ch.Server
	}
	return ""
}

// DecodeChannel decodes a channel object, choosing the variant from its channel_type.
func DecodeChannel(data []byte) (Channel, error) {
	var tag struct {
		ChannelType ChannelType `json:"channel_type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode channel type: %w", err)
	}

	var channel Channel
	switch tag.ChannelType {
	case ChannelTypeText:
		channel = &TextChannel{}
	case ChannelTypeVoice:
		channel = &VoiceChannel{}
	case ChannelTypeGroup:
		channel = &GroupChannel{}
	case ChannelTypeDM:
		channel = &DMChannel{}
	case ChannelTypeSavedMessages:
		channel = &SavedMessagesChannel{}
	default:
		return nil, fmt.Errorf("unknown channel type %q", tag.ChannelType)
	}

	if err := json.Unmarshal(data, channel); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag.ChannelType, err)
	}
	return channel, nil
}

// DecodeChannels decodes a JSON array of channel objects.
func DecodeChannels(data []byte) ([]Channel, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode channel list: %w", err)
	}
	channels := make([]Channel, 0, len(raw))
	for _, item := range raw {
		channel, err := DecodeChannel(item)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

func (c *TextChannel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChannelType ChannelType `json:"channel_type"`
		ServerChannel
	}{c.Type(), c.ServerChannel})
}

func (c *VoiceChannel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ChannelType ChannelType `json:"channel_type"`
		ServerChannel
	}{c.Type(), c.ServerChannel})
}

func (c *GroupChannel) MarshalJSON() ([]byte, error) {
	type plain GroupChannel
	return json.Marshal(struct {
		ChannelType ChannelType `json:"channel_type"`
		*plain
	}{c.Type(), (*plain)(c)})
}

func (c *DMChannel) MarshalJSON() ([]byte, error) {
	type plain DMChannel
	return json.Marshal(struct {
		ChannelType ChannelType `json:"channel_type"`
		*plain
	}{c.Type(), (*plain)(c)})
}

func (c *SavedMessagesChannel) MarshalJSON() ([]byte, error) {
	type plain SavedMessagesChannel
	return json.Marshal(struct {
		ChannelType ChannelType `json:"channel_type"`
		*plain
	}{c.Type(), (*plain)(c)})
}

type PartialChannel struct {
	Name               Field[string]                        `json:"name,omitzero"`
	Owner              Field[string]                        `json:"owner,omitzero"`
	Description        Field[string]                        `json:"description,omitzero"`
	Icon               Field[Attachment]                    `json:"icon,omitzero"`
	NSFW               Field[bool]                          `json:"nsfw,omitzero"`
	Active             Field[bool]                          `json:"active,omitzero"`
	Permissions        Field[uint64]                        `json:"permissions,omitzero"`
	RolePermissions    Field[map[string]PermissionOverride] `json:"role_permissions,omitzero"`
	DefaultPermissions Field[PermissionOverride]            `json:"default_permissions,omitzero"`
	LastMessageID      Field[string]                        `json:"last_message_id,omitzero"`
}

func (p *PartialChannel) ApplyClear(names []string) []string {
	return clearByName(names, map[string]func(){
		"Description":        p.Description.clear,
		"Icon":               p.Icon.clear,
		"DefaultPermissions": p.DefaultPermissions.clear,
	})
}

// Apply patches the properties the channel variant has and ignores the rest.
func (p PartialChannel) Apply(c Channel) {
	switch ch := c.(type) {
	case *TextChannel:
		p.applyServerChannel(&ch.ServerChannel)
	case *VoiceChannel:
		p.applyServerChannel(&ch.ServerChannel)
	case *GroupChannel:
		applyField(&ch.Name, p.Name)
		applyField(&ch.Owner, p.Owner)
		applyNullable(&ch.Description, p.Description)
		applyNullable(&ch.Icon, p.Icon)
		applyField(&ch.NSFW, p.NSFW)
		applyField(&ch.Permissions, p.Permissions)
		applyNullable(&ch.LastMessageID, p.LastMessageID)
	case *DMChannel:
		applyField(&ch.Active, p.Active)
		applyNullable(&ch.LastMessageID, p.LastMessageID)
	}
}

func (p PartialChannel) applyServerChannel(ch *ServerChannel) {
	applyField(&ch.Name, p.Name)
	applyNullable(&ch.Description, p.Description)
	applyNullable(&ch.Icon, p.Icon)
	applyField(&ch.NSFW, p.NSFW)
	applyField(&ch.RolePermissions, p.RolePermissions)
	applyNullable(&ch.DefaultPermissions, p.DefaultPermissions)
	applyNullable(&ch.LastMessageID, p.LastMessageID)
}
