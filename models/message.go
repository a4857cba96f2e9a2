package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"stoat-client/internal/ids"
)

type MessageFlags uint32

const (
	MessageFlagSuppressNotifications MessageFlags = 1 << iota
	MessageFlagMentionsEveryone
	MessageFlagMentionsOnline
)

// Message is either a *UserMessage or a *SystemMessage.
type Message interface {
	MessageID() string
	ChannelID() string
	AuthorID() string
	CreatedAt() time.Time
	message()
}

type MessageWebhook struct {
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

type Embed struct {
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	Colour      string `json:"colour,omitempty"`
}

type UserMessage struct {
	ID          string              `json:"_id"`
	Nonce       string              `json:"nonce,omitempty"`
	Channel     string              `json:"channel"`
	Author      string              `json:"author"`
	User        *User               `json:"user,omitempty"`
	Member      *Member             `json:"member,omitempty"`
	Webhook     *MessageWebhook     `json:"webhook,omitempty"`
	Content     string              `json:"content,omitempty"`
	Attachments []Attachment        `json:"attachments,omitempty"`
	Edited      *time.Time          `json:"edited,omitempty"`
	Embeds      []Embed             `json:"embeds,omitempty"`
	Mentions    []string            `json:"mentions,omitempty"`
	Replies     []string            `json:"replies,omitempty"`
	Reactions   map[string][]string `json:"reactions,omitempty"`
	Masquerade  *Masquerade         `json:"masquerade,omitempty"`
	Flags       MessageFlags        `json:"flags,omitempty"`
}

func (m *UserMessage) MessageID() string    { return m.ID }
func (m *UserMessage) ChannelID() string    { return m.Channel }
func (m *UserMessage) AuthorID() string     { return m.Author }
func (m *UserMessage) CreatedAt() time.Time { return ids.CreatedAt(m.ID) }
func (*UserMessage) message()               {}

type SystemMessage struct {
	ID      string        `json:"_id"`
	Channel string        `json:"channel"`
	Author  string        `json:"author"`
	System  SystemContent `json:"system"`
}

func (m *SystemMessage) MessageID() string    { return m.ID }
func (m *SystemMessage) ChannelID() string    { return m.Channel }
func (m *SystemMessage) AuthorID() string     { return m.Author }
func (m *SystemMessage) CreatedAt() time.Time { return ids.CreatedAt(m.ID) }
func (*SystemMessage) message()               {}

func (m *SystemMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string          `json:"_id"`
		Channel string          `json:"channel"`
		Author  string          `json:"author"`
		System  json.RawMessage `json:"system"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := DecodeSystemContent(raw.System)
	if err != nil {
		return err
	}
	*m = SystemMessage{ID: raw.ID, Channel: raw.Channel, Author: raw.Author, System: content}
	return nil
}

func (m *SystemMessage) MarshalJSON() ([]byte, error) {
	system := map[string]any{}
	if m.System != nil {
		encoded, err := json.Marshal(m.System)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(encoded, &system); err != nil {
			return nil, err
		}
		system["type"] = m.System.SystemType()
	}
	return json.Marshal(struct {
		ID      string         `json:"_id"`
		Channel string         `json:"channel"`
		Author  string         `json:"author"`
		System  map[string]any `json:"system"`
	}{m.ID, m.Channel, m.Author, system})
}

// DecodeMessage decodes a message object. Messages carrying a system payload decode as
// *SystemMessage, everything else as *UserMessage.
func DecodeMessage(data []byte) (Message, error) {
	var shape struct {
		System json.RawMessage `json:"system"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	if len(shape.System) > 0 && !bytes.Equal(shape.System, []byte("null")) {
		var msg SystemMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode system message: %w", err)
		}
		return &msg, nil
	}

	var msg UserMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode user message: %w", err)
	}
	return &msg, nil
}

type PartialMessage struct {
	Content   Field[string]              `json:"content,omitzero"`
	Edited    Field[time.Time]           `json:"edited,omitzero"`
	Embeds    Field[[]Embed]             `json:"embeds,omitzero"`
	Reactions Field[map[string][]string] `json:"reactions,omitzero"`
}

func (p PartialMessage) Apply(m *UserMessage) {
	applyField(&m.Content, p.Content)
	applyNullable(&m.Edited, p.Edited)
	applyField(&m.Embeds, p.Embeds)
	applyField(&m.Reactions, p.Reactions)
}

// SystemContent is the payload of a system message. The concrete types are the System*
// structs in this package.
type SystemContent interface {
	SystemType() string
}

type SystemText struct {
	Content string `json:"content"`
}

type SystemUserAdded struct {
	ID string `json:"id"`
	By string `json:"by"`
}

type SystemUserRemove struct {
	ID string `json:"id"`
	By string `json:"by"`
}

type SystemUserJoined struct {
	ID string `json:"id"`
}

type SystemUserLeft struct {
	ID string `json:"id"`
}

type SystemUserKicked struct {
	ID string `json:"id"`
}

type SystemUserBanned struct {
	ID string `json:"id"`
}

type SystemChannelRenamed struct {
	Name string `json:"name"`
	By   string `json:"by"`
}

type SystemChannelDescriptionChanged struct {
	By string `json:"by"`
}

type SystemChannelIconChanged struct {
	By string `json:"by"`
}

type SystemChannelOwnershipChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type SystemMessagePinned struct {
	ID string `json:"id"`
	By string `json:"by"`
}

// SystemUnknown keeps payloads of system message types this package doesn't know.
type SystemUnknown struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

func (SystemText) SystemType() string                      { return "text" }
func (SystemUserAdded) SystemType() string                 { return "user_added" }
func (SystemUserRemove) SystemType() string                { return "user_remove" }
func (SystemUserJoined) SystemType() string                { return "user_joined" }
func (SystemUserLeft) SystemType() string                  { return "user_left" }
func (SystemUserKicked) SystemType() string                { return "user_kicked" }
func (SystemUserBanned) SystemType() string                { return "user_banned" }
func (SystemChannelRenamed) SystemType() string            { return "channel_renamed" }
func (SystemChannelDescriptionChanged) SystemType() string { return "channel_description_changed" }
func (SystemChannelIconChanged) SystemType() string        { return "channel_icon_changed" }
func (SystemChannelOwnershipChanged) SystemType() string   { return "channel_ownership_changed" }
func (SystemMessagePinned) SystemType() string             { return "message_pinned" }
func (s SystemUnknown) SystemType() string                 { return s.Type }

func DecodeSystemContent(data []byte) (SystemContent, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode system message type: %w", err)
	}

	switch tag.Type {
	case "text":
		return decodeSystem[SystemText](data)
	case "user_added":
		return decodeSystem[SystemUserAdded](data)
	case "user_remove":
		return decodeSystem[SystemUserRemove](data)
	case "user_joined":
		return decodeSystem[SystemUserJoined](data)
	case "user_left":
		return decodeSystem[SystemUserLeft](data)
	case "user_kicked":
		return decodeSystem[SystemUserKicked](data)
	case "user_banned":
		return decodeSystem[SystemUserBanned](data)
	case "channel_renamed":
		return decodeSystem[SystemChannelRenamed](data)
	case "channel_description_changed":
		return decodeSystem[SystemChannelDescriptionChanged](data)
	case "channel_icon_changed":
		return decodeSystem[SystemChannelIconChanged](data)
	case "channel_ownership_changed":
		return decodeSystem[SystemChannelOwnershipChanged](data)
	case "message_pinned":
		return decodeSystem[SystemMessagePinned](data)
	}
	return SystemUnknown{Type: tag.Type, Raw: append(json.RawMessage(nil), data...)}, nil
}

func decodeSystem[T SystemContent](data []byte) (SystemContent, error) {
	var content T
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode %s system message: %w", content.SystemType(), err)
	}
	return content, nil
}
