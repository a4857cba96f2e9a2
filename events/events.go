package events

import (
	"time"

	"go.uber.org/zap/zapcore"

	"stoat-client/models"
)

type Event interface {
	Type() Type
}

// Connected is published each time the event stream reaches Ready, including after a
// reconnect.
type Connected struct{}

type LoginComplete struct {
	Self *models.SelfUser
}

type Log struct {
	Time    time.Time      `json:"time"`
	Level   zapcore.Level  `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Caller  string         `json:"caller,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

type StateChanged struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// Ready carries the snapshot the cache was just rebuilt from.
type Ready struct {
	Self     *models.SelfUser `json:"self"`
	Users    []*models.User   `json:"users"`
	Servers  []*models.Server `json:"servers"`
	Channels []models.Channel `json:"channels"`
	Emojis   []*models.Emoji  `json:"emojis"`
}

// Error is an error frame sent by the platform over the event stream.
type Error struct {
	Code string `json:"error"`
}

type MessageCreated struct {
	Message models.Message `json:"message"`
	// Author is nil when the author is neither cached nor fetched.
	Author *models.User `json:"author,omitempty"`
}

type MessageUpdated struct {
	ID        string                `json:"id"`
	ChannelID string                `json:"channel"`
	Partial   models.PartialMessage `json:"data"`
}

type MessageDeleted struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel"`
}

type MessagesBulkDeleted struct {
	ChannelID string   `json:"channel"`
	IDs       []string `json:"ids"`
}

type ReactionAdded struct {
	MessageID string `json:"id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	EmojiID   string `json:"emoji_id"`
}

type ReactionRemoved struct {
	MessageID string `json:"id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	EmojiID   string `json:"emoji_id"`
}

type ReactionCleared struct {
	MessageID string `json:"id"`
	ChannelID string `json:"channel_id"`
	EmojiID   string `json:"emoji_id"`
}

type ServerCreated struct {
	Server *models.Server `json:"server"`
}

type ServerUpdated struct {
	Before *models.Server `json:"before"`
	After  *models.Server `json:"after"`
}

// ServerDeleted.Server is the last cached state, nil if the server wasn't cached.
type ServerDeleted struct {
	ID     string         `json:"id"`
	Server *models.Server `json:"server,omitempty"`
}

type MemberJoined struct {
	ServerID string         `json:"server"`
	UserID   string         `json:"user"`
	Member   *models.Member `json:"member,omitempty"`
}

type MemberLeft struct {
	ServerID string `json:"server"`
	UserID   string `json:"user"`
	Reason   string `json:"reason,omitempty"`
}

type MemberUpdated struct {
	ID      models.MemberID      `json:"id"`
	Partial models.PartialMember `json:"data"`
	Clear   []string             `json:"clear,omitempty"`
	// After is set when the member list of the server was fetched and cached.
	After *models.Member `json:"after,omitempty"`
}

type RoleCreated struct {
	ServerID string      `json:"server"`
	Role     models.Role `json:"role"`
}

type RoleUpdated struct {
	ServerID string      `json:"server"`
	Before   models.Role `json:"before"`
	After    models.Role `json:"after"`
}

type RoleDeleted struct {
	ServerID string      `json:"server"`
	Role     models.Role `json:"role"`
}

type ChannelCreated struct {
	Channel models.Channel `json:"channel"`
}

type ChannelUpdated struct {
	Before models.Channel `json:"before"`
	After  models.Channel `json:"after"`
}

type ChannelDeleted struct {
	ID      string         `json:"id"`
	Channel models.Channel `json:"channel,omitempty"`
}

type GroupJoined struct {
	Channel *models.GroupChannel `json:"channel"`
	UserID  string               `json:"user"`
}

type GroupLeft struct {
	Channel *models.GroupChannel `json:"channel"`
	UserID  string               `json:"user"`
}

type TypingStarted struct {
	ChannelID string `json:"channel"`
	UserID    string `json:"user"`
}

type TypingStopped struct {
	ChannelID string `json:"channel"`
	UserID    string `json:"user"`
}

type UserUpdated struct {
	Before *models.User `json:"before,omitempty"`
	After  *models.User `json:"after"`
}

type SelfUserUpdated struct {
	Before *models.SelfUser `json:"before"`
	After  *models.SelfUser `json:"after"`
}

type EmojiCreated struct {
	Emoji *models.Emoji `json:"emoji"`
}

type EmojiDeleted struct {
	ID    string        `json:"id"`
	Emoji *models.Emoji `json:"emoji,omitempty"`
}

func (Connected) Type() Type           { return TypeConnected }
func (LoginComplete) Type() Type       { return TypeLoginComplete }
func (Log) Type() Type                 { return TypeLog }
func (StateChanged) Type() Type        { return TypeStateChanged }
func (Ready) Type() Type               { return TypeReady }
func (Error) Type() Type               { return TypeError }
func (MessageCreated) Type() Type      { return TypeMessageCreated }
func (MessageUpdated) Type() Type      { return TypeMessageUpdated }
func (MessageDeleted) Type() Type      { return TypeMessageDeleted }
func (MessagesBulkDeleted) Type() Type { return TypeMessagesBulkDeleted }
func (ReactionAdded) Type() Type       { return TypeReactionAdded }
func (ReactionRemoved) Type() Type     { return TypeReactionRemoved }
func (ReactionCleared) Type() Type     { return TypeReactionCleared }
func (ServerCreated) Type() Type       { return TypeServerCreated }
func (ServerUpdated) Type() Type       { return TypeServerUpdated }
func (ServerDeleted) Type() Type       { return TypeServerDeleted }
func (MemberJoined) Type() Type        { return TypeMemberJoined }
func (MemberLeft) Type() Type          { return TypeMemberLeft }
func (MemberUpdated) Type() Type       { return TypeMemberUpdated }
func (RoleCreated) Type() Type         { return TypeRoleCreated }
func (RoleUpdated) Type() Type         { return TypeRoleUpdated }
func (RoleDeleted) Type() Type         { return TypeRoleDeleted }
func (ChannelCreated) Type() Type      { return TypeChannelCreated }
func (ChannelUpdated) Type() Type      { return TypeChannelUpdated }
func (ChannelDeleted) Type() Type      { return TypeChannelDeleted }
func (GroupJoined) Type() Type         { return TypeGroupJoined }
func (GroupLeft) Type() Type           { return TypeGroupLeft }
func (TypingStarted) Type() Type       { return TypeTypingStarted }
func (TypingStopped) Type() Type       { return TypeTypingStopped }
func (UserUpdated) Type() Type         { return TypeUserUpdated }
func (SelfUserUpdated) Type() Type     { return TypeSelfUserUpdated }
func (EmojiCreated) Type() Type        { return TypeEmojiCreated }
func (EmojiDeleted) Type() Type        { return TypeEmojiDeleted }
