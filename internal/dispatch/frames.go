package dispatch

import (
	"encoding/json"

	"stoat-client/models"
)

// Wire tags of the frames the platform sends over the event stream.
const (
	FrameAuthenticated = "Authenticated"
	FrameReady         = "Ready"
	FramePong          = "Pong"
	FrameError         = "Error"
	FrameBulk          = "Bulk"

	FrameMessage               = "Message"
	FrameMessageUpdate         = "MessageUpdate"
	FrameMessageDelete         = "MessageDelete"
	FrameBulkMessageDelete     = "BulkMessageDelete"
	FrameMessageReact          = "MessageReact"
	FrameMessageUnreact        = "MessageUnreact"
	FrameMessageRemoveReaction = "MessageRemoveReaction"

	FrameServerCreate       = "ServerCreate"
	FrameServerUpdate       = "ServerUpdate"
	FrameServerDelete       = "ServerDelete"
	FrameServerMemberJoin   = "ServerMemberJoin"
	FrameServerMemberLeave  = "ServerMemberLeave"
	FrameServerMemberUpdate = "ServerMemberUpdate"
	FrameServerRoleUpdate   = "ServerRoleUpdate"
	FrameServerRoleDelete   = "ServerRoleDelete"

	FrameChannelCreate      = "ChannelCreate"
	FrameChannelUpdate      = "ChannelUpdate"
	FrameChannelDelete      = "ChannelDelete"
	FrameChannelGroupJoin   = "ChannelGroupJoin"
	FrameChannelGroupLeave  = "ChannelGroupLeave"
	FrameChannelStartTyping = "ChannelStartTyping"
	FrameChannelStopTyping  = "ChannelStopTyping"

	FrameUserUpdate  = "UserUpdate"
	FrameEmojiCreate = "EmojiCreate"
	FrameEmojiDelete = "EmojiDelete"
)

// FrameType returns the "type" tag of a frame.
func FrameType(data []byte) (string, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return "", err
	}
	return header.Type, nil
}

type readyFrame struct {
	Users    []*models.User    `json:"users"`
	Servers  []*models.Server  `json:"servers"`
	Channels []json.RawMessage `json:"channels"`
	Members  []models.Member   `json:"members"`
	Emojis   []*models.Emoji   `json:"emojis"`
}

type errorFrame struct {
	Error string `json:"error"`
}

type bulkFrame struct {
	V []json.RawMessage `json:"v"`
}

type idFrame struct {
	ID string `json:"id"`
}

type messageUpdateFrame struct {
	ID      string                `json:"id"`
	Channel string                `json:"channel"`
	Data    models.PartialMessage `json:"data"`
}

type messageDeleteFrame struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

type bulkMessageDeleteFrame struct {
	Channel string   `json:"channel"`
	IDs     []string `json:"ids"`
}

type reactionFrame struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	EmojiID   string `json:"emoji_id"`
}

type serverCreateFrame struct {
	ID       string            `json:"id"`
	Server   *models.Server    `json:"server"`
	Channels []json.RawMessage `json:"channels"`
	Emojis   []*models.Emoji   `json:"emojis"`
}

type serverUpdateFrame struct {
	ID    string               `json:"id"`
	Data  models.PartialServer `json:"data"`
	Clear []string             `json:"clear"`
}

type memberJoinFrame struct {
	ID     string         `json:"id"`
	User   string         `json:"user"`
	Member *models.Member `json:"member"`
}

type memberLeaveFrame struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Reason string `json:"reason"`
}

type memberUpdateFrame struct {
	ID    models.MemberID      `json:"id"`
	Data  models.PartialMember `json:"data"`
	Clear []string             `json:"clear"`
}

type roleUpdateFrame struct {
	ID     string             `json:"id"`
	RoleID string             `json:"role_id"`
	Data   models.PartialRole `json:"data"`
	Clear  []string           `json:"clear"`
}

type roleDeleteFrame struct {
	ID     string `json:"id"`
	RoleID string `json:"role_id"`
}

type channelUpdateFrame struct {
	ID    string                `json:"id"`
	Data  models.PartialChannel `json:"data"`
	Clear []string              `json:"clear"`
}

type channelUserFrame struct {
	ID   string `json:"id"`
	User string `json:"user"`
}

type userUpdateFrame struct {
	ID    string             `json:"id"`
	Data  models.PartialUser `json:"data"`
	Clear []string           `json:"clear"`
}
