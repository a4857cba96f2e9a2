package hub

import (
	"stoat-client/events"
	"stoat-client/models"
)

// scope returns the server and channel an event belongs to. Either may be empty.
func scope(event events.Event) (serverID, channelID string) {
	switch e := event.(type) {
	case events.MessageCreated:
		if e.Message != nil {
			channelID = e.Message.ChannelID()
		}
	case events.MessageUpdated:
		channelID = e.ChannelID
	case events.MessageDeleted:
		channelID = e.ChannelID
	case events.MessagesBulkDeleted:
		channelID = e.ChannelID
	case events.ReactionAdded:
		channelID = e.ChannelID
	case events.ReactionRemoved:
		channelID = e.ChannelID
	case events.ReactionCleared:
		channelID = e.ChannelID
	case events.TypingStarted:
		channelID = e.ChannelID
	case events.TypingStopped:
		channelID = e.ChannelID

	case events.ServerCreated:
		if e.Server != nil {
			serverID = e.Server.ID
		}
	case events.ServerUpdated:
		if e.After != nil {
			serverID = e.After.ID
		}
	case events.ServerDeleted:
		serverID = e.ID
	case events.MemberJoined:
		serverID = e.ServerID
	case events.MemberLeft:
		serverID = e.ServerID
	case events.MemberUpdated:
		serverID = e.ID.Server
	case events.RoleCreated:
		serverID = e.ServerID
	case events.RoleUpdated:
		serverID = e.ServerID
	case events.RoleDeleted:
		serverID = e.ServerID

	case events.ChannelCreated:
		serverID, channelID = channelScope(e.Channel)
	case events.ChannelUpdated:
		serverID, channelID = channelScope(e.After)
	case events.ChannelDeleted:
		serverID, _ = channelScope(e.Channel)
		channelID = e.ID
	case events.GroupJoined:
		if e.Channel != nil {
			channelID = e.Channel.ID
		}
	case events.GroupLeft:
		if e.Channel != nil {
			channelID = e.Channel.ID
		}

	case events.EmojiCreated:
		serverID = emojiServer(e.Emoji)
	case events.EmojiDeleted:
		serverID = emojiServer(e.Emoji)
	}
	return serverID, channelID
}

func channelScope(channel models.Channel) (serverID, channelID string) {
	if channel == nil {
		return "", ""
	}
	return models.ChannelServerID(channel), channel.ChannelID()
}

func emojiServer(emoji *models.Emoji) string {
	if emoji == nil {
		return ""
	}
	return emoji.ServerID()
}

// keys returns every pub/sub key event is published on: one for its type, one for its
// server and one for its channel when it has them.
func (h *Hub) keys(event events.Event) []string {
	keys := []string{h.key(ChannelTypeEvent, string(event.Type()))}

	serverID, channelID := scope(event)
	if serverID != "" {
		keys = append(keys, h.key(ChannelTypeServer, serverID))
	}
	if channelID != "" {
		keys = append(keys, h.key(ChannelTypeChannel, channelID))
	}
	return keys
}

func (h *Hub) key(channelType, id string) string {
	return h.prefix + channelType + ":" + id
}
