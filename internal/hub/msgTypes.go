package hub

import "stoat-client/events"

const (
	ChannelTypeEvent   = "event"
	ChannelTypeServer  = "server"
	ChannelTypeChannel = "channel"
)

// MirroredTypes are the events the hub forwards. Log events stay local, the hub logs
// while emitting.
var MirroredTypes = []events.Type{
	events.TypeConnected,
	events.TypeLoginComplete,
	events.TypeStateChanged,
	events.TypeReady,
	events.TypeError,

	events.TypeMessageCreated,
	events.TypeMessageUpdated,
	events.TypeMessageDeleted,
	events.TypeMessagesBulkDeleted,
	events.TypeReactionAdded,
	events.TypeReactionRemoved,
	events.TypeReactionCleared,

	events.TypeServerCreated,
	events.TypeServerUpdated,
	events.TypeServerDeleted,
	events.TypeMemberJoined,
	events.TypeMemberLeft,
	events.TypeMemberUpdated,
	events.TypeRoleCreated,
	events.TypeRoleUpdated,
	events.TypeRoleDeleted,

	events.TypeChannelCreated,
	events.TypeChannelUpdated,
	events.TypeChannelDeleted,
	events.TypeGroupJoined,
	events.TypeGroupLeft,
	events.TypeTypingStarted,
	events.TypeTypingStopped,

	events.TypeUserUpdated,
	events.TypeSelfUserUpdated,
	events.TypeEmojiCreated,
	events.TypeEmojiDeleted,
}
