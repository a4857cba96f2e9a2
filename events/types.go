package events

type Type string

const (
	TypeConnected     Type = "Connected"
	TypeLoginComplete Type = "LoginComplete"
	TypeLog           Type = "Log"
	TypeStateChanged  Type = "StateChanged"
	TypeReady         Type = "Ready"
	TypeError         Type = "Error"

	TypeMessageCreated      Type = "MessageCreated"
	TypeMessageUpdated      Type = "MessageUpdated"
	TypeMessageDeleted      Type = "MessageDeleted"
	TypeMessagesBulkDeleted Type = "MessagesBulkDeleted"
	TypeReactionAdded       Type = "ReactionAdded"
	TypeReactionRemoved     Type = "ReactionRemoved"
	TypeReactionCleared     Type = "ReactionCleared"

	TypeServerCreated Type = "ServerCreated"
	TypeServerUpdated Type = "ServerUpdated"
	TypeServerDeleted Type = "ServerDeleted"
	TypeMemberJoined  Type = "MemberJoined"
	TypeMemberLeft    Type = "MemberLeft"
	TypeMemberUpdated Type = "MemberUpdated"
	TypeRoleCreated   Type = "RoleCreated"
	TypeRoleUpdated   Type = "RoleUpdated"
	TypeRoleDeleted   Type = "RoleDeleted"

	TypeChannelCreated Type = "ChannelCreated"
	TypeChannelUpdated Type = "ChannelUpdated"
	TypeChannelDeleted Type = "ChannelDeleted"
	TypeGroupJoined    Type = "GroupJoined"
	TypeGroupLeft      Type = "GroupLeft"
	TypeTypingStarted  Type = "TypingStarted"
	TypeTypingStopped  Type = "TypingStopped"

	TypeUserUpdated     Type = "UserUpdated"
	TypeSelfUserUpdated Type = "SelfUserUpdated"
	TypeEmojiCreated    Type = "EmojiCreated"
	TypeEmojiDeleted    Type = "EmojiDeleted"
)

// State is the connection state of a client's event stream.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateReady:
		return "Ready"
	case StateReconnecting:
		return "Reconnecting"
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
