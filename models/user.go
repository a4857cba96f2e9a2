package models

import (
	"slices"
	"time"

	"stoat-client/internal/ids"
)

type UserFlags uint32

const (
	UserFlagSuspended UserFlags = 1 << iota
	UserFlagDeleted
	UserFlagBanned
	UserFlagSpam
)

func (f UserFlags) Has(flag UserFlags) bool { return f&flag == flag }

type Presence string

const (
	PresenceOnline    Presence = "Online"
	PresenceIdle      Presence = "Idle"
	PresenceFocus     Presence = "Focus"
	PresenceBusy      Presence = "Busy"
	PresenceInvisible Presence = "Invisible"
)

type UserStatus struct {
	Text     *string   `json:"text,omitempty"`
	Presence *Presence `json:"presence,omitempty"`
}

type BotInfo struct {
	Owner string `json:"owner"`
}

type User struct {
	ID            string      `json:"_id"`
	Username      string      `json:"username"`
	Discriminator string      `json:"discriminator"`
	DisplayName   *string     `json:"display_name,omitempty"`
	Avatar        *Attachment `json:"avatar,omitempty"`
	Badges        uint32      `json:"badges,omitempty"`
	Status        *UserStatus `json:"status,omitempty"`
	Flags         UserFlags   `json:"flags,omitempty"`
	Privileged    bool        `json:"privileged,omitempty"`
	Bot           *BotInfo    `json:"bot,omitempty"`
	Relationship  string      `json:"relationship,omitempty"`
	Online        bool        `json:"online,omitempty"`
}

func (u *User) CreatedAt() time.Time { return ids.CreatedAt(u.ID) }

func (u *User) IsBot() bool { return u.Bot != nil }

// Tag is the username#discriminator pair shown to people.
func (u *User) Tag() string { return u.Username + "#" + u.Discriminator }

func (u *User) Clone() *User {
	out := *u
	if u.Status != nil {
		status := *u.Status
		out.Status = &status
	}
	return &out
}

type Profile struct {
	Content    *string     `json:"content,omitempty"`
	Background *Attachment `json:"background,omitempty"`
}

// SelfUser is the user the session belongs to.
type SelfUser struct {
	User
	Profile *Profile `json:"profile,omitempty"`
}

func (s *SelfUser) Clone() *SelfUser {
	out := SelfUser{User: *s.User.Clone()}
	if s.Profile != nil {
		profile := *s.Profile
		out.Profile = &profile
	}
	return &out
}

type PartialUser struct {
	Username      Field[string]     `json:"username,omitzero"`
	Discriminator Field[string]     `json:"discriminator,omitzero"`
	DisplayName   Field[string]     `json:"display_name,omitzero"`
	Avatar        Field[Attachment] `json:"avatar,omitzero"`
	Badges        Field[uint32]     `json:"badges,omitzero"`
	Status        Field[UserStatus] `json:"status,omitzero"`
	Profile       Field[Profile]    `json:"profile,omitzero"`
	Flags         Field[UserFlags]  `json:"flags,omitzero"`
	Privileged    Field[bool]       `json:"privileged,omitzero"`
	Online        Field[bool]       `json:"online,omitzero"`

	clearStatusText        bool
	clearStatusPresence    bool
	clearProfileContent    bool
	clearProfileBackground bool
}

func (p *PartialUser) ApplyClear(names []string) []string {
	return clearByName(names, map[string]func(){
		"DisplayName":       p.DisplayName.clear,
		"Avatar":            p.Avatar.clear,
		"StatusText":        func() { p.clearStatusText = true },
		"StatusPresence":    func() { p.clearStatusPresence = true },
		"ProfileContent":    func() { p.clearProfileContent = true },
		"ProfileBackground": func() { p.clearProfileBackground = true },
	})
}

func (p PartialUser) Apply(u *User) {
	applyField(&u.Username, p.Username)
	applyField(&u.Discriminator, p.Discriminator)
	applyNullable(&u.DisplayName, p.DisplayName)
	applyNullable(&u.Avatar, p.Avatar)
	applyField(&u.Badges, p.Badges)
	applyNullable(&u.Status, p.Status)
	applyField(&u.Flags, p.Flags)
	applyField(&u.Privileged, p.Privileged)
	applyField(&u.Online, p.Online)

	if (p.clearStatusText || p.clearStatusPresence) && u.Status != nil {
		status := *u.Status
		if p.clearStatusText {
			status.Text = nil
		}
		if p.clearStatusPresence {
			status.Presence = nil
		}
		u.Status = &status
	}
}

// ApplySelf patches the self user, including the profile properties other users don't
// carry.
func (p PartialUser) ApplySelf(s *SelfUser) {
	p.Apply(&s.User)
	applyNullable(&s.Profile, p.Profile)

	if (p.clearProfileContent || p.clearProfileBackground) && s.Profile != nil {
		profile := *s.Profile
		if p.clearProfileContent {
			profile.Content = nil
		}
		if p.clearProfileBackground {
			profile.Background = nil
		}
		s.Profile = &profile
	}
}

type MemberID struct {
	Server string `json:"server"`
	User   string `json:"user"`
}

// Member is a user's membership of one server.
type Member struct {
	ID       MemberID    `json:"_id"`
	JoinedAt time.Time   `json:"joined_at"`
	Nickname *string     `json:"nickname,omitempty"`
	Avatar   *Attachment `json:"avatar,omitempty"`
	Roles    []string    `json:"roles,omitempty"`
	Timeout  *time.Time  `json:"timeout,omitempty"`
}

func (m *Member) HasRole(roleID string) bool {
	return slices.Contains(m.Roles, roleID)
}

type PartialMember struct {
	Nickname Field[string]     `json:"nickname,omitzero"`
	Avatar   Field[Attachment] `json:"avatar,omitzero"`
	Roles    Field[[]string]   `json:"roles,omitzero"`
	Timeout  Field[time.Time]  `json:"timeout,omitzero"`
}

func (p *PartialMember) ApplyClear(names []string) []string {
	return clearByName(names, map[string]func(){
		"Nickname": p.Nickname.clear,
		"Avatar":   p.Avatar.clear,
		"Roles":    p.Roles.clear,
		"Timeout":  p.Timeout.clear,
	})
}

func (p PartialMember) Apply(m *Member) {
	applyNullable(&m.Nickname, p.Nickname)
	applyNullable(&m.Avatar, p.Avatar)
	applyField(&m.Roles, p.Roles)
	applyNullable(&m.Timeout, p.Timeout)
}

type EmojiParent struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type Emoji struct {
	ID        string      `json:"_id"`
	Parent    EmojiParent `json:"parent"`
	CreatorID string      `json:"creator_id"`
	Name      string      `json:"name"`
	Animated  bool        `json:"animated,omitempty"`
	NSFW      bool        `json:"nsfw,omitempty"`
}

// ServerID returns the server the emoji belongs to, or "" for detached emojis.
func (e *Emoji) ServerID() string {
	if e.Parent.Type == "Server" {
		return e.Parent.ID
	}
	return ""
}

func (e *Emoji) CreatedAt() time.Time { return ids.CreatedAt(e.ID) }
