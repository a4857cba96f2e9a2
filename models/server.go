package models

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"stoat-client/internal/ids"
)

type Category struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Channels []string `json:"channels"`
}

// SystemMessageChannels names the channels the platform posts membership notices into.
type SystemMessageChannels struct {
	UserJoined string `json:"user_joined,omitempty"`
	UserLeft   string `json:"user_left,omitempty"`
	UserKicked string `json:"user_kicked,omitempty"`
	UserBanned string `json:"user_banned,omitempty"`
}

type Role struct {
	// ID is the key of the role in its server's role map.
	ID          string             `json:"_id,omitempty"`
	Name        string             `json:"name"`
	Permissions PermissionOverride `json:"permissions"`
	Colour      *string            `json:"colour,omitempty"`
	Hoist       bool               `json:"hoist,omitempty"`
	Rank        int64              `json:"rank"`
}

// SortRoles orders roles by rank, then by id. Equal ranks keep a deterministic order.
func SortRoles(roles []Role) {
	slices.SortStableFunc(roles, func(a, b Role) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

type Server struct {
	ID                 string                 `json:"_id"`
	Owner              string                 `json:"owner"`
	Name               string                 `json:"name"`
	Description        *string                `json:"description,omitempty"`
	Channels           []string               `json:"channels"`
	Categories         []Category             `json:"categories,omitempty"`
	SystemMessages     *SystemMessageChannels `json:"system_messages,omitempty"`
	Roles              map[string]Role        `json:"roles,omitempty"`
	DefaultPermissions uint64                 `json:"default_permissions"`
	Icon               *Attachment            `json:"icon,omitempty"`
	Banner             *Attachment            `json:"banner,omitempty"`
	Flags              uint32                 `json:"flags,omitempty"`
	NSFW               bool                   `json:"nsfw,omitempty"`
	Analytics          bool                   `json:"analytics,omitempty"`
	Discoverable       bool                   `json:"discoverable,omitempty"`

	// Members is only populated for servers whose member list was fetched.
	Members map[string]Member `json:"-"`
}

func (s *Server) UnmarshalJSON(data []byte) error {
	type plain Server
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	for id, role := range s.Roles {
		role.ID = id
		s.Roles[id] = role
	}
	return nil
}

func (s *Server) CreatedAt() time.Time { return ids.CreatedAt(s.ID) }

// OrderedRoles returns the server's roles sorted with SortRoles.
func (s *Server) OrderedRoles() []Role {
	roles := slices.Collect(maps.Values(s.Roles))
	SortRoles(roles)
	return roles
}

func (s *Server) Role(id string) (Role, bool) {
	role, ok := s.Roles[id]
	return role, ok
}

func (s *Server) HasChannel(channelID string) bool {
	return slices.Contains(s.Channels, channelID)
}

// Clone returns a copy that shares no slices or maps with s.
func (s *Server) Clone() *Server {
	out := *s
	out.Channels = slices.Clone(s.Channels)
	if s.Categories != nil {
		out.Categories = make([]Category, len(s.Categories))
		for i, category := range s.Categories {
			category.Channels = slices.Clone(category.Channels)
			out.Categories[i] = category
		}
	}
	out.Roles = maps.Clone(s.Roles)
	out.Members = maps.Clone(s.Members)
	return &out
}

type PartialServer struct {
	Owner              Field[string]                `json:"owner,omitzero"`
	Name               Field[string]                `json:"name,omitzero"`
	Description        Field[string]                `json:"description,omitzero"`
	Channels           Field[[]string]              `json:"channels,omitzero"`
	Categories         Field[[]Category]            `json:"categories,omitzero"`
	SystemMessages     Field[SystemMessageChannels] `json:"system_messages,omitzero"`
	DefaultPermissions Field[uint64]                `json:"default_permissions,omitzero"`
	Icon               Field[Attachment]            `json:"icon,omitzero"`
	Banner             Field[Attachment]            `json:"banner,omitzero"`
	Flags              Field[uint32]                `json:"flags,omitzero"`
	NSFW               Field[bool]                  `json:"nsfw,omitzero"`
	Analytics          Field[bool]                  `json:"analytics,omitzero"`
	Discoverable       Field[bool]                  `json:"discoverable,omitzero"`
}

// ApplyClear marks the named properties as cleared and returns the names it doesn't know.
func (p *PartialServer) ApplyClear(names []string) []string {
	return clearByName(names, map[string]func(){
		"Description":    p.Description.clear,
		"Icon":           p.Icon.clear,
		"Banner":         p.Banner.clear,
		"Categories":     p.Categories.clear,
		"SystemMessages": p.SystemMessages.clear,
	})
}

func (p PartialServer) Apply(s *Server) {
	applyField(&s.Owner, p.Owner)
	applyField(&s.Name, p.Name)
	applyNullable(&s.Description, p.Description)
	applyField(&s.Channels, p.Channels)
	applyField(&s.Categories, p.Categories)
	applyNullable(&s.SystemMessages, p.SystemMessages)
	applyField(&s.DefaultPermissions, p.DefaultPermissions)
	applyNullable(&s.Icon, p.Icon)
	applyNullable(&s.Banner, p.Banner)
	applyField(&s.Flags, p.Flags)
	applyField(&s.NSFW, p.NSFW)
	applyField(&s.Analytics, p.Analytics)
	applyField(&s.Discoverable, p.Discoverable)
}

type PartialRole struct {
	Name        Field[string]             `json:"name,omitzero"`
	Permissions Field[PermissionOverride] `json:"permissions,omitzero"`
	Colour      Field[string]             `json:"colour,omitzero"`
	Hoist       Field[bool]               `json:"hoist,omitzero"`
	Rank        Field[int64]              `json:"rank,omitzero"`
}

func (p *PartialRole) ApplyClear(names []string) []string {
	return clearByName(names, map[string]func(){
		"Colour": p.Colour.clear,
	})
}

func (p PartialRole) Apply(r *Role) {
	applyField(&r.Name, p.Name)
	applyField(&r.Permissions, p.Permissions)
	applyNullable(&r.Colour, p.Colour)
	applyField(&r.Hoist, p.Hoist)
	applyField(&r.Rank, p.Rank)
}
