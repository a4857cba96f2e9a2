package cache

import (
	"sync/atomic"

	"go.uber.org/zap"

	"stoat-client/models"
)

// Snapshot is the complete state the cache is rebuilt from after a Ready frame.
type Snapshot struct {
	Self     *models.SelfUser
	Users    []*models.User
	Servers  []*models.Server
	Channels []models.Channel
	Emojis   []*models.Emoji
}

// Cache mirrors the platform state the event stream reports: four entity stores and the
// session's own user.
type Cache struct {
	Servers  *Store[*models.Server]
	Channels *Store[models.Channel]
	Users    *Store[*models.User]
	Emojis   *Store[*models.Emoji]

	self atomic.Pointer[models.SelfUser]
	log  *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Cache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Cache{
		Servers:  NewStore[*models.Server](),
		Channels: NewStore[models.Channel](),
		Users:    NewStore[*models.User](),
		Emojis:   NewStore[*models.Emoji](),
		log:      log,
	}
}

// Reset empties the four stores. The self user is kept.
func (c *Cache) Reset() {
	c.Servers.Clear()
	c.Channels.Clear()
	c.Users.Clear()
	c.Emojis.Clear()
	c.log.Debug("Cache cleared")
}

// Load replaces every store with the content of a snapshot. Each store switches from its
// old content to the new one in a single step, but the stores switch one after another:
// users, emojis, channels, then servers. Loading into an empty cache, a reader that finds
// a server of the snapshot therefore finds its channels, emojis and users too, while a
// reader looking at users alone may see them before the servers arrive. Callers that need
// the whole snapshot wait for the Connected event.
func (c *Cache) Load(snapshot Snapshot) {
	users := make(map[string]*models.User, len(snapshot.Users)+1)
	for _, user := range snapshot.Users {
		users[user.ID] = user
	}
	if snapshot.Self != nil {
		if _, ok := users[snapshot.Self.ID]; !ok {
			self := snapshot.Self.User
			users[self.ID] = &self
		}
		c.self.Store(snapshot.Self)
	}

	servers := make(map[string]*models.Server, len(snapshot.Servers))
	for _, server := range snapshot.Servers {
		servers[server.ID] = server
	}

	channels := make(map[string]models.Channel, len(snapshot.Channels))
	for _, channel := range snapshot.Channels {
		channels[channel.ChannelID()] = channel
	}

	emojis := make(map[string]*models.Emoji, len(snapshot.Emojis))
	for _, emoji := range snapshot.Emojis {
		emojis[emoji.ID] = emoji
	}

	c.Users.ReplaceAll(users)
	c.Emojis.ReplaceAll(emojis)
	c.Channels.ReplaceAll(channels)
	c.Servers.ReplaceAll(servers)

	c.log.Debugf("Cache loaded with [%d] users, [%d] servers, [%d] channels and [%d] emojis",
		len(users), len(servers), len(channels), len(emojis))
}

func (c *Cache) Self() *models.SelfUser {
	return c.self.Load()
}

func (c *Cache) SetSelf(self *models.SelfUser) {
	c.self.Store(self)
}

func channelAs[T models.Channel](c *Cache, id string) (T, bool) {
	var zero T
	channel, ok := c.Channels.Get(id)
	if !ok {
		return zero, false
	}
	typed, ok := channel.(T)
	return typed, ok
}

func (c *Cache) TextChannel(id string) (*models.TextChannel, bool) {
	return channelAs[*models.TextChannel](c, id)
}

func (c *Cache) VoiceChannel(id string) (*models.VoiceChannel, bool) {
	return channelAs[*models.VoiceChannel](c, id)
}

func (c *Cache) GroupChannel(id string) (*models.GroupChannel, bool) {
	return channelAs[*models.GroupChannel](c, id)
}

func (c *Cache) DMChannel(id string) (*models.DMChannel, bool) {
	return channelAs[*models.DMChannel](c, id)
}

func (c *Cache) SavedMessagesChannel(id string) (*models.SavedMessagesChannel, bool) {
	return channelAs[*models.SavedMessagesChannel](c, id)
}

// ServerChannels returns the cached channels of a server in the server's channel order.
func (c *Cache) ServerChannels(serverID string) []models.Channel {
	server, ok := c.Servers.Get(serverID)
	if !ok {
		return nil
	}
	channels := make([]models.Channel, 0, len(server.Channels))
	for _, id := range server.Channels {
		if channel, ok := c.Channels.Get(id); ok {
			channels = append(channels, channel)
		}
	}
	return channels
}

func (c *Cache) ServerEmojis(serverID string) []*models.Emoji {
	var emojis []*models.Emoji
	for _, emoji := range c.Emojis.GetAll() {
		if emoji.ServerID() == serverID {
			emojis = append(emojis, emoji)
		}
	}
	return emojis
}

// Role looks a role up across every cached server.
func (c *Cache) Role(roleID string) (serverID string, role models.Role, ok bool) {
	for _, server := range c.Servers.GetAll() {
		if role, ok := server.Roles[roleID]; ok {
			return server.ID, role, true
		}
	}
	return "", models.Role{}, false
}
