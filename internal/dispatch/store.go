package dispatch

import (
	"stoat-client/internal/cache"
	"stoat-client/models"
)

// StoreChannel writes a channel loaded over HTTP to the cache, serialized with the frames
// being dispatched. It returns a copy of what was stored.
func (d *Dispatcher) StoreChannel(channel models.Channel) models.Channel {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.storeChannel(channel)
	return channel.Clone()
}

// StoreServer writes a server loaded over HTTP to the cache, keeping the member list of the
// cached copy. It returns a copy of what was stored.
func (d *Dispatcher) StoreServer(server *models.Server) *models.Server {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if cached, ok := d.cache.Servers.Get(server.ID); ok && cached.Members != nil {
		server.Members = cached.Clone().Members
	}
	d.cache.Servers.Set(server.ID, server)
	return server.Clone()
}

// Store runs fn against the cache, serialized with the frames being dispatched.
func (d *Dispatcher) Store(fn func(c *cache.Cache)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	fn(d.cache)
}

func (d *Dispatcher) storeChannel(channel models.Channel) {
	// A channel never moves to another server.
	if existing, ok := d.cache.Channels.Get(channel.ChannelID()); ok {
		if serverID := models.ChannelServerID(existing); serverID != "" {
			switch ch := channel.(type) {
			case *models.TextChannel:
				ch.Server = serverID
			case *models.VoiceChannel:
				ch.Server = serverID
			}
		}
	}
	d.cache.Channels.Set(channel.ChannelID(), channel)

	if serverID := models.ChannelServerID(channel); serverID != "" {
		d.cache.Servers.Update(serverID, func(current *models.Server) (*models.Server, bool) {
			if current.HasChannel(channel.ChannelID()) {
				return current, false
			}
			next := current.Clone()
			next.Channels = append(next.Channels, channel.ChannelID())
			return next, true
		})
	}
}
