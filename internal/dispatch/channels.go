package dispatch

import (
	"encoding/json"
	"slices"

	"stoat-client/events"
	"stoat-client/models"
)

func (d *Dispatcher) channelCreate(data []byte) error {
	channel, err := models.DecodeChannel(data)
	if err != nil {
		return err
	}

	d.storeChannel(channel)

	d.bus.Publish(events.ChannelCreated{Channel: channel})
	return nil
}

func (d *Dispatcher) channelUpdate(data []byte) error {
	var frame channelUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if unknown := frame.Data.ApplyClear(frame.Clear); len(unknown) > 0 {
		d.log.Debugf("Unknown channel fields to clear: %v", unknown)
	}

	before, after, ok := d.cache.Channels.Update(frame.ID, func(current models.Channel) (models.Channel, bool) {
		next := current.Clone()
		frame.Data.Apply(next)
		return next, true
	})
	if !ok {
		d.log.Debugf("Update for uncached channel [%s] dropped", frame.ID)
		return nil
	}

	d.bus.Publish(events.ChannelUpdated{Before: before, After: after})
	return nil
}

func (d *Dispatcher) channelDelete(data []byte) error {
	var frame idFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	channel, ok := d.cache.Channels.Delete(frame.ID)
	if ok {
		d.detachFromServer(channel)
	}

	d.bus.Publish(events.ChannelDeleted{ID: frame.ID, Channel: channel})
	return nil
}

func (d *Dispatcher) detachFromServer(channel models.Channel) {
	serverID := models.ChannelServerID(channel)
	if serverID == "" {
		return
	}
	d.cache.Servers.Update(serverID, func(current *models.Server) (*models.Server, bool) {
		if !current.HasChannel(channel.ChannelID()) {
			return current, false
		}
		next := current.Clone()
		next.Channels = slices.DeleteFunc(next.Channels, func(id string) bool {
			return id == channel.ChannelID()
		})
		return next, true
	})
}

func (d *Dispatcher) groupJoin(data []byte) error {
	var frame channelUserFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	_, after, ok := d.cache.Channels.Update(frame.ID, func(current models.Channel) (models.Channel, bool) {
		group, isGroup := current.(*models.GroupChannel)
		if !isGroup || group.HasRecipient(frame.User) {
			return current, false
		}
		next := group.Clone().(*models.GroupChannel)
		next.Recipients = append(next.Recipients, frame.User)
		return next, true
	})

	var group *models.GroupChannel
	if ok {
		group = after.(*models.GroupChannel)
	} else {
		group, _ = d.cache.GroupChannel(frame.ID)
	}
	d.bus.Publish(events.GroupJoined{Channel: group, UserID: frame.User})
	return nil
}

func (d *Dispatcher) groupLeave(data []byte) error {
	var frame channelUserFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	var group *models.GroupChannel
	_, after, ok := d.cache.Channels.Update(frame.ID, func(current models.Channel) (models.Channel, bool) {
		g, isGroup := current.(*models.GroupChannel)
		if !isGroup || !g.HasRecipient(frame.User) {
			return current, false
		}
		next := g.Clone().(*models.GroupChannel)
		next.Recipients = slices.DeleteFunc(next.Recipients, func(id string) bool { return id == frame.User })
		return next, true
	})
	if ok {
		group = after.(*models.GroupChannel)
	} else {
		group, _ = d.cache.GroupChannel(frame.ID)
	}

	// Leaving a group ourselves means the channel is gone for this session.
	if self := d.cache.Self(); self != nil && self.ID == frame.User {
		d.cache.Channels.Delete(frame.ID)
	}

	d.bus.Publish(events.GroupLeft{Channel: group, UserID: frame.User})
	return nil
}

func (d *Dispatcher) typing(frameType string, data []byte) error {
	var frame channelUserFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	if frameType == FrameChannelStartTyping {
		d.bus.Publish(events.TypingStarted{ChannelID: frame.ID, UserID: frame.User})
	} else {
		d.bus.Publish(events.TypingStopped{ChannelID: frame.ID, UserID: frame.User})
	}
	return nil
}
