package dispatch

import (
	"encoding/json"
	"fmt"

	"stoat-client/events"
	"stoat-client/models"
)

func (d *Dispatcher) serverCreate(data []byte) error {
	var frame serverCreateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if frame.Server == nil {
		return fmt.Errorf("server [%s] has no body", frame.ID)
	}

	for _, raw := range frame.Channels {
		channel, err := models.DecodeChannel(raw)
		if err != nil {
			d.log.Warnf("Skipping channel of new server [%s]: %v", frame.Server.ID, err)
			continue
		}
		d.cache.Channels.Set(channel.ChannelID(), channel)
	}
	for _, emoji := range frame.Emojis {
		d.cache.Emojis.Set(emoji.ID, emoji)
	}
	d.cache.Servers.Set(frame.Server.ID, frame.Server)

	d.bus.Publish(events.ServerCreated{Server: frame.Server})
	return nil
}

func (d *Dispatcher) serverUpdate(data []byte) error {
	var frame serverUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if unknown := frame.Data.ApplyClear(frame.Clear); len(unknown) > 0 {
		d.log.Debugf("Unknown server fields to clear: %v", unknown)
	}

	before, after, ok := d.cache.Servers.Update(frame.ID, func(current *models.Server) (*models.Server, bool) {
		next := current.Clone()
		frame.Data.Apply(next)
		return next, true
	})
	if !ok {
		d.log.Debugf("Update for uncached server [%s] dropped", frame.ID)
		return nil
	}

	d.bus.Publish(events.ServerUpdated{Before: before, After: after})
	return nil
}

func (d *Dispatcher) serverDelete(data []byte) error {
	var frame idFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	server, _ := d.cache.Servers.Delete(frame.ID)
	d.cache.Channels.DeleteFunc(func(channel models.Channel) bool {
		return models.ChannelServerID(channel) == frame.ID
	})
	d.cache.Emojis.DeleteFunc(func(emoji *models.Emoji) bool {
		return emoji.ServerID() == frame.ID
	})

	d.bus.Publish(events.ServerDeleted{ID: frame.ID, Server: server})
	return nil
}

func (d *Dispatcher) memberJoin(data []byte) error {
	var frame memberJoinFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	if frame.Member != nil {
		d.cache.Servers.Update(frame.ID, func(current *models.Server) (*models.Server, bool) {
			if current.Members == nil {
				return current, false
			}
			next := current.Clone()
			next.Members[frame.User] = *frame.Member
			return next, true
		})
	}

	d.bus.Publish(events.MemberJoined{ServerID: frame.ID, UserID: frame.User, Member: frame.Member})
	return nil
}

func (d *Dispatcher) memberLeave(data []byte) error {
	var frame memberLeaveFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	d.cache.Servers.Update(frame.ID, func(current *models.Server) (*models.Server, bool) {
		if _, ok := current.Members[frame.User]; !ok {
			return current, false
		}
		next := current.Clone()
		delete(next.Members, frame.User)
		return next, true
	})

	d.bus.Publish(events.MemberLeft{ServerID: frame.ID, UserID: frame.User, Reason: frame.Reason})
	return nil
}

func (d *Dispatcher) memberUpdate(data []byte) error {
	var frame memberUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if unknown := frame.Data.ApplyClear(frame.Clear); len(unknown) > 0 {
		d.log.Debugf("Unknown member fields to clear: %v", unknown)
	}

	var after *models.Member
	d.cache.Servers.Update(frame.ID.Server, func(current *models.Server) (*models.Server, bool) {
		member, ok := current.Members[frame.ID.User]
		if !ok {
			return current, false
		}
		frame.Data.Apply(&member)

		next := current.Clone()
		next.Members[frame.ID.User] = member
		after = &member
		return next, true
	})

	d.bus.Publish(events.MemberUpdated{ID: frame.ID, Partial: frame.Data, Clear: frame.Clear, After: after})
	return nil
}

func (d *Dispatcher) roleUpdate(data []byte) error {
	var frame roleUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if unknown := frame.Data.ApplyClear(frame.Clear); len(unknown) > 0 {
		d.log.Debugf("Unknown role fields to clear: %v", unknown)
	}

	var before, after models.Role
	var existed bool
	_, _, ok := d.cache.Servers.Update(frame.ID, func(current *models.Server) (*models.Server, bool) {
		before, existed = current.Roles[frame.RoleID]
		after = before
		after.ID = frame.RoleID
		frame.Data.Apply(&after)

		next := current.Clone()
		if next.Roles == nil {
			next.Roles = make(map[string]models.Role)
		}
		next.Roles[frame.RoleID] = after
		return next, true
	})
	if !ok {
		d.log.Debugf("Role update for uncached server [%s] dropped", frame.ID)
		return nil
	}

	if existed {
		d.bus.Publish(events.RoleUpdated{ServerID: frame.ID, Before: before, After: after})
	} else {
		d.bus.Publish(events.RoleCreated{ServerID: frame.ID, Role: after})
	}
	return nil
}

func (d *Dispatcher) roleDelete(data []byte) error {
	var frame roleDeleteFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	var role models.Role
	_, _, ok := d.cache.Servers.Update(frame.ID, func(current *models.Server) (*models.Server, bool) {
		var exists bool
		role, exists = current.Roles[frame.RoleID]
		if !exists {
			return current, false
		}
		next := current.Clone()
		delete(next.Roles, frame.RoleID)
		return next, true
	})
	if !ok {
		return nil
	}

	d.bus.Publish(events.RoleDeleted{ServerID: frame.ID, Role: role})
	return nil
}
