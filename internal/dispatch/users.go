package dispatch

import (
	"encoding/json"
	"fmt"

	"stoat-client/events"
	"stoat-client/models"
)

func (d *Dispatcher) userUpdate(data []byte) error {
	var frame userUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	if unknown := frame.Data.ApplyClear(frame.Clear); len(unknown) > 0 {
		d.log.Debugf("Unknown user fields to clear: %v", unknown)
	}

	before, after, ok := d.cache.Users.Update(frame.ID, func(current *models.User) (*models.User, bool) {
		next := current.Clone()
		frame.Data.Apply(next)
		return next, true
	})

	self := d.cache.Self()
	isSelf := self != nil && self.ID == frame.ID

	if ok {
		d.bus.Publish(events.UserUpdated{Before: before, After: after})
	} else if !isSelf {
		d.log.Debugf("Update for uncached user [%s] dropped", frame.ID)
	}

	if isSelf {
		next := self.Clone()
		frame.Data.ApplySelf(next)
		d.cache.SetSelf(next)
		d.bus.Publish(events.SelfUserUpdated{Before: self, After: next})
	}
	return nil
}

func (d *Dispatcher) emojiCreate(data []byte) error {
	var emoji models.Emoji
	if err := json.Unmarshal(data, &emoji); err != nil {
		return err
	}
	if emoji.ID == "" {
		return fmt.Errorf("emoji without id")
	}

	d.cache.Emojis.Set(emoji.ID, &emoji)
	d.bus.Publish(events.EmojiCreated{Emoji: &emoji})
	return nil
}

func (d *Dispatcher) emojiDelete(data []byte) error {
	var frame idFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	emoji, _ := d.cache.Emojis.Delete(frame.ID)
	d.bus.Publish(events.EmojiDeleted{ID: frame.ID, Emoji: emoji})
	return nil
}
