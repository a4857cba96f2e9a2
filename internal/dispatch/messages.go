package dispatch

import (
	"context"
	"encoding/json"

	"stoat-client/events"
	"stoat-client/models"
)

func (d *Dispatcher) messageCreate(ctx context.Context, data []byte) error {
	message, err := models.DecodeMessage(data)
	if err != nil {
		return err
	}
	d.bus.Publish(events.MessageCreated{
		Message: message,
		Author:  d.resolveAuthor(ctx, message),
	})
	return nil
}

func (d *Dispatcher) messageUpdate(data []byte) error {
	var frame messageUpdateFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	d.bus.Publish(events.MessageUpdated{ID: frame.ID, ChannelID: frame.Channel, Partial: frame.Data})
	return nil
}

func (d *Dispatcher) messageDelete(data []byte) error {
	var frame messageDeleteFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	d.bus.Publish(events.MessageDeleted{ID: frame.ID, ChannelID: frame.Channel})
	return nil
}

func (d *Dispatcher) bulkMessageDelete(data []byte) error {
	var frame bulkMessageDeleteFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	d.bus.Publish(events.MessagesBulkDeleted{ChannelID: frame.Channel, IDs: frame.IDs})
	return nil
}

func (d *Dispatcher) reaction(frameType string, data []byte) error {
	var frame reactionFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	switch frameType {
	case FrameMessageReact:
		d.bus.Publish(events.ReactionAdded{MessageID: frame.ID, ChannelID: frame.ChannelID, UserID: frame.UserID, EmojiID: frame.EmojiID})
	case FrameMessageUnreact:
		d.bus.Publish(events.ReactionRemoved{MessageID: frame.ID, ChannelID: frame.ChannelID, UserID: frame.UserID, EmojiID: frame.EmojiID})
	case FrameMessageRemoveReaction:
		d.bus.Publish(events.ReactionCleared{MessageID: frame.ID, ChannelID: frame.ChannelID, EmojiID: frame.EmojiID})
	}
	return nil
}
