package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stoat-client/events"
	"stoat-client/internal/cache"
	"stoat-client/models"
)

const authorFetchTimeout = 10 * time.Second

// UserFetcher loads a user the cache doesn't know about.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*models.User, error)
}

type Config struct {
	Cache  *cache.Cache
	Bus    *events.Bus
	Logger *zap.SugaredLogger
	// Users resolves message authors missing from the cache when FetchMissingAuthors is
	// set. Fetched users are not cached.
	Users               UserFetcher
	FetchMissingAuthors bool
}

// Dispatcher applies event stream frames to the cache and publishes the resulting events.
// Frames are processed one at a time in the order Dispatch is called.
type Dispatcher struct {
	mutex               sync.Mutex
	cache               *cache.Cache
	bus                 *events.Bus
	log                 *zap.SugaredLogger
	users               UserFetcher
	fetchMissingAuthors bool
}

func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		cache:               cfg.Cache,
		bus:                 cfg.Bus,
		log:                 log,
		users:               cfg.Users,
		fetchMissingAuthors: cfg.FetchMissingAuthors,
	}
}

// Dispatch handles one frame. Failures are logged and the frame is dropped; they never
// reach the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.dispatch(ctx, data)
}

func (d *Dispatcher) dispatch(ctx context.Context, data []byte) {
	frameType, err := FrameType(data)
	if err != nil {
		d.log.Errorf("Failed to decode frame type: %v", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("Panic while handling [%s] frame: %v", frameType, r)
		}
	}()

	if err := d.handle(ctx, frameType, data); err != nil {
		d.log.Errorf("Failed to handle [%s] frame: %v", frameType, err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, frameType string, data []byte) error {
	switch frameType {
	case FrameAuthenticated, FramePong:
		return nil
	case FrameReady:
		return d.bootstrap(data)
	case FrameBulk:
		var frame bulkFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return err
		}
		for _, inner := range frame.V {
			d.dispatch(ctx, inner)
		}
		return nil
	case FrameError:
		var frame errorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return err
		}
		d.log.Warnf("Platform sent error [%s]", frame.Error)
		d.bus.Publish(events.Error{Code: frame.Error})
		return nil

	case FrameMessage:
		return d.messageCreate(ctx, data)
	case FrameMessageUpdate:
		return d.messageUpdate(data)
	case FrameMessageDelete:
		return d.messageDelete(data)
	case FrameBulkMessageDelete:
		return d.bulkMessageDelete(data)
	case FrameMessageReact, FrameMessageUnreact, FrameMessageRemoveReaction:
		return d.reaction(frameType, data)

	case FrameServerCreate:
		return d.serverCreate(data)
	case FrameServerUpdate:
		return d.serverUpdate(data)
	case FrameServerDelete:
		return d.serverDelete(data)
	case FrameServerMemberJoin:
		return d.memberJoin(data)
	case FrameServerMemberLeave:
		return d.memberLeave(data)
	case FrameServerMemberUpdate:
		return d.memberUpdate(data)
	case FrameServerRoleUpdate:
		return d.roleUpdate(data)
	case FrameServerRoleDelete:
		return d.roleDelete(data)

	case FrameChannelCreate:
		return d.channelCreate(data)
	case FrameChannelUpdate:
		return d.channelUpdate(data)
	case FrameChannelDelete:
		return d.channelDelete(data)
	case FrameChannelGroupJoin:
		return d.groupJoin(data)
	case FrameChannelGroupLeave:
		return d.groupLeave(data)
	case FrameChannelStartTyping, FrameChannelStopTyping:
		return d.typing(frameType, data)

	case FrameUserUpdate:
		return d.userUpdate(data)
	case FrameEmojiCreate:
		return d.emojiCreate(data)
	case FrameEmojiDelete:
		return d.emojiDelete(data)
	}

	d.log.Debugf("Ignoring unknown frame type [%s]", frameType)
	return nil
}

// Bootstrap rebuilds the cache from a Ready frame. Unlike Dispatch it reports a malformed
// frame to the caller.
func (d *Dispatcher) Bootstrap(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.bootstrap(data)
}

func (d *Dispatcher) bootstrap(data []byte) error {
	var frame readyFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("decode ready frame: %w", err)
	}

	channels := make([]models.Channel, 0, len(frame.Channels))
	for _, raw := range frame.Channels {
		channel, err := models.DecodeChannel(raw)
		if err != nil {
			d.log.Warnf("Skipping channel in ready frame: %v", err)
			continue
		}
		channels = append(channels, channel)
	}

	servers := make(map[string]*models.Server, len(frame.Servers))
	for _, server := range frame.Servers {
		servers[server.ID] = server
	}
	for _, member := range frame.Members {
		server, ok := servers[member.ID.Server]
		if !ok {
			continue
		}
		if server.Members == nil {
			server.Members = make(map[string]models.Member)
		}
		server.Members[member.ID.User] = member
	}

	self := d.cache.Self()
	if self != nil {
		for _, user := range frame.Users {
			if user.ID == self.ID {
				self = &models.SelfUser{User: *user.Clone(), Profile: self.Profile}
				break
			}
		}
	}

	snapshot := cache.Snapshot{
		Self:     self,
		Users:    frame.Users,
		Servers:  frame.Servers,
		Channels: channels,
		Emojis:   frame.Emojis,
	}
	d.cache.Load(snapshot)

	d.bus.Publish(events.Ready{
		Self:     self,
		Users:    snapshot.Users,
		Servers:  snapshot.Servers,
		Channels: snapshot.Channels,
		Emojis:   snapshot.Emojis,
	})
	return nil
}

func (d *Dispatcher) resolveAuthor(ctx context.Context, message models.Message) *models.User {
	authorID := message.AuthorID()
	if user, ok := d.cache.Users.Get(authorID); ok {
		return user
	}
	if userMessage, ok := message.(*models.UserMessage); ok && userMessage.User != nil {
		return userMessage.User
	}
	if !d.fetchMissingAuthors || d.users == nil {
		return nil
	}
	if _, system := message.(*models.SystemMessage); system {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, authorFetchTimeout)
	defer cancel()

	user, err := d.users.FetchUser(fetchCtx, authorID)
	if err != nil {
		d.log.Debugf("Failed to fetch author [%s] of message [%s]: %v", authorID, message.MessageID(), err)
		return nil
	}
	return user
}
