// Package hub mirrors client events onto pub/sub keys, through redis or in process.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stoat-client/events"
)

// Publisher is the part of a redis client the hub needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Hub struct {
	log    *zap.SugaredLogger
	redis  Publisher
	local  *LocalPubSub
	prefix string
}

// New returns a hub publishing through publisher, or through its LocalPubSub when
// publisher is nil. Every key starts with prefix.
func New(log *zap.SugaredLogger, publisher Publisher, prefix string) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		log:    log,
		redis:  publisher,
		local:  NewLocalPubSub(log),
		prefix: prefix,
	}
}

func (h *Hub) SelfContained() bool { return h.redis == nil }

func (h *Hub) Local() *LocalPubSub { return h.local }

// PrepareMessage encodes event as its type, a newline, and its JSON body.
func PrepareMessage(event events.Event) (string, error) {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", event.Type(), err)
	}

	msgType := string(event.Type())

	var buf bytes.Buffer
	buf.Grow(len(msgType) + 1 + len(jsonBytes))
	buf.WriteString(msgType)
	buf.WriteByte('\n')
	buf.Write(jsonBytes)
	return buf.String(), nil
}

// Emit publishes event on every key it belongs to.
func (h *Hub) Emit(ctx context.Context, event events.Event) error {
	message, err := PrepareMessage(event)
	if err != nil {
		return err
	}

	for _, key := range h.keys(event) {
		h.log.Debugf("Sending %s to those on %s", event.Type(), key)

		if h.SelfContained() {
			h.local.Publish(key, message)
			continue
		}
		if err := h.redis.Publish(ctx, key, message).Err(); err != nil {
			return fmt.Errorf("publish %s to %s: %w", event.Type(), key, err)
		}
	}
	return nil
}

// Mirror subscribes the hub to every mirrored event type through subscribe and returns a
// function cancelling those subscriptions. Publish failures are logged.
func (h *Hub) Mirror(ctx context.Context, subscribe func(events.Type, events.Handler) *events.Subscription) func() {
	subs := make([]*events.Subscription, 0, len(MirroredTypes))
	for _, typ := range MirroredTypes {
		subs = append(subs, subscribe(typ, func(event events.Event) {
			if err := h.Emit(ctx, event); err != nil {
				h.log.Error(err)
			}
		}))
	}
	return func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}
}
