package events

import (
	"sync"

	"go.uber.org/zap"
)

type Handler func(Event)

type subscriber struct {
	id      uint64
	typ     Type
	handler Handler
}

// Bus delivers events to subscribers synchronously, in registration order.
type Bus struct {
	log *zap.SugaredLogger

	mutex       sync.RWMutex
	nextID      uint64
	subscribers []subscriber
}

func NewBus(log *zap.SugaredLogger) *Bus {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bus{log: log}
}

// Subscription is the handle returned by Subscribe. Cancel may be called more than once.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.id) })
}

func (b *Bus) Subscribe(typ Type, handler Handler) *Subscription {
	return b.add(typ, handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.add("", handler)
}

// On subscribes a handler typed to one concrete event struct.
func On[E Event](b *Bus, handler func(E)) *Subscription {
	var zero E
	return b.Subscribe(zero.Type(), func(event Event) {
		if typed, ok := event.(E); ok {
			handler(typed)
		}
	})
}

func (b *Bus) add(typ Type, handler Handler) *Subscription {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextID++
	b.subscribers = append(b.subscribers, subscriber{id: b.nextID, typ: typ, handler: handler})
	return &Subscription{bus: b, id: b.nextID}
}

func (b *Bus) remove(id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, sub := range b.subscribers {
		if sub.id == id {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// HasSubscribers reports whether anything listens for typ, either directly or through
// SubscribeAll.
func (b *Bus) HasSubscribers(typ Type) bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	for _, sub := range b.subscribers {
		if sub.typ == "" || sub.typ == typ {
			return true
		}
	}
	return false
}

// Publish runs every matching handler. A panicking handler is logged and skipped.
func (b *Bus) Publish(event Event) {
	b.mutex.RLock()
	matching := make([]Handler, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		if sub.typ == "" || sub.typ == event.Type() {
			matching = append(matching, sub.handler)
		}
	}
	b.mutex.RUnlock()

	for _, handler := range matching {
		b.call(handler, event)
	}
}

func (b *Bus) call(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if event.Type() == TypeLog {
				return
			}
			b.log.Errorf("%s handler panicked: %v", event.Type(), r)
		}
	}()
	handler(event)
}
