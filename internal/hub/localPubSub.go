package hub

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber receives the messages published on the keys it is subscribed to. Messages
// are dropped when Messages is full.
type Subscriber struct {
	ID       int64
	Messages chan string
}

func NewSubscriber(id int64, buffer int) *Subscriber {
	return &Subscriber{ID: id, Messages: make(chan string, buffer)}
}

// LocalPubSub delivers messages in process, used when no redis server is configured.
type LocalPubSub struct {
	log *zap.SugaredLogger

	mutex   sync.RWMutex
	hashMap map[string][]*Subscriber
}

func NewLocalPubSub(log *zap.SugaredLogger) *LocalPubSub {
	return &LocalPubSub{log: log, hashMap: make(map[string][]*Subscriber)}
}

func (ps *LocalPubSub) Subscribe(key string, sub *Subscriber) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.hashMap[key] = append(ps.hashMap[key], sub)
}

func (ps *LocalPubSub) Unsubscribe(key string, sub *Subscriber) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	ps.unsubscribe(key, sub)
}

func (ps *LocalPubSub) UnsubscribeFromAll(sub *Subscriber) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for key := range ps.hashMap {
		ps.unsubscribe(key, sub)
	}
}

func (ps *LocalPubSub) unsubscribe(key string, sub *Subscriber) {
	subs := ps.hashMap[key]

	// this won't run in case key doesn't exist since length will be 0
	for i := range subs {
		if subs[i] == sub {
			subs[i] = subs[len(subs)-1]
			ps.hashMap[key] = subs[:len(subs)-1]
			break
		}
	}

	// delete key from map if nobody is subscribed to it
	if len(ps.hashMap[key]) == 0 {
		delete(ps.hashMap, key)
	}
}

// Publish returns how many subscribers received message.
func (ps *LocalPubSub) Publish(key string, message string) int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	received := 0
	for _, sub := range ps.hashMap[key] {
		select {
		case sub.Messages <- message:
			received++
		default:
			ps.log.Warnf("Subscriber %d is full, dropping message on %s", sub.ID, key)
		}
	}
	return received
}

func (ps *LocalPubSub) Len(key string) int {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	return len(ps.hashMap[key])
}
