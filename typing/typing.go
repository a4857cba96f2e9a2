// Package typing keeps "user is typing" indicators alive for as long as a caller wants
// them shown.
package typing

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"stoat-client/rest"
)

const (
	// DefaultInterval is how often the indicator is refreshed. The platform forgets an
	// indicator after a few seconds without one.
	DefaultInterval = 2500 * time.Millisecond

	endTimeout = 5 * time.Second
)

// Signaler sends the begin and end typing requests for a channel.
type Signaler interface {
	BeginTyping(ctx context.Context, channelID string) error
	EndTyping(ctx context.Context, channelID string) error
}

// Registry tracks the most recently started notifier of every channel, and every notifier
// still running so StopAll can end them.
type Registry struct {
	signaler Signaler
	interval time.Duration
	log      *zap.SugaredLogger

	mutex     sync.Mutex
	notifiers map[string]*Notifier
	live      map[*Notifier]struct{}
}

func NewRegistry(signaler Signaler, interval time.Duration, log *zap.SugaredLogger) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		signaler:  signaler,
		interval:  interval,
		log:       log,
		notifiers: make(map[string]*Notifier),
		live:      make(map[*Notifier]struct{}),
	}
}

// Start begins signalling typing in channelID until the returned notifier is stopped, ctx
// ends, or the session is rejected. A notifier already running for the channel keeps
// running; the registry only remembers the new one.
func (r *Registry) Start(ctx context.Context, channelID string) *Notifier {
	ctx, cancel := context.WithCancel(ctx)
	n := &Notifier{
		ChannelID: channelID,
		registry:  r,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.mutex.Lock()
	r.notifiers[channelID] = n
	r.live[n] = struct{}{}
	r.mutex.Unlock()

	go n.run(ctx)
	return n
}

func (r *Registry) Get(channelID string) (*Notifier, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	n, ok := r.notifiers[channelID]
	return n, ok
}

func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.notifiers)
}

// StopAll stops every running notifier, registered or superseded, and waits for them to
// finish.
func (r *Registry) StopAll() {
	r.mutex.Lock()
	notifiers := make([]*Notifier, 0, len(r.live))
	for n := range r.live {
		notifiers = append(notifiers, n)
	}
	r.mutex.Unlock()

	for _, n := range notifiers {
		n.Close()
	}
}

func (r *Registry) remove(n *Notifier) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.live, n)
	if r.notifiers[n.ChannelID] == n {
		delete(r.notifiers, n.ChannelID)
	}
}

type Notifier struct {
	ChannelID string

	registry *Registry
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// Stop asks the notifier to finish without waiting for it.
func (n *Notifier) Stop() {
	n.cancel()
}

// Close stops the notifier and waits until the end typing request has been sent.
func (n *Notifier) Close() {
	n.cancel()
	<-n.done
}

func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// Err returns the error that ended the notifier, or nil if it was stopped. It is only
// meaningful once Done is closed.
func (n *Notifier) Err() error {
	select {
	case <-n.done:
		return n.err
	default:
		return nil
	}
}

func (n *Notifier) run(ctx context.Context) {
	r := n.registry
	defer close(n.done)
	defer func() {
		r.remove(n)

		endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endTimeout)
		defer cancel()
		if err := r.signaler.EndTyping(endCtx, n.ChannelID); err != nil {
			r.log.Debugf("Failed to end typing in channel [%s]: %v", n.ChannelID, err)
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.signaler.BeginTyping(ctx, n.ChannelID); err != nil {
			if ctx.Err() != nil {
				return
			}
			if sessionRejected(err) {
				r.log.Warnf("Stopped typing in channel [%s]: %v", n.ChannelID, err)
				n.err = err
				return
			}
			r.log.Debugf("Failed to signal typing in channel [%s]: %v", n.ChannelID, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sessionRejected(err error) bool {
	return errors.Is(err, rest.ErrUnauthorized) || rest.IsErrorType(err, rest.ErrTypeInvalidSession)
}
