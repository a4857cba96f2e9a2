package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t).Sugar())

	var order []string
	bus.Subscribe(TypeTypingStarted, func(Event) { order = append(order, "first") })
	bus.SubscribeAll(func(Event) { order = append(order, "any") })
	On(bus, func(e TypingStarted) { order = append(order, "typed:"+e.ChannelID) })
	bus.Subscribe(TypeTypingStopped, func(Event) { order = append(order, "wrong type") })

	bus.Publish(TypingStarted{ChannelID: "C1", UserID: "U1"})

	assert.Equal(t, []string{"first", "any", "typed:C1"}, order)
}

func TestSubscriptionCancel(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	sub := On(bus, func(Connected) { calls++ })
	bus.Publish(Connected{})

	sub.Cancel()
	sub.Cancel()
	bus.Publish(Connected{})

	assert.Equal(t, 1, calls)
	assert.False(t, bus.HasSubscribers(TypeConnected))
}

func TestBusRecoversPanics(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t).Sugar())

	reached := false
	bus.SubscribeAll(func(Event) { panic("boom") })
	bus.SubscribeAll(func(Event) { reached = true })

	assert.NotPanics(t, func() { bus.Publish(Ready{}) })
	assert.True(t, reached)
}

func TestHasSubscribers(t *testing.T) {
	bus := NewBus(nil)
	assert.False(t, bus.HasSubscribers(TypeLog))

	sub := bus.SubscribeAll(func(Event) {})
	assert.True(t, bus.HasSubscribers(TypeLog))
	sub.Cancel()
	assert.False(t, bus.HasSubscribers(TypeLog))
}

func TestBusConcurrentSubscribe(t *testing.T) {
	bus := NewBus(nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(TypeConnected, func(Event) {})
			sub.Cancel()
		}()
		go func() {
			defer wg.Done()
			bus.Publish(Connected{})
		}()
	}
	wg.Wait()

	assert.False(t, bus.HasSubscribers(TypeConnected))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Authenticating", StateAuthenticating.String())
	assert.Equal(t, "Unknown", State(42).String())
}
