package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stoat-client/events"
	"stoat-client/internal/cache"
	"stoat-client/internal/dispatch"
	"stoat-client/internal/platformtest"
	"stoat-client/models"
)

type harness struct {
	platform *platformtest.Platform
	cache    *cache.Cache
	bus      *events.Bus
	gateway  *Gateway

	mutex  sync.Mutex
	states []events.State
}

func (h *harness) recordState(e events.StateChanged) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.states = append(h.states, e.To)
}

func (h *harness) recordedStates() []events.State {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return append([]events.State(nil), h.states...)
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()

	platform := platformtest.New(t)
	log := zaptest.NewLogger(t).Sugar()
	c := cache.New(log)
	bus := events.NewBus(log)

	cfg := Config{
		URL:               platform.WebsocketURL(),
		Token:             func() string { return platform.Token },
		Dispatcher:        dispatch.New(dispatch.Config{Cache: c, Bus: bus, Logger: log}),
		Cache:             c,
		Bus:               bus,
		Logger:            log,
		HeartbeatInterval: time.Hour,
		HandshakeTimeout:  5 * time.Second,
		ReconnectMin:      10 * time.Millisecond,
		ReconnectMax:      50 * time.Millisecond,
	}
	if configure != nil {
		configure(&cfg)
	}

	h := &harness{platform: platform, cache: c, bus: bus, gateway: New(cfg)}
	events.On(bus, h.recordState)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, h.gateway.Stop(ctx))
	})
	return h
}

func TestStartReachesReady(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.SetReady(map[string]any{
		"users":    []models.User{h.platform.Self},
		"servers":  []map[string]any{{"_id": "S1", "owner": h.platform.Self.ID, "name": "Guild", "channels": []string{}, "default_permissions": 0}},
		"channels": []any{},
		"emojis":   []any{},
	})

	connected := make(chan struct{}, 1)
	events.On(h.bus, func(events.Connected) { connected <- struct{}{} })

	require.NoError(t, h.gateway.Start(context.Background()))

	assert.Equal(t, events.StateReady, h.gateway.State())
	assert.Equal(t, 1, h.cache.Servers.Len())
	assert.Equal(t, []string{h.platform.Token}, h.platform.AuthTokens())
	assert.Equal(t, []events.State{
		events.StateConnecting,
		events.StateAuthenticating,
		events.StateReady,
	}, h.recordedStates())

	select {
	case <-connected:
	default:
		t.Fatal("Connected was not published")
	}
}

func TestStartWithoutToken(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Token = func() string { return "" }
	})

	err := h.gateway.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, 0, h.platform.Connections())
}

func TestStartTwice(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.gateway.Start(context.Background()))
	assert.ErrorIs(t, h.gateway.Start(context.Background()), ErrAlreadyRunning)
}

func TestInvalidSessionIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.RejectAuthentication("InvalidSession")

	err := h.gateway.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Equal(t, 1, h.platform.Connections(), "an invalid session is not retried")

	require.Eventually(t, func() bool {
		return h.gateway.State() == events.StateDisconnected
	}, time.Second, 5*time.Millisecond)
}

func TestRetriesExhausted(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.MaxReconnectAttempts = 3
	})
	h.platform.RejectAuthentication("InternalError")

	err := h.gateway.Start(context.Background())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, h.platform.Connections())
}

func TestReconnectResetsAndReloadsCache(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.gateway.Start(context.Background()))

	require.NoError(t, h.platform.Send(`{"type":"ServerCreate","id":"S1",
		"server":{"_id":"S1","owner":"U1","name":"Guild","channels":[],"default_permissions":0},
		"channels":[],"emojis":[]}`))
	require.Eventually(t, func() bool { return h.cache.Servers.Len() == 1 }, time.Second, 5*time.Millisecond)

	connected := make(chan struct{}, 4)
	events.On(h.bus, func(events.Connected) { connected <- struct{}{} })

	h.platform.Drop()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not reconnect")
	}

	assert.Equal(t, 2, h.platform.Connections())
	assert.Equal(t, events.StateReady, h.gateway.State())
	_, ok := h.cache.Servers.Get("S1")
	assert.False(t, ok, "state from the old connection is gone after a reconnect")
	assert.Contains(t, h.recordedStates(), events.StateReconnecting)
}

func TestCacheIsEmptyWhileReconnecting(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.ReconnectMin = 300 * time.Millisecond
		cfg.ReconnectMax = 300 * time.Millisecond
	})
	require.NoError(t, h.gateway.Start(context.Background()))
	require.NoError(t, h.platform.Send(`{"type":"EmojiCreate","_id":"E1","parent":{"type":"Detached"},"creator_id":"U1","name":"x"}`))
	require.Eventually(t, func() bool { return h.cache.Emojis.Len() == 1 }, time.Second, 5*time.Millisecond)

	h.platform.Drop()

	require.Eventually(t, func() bool {
		return h.gateway.State() == events.StateReconnecting
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.cache.Emojis.Len())
	assert.Equal(t, 0, h.cache.Users.Len())
}

func TestHeartbeatTimeout(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.HeartbeatInterval = 20 * time.Millisecond
		cfg.HeartbeatMisses = 2
	})
	h.platform.IgnorePings(true)
	require.NoError(t, h.gateway.Start(context.Background()))

	require.Eventually(t, func() bool {
		return h.platform.Connections() >= 2
	}, 5*time.Second, 10*time.Millisecond, "a silent connection must be replaced")
}

func TestHeartbeatKeepsConnectionAlive(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.HeartbeatInterval = 20 * time.Millisecond
		cfg.HeartbeatMisses = 5
	})
	require.NoError(t, h.gateway.Start(context.Background()))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, h.platform.Connections())
	assert.Equal(t, events.StateReady, h.gateway.State())
}

func TestStop(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.gateway.Start(context.Background()))
	require.NoError(t, h.platform.Send(`{"type":"EmojiCreate","_id":"E1","parent":{"type":"Detached"},"creator_id":"U1","name":"x"}`))
	require.Eventually(t, func() bool { return h.cache.Emojis.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.gateway.Stop(context.Background()))
	require.NoError(t, h.gateway.Stop(context.Background()), "stop is idempotent")

	assert.Equal(t, events.StateDisconnected, h.gateway.State())
	assert.Equal(t, 0, h.cache.Emojis.Len())
	require.Eventually(t, func() bool { return h.platform.ActiveSessions() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.gateway.Start(context.Background()), "a stopped gateway can start again")
}

func TestStartContextCancelled(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.ReconnectMin = time.Hour
		cfg.ReconnectMax = time.Hour
	})
	h.platform.RejectAuthentication("InternalError")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := h.gateway.Start(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, events.StateDisconnected, h.gateway.State())
}

func TestErrorFrameWhileReadyIsDispatched(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.gateway.Start(context.Background()))

	received := make(chan events.Error, 1)
	events.On(h.bus, func(e events.Error) { received <- e })

	require.NoError(t, h.platform.Send(`{"type":"Error","error":"InternalError"}`))

	select {
	case e := <-received:
		assert.Equal(t, "InternalError", e.Code)
	case <-time.After(time.Second):
		t.Fatal("error frame was not dispatched")
	}
	assert.Equal(t, events.StateReady, h.gateway.State())
}
