package typing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stoat-client/rest"
)

type fakeSignaler struct {
	mutex  sync.Mutex
	begins map[string]int
	ends   map[string]int
	err    error
	endErr error
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{begins: make(map[string]int), ends: make(map[string]int)}
}

func (f *fakeSignaler) BeginTyping(ctx context.Context, channelID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.begins[channelID]++
	return f.err
}

func (f *fakeSignaler) EndTyping(ctx context.Context, channelID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.ends[channelID]++
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return f.endErr
}

func (f *fakeSignaler) counts(channelID string) (begins, ends int) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.begins[channelID], f.ends[channelID]
}

func (f *fakeSignaler) fail(err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.err = err
}

func TestNotifierRefreshesUntilStopped(t *testing.T) {
	signaler := newFakeSignaler()
	registry := NewRegistry(signaler, 10*time.Millisecond, zaptest.NewLogger(t).Sugar())

	n := registry.Start(context.Background(), "C1")

	require.Eventually(t, func() bool {
		begins, _ := signaler.counts("C1")
		return begins >= 3
	}, time.Second, 5*time.Millisecond)

	current, ok := registry.Get("C1")
	require.True(t, ok)
	assert.Same(t, n, current)

	n.Close()

	_, ends := signaler.counts("C1")
	assert.Equal(t, 1, ends)
	assert.Equal(t, 0, registry.Len())
	assert.NoError(t, n.Err())

	select {
	case <-n.Done():
	default:
		t.Fatal("Done is not closed after Close")
	}
}

func TestNotifierEndsWithContext(t *testing.T) {
	signaler := newFakeSignaler()
	registry := NewRegistry(signaler, time.Hour, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	n := registry.Start(ctx, "C1")
	require.Eventually(t, func() bool {
		begins, _ := signaler.counts("C1")
		return begins == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-n.Done():
	case <-time.After(time.Second):
		t.Fatal("notifier did not finish after its context ended")
	}
	_, ends := signaler.counts("C1")
	assert.Equal(t, 1, ends, "end typing is sent even though the context was cancelled")
}

func TestNotifierSurvivesTransientFailures(t *testing.T) {
	signaler := newFakeSignaler()
	signaler.fail(&rest.Error{StatusCode: http.StatusInternalServerError, Type: rest.ErrTypeInternalError})
	registry := NewRegistry(signaler, 10*time.Millisecond, zaptest.NewLogger(t).Sugar())

	n := registry.Start(context.Background(), "C1")
	defer n.Close()

	require.Eventually(t, func() bool {
		begins, _ := signaler.counts("C1")
		return begins >= 3
	}, time.Second, 5*time.Millisecond)

	select {
	case <-n.Done():
		t.Fatal("notifier gave up on a transient failure")
	default:
	}
}

func TestNotifierStopsOnRejectedSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unauthorized", err: &rest.Error{StatusCode: http.StatusUnauthorized, Type: rest.ErrTypeUnknown}},
		{name: "invalid session", err: &rest.Error{StatusCode: http.StatusForbidden, Type: rest.ErrTypeInvalidSession}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signaler := newFakeSignaler()
			signaler.fail(tt.err)
			registry := NewRegistry(signaler, 10*time.Millisecond, zaptest.NewLogger(t).Sugar())

			n := registry.Start(context.Background(), "C1")

			select {
			case <-n.Done():
			case <-time.After(time.Second):
				t.Fatal("notifier kept running with a rejected session")
			}

			begins, ends := signaler.counts("C1")
			assert.Equal(t, 1, begins)
			assert.Equal(t, 1, ends)
			assert.True(t, errors.Is(n.Err(), tt.err))
			assert.Equal(t, 0, registry.Len())
		})
	}
}

func TestRegistryKeepsLatestNotifier(t *testing.T) {
	signaler := newFakeSignaler()
	registry := NewRegistry(signaler, time.Hour, zaptest.NewLogger(t).Sugar())

	first := registry.Start(context.Background(), "C1")
	second := registry.Start(context.Background(), "C1")
	other := registry.Start(context.Background(), "C2")

	current, ok := registry.Get("C1")
	require.True(t, ok)
	assert.Same(t, second, current)
	assert.Equal(t, 2, registry.Len())

	first.Close()

	current, ok = registry.Get("C1")
	require.True(t, ok, "stopping an older notifier leaves the newer one registered")
	assert.Same(t, second, current)

	select {
	case <-second.Done():
		t.Fatal("notifiers on the same channel are independent")
	default:
	}

	registry.StopAll()

	assert.Equal(t, 0, registry.Len())
	for _, n := range []*Notifier{first, second, other} {
		select {
		case <-n.Done():
		default:
			t.Fatalf("notifier for [%s] still running", n.ChannelID)
		}
	}
	_, ends := signaler.counts("C1")
	assert.Equal(t, 2, ends)
}

func TestStopAllEndsSupersededNotifiers(t *testing.T) {
	signaler := newFakeSignaler()
	registry := NewRegistry(signaler, 5*time.Millisecond, zaptest.NewLogger(t).Sugar())

	first := registry.Start(context.Background(), "C1")
	second := registry.Start(context.Background(), "C1")

	registry.StopAll()

	for _, n := range []*Notifier{first, second} {
		select {
		case <-n.Done():
		default:
			t.Fatal("StopAll left a notifier running")
		}
	}

	begins, ends := signaler.counts("C1")
	assert.Equal(t, 2, ends)
	time.Sleep(30 * time.Millisecond)
	after, _ := signaler.counts("C1")
	assert.Equal(t, begins, after, "no typing signal is sent after StopAll")
}

func TestCloseRemovesRegistrationWhenEndFails(t *testing.T) {
	signaler := newFakeSignaler()
	signaler.endErr = &rest.Error{StatusCode: http.StatusInternalServerError, Type: rest.ErrTypeInternalError}
	registry := NewRegistry(signaler, time.Hour, zaptest.NewLogger(t).Sugar())

	n := registry.Start(context.Background(), "C1")
	n.Close()

	select {
	case <-n.Done():
	default:
		t.Fatal("Done is not closed after Close")
	}
	_, ok := registry.Get("C1")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Len())

	_, ends := signaler.counts("C1")
	assert.Equal(t, 1, ends)
	assert.NoError(t, n.Err())
}

func TestStopDoesNotWait(t *testing.T) {
	signaler := newFakeSignaler()
	registry := NewRegistry(signaler, time.Hour, zaptest.NewLogger(t).Sugar())

	n := registry.Start(context.Background(), "C1")
	n.Stop()
	n.Stop()

	select {
	case <-n.Done():
	case <-time.After(time.Second):
		t.Fatal("notifier did not finish after Stop")
	}
	assert.Nil(t, n.Err())
}
