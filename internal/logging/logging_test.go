package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stoat-client/events"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		skipped zapcore.Level
	}{
		{level: "", enabled: zapcore.InfoLevel, skipped: zapcore.DebugLevel},
		{level: "debug", enabled: zapcore.DebugLevel, skipped: zapcore.DebugLevel - 1},
		{level: "WARN", enabled: zapcore.WarnLevel, skipped: zapcore.InfoLevel},
		{level: "error", enabled: zapcore.ErrorLevel, skipped: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(tt.level)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.skipped))
		})
	}
}

func TestNewNone(t *testing.T) {
	log, err := New("none")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}

func TestNewWritesToOutputPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoat.log")

	log, err := New("info", path)
	require.NoError(t, err)
	log.Info("connected to gateway")
	log.Debug("not written")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connected to gateway")
	assert.NotContains(t, string(data), "not written")
}

func TestForwardPublishesEveryLevel(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	bus := events.NewBus(zap.NewNop().Sugar())
	log := Forward(zap.New(core, zap.AddCaller()), bus).Named("gateway")

	var mutex sync.Mutex
	var received []events.Log
	sub := events.On(bus, func(e events.Log) {
		mutex.Lock()
		defer mutex.Unlock()
		received = append(received, e)
	})

	log.Debug("heartbeat sent")
	log.With(zap.String("channel", "C1")).Warn("typing failed", zap.Int("status", 500))

	mutex.Lock()
	require.Len(t, received, 2)
	assert.Equal(t, zapcore.DebugLevel, received[0].Level)
	assert.Equal(t, "heartbeat sent", received[0].Message)
	assert.Equal(t, "gateway", received[0].Logger)
	assert.NotEmpty(t, received[0].Caller)
	assert.Equal(t, map[string]any{"channel": "C1", "status": int64(500)}, received[1].Fields)
	mutex.Unlock()

	assert.Equal(t, 1, recorded.Len(), "the wrapped core keeps its own level")
	assert.Equal(t, "typing failed", recorded.All()[0].Message)

	sub.Cancel()
	log.Error("after cancel")

	mutex.Lock()
	assert.Len(t, received, 2)
	mutex.Unlock()
}

func TestForwardWithoutSubscribersIsSilent(t *testing.T) {
	bus := events.NewBus(zap.NewNop().Sugar())
	log := Forward(zap.NewNop(), bus)

	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestForwardSurvivesPanickingSubscriber(t *testing.T) {
	bus := events.NewBus(zap.NewNop().Sugar())
	log := Forward(zap.NewNop(), bus).Sugar()

	events.On(bus, func(events.Log) { panic("subscriber bug") })

	assert.NotPanics(t, func() { log.Infof("state [%s]", events.StateReady) })
}
