package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stoat-client/events"
)

// LevelNone disables console output. Log subscribers still receive every entry.
const LevelNone = "none"

// New builds the console logger. level is one of debug, info, warn, error or none; empty
// means info. Without outputPaths the logger writes to stderr.
func New(level string, outputPaths ...string) (*zap.Logger, error) {
	if strings.EqualFold(level, LevelNone) {
		return zap.NewNop(), nil
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Sampling = nil
	if len(outputPaths) > 0 {
		config.OutputPaths = outputPaths
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// Forward returns a logger that writes to log and publishes every entry, debug included,
// to the Log subscribers of bus.
func Forward(log *zap.Logger, bus *events.Bus) *zap.Logger {
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &busCore{bus: bus})
	}))
}

type busCore struct {
	bus    *events.Bus
	fields []zapcore.Field
}

func (c *busCore) Enabled(zapcore.Level) bool {
	return c.bus.HasSubscribers(events.TypeLog)
}

func (c *busCore) With(fields []zapcore.Field) zapcore.Core {
	return &busCore{
		bus:    c.bus,
		fields: append(c.fields[:len(c.fields):len(c.fields)], fields...),
	}
}

func (c *busCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *busCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	event := events.Log{
		Time:    entry.Time,
		Level:   entry.Level,
		Logger:  entry.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller.Defined {
		event.Caller = entry.Caller.TrimmedPath()
	}

	if len(c.fields) > 0 || len(fields) > 0 {
		encoder := zapcore.NewMapObjectEncoder()
		for _, field := range c.fields {
			field.AddTo(encoder)
		}
		for _, field := range fields {
			field.AddTo(encoder)
		}
		event.Fields = encoder.Fields
	}

	c.bus.Publish(event)
	return nil
}

func (c *busCore) Sync() error {
	return nil
}
