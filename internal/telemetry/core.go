package telemetry

import (
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// LogSink receives log entries from the zap core.
type LogSink interface {
	Log(entry domain.LogEntry)
}

// Core is a zapcore.Core that turns log lines into log-entry events.
// Tee it with the file core so the hub sees everything the daemon logs.
type Core struct {
	zapcore.LevelEnabler
	sink   LogSink
	fields []zapcore.Field
}

// NewCore creates a core writing entries at or above enab into sink.
func NewCore(sink LogSink, enab zapcore.LevelEnabler) zapcore.Core {
	return &Core{LevelEnabler: enab, sink: sink}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := &Core{LevelEnabler: c.LevelEnabler, sink: c.sink}
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	entry := domain.LogEntry{
		Timestamp: ent.Time,
		Level:     levelOf(ent.Level),
		Message:   ent.Message,
		Source:    ent.LoggerName,
	}
	if len(enc.Fields) > 0 {
		entry.Fields = enc.Fields
	}
	c.sink.Log(entry)
	return nil
}

func (c *Core) Sync() error { return nil }

func levelOf(l zapcore.Level) domain.LogLevel {
	switch {
	case l >= zapcore.ErrorLevel:
		return domain.LogError
	case l == zapcore.WarnLevel:
		return domain.LogWarn
	default:
		return domain.LogInfo
	}
}
