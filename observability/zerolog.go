package observability

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologHandler adapts a zerolog.Logger to slog.Handler, so it can be
// installed via flow.WithLogger and used by every LogXxx helper and the
// log combinator without those call sites knowing zerolog exists.
// Grounded on the teacher's pkg/middleware/logger/zerolog_adapter.go
// ZerologAdapter, whose level switch and Interface(key, value) attribute
// attachment this mirrors.
type zerologHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	group  string
}

// NewZerologLogger wraps logger in a *slog.Logger, preserving zerolog's
// level filtering and field rendering. Install it with flow.WithLogger.
func NewZerologLogger(logger zerolog.Logger) *slog.Logger {
	return slog.New(&zerologHandler{logger: logger})
}

func (h *zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= slogLevelToZerolog(level)
}

func (h *zerologHandler) Handle(_ context.Context, record slog.Record) error {
	var evt *zerolog.Event
	switch {
	case record.Level >= slog.LevelError:
		evt = h.logger.Error()
	case record.Level >= slog.LevelWarn:
		evt = h.logger.Warn()
	case record.Level >= slog.LevelInfo:
		evt = h.logger.Info()
	default:
		evt = h.logger.Debug()
	}

	for _, attr := range h.attrs {
		evt = applyAttr(evt, h.group, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		evt = applyAttr(evt, h.group, attr)
		return true
	})

	evt.Msg(record.Message)
	return nil
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group == "" {
		next.group = name
	} else {
		next.group = next.group + "." + name
	}
	return &next
}

func applyAttr(evt *zerolog.Event, group string, attr slog.Attr) *zerolog.Event {
	key := attr.Key
	if group != "" {
		key = group + "." + key
	}
	return evt.Interface(key, attr.Value.Any())
}

func slogLevelToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
