package log

import (
	"context"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapHandler is an slog.Handler that writes through a zap core.
type ZapHandler struct {
	core   zapcore.Core
	fields []zapcore.Field
	prefix string
}

// NewZapHandler adapts logger to slog.Handler.
func NewZapHandler(logger *zap.Logger) *ZapHandler {
	return &ZapHandler{core: logger.Core()}
}

// Enabled implements slog.Handler.
func (h *ZapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.Enabled(zapLevel(level))
}

// Handle implements slog.Handler.
func (h *ZapHandler) Handle(_ context.Context, r slog.Record) error {
	entry := zapcore.Entry{
		Level:   zapLevel(r.Level),
		Time:    r.Time,
		Message: r.Message,
	}
	ce := h.core.Check(entry, nil)
	if ce == nil {
		return nil
	}

	fields := make([]zapcore.Field, 0, len(h.fields)+r.NumAttrs())
	fields = append(fields, h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendFields(fields, h.prefix, a)
		return true
	})
	ce.Write(fields...)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *ZapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]zapcore.Field, 0, len(h.fields)+len(attrs))
	fields = append(fields, h.fields...)
	for _, a := range attrs {
		fields = appendFields(fields, h.prefix, a)
	}
	return &ZapHandler{core: h.core, fields: fields, prefix: h.prefix}
}

// WithGroup implements slog.Handler. Group names prefix the keys of
// later attributes, joined with dots.
func (h *ZapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ZapHandler{core: h.core, fields: h.fields, prefix: h.prefix + name + "."}
}

func appendFields(fields []zapcore.Field, prefix string, a slog.Attr) []zapcore.Field {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return fields
	}
	key := prefix + a.Key

	switch v.Kind() {
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range v.Group() {
			fields = appendFields(fields, groupPrefix, ga)
		}
		return fields
	case slog.KindString:
		return append(fields, zap.String(key, v.String()))
	case slog.KindInt64:
		return append(fields, zap.Int64(key, v.Int64()))
	case slog.KindUint64:
		return append(fields, zap.Uint64(key, v.Uint64()))
	case slog.KindFloat64:
		return append(fields, zap.Float64(key, v.Float64()))
	case slog.KindBool:
		return append(fields, zap.Bool(key, v.Bool()))
	case slog.KindDuration:
		return append(fields, zap.Duration(key, v.Duration()))
	case slog.KindTime:
		return append(fields, zap.Time(key, v.Time()))
	default:
		if err, ok := v.Any().(error); ok {
			return append(fields, zap.String(key, err.Error()))
		}
		return append(fields, zap.Any(key, v.Any()))
	}
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewZapLogger builds a JSON zap logger writing to w.
func NewZapLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}

// NewSecureJSONLogger returns a JSON logger backed by zap that masks secrets.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(NewZapHandler(NewZapLogger(w, verbose))))
}
