package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapSink struct {
	l *zap.Logger
}

func newZapSink(opts Options) (Sink, error) {
	cfg := zap.NewProductionConfig()
	if opts.ZapLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(opts.ZapLevel)); err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapSink(l), nil
}

// NewZapSink writes entries to an existing zap logger.
func NewZapSink(l *zap.Logger) Sink {
	return &zapSink{l: l}
}

func (z *zapSink) AddEntry(e Entry) error {
	fields := []zap.Field{zap.String("category", e.Category)}
	if e.ClientIP != "" {
		fields = append(fields, zap.String("client_ip", e.ClientIP))
	}
	if !e.Date.IsZero() {
		fields = append(fields, zap.Time("date", e.Date))
	}

	switch e.Priority {
	case Emergency, Alert, Critical, Error:
		z.l.Error(e.Message, fields...)
	case Warning:
		z.l.Warn(e.Message, fields...)
	case Notice, Info:
		z.l.Info(e.Message, fields...)
	default:
		z.l.Debug(e.Message, fields...)
	}
	return nil
}

func (z *zapSink) Close() error {
	// stderr cannot always be synced
	_ = z.l.Sync()
	return nil
}
