package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type LogLevel int

const (
	LogLevelDev LogLevel = iota
	LogLevelProd
	LogLevelNone
)

func parseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "", "dev", "development":
		return LogLevelDev, nil
	case "prod", "production":
		return LogLevelProd, nil
	case "none", "off":
		return LogLevelNone, nil
	default:
		return 0, fmt.Errorf("database: unknown log level %q", s)
	}
}

// Logger receives the driver diagnostics: executed SQL at debug level and
// failed statements at error level.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewLogger builds a zap backed logger for the given level.
func NewLogger(level LogLevel) (Logger, error) {
	switch level {
	case LogLevelDev:
		l, err := zap.NewDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	case LogLevelProd:
		l, err := zap.NewProductionConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	case LogLevelNone:
		return &zapLogger{zap.NewNop().Sugar()}, nil
	default:
		return nil, fmt.Errorf("log level should be either LogLevelDev, LogLevelProd or LogLevelNone")
	}
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	format = fmt.Sprintf("[DEBUG] %s", format)
	z.l.Debugf(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...any) {
	format = fmt.Sprintf("[WARNF] %s", format)
	z.l.Warnf(format, args...)
}

func (z *zapLogger) Errorf(format string, args ...any) {
	format = fmt.Sprintf("[ERROR] %s", format)
	z.l.Errorf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	format = fmt.Sprintf("[INFO] %s", format)
	z.l.Infof(format, args...)
}
