package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel uint8

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// ParseLevel maps a LOG_LEVEL value onto a LogLevel. Unknown values fall back to info.
func ParseLevel(value string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "CRITICAL", "FATAL":
		return LevelCritical
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelCritical:
		return zapcore.DPanicLevel
	default:
		return zapcore.InfoLevel
	}
}

type Logger struct {
	level LogLevel
	sugar *zap.SugaredLogger
}

// NewLogger builds a console logger at level. When path is set, output is also
// appended to that file.
func NewLogger(level LogLevel, path string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if path != "" {
		if err := NewLogRotation(defaultMaxSize, defaultMaxAge).RotateIfNeeded(path); err != nil {
			return nil, err
		}
		cfg.OutputPaths = append(cfg.OutputPaths, path)
	}

	base, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &Logger{level: level, sugar: base.Sugar()}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{level: LevelCritical, sugar: zap.NewNop().Sugar()}
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	switch level {
	case LevelDebug:
		l.sugar.Debugf(format, args...)
	case LevelInfo:
		l.sugar.Infof(format, args...)
	case LevelWarn:
		l.sugar.Warnf(format, args...)
	case LevelError:
		l.sugar.Errorf(format, args...)
	default:
		// DPanic only panics in development builds.
		l.sugar.DPanicf(format, args...)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

func (l *Logger) Critical(format string, args ...interface{}) {
	l.log(LevelCritical, format, args...)
}

func (l *Logger) Close() error {
	return l.sugar.Sync()
}

var (
	globalMu     sync.RWMutex
	GlobalLogger = NewNopLogger()
)

func InitGlobalLogger(level LogLevel, path string) error {
	logger, err := NewLogger(level, path)
	if err != nil {
		return err
	}
	SetGlobalLogger(logger)
	return nil
}

func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	GlobalLogger = logger
	globalMu.Unlock()
}

func current() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return GlobalLogger
}

// Sync flushes buffered output of the global logger.
func Sync() {
	_ = current().Close()
}

func Debug(format string, args ...interface{}) {
	current().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	current().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	current().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	current().Error(format, args...)
}

func Critical(format string, args ...interface{}) {
	current().Critical(format, args...)
}
