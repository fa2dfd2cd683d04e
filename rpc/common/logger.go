package common

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Text Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// bKVLogger implements the ILogger interface with custom formatting
type bKVLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *bKVLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *bKVLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *bKVLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *bKVLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *bKVLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *bKVLogger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *bKVLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// JSON Logger (zap)
// --------------------------------------------------------------------------

// zapLogger implements the ILogger interface on top of a zap logger
type zapLogger struct {
	level  logger.LogLevel
	logger *zap.SugaredLogger
}

func (l *zapLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *zapLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.logger.Debugf(format, args...)
	}
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.logger.Infof(format, args...)
	}
}

func (l *zapLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.logger.Warnf(format, args...)
	}
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.logger.Errorf(format, args...)
	}
}

func (l *zapLogger) Panicf(format string, args ...interface{}) {
	l.logger.Panicf(format, args...)
}

var (
	zapOnce sync.Once
	zapBase *zap.Logger
)

// baseZapLogger returns the shared zap logger, all levels are enabled and filtered per package
func baseZapLogger() *zap.Logger {
	zapOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Sampling = nil
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		zapBase = l
	})
	return zapBase
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger creates a text logger writing "LEVEL | package | message" lines to stdout
func CreateLogger(pkgName string) logger.ILogger {
	// Create standard logger with custom flags
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	return &bKVLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// CreateJSONLogger creates a logger writing JSON lines through zap
func CreateJSONLogger(pkgName string) logger.ILogger {
	return &zapLogger{
		level:  logger.INFO,
		logger: baseZapLogger().Named(pkgName).Sugar(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "", "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// Packages with a logger in this module
var loggerNames = []string{
	"store",
	"lstore",
	"notes",
	"rpc",
	"rpc/client",
	"transport/rpc",
	"cmd",
}

var (
	factoryOnce sync.Once
	jsonFormat  atomic.Bool
)

// formatLogger holds a text and a JSON logger for one package and writes
// through the one selected by the last InitLoggers call
type formatLogger struct {
	text logger.ILogger
	json logger.ILogger
}

func newFormatLogger(pkgName string) logger.ILogger {
	return &formatLogger{
		text: CreateLogger(pkgName),
		json: CreateJSONLogger(pkgName),
	}
}

func (l *formatLogger) current() logger.ILogger {
	if jsonFormat.Load() {
		return l.json
	}
	return l.text
}

func (l *formatLogger) SetLevel(level logger.LogLevel) {
	l.text.SetLevel(level)
	l.json.SetLevel(level)
}

func (l *formatLogger) Debugf(format string, args ...interface{}) {
	l.current().Debugf(format, args...)
}

func (l *formatLogger) Infof(format string, args ...interface{}) {
	l.current().Infof(format, args...)
}

func (l *formatLogger) Warningf(format string, args ...interface{}) {
	l.current().Warningf(format, args...)
}

func (l *formatLogger) Errorf(format string, args ...interface{}) {
	l.current().Errorf(format, args...)
}

func (l *formatLogger) Panicf(format string, args ...interface{}) {
	l.current().Panicf(format, args...)
}

// InitLoggers selects the format ("text" or "json") and sets the level of every
// package logger. It may be called any number of times, the logger factory is
// installed with the first call.
func InitLoggers(level, format string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	var useJSON bool
	switch strings.ToLower(format) {
	case "", "text":
	case "json":
		useJSON = true
	default:
		return fmt.Errorf("invalid log format: %s. must be one of text, json", format)
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(newFormatLogger)
	})
	jsonFormat.Store(useJSON)

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

// SyncLoggers flushes buffered JSON log output
func SyncLoggers() {
	if zapBase != nil {
		_ = zapBase.Sync()
	}
}
