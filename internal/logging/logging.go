// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"catchall-api/internal/config"
)

// loggerName is reported as the logger name by the console format.
const loggerName = "catchall-api"

// Logger bundles the slog logger with the level it filters on, so the level
// can be changed after startup.
type Logger struct {
	*slog.Logger

	Level *slog.LevelVar
	file  *lumberjack.Logger
}

// New creates a Logger writing to stdout and, when log.file is set, to a
// rotated log file.
func New(cfg *config.Config) *Logger {
	var file *lumberjack.Logger
	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	l := NewWithWriter(out, cfg.Log.Format, cfg.Log.Level)
	l.file = file
	return l
}

// NewWithWriter creates a Logger writing to w in the given format.
func NewWithWriter(w io.Writer, format, level string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))

	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	default:
		h = newConsoleHandler(w, lv)
	}

	return &Logger{Logger: slog.New(h), Level: lv}
}

// SetLevel changes the active level.
func (l *Logger) SetLevel(level string) {
	l.Level.Set(ParseLevel(level))
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a config level name to a slog level. Unknown names map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newConsoleHandler renders colored, human-readable lines through zap's
// console encoder: timestamp, level, logger name, message, then fields.
func newConsoleHandler(w io.Writer, lv *slog.LevelVar) slog.Handler {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeName = zapcore.FullNameEncoder

	enabled := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= toZapLevel(lv.Level())
	})

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), enabled)
	return zapslog.NewHandler(core, zapslog.WithName(loggerName))
}

func toZapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
