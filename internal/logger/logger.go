package logger

import (
	"io"
	"os"
	"path/filepath"

	"sndiag/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log zerolog.Logger

// Module sub-loggers
var (
	Diag   zerolog.Logger
	Tools  zerolog.Logger
	Web    zerolog.Logger
	DB     zerolog.Logger
	Notify zerolog.Logger
)

func Init(cfg config.LogConfig) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var writer io.Writer

	if cfg.Mode == "debug" {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			writer = os.Stderr
		} else {
			writer = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
		}
	}

	Log = zerolog.New(writer).With().Timestamp().Caller().Logger()

	Diag = Log.With().Str("module", "diagnostics").Logger()
	Tools = Log.With().Str("module", "mcp").Logger()
	Web = Log.With().Str("module", "web").Logger()
	DB = Log.With().Str("module", "database").Logger()
	Notify = Log.With().Str("module", "notify").Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
