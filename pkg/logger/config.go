package logger

import (
	"log/slog"
	"strings"
)

type Backend string

const (
	BackendStd Backend = "std" // text-хендлер slog
	BackendZap Backend = "zap" // JSON через slog-zap
)

type Config struct {
	// метаданные, попадают в каждую запись
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // по умолчанию: std для dev, zap для stage/prod
	Debug   bool

	// sampling для zap
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

// ParseLevel понимает debug|info|warn|error, остальное считается info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
