package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"whereis/internal/infrastructure/config"
)

// Setup installs the global logger with console output. Used before the
// configuration is loaded.
func Setup() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Configure replaces the global logger according to cfg. When a file is
// configured, records go to both stdout and a rotating file.
func Configure(cfg config.LogConfig) io.Closer {
	var stdout io.Writer = os.Stdout
	if cfg.Format != "json" {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	writer := stdout
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(stdout, rotating)
		closer = rotating
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
