package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"whereis/internal/infrastructure/config"
)

func TestConfigureWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whereis.log")
	closer := Configure(config.LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	t.Cleanup(Setup)

	log.Debug().Str("asset", "TRK-01").Msg("resolved")
	if err := closer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"asset":"TRK-01"`) {
		t.Errorf("expected structured record in file, got %q", string(data))
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %v", zerolog.GlobalLevel())
	}
}

func TestConfigureFallsBackToInfo(t *testing.T) {
	Configure(config.LogConfig{Level: "loud"})
	t.Cleanup(Setup)
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %v", zerolog.GlobalLevel())
	}
}
