package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/finvox/finvox-go/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	is := is.New(t)

	var buf bytes.Buffer
	logger, closer := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	defer closer.Close()

	logger.Info("dropped")
	logger.Warn("kept", slog.String("tool", "get_account_balance"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	is.Equal(len(lines), 1)

	var rec map[string]any
	is.NoErr(json.Unmarshal([]byte(lines[0]), &rec))
	is.Equal(rec["msg"], "kept")
	is.Equal(rec["tool"], "get_account_balance")
}

func TestNew_ConsoleHasNoColorOffTerminal(t *testing.T) {
	is := is.New(t)

	var buf bytes.Buffer
	logger, _ := New(config.LogConfig{Level: "info", Format: "console"}, &buf)
	logger.Info("hello", slog.Int("n", 1))

	out := buf.String()
	is.True(strings.Contains(out, "hello"))
	is.True(strings.Contains(out, "n=1"))
	is.True(!strings.Contains(out, "\x1b[")) // no ANSI escapes in a buffer
}

func TestNew_File(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "finvox.log")
	var buf bytes.Buffer
	logger, closer := New(config.LogConfig{Format: "json", File: path, MaxSizeMB: 1}, &buf)

	logger.Info("to both")
	is.NoErr(closer.Close())

	data, err := os.ReadFile(path)
	is.NoErr(err)
	is.True(strings.Contains(string(data), "to both"))
	is.True(strings.Contains(buf.String(), "to both"))
}

func TestNew_DevNullIsNotTerminal(t *testing.T) {
	is := is.New(t)

	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	is.NoErr(err)
	defer f.Close()

	is.True(!isTerminal(f)) // a character device, but not a tty
}

func TestNew_ConsoleToFileHasNoColor(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "console.log")
	f, err := os.Create(path)
	is.NoErr(err)
	defer f.Close()

	logger, _ := New(config.LogConfig{Format: "console"}, f)
	logger.Info("plain")

	data, err := os.ReadFile(path)
	is.NoErr(err)
	is.True(strings.Contains(string(data), "plain"))
	is.True(!strings.Contains(string(data), "\x1b["))
}
