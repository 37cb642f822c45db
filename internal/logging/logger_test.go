package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Str("component", "test").Msg("hello")
	Debug().Msg("suppressed")

	out := buf.String()
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Errorf("debug message written at info level: %s", out)
	}
}

func TestInitWithFileRotation(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "loader.log")
	Init(Config{Level: "info", Output: &buf, File: path, MaxSizeMB: 1})
	t.Cleanup(func() {
		_ = Close()
		Init(Config{})
	})

	Warn().Msg("to both")
	if err := Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("stderr writer missing message: %s", buf.String())
	}
}
