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
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuild_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := build(&buf, Options{Level: "warn"})
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("case_id", "c1").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info line to be filtered")
	}
	if !strings.Contains(out, `"case_id":"c1"`) || !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("expected JSON warn line, got %q", out)
	}
}

func TestBuild_DevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := build(&buf, Options{Development: true})
	logger.Info().Msg("hello")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestBuild_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telehealth.log")
	var buf bytes.Buffer
	logger, closer := build(&buf, Options{File: path})

	logger.Info().Msg("to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Errorf("expected line in file and stdout, got file=%q stdout=%q", data, buf.String())
	}
}
