package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")
	log.Info().Str("component", "executor").Msg("run finished")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "tutorialcms" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "run finished" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "nonsense")
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered at info level, got %q", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("expected info line to be written")
	}
}

func TestInitToRoutesProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "production", "info")
	t.Cleanup(func() { zlog = zerolog.Nop() })

	l := With("cli")
	l.Info().Msg("opened")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "cli" {
		t.Fatalf("expected component field, got %v", entry["component"])
	}
}
