package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/form-intake/pkg/logging"
)

func TestNewWriter_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWriter(&logging.Config{Level: logging.LevelInfo, Format: logging.FormatJSON}, &buf)

		logger.Info("form saved", "id", "f-1")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("output is not json: %v", err)
		}
		if rec["msg"] != "form saved" || rec["id"] != "f-1" {
			t.Errorf("record = %v", rec)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWriter(&logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}, &buf)

		logger.Info("form saved", "id", "f-1")

		if !strings.Contains(buf.String(), "msg=\"form saved\" id=f-1") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestNewWriter_ServiceAndSource(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&logging.Config{
		Level:     logging.LevelInfo,
		Format:    logging.FormatJSON,
		AddSource: true,
		Service:   "form-intake",
	}, &buf)

	logger.Info("started")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if rec["service"] != "form-intake" {
		t.Errorf("service = %v, want form-intake", rec["service"])
	}
	if _, ok := rec[slog.SourceKey]; !ok {
		t.Errorf("record = %v, want a %s attribute", rec, slog.SourceKey)
	}
}

func TestNewWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&logging.Config{Level: logging.LevelWarn, Format: logging.FormatText}, &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn record missing")
	}
}

func TestConfig_Finalize(t *testing.T) {
	t.Setenv("TEST_LOGGING_LEVEL", "debug")
	t.Setenv("TEST_LOGGING_ADD_SOURCE", "true")
	t.Setenv("TEST_LOGGING_SERVICE", "intake-a")

	cfg := &logging.Config{}
	env := &logging.Env{
		Level:     "TEST_LOGGING_LEVEL",
		Format:    "TEST_LOGGING_FORMAT",
		AddSource: "TEST_LOGGING_ADD_SOURCE",
		Service:   "TEST_LOGGING_SERVICE",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	if cfg.Level != logging.LevelDebug {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.Format != logging.FormatText {
		t.Errorf("Format = %q, want text", cfg.Format)
	}
	if !cfg.AddSource || cfg.Service != "intake-a" {
		t.Errorf("AddSource = %v, Service = %q, want true, intake-a", cfg.AddSource, cfg.Service)
	}

	bad := &logging.Config{Level: "verbose"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("Finalize() accepted invalid level")
	}

	badFormat := &logging.Config{Format: "xml"}
	if err := badFormat.Finalize(nil); err == nil {
		t.Error("Finalize() accepted invalid format")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := &logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}
	cfg.Merge(&logging.Config{Format: logging.FormatJSON})

	if cfg.Level != logging.LevelInfo || cfg.Format != logging.FormatJSON {
		t.Errorf("Merge() = %+v, want info/json", cfg)
	}
}
