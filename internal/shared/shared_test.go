package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if len(id) != 36 {
		t.Errorf("expected UUID of length 36, got %d (%s)", len(id), id)
	}

	if GenerateID() == id {
		t.Error("expected distinct IDs across calls")
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("writes to provided writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		logger.Info("hello")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output, got %q", buf.String())
		}
	})

	t.Run("nil writer falls back to stderr", func(t *testing.T) {
		if NewLogger(nil) == nil {
			t.Fatal("expected logger")
		}
	})

	t.Run("WithLogger adds key-value context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := WithLogger(NewLogger(buf), "component", "tokens")
		logger.Info("refreshing")

		if !strings.Contains(buf.String(), "component") {
			t.Errorf("expected contextual key in output, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel filters below threshold", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")

		if strings.Contains(buf.String(), "quiet") {
			t.Errorf("expected info to be filtered, got %q", buf.String())
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	t.Run("unsupported platform returns error", func(t *testing.T) {
		original := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = original }()

		if err := OpenBrowser("http://127.0.0.1:8080/auth/login"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
