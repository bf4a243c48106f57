package pipelinelog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func resetWriters(t *testing.T) (debug, info, warn *bytes.Buffer) {
	t.Helper()
	debug, info, warn = &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	DebugWriter, InfoWriter, NoteWriter, WarnWriter, ErrWriter, CritWriter = debug, info, info, warn, warn, warn
	logDateTime = false
	rebind()
	t.Cleanup(func() {
		DebugWriter, InfoWriter, NoteWriter = os.Stderr, os.Stderr, os.Stderr
		WarnWriter, ErrWriter, CritWriter = os.Stderr, os.Stderr, os.Stderr
		SetLevel("debug")
	})
	return
}

func TestDebugWritesToItsWriter(t *testing.T) {
	debug, _, _ := resetWriters(t)
	Debug("hello")
	if !strings.Contains(debug.String(), "hello") {
		t.Errorf("debug buffer = %q, want to contain %q", debug.String(), "hello")
	}
}

func TestSetLevelDiscardsBelowThreshold(t *testing.T) {
	debug, info, warn := resetWriters(t)
	SetLevel("warn")

	Debug("should not appear")
	Info("should not appear either")
	Warn("should appear")

	if debug.Len() != 0 {
		t.Errorf("debug output at warn level: %q", debug.String())
	}
	if info.Len() != 0 {
		t.Errorf("info output at warn level: %q", info.String())
	}
	if !strings.Contains(warn.String(), "should appear") {
		t.Errorf("warn buffer = %q, want message", warn.String())
	}
}

func TestSetLevelInvalidFallsBackToDebug(t *testing.T) {
	debug, _, _ := resetWriters(t)
	SetLevel("not-a-real-level")
	Debug("still visible")
	if !strings.Contains(debug.String(), "still visible") {
		t.Errorf("debug buffer = %q, want message after invalid level fallback", debug.String())
	}
}

func TestSetDateTimeAddsTimestampPrefix(t *testing.T) {
	debug, _, _ := resetWriters(t)
	SetDateTime(true)
	defer SetDateTime(false)

	Debug("timestamped")
	out := debug.String()
	// log.LstdFlags renders a date like "2024/..." before the message.
	if !strings.Contains(out, "/") {
		t.Errorf("expected a date-looking prefix, got %q", out)
	}
}
