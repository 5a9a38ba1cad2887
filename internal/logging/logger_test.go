package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelWarn)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("WARN logger emitted lower-level messages: %q", out)
	}
	if !strings.Contains(out, "WARN warn 3") {
		t.Errorf("missing warn message: %q", out)
	}
	if !strings.Contains(out, "ERROR error 4") {
		t.Errorf("missing error message: %q", out)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelInfo, "INFO"},
		{LevelDebug, "DEBUG"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

func TestIsNil(t *testing.T) {
	if !IsNil(nil) {
		t.Error("IsNil(nil) = false, want true")
	}

	var typed *DefaultLogger
	if !IsNil(typed) {
		t.Error("IsNil(typed-nil) = false, want true")
	}

	if IsNil(NewDefaultLogger(LevelInfo)) {
		t.Error("IsNil(valid logger) = true, want false")
	}

	if IsNil(Discard) {
		t.Error("IsNil(Discard) = true, want false")
	}
}

func TestOrDefault(t *testing.T) {
	l := OrDefault(nil)
	if IsNil(l) {
		t.Fatal("OrDefault(nil) returned nil logger")
	}
	dl, ok := l.(*DefaultLogger)
	if !ok {
		t.Fatalf("OrDefault(nil) returned %T, want *DefaultLogger", l)
	}
	if dl.Level() != LevelWarn {
		t.Errorf("default logger level = %v, want WARN", dl.Level())
	}

	custom := NewDefaultLogger(LevelDebug)
	if OrDefault(custom) != Logger(custom) {
		t.Error("OrDefault did not pass through a valid logger")
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic.
	Discard.Errorf("e")
	Discard.Warnf("w")
	Discard.Infof("i")
	Discard.Debugf("d")
}

// TestFatalfPanics tests that Fatalf writes the message and then panics,
// regardless of the configured level.
func TestFatalfPanics(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, LevelError)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Fatalf did not panic")
		}
		if r != "fatal 1" {
			t.Errorf("panic value = %v, want %q", r, "fatal 1")
		}
		if !strings.Contains(buf.String(), "FATAL fatal 1") {
			t.Errorf("missing fatal message: %q", buf.String())
		}
	}()
	l.Fatalf("fatal %d", 1)
}

// TestDiscardFatalfPanics tests that the discard logger still panics on
// Fatalf even though it drops the message.
func TestDiscardFatalfPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Discard.Fatalf did not panic")
		}
	}()
	Discard.Fatalf("boom")
}
