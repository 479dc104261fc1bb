package logger

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		l := New(level)
		if l == nil {
			t.Fatalf("New(%q) returned nil", level)
		}
		l.Debug("debug message", "level", level)
		l.Info("info message", "level", level)
	}
}

func TestWithPreservesLogger(t *testing.T) {
	l := New("error").With("component", "test")
	if l == nil {
		t.Fatal("With returned nil")
	}
	l.Error("scoped message")
}
