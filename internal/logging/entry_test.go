// pattern: Functional Core

package logging

import (
	"testing"
	"time"
)

func TestLogEntry_String(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Date(2024, 5, 1, 14, 3, 9, 0, time.Local),
		Level:     "INFO",
		Scope:     "delete",
		Message:   "deleted",
		Fields:    map[string]any{"path": "/v", "bytes_freed": 10},
	}
	want := "14:03:09 INFO [delete] deleted bytes_freed=10 path=/v"
	if got := entry.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		"error":   "ERROR",
		"fatal":   "ERROR",
		"bogus":   "INFO",
		"":        "INFO",
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTestLogManager(t *testing.T) {
	lm := NewTestLogManager(10)
	defer func() { _ = lm.Close() }()

	var provider LoggerProvider = lm
	provider.For("watch").Debug("tracking", "dirs", 3)

	entry := <-lm.Channel()
	if entry.Scope != "watch" || entry.Level != "DEBUG" || entry.Message != "tracking" {
		t.Errorf("entry = %+v", entry)
	}
}
