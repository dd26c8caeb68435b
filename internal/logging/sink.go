// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ChannelSink is a zapcore.WriteSyncer that decodes each JSON entry into a
// LogEntry and offers it on a buffered channel. It never blocks the logger:
// when the buffer is full the oldest entry is discarded.
type ChannelSink struct {
	mu      sync.Mutex
	entries chan LogEntry
	closed  bool
}

// NewChannelSink creates a sink buffering up to size entries.
func NewChannelSink(size int) *ChannelSink {
	if size < 1 {
		size = 1
	}
	return &ChannelSink{entries: make(chan LogEntry, size)}
}

// Write decodes p and enqueues it. Undecodable input is dropped silently.
func (s *ChannelSink) Write(p []byte) (int, error) {
	entry, ok := decodeEntry(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("channel sink is closed")
	}
	if !ok {
		return len(p), nil
	}

	for {
		select {
		case s.entries <- entry:
			return len(p), nil
		default:
		}
		select {
		case <-s.entries:
		default:
		}
	}
}

// Sync is a no-op.
func (s *ChannelSink) Sync() error { return nil }

// Close closes the entry channel. Further writes fail.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	return nil
}

// Entries returns the receive side of the sink.
func (s *ChannelSink) Entries() <-chan LogEntry {
	return s.entries
}

// decodeEntry converts one zap JSON line into a LogEntry.
func decodeEntry(p []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return LogEntry{}, false
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "app",
		Fields:    make(map[string]any),
	}
	for key, value := range raw {
		switch key {
		case "msg":
			entry.Message, _ = value.(string)
		case "level":
			if s, ok := value.(string); ok {
				entry.Level = ParseLevel(s)
			}
		case "logger":
			if s, ok := value.(string); ok && s != "" {
				entry.Scope = s
			}
		case "ts":
			if ts, ok := value.(float64); ok {
				sec := int64(ts)
				entry.Timestamp = time.Unix(sec, int64((ts-float64(sec))*1e9))
			}
		case "caller", "stacktrace":
		default:
			entry.Fields[key] = value
		}
	}
	return entry, true
}
