// pattern: Imperative Shell

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestLogManager is a LoggerProvider that only writes to a channel, at
// debug level, for assertions in tests.
type TestLogManager struct {
	*scopeCache
	sink *ChannelSink
}

// NewTestLogManager creates a TestLogManager buffering up to size entries.
func NewTestLogManager(size int) *TestLogManager {
	sink := NewChannelSink(size)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, zapcore.DebugLevel)
	return &TestLogManager{
		scopeCache: newScopeCache(zap.New(core), zapcore.DebugLevel),
		sink:       sink,
	}
}

// For returns the cached logger for scope.
func (m *TestLogManager) For(scope string) *ScopedLogger {
	return m.get(scope)
}

// Channel returns the entries written so far.
func (m *TestLogManager) Channel() <-chan LogEntry {
	return m.sink.Entries()
}

// Close closes the entry channel.
func (m *TestLogManager) Close() error {
	return m.sink.Close()
}
