// pattern: Imperative Shell

package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures a Manager.
type Config struct {
	FilePath       string // Log file; rotated by size
	MaxSizeMB      int    // Rotation threshold, default 5
	MaxBackups     int    // Rotated files kept, default 3
	MaxAgeDays     int    // Days rotated files are kept, default 14
	Level          string // debug, info, warn or error; default info
	ChannelBufSize int    // Entries buffered for the TUI, default 500
}

func (c *Config) applyDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 5
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 14
	}
	if c.ChannelBufSize == 0 {
		c.ChannelBufSize = 500
	}
}

// Manager writes every entry both to a rotating JSON log file and to a
// ChannelSink the TUI log panel reads from.
type Manager struct {
	*scopeCache
	root *zap.Logger
	sink *ChannelSink
	file *lumberjack.Logger
}

// NewManager creates the log directory if needed and builds the manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("log file path is required")
	}
	cfg.applyDefaults()

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	sink := NewChannelSink(cfg.ChannelBufSize)

	enc := encoderConfig()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, level),
	)
	base := zap.New(core)

	return &Manager{
		scopeCache: newScopeCache(base, level),
		root:       base,
		sink:       sink,
		file:       file,
	}, nil
}

// For returns the cached logger for scope.
func (m *Manager) For(scope string) *ScopedLogger {
	return m.get(scope)
}

// Entries returns the channel of parsed entries for the TUI.
func (m *Manager) Entries() <-chan LogEntry {
	return m.sink.Entries()
}

// Sync flushes buffered entries.
func (m *Manager) Sync() error {
	return m.root.Sync()
}

// Close flushes and releases the file and the entry channel.
func (m *Manager) Close() error {
	_ = m.Sync()
	_ = m.sink.Close()
	return m.file.Close()
}
