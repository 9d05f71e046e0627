// Package trace carries job output from the acquisition core to the host:
// a line-oriented sink with secret masking applied at the boundary.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives job output lines. Implementations must be safe for concurrent
// use: the git adapter writes stdout and stderr from separate readers.
type Sink interface {
	Output(line string)
	Debug(line string)
	Warning(line string)
	Error(line string)
	Command(line string)
	Progress(percent int, message string)
	// SetSecret registers a value to be masked in all subsequent lines.
	SetSecret(secret string)
}

// SlogSink forwards job output to slog after masking registered secrets.
type SlogSink struct {
	mu       sync.Mutex
	logger   *slog.Logger
	registry *Registry
}

// NewSlogSink creates a sink writing to logger (the default logger when nil)
// masking everything registered in reg.
func NewSlogSink(logger *slog.Logger, reg *Registry) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &SlogSink{logger: logger, registry: reg}
}

// Registry exposes the sink's secret registry so callers can pre-register
// values before any line is emitted.
func (s *SlogSink) Registry() *Registry { return s.registry }

func (s *SlogSink) emit(level slog.Level, line string) {
	line = s.registry.Mask(line)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Log(context.Background(), level, line)
}

func (s *SlogSink) Output(line string)  { s.emit(slog.LevelInfo, line) }
func (s *SlogSink) Debug(line string)   { s.emit(slog.LevelDebug, line) }
func (s *SlogSink) Warning(line string) { s.emit(slog.LevelWarn, line) }
func (s *SlogSink) Error(line string)   { s.emit(slog.LevelError, line) }

// Command logs the command line about to be executed.
func (s *SlogSink) Command(line string) {
	s.emit(slog.LevelInfo, "[command] "+line)
}

// Progress reports acquisition progress (0-100).
func (s *SlogSink) Progress(percent int, message string) {
	s.emit(slog.LevelInfo, fmt.Sprintf("[progress %d%%] %s", percent, message))
}

// SetSecret registers a secret for masking.
func (s *SlogSink) SetSecret(secret string) {
	s.registry.Add(secret)
}
