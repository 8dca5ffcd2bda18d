// Package status provides ble.Listener implementations that surface link
// state to the operator and to other processes.
package status

import (
	"log/slog"

	"github.com/chaz8081/skatectl/internal/ble"
)

// Log writes link notifications to a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log listener. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) OnStatus(text string) { l.logger.Info("[LINK] " + text) }
func (l *Log) OnReady()             { l.logger.Info("[LINK] ready") }
func (l *Log) OnNotReady()          { l.logger.Warn("[LINK] not ready") }

// Fanout forwards every notification to each listener in order.
type Fanout []ble.Listener

func (f Fanout) OnStatus(text string) {
	for _, l := range f {
		l.OnStatus(text)
	}
}

func (f Fanout) OnReady() {
	for _, l := range f {
		l.OnReady()
	}
}

func (f Fanout) OnNotReady() {
	for _, l := range f {
		l.OnNotReady()
	}
}
