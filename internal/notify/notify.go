// Package notify carries transient user-facing notifications (toasts) from the
// engine to whatever view layer renders them.
package notify

import (
	"log/slog"
	"sync"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient message for the user.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use; the engine notifies from whichever goroutine resolved the
// triggering call.
type Notifier interface {
	Notify(Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Success sends a success notification; empty messages are dropped.
func Success(n Notifier, msg string) {
	if msg != "" {
		n.Notify(Notification{Level: LevelSuccess, Message: msg})
	}
}

// Info sends an informational notification; empty messages are dropped.
func Info(n Notifier, msg string) {
	if msg != "" {
		n.Notify(Notification{Level: LevelInfo, Message: msg})
	}
}

// Error sends an error notification.
func Error(n Notifier, msg string) {
	n.Notify(Notification{Level: LevelError, Message: msg})
}

// Recorder keeps every notification it receives, in order.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Errors returns the messages of recorded error notifications.
func (r *Recorder) Errors() []string {
	return r.messages(LevelError)
}

// Successes returns the messages of recorded success notifications.
func (r *Recorder) Successes() []string {
	return r.messages(LevelSuccess)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func (r *Recorder) messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

// Log writes notifications to a structured logger, for headless clients.
type Log struct {
	Logger *slog.Logger
}

// Notify logs n at a level matching its severity.
func (l Log) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch n.Level {
	case LevelError:
		logger.Error(n.Message, "notification", n.Level)
	default:
		logger.Info(n.Message, "notification", n.Level)
	}
}
