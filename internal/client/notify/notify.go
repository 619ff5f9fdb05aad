// Package notify delivers transient user feedback. Delivery is fire-and-forget.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

// Notification is one piece of feedback.
type Notification struct {
	Type    Type
	Message string
	At      time.Time
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

func Success(n Notifier, message string) { send(n, TypeSuccess, message) }
func Error(n Notifier, message string)   { send(n, TypeError, message) }
func Info(n Notifier, message string)    { send(n, TypeInfo, message) }

func send(n Notifier, t Type, message string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Type: t, Message: message, At: time.Now()})
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	switch n.Type {
	case TypeError:
		l.logger.Error(n.Message, "notification", string(n.Type))
	default:
		l.logger.Info(n.Message, "notification", string(n.Type))
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Last returns the newest notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Count returns how many notifications of type t were recorded.
func (r *Recorder) Count(t Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Type == t {
			n++
		}
	}
	return n
}
