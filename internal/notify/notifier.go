// Package notify delivers short user-facing messages about finished work.
package notify

import (
	"sync"
	"time"

	"carbonsink/internal/logger"
)

// Level is the kind of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier is fire-and-forget: delivery never fails from the caller's point of view
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Message is one delivered notification
type Message struct {
	Level   Level     `json:"level"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier logging under the "notify" component
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Component("notify")}
}

func (n *LogNotifier) Success(msg string) {
	n.log.Info(msg, logger.Fields{"level": string(LevelSuccess)})
}

func (n *LogNotifier) Error(msg string) {
	n.log.Warn(msg, logger.Fields{"level": string(LevelError)})
}

func (n *LogNotifier) Info(msg string) {
	n.log.Info(msg, logger.Fields{"level": string(LevelInfo)})
}

const defaultCapacity = 50

// Recorder keeps the most recent notifications in memory and forwards
// each one to an optional next notifier.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	next     Notifier
	now      func() time.Time
}

// NewRecorder creates a recorder holding up to capacity messages (50 when capacity <= 0)
func NewRecorder(capacity int, next Notifier) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{capacity: capacity, next: next, now: time.Now}
}

func (r *Recorder) Success(msg string) { r.record(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.record(LevelError, msg) }
func (r *Recorder) Info(msg string)    { r.record(LevelInfo, msg) }

func (r *Recorder) record(level Level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg, Created: r.now()})
	if over := len(r.messages) - r.capacity; over > 0 {
		r.messages = append([]Message(nil), r.messages[over:]...)
	}
	r.mu.Unlock()

	if r.next == nil {
		return
	}
	switch level {
	case LevelSuccess:
		r.next.Success(msg)
	case LevelError:
		r.next.Error(msg)
	default:
		r.next.Info(msg)
	}
}

// Messages returns a copy of every retained message, oldest first
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns up to n of the newest messages, oldest first
func (r *Recorder) Last(n int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		return []Message{}
	}
	if n > len(r.messages) {
		n = len(r.messages)
	}
	return append([]Message{}, r.messages[len(r.messages)-n:]...)
}
