// Package eventbus is the in-process event fan-out between the session
// pipeline and observers like the HTTP stats endpoint. Topics are fire and
// forget; subscribers must not block the publisher.
package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

const (
	EventSessionStarted  = "session:started"
	EventSessionAttached = "session:attached"
	EventSessionGrace    = "session:grace"
	EventSessionClosed   = "session:closed"

	EventCaptionFinal   = "caption:final"
	EventCaptionPartial = "caption:partial"

	EventProviderError = "provider:error"
)

// SessionEventData describes a session lifecycle transition.
type SessionEventData struct {
	SessionID string `json:"session_id"`
	AccountID string `json:"account_id"`
	Language  string `json:"language"`
	Provider  string `json:"provider,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CaptionEventData describes one emitted caption.
type CaptionEventData struct {
	SessionID string  `json:"session_id"`
	AccountID string  `json:"account_id"`
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
}

// ProviderEventData describes a vendor-side failure.
type ProviderEventData struct {
	SessionID string `json:"session_id"`
	Provider  string `json:"provider"`
	Message   string `json:"message"`
}

var (
	instance evbus.Bus
	once     sync.Once
)

// Get returns the process-wide bus instance.
func Get() evbus.Bus {
	once.Do(func() {
		instance = evbus.New()
	})
	return instance
}

// Publish publishes an event to all subscribers of the topic.
func Publish(topic string, args ...interface{}) {
	Get().Publish(topic, args...)
}

// Subscribe registers a handler for a topic.
func Subscribe(topic string, fn interface{}) error {
	return Get().Subscribe(topic, fn)
}

// SubscribeAsync registers a handler that runs in its own goroutine.
func SubscribeAsync(topic string, fn interface{}) error {
	return Get().SubscribeAsync(topic, fn, false)
}

// Unsubscribe removes a previously registered handler.
func Unsubscribe(topic string, fn interface{}) error {
	return Get().Unsubscribe(topic, fn)
}
