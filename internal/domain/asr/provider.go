// Package asr defines the provider contract every speech-recognition
// adapter satisfies, the factory registry adapters register into, and the
// language routing table that picks an adapter for a session.
package asr

import (
	"context"
	"sync/atomic"

	"captionkit-server-go/internal/domain/caption"
	"captionkit-server-go/internal/platform/config"
	"captionkit-server-go/internal/platform/logging"
)

// Status is the adapter connection state.
type Status int32

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusError
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sink receives everything an adapter produces. Implemented by the session;
// calls arrive from the adapter's read loop goroutine.
type Sink interface {
	// OnCaption delivers a partial or final caption event.
	OnCaption(ev caption.Event)
	// OnClosed reports that the vendor connection ended, normally or not.
	OnClosed(reason string)
	// OnError reports a vendor-side failure. The adapter is unusable after.
	OnError(err error)
}

// Provider is the uniform contract over vendor streaming recognizers.
type Provider interface {
	// Connect dials the vendor and completes its start handshake. Audio may
	// be sent once Connect returns nil.
	Connect(ctx context.Context) error
	// SendAudio forwards one binary audio chunk. Chunks sent before the
	// connection is ready are dropped, not queued.
	SendAudio(chunk []byte) error
	// Close ends the vendor session gracefully. Idempotent.
	Close() error
	Status() Status
}

// Params carries everything a factory needs to build an adapter.
type Params struct {
	SessionID string
	Options   caption.Options
	ASR       *config.ASRConfig
	Caption   config.CaptionConfig
	Logger    *logging.Logger
	Sink      Sink
}

// StatusHolder gives adapters a shared atomic status implementation.
type StatusHolder struct {
	v atomic.Int32
}

func (h *StatusHolder) Set(s Status) {
	h.v.Store(int32(s))
}

func (h *StatusHolder) Get() Status {
	return Status(h.v.Load())
}
