package caption

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Event is one caption emitted by a provider adapter. Partial events
// (IsComplete=false) may be revised; a complete event is never revised
// again for its Start.
type Event struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Text       string  `json:"text"`
	EmittedAt  int64   `json:"t"`
	IsComplete bool    `json:"isComplete"`
	SessionID  string  `json:"requestId,omitempty"`
}

// Valid reports whether the event satisfies the model invariants.
func (e Event) Valid() bool {
	return e.Start >= 0 && e.Duration >= 0
}

// Stamp sets the emission timestamp to the current wall clock in milliseconds.
func (e *Event) Stamp() {
	e.EmittedAt = time.Now().UnixMilli()
}

// Options is the immutable per-session caption configuration, parsed from
// the upgrade request.
type Options struct {
	Language        string   `json:"language"`
	Targets         []string `json:"translations"`
	AccountID       string   `json:"accountId"`
	ProfileID       string   `json:"profileId,omitempty"`
	Keywords        []string `json:"keywords"`
	Blocked         []string `json:"blocked"`
	InterimResults  bool     `json:"interimResults"`
	ProfanityFilter bool     `json:"profanityFilter"`
}

// ChannelKey identifies the broadcast channel for a session's captions.
func (o Options) ChannelKey() string {
	if o.ProfileID != "" {
		return o.AccountID + ":" + o.ProfileID
	}
	return o.AccountID
}

// Validate rejects malformed options before any session state is created.
func (o Options) Validate() error {
	op := "options.validate"

	if o.AccountID == "" {
		return platformerrors.New(platformerrors.KindValidation, op, "accountId is required")
	}
	if _, err := uuid.Parse(o.AccountID); err != nil {
		return platformerrors.New(platformerrors.KindValidation, op, "accountId must be a UUID")
	}
	if o.ProfileID != "" {
		if _, err := uuid.Parse(o.ProfileID); err != nil {
			return platformerrors.New(platformerrors.KindValidation, op, "profileId must be a UUID")
		}
	}
	if _, ok := InputLanguages[o.Language]; !ok {
		return platformerrors.New(platformerrors.KindValidation, op,
			fmt.Sprintf("unsupported source language %q", o.Language))
	}
	for _, target := range o.Targets {
		if _, ok := OutputLanguages[target]; !ok {
			return platformerrors.New(platformerrors.KindValidation, op,
				fmt.Sprintf("unsupported target language %q", target))
		}
	}
	return nil
}
