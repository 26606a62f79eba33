package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"captionkit-server-go/internal/domain/caption"
	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Registry enforces the one-session-per-account rule and mediates grace
// window reattachment.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Admission is the result of AdmitOrAttach.
type Admission struct {
	Session *Session
	// Reattached is true when the client rejoined an existing session inside
	// its grace window.
	Reattached bool
}

// AdmitOrAttach resolves a new client connection for an account. An account
// with a live client is rejected; an account in its grace window gets its
// existing session back; otherwise a fresh session is created and its
// provider connected. The account key is reserved before the vendor dial,
// so racing connects for one account yield one session and the rest
// conflicts, and a slow handshake never blocks other accounts.
func (r *Registry) AdmitOrAttach(ctx context.Context, opts caption.Options) (Admission, error) {
	accountID := opts.AccountID

	r.mu.Lock()
	if existing := r.sessions[accountID]; existing != nil {
		r.mu.Unlock()
		if existing.State() != StateClientGrace {
			return Admission{}, platformerrors.New(platformerrors.KindConflict, "registry.admit",
				"account already has an active session")
		}
		return Admission{Session: existing, Reattached: true}, nil
	}

	sessionID := uuid.NewString()
	sess, err := New(accountID, sessionID, opts, r.deps, func() {
		r.remove(accountID, sessionID)
	})
	if err != nil {
		r.mu.Unlock()
		return Admission{}, err
	}

	r.sessions[accountID] = sess
	r.mu.Unlock()

	if err := sess.Start(ctx); err != nil {
		r.remove(accountID, sessionID)
		return Admission{}, platformerrors.Wrap(platformerrors.KindProvider, "registry.admit",
			"provider connect failed", err)
	}

	return Admission{Session: sess}, nil
}

func (r *Registry) remove(accountID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[accountID]; ok && current.ID == sessionID {
		delete(r.sessions, accountID)
	}
}

// Get returns the account's session, if any.
func (r *Registry) Get(accountID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[accountID]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns a copy of the live session list for the stats endpoint.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAll closes every live session. Used at shutdown.
func (r *Registry) CloseAll(reason string) {
	for _, s := range r.Snapshot() {
		s.Close(reason)
	}
}
