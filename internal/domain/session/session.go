// Package session owns the lifecycle of one live captioning conversation:
// one client connection, one provider connection, and the caption pipeline
// between them. A session survives brief client disconnects; it never runs
// two captioning pipelines for the same account.
package session

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"captionkit-server-go/internal/domain/asr"
	"captionkit-server-go/internal/domain/broadcast"
	"captionkit-server-go/internal/domain/caption"
	"captionkit-server-go/internal/domain/eventbus"
	"captionkit-server-go/internal/domain/translation"
	"captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
	"captionkit-server-go/internal/platform/logging"
	"captionkit-server-go/internal/platform/storage"
)

// State is the session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateActive
	// StateClientGrace holds the provider connection open after an abnormal
	// client disconnect, awaiting reattachment.
	StateClientGrace
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClientGrace:
		return "client_grace"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// broadcast windows over the caption sequences
const (
	defaultPublishWindow     = 8
	translationPublishWindow = 4

	closeDrainTimeout = 5 * time.Second
)

// ClientConn is the session's view of the client websocket.
type ClientConn interface {
	SendText(msg []byte) error
	Close(code int, reason string) error
}

// Deps carries the collaborators a session needs.
type Deps struct {
	Config      *config.Config
	Logger      *logging.Logger
	Storage     *storage.Store // nil disables persistence
	Broadcaster broadcast.Broadcaster
	Translator  translation.Translator // nil disables translation
}

// Session is one live captioning conversation.
type Session struct {
	ID        string
	AccountID string

	opts      caption.Options
	deps      Deps
	createdAt time.Time

	store        *caption.Store
	filter       *caption.Filter
	provider     asr.Provider
	providerName string
	orchestrator *translation.Orchestrator

	mu         sync.Mutex
	client     ClientConn
	graceTimer *time.Timer

	state        atomic.Int32
	closing      atomic.Bool
	initDone     atomic.Bool
	providerDead atomic.Bool
	onCleanup    func()
}

// New builds a session and its provider adapter. The provider is not
// connected yet; call Start.
func New(accountID, sessionID string, opts caption.Options, deps Deps, onCleanup func()) (*Session, error) {
	s := &Session{
		ID:        sessionID,
		AccountID: accountID,
		opts:      opts,
		deps:      deps,
		createdAt: time.Now(),
		store:     caption.NewStore(),
		filter:    caption.NewFilter(opts),
		onCleanup: onCleanup,
	}
	s.state.Store(int32(StateConnecting))

	providerName, err := asr.Route(opts.Language, deps.Config.ASR.Routing)
	if err != nil {
		return nil, err
	}
	s.providerName = providerName

	provider, err := asr.Create(providerName, asr.Params{
		SessionID: sessionID,
		Options:   opts,
		ASR:       &deps.Config.ASR,
		Caption:   deps.Config.Caption,
		Logger:    deps.Logger,
		Sink:      s,
	})
	if err != nil {
		return nil, err
	}
	s.provider = provider

	if deps.Translator != nil && len(opts.Targets) > 0 {
		rules := deps.Config.Translation.AccountRules[accountID]
		s.orchestrator = translation.NewOrchestrator(
			deps.Translator, s.store, opts, rules, deps.Logger, s.publishTranslation)
	}

	return s, nil
}

// Start connects the provider. The session is unusable if Start fails.
func (s *Session) Start(ctx context.Context) error {
	if err := s.provider.Connect(ctx); err != nil {
		return err
	}
	eventbus.Publish(eventbus.EventSessionStarted, eventbus.SessionEventData{
		SessionID: s.ID,
		AccountID: s.AccountID,
		Language:  s.opts.Language,
		Provider:  s.providerName,
	})
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Options returns the session's immutable caption options.
func (s *Session) Options() caption.Options {
	return s.opts
}

// Provider returns the routed provider name.
func (s *Session) Provider() string {
	return s.providerName
}

// HasClient reports whether a client connection is currently attached.
func (s *Session) HasClient() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// Attach binds a client connection, canceling any running grace timer.
// Fails when another client is already attached or the session is closing.
func (s *Session) Attach(conn ClientConn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing.Load() {
		return platformerrors.New(platformerrors.KindConflict, "session.attach",
			"session is closing")
	}
	if s.client != nil {
		return platformerrors.New(platformerrors.KindConflict, "session.attach",
			"a client is already connected")
	}
	if s.providerDead.Load() {
		return platformerrors.New(platformerrors.KindProvider, "session.attach",
			"provider connection is gone")
	}

	reattach := s.graceTimer != nil
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}

	s.client = conn
	s.state.Store(int32(StateActive))

	if reattach {
		s.deps.Logger.InfoTag("Session", "%s|%s client reattached within grace window", s.AccountID, s.ID)
		eventbus.Publish(eventbus.EventSessionAttached, eventbus.SessionEventData{
			SessionID: s.ID,
			AccountID: s.AccountID,
			Language:  s.opts.Language,
		})
	}
	return nil
}

// OnClientClosed handles the client socket closing. A normal closure ends
// the session; anything else enters the grace window so the client can
// reattach without losing the provider connection.
func (s *Session) OnClientClosed(code int, reason string) {
	if s.closing.Load() {
		return
	}

	if code == 1000 {
		s.Close("client closed")
		return
	}
	s.enterGrace(code, reason)
}

func (s *Session) enterGrace(code int, reason string) {
	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		return
	}
	s.client = nil
	s.state.Store(int32(StateClientGrace))

	window := s.deps.Config.Session.GraceWindow
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.graceTimer = time.AfterFunc(window, s.onGraceTimeout)
	s.mu.Unlock()

	s.deps.Logger.InfoTag("Session", "%s|%s client lost (%d %s), holding provider for %s",
		s.AccountID, s.ID, code, reason, window)
	eventbus.Publish(eventbus.EventSessionGrace, eventbus.SessionEventData{
		SessionID: s.ID,
		AccountID: s.AccountID,
		Language:  s.opts.Language,
		Reason:    reason,
	})
}

func (s *Session) onGraceTimeout() {
	s.Close("grace window expired")
}

// OnCaption implements asr.Sink. Called from the adapter's read loop.
func (s *Session) OnCaption(ev caption.Event) {
	if s.closing.Load() {
		return
	}

	filtered, ok := s.filter.Apply(ev)
	if !ok {
		return
	}

	s.store.Upsert(filtered)
	s.sendToClient(filtered)
	s.publishCaptions()

	if !filtered.IsComplete {
		return
	}

	s.trackUsage(filtered)
	eventbus.Publish(eventbus.EventCaptionFinal, eventbus.CaptionEventData{
		SessionID: s.ID,
		AccountID: s.AccountID,
		Start:     filtered.Start,
		Duration:  filtered.Duration,
		Text:      filtered.Text,
	})

	if s.orchestrator != nil {
		s.orchestrator.ProcessSegment()
	}
}

// OnClosed implements asr.Sink: the provider connection ended on its own.
func (s *Session) OnClosed(reason string) {
	if s.holdForGrace(reason) {
		return
	}
	s.Close(reason)
}

// OnError implements asr.Sink: the provider failed.
func (s *Session) OnError(err error) {
	eventbus.Publish(eventbus.EventProviderError, eventbus.ProviderEventData{
		SessionID: s.ID,
		Provider:  s.providerName,
		Message:   err.Error(),
	})
	if s.holdForGrace(err.Error()) {
		return
	}
	s.Close("provider error: " + err.Error())
}

// holdForGrace keeps captured captions alive when the provider dies while
// the client is already gone: the grace timer still drives the close, so the
// session persists on its normal path instead of racing a reattach.
func (s *Session) holdForGrace(reason string) bool {
	if s.State() != StateClientGrace {
		return false
	}
	s.providerDead.Store(true)
	s.deps.Logger.WarnTag("Session", "%s|%s provider lost during grace window: %s",
		s.AccountID, s.ID, reason)
	return true
}

// HandleClientMessage processes one client websocket message. Binary frames
// are audio for the provider; the text protocol answers liveness pings and
// session id lookups.
func (s *Session) HandleClientMessage(data []byte, binary bool) {
	if binary {
		if err := s.provider.SendAudio(data); err != nil {
			s.deps.Logger.WarnTag("Session", "%s|%s audio forward failed: %v", s.AccountID, s.ID, err)
		}
		return
	}

	switch string(data) {
	case "ping":
		s.replyText([]byte("pong"))
	case "get:session":
		s.replyText([]byte("session:" + s.ID))
	}
}

// Close tears the session down: client socket, provider connection, then a
// single persistence pass. Idempotent.
func (s *Session) Close(reason string) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.state.Store(int32(StateClosing))

	s.mu.Lock()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	client := s.client
	s.client = nil
	s.mu.Unlock()

	duration := time.Since(s.createdAt).Truncate(time.Second)
	s.deps.Logger.InfoTag("Session", "%s|%s closing after %s: %s", s.AccountID, s.ID, duration, reason)

	if client != nil {
		if err := client.Close(1000, reason); err != nil {
			s.deps.Logger.WarnTag("Session", "%s|%s client close failed: %v", s.AccountID, s.ID, err)
		}
	}
	if err := s.provider.Close(); err != nil {
		s.deps.Logger.WarnTag("Session", "%s|%s provider close failed: %v", s.AccountID, s.ID, err)
	}

	if s.orchestrator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeDrainTimeout)
		s.orchestrator.Wait(ctx)
		cancel()
	}

	s.persist()

	// the registry entry is released only after the flush, so a reconnecting
	// client cannot start a second vendor connection while this one is still
	// writing its history
	if s.onCleanup != nil {
		s.onCleanup()
	}
	s.state.Store(int32(StateClosed))

	eventbus.Publish(eventbus.EventSessionClosed, eventbus.SessionEventData{
		SessionID: s.ID,
		AccountID: s.AccountID,
		Language:  s.opts.Language,
		Provider:  s.providerName,
		Reason:    reason,
	})
}

func (s *Session) sendToClient(ev caption.Event) {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return
	}
	s.replyText(payload)
}

func (s *Session) replyText(payload []byte) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return
	}
	if err := client.SendText(payload); err != nil {
		s.deps.Logger.WarnTag("Session", "%s|%s client send failed: %v", s.AccountID, s.ID, err)
	}
}

// publishCaptions pushes the recent default window to subscribers. With
// interim results off, windows ending in a partial stay local.
func (s *Session) publishCaptions() {
	recent := s.store.Recent(defaultPublishWindow)
	if len(recent) == 0 {
		return
	}
	last := recent[len(recent)-1]
	if !s.opts.InterimResults && !last.IsComplete {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.deps.Broadcaster.PublishCaptions(ctx, s.opts.ChannelKey(), recent, last.IsComplete)
}

func (s *Session) publishTranslation(lang string, translated []caption.Event) {
	if len(translated) > translationPublishWindow {
		translated = translated[len(translated)-translationPublishWindow:]
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.deps.Broadcaster.PublishTranslation(ctx, s.opts.ChannelKey(), lang, translated)
}

// trackUsage creates the session row on the first segment and keeps its
// running duration current so quota checks see live usage.
func (s *Session) trackUsage(ev caption.Event) {
	if s.deps.Storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if ev.Start == 0 && s.initDone.CompareAndSwap(false, true) {
		targets, _ := sonic.Marshal(s.opts.Targets)
		err := s.deps.Storage.InitSession(ctx, storage.SessionRecord{
			ID:           s.ID,
			AccountID:    s.AccountID,
			ProfileID:    s.opts.ProfileID,
			Language:     s.opts.Language,
			Translations: targets,
			Duration:     math.Ceil(ev.Duration),
			StartedAt:    time.Now(),
		})
		if err != nil {
			s.deps.Logger.WarnTag("Storage", "%s|%s session init failed: %v", s.AccountID, s.ID, err)
		}
		return
	}

	last, ok := s.store.Last()
	if !ok {
		return
	}
	if err := s.deps.Storage.UpdateDuration(ctx, s.ID, last.Start+last.Duration); err != nil {
		s.deps.Logger.WarnTag("Storage", "%s|%s duration update failed: %v", s.AccountID, s.ID, err)
	}
}

// persist writes the final session row and translation rows. Best effort;
// failures are logged.
func (s *Session) persist() {
	if s.deps.Storage == nil {
		return
	}

	snapshot := s.store.Snapshot()
	defaults := snapshot["default"]
	if len(defaults) == 0 {
		s.deps.Logger.InfoTag("Storage", "%s|%s no captions to save", s.AccountID, s.ID)
		return
	}

	first := defaults[0]
	last := defaults[len(defaults)-1]

	data, err := sonic.Marshal(defaults)
	if err != nil {
		s.deps.Logger.ErrorTag("Storage", "%s|%s caption marshal failed: %v", s.AccountID, s.ID, err)
		return
	}
	targets, _ := sonic.Marshal(s.opts.Targets)

	rec := storage.SessionRecord{
		ID:           s.ID,
		AccountID:    s.AccountID,
		ProfileID:    s.opts.ProfileID,
		Language:     s.opts.Language,
		Translations: targets,
		Data:         data,
		Duration:     math.Ceil(last.Start + last.Duration),
		StartedAt:    time.UnixMilli(first.EmittedAt),
	}

	var translations []storage.TranslationRecord
	for _, lang := range s.opts.Targets {
		events := snapshot[lang]
		if len(events) == 0 {
			continue
		}
		data, err := sonic.Marshal(events)
		if err != nil {
			continue
		}
		translations = append(translations, storage.TranslationRecord{
			SessionID: s.ID,
			AccountID: s.AccountID,
			Language:  lang,
			Data:      data,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.deps.Storage.PersistSession(ctx, rec, translations); err != nil {
		s.deps.Logger.ErrorTag("Storage", "%s|%s session save failed: %v", s.AccountID, s.ID, err)
		return
	}
	s.deps.Logger.InfoTag("Storage", "%s|%s session saved (%d captions, %d languages)",
		s.AccountID, s.ID, len(defaults), len(translations))
}
