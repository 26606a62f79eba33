// Package deepgram streams audio to the Deepgram live transcription API.
// Deepgram segments turns natively, so its results map straight onto caption
// events without sentence reconstruction.
package deepgram

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"captionkit-server-go/internal/domain/asr"
	"captionkit-server-go/internal/domain/caption"
	platformerrors "captionkit-server-go/internal/platform/errors"
)

func init() {
	asr.Register(asr.ProviderDeepgram, New)
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type response struct {
	Type     string  `json:"type"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	IsFinal  bool    `json:"is_final"`
	Channel  struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

type controlMessage struct {
	Type string `json:"type"`
}

// Adapter is one Deepgram live connection for one session.
type Adapter struct {
	params asr.Params
	status asr.StatusHolder

	writeMu      sync.Mutex
	conn         *websocket.Conn
	lastActivity atomic.Int64
	closing      atomic.Bool
	done         chan struct{}
}

func New(params asr.Params) (asr.Provider, error) {
	if params.ASR.Deepgram.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "deepgram.new",
			"missing api key")
	}

	a := &Adapter{
		params: params,
		done:   make(chan struct{}),
	}
	a.status.Set(asr.StatusConnecting)
	return a, nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	cfg := a.params.ASR.Deepgram
	opts := a.params.Options

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "deepgram.connect",
			"invalid endpoint url", err)
	}

	q := endpoint.Query()
	q.Set("model", cfg.Model)
	q.Set("language", opts.Language)
	q.Set("punctuate", "true")
	q.Set("profanity_filter", strconv.FormatBool(opts.ProfanityFilter))
	q.Set("channels", "1")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", "16000")
	q.Set("smart_format", "true")
	q.Set("interim_results", strconv.FormatBool(opts.InterimResults))
	q.Set("vad_events", "false")
	q.Set("endpointing", strconv.Itoa(cfg.Endpointing))
	endpoint.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Token "+cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		a.status.Set(asr.StatusError)
		return platformerrors.Wrap(platformerrors.KindProvider, "deepgram.connect",
			"websocket dial failed", err)
	}
	a.conn = conn
	a.touch()
	a.status.Set(asr.StatusConnected)

	go a.readLoop()
	go a.keepAlive()
	return nil
}

func (a *Adapter) SendAudio(chunk []byte) error {
	if a.status.Get() != asr.StatusConnected || len(chunk) == 0 {
		return nil
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return platformerrors.Wrap(platformerrors.KindProvider, "deepgram.send",
			"failed to send audio", err)
	}
	a.touch()
	return nil
}

func (a *Adapter) Close() error {
	if !a.closing.CompareAndSwap(false, true) {
		return nil
	}
	defer a.status.Set(asr.StatusClosed)

	if a.conn == nil {
		return nil
	}
	a.writeControl(controlMessage{Type: "CloseStream"})

	select {
	case <-a.done:
	case <-time.After(3 * time.Second):
	}
	return a.conn.Close()
}

func (a *Adapter) Status() asr.Status {
	return a.status.Get()
}

func (a *Adapter) readLoop() {
	defer close(a.done)

	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			if a.closing.Load() {
				return
			}
			a.status.Set(asr.StatusClosed)
			a.params.Sink.OnClosed(fmt.Sprintf("deepgram read failed: %v", err))
			return
		}
		a.touch()

		var msg response
		if err := sonic.Unmarshal(data, &msg); err != nil {
			a.params.Logger.WarnTag("ASR", "deepgram: unparseable message: %v", err)
			continue
		}
		if ev, ok := toEvent(msg, a.params.SessionID); ok {
			a.params.Sink.OnCaption(ev)
		}
	}
}

// toEvent maps one Results message onto a caption event. Non-result and
// empty-transcript messages produce nothing.
func toEvent(msg response, sessionID string) (caption.Event, bool) {
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return caption.Event{}, false
	}

	texts := make([]string, 0, len(msg.Channel.Alternatives))
	for _, alt := range msg.Channel.Alternatives {
		texts = append(texts, alt.Transcript)
	}
	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return caption.Event{}, false
	}

	return caption.Event{
		Start:      round2(msg.Start),
		Duration:   round2(msg.Duration),
		Text:       text,
		IsComplete: msg.IsFinal,
		SessionID:  sessionID,
	}, true
}

// keepAlive keeps the Deepgram connection open through silence; the server
// drops connections that go quiet for too long.
func (a *Adapter) keepAlive() {
	interval := a.params.ASR.Deepgram.KeepAlive
	if interval <= 0 {
		interval = 3 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			idle := time.Since(time.UnixMilli(a.lastActivity.Load()))
			if idle < interval {
				continue
			}
			if err := a.writeControl(controlMessage{Type: "KeepAlive"}); err != nil {
				return
			}
			a.touch()
		}
	}
}

func (a *Adapter) writeControl(msg controlMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.TextMessage, data)
}

func (a *Adapter) touch() {
	a.lastActivity.Store(time.Now().UnixMilli())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
