// Package assemblyai streams audio to the AssemblyAI v3 streaming API.
// AssemblyAI's turn model marks a caption complete only once the turn has
// both ended and been formatted; the unformatted end-of-turn event for the
// same turn stays a partial.
package assemblyai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
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
	asr.Register(asr.ProviderAssemblyAI, New)
}

type turnWord struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

type serverMessage struct {
	Type            string     `json:"type"`
	Transcript      string     `json:"transcript,omitempty"`
	EndOfTurn       bool       `json:"end_of_turn,omitempty"`
	TurnIsFormatted bool       `json:"turn_is_formatted,omitempty"`
	Words           []turnWord `json:"words,omitempty"`
	Error           string     `json:"error,omitempty"`
}

type terminateMessage struct {
	Type string `json:"type"`
}

// Adapter is one AssemblyAI streaming connection for one session.
type Adapter struct {
	params asr.Params
	status asr.StatusHolder

	writeMu sync.Mutex
	conn    *websocket.Conn
	closing atomic.Bool
	done    chan struct{}
}

func New(params asr.Params) (asr.Provider, error) {
	if params.ASR.AssemblyAI.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "assemblyai.new",
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
	cfg := a.params.ASR.AssemblyAI

	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "assemblyai.connect",
			"invalid endpoint url", err)
	}

	q := endpoint.Query()
	q.Set("sample_rate", "16000")
	q.Set("encoding", "pcm_s16le")
	q.Set("format_turns", "true")
	q.Set("end_of_turn_confidence_threshold",
		strconv.FormatFloat(cfg.EndOfTurnConfidence, 'f', -1, 64))
	q.Set("min_end_of_turn_silence_when_confident", strconv.Itoa(cfg.MinEndOfTurnSilenceMs))
	q.Set("max_turn_silence", strconv.Itoa(cfg.MaxTurnSilenceMs))
	q.Set("filter_profanity", strconv.FormatBool(a.params.Options.ProfanityFilter))
	for _, k := range a.params.Options.Keywords {
		q.Add("keyterms_prompt", k)
	}
	endpoint.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		a.status.Set(asr.StatusError)
		return platformerrors.Wrap(platformerrors.KindProvider, "assemblyai.connect",
			"websocket dial failed", err)
	}
	a.conn = conn
	a.status.Set(asr.StatusConnected)

	go a.readLoop()
	return nil
}

func (a *Adapter) SendAudio(chunk []byte) error {
	if a.status.Get() != asr.StatusConnected || len(chunk) == 0 {
		return nil
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return platformerrors.Wrap(platformerrors.KindProvider, "assemblyai.send",
			"failed to send audio", err)
	}
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
	if data, err := sonic.Marshal(terminateMessage{Type: "Terminate"}); err == nil {
		a.writeMu.Lock()
		a.conn.WriteMessage(websocket.TextMessage, data)
		a.writeMu.Unlock()
	}

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
			a.params.Sink.OnClosed(fmt.Sprintf("assemblyai read failed: %v", err))
			return
		}

		var msg serverMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			a.params.Logger.WarnTag("ASR", "assemblyai: unparseable message: %v", err)
			continue
		}

		switch msg.Type {
		case "Turn":
			a.handleTurn(msg)
		case "Termination":
			if !a.closing.Load() {
				a.status.Set(asr.StatusClosed)
				a.params.Sink.OnClosed("assemblyai terminated the session")
			}
			return
		case "Error":
			a.status.Set(asr.StatusError)
			if !a.closing.Load() {
				a.params.Sink.OnError(platformerrors.New(platformerrors.KindProvider,
					"assemblyai.read", msg.Error))
			}
			return
		}
	}
}

func (a *Adapter) handleTurn(msg serverMessage) {
	if len(msg.Words) == 0 || msg.Transcript == "" {
		return
	}

	start := msg.Words[0].Start
	end := msg.Words[len(msg.Words)-1].End
	if end < start {
		end = start
	}

	a.params.Sink.OnCaption(caption.Event{
		Start:    msToSeconds(start),
		Duration: msToSeconds(end - start),
		Text:     msg.Transcript,
		// formatting fires a second end-of-turn event for the same turn;
		// only the formatted one counts as complete
		IsComplete: msg.EndOfTurn && msg.TurnIsFormatted,
		SessionID:  a.params.SessionID,
	})
}

func msToSeconds(ms int64) float64 {
	return math.Round(float64(ms)/10) / 100
}
