// Package speechmatics streams audio to the Speechmatics realtime API and
// reconstructs sentence captions from its token-level transcript messages.
package speechmatics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"captionkit-server-go/internal/domain/asr"
	"captionkit-server-go/internal/domain/asr/sentence"
	"captionkit-server-go/internal/domain/caption"
	platformerrors "captionkit-server-go/internal/platform/errors"
)

const pingInterval = 30 * time.Second

func init() {
	asr.Register(asr.ProviderSpeechmatics, New)
}

type audioFormat struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type additionalVocab struct {
	Content string `json:"content"`
}

type transcriptFiltering struct {
	RemoveDisfluencies bool `json:"remove_disfluencies"`
}

type transcriptionConfig struct {
	Language            string              `json:"language"`
	OperatingPoint      string              `json:"operating_point,omitempty"`
	EnableEntities      bool                `json:"enable_entities"`
	MaxDelay            float64             `json:"max_delay,omitempty"`
	TranscriptFiltering transcriptFiltering `json:"transcript_filtering_config"`
	AdditionalVocab     []additionalVocab   `json:"additional_vocab,omitempty"`
}

type startRecognition struct {
	Message             string              `json:"message"`
	AudioFormat         audioFormat         `json:"audio_format"`
	TranscriptionConfig transcriptionConfig `json:"transcription_config"`
}

type endOfStream struct {
	Message   string `json:"message"`
	LastSeqNo int64  `json:"last_seq_no"`
}

type serverMessage struct {
	Message string   `json:"message"`
	Reason  string   `json:"reason,omitempty"`
	Type    string   `json:"type,omitempty"`
	Results []result `json:"results,omitempty"`
}

type result struct {
	Type         string  `json:"type"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	AttachesTo   string  `json:"attaches_to,omitempty"`
	IsEOS        bool    `json:"is_eos,omitempty"`
	Alternatives []struct {
		Content string `json:"content"`
	} `json:"alternatives"`
}

// Adapter is one Speechmatics realtime connection for one session.
type Adapter struct {
	params asr.Params
	status asr.StatusHolder
	stream *sentence.Stream

	writeMu sync.Mutex
	conn    *websocket.Conn
	seqNo   atomic.Int64
	closing atomic.Bool
	done    chan struct{}
}

func New(params asr.Params) (asr.Provider, error) {
	if params.ASR.Speechmatics.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "speechmatics.new",
			"missing api key")
	}

	a := &Adapter{
		params: params,
		done:   make(chan struct{}),
	}
	a.stream = sentence.NewStream(sentence.Config{
		MaxWordsBeforeFlush:    params.Caption.MaxWordsBeforeFlush,
		MaxDurationBeforeFlush: params.Caption.MaxDurationBeforeFlush,
	}, a.emitCaption)
	a.status.Set(asr.StatusConnecting)
	return a, nil
}

func (a *Adapter) Connect(ctx context.Context) error {
	cfg := a.params.ASR.Speechmatics

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		a.status.Set(asr.StatusError)
		return platformerrors.Wrap(platformerrors.KindProvider, "speechmatics.connect",
			"websocket dial failed", err)
	}
	a.conn = conn

	start := startRecognition{
		Message: "StartRecognition",
		AudioFormat: audioFormat{
			Type:       "raw",
			Encoding:   "pcm_s16le",
			SampleRate: 16000,
		},
		TranscriptionConfig: transcriptionConfig{
			Language:            languageCode(a.params.Options.Language),
			OperatingPoint:      cfg.OperatingPoint,
			EnableEntities:      true,
			MaxDelay:            cfg.MaxDelay,
			TranscriptFiltering: transcriptFiltering{RemoveDisfluencies: true},
			AdditionalVocab:     vocab(a.params.Options.Keywords),
		},
	}
	if err := a.writeJSON(start); err != nil {
		a.status.Set(asr.StatusError)
		conn.Close()
		return platformerrors.Wrap(platformerrors.KindProvider, "speechmatics.connect",
			"failed to send StartRecognition", err)
	}

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
		return platformerrors.Wrap(platformerrors.KindProvider, "speechmatics.send",
			"failed to send audio", err)
	}
	a.seqNo.Add(1)
	return nil
}

// Close ends the recognition session with an EndOfStream so Speechmatics
// finishes transcribing buffered audio before closing.
func (a *Adapter) Close() error {
	if !a.closing.CompareAndSwap(false, true) {
		return nil
	}
	defer a.status.Set(asr.StatusClosed)

	if a.conn == nil {
		return nil
	}
	if err := a.writeJSON(endOfStream{Message: "EndOfStream", LastSeqNo: a.seqNo.Load()}); err != nil {
		return a.conn.Close()
	}

	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
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
			a.params.Sink.OnClosed(fmt.Sprintf("speechmatics read failed: %v", err))
			return
		}

		var msg serverMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			a.params.Logger.WarnTag("ASR", "speechmatics: unparseable message: %v", err)
			continue
		}

		switch msg.Message {
		case "AddTranscript":
			a.stream.Commit(normalize(msg.Results))
		case "AddPartialTranscript":
			a.stream.UpdateTail(normalize(msg.Results))
		case "EndOfTranscript":
			a.stream.Flush(sentence.FlushUtterance)
			if !a.closing.Load() {
				a.status.Set(asr.StatusClosed)
				a.params.Sink.OnClosed("speechmatics end of transcript")
			}
			return
		case "Error":
			a.status.Set(asr.StatusError)
			if !a.closing.Load() {
				a.params.Sink.OnError(platformerrors.New(platformerrors.KindProvider,
					"speechmatics.read", fmt.Sprintf("%s: %s", msg.Type, msg.Reason)))
			}
			return
		}
	}
}

func (a *Adapter) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.writeMu.Lock()
			err := a.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			a.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (a *Adapter) emitCaption(ev caption.Event) {
	ev.SessionID = a.params.SessionID
	a.params.Sink.OnCaption(ev)
}

func (a *Adapter) writeJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.conn.WriteMessage(websocket.TextMessage, data)
}

// normalize keeps only well-formed word/punctuation/entity results and maps
// them into reconstructor tokens.
func normalize(results []result) []sentence.Token {
	out := make([]sentence.Token, 0, len(results))
	for _, r := range results {
		switch r.Type {
		case "word", "punctuation", "entity":
		default:
			continue
		}
		if len(r.Alternatives) == 0 || r.Alternatives[0].Content == "" {
			continue
		}

		attaches := sentence.Attachment(r.AttachesTo)
		if attaches == "" {
			attaches = sentence.AttachNone
		}
		out = append(out, sentence.Token{
			Kind:            sentence.TokenKind(r.Type),
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			Content:         r.Alternatives[0].Content,
			AttachesTo:      attaches,
			IsEndOfSentence: r.IsEOS,
		})
	}
	return out
}

// languageCode collapses regional English variants; Speechmatics models are
// keyed by bare language.
func languageCode(lang string) string {
	if strings.HasPrefix(lang, "en-") {
		return "en"
	}
	return lang
}

func vocab(keywords []string) []additionalVocab {
	if len(keywords) == 0 {
		return nil
	}
	out := make([]additionalVocab, len(keywords))
	for i, k := range keywords {
		out[i] = additionalVocab{Content: k}
	}
	return out
}
