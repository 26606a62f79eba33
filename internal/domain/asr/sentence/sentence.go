// Package sentence rebuilds stable caption segments from the incremental
// token output of a streaming recognizer. Finalized tokens accumulate in a
// committed buffer until a sentence boundary (or a flush ceiling) closes the
// segment; the still-revisable tail is appended on top of the committed
// buffer for live partial updates.
package sentence

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"captionkit-server-go/internal/domain/caption"
)

type TokenKind string

const (
	KindWord        TokenKind = "word"
	KindPunctuation TokenKind = "punctuation"
	KindEntity      TokenKind = "entity"
)

type Attachment string

const (
	AttachNone     Attachment = "none"
	AttachPrevious Attachment = "previous"
	AttachNext     Attachment = "next"
	AttachBoth     Attachment = "both"
)

// Token is one normalized recognizer result.
type Token struct {
	Kind            TokenKind
	StartTime       float64
	EndTime         float64
	Content         string
	AttachesTo      Attachment
	IsEndOfSentence bool
}

// FlushReason names why a committed buffer was closed into a final caption.
type FlushReason string

const (
	FlushEOS         FlushReason = "eos"
	FlushUtterance   FlushReason = "utterance"
	FlushMaxWords    FlushReason = "maxWords"
	FlushMaxDuration FlushReason = "maxDuration"
)

// Config carries the heuristic flush ceilings applied when the recognizer
// never reports a sentence boundary.
type Config struct {
	MaxWordsBeforeFlush    int
	MaxDurationBeforeFlush float64
}

func (c Config) withDefaults() Config {
	if c.MaxWordsBeforeFlush <= 0 {
		c.MaxWordsBeforeFlush = 14
	}
	if c.MaxDurationBeforeFlush <= 0 {
		c.MaxDurationBeforeFlush = 3.5
	}
	return c
}

var leadingPunct = regexp.MustCompile(`^[.,;:!?]+`)

// Stream reconstructs sentences from one recognizer connection. Not safe for
// concurrent use; the owning adapter feeds it from its single read loop.
type Stream struct {
	cfg  Config
	emit func(caption.Event)

	committed     []Token
	committedKeys map[string]struct{}
	tail          []Token

	lastPartialText string
}

func NewStream(cfg Config, emit func(caption.Event)) *Stream {
	return &Stream{
		cfg:           cfg.withDefaults(),
		emit:          emit,
		committedKeys: make(map[string]struct{}),
	}
}

// Commit folds finalized tokens into the committed buffer, closes any
// complete sentences, and refreshes the live partial.
func (s *Stream) Commit(tokens []Token) {
	for _, t := range tokens {
		k := tokenKey(t)
		if _, seen := s.committedKeys[k]; seen {
			continue
		}
		s.committedKeys[k] = struct{}{}
		s.committed = append(s.committed, t)
	}

	s.flushIfNeeded()
	// final tokens shift what the tail means, so refresh the partial too
	s.emitPartialIfChanged()
}

// UpdateTail replaces the revisable tail and refreshes the live partial.
func (s *Stream) UpdateTail(tokens []Token) {
	s.tail = tokens
	s.emitPartialIfChanged()
}

// Flush closes whatever the committed buffer holds into a final caption.
// Used on end-of-utterance signals and when a connection drains.
func (s *Stream) Flush(reason FlushReason) {
	s.flushAll(reason)
	s.tail = nil
	s.lastPartialText = ""
}

func (s *Stream) flushIfNeeded() {
	flushedAny := s.flushCompleteSentences()

	if !flushedAny && s.shouldHeuristicFlush() {
		s.flushAll(s.heuristicReason())
	}
}

// flushCompleteSentences emits one final caption per end-of-sentence
// punctuation token and keeps the remainder committed.
func (s *Stream) flushCompleteSentences() bool {
	did := false
	startIdx := 0

	for i, t := range s.committed {
		if t.Kind == KindPunctuation && t.IsEndOfSentence {
			s.emitFinal(s.committed[startIdx : i+1])
			did = true
			startIdx = i + 1
		}
	}

	if startIdx > 0 {
		remaining := append([]Token(nil), s.committed[startIdx:]...)
		s.committed = remaining
		s.committedKeys = make(map[string]struct{}, len(remaining))
		for _, t := range remaining {
			s.committedKeys[tokenKey(t)] = struct{}{}
		}
	}

	return did
}

func (s *Stream) flushAll(reason FlushReason) {
	_ = reason
	if len(s.committed) == 0 {
		return
	}
	s.emitFinal(s.committed)
	s.committed = nil
	s.committedKeys = make(map[string]struct{})
}

func (s *Stream) emitFinal(tokens []Token) {
	text := render(tokens)
	if text == "" {
		return
	}

	start := round2(tokens[0].StartTime)
	end := round2(tokens[len(tokens)-1].EndTime)

	s.emit(caption.Event{
		Start:      start,
		Duration:   round2(end - start),
		Text:       stripLeadingPunct(text),
		IsComplete: true,
	})
}

func (s *Stream) emitPartialIfChanged() {
	tokens := make([]Token, 0, len(s.committed)+len(s.tail))
	tokens = append(tokens, s.committed...)
	tokens = append(tokens, s.tail...)

	text := render(tokens)
	if text == "" || text == s.lastPartialText {
		return
	}
	s.lastPartialText = text

	start := round2(tokens[0].StartTime)
	end := round2(tokens[len(tokens)-1].EndTime)

	s.emit(caption.Event{
		Start:      start,
		Duration:   round2(end - start),
		Text:       stripLeadingPunct(text),
		IsComplete: false,
	})
}

func (s *Stream) shouldHeuristicFlush() bool {
	if s.wordCount() >= s.cfg.MaxWordsBeforeFlush {
		return true
	}
	if len(s.committed) > 0 {
		dur := s.committed[len(s.committed)-1].EndTime - s.committed[0].StartTime
		if dur >= s.cfg.MaxDurationBeforeFlush {
			return true
		}
	}
	return false
}

func (s *Stream) heuristicReason() FlushReason {
	if s.wordCount() >= s.cfg.MaxWordsBeforeFlush {
		return FlushMaxWords
	}
	return FlushMaxDuration
}

func (s *Stream) wordCount() int {
	n := 0
	for _, t := range s.committed {
		if t.Kind == KindWord {
			n++
		}
	}
	return n
}

// render joins tokens into display text. Tokens attaching to the previous
// token (or both neighbors) glue on with no space.
func render(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		if b.Len() > 0 && t.AttachesTo != AttachPrevious && t.AttachesTo != AttachBoth {
			b.WriteByte(' ')
		}
		b.WriteString(t.Content)
	}
	return strings.TrimSpace(b.String())
}

func stripLeadingPunct(text string) string {
	return strings.TrimSpace(leadingPunct.ReplaceAllString(text, ""))
}

// tokenKey identifies a token for dedup across overlapping result batches.
// Millisecond precision keeps distinct tokens with equal content apart.
func tokenKey(t Token) string {
	return fmt.Sprintf("%s:%.3f-%.3f:%s", t.Kind, t.StartTime, t.EndTime, t.Content)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
