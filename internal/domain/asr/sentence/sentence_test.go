package sentence

import (
	"strings"
	"testing"

	"captionkit-server-go/internal/domain/caption"
)

func collect(cfg Config) (*Stream, *[]caption.Event) {
	events := &[]caption.Event{}
	s := NewStream(cfg, func(ev caption.Event) {
		*events = append(*events, ev)
	})
	return s, events
}

func word(start, end float64, content string) Token {
	return Token{Kind: KindWord, StartTime: start, EndTime: end, Content: content}
}

func eos(start, end float64, content string) Token {
	return Token{
		Kind:            KindPunctuation,
		StartTime:       start,
		EndTime:         end,
		Content:         content,
		AttachesTo:      AttachPrevious,
		IsEndOfSentence: true,
	}
}

func finals(events []caption.Event) []caption.Event {
	var out []caption.Event
	for _, ev := range events {
		if ev.IsComplete {
			out = append(out, ev)
		}
	}
	return out
}

func TestStream_SentenceBoundaryFlush(t *testing.T) {
	s, events := collect(Config{})

	s.UpdateTail([]Token{word(0, 0.4, "hello")})
	s.UpdateTail([]Token{word(0, 0.4, "hello"), word(0.5, 0.9, "world")})
	s.Commit([]Token{
		word(0, 0.4, "hello"),
		word(0.5, 0.9, "world"),
		eos(0.9, 0.9, "."),
	})

	got := finals(*events)
	if len(got) != 1 {
		t.Fatalf("expected 1 final caption, got %d: %+v", len(got), got)
	}
	if got[0].Text != "hello world." {
		t.Errorf("text = %q", got[0].Text)
	}
	if got[0].Start != 0 || got[0].Duration != 0.9 {
		t.Errorf("timing = start %v duration %v", got[0].Start, got[0].Duration)
	}
}

func TestStream_MultipleSentencesInOneBatch(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{
		word(0, 0.3, "yes"),
		eos(0.3, 0.3, "."),
		word(0.5, 0.8, "no"),
		eos(0.8, 0.8, "."),
		word(1.0, 1.3, "maybe"),
	})

	got := finals(*events)
	if len(got) != 2 {
		t.Fatalf("expected 2 final captions, got %d", len(got))
	}
	if got[0].Text != "yes." || got[1].Text != "no." {
		t.Errorf("texts = %q, %q", got[0].Text, got[1].Text)
	}

	// the trailing word stays committed and closes with the next boundary
	s.Commit([]Token{eos(1.3, 1.3, "?")})
	got = finals(*events)
	if len(got) != 3 || got[2].Text != "maybe?" {
		t.Fatalf("expected remainder to flush on next boundary, got %+v", got)
	}
}

func TestStream_DuplicateTokensIgnored(t *testing.T) {
	s, events := collect(Config{})

	batch := []Token{word(0, 0.4, "hello"), word(0.5, 0.9, "world")}
	s.Commit(batch)
	s.Commit(batch) // overlapping redelivery
	s.Commit([]Token{eos(0.9, 0.9, ".")})

	got := finals(*events)
	if len(got) != 1 {
		t.Fatalf("expected 1 final caption, got %d", len(got))
	}
	if got[0].Text != "hello world." {
		t.Errorf("duplicates leaked into output: %q", got[0].Text)
	}
}

func TestStream_RepeatedContentDistinctTimesKept(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{
		word(0, 0.3, "very"),
		word(0.4, 0.7, "very"),
		word(0.8, 1.1, "good"),
		eos(1.1, 1.1, "."),
	})

	got := finals(*events)
	if len(got) != 1 || got[0].Text != "very very good." {
		t.Fatalf("distinct timestamps must not dedup, got %+v", got)
	}
}

func TestStream_MaxWordsFlush(t *testing.T) {
	s, events := collect(Config{MaxWordsBeforeFlush: 3, MaxDurationBeforeFlush: 100})

	s.Commit([]Token{word(0, 0.1, "one"), word(0.2, 0.3, "two")})
	if len(finals(*events)) != 0 {
		t.Fatal("must not flush below the word ceiling")
	}

	s.Commit([]Token{word(0.4, 0.5, "three")})
	got := finals(*events)
	if len(got) != 1 {
		t.Fatalf("expected heuristic flush at word ceiling, got %d", len(got))
	}
	if got[0].Text != "one two three" {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestStream_MaxDurationFlush(t *testing.T) {
	s, events := collect(Config{MaxWordsBeforeFlush: 100, MaxDurationBeforeFlush: 2})

	s.Commit([]Token{word(0, 0.5, "slow")})
	if len(finals(*events)) != 0 {
		t.Fatal("must not flush below the duration ceiling")
	}

	s.Commit([]Token{word(2.0, 2.4, "speech")})
	got := finals(*events)
	if len(got) != 1 {
		t.Fatalf("expected heuristic flush at duration ceiling, got %d", len(got))
	}
	if got[0].Duration != 2.4 {
		t.Errorf("duration = %v", got[0].Duration)
	}
}

func TestStream_EOSTakesPrecedenceOverHeuristics(t *testing.T) {
	s, events := collect(Config{MaxWordsBeforeFlush: 2, MaxDurationBeforeFlush: 100})

	s.Commit([]Token{
		word(0, 0.3, "hi"),
		eos(0.3, 0.3, "."),
		word(0.5, 0.8, "there"),
		word(0.9, 1.2, "friend"),
	})

	// the EOS flush ran, so the heuristic pass is skipped this batch even
	// though two words remain committed
	got := finals(*events)
	if len(got) != 1 || got[0].Text != "hi." {
		t.Fatalf("expected only the EOS segment, got %+v", got)
	}
}

func TestStream_PartialEmission(t *testing.T) {
	s, events := collect(Config{})

	s.UpdateTail([]Token{word(0, 0.4, "hello")})
	s.UpdateTail([]Token{word(0, 0.4, "hello")}) // unchanged render
	s.UpdateTail([]Token{word(0, 0.4, "hello"), word(0.5, 0.9, "there")})

	if len(*events) != 2 {
		t.Fatalf("expected 2 partials (throttled), got %d", len(*events))
	}
	for _, ev := range *events {
		if ev.IsComplete {
			t.Errorf("tail updates must emit partials, got final %+v", ev)
		}
	}
	if (*events)[1].Text != "hello there" {
		t.Errorf("partial text = %q", (*events)[1].Text)
	}
}

func TestStream_PartialSpansCommittedAndTail(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{word(0, 0.4, "the")})
	s.UpdateTail([]Token{word(0.5, 0.9, "lord")})

	last := (*events)[len(*events)-1]
	if last.IsComplete || last.Text != "the lord" {
		t.Errorf("partial must span committed+tail, got %+v", last)
	}
}

func TestStream_AttachmentRendering(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{
		word(0, 0.3, "wait"),
		{Kind: KindPunctuation, StartTime: 0.3, EndTime: 0.3, Content: ",", AttachesTo: AttachPrevious},
		word(0.4, 0.7, "what"),
		eos(0.7, 0.7, "?"),
	})

	got := finals(*events)
	if len(got) != 1 || got[0].Text != "wait, what?" {
		t.Fatalf("attachment rendering wrong: %+v", got)
	}
}

func TestStream_LeadingPunctuationStripped(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{
		{Kind: KindPunctuation, StartTime: 0, EndTime: 0, Content: ".", AttachesTo: AttachPrevious},
		word(0.1, 0.4, "next"),
		eos(0.4, 0.4, "."),
	})

	got := finals(*events)
	if len(got) != 1 {
		t.Fatalf("expected 1 final, got %d", len(got))
	}
	if strings.HasPrefix(got[0].Text, ".") {
		t.Errorf("leading punctuation must be stripped: %q", got[0].Text)
	}
	if got[0].Text != "next." {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestStream_TimeRounding(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{
		word(1.23456, 1.98765, "round"),
		eos(1.98765, 1.98765, "."),
	})

	got := finals(*events)
	if got[0].Start != 1.23 {
		t.Errorf("start = %v, want 1.23", got[0].Start)
	}
	if got[0].Duration != 0.75 {
		t.Errorf("duration = %v, want 0.75", got[0].Duration)
	}
}

func TestStream_Flush(t *testing.T) {
	s, events := collect(Config{})

	s.Commit([]Token{word(0, 0.4, "unfinished"), word(0.5, 0.9, "thought")})
	s.UpdateTail([]Token{word(1.0, 1.2, "still")})

	s.Flush(FlushUtterance)

	got := finals(*events)
	if len(got) != 1 || got[0].Text != "unfinished thought" {
		t.Fatalf("Flush must close the committed buffer, got %+v", got)
	}

	// buffer and partial state reset
	s.Flush(FlushUtterance)
	if len(finals(*events)) != 1 {
		t.Error("flushing an empty buffer must emit nothing")
	}
	s.UpdateTail([]Token{word(2.0, 2.3, "fresh")})
	last := (*events)[len(*events)-1]
	if last.Text != "fresh" {
		t.Errorf("partial state must reset after flush, got %q", last.Text)
	}
}

func TestStream_EmptyRenderSuppressed(t *testing.T) {
	s, events := collect(Config{})
	s.UpdateTail(nil)
	s.Commit(nil)
	if len(*events) != 0 {
		t.Errorf("empty input must emit nothing, got %+v", *events)
	}
}
