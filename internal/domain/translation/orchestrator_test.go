package translation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"captionkit-server-go/internal/domain/caption"
)

// fakeTranslator records calls and answers with a per-language canned text.
type fakeTranslator struct {
	mu      sync.Mutex
	calls   []fakeCall
	answers map[string]string
	fail    map[string]bool
}

type fakeCall struct {
	prompt  string
	pairs   []ContextPair
	segment string
}

func (f *fakeTranslator) TranslateSegment(ctx context.Context, systemPrompt string, pairs []ContextPair, segment string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{prompt: systemPrompt, pairs: pairs, segment: segment})

	for lang, shouldFail := range f.fail {
		if strings.Contains(systemPrompt, "("+lang+")") && shouldFail {
			return "", errors.New("model unavailable")
		}
	}
	for lang, answer := range f.answers {
		if strings.Contains(systemPrompt, "("+lang+")") {
			return answer, nil
		}
	}
	return "translated: " + segment, nil
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o.Wait(ctx)
}

func opts(targets ...string) caption.Options {
	return caption.Options{Language: "en", Targets: targets}
}

func TestOrchestrator_TranslatesSegmentPerLanguage(t *testing.T) {
	store := caption.NewStore()
	store.Upsert(caption.Event{Start: 0, Text: "in the beginning", IsComplete: true})

	ft := &fakeTranslator{answers: map[string]string{
		"es": "en el principio",
		"fr": "au commencement",
	}}

	var mu sync.Mutex
	published := map[string][]caption.Event{}
	o := NewOrchestrator(ft, store, opts("es", "fr"), "", nil, func(lang string, recent []caption.Event) {
		mu.Lock()
		defer mu.Unlock()
		published[lang] = recent
	})

	o.ProcessSegment()
	waitDone(t, o)

	if ft.callCount() != 2 {
		t.Fatalf("expected 2 translation calls, got %d", ft.callCount())
	}

	es, ok := store.FindTranslation("es", 0)
	if !ok || es.Text != "en el principio" {
		t.Errorf("es translation = %+v, %v", es, ok)
	}
	fr, ok := store.FindTranslation("fr", 0)
	if !ok || fr.Text != "au commencement" {
		t.Errorf("fr translation = %+v, %v", fr, ok)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published["es"]) != 1 || len(published["fr"]) != 1 {
		t.Errorf("published = %+v", published)
	}
}

func TestOrchestrator_FailureIsolatedPerLanguage(t *testing.T) {
	store := caption.NewStore()
	store.Upsert(caption.Event{Start: 0, Text: "grace and peace", IsComplete: true})

	ft := &fakeTranslator{
		answers: map[string]string{"fr": "grâce et paix"},
		fail:    map[string]bool{"es": true},
	}

	o := NewOrchestrator(ft, store, opts("es", "fr"), "", nil, nil)
	o.ProcessSegment()
	waitDone(t, o)

	if _, ok := store.FindTranslation("es", 0); ok {
		t.Error("failed language must store nothing")
	}
	if fr, ok := store.FindTranslation("fr", 0); !ok || fr.Text != "grâce et paix" {
		t.Errorf("healthy language must still land: %+v, %v", fr, ok)
	}
}

func TestOrchestrator_ContextPairs(t *testing.T) {
	store := caption.NewStore()
	store.Upsert(caption.Event{Start: 0, Text: "first", IsComplete: true})
	store.Upsert(caption.Event{Start: 2, Text: "second", IsComplete: true})
	store.Upsert(caption.Event{Start: 4, Text: "third", IsComplete: true})
	store.AppendTranslation("es", caption.Event{Start: 0, Text: "primero", IsComplete: true})
	store.AppendTranslation("es", caption.Event{Start: 2, Text: "segundo", IsComplete: true})

	ft := &fakeTranslator{}
	o := NewOrchestrator(ft, store, opts("es"), "", nil, nil)
	o.ProcessSegment()
	waitDone(t, o)

	if len(ft.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(ft.calls))
	}
	call := ft.calls[0]
	if call.segment != "third" {
		t.Errorf("segment = %q", call.segment)
	}
	if len(call.pairs) != 2 {
		t.Fatalf("pairs = %+v", call.pairs)
	}
	if call.pairs[0].Source != "first" || call.pairs[0].Target != "primero" {
		t.Errorf("pair 0 = %+v", call.pairs[0])
	}
	if call.pairs[1].Source != "second" || call.pairs[1].Target != "segundo" {
		t.Errorf("pair 1 = %+v", call.pairs[1])
	}
}

func TestOrchestrator_PartialsExcludedFromWindow(t *testing.T) {
	store := caption.NewStore()
	store.Upsert(caption.Event{Start: 0, Text: "complete thought", IsComplete: true})
	store.Upsert(caption.Event{Start: 2, Text: "still typ", IsComplete: false})

	ft := &fakeTranslator{}
	o := NewOrchestrator(ft, store, opts("es"), "", nil, nil)
	o.ProcessSegment()
	waitDone(t, o)

	if len(ft.calls) != 1 || ft.calls[0].segment != "complete thought" {
		t.Errorf("segment must be the last completed event: %+v", ft.calls)
	}
}

func TestOrchestrator_NoTargetsNoWork(t *testing.T) {
	store := caption.NewStore()
	store.Upsert(caption.Event{Start: 0, Text: "hello", IsComplete: true})

	ft := &fakeTranslator{}
	o := NewOrchestrator(ft, store, opts(), "", nil, nil)
	o.ProcessSegment()
	waitDone(t, o)

	if ft.callCount() != 0 {
		t.Errorf("expected no calls, got %d", ft.callCount())
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("en", "es", "")
	for _, want := range []string{"English (en)", "Spanish (es)", "ONLY the translated text"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Additional Context") {
		t.Error("prompt must not carry rules when none are set")
	}

	withRules := BuildSystemPrompt("en", "es", "Use the 1960 Reina-Valera for scripture quotes.")
	if !strings.Contains(withRules, "Additional Context: Use the 1960") {
		t.Error("account rules must append to the prompt")
	}
}
