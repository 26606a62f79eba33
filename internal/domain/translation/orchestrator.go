package translation

import (
	"context"
	"sync"
	"time"

	"captionkit-server-go/internal/domain/caption"
	"captionkit-server-go/internal/platform/logging"
)

const (
	// segment windows, counted over the default caption sequence
	recentWindow   = 8
	completeWindow = 5
	contextWindow  = 4
	// how much of the target-language sequence is scanned for context pairs
	targetWindow = 6

	segmentTimeout = 30 * time.Second
)

// Orchestrator fans completed segments out to one translation task per
// target language. Tasks are independent; a failure in one language never
// blocks another, and the ingestion path never waits for any of them.
type Orchestrator struct {
	translator Translator
	store      *caption.Store
	opts       caption.Options
	rules      string
	logger     *logging.Logger

	// onTranslated receives the language and its recent translated events
	// after each successful translation
	onTranslated func(lang string, recent []caption.Event)

	wg sync.WaitGroup
}

func NewOrchestrator(
	translator Translator,
	store *caption.Store,
	opts caption.Options,
	accountRules string,
	logger *logging.Logger,
	onTranslated func(lang string, recent []caption.Event),
) *Orchestrator {
	return &Orchestrator{
		translator:   translator,
		store:        store,
		opts:         opts,
		rules:        accountRules,
		logger:       logger,
		onTranslated: onTranslated,
	}
}

// ProcessSegment translates the most recent completed segment into every
// target language. Returns immediately; the work runs in per-language
// goroutines.
func (o *Orchestrator) ProcessSegment() {
	if o == nil || len(o.opts.Targets) == 0 {
		return
	}

	window := completeRecent(o.store.Recent(recentWindow))
	if len(window) == 0 {
		return
	}

	for _, target := range o.opts.Targets {
		o.wg.Add(1)
		go func(target string) {
			defer o.wg.Done()
			o.translateOne(window, target)
		}(target)
	}
}

// Wait blocks until in-flight translations finish or the context ends. Used
// when a session closes so persistence catches the trailing segments.
func (o *Orchestrator) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) translateOne(window []caption.Event, target string) {
	segment := window[len(window)-1]
	pairs := o.contextPairs(window, target)
	prompt := BuildSystemPrompt(o.opts.Language, target, o.rules)

	ctx, cancel := context.WithTimeout(context.Background(), segmentTimeout)
	defer cancel()

	text, err := o.translator.TranslateSegment(ctx, prompt, pairs, segment.Text)
	if err != nil {
		o.logger.WarnTag("Translate", "translation to %s failed: %v", target, err)
		return
	}
	if text == "" {
		return
	}

	translated := segment
	translated.Text = text
	o.store.AppendTranslation(target, translated)

	if o.onTranslated != nil {
		o.onTranslated(target, o.store.Translations(target))
	}
}

// contextPairs matches the segments preceding the current one against the
// target-language sequence by equal start time. Only already-translated
// segments become few-shot pairs.
func (o *Orchestrator) contextPairs(window []caption.Event, target string) []ContextPair {
	preceding := window[:len(window)-1]
	if len(preceding) > contextWindow-1 {
		preceding = preceding[len(preceding)-(contextWindow-1):]
	}

	translated := o.store.Translations(target)
	if len(translated) > targetWindow {
		translated = translated[len(translated)-targetWindow:]
	}

	var pairs []ContextPair
	for _, src := range preceding {
		for _, tgt := range translated {
			if tgt.Start == src.Start {
				pairs = append(pairs, ContextPair{Source: src.Text, Target: tgt.Text})
				break
			}
		}
	}
	return pairs
}

// completeRecent filters a recent window down to its completed events,
// keeping at most completeWindow of them.
func completeRecent(events []caption.Event) []caption.Event {
	out := make([]caption.Event, 0, len(events))
	for _, ev := range events {
		if ev.IsComplete {
			out = append(out, ev)
		}
	}
	if len(out) > completeWindow {
		out = out[len(out)-completeWindow:]
	}
	return out
}
