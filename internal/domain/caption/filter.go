package caption

import (
	"regexp"
	"strings"
)

// Profanity is the built-in removal list applied to English source captions.
var Profanity = []string{
	"fuck",
	"fucking",
	"fucker",
	"fucked",
	"shit",
	"shitting",
	"shitter",
	"cunt",
	"bitch",
}

var spaceRun = regexp.MustCompile(`\s{2,}`)

// RemoveTerms deletes every whole-word, case-insensitive occurrence of the
// given terms from text and collapses the whitespace left behind.
func RemoveTerms(text string, terms []string) string {
	out := text
	for _, term := range terms {
		if term == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		out = re.ReplaceAllString(out, "")
		out = strings.Join(strings.Fields(out), " ")
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(out, " "))
}

// Filter applies the per-session text filters to incoming caption events.
type Filter struct {
	opts Options
}

func NewFilter(opts Options) *Filter {
	return &Filter{opts: opts}
}

// Apply returns the filtered event and true, or a zero event and false when
// the text was removed entirely and the event must be suppressed. The built-in
// profanity list runs only for English source languages with profanityFilter
// enabled; the session blocklist runs for every language.
func (f *Filter) Apply(ev Event) (Event, bool) {
	text := ev.Text

	isEnglish := strings.SplitN(f.opts.Language, "-", 2)[0] == "en"
	if isEnglish && f.opts.ProfanityFilter {
		text = RemoveTerms(text, Profanity)
	}
	if len(f.opts.Blocked) > 0 {
		text = RemoveTerms(text, f.opts.Blocked)
	}

	if text == "" {
		return Event{}, false
	}

	ev.Text = text
	ev.Stamp()
	return ev, true
}
