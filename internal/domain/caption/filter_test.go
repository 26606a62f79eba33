package caption

import "testing"

func TestRemoveTerms(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		terms []string
		want  string
	}{
		{
			name:  "single profanity removed",
			text:  "this is fucking great",
			terms: Profanity,
			want:  "this is great",
		},
		{
			name:  "case insensitive",
			text:  "Shit happens",
			terms: Profanity,
			want:  "happens",
		},
		{
			name:  "whole word only",
			text:  "the scunthorpe problem",
			terms: []string{"cunt"},
			want:  "the scunthorpe problem",
		},
		{
			name:  "multiple occurrences collapse spaces",
			text:  "fuck this fuck that",
			terms: Profanity,
			want:  "this that",
		},
		{
			name:  "entire text removed",
			text:  "fuck",
			terms: Profanity,
			want:  "",
		},
		{
			name:  "custom blocklist",
			text:  "voldemort shall not be named",
			terms: []string{"voldemort"},
			want:  "shall not be named",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveTerms(tt.text, tt.terms)
			if got != tt.want {
				t.Errorf("RemoveTerms(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	t.Run("english with filter enabled", func(t *testing.T) {
		f := NewFilter(Options{Language: "en-US", ProfanityFilter: true})
		out, ok := f.Apply(Event{Start: 1.5, Text: "this is fucking great"})
		if !ok {
			t.Fatal("expected event to survive filtering")
		}
		if out.Text != "this is great" {
			t.Errorf("unexpected text: %q", out.Text)
		}
		if out.EmittedAt == 0 {
			t.Error("expected emission timestamp to be set")
		}
	})

	t.Run("non-english skips builtin list", func(t *testing.T) {
		f := NewFilter(Options{Language: "de", ProfanityFilter: true})
		out, ok := f.Apply(Event{Text: "shit happens"})
		if !ok || out.Text != "shit happens" {
			t.Errorf("builtin list must not run for non-english, got %q", out.Text)
		}
	})

	t.Run("filter disabled", func(t *testing.T) {
		f := NewFilter(Options{Language: "en", ProfanityFilter: false})
		out, ok := f.Apply(Event{Text: "shit happens"})
		if !ok || out.Text != "shit happens" {
			t.Errorf("disabled filter must pass text through, got %q", out.Text)
		}
	})

	t.Run("blocklist applies to any language", func(t *testing.T) {
		f := NewFilter(Options{Language: "es", Blocked: []string{"hola"}})
		out, ok := f.Apply(Event{Text: "hola mundo"})
		if !ok || out.Text != "mundo" {
			t.Errorf("blocklist must run for non-english, got %q", out.Text)
		}
	})

	t.Run("fully removed text suppresses event", func(t *testing.T) {
		f := NewFilter(Options{Language: "en", ProfanityFilter: true})
		if _, ok := f.Apply(Event{Text: "fuck"}); ok {
			t.Error("expected event suppression when nothing remains")
		}
	})
}
