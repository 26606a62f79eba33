package speechmatics

import (
	"testing"

	"github.com/bytedance/sonic"

	"captionkit-server-go/internal/domain/asr/sentence"
)

func TestNormalize(t *testing.T) {
	raw := `[
		{"type":"word","start_time":0.1,"end_time":0.5,"alternatives":[{"content":"hello"}]},
		{"type":"punctuation","start_time":0.5,"end_time":0.5,"attaches_to":"previous","is_eos":true,"alternatives":[{"content":"."}]},
		{"type":"entity","start_time":0.6,"end_time":1.0,"alternatives":[{"content":"$5"}]},
		{"type":"speaker_change","start_time":1.0,"end_time":1.0,"alternatives":[{"content":"x"}]},
		{"type":"word","start_time":1.1,"end_time":1.2,"alternatives":[]},
		{"type":"word","start_time":1.3,"end_time":1.4,"alternatives":[{"content":""}]}
	]`

	var results []result
	if err := sonic.Unmarshal([]byte(raw), &results); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	tokens := normalize(results)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %+v", len(tokens), tokens)
	}

	if tokens[0].Kind != sentence.KindWord || tokens[0].Content != "hello" {
		t.Errorf("token 0 = %+v", tokens[0])
	}
	if tokens[0].AttachesTo != sentence.AttachNone {
		t.Errorf("missing attaches_to must default to none, got %q", tokens[0].AttachesTo)
	}
	if !tokens[1].IsEndOfSentence || tokens[1].AttachesTo != sentence.AttachPrevious {
		t.Errorf("token 1 = %+v", tokens[1])
	}
	if tokens[2].Kind != sentence.KindEntity {
		t.Errorf("token 2 = %+v", tokens[2])
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"en-GB", "en"},
		{"en", "en"},
		{"cy", "cy"},
		{"ar", "ar"},
	}
	for _, tt := range tests {
		if got := languageCode(tt.in); got != tt.want {
			t.Errorf("languageCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVocab(t *testing.T) {
	if vocab(nil) != nil {
		t.Error("empty keywords must produce no vocab section")
	}
	got := vocab([]string{"Ezekiel", "Nebuchadnezzar"})
	if len(got) != 2 || got[0].Content != "Ezekiel" {
		t.Errorf("vocab = %+v", got)
	}
}
