// Package translation turns completed caption segments into target-language
// captions. Each completed segment fans out to one independent task per
// target language; the caption pipeline never waits on them.
package translation

import (
	"context"
	"fmt"
	"strings"

	"captionkit-server-go/internal/domain/caption"
)

// ContextPair is one prior source/target exchange given to the model so
// terminology stays consistent across the session.
type ContextPair struct {
	Source string
	Target string
}

// Translator performs one blocking segment translation.
type Translator interface {
	TranslateSegment(ctx context.Context, systemPrompt string, pairs []ContextPair, segment string) (string, error)
}

// BuildSystemPrompt produces the translator persona for one language pair.
// accountRules carries optional per-account terminology guidance appended to
// the prompt.
func BuildSystemPrompt(input, output, accountRules string) string {
	inputLabel := caption.InputLanguageName(input)
	outputLabel := caption.OutputLanguageName(output)

	prompt := strings.TrimSpace(fmt.Sprintf(`
You are a professional translator for live church sermons.

Translate the most recent message from %s (%s) into %s (%s).

Use natural spoken language appropriate for congregational listening. Translate key theological terms consistently throughout the session.

Translate naturally and conversationally, prioritising meaning, intent, and tone over literal wording.
Adapt idioms, figures of speech, and theological language into natural equivalents in the target language.
Preserve the speaker's intent and emphasis.

Use church-appropriate terminology.
For example, "spirit" typically refers to the Holy Spirit unless context clearly indicates otherwise.

Return ONLY the translated text in %s.
Do NOT include explanations, alternatives, commentary, or quotation marks.`,
		inputLabel, input, outputLabel, output, outputLabel))

	if accountRules != "" {
		prompt += "\n\nAdditional Context: " + accountRules
	}
	return prompt
}
