package translation

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
)

// OpenAITranslator calls an OpenAI-compatible chat completion endpoint.
// Pointing BaseURL at a Gemini or Fireworks compatibility endpoint works the
// same way.
type OpenAITranslator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAITranslator(cfg config.TranslationConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "translation.new",
			"missing api key")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (t *OpenAITranslator) TranslateSegment(ctx context.Context, systemPrompt string, pairs []ContextPair, segment string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2+2*len(pairs))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, pair := range pairs {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: pair.Source},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: pair.Target},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: segment,
	})

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Messages:    messages,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindTranslation, "translation.segment",
			"chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", platformerrors.New(platformerrors.KindTranslation, "translation.segment",
			"empty completion response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
