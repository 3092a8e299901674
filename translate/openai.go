// Package translate provides the machine-translation client used to
// render incoming messages in the viewer's language.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// OpenAITranslator translates message text using the OpenAI chat API.
// The API key is read from the OPENAI_API_KEY environment variable by the SDK.
type OpenAITranslator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAITranslator builds a translator with the default model.
func NewOpenAITranslator() *OpenAITranslator {
	return &OpenAITranslator{
		client: openai.NewClient(),
		model:  openai.ChatModelGPT4oMini,
	}
}

// NormalizeTag validates a BCP 47 language code and returns its canonical
// form, e.g. "PT-br" -> "pt-BR".
func NormalizeTag(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("language code is required")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("parse language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// LanguageName returns the English display name for a language code, used
// both in prompts and in the settings UI. Unknown codes fall back to the
// code itself.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

// Translate renders text into the target language. The original text is
// returned untouched by callers on failure; this method never retries.
func (t *OpenAITranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text is required")
	}
	tag, err := NormalizeTag(targetLang)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Translate the following chat message into %s. Reply with the translation only, no commentary. Keep emoji and formatting as-is.",
		LanguageName(tag),
	)

	completion, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate into %s: %w", tag, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("translation returned no choices")
	}

	translated := strings.TrimSpace(completion.Choices[0].Message.Content)
	if translated == "" {
		return "", errors.New("translation returned empty text")
	}
	return translated, nil
}
